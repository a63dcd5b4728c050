// Package config loads the application configuration: global app
// settings, the database connection, and the list of trade
// configurations the engine runs, one worker per active entry.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	LogLevel   string               `yaml:"log_level"`
	Database   DatabaseConfig       `yaml:"database"`
	App        AppSettings          `yaml:"app_settings"`
	Strategies []StrategyDefinition `yaml:"strategies"`
	Trades     []TradeConfiguration `yaml:"trade_configurations"`
}

// StrategyDefinition is the YAML-loadable form of a custom strategy, per
// spec.md §4.3: an ordered, named list of indicator conditions.
type StrategyDefinition struct {
	Name                           string             `yaml:"name"`
	OpenOrderWhenAnyIndicatorFires bool               `yaml:"open_order_when_any_indicator_is_triggered"`
	Conditions                     []ConditionConfig  `yaml:"conditions"`
}

// ConditionConfig is one indicator condition within a strategy
// definition. It is a flat struct: Type selects the indicator, and only
// the field group for that indicator (plus Period/CrossingInterval where
// the indicator uses them) is read.
type ConditionConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"` // sma | ema | rsi | bollinger | ma_crossing | stochastic | macd

	Period           int     `yaml:"period"`
	CrossingInterval int     `yaml:"crossing_interval"`

	// RSI
	TopLevel    float64 `yaml:"top_level"`
	BottomLevel float64 `yaml:"bottom_level"`

	// Bollinger
	StandardDeviations float64 `yaml:"standard_deviations"`
	Input              string  `yaml:"input"` // close | open | high | low | volume | price
	Variant            string  `yaml:"variant"`
	TopPercentage      float64 `yaml:"top_percentage"`
	BottomPercentage   float64 `yaml:"bottom_percentage"`

	// MA Crossing
	SmallerPeriod int    `yaml:"smaller_period"`
	BiggerPeriod  int    `yaml:"bigger_period"`
	AverageType   string `yaml:"average_type"` // sma | ema

	// Stochastic
	SmoothFastPeriod int `yaml:"smooth_fast_period"`
	SmoothSlowPeriod int `yaml:"smooth_slow_period"`

	// MACD
	FastPeriod   int `yaml:"fast_period"`
	SlowPeriod   int `yaml:"slow_period"`
	SignalPeriod int `yaml:"signal_period"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// AppSettings holds process-wide settings per spec.md §4.6.
type AppSettings struct {
	TradingTimeoutMinutes int `yaml:"trading_timeout"`
}

// BuySettings controls admission and sizing of BUY orders, per
// spec.md §4.6.
type BuySettings struct {
	MaxOpenOrders                  int     `yaml:"max_open_orders"`
	MaxOpenTimeMinutes             int     `yaml:"max_open_time"`
	MaxCoinAmount                  float64 `yaml:"max_coin_amount"`
	PercentageBuyAmount            float64 `yaml:"percentage_buy_amount"`
	MinOrderPrice                  float64 `yaml:"min_order_price"`
	OpenPositionsPerCoin           int     `yaml:"open_positions_per_coin"`
	OpenOrderWhenAnyIndicatorFires bool    `yaml:"open_order_when_any_indicator_is_triggered"`
}

// SellSettings controls SELL order lifecycle and profit targeting.
type SellSettings struct {
	OpenOrderTimeMinutes int     `yaml:"open_order_time"`
	ProfitPercentage     float64 `yaml:"profit_percentage"`
}

// CoinSettings names the base currency and the currencies traded
// against it.
type CoinSettings struct {
	BaseCurrency     string   `yaml:"base_currency"`
	TradedCurrencies []string `yaml:"traded_currencies"`
}

// StockExchangeSettings selects and authenticates against one exchange.
// AccountID is only consulted by the Huobi adapter, which requires an
// account id on every trading call.
type StockExchangeSettings struct {
	ExchangeTag string `yaml:"exchange_tag"`
	APIKey      string `yaml:"api_key"`
	SecretKey   string `yaml:"secret_key"`
	AccountID   string `yaml:"account_id"`
}

// TradeConfiguration is one independently-run trading configuration, per
// spec.md §4.6.
type TradeConfiguration struct {
	Name          string                `yaml:"name"`
	Active        bool                  `yaml:"active"`
	StrategyName  string                `yaml:"strategy_name"`
	BuySettings   BuySettings           `yaml:"buy_settings"`
	SellSettings  SellSettings          `yaml:"sell_settings"`
	CoinSettings  CoinSettings          `yaml:"coin_settings"`
	StockExchange StockExchangeSettings `yaml:"stock_exchange_settings"`
}

// Load reads configuration from a YAML file with environment variable
// overrides, loading a .env file first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using defaults and config.yaml")
	} else {
		fmt.Println("Loaded configuration from .env file")
	}

	cfg := &Config{
		LogLevel: "info",
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "tradecore",
			DBName:  "tradecore",
			SSLMode: "disable",
		},
		App: AppSettings{TradingTimeoutMinutes: 1},
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("TRADECORE_LOG_LEVEL"); val != "" {
		cfg.LogLevel = val
	}
	if val := os.Getenv("TRADECORE_DB_HOST"); val != "" {
		cfg.Database.Host = val
	}
	if val := os.Getenv("TRADECORE_DB_PORT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.Database.Port = i
		}
	}
	if val := os.Getenv("TRADECORE_DB_USER"); val != "" {
		cfg.Database.User = val
	}
	if val := os.Getenv("TRADECORE_DB_PASSWORD"); val != "" {
		cfg.Database.Password = val
	}
	if val := os.Getenv("TRADECORE_DB_NAME"); val != "" {
		cfg.Database.DBName = val
	}
	if val := os.Getenv("TRADECORE_DB_SSLMODE"); val != "" {
		cfg.Database.SSLMode = val
	}
	if val := os.Getenv("TRADECORE_TRADING_TIMEOUT"); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			cfg.App.TradingTimeoutMinutes = i
		}
	}

	// Per-configuration exchange credentials are commonly injected via
	// environment in production rather than checked into YAML: override
	// by configuration name, e.g. TRADECORE_TRADE_MAIN_API_KEY.
	for i := range cfg.Trades {
		tc := &cfg.Trades[i]
		prefix := "TRADECORE_TRADE_" + strings.ToUpper(tc.Name) + "_"
		if val := os.Getenv(prefix + "API_KEY"); val != "" {
			tc.StockExchange.APIKey = val
		}
		if val := os.Getenv(prefix + "SECRET_KEY"); val != "" {
			tc.StockExchange.SecretKey = val
		}
		if val := os.Getenv(prefix + "ACCOUNT_ID"); val != "" {
			tc.StockExchange.AccountID = val
		}
	}
}

// Validate checks the configuration's global and per-trade invariants.
func (c *Config) Validate() error {
	if c.App.TradingTimeoutMinutes <= 0 {
		return fmt.Errorf("app_settings.trading_timeout must be positive")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("database port must be between 1 and 65535")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	for _, tc := range c.Trades {
		if err := tc.Validate(); err != nil {
			return fmt.Errorf("trade configuration %q: %w", tc.Name, err)
		}
	}
	return nil
}

// Validate checks one trade configuration's field-level invariants per
// spec.md §4.6.
func (tc *TradeConfiguration) Validate() error {
	if tc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if tc.StrategyName == "" {
		return fmt.Errorf("strategy_name is required")
	}
	if tc.BuySettings.MaxOpenOrders <= 0 {
		return fmt.Errorf("buy_settings.max_open_orders must be positive")
	}
	if tc.BuySettings.PercentageBuyAmount <= 0 || tc.BuySettings.PercentageBuyAmount > 100 {
		return fmt.Errorf("buy_settings.percentage_buy_amount must be in (0,100]")
	}
	if tc.BuySettings.OpenPositionsPerCoin <= 0 {
		return fmt.Errorf("buy_settings.open_positions_per_coin must be positive")
	}
	if tc.SellSettings.ProfitPercentage <= 0 {
		return fmt.Errorf("sell_settings.profit_percentage must be positive")
	}
	if tc.CoinSettings.BaseCurrency == "" {
		return fmt.Errorf("coin_settings.base_currency is required")
	}
	if len(tc.CoinSettings.TradedCurrencies) == 0 {
		return fmt.Errorf("coin_settings.traded_currencies must be non-empty")
	}
	if tc.StockExchange.ExchangeTag == "" {
		return fmt.Errorf("stock_exchange_settings.exchange_tag is required")
	}
	return nil
}

// ConnectionString builds a PostgreSQL connection string from the
// database settings.
func (c *Config) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password, c.Database.DBName, c.Database.SSLMode,
	)
}
