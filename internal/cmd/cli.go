// Package cmd defines the tradecore command-line surface. Grounded on
// the teacher's internal/cmd/cli.go (cobra root + serve command),
// generalized from a single data-server command to the full run
// lifecycle: load configuration, build one strategy per definition,
// start the stats API server, and run the engine until interrupted.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tradecore/internal/api"
	"tradecore/internal/config"
	"tradecore/internal/engine"
	"tradecore/internal/logger"
	"tradecore/internal/stats"
	"tradecore/internal/store"
	"tradecore/internal/strategy"
	"tradecore/internal/ui"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tradecore",
	Short: "tradecore - automated cryptocurrency trading engine",
	Long: `tradecore runs one trading worker per active trade configuration,
evaluating configured indicator strategies against exchange candle
data and managing buy/sell order lifecycles, profit matching, and
crash-safe persistence.`,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load configuration and run the trading engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configPath)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.AddCommand(runCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string) error {
	ui.PrintBanner()

	cfg, err := config.Load(path)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	log := logger.New(cfg.LogLevel)

	st, err := store.Open(cfg.ConnectionString())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	strategies := make(map[string]*strategy.Strategy, len(cfg.Strategies))
	for _, def := range cfg.Strategies {
		strat, err := strategy.Build(def)
		if err != nil {
			return fmt.Errorf("build strategy %q: %w", def.Name, err)
		}
		strategies[def.Name] = strat
	}

	pub := stats.NewPublisher()
	defer pub.Close()

	manager, err := engine.NewManager(cfg, strategies, st, log, pub)
	if err != nil {
		return fmt.Errorf("build engine manager: %w", err)
	}

	for _, tc := range cfg.Trades {
		if !tc.Active {
			continue
		}
		ui.PrintConfigSummary(tc.Name, tc.StrategyName, tc.StockExchange.ExchangeTag, tc.CoinSettings.BaseCurrency, tc.CoinSettings.TradedCurrencies)
	}
	ui.PrintInfo(fmt.Sprintf("%d active trade configuration(s) starting", manager.ActiveConfigurations()))

	server := api.NewServer(pub, st, log)
	go func() {
		if err := server.Run(":8080"); err != nil {
			log.Error("api server stopped", "error", err)
		}
	}()

	manager.Run(ctx)
	ui.PrintSuccess("engine shut down cleanly")
	return nil
}
