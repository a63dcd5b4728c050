package strategy

import (
	"fmt"
	"strings"

	"tradecore/internal/config"
	"tradecore/internal/indicators"
)

// Build compiles a config.StrategyDefinition into a runnable Strategy,
// validating every condition's indicator bounds.
func Build(def config.StrategyDefinition) (*Strategy, error) {
	s := &Strategy{
		Name:                           def.Name,
		OpenOrderWhenAnyIndicatorFires: def.OpenOrderWhenAnyIndicatorFires,
	}
	for _, cc := range def.Conditions {
		c, err := buildCondition(cc)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: condition %q: %w", def.Name, cc.Name, err)
		}
		s.Conditions = append(s.Conditions, c)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func buildCondition(cc config.ConditionConfig) (*Condition, error) {
	c := &Condition{Name: cc.Name}
	switch strings.ToLower(cc.Type) {
	case "sma":
		c.Kind = KindSMA
		c.SMA = indicators.SMAConfig{Period: cc.Period, CrossingInterval: cc.CrossingInterval}
	case "ema":
		c.Kind = KindEMA
		c.EMA = indicators.EMAConfig{Period: cc.Period, CrossingInterval: cc.CrossingInterval}
	case "rsi":
		c.Kind = KindRSI
		c.RSI = indicators.RSIConfig{
			Period: cc.Period, TopLevel: cc.TopLevel, BottomLevel: cc.BottomLevel,
			CrossingInterval: cc.CrossingInterval,
		}
	case "bollinger":
		c.Kind = KindBollinger
		variant := indicators.BollingerClassic
		if strings.EqualFold(cc.Variant, "advanced") {
			variant = indicators.BollingerAdvanced
		}
		c.Bollin = indicators.BollingerConfig{
			Period: cc.Period, StdDevs: cc.StandardDeviations, Input: parseInput(cc.Input),
			Variant: variant, TopPercentage: cc.TopPercentage, BottomPercentage: cc.BottomPercentage,
			CrossingInterval: cc.CrossingInterval,
		}
	case "ma_crossing":
		c.Kind = KindMACrossing
		t := indicators.MovingAverageSMA
		if strings.EqualFold(cc.AverageType, "ema") {
			t = indicators.MovingAverageEMA
		}
		c.MACross = indicators.MACrossingConfig{
			SmallerPeriod: cc.SmallerPeriod, BiggerPeriod: cc.BiggerPeriod, Type: t,
			CrossingInterval: cc.CrossingInterval,
		}
	case "stochastic":
		c.Kind = KindStochastic
		variant := indicators.StochasticQuick
		switch strings.ToLower(cc.Variant) {
		case "slow":
			variant = indicators.StochasticSlow
		case "full":
			variant = indicators.StochasticFull
		}
		c.Stoch = indicators.StochasticConfig{
			PeriodsForClassicLine: cc.Period, TopLevel: cc.TopLevel, BottomLevel: cc.BottomLevel,
			CrossingInterval: cc.CrossingInterval, Variant: variant,
			SmoothFastPeriod: cc.SmoothFastPeriod, SmoothSlowPeriod: cc.SmoothSlowPeriod,
		}
	case "macd":
		c.Kind = KindMACD
		c.MACD = indicators.MACDConfig{
			FastPeriod: cc.FastPeriod, SlowPeriod: cc.SlowPeriod, SignalPeriod: cc.SignalPeriod,
			CrossingInterval: cc.CrossingInterval,
		}
	default:
		return nil, fmt.Errorf("unknown condition type %q", cc.Type)
	}
	return c, nil
}

func parseInput(s string) indicators.InputSelector {
	switch strings.ToLower(s) {
	case "open":
		return indicators.InputOpen
	case "high":
		return indicators.InputHigh
	case "low":
		return indicators.InputLow
	case "volume":
		return indicators.InputVolume
	case "price":
		return indicators.InputPrice
	default:
		return indicators.InputClose
	}
}
