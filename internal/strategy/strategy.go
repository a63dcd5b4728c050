// Package strategy composes indicator configurations into a single
// composite BUY/SELL decision per market, per spec.md §4.3.
package strategy

import (
	"fmt"

	"tradecore/internal/indicators"
	"tradecore/internal/market"
)

// Kind names which indicator family a Condition evaluates.
type Kind int

const (
	KindSMA Kind = iota
	KindEMA
	KindRSI
	KindBollinger
	KindMACrossing
	KindStochastic
	KindMACD
)

// Condition pairs one indicator's configuration with the state it needs
// for duplicate-crossing suppression across ticks.
type Condition struct {
	Name    string
	Kind    Kind
	SMA     indicators.SMAConfig
	EMA     indicators.EMAConfig
	RSI     indicators.RSIConfig
	Bollin  indicators.BollingerConfig
	MACross indicators.MACrossingConfig
	Stoch   indicators.StochasticConfig
	MACD    indicators.MACDConfig

	state indicators.CrossingState
}

// Validate delegates to the underlying indicator configuration's bounds
// check, selected by Kind.
func (c *Condition) Validate() error {
	switch c.Kind {
	case KindSMA:
		return c.SMA.Validate()
	case KindEMA:
		return c.EMA.Validate()
	case KindRSI:
		return c.RSI.Validate()
	case KindBollinger:
		return c.Bollin.Validate()
	case KindMACrossing:
		return c.MACross.Validate()
	case KindStochastic:
		return c.Stoch.Validate()
	case KindMACD:
		return c.MACD.Validate()
	default:
		return fmt.Errorf("strategy: unknown condition kind %d for %q", c.Kind, c.Name)
	}
}

func (c *Condition) evaluate(candles []market.Candle) (indicators.Signal, error) {
	switch c.Kind {
	case KindSMA:
		return indicators.EvaluateSMA(candles, c.SMA, &c.state)
	case KindEMA:
		return indicators.EvaluateEMA(candles, c.EMA, &c.state)
	case KindRSI:
		return indicators.EvaluateRSI(candles, c.RSI, &c.state)
	case KindBollinger:
		return indicators.EvaluateBollinger(candles, c.Bollin, &c.state)
	case KindMACrossing:
		return indicators.EvaluateMACrossing(candles, c.MACross, &c.state)
	case KindStochastic:
		return indicators.EvaluateStochastic(candles, c.Stoch, &c.state)
	case KindMACD:
		return indicators.EvaluateMACD(candles, c.MACD, &c.state)
	default:
		return indicators.None, fmt.Errorf("strategy: unknown condition kind %d for %q", c.Kind, c.Name)
	}
}

// Strategy is an ordered, named list of indicator conditions combined by
// either unanimous agreement or any-one-triggers, per spec.md §4.3.
type Strategy struct {
	Name                            string
	Conditions                      []*Condition
	OpenOrderWhenAnyIndicatorFires  bool
}

// Validate checks the strategy has at least one condition and that every
// condition's own parameter bounds hold.
func (s *Strategy) Validate() error {
	if len(s.Conditions) == 0 {
		return fmt.Errorf("strategy %q: must have at least one condition", s.Name)
	}
	for _, c := range s.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("strategy %q: %w", s.Name, err)
		}
	}
	return nil
}

// Decision is the composite output of one strategy evaluation.
type Decision int

const (
	NoDecision Decision = iota
	Buy
	Sell
)

func (d Decision) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

// MarshalJSON renders a Decision as its string form for API/UI consumers.
func (d Decision) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// Evaluate runs every condition against candles and combines the
// individual signals per the composer rule in spec.md §4.3: unanimous
// agreement when OpenOrderWhenAnyIndicatorFires is false, any-one-fires
// otherwise. Mixed BUY/SELL in the same tick resolves to BUY only if no
// condition said SELL, SELL only if none said BUY, else NoDecision.
func (s *Strategy) Evaluate(candles []market.Candle) (Decision, error) {
	buys, sells := 0, 0
	for _, c := range s.Conditions {
		sig, err := c.evaluate(candles)
		if err != nil {
			return NoDecision, fmt.Errorf("strategy %q: condition %q: %w", s.Name, c.Name, err)
		}
		switch sig {
		case indicators.BuyCrossing:
			buys++
		case indicators.SellCrossing:
			sells++
		}
	}

	total := len(s.Conditions)
	buyTriggered := buys > 0 && sells == 0 && (s.OpenOrderWhenAnyIndicatorFires || buys == total)
	sellTriggered := sells > 0 && buys == 0 && (s.OpenOrderWhenAnyIndicatorFires || sells == total)

	switch {
	case buyTriggered:
		return Buy, nil
	case sellTriggered:
		return Sell, nil
	default:
		return NoDecision, nil
	}
}
