package strategy

import (
	"testing"

	"tradecore/internal/indicators"
	"tradecore/internal/market"
)

func TestStrategyEvaluateNoConditionsFires(t *testing.T) {
	s := &Strategy{Name: "empty"}
	candles := []market.Candle{{Open: 1, Close: 1, High: 1, Low: 1}}
	decision, err := s.Evaluate(candles)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision != NoDecision {
		t.Errorf("Evaluate with no conditions = %v, want NoDecision", decision)
	}
}

func TestStrategyValidateRequiresConditions(t *testing.T) {
	s := &Strategy{Name: "empty"}
	if err := s.Validate(); err == nil {
		t.Errorf("a strategy with no conditions should fail validation")
	}
}

func TestStrategyValidatePropagatesConditionError(t *testing.T) {
	s := &Strategy{
		Name: "bad",
		Conditions: []*Condition{
			{Name: "bad-sma", Kind: KindSMA, SMA: indicators.SMAConfig{Period: 0}},
		},
	}
	if err := s.Validate(); err == nil {
		t.Errorf("an out-of-range indicator config should fail strategy validation")
	}
}

func TestDecisionString(t *testing.T) {
	tests := []struct {
		d    Decision
		want string
	}{
		{Buy, "buy"},
		{Sell, "sell"},
		{NoDecision, "none"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Decision(%d).String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestDecisionMarshalJSON(t *testing.T) {
	b, err := Buy.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON returned error: %v", err)
	}
	if string(b) != `"buy"` {
		t.Errorf("Buy.MarshalJSON() = %s, want \"buy\"", b)
	}
}

func TestConditionValidateUnknownKind(t *testing.T) {
	c := &Condition{Name: "mystery", Kind: Kind(99)}
	if err := c.Validate(); err == nil {
		t.Errorf("an unknown condition kind should fail validation")
	}
}

// TestStrategyEvaluateUnanimousVsAnyFires exercises the composer rule
// directly against a flat, unchanging candle series: every SMA/EMA
// condition reports None on a flat line, so both composition modes should
// agree on NoDecision. Error propagation from Evaluate is checked
// separately by TestStrategyEvaluatePropagatesConditionError.
func TestStrategyEvaluateUnanimousVsAnyFires(t *testing.T) {
	candles := make([]market.Candle, 10)
	for i := range candles {
		candles[i] = market.Candle{Open: 10, Close: 10, High: 10, Low: 10}
	}

	unanimous := &Strategy{
		Name: "unanimous",
		Conditions: []*Condition{
			{Name: "sma", Kind: KindSMA, SMA: indicators.SMAConfig{Period: 3}},
			{Name: "ema", Kind: KindEMA, EMA: indicators.EMAConfig{Period: 3}},
		},
		OpenOrderWhenAnyIndicatorFires: false,
	}
	decision, err := unanimous.Evaluate(candles)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision != NoDecision {
		t.Errorf("flat line should never cross, got %v", decision)
	}

	anyFires := &Strategy{
		Name:                           "any",
		Conditions:                     unanimous.Conditions,
		OpenOrderWhenAnyIndicatorFires: true,
	}
	decision, err = anyFires.Evaluate(candles)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if decision != NoDecision {
		t.Errorf("flat line should never cross under any-fires composition either, got %v", decision)
	}
}

func TestStrategyEvaluatePropagatesConditionError(t *testing.T) {
	s := &Strategy{
		Name: "broken",
		Conditions: []*Condition{
			{Name: "bad", Kind: Kind(99)},
		},
	}
	candles := []market.Candle{{Open: 1, Close: 1, High: 1, Low: 1}}
	if _, err := s.Evaluate(candles); err == nil {
		t.Errorf("an unknown condition kind should surface as an Evaluate error")
	}
}
