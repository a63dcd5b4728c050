package indicators

import (
	"math"
	"testing"
	"time"

	"tradecore/internal/market"
)

func closeCandles(values []float64) []market.Candle {
	candles := make([]market.Candle, len(values))
	for i, v := range values {
		candles[i] = market.Candle{
			Timestamp: time.Now().Add(time.Duration(i) * time.Minute),
			Open:      v,
			Close:     v,
			Low:       v,
			High:      v,
		}
	}
	return candles
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSelect(t *testing.T) {
	c := market.Candle{Open: 1, High: 4, Low: 2, Close: 3, Volume: 10}
	tests := []struct {
		sel  InputSelector
		want float64
	}{
		{InputOpen, 1},
		{InputHigh, 4},
		{InputLow, 2},
		{InputClose, 3},
		{InputVolume, 10},
		{InputPrice, 3}, // (4+2+3)/3
	}
	for _, tt := range tests {
		if got := Select(c, tt.sel); !almostEqual(got, tt.want) {
			t.Errorf("Select(selector=%v) = %v, want %v", tt.sel, got, tt.want)
		}
	}
}

func TestSMA(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("SMA returned error: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("SMA() = %v, want %v", got, want)
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("SMA()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSMAInsufficientData(t *testing.T) {
	if _, err := SMA([]float64{1, 2}, 3); err == nil {
		t.Errorf("expected error for insufficient data")
	}
}

func TestEMA(t *testing.T) {
	got, err := EMA([]float64{1, 2, 3, 4, 5}, 3)
	if err != nil {
		t.Fatalf("EMA returned error: %v", err)
	}
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("EMA() = %v, want %v", got, want)
	}
	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("EMA()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRSIAllGainsYields100(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6, 7}
	got, err := RSI(values, 5)
	if err != nil {
		t.Fatalf("RSI returned error: %v", err)
	}
	for i, v := range got {
		if v != 100 {
			t.Errorf("RSI()[%d] = %v, want 100 (avg_loss == 0)", i, v)
		}
	}
}

func TestRSIInsufficientData(t *testing.T) {
	if _, err := RSI([]float64{1, 2, 3}, 5); err == nil {
		t.Errorf("expected error for insufficient data")
	}
}

func TestCrossingDuplicated(t *testing.T) {
	line := []float64{1, 2, 3, 4, 5}
	if crossingDuplicated(line, 0, 3, true) {
		t.Errorf("crossing_interval = 0 must disable suppression")
	}
	if crossingDuplicated(line, 3, 3, false) {
		t.Errorf("no prior price recorded, nothing can be duplicated")
	}
	if !crossingDuplicated(line, 3, 3, true) {
		t.Errorf("3 appears within the trailing window and should be a duplicate")
	}
	if crossingDuplicated(line, 1, 1, true) {
		t.Errorf("1 is outside a window of 1 trailing point and should not be a duplicate")
	}
}

func TestSMAConfigValidate(t *testing.T) {
	if err := (SMAConfig{Period: 0, CrossingInterval: 0}).Validate(); err == nil {
		t.Errorf("period 0 should be rejected")
	}
	if err := (SMAConfig{Period: 101, CrossingInterval: 0}).Validate(); err == nil {
		t.Errorf("period 101 should be rejected")
	}
	if err := (SMAConfig{Period: 10, CrossingInterval: 11}).Validate(); err == nil {
		t.Errorf("crossing_interval 11 should be rejected")
	}
	if err := (SMAConfig{Period: 10, CrossingInterval: 5}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestRSIConfigValidate(t *testing.T) {
	if err := (RSIConfig{Period: 14, TopLevel: 70, BottomLevel: 30}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (RSIConfig{Period: 14, TopLevel: 30, BottomLevel: 70}).Validate(); err == nil {
		t.Errorf("top below bottom should be rejected")
	}
}

func TestBollingerConfigValidateAdvanced(t *testing.T) {
	cfg := BollingerConfig{Period: 20, StdDevs: 2, Variant: BollingerAdvanced, TopPercentage: 0, BottomPercentage: 50}
	if err := cfg.Validate(); err == nil {
		t.Errorf("TopPercentage 0 should be rejected in advanced variant")
	}
	cfg.TopPercentage = 100
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid advanced config rejected: %v", err)
	}
}

func TestMACrossingConfigValidate(t *testing.T) {
	if err := (MACrossingConfig{SmallerPeriod: 10, BiggerPeriod: 10}).Validate(); err == nil {
		t.Errorf("equal periods should be rejected")
	}
	if err := (MACrossingConfig{SmallerPeriod: 5, BiggerPeriod: 20}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestEvaluateSMABuyCrossing(t *testing.T) {
	candles := closeCandles([]float64{10, 10, 10, 10})
	// Force the last candle to straddle the SMA line, with prev < last.
	candles[len(candles)-1].Open = 9
	candles[len(candles)-1].Close = 11
	cfg := SMAConfig{Period: 3, CrossingInterval: 0}
	state := &CrossingState{}

	sig, err := EvaluateSMA(candles, cfg, state)
	if err != nil {
		t.Fatalf("EvaluateSMA returned error: %v", err)
	}
	if sig != BuyCrossing {
		// Closes 10,10,10,11 give SMA(3) points 10 then 10.33: the last
		// point lies inside open 9/close 11 and above the previous one.
		t.Errorf("EvaluateSMA = %v, want BuyCrossing", sig)
	}
}

func TestEvaluateSMAInsufficientData(t *testing.T) {
	candles := closeCandles([]float64{1, 2})
	sig, err := EvaluateSMA(candles, SMAConfig{Period: 5, CrossingInterval: 0}, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateSMA returned error: %v", err)
	}
	if sig != None {
		t.Errorf("EvaluateSMA with insufficient data = %v, want None", sig)
	}
}

func TestEvaluateBollingerZeroStdDevNeverFires(t *testing.T) {
	candles := closeCandles([]float64{1, 2, 3, 4, 5, 100})
	cfg := BollingerConfig{Period: 5, StdDevs: 0, Input: InputClose}
	sig, err := EvaluateBollinger(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateBollinger returned error: %v", err)
	}
	if sig != None {
		t.Errorf("std_dev = 0 collapses the bands and must never fire, got %v", sig)
	}
}

func TestEvaluateBollingerSellOnUpperTouch(t *testing.T) {
	values := []float64{10, 10, 10, 10, 10, 50}
	candles := closeCandles(values)
	cfg := BollingerConfig{Period: 5, StdDevs: 1, Input: InputClose}
	sig, err := EvaluateBollinger(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateBollinger returned error: %v", err)
	}
	if sig != SellCrossing {
		t.Errorf("a sharp spike above the upper band should signal sell, got %v", sig)
	}
}

func TestEvaluateMACrossingBuy(t *testing.T) {
	// A jump on the last candle pulls the short MA above the long MA on
	// the last point: SMA(2) - SMA(4) goes from 0 to 5.5 - 3.25.
	values := []float64{1, 1, 1, 1, 1, 1, 10}
	candles := closeCandles(values)
	cfg := MACrossingConfig{SmallerPeriod: 2, BiggerPeriod: 4, Type: MovingAverageSMA}
	sig, err := EvaluateMACrossing(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateMACrossing returned error: %v", err)
	}
	if sig != BuyCrossing {
		t.Errorf("EvaluateMACrossing = %v, want BuyCrossing", sig)
	}
}

func TestEvaluateMACrossingInsufficientData(t *testing.T) {
	candles := closeCandles([]float64{1, 2, 3})
	sig, err := EvaluateMACrossing(candles, MACrossingConfig{SmallerPeriod: 2, BiggerPeriod: 20, Type: MovingAverageSMA}, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateMACrossing returned error: %v", err)
	}
	if sig != None {
		t.Errorf("EvaluateMACrossing with insufficient data = %v, want None", sig)
	}
}

func TestEvaluateStochasticInsufficientData(t *testing.T) {
	candles := closeCandles([]float64{1, 2, 3})
	cfg := StochasticConfig{PeriodsForClassicLine: 14, TopLevel: 80, BottomLevel: 20}
	sig, err := EvaluateStochastic(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateStochastic returned error: %v", err)
	}
	if sig != None {
		t.Errorf("EvaluateStochastic with insufficient data = %v, want None", sig)
	}
}

func TestClassicKFlatWindowYieldsZero(t *testing.T) {
	candles := closeCandles([]float64{5, 5, 5, 5, 5})
	k := classicK(candles, 3)
	for i, v := range k {
		if v != 0 {
			t.Errorf("classicK()[%d] = %v, want 0 when high == low", i, v)
		}
	}
}

func TestMACD(t *testing.T) {
	values := make([]float64, 40)
	for i := range values {
		values[i] = float64(i) + 1
	}
	result, err := MACD(values, 12, 26, 9)
	if err != nil {
		t.Fatalf("MACD returned error: %v", err)
	}
	if len(result.MACD) != len(result.Signal) || len(result.Signal) != len(result.Histogram) {
		t.Errorf("MACD lines have mismatched lengths: macd=%d signal=%d histogram=%d",
			len(result.MACD), len(result.Signal), len(result.Histogram))
	}
	for i := range result.Histogram {
		want := result.MACD[i] - result.Signal[i]
		if !almostEqual(result.Histogram[i], want) {
			t.Errorf("Histogram[%d] = %v, want MACD-Signal = %v", i, result.Histogram[i], want)
		}
	}
}

func TestMACDRejectsBadPeriods(t *testing.T) {
	if _, err := MACD([]float64{1, 2, 3}, 26, 12, 9); err == nil {
		t.Errorf("fast period >= slow period should be rejected")
	}
}

func TestMACDConfigValidate(t *testing.T) {
	if err := (MACDConfig{FastPeriod: 26, SlowPeriod: 12, SignalPeriod: 9}).Validate(); err == nil {
		t.Errorf("fast period >= slow period should be rejected")
	}
	if err := (MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
}

func TestEvaluateMACDInsufficientData(t *testing.T) {
	candles := closeCandles([]float64{1, 2, 3})
	cfg := MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
	sig, err := EvaluateMACD(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateMACD returned error: %v", err)
	}
	if sig != None {
		t.Errorf("EvaluateMACD with insufficient data = %v, want None", sig)
	}
}

func TestEvaluateMACDBuyCrossing(t *testing.T) {
	// A long decline followed by a sharp rise on the last candle pulls the
	// histogram from zero to positive territory on that candle.
	values := make([]float64, 41)
	for i := range values {
		values[i] = 100 - float64(i)
	}
	for i := 40; i < len(values); i++ {
		values[i] = values[39] + float64(i-39)*5
	}
	candles := closeCandles(values)
	cfg := MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9}
	sig, err := EvaluateMACD(candles, cfg, &CrossingState{})
	if err != nil {
		t.Fatalf("EvaluateMACD returned error: %v", err)
	}
	if sig != BuyCrossing {
		t.Errorf("EvaluateMACD = %v, want BuyCrossing", sig)
	}
}
