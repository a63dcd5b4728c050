// Package indicators computes technical-analysis lines over a candle
// window and detects BUY/SELL crossings on them, with duplicate
// suppression over a configurable interval of trailing line points.
package indicators

import (
	"fmt"
	"math"

	"tradecore/internal/market"
)

// Signal is the per-tick output of a single indicator.
type Signal int

const (
	None Signal = iota
	BuyCrossing
	SellCrossing
)

// InputSelector picks which candle field an indicator reads. Only
// Bollinger Bands exposes this; every other indicator always reads Close.
type InputSelector int

const (
	InputClose InputSelector = iota
	InputOpen
	InputHigh
	InputLow
	InputVolume
	InputPrice // (high+low+close)/3, the classic "typical price"
)

// Select extracts the field of c named by sel.
func Select(c market.Candle, sel InputSelector) float64 {
	switch sel {
	case InputOpen:
		return c.Open
	case InputHigh:
		return c.High
	case InputLow:
		return c.Low
	case InputVolume:
		return c.Volume
	case InputPrice:
		return (c.High + c.Low + c.Close) / 3
	default:
		return c.Close
	}
}

func closes(candles []market.Candle, sel InputSelector) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = Select(c, sel)
	}
	return out
}

// CrossingState tracks the last emitted buy/sell crossing price for one
// indicator instance, so the engine can suppress duplicate firings on a
// line that keeps re-touching the same value.
type CrossingState struct {
	LastBuyPrice  float64
	HasBuyPrice   bool
	LastSellPrice float64
	HasSellPrice  bool
}

// crossingDuplicated walks back over the last point of line (the
// candidate) and up to crossingInterval points before it, looking for a
// bit-identical match to lastPrice. Grounded on the original
// isBuyCrossingDuplicatedOnInterval/isSellCrossingDuplicatedOnInterval:
// crossing_interval = 0 disables suppression.
func crossingDuplicated(line []float64, crossingInterval int, lastPrice float64, has bool) bool {
	if crossingInterval == 0 || !has {
		return false
	}
	n := len(line)
	start := n - 1 - crossingInterval
	if start < 0 {
		start = 0
	}
	for i := n - 1; i >= start; i-- {
		if line[i] == lastPrice {
			return true
		}
	}
	return false
}

// SMAConfig parameterizes the Simple Moving Average indicator.
type SMAConfig struct {
	Period           int
	CrossingInterval int
}

// Validate enforces the bounds spec.md §4.2 places on SMA parameters.
func (cfg SMAConfig) Validate() error {
	if cfg.Period < 1 || cfg.Period > 100 {
		return fmt.Errorf("sma: period must be in [1,100], got %d", cfg.Period)
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("sma: crossing_interval must be in [0,10], got %d", cfg.CrossingInterval)
	}
	return nil
}

// SMA computes the arithmetic mean of values over [i, i+period) for each
// valid window.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive")
	}
	if len(values) < period {
		return nil, fmt.Errorf("insufficient data: need %d, got %d", period, len(values))
	}
	result := make([]float64, len(values)-period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[0] = sum / float64(period)
	for i := period; i < len(values); i++ {
		sum = sum - values[i-period] + values[i]
		result[i-period+1] = sum / float64(period)
	}
	return result, nil
}

// EMA computes the exponential moving average; the first point equals
// the SMA of the same period, subsequent points use multiplier
// alpha = 2/(period+1).
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive")
	}
	if len(values) < period {
		return nil, fmt.Errorf("insufficient data: need %d, got %d", period, len(values))
	}
	result := make([]float64, len(values))
	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += values[i]
	}
	result[period-1] = sum / float64(period)
	for i := period; i < len(values); i++ {
		result[i] = (values[i]-result[i-1])*multiplier + result[i-1]
	}
	return result[period-1:], nil
}

// crossingToBuy mirrors crossingToBuySignal: the last line point lies
// strictly between the last candle's open and close, and the penultimate
// point is below the last point.
func crossingToBuy(line []float64, candle market.Candle, crossingInterval int, state *CrossingState) bool {
	n := len(line)
	if n < 2 {
		return false
	}
	last, prev := line[n-1], line[n-2]
	if last > candle.Open && last < candle.Close && prev < last {
		if crossingDuplicated(line, crossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			return false
		}
		state.LastBuyPrice, state.HasBuyPrice = last, true
		return true
	}
	return false
}

// crossingToSell mirrors crossingToSellSignal: the last line point lies
// strictly between the last candle's close and open, and the penultimate
// point is above the last point.
func crossingToSell(line []float64, candle market.Candle, crossingInterval int, state *CrossingState) bool {
	n := len(line)
	if n < 2 {
		return false
	}
	last, prev := line[n-1], line[n-2]
	if last < candle.Open && last > candle.Close && prev > last {
		if crossingDuplicated(line, crossingInterval, state.LastSellPrice, state.HasSellPrice) {
			return false
		}
		state.LastSellPrice, state.HasSellPrice = last, true
		return true
	}
	return false
}

// EvaluateSMA computes the SMA line for candles and returns the crossing
// signal for the latest candle, mutating state for duplicate suppression.
func EvaluateSMA(candles []market.Candle, cfg SMAConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.Period {
		return None, nil
	}
	line, err := SMA(closes(candles, InputClose), cfg.Period)
	if err != nil {
		return None, err
	}
	last := candles[len(candles)-1]
	if crossingToBuy(line, last, cfg.CrossingInterval, state) {
		return BuyCrossing, nil
	}
	if crossingToSell(line, last, cfg.CrossingInterval, state) {
		return SellCrossing, nil
	}
	return None, nil
}

// EMAConfig parameterizes the Exponential Moving Average indicator.
type EMAConfig struct {
	Period           int
	CrossingInterval int
}

func (cfg EMAConfig) Validate() error {
	if cfg.Period < 1 || cfg.Period > 100 {
		return fmt.Errorf("ema: period must be in [1,100], got %d", cfg.Period)
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("ema: crossing_interval must be in [0,10], got %d", cfg.CrossingInterval)
	}
	return nil
}

// EvaluateEMA mirrors EvaluateSMA using the EMA line; crossing logic is
// shared with SMA per spec.md §4.2.
func EvaluateEMA(candles []market.Candle, cfg EMAConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.Period {
		return None, nil
	}
	line, err := EMA(closes(candles, InputClose), cfg.Period)
	if err != nil {
		return None, err
	}
	last := candles[len(candles)-1]
	if crossingToBuy(line, last, cfg.CrossingInterval, state) {
		return BuyCrossing, nil
	}
	if crossingToSell(line, last, cfg.CrossingInterval, state) {
		return SellCrossing, nil
	}
	return None, nil
}

// RSIConfig parameterizes the Relative Strength Index indicator.
type RSIConfig struct {
	Period           int
	TopLevel         float64
	BottomLevel      float64
	CrossingInterval int
}

func (cfg RSIConfig) Validate() error {
	if cfg.Period < 1 || cfg.Period > 100 {
		return fmt.Errorf("rsi: period must be in [1,100], got %d", cfg.Period)
	}
	if !(cfg.TopLevel > cfg.BottomLevel && cfg.TopLevel > 0 && cfg.TopLevel < 100 && cfg.BottomLevel > 0 && cfg.BottomLevel < 100) {
		return fmt.Errorf("rsi: require 0 < bottom < top < 100, got bottom=%v top=%v", cfg.BottomLevel, cfg.TopLevel)
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("rsi: crossing_interval must be in [0,10], got %d", cfg.CrossingInterval)
	}
	return nil
}

// RSI computes Wilder's Relative Strength Index. avg_loss = 0 yields
// RSI = 100 per the boundary behaviour in spec.md §8.
func RSI(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive")
	}
	if len(values) < period+1 {
		return nil, fmt.Errorf("insufficient data: need %d, got %d", period+1, len(values))
	}
	changes := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		changes[i-1] = values[i] - values[i-1]
	}
	gains := make([]float64, len(changes))
	losses := make([]float64, len(changes))
	for i, change := range changes {
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}
	result := make([]float64, len(changes)-period+1)
	avgGain, avgLoss := 0.0, 0.0
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period; i <= len(changes); i++ {
		if avgLoss == 0 {
			result[i-period] = 100
		} else {
			rs := avgGain / avgLoss
			result[i-period] = 100 - (100 / (1 + rs))
		}
		if i < len(changes) {
			avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
			avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		}
	}
	return result, nil
}

// EvaluateRSI computes RSI and reports an upward crossing of BottomLevel
// as a buy signal, a downward crossing of TopLevel as a sell signal.
func EvaluateRSI(candles []market.Candle, cfg RSIConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.Period+1 {
		return None, nil
	}
	line, err := RSI(closes(candles, InputClose), cfg.Period)
	if err != nil {
		return None, err
	}
	if len(line) < 2 {
		return None, nil
	}
	last, prev := line[len(line)-1], line[len(line)-2]
	if prev <= cfg.BottomLevel && last > cfg.BottomLevel {
		if !crossingDuplicated(line, cfg.CrossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			state.LastBuyPrice, state.HasBuyPrice = last, true
			return BuyCrossing, nil
		}
		return None, nil
	}
	if prev >= cfg.TopLevel && last < cfg.TopLevel {
		if !crossingDuplicated(line, cfg.CrossingInterval, state.LastSellPrice, state.HasSellPrice) {
			state.LastSellPrice, state.HasSellPrice = last, true
			return SellCrossing, nil
		}
	}
	return None, nil
}

// BollingerVariant selects classic threshold-touch triggers or the
// advanced percentage-of-band triggers.
type BollingerVariant int

const (
	BollingerClassic BollingerVariant = iota
	BollingerAdvanced
)

// BollingerConfig parameterizes the Bollinger Bands indicator.
type BollingerConfig struct {
	Period           int
	StdDevs          float64
	Input            InputSelector
	Variant          BollingerVariant
	TopPercentage    float64 // advanced only, [1,100]
	BottomPercentage float64 // advanced only, [1,100]
	CrossingInterval int
}

func (cfg BollingerConfig) Validate() error {
	if cfg.Period < 1 || cfg.Period > 100 {
		return fmt.Errorf("bollinger: period must be in [1,100], got %d", cfg.Period)
	}
	if cfg.StdDevs < 0 {
		return fmt.Errorf("bollinger: standard_deviations must be non-negative")
	}
	if cfg.Variant == BollingerAdvanced {
		if cfg.TopPercentage < 1 || cfg.TopPercentage > 100 || cfg.BottomPercentage < 1 || cfg.BottomPercentage > 100 {
			return fmt.Errorf("bollinger: top/bottom percentage must be in [1,100]")
		}
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("bollinger: crossing_interval must be in [0,10], got %d", cfg.CrossingInterval)
	}
	return nil
}

// BollingerLines holds the upper/middle/lower lines for one evaluation.
type BollingerLines struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Bollinger computes classic Bollinger Bands: middle = SMA(values,
// period), top/bottom = middle +/- stdDevs * population-stddev(window).
func Bollinger(values []float64, period int, stdDevs float64) (BollingerLines, error) {
	if period <= 0 {
		return BollingerLines{}, fmt.Errorf("period must be positive")
	}
	if len(values) < period {
		return BollingerLines{}, fmt.Errorf("insufficient data")
	}
	middle, err := SMA(values, period)
	if err != nil {
		return BollingerLines{}, err
	}
	upper := make([]float64, len(middle))
	lower := make([]float64, len(middle))
	for i := range middle {
		window := values[i : i+period]
		variance := 0.0
		for _, v := range window {
			d := v - middle[i]
			variance += d * d
		}
		variance /= float64(period)
		sd := math.Sqrt(variance)
		upper[i] = middle[i] + stdDevs*sd
		lower[i] = middle[i] - stdDevs*sd
	}
	return BollingerLines{Upper: upper, Middle: middle, Lower: lower}, nil
}

// EvaluateBollinger evaluates the classic or advanced-percentage variant
// against the latest candle's selected field. std_dev = 0 collapses
// upper=middle=lower so no crossing ever fires, per spec.md §8.
func EvaluateBollinger(candles []market.Candle, cfg BollingerConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.Period {
		return None, nil
	}
	if cfg.StdDevs == 0 {
		return None, nil
	}
	lines, err := Bollinger(closes(candles, cfg.Input), cfg.Period, cfg.StdDevs)
	if err != nil {
		return None, err
	}
	n := len(lines.Middle)
	field := Select(candles[len(candles)-1], cfg.Input)
	top, mid, bot := lines.Upper[n-1], lines.Middle[n-1], lines.Lower[n-1]
	if cfg.Variant == BollingerAdvanced {
		top = mid + (top-mid)*cfg.TopPercentage/100
		bot = mid - (mid-bot)*cfg.BottomPercentage/100
	}
	if field <= bot {
		if !crossingDuplicated(lines.Lower, cfg.CrossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			state.LastBuyPrice, state.HasBuyPrice = bot, true
			return BuyCrossing, nil
		}
		return None, nil
	}
	if field >= top {
		if !crossingDuplicated(lines.Upper, cfg.CrossingInterval, state.LastSellPrice, state.HasSellPrice) {
			state.LastSellPrice, state.HasSellPrice = top, true
			return SellCrossing, nil
		}
	}
	return None, nil
}

// MovingAverageType selects which moving average MA-Crossing compares.
type MovingAverageType int

const (
	MovingAverageSMA MovingAverageType = iota
	MovingAverageEMA
)

// MACrossingConfig parameterizes the Moving-Average Crossing indicator.
type MACrossingConfig struct {
	SmallerPeriod    int
	BiggerPeriod     int
	Type             MovingAverageType
	CrossingInterval int
}

func (cfg MACrossingConfig) Validate() error {
	if cfg.SmallerPeriod < 1 || cfg.SmallerPeriod > 100 || cfg.BiggerPeriod < 1 || cfg.BiggerPeriod > 100 {
		return fmt.Errorf("ma_crossing: periods must be in [1,100]")
	}
	if cfg.SmallerPeriod >= cfg.BiggerPeriod {
		return fmt.Errorf("ma_crossing: smaller_period must be < bigger_period")
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("ma_crossing: crossing_interval must be in [0,10]")
	}
	return nil
}

func movingAverage(values []float64, period int, t MovingAverageType) ([]float64, error) {
	if t == MovingAverageEMA {
		return EMA(values, period)
	}
	return SMA(values, period)
}

// EvaluateMACrossing fires a buy when the shorter MA crosses above the
// longer on the last point, sell when it crosses below.
func EvaluateMACrossing(candles []market.Candle, cfg MACrossingConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.BiggerPeriod {
		return None, nil
	}
	values := closes(candles, InputClose)
	small, err := movingAverage(values, cfg.SmallerPeriod, cfg.Type)
	if err != nil {
		return None, err
	}
	big, err := movingAverage(values, cfg.BiggerPeriod, cfg.Type)
	if err != nil {
		return None, err
	}
	offset := len(small) - len(big)
	small = small[offset:]
	if len(small) < 2 || len(big) < 2 {
		return None, nil
	}
	diff := make([]float64, len(small))
	for i := range small {
		diff[i] = small[i] - big[i]
	}
	n := len(diff)
	last, prev := diff[n-1], diff[n-2]
	if prev <= 0 && last > 0 {
		if !crossingDuplicated(diff, cfg.CrossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			state.LastBuyPrice, state.HasBuyPrice = last, true
			return BuyCrossing, nil
		}
		return None, nil
	}
	if prev >= 0 && last < 0 {
		if !crossingDuplicated(diff, cfg.CrossingInterval, state.LastSellPrice, state.HasSellPrice) {
			state.LastSellPrice, state.HasSellPrice = last, true
			return SellCrossing, nil
		}
	}
	return None, nil
}

// StochasticVariant selects Slow, Quick or Full smoothing.
type StochasticVariant int

const (
	StochasticQuick StochasticVariant = iota
	StochasticSlow
	StochasticFull
)

// StochasticConfig parameterizes the Stochastic Oscillator.
type StochasticConfig struct {
	PeriodsForClassicLine int
	TopLevel              float64
	BottomLevel           float64
	CrossingInterval      int
	Variant               StochasticVariant
	SmoothFastPeriod      int // Full only, [1,7]
	SmoothSlowPeriod      int // Full only, [1,7]
}

func (cfg StochasticConfig) Validate() error {
	if cfg.PeriodsForClassicLine < 1 || cfg.PeriodsForClassicLine > 30 {
		return fmt.Errorf("stochastic: periods_for_classic_line must be in [1,30]")
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("stochastic: crossing_interval must be in [0,10]")
	}
	if cfg.Variant == StochasticFull {
		if cfg.SmoothFastPeriod < 1 || cfg.SmoothFastPeriod > 7 || cfg.SmoothSlowPeriod < 1 || cfg.SmoothSlowPeriod > 7 {
			return fmt.Errorf("stochastic: smooth periods must be in [1,7] for Full variant")
		}
	}
	return nil
}

// classicK computes %K = 100 * (close - low_n) / (high_n - low_n) over a
// rolling window of n candles, one point per valid window.
func classicK(candles []market.Candle, n int) []float64 {
	if len(candles) < n {
		return nil
	}
	result := make([]float64, len(candles)-n+1)
	for i := 0; i+n <= len(candles); i++ {
		window := candles[i : i+n]
		low, high := window[0].Low, window[0].High
		for _, c := range window {
			if c.Low < low {
				low = c.Low
			}
			if c.High > high {
				high = c.High
			}
		}
		closeP := window[n-1].Close
		if high == low {
			result[i] = 0
		} else {
			result[i] = 100 * (closeP - low) / (high - low)
		}
	}
	return result
}

// EvaluateStochastic computes %K/%D per the selected variant and fires a
// buy when %K crosses above %D while %K < BottomLevel, sell when %K
// crosses below %D while %K > TopLevel.
func EvaluateStochastic(candles []market.Candle, cfg StochasticConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.PeriodsForClassicLine {
		return None, nil
	}
	k := classicK(candles, cfg.PeriodsForClassicLine)

	fastSmooth, slowSmooth := 3, 3
	if cfg.Variant == StochasticFull {
		fastSmooth, slowSmooth = cfg.SmoothFastPeriod, cfg.SmoothSlowPeriod
	}

	var kLine, dLine []float64
	switch cfg.Variant {
	case StochasticSlow:
		kSlow, err := SMA(k, fastSmooth)
		if err != nil {
			return None, nil
		}
		dSlow, err := SMA(kSlow, slowSmooth)
		if err != nil {
			return None, nil
		}
		kLine, dLine = kSlow[len(kSlow)-len(dSlow):], dSlow
	case StochasticFull:
		kSmoothed, err := SMA(k, fastSmooth)
		if err != nil {
			return None, nil
		}
		dSmoothed, err := SMA(kSmoothed, slowSmooth)
		if err != nil {
			return None, nil
		}
		kLine, dLine = kSmoothed[len(kSmoothed)-len(dSmoothed):], dSmoothed
	default: // Quick
		d, err := SMA(k, 3)
		if err != nil {
			return None, nil
		}
		kLine, dLine = k[len(k)-len(d):], d
	}

	if len(kLine) < 2 || len(dLine) < 2 {
		return None, nil
	}
	diff := make([]float64, len(kLine))
	for i := range kLine {
		diff[i] = kLine[i] - dLine[i]
	}
	n := len(diff)
	last := kLine[n-1]
	if diff[n-2] <= 0 && diff[n-1] > 0 && last < cfg.BottomLevel {
		if !crossingDuplicated(diff, cfg.CrossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			state.LastBuyPrice, state.HasBuyPrice = diff[n-1], true
			return BuyCrossing, nil
		}
		return None, nil
	}
	if diff[n-2] >= 0 && diff[n-1] < 0 && last > cfg.TopLevel {
		if !crossingDuplicated(diff, cfg.CrossingInterval, state.LastSellPrice, state.HasSellPrice) {
			state.LastSellPrice, state.HasSellPrice = diff[n-1], true
			return SellCrossing, nil
		}
	}
	return None, nil
}

// MACDResult holds the three MACD lines.
type MACDResult struct {
	MACD      []float64
	Signal    []float64
	Histogram []float64
}

// MACD computes the three classic MACD lines over values. EvaluateMACD
// turns its histogram into a crossing Signal the same way the Evaluate
// functions above do with their lines; strategy.Condition calls
// EvaluateMACD for KindMACD.
func MACD(values []float64, fastPeriod, slowPeriod, signalPeriod int) (*MACDResult, error) {
	if fastPeriod >= slowPeriod {
		return nil, fmt.Errorf("fast period must be less than slow period")
	}
	if len(values) < slowPeriod {
		return nil, fmt.Errorf("insufficient data")
	}
	fastEMA, err := EMA(values, fastPeriod)
	if err != nil {
		return nil, err
	}
	slowEMA, err := EMA(values, slowPeriod)
	if err != nil {
		return nil, err
	}
	offset := slowPeriod - fastPeriod
	fastEMA = fastEMA[offset:]
	macdLine := make([]float64, len(slowEMA))
	for i := range slowEMA {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine, err := EMA(macdLine, signalPeriod)
	if err != nil {
		return nil, err
	}
	macdTrimmed := macdLine[len(macdLine)-len(signalLine):]
	histogram := make([]float64, len(signalLine))
	for i := range signalLine {
		histogram[i] = macdTrimmed[i] - signalLine[i]
	}
	return &MACDResult{MACD: macdTrimmed, Signal: signalLine, Histogram: histogram}, nil
}

// MACDConfig parameterizes the MACD indicator for use as a strategy
// condition: a buy/sell crossing on the histogram (MACD line minus signal
// line) going through zero, the conventional MACD trading rule.
type MACDConfig struct {
	FastPeriod       int
	SlowPeriod       int
	SignalPeriod     int
	CrossingInterval int
}

func (cfg MACDConfig) Validate() error {
	if cfg.FastPeriod < 1 || cfg.SlowPeriod < 1 || cfg.SignalPeriod < 1 {
		return fmt.Errorf("macd: periods must be positive")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		return fmt.Errorf("macd: fast_period must be < slow_period")
	}
	if cfg.CrossingInterval < 0 || cfg.CrossingInterval > 10 {
		return fmt.Errorf("macd: crossing_interval must be in [0,10], got %d", cfg.CrossingInterval)
	}
	return nil
}

// EvaluateMACD fires a buy when the histogram crosses above zero, sell
// when it crosses below, with the same duplicate-crossing suppression as
// the other oscillator conditions.
func EvaluateMACD(candles []market.Candle, cfg MACDConfig, state *CrossingState) (Signal, error) {
	if err := cfg.Validate(); err != nil {
		return None, err
	}
	if len(candles) < cfg.SlowPeriod+cfg.SignalPeriod {
		return None, nil
	}
	values := closes(candles, InputClose)
	result, err := MACD(values, cfg.FastPeriod, cfg.SlowPeriod, cfg.SignalPeriod)
	if err != nil {
		return None, nil
	}
	if len(result.Histogram) < 2 {
		return None, nil
	}
	n := len(result.Histogram)
	last, prev := result.Histogram[n-1], result.Histogram[n-2]
	if prev <= 0 && last > 0 {
		if !crossingDuplicated(result.Histogram, cfg.CrossingInterval, state.LastBuyPrice, state.HasBuyPrice) {
			state.LastBuyPrice, state.HasBuyPrice = last, true
			return BuyCrossing, nil
		}
		return None, nil
	}
	if prev >= 0 && last < 0 {
		if !crossingDuplicated(result.Histogram, cfg.CrossingInterval, state.LastSellPrice, state.HasSellPrice) {
			state.LastSellPrice, state.HasSellPrice = last, true
			return SellCrossing, nil
		}
	}
	return None, nil
}
