// Package market defines the value types that flow between the exchange
// capability, the indicator engine, and the persistent store: candles,
// orders, ticks and lot sizes.
package market

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tradecore/internal/currency"
)

// Interval is an ordered candle interval, serialised per exchange by the
// adapter that requests it.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
)

func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1m:
		return time.Minute
	case Interval5m:
		return 5 * time.Minute
	case Interval15m:
		return 15 * time.Minute
	case Interval1h:
		return time.Hour
	case Interval4h:
		return 4 * time.Hour
	case Interval1d:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Candle is an OHLCV snapshot with second-granularity timestamp.
// Equality is componentwise.
type Candle struct {
	Timestamp time.Time
	Open      float64
	Close     float64
	Low       float64
	High      float64
	Volume    float64
}

// Equal reports componentwise equality; timestamps are compared at second
// granularity as required by the data model.
func (c Candle) Equal(o Candle) bool {
	return c.Timestamp.Unix() == o.Timestamp.Unix() &&
		c.Open == o.Open && c.Close == o.Close &&
		c.Low == o.Low && c.High == o.High && c.Volume == o.Volume
}

// ByCloseAsc sorts candles by close price ascending.
type ByCloseAsc []Candle

func (b ByCloseAsc) Len() int           { return len(b) }
func (b ByCloseAsc) Less(i, j int) bool { return b[i].Close < b[j].Close }
func (b ByCloseAsc) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// ByCloseDesc sorts candles by close price descending.
type ByCloseDesc []Candle

func (b ByCloseDesc) Len() int           { return len(b) }
func (b ByCloseDesc) Less(i, j int) bool { return b[i].Close > b[j].Close }
func (b ByCloseDesc) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// CurrencyTick is a snapshot of best bid/ask for a pair. The exchange
// response is expected to hold ask >= bid; this is not locally enforced.
type CurrencyTick struct {
	Bid    float64
	Ask    float64
	Base   currency.Currency
	Quoted currency.Currency
}

// LotSize bounds and steps the quantity an exchange will accept. The zero
// value (all fields 0) means "no constraint"; callers must treat it as
// absent rather than a degenerate [0,0] range.
type LotSize struct {
	MinQty   float64
	MaxQty   float64
	StepSize float64
}

// Empty reports whether this lot holder carries no constraint.
func (l LotSize) Empty() bool {
	return l.MinQty == 0 && l.MaxQty == 0 && l.StepSize == 0
}

// Round floors qty to the nearest StepSize and clamps it into
// [MinQty, MaxQty]. A no-op when l is Empty.
func (l LotSize) Round(qty float64) float64 {
	if l.Empty() {
		return qty
	}
	d := decimal.NewFromFloat(qty)
	if l.StepSize > 0 {
		step := decimal.NewFromFloat(l.StepSize)
		steps := d.Div(step).Floor()
		d = steps.Mul(step)
	}
	if l.MinQty > 0 {
		if min := decimal.NewFromFloat(l.MinQty); d.LessThan(min) {
			d = min
		}
	}
	if l.MaxQty > 0 {
		if max := decimal.NewFromFloat(l.MaxQty); d.GreaterThan(max) {
			d = max
		}
	}
	f, _ := d.Float64()
	return f
}

// Side is BUY or SELL.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// CoinPrecision is the fixed decimal precision orders are formatted with
// on the wire, except where an adapter overrides it (Huobi per-pair).
const CoinPrecision = 8

// FormatCoin renders v with CoinPrecision fixed decimal places.
func FormatCoin(v float64) string {
	return FormatCoinWithPrecision(v, CoinPrecision)
}

// FormatCoinWithPrecision renders v with a caller-supplied fixed
// precision, used by adapters (Huobi) that deviate from CoinPrecision.
func FormatCoinWithPrecision(v float64, precision int) string {
	return decimal.NewFromFloat(v).StringFixed(int32(precision))
}

// MarketOrder is the canonical unit of work. Orders are equal iff every
// field below matches; they hash by UUID.
type MarketOrder struct {
	DBID      int64
	UUID      string
	Base      currency.Currency
	Quoted    currency.Currency
	Side      Side
	Exchange  currency.Exchange
	Quantity  float64
	Price     float64
	OpenedAt  time.Time
	Canceled  bool
}

// NewClientUUID returns a fresh random uuid string. MarketOrder has no
// separate correlation-id field; the exchangetest fake uses this as the
// UUID of the orders it places.
func NewClientUUID() string {
	return uuid.New().String()
}

// Equal reports the componentwise equality the data model requires.
func (o MarketOrder) Equal(p MarketOrder) bool {
	return o.DBID == p.DBID && o.UUID == p.UUID && o.Base == p.Base &&
		o.Quoted == p.Quoted && o.Side == p.Side && o.Exchange == p.Exchange &&
		o.Quantity == p.Quantity && o.Price == p.Price &&
		o.OpenedAt.Equal(p.OpenedAt) && o.Canceled == p.Canceled
}

func (o MarketOrder) String() string {
	return fmt.Sprintf("%s %s/%s qty=%s price=%s uuid=%s",
		o.Side, o.Base, o.Quoted, FormatCoin(o.Quantity), FormatCoin(o.Price), o.UUID)
}

// ByUUID orders a set of MarketOrders by uuid, matching the trade-state
// holder's ordered-set requirement.
type ByUUID []MarketOrder

func (b ByUUID) Len() int           { return len(b) }
func (b ByUUID) Less(i, j int) bool { return b[i].UUID < b[j].UUID }
func (b ByUUID) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// OrderMatching records (from_order, to_order) pairs for a fixed
// (from_side, to_side), in this core always (SELL, BUY): a sell opened to
// close out a prior buy. Each from-order appears at most once.
type OrderMatching struct {
	FromSide Side
	ToSide   Side
	pairs    map[string]matchPair // keyed by from.UUID
}

type matchPair struct {
	From MarketOrder
	To   MarketOrder
}

// NewOrderMatching mirrors the original's OrderMatching(fromSide, toSide)
// constructor; in this core fromSide is always Sell, toSide always Buy.
func NewOrderMatching(fromSide, toSide Side) *OrderMatching {
	return &OrderMatching{FromSide: fromSide, ToSide: toSide, pairs: make(map[string]matchPair)}
}

// Add records a matching, replacing any existing entry for the same
// from-order.
func (m *OrderMatching) Add(from, to MarketOrder) {
	m.pairs[from.UUID] = matchPair{From: from, To: to}
}

// Remove deletes the matching for the given from-order, if any.
func (m *OrderMatching) Remove(from MarketOrder) {
	delete(m.pairs, from.UUID)
}

// MatchOf returns the to-order matched to from, and whether it was found.
func (m *OrderMatching) MatchOf(from MarketOrder) (MarketOrder, bool) {
	p, ok := m.pairs[from.UUID]
	return p.To, ok
}

// ForEach calls fn for every recorded (from, to) pair, in UUID order.
func (m *OrderMatching) ForEach(fn func(from, to MarketOrder)) {
	keys := make([]string, 0, len(m.pairs))
	for k := range m.pairs {
		keys = append(keys, k)
	}
	sortStrings(keys)
	for _, k := range keys {
		p := m.pairs[k]
		fn(p.From, p.To)
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Len reports how many matchings are recorded.
func (m *OrderMatching) Len() int { return len(m.pairs) }
