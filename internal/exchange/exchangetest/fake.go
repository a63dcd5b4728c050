// Package exchangetest provides an in-memory exchange.Exchange fake for
// engine tests: it fills orders immediately against a settable mid
// price with configurable slippage and fee, and tracks balances and
// open orders per currency pair. Grounded on the teacher's
// internal/broker/paper.go (mutex-guarded in-memory account, uuid-
// tagged orders, slippage/fee simulation), adapted from a standalone
// paper-trading broker into an exchange.Exchange implementation so the
// same simulated-fill logic now exercises the live order lifecycle
// code in internal/engine instead of a separate backtest loop.
package exchangetest

import (
	"context"
	"fmt"
	"sync"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

// Fake simulates one exchange venue in memory.
type Fake struct {
	mu sync.Mutex

	tag currency.Exchange

	balances map[currency.Currency]float64
	prices   map[pairKey]float64
	lotSizes map[pairKey]market.LotSize
	orders   map[string]market.MarketOrder // open orders by uuid
	filled   map[string]market.MarketOrder // filled orders by uuid, retained for GetAccountOrder

	takerFeeRate float64
	slippageBps  float64

	cancelRequests map[string]bool
}

type pairKey struct {
	base, quoted currency.Currency
}

// New creates an empty Fake for tag. Call SetPrice/SetBalance/SetLotSize
// before driving it through an engine.Worker.
func New(tag currency.Exchange) *Fake {
	return &Fake{
		tag:            tag,
		balances:       make(map[currency.Currency]float64),
		prices:         make(map[pairKey]float64),
		lotSizes:       make(map[pairKey]market.LotSize),
		orders:         make(map[string]market.MarketOrder),
		filled:         make(map[string]market.MarketOrder),
		cancelRequests: make(map[string]bool),
	}
}

// SetBalance sets the available balance of c.
func (f *Fake) SetBalance(c currency.Currency, amount float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[c] = amount
}

// SetPrice sets the mid price used for both bid and ask on the pair,
// and as the candle close/open/high/low for GetCandles.
func (f *Fake) SetPrice(base, quoted currency.Currency, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[pairKey{base, quoted}] = price
}

// SetLotSize configures the rounding/bounds GetLotSize reports for the pair.
func (f *Fake) SetLotSize(base, quoted currency.Currency, lot market.LotSize) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lotSizes[pairKey{base, quoted}] = lot
}

// SetFees configures the taker fee rate (fraction) and slippage in basis
// points applied to every fill.
func (f *Fake) SetFees(takerFeeRate, slippageBps float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.takerFeeRate = takerFeeRate
	f.slippageBps = slippageBps
}

func (f *Fake) Tag() currency.Exchange { return f.tag }

func (f *Fake) SetCredentials(apiKey, secretKey string) {}

func (f *Fake) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[pairKey{base, quoted}]
	if !ok {
		return market.CurrencyTick{}, fmt.Errorf("exchangetest: no price set for %s/%s", base, quoted)
	}
	return market.CurrencyTick{Bid: price, Ask: price, Base: base, Quoted: quoted}, nil
}

func (f *Fake) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[pairKey{base, quoted}]
	if !ok {
		return nil, fmt.Errorf("exchangetest: no price set for %s/%s", base, quoted)
	}
	return []market.Candle{{Open: price, Close: price, High: price, Low: price, Volume: 0}}, nil
}

func (f *Fake) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[c], nil
}

func (f *Fake) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return f.openOrdersFor(base, quoted)
}

func (f *Fake) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return f.openOrdersFor(base, quoted)
}

func (f *Fake) openOrdersFor(base, quoted currency.Currency) ([]market.MarketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []market.MarketOrder
	for _, o := range f.orders {
		if o.Base == base && o.Quoted == quoted {
			result = append(result, o)
		}
	}
	return result, nil
}

func (f *Fake) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[uuid]; ok {
		return o, nil
	}
	if o, ok := f.filled[uuid]; ok {
		return o, nil
	}
	return market.MarketOrder{}, fmt.Errorf("exchangetest: order %s not found", uuid)
}

func (f *Fake) PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return f.place(base, quoted, market.Buy, qty, rate)
}

func (f *Fake) PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return f.place(base, quoted, market.Sell, qty, rate)
}

// place fills immediately: every order in this fake is a market fill at
// the configured price plus slippage, mirroring the teacher's
// executeMarketOrder. Orders land in the filled set right away so a
// following GetAccountOpenOrders call will not see them, exercising the
// engine's reconcile-detects-fill path on the very next tick.
func (f *Fake) place(base, quoted currency.Currency, side market.Side, qty, rate float64) (market.MarketOrder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if qty <= 0 {
		return market.MarketOrder{}, fmt.Errorf("exchangetest: quantity must be positive")
	}

	slippage := rate * (f.slippageBps / 10000.0)
	fillPrice := rate
	if side == market.Buy {
		fillPrice += slippage
	} else {
		fillPrice -= slippage
	}

	order := market.MarketOrder{
		UUID:     market.NewClientUUID(),
		Base:     base,
		Quoted:   quoted,
		Side:     side,
		Exchange: f.tag,
		Quantity: qty,
		Price:    fillPrice,
	}

	orderValue := fillPrice * qty
	fee := orderValue * f.takerFeeRate
	if side == market.Buy {
		cost := orderValue + fee
		if cost > f.balances[quoted] {
			return market.MarketOrder{}, fmt.Errorf("exchangetest: insufficient balance: need %.8f, have %.8f", cost, f.balances[quoted])
		}
		f.balances[quoted] -= cost
		f.balances[base] += qty
	} else {
		if qty > f.balances[base] {
			return market.MarketOrder{}, fmt.Errorf("exchangetest: insufficient balance: need %.8f, have %.8f", qty, f.balances[base])
		}
		f.balances[base] -= qty
		f.balances[quoted] += orderValue - fee
	}

	f.filled[order.UUID] = order
	return order, nil
}

// Cancel marks a still-open order canceled. Since place() fills
// synchronously, this only matters for orders a test has injected
// directly into the open set via InjectOpenOrder.
func (f *Fake) Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[uuid]; ok {
		delete(f.orders, uuid)
		o.Canceled = true
		f.filled[uuid] = o
		return true, nil
	}
	return false, nil
}

func (f *Fake) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lotSizes[pairKey{base, quoted}], nil
}

// InjectOpenOrder seeds an order into the open set directly, for tests
// that need to drive the engine's reconcile path against a
// still-pending order rather than an immediate fill.
func (f *Fake) InjectOpenOrder(o market.MarketOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.UUID] = o
}
