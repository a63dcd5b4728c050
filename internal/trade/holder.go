// Package trade holds the in-memory per-configuration trading state:
// open buy/sell orders, accumulated profit groups awaiting a matching
// sell, and the sell-to-buy order matching set. Grounded on
// trade_orders_holder.h/.cpp: a std::set<MarketOrder> ordered by uuid
// becomes a Go map keyed by uuid plus a sorted key slice for ordered
// iteration.
package trade

import (
	"fmt"
	"sort"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

// Holder is the per-trade-configuration state described in spec.md §4.5.
type Holder struct {
	buying  map[string]market.MarketOrder
	selling map[string]market.MarketOrder

	ordersProfit map[currency.Currency]*OrdersProfit
	matching     *market.OrderMatching
}

// OrdersProfit is the set of filled BUY orders for one currency that are
// still awaiting a matching SELL, per spec.md §4.4/§4.5.
type OrdersProfit struct {
	Currency currency.Currency
	orders   map[string]market.MarketOrder
}

// NewOrdersProfit creates an empty profit group for c.
func NewOrdersProfit(c currency.Currency) *OrdersProfit {
	return &OrdersProfit{Currency: c, orders: make(map[string]market.MarketOrder)}
}

func (p *OrdersProfit) Add(o market.MarketOrder)    { p.orders[o.UUID] = o }
func (p *OrdersProfit) Remove(o market.MarketOrder) { delete(p.orders, o.UUID) }
func (p *OrdersProfit) Contains(o market.MarketOrder) bool {
	_, ok := p.orders[o.UUID]
	return ok
}
func (p *OrdersProfit) Len() int { return len(p.orders) }

// ForEach iterates the group's orders in uuid order.
func (p *OrdersProfit) ForEach(fn func(market.MarketOrder)) {
	keys := make([]string, 0, len(p.orders))
	for k := range p.orders {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(p.orders[k])
	}
}

// New creates an empty Holder. The matching set is fixed at
// SELL-matched-to-BUY, mirroring the C++ default member initializer
// orderMatching_{SELL, BUY}.
func New() *Holder {
	return &Holder{
		buying:       make(map[string]market.MarketOrder),
		selling:      make(map[string]market.MarketOrder),
		ordersProfit: make(map[currency.Currency]*OrdersProfit),
		matching:     market.NewOrderMatching(market.Sell, market.Buy),
	}
}

func (h *Holder) AddBuyOrder(o market.MarketOrder)    { h.buying[o.UUID] = o }
func (h *Holder) RemoveBuyOrder(o market.MarketOrder) { delete(h.buying, o.UUID) }
func (h *Holder) AddSellOrder(o market.MarketOrder)   { h.selling[o.UUID] = o }
func (h *Holder) RemoveSellOrder(o market.MarketOrder) {
	delete(h.selling, o.UUID)
}

func (h *Holder) ContainsBuyOrder(o market.MarketOrder) bool {
	_, ok := h.buying[o.UUID]
	return ok
}

func (h *Holder) ContainsSellOrder(o market.MarketOrder) bool {
	_, ok := h.selling[o.UUID]
	return ok
}

// ForEachBuyOrder iterates open buys in uuid order.
func (h *Holder) ForEachBuyOrder(fn func(market.MarketOrder)) {
	forEachOrdered(h.buying, fn)
}

// ForEachSellOrder iterates open sells in uuid order.
func (h *Holder) ForEachSellOrder(fn func(market.MarketOrder)) {
	forEachOrdered(h.selling, fn)
}

func forEachOrdered(set map[string]market.MarketOrder, fn func(market.MarketOrder)) {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fn(set[k])
	}
}

func (h *Holder) BuyOrdersCount() int  { return len(h.buying) }
func (h *Holder) SellOrdersCount() int { return len(h.selling) }

// BuyOrdersDiff returns the orders present in the local buying set but
// absent from remote — local-minus-remote, keyed by uuid. Per spec.md
// §4.5, this detects buys the exchange no longer reports as open, which
// implies filled or canceled.
func (h *Holder) BuyOrdersDiff(remote []market.MarketOrder) []market.MarketOrder {
	return diff(h.buying, remote)
}

// SellOrdersDiff is the sell-side analogue of BuyOrdersDiff.
func (h *Holder) SellOrdersDiff(remote []market.MarketOrder) []market.MarketOrder {
	return diff(h.selling, remote)
}

func diff(local map[string]market.MarketOrder, remote []market.MarketOrder) []market.MarketOrder {
	remoteSet := make(map[string]struct{}, len(remote))
	for _, o := range remote {
		remoteSet[o.UUID] = struct{}{}
	}
	var result []market.MarketOrder
	keys := make([]string, 0, len(local))
	for k := range local {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := remoteSet[k]; !ok {
			result = append(result, local[k])
		}
	}
	return result
}

// BuyOrderDatabaseID returns the persisted db_id of a still-open buy
// order, or an error if it is not held.
func (h *Holder) BuyOrderDatabaseID(o market.MarketOrder) (int64, error) {
	if stored, ok := h.buying[o.UUID]; ok {
		return stored.DBID, nil
	}
	return 0, fmt.Errorf("trade: buy order %s not found", o.UUID)
}

// SellOrderDatabaseID is the sell-side analogue of BuyOrderDatabaseID.
func (h *Holder) SellOrderDatabaseID(o market.MarketOrder) (int64, error) {
	if stored, ok := h.selling[o.UUID]; ok {
		return stored.DBID, nil
	}
	return 0, fmt.Errorf("trade: sell order %s not found", o.UUID)
}

// AddOrdersProfit registers the profit group for c, replacing any
// existing group.
func (h *Holder) AddOrdersProfit(c currency.Currency, p *OrdersProfit) {
	h.ordersProfit[c] = p
}

func (h *Holder) ContainsOrdersProfit(c currency.Currency) bool {
	_, ok := h.ordersProfit[c]
	return ok
}

// OrdersProfitFor returns the profit group for c, creating it on first
// access so callers can always Add to it.
func (h *Holder) OrdersProfitFor(c currency.Currency) *OrdersProfit {
	p, ok := h.ordersProfit[c]
	if !ok {
		p = NewOrdersProfit(c)
		h.ordersProfit[c] = p
	}
	return p
}

// Matching returns the sell-to-buy order matching set.
func (h *Holder) Matching() *market.OrderMatching { return h.matching }

// CoinInTradingCount sums price*quantity across every open buy, every
// sell's matched buy counterpart, and every order still parked in a
// profit group — the base-currency amount currently committed to
// trades, per spec.md invariant 4.
func (h *Holder) CoinInTradingCount() float64 {
	total := 0.0
	for _, o := range h.buying {
		total += o.Price * o.Quantity
	}
	for _, sell := range h.selling {
		if matchedBuy, ok := h.matching.MatchOf(sell); ok {
			total += matchedBuy.Price * matchedBuy.Quantity
		}
	}
	for _, p := range h.ordersProfit {
		p.ForEach(func(o market.MarketOrder) {
			total += o.Price * o.Quantity
		})
	}
	return total
}

// ProfitGroupCount returns the number of filled buys across every
// currency's profit group, awaiting a matching sell.
func (h *Holder) ProfitGroupCount() int {
	total := 0
	for _, p := range h.ordersProfit {
		total += p.Len()
	}
	return total
}

// Clear resets every set, used between full reconciliation passes.
func (h *Holder) Clear() {
	h.buying = make(map[string]market.MarketOrder)
	h.selling = make(map[string]market.MarketOrder)
	h.ordersProfit = make(map[currency.Currency]*OrdersProfit)
	h.matching = market.NewOrderMatching(h.matching.FromSide, h.matching.ToSide)
}
