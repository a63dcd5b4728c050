package trade

import (
	"testing"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

func buyOrder(uuid string, price, qty float64) market.MarketOrder {
	return market.MarketOrder{UUID: uuid, Side: market.Buy, Price: price, Quantity: qty, Base: currency.BTC, Quoted: currency.USDT}
}

func sellOrder(uuid string, price, qty float64) market.MarketOrder {
	return market.MarketOrder{UUID: uuid, Side: market.Sell, Price: price, Quantity: qty, Base: currency.BTC, Quoted: currency.USDT}
}

func TestHolderBuySellLifecycle(t *testing.T) {
	h := New()
	b := buyOrder("buy-1", 100, 1)
	h.AddBuyOrder(b)
	if !h.ContainsBuyOrder(b) {
		t.Errorf("buy order should be held after AddBuyOrder")
	}
	if h.BuyOrdersCount() != 1 {
		t.Errorf("BuyOrdersCount() = %d, want 1", h.BuyOrdersCount())
	}
	h.RemoveBuyOrder(b)
	if h.ContainsBuyOrder(b) {
		t.Errorf("buy order should be gone after RemoveBuyOrder")
	}
	if h.BuyOrdersCount() != 0 {
		t.Errorf("BuyOrdersCount() = %d, want 0", h.BuyOrdersCount())
	}

	s := sellOrder("sell-1", 110, 1)
	h.AddSellOrder(s)
	if !h.ContainsSellOrder(s) {
		t.Errorf("sell order should be held after AddSellOrder")
	}
	if h.SellOrdersCount() != 1 {
		t.Errorf("SellOrdersCount() = %d, want 1", h.SellOrdersCount())
	}
}

func TestHolderForEachOrdersByUUID(t *testing.T) {
	h := New()
	h.AddBuyOrder(buyOrder("c", 1, 1))
	h.AddBuyOrder(buyOrder("a", 1, 1))
	h.AddBuyOrder(buyOrder("b", 1, 1))

	var order []string
	h.ForEachBuyOrder(func(o market.MarketOrder) {
		order = append(order, o.UUID)
	})
	want := []string{"a", "b", "c"}
	for i, uuid := range want {
		if order[i] != uuid {
			t.Errorf("ForEachBuyOrder order[%d] = %q, want %q", i, order[i], uuid)
		}
	}
}

func TestHolderBuyOrdersDiff(t *testing.T) {
	h := New()
	h.AddBuyOrder(buyOrder("still-open", 1, 1))
	h.AddBuyOrder(buyOrder("filled-or-canceled", 1, 1))

	remote := []market.MarketOrder{buyOrder("still-open", 1, 1)}
	diffed := h.BuyOrdersDiff(remote)
	if len(diffed) != 1 || diffed[0].UUID != "filled-or-canceled" {
		t.Errorf("BuyOrdersDiff() = %v, want [filled-or-canceled]", diffed)
	}
}

func TestHolderBuyOrderDatabaseID(t *testing.T) {
	h := New()
	o := buyOrder("buy-1", 1, 1)
	o.DBID = 42
	h.AddBuyOrder(o)

	id, err := h.BuyOrderDatabaseID(o)
	if err != nil {
		t.Fatalf("BuyOrderDatabaseID returned error: %v", err)
	}
	if id != 42 {
		t.Errorf("BuyOrderDatabaseID() = %d, want 42", id)
	}

	if _, err := h.BuyOrderDatabaseID(buyOrder("unknown", 1, 1)); err == nil {
		t.Errorf("expected error for an order not held")
	}
}

func TestOrdersProfitLifecycle(t *testing.T) {
	p := NewOrdersProfit(currency.BTC)
	o := buyOrder("buy-1", 100, 1)
	if p.Contains(o) {
		t.Errorf("empty group should not contain any order")
	}
	p.Add(o)
	if !p.Contains(o) {
		t.Errorf("group should contain order after Add")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
	p.Remove(o)
	if p.Contains(o) || p.Len() != 0 {
		t.Errorf("group should be empty after Remove")
	}
}

func TestHolderOrdersProfitForCreatesOnFirstAccess(t *testing.T) {
	h := New()
	if h.ContainsOrdersProfit(currency.ETH) {
		t.Errorf("a fresh Holder should not contain a profit group for ETH")
	}
	p := h.OrdersProfitFor(currency.ETH)
	p.Add(buyOrder("buy-1", 1, 1))
	if !h.ContainsOrdersProfit(currency.ETH) {
		t.Errorf("OrdersProfitFor should register the group on first access")
	}
	if h.ProfitGroupCount() != 1 {
		t.Errorf("ProfitGroupCount() = %d, want 1", h.ProfitGroupCount())
	}
}

func TestHolderProfitGroupCountAcrossCurrencies(t *testing.T) {
	h := New()
	h.OrdersProfitFor(currency.BTC).Add(buyOrder("btc-1", 1, 1))
	h.OrdersProfitFor(currency.ETH).Add(buyOrder("eth-1", 1, 1))
	h.OrdersProfitFor(currency.ETH).Add(buyOrder("eth-2", 1, 1))

	if got := h.ProfitGroupCount(); got != 3 {
		t.Errorf("ProfitGroupCount() = %d, want 3", got)
	}
}

func TestHolderCoinInTradingCount(t *testing.T) {
	h := New()
	h.AddBuyOrder(buyOrder("open-buy", 100, 2)) // 200

	sell := sellOrder("sell-1", 110, 1)
	matchedBuy := buyOrder("matched-buy", 90, 1) // 90
	h.AddSellOrder(sell)
	h.Matching().Add(sell, matchedBuy)

	h.OrdersProfitFor(currency.ETH).Add(buyOrder("parked", 50, 2)) // 100

	want := 200.0 + 90.0 + 100.0
	if got := h.CoinInTradingCount(); got != want {
		t.Errorf("CoinInTradingCount() = %v, want %v", got, want)
	}
}

func TestHolderClearResetsEverything(t *testing.T) {
	h := New()
	h.AddBuyOrder(buyOrder("buy-1", 1, 1))
	h.AddSellOrder(sellOrder("sell-1", 1, 1))
	h.OrdersProfitFor(currency.BTC).Add(buyOrder("parked", 1, 1))

	h.Clear()

	if h.BuyOrdersCount() != 0 || h.SellOrdersCount() != 0 || h.ProfitGroupCount() != 0 {
		t.Errorf("Clear() left state behind: buys=%d sells=%d profit=%d",
			h.BuyOrdersCount(), h.SellOrdersCount(), h.ProfitGroupCount())
	}
}
