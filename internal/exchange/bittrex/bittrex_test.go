package bittrex

import (
	"testing"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

func TestBittrexTick(t *testing.T) {
	tests := []struct {
		interval market.Interval
		want     string
	}{
		{market.Interval1m, "oneMin"},
		{market.Interval5m, "fiveMin"},
		{market.Interval1h, "hour"},
		{market.Interval1d, "day"},
		{market.Interval4h, "thirtyMin"},
	}
	for _, tt := range tests {
		if got := bittrexTick(tt.interval); got != tt.want {
			t.Errorf("bittrexTick(%v) = %q, want %q", tt.interval, got, tt.want)
		}
	}
}

func TestToMarketOrderBuy(t *testing.T) {
	o := bittrexOrder{
		OrderUUID: "abc-123",
		OrderType: "LIMIT_BUY",
		Quantity:  2.5,
		Limit:     100.0,
		Opened:    "2024-01-02T15:04:05",
	}
	got := toMarketOrder(o, currency.USDT, currency.BTC)

	if got.UUID != "abc-123" {
		t.Errorf("UUID = %q, want abc-123", got.UUID)
	}
	if got.Side != market.Buy {
		t.Errorf("Side = %v, want Buy", got.Side)
	}
	if got.Quantity != 2.5 || got.Price != 100.0 {
		t.Errorf("Quantity/Price = %v/%v, want 2.5/100.0", got.Quantity, got.Price)
	}
	if got.OpenedAt.IsZero() {
		t.Errorf("OpenedAt should parse a non-zero time from %q", o.Opened)
	}
}

func TestToMarketOrderSell(t *testing.T) {
	o := bittrexOrder{OrderType: "LIMIT_SELL", CancelInitiated: true}
	got := toMarketOrder(o, currency.USDT, currency.BTC)

	if got.Side != market.Sell {
		t.Errorf("Side = %v, want Sell", got.Side)
	}
	if !got.Canceled {
		t.Errorf("Canceled should carry through from CancelInitiated")
	}
}
