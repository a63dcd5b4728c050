package kraken

import (
	"testing"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

func TestKrakenInterval(t *testing.T) {
	tests := []struct {
		interval market.Interval
		want     string
	}{
		{market.Interval1m, "1"},
		{market.Interval5m, "5"},
		{market.Interval15m, "15"},
		{market.Interval1h, "60"},
		{market.Interval4h, "240"},
		{market.Interval1d, "1440"},
	}
	for _, tt := range tests {
		if got := krakenInterval(tt.interval); got != tt.want {
			t.Errorf("krakenInterval(%v) = %q, want %q", tt.interval, got, tt.want)
		}
	}
}

func TestClassifyKrakenError(t *testing.T) {
	tests := []struct {
		msg  string
		kind exchange.Kind
	}{
		{"EQuery:Unknown asset pair", exchange.KindInvalidPair},
		{"EOrder:Insufficient funds", exchange.KindInsufficientFunds},
		{"EGeneral:Invalid arguments", exchange.KindStockExchangeError},
	}
	for _, tt := range tests {
		got := classifyKrakenError(tt.msg)
		kind, ok := exchange.KindOf(got)
		if !ok || kind != tt.kind {
			t.Errorf("classifyKrakenError(%q) kind = (%v, %v), want %v", tt.msg, kind, ok, tt.kind)
		}
	}
}

func TestKrakenToMarketOrder(t *testing.T) {
	o := krakenOrder{OpenTm: 1700000000, Status: "open"}
	o.Descr.Pair = "XXBTZUSDT"
	o.Descr.Type = "sell"
	o.Descr.Price = "42000.5"
	o.Vol = "0.75"

	got := toMarketOrder("OABC-123", o, currency.USDT, currency.BTC)

	if got.UUID != "OABC-123" {
		t.Errorf("UUID = %q, want OABC-123", got.UUID)
	}
	if got.Side != market.Sell {
		t.Errorf("Side = %v, want Sell", got.Side)
	}
	if got.Quantity != 0.75 || got.Price != 42000.5 {
		t.Errorf("Quantity/Price = %v/%v, want 0.75/42000.5", got.Quantity, got.Price)
	}
	if got.Canceled {
		t.Errorf("Canceled should be false for status %q", o.Status)
	}
}

func TestKrakenToMarketOrderCanceled(t *testing.T) {
	o := krakenOrder{Status: "canceled"}
	o.Descr.Type = "buy"
	got := toMarketOrder("id", o, currency.USDT, currency.BTC)
	if !got.Canceled {
		t.Errorf("Canceled should be true for status canceled")
	}
	if got.Side != market.Buy {
		t.Errorf("Side = %v, want Buy", got.Side)
	}
}
