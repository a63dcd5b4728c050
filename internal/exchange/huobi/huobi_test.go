package huobi

import (
	"testing"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

func TestPrecisionForKnownPair(t *testing.T) {
	if got := precisionFor("ethbtc"); got != 6 {
		t.Errorf("precisionFor(ethbtc) = %d, want 6", got)
	}
}

func TestPrecisionForUnknownPairFallsBackToDefault(t *testing.T) {
	if got := precisionFor("xrpusdt"); got != market.CoinPrecision {
		t.Errorf("precisionFor(xrpusdt) = %d, want %d", got, market.CoinPrecision)
	}
}

func TestHuobiPeriod(t *testing.T) {
	tests := []struct {
		interval market.Interval
		want     string
	}{
		{market.Interval1m, "1min"},
		{market.Interval5m, "5min"},
		{market.Interval15m, "15min"},
		{market.Interval1h, "60min"},
		{market.Interval4h, "4hour"},
		{market.Interval1d, "1day"},
	}
	for _, tt := range tests {
		if got := huobiPeriod(tt.interval); got != tt.want {
			t.Errorf("huobiPeriod(%v) = %q, want %q", tt.interval, got, tt.want)
		}
	}
}

func TestHexToBase64(t *testing.T) {
	got, err := hexToBase64("deadbeef")
	if err != nil {
		t.Fatalf("hexToBase64 returned error: %v", err)
	}
	if got != "3q2+7w==" {
		t.Errorf("hexToBase64(deadbeef) = %q, want 3q2+7w==", got)
	}
}

func TestClassifyOKStatus(t *testing.T) {
	if err := classify(huobiEnvelope{Status: "ok"}); err != nil {
		t.Errorf("classify(ok) = %v, want nil", err)
	}
	if err := classify(huobiEnvelope{}); err != nil {
		t.Errorf("classify(empty status) = %v, want nil", err)
	}
}

func TestClassifyErrorCodes(t *testing.T) {
	tests := []struct {
		code string
		kind exchange.Kind
	}{
		{"invalid-parameter", exchange.KindInvalidPair},
		{"account-frozen-balance-insufficient-error", exchange.KindInsufficientFunds},
		{"base-unknown-error", exchange.KindStockExchangeError},
	}
	for _, tt := range tests {
		err := classify(huobiEnvelope{Status: "error", ErrCode: tt.code, ErrMsg: "boom"})
		kind, ok := exchange.KindOf(err)
		if !ok || kind != tt.kind {
			t.Errorf("classify(%q) kind = (%v, %v), want %v", tt.code, kind, ok, tt.kind)
		}
	}
}

func TestHuobiToMarketOrder(t *testing.T) {
	o := huobiOrder{ID: 42, Type: "sell-limit", Price: "30000", Amount: "0.1", State: "submitted"}
	got := toMarketOrder(o, currency.USDT, currency.BTC)

	if got.UUID != "42" {
		t.Errorf("UUID = %q, want 42", got.UUID)
	}
	if got.Side != market.Sell {
		t.Errorf("Side = %v, want Sell", got.Side)
	}
	if got.Canceled {
		t.Errorf("Canceled should be false for state %q", o.State)
	}
}

func TestHuobiToMarketOrderBuyCanceled(t *testing.T) {
	o := huobiOrder{Type: "buy-market", Price: "1", Amount: "1", State: "canceled"}
	got := toMarketOrder(o, currency.USDT, currency.BTC)
	if got.Side != market.Buy {
		t.Errorf("Side = %v, want Buy", got.Side)
	}
	if !got.Canceled {
		t.Errorf("Canceled should be true for state canceled")
	}
}
