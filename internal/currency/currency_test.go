package currency

import "testing"

func TestParseRoundTrip(t *testing.T) {
	for c := range names {
		if c == Unknown {
			continue
		}
		if got := Parse(c.String()); got != c {
			t.Errorf("Parse(%q) = %v, want %v", c.String(), got, c)
		}
	}
}

func TestParseCaseInsensitive(t *testing.T) {
	tests := []string{"btc", "BTC", " Btc ", "bTc"}
	for _, s := range tests {
		if got := Parse(s); got != BTC {
			t.Errorf("Parse(%q) = %v, want BTC", s, got)
		}
	}
}

func TestParseUnknown(t *testing.T) {
	if got := Parse("NOTACOIN"); got != Unknown {
		t.Errorf("Parse(unknown) = %v, want Unknown", got)
	}
}

func TestParseExchange(t *testing.T) {
	tests := []struct {
		in   string
		want Exchange
	}{
		{"bittrex", Bittrex},
		{"Binance", Binance},
		{"KRAKEN", Kraken},
		{"poloniex", Poloniex},
		{"Huobi", Huobi},
		{"coinbase", ExchangeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseExchange(tt.in); got != tt.want {
				t.Errorf("ParseExchange(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToPairAndParsePairRoundTrip(t *testing.T) {
	exchanges := []Exchange{Bittrex, Binance, Kraken, Poloniex, Huobi}
	pairs := [][2]Currency{{BTC, USDT}, {ETH, BTC}, {LTC, BTC}}

	for _, ex := range exchanges {
		for _, p := range pairs {
			raw := ToPair(ex, p[0], p[1])
			base, quoted, ok := ParsePair(ex, raw)
			if !ok {
				t.Errorf("%v: ParsePair(%q) reported not ok", ex, raw)
				continue
			}
			if base != p[0] || quoted != p[1] {
				t.Errorf("%v: ParsePair(ToPair(%v,%v)) = (%v,%v), want (%v,%v)",
					ex, p[0], p[1], base, quoted, p[0], p[1])
			}
		}
	}
}

func TestToPairFormat(t *testing.T) {
	tests := []struct {
		ex     Exchange
		base   Currency
		quoted Currency
		want   string
	}{
		{Bittrex, BTC, USDT, "USDT-BTC"},
		{Binance, BTC, USDT, "BTCUSDT"},
		{Poloniex, BTC, USDT, "USDT_BTC"},
		{Huobi, BTC, USDT, "btcusdt"},
		{Kraken, BTC, USD, "XBTZUSD"},
	}
	for _, tt := range tests {
		if got := ToPair(tt.ex, tt.base, tt.quoted); got != tt.want {
			t.Errorf("ToPair(%v,%v,%v) = %q, want %q", tt.ex, tt.base, tt.quoted, got, tt.want)
		}
	}
}

func TestParsePairInvalid(t *testing.T) {
	if _, _, ok := ParsePair(Bittrex, "nosuchseparator"); ok {
		t.Errorf("ParsePair accepted a malformed Bittrex pair")
	}
	if _, _, ok := ParsePair(Binance, "NOTAPAIR"); ok {
		t.Errorf("ParsePair accepted an unknown Binance pair")
	}
}
