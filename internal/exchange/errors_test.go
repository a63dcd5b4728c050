package exchange

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorKindConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"transport", Transport(errors.New("dial tcp: timeout")), KindTransport},
		{"redirect", Redirect("https://api.example.com/v2"), KindRedirect},
		{"invalid pair", InvalidPair("NOTAPAIR"), KindInvalidPair},
		{"insufficient funds", InsufficientFunds("balance too low"), KindInsufficientFunds},
		{"stock exchange error", StockExchangeError("maintenance"), KindStockExchangeError},
		{"no data", NoData("order not found"), KindNoData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", tt.err.Kind, tt.kind)
			}
			if tt.err.Error() == "" {
				t.Errorf("Error() returned empty string")
			}
		})
	}
}

func TestErrorMessageIncludesLocation(t *testing.T) {
	err := Redirect("https://api.example.com/v2")
	msg := err.Error()
	if !strings.Contains(msg, "https://api.example.com/v2") {
		t.Errorf("Error() = %q, want it to include the redirect location", msg)
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Transport(cause)
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(Transport(cause), cause) = false, want true")
	}
}

func TestKindOf(t *testing.T) {
	err := InsufficientFunds("no balance")
	kind, ok := KindOf(err)
	if !ok || kind != KindInsufficientFunds {
		t.Errorf("KindOf() = (%v, %v), want (KindInsufficientFunds, true)", kind, ok)
	}

	wrapped := fmt.Errorf("placing buy: %w", err)
	kind, ok = KindOf(wrapped)
	if !ok || kind != KindInsufficientFunds {
		t.Errorf("KindOf(wrapped) = (%v, %v), want (KindInsufficientFunds, true)", kind, ok)
	}

	if _, ok := KindOf(errors.New("plain error")); ok {
		t.Errorf("KindOf should report false for a non-*Error")
	}
}
