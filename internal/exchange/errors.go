package exchange

import (
	"errors"
	"fmt"
)

// Kind identifies which of the error variants an adapter raised. Engine
// decisions switch on Kind rather than type-asserting concrete errors,
// replacing the exception hierarchy of the original implementation.
type Kind int

const (
	// KindTransport covers network/TLS/JSON-parse failures.
	KindTransport Kind = iota
	// KindRedirect signals an HTTP 3xx; carries the Location header.
	KindRedirect
	// KindInvalidPair means the exchange rejected the pair symbol.
	KindInvalidPair
	// KindInsufficientFunds means the exchange rejected a place-order call
	// for lack of balance.
	KindInsufficientFunds
	// KindStockExchangeError is a generic exchange-reported error.
	KindStockExchangeError
	// KindNoData means get_account_order found no such order.
	KindNoData
)

// Error is the sum-type error every adapter call returns on failure.
type Error struct {
	Kind     Kind
	Message  string
	Location string // populated only for KindRedirect
	Cause    error
}

func (e *Error) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("%s: %s -> %s", kindName(e.Kind), e.Message, e.Location)
	}
	return fmt.Sprintf("%s: %s", kindName(e.Kind), e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func kindName(k Kind) string {
	switch k {
	case KindTransport:
		return "TransportError"
	case KindRedirect:
		return "RedirectRequested"
	case KindInvalidPair:
		return "InvalidPair"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindStockExchangeError:
		return "StockExchangeError"
	case KindNoData:
		return "NoData"
	default:
		return "UnknownError"
	}
}

// Transport wraps a transport-layer failure.
func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Message: cause.Error(), Cause: cause}
}

// Redirect builds a RedirectRequested error carrying the new location.
func Redirect(location string) *Error {
	return &Error{Kind: KindRedirect, Message: "redirect requested", Location: location}
}

// InvalidPair builds an InvalidPair error for the given wire symbol.
func InvalidPair(pair string) *Error {
	return &Error{Kind: KindInvalidPair, Message: "unsupported pair: " + pair}
}

// InsufficientFunds builds an InsufficientFunds error.
func InsufficientFunds(msg string) *Error {
	return &Error{Kind: KindInsufficientFunds, Message: msg}
}

// StockExchangeError builds a generic exchange-reported error.
func StockExchangeError(msg string) *Error {
	return &Error{Kind: KindStockExchangeError, Message: msg}
}

// NoData builds a NoData error for a missing order lookup.
func NoData(msg string) *Error {
	return &Error{Kind: KindNoData, Message: msg}
}

// KindOf extracts the Kind from err if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
