// Package exchange defines the abstract trading capability the engine
// drives (ticker, candles, balance, orders, lot sizes) and the error
// kinds every adapter surfaces. Concrete adapters live in subpackages.
package exchange

import (
	"context"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

// Exchange is the capability the engine drives, one implementation per
// supported venue (Bittrex, Binance, Kraken, Poloniex, Huobi). Every
// operation is synchronous and blocking from the caller's perspective.
type Exchange interface {
	// Tag identifies which venue this adapter talks to.
	Tag() currency.Exchange

	// SetCredentials is idempotent; adapters are stateless beyond these.
	SetCredentials(apiKey, secretKey string)

	GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error)
	GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error)
	GetBalance(ctx context.Context, c currency.Currency) (float64, error)
	GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error)
	GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error)
	GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error)
	PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error)
	PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error)
	Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error)
	GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error)
}
