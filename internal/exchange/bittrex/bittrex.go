// Package bittrex adapts the exchange.Exchange capability to Bittrex's
// v1.1 REST API: HMAC-SHA512 signing via a header, "-" separated pairs
// quoted-base ordered (e.g. BTC-LTC).
package bittrex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

const baseURL = "https://bittrex.com/api/v1.1"

// Adapter implements exchange.Exchange for Bittrex.
type Adapter struct {
	http *exchange.HTTPClient
}

// New constructs a Bittrex adapter.
func New() *Adapter {
	return &Adapter{http: exchange.NewHTTPClient(baseURL)}
}

func (a *Adapter) Tag() currency.Exchange { return currency.Bittrex }

func (a *Adapter) SetCredentials(apiKey, secretKey string) {
	a.http.APIKey = apiKey
	a.http.SecretKey = secretKey
}

type tickerResponse struct {
	Success bool `json:"success"`
	Message string `json:"message"`
	Result  struct {
		Bid float64 `json:"Bid"`
		Ask float64 `json:"Ask"`
	} `json:"result"`
}

func (a *Adapter) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	pair := currency.ToPair(currency.Bittrex, base, quoted)
	url := fmt.Sprintf("%s/public/getticker?market=%s", baseURL, pair)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return market.CurrencyTick{}, err
	}
	var resp tickerResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.CurrencyTick{}, exchange.Transport(err)
	}
	if !resp.Success {
		if resp.Message == "INVALID_MARKET" {
			return market.CurrencyTick{}, exchange.InvalidPair(pair)
		}
		return market.CurrencyTick{}, exchange.StockExchangeError(resp.Message)
	}
	return market.CurrencyTick{Bid: resp.Result.Bid, Ask: resp.Result.Ask, Base: base, Quoted: quoted}, nil
}

type candleResponse struct {
	Success bool `json:"success"`
	Message string `json:"message"`
	Result  []struct {
		Timestamp string  `json:"T"`
		Open      float64 `json:"O"`
		High      float64 `json:"H"`
		Low       float64 `json:"L"`
		Close     float64 `json:"C"`
		Volume    float64 `json:"V"`
	} `json:"result"`
}

func bittrexTick(i market.Interval) string {
	switch i {
	case market.Interval1m:
		return "oneMin"
	case market.Interval5m:
		return "fiveMin"
	case market.Interval1h:
		return "hour"
	case market.Interval1d:
		return "day"
	default:
		return "thirtyMin"
	}
}

func (a *Adapter) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	pair := currency.ToPair(currency.Bittrex, base, quoted)
	url := fmt.Sprintf("%s/public/getmarkethistory?market=%s&tickInterval=%s", baseURL, pair, bittrexTick(interval))
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var resp candleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, exchange.Transport(err)
	}
	if !resp.Success {
		return nil, exchange.StockExchangeError(resp.Message)
	}
	candles := make([]market.Candle, 0, len(resp.Result))
	for _, r := range resp.Result {
		ts, _ := time.Parse("2006-01-02T15:04:05", r.Timestamp)
		candles = append(candles, market.Candle{
			Timestamp: ts, Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	return candles, nil
}

type balanceResponse struct {
	Success bool `json:"success"`
	Message string `json:"message"`
	Result  struct {
		Available float64 `json:"Available"`
	} `json:"result"`
}

func (a *Adapter) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	url := fmt.Sprintf("%s/account/getbalance?currency=%s&apikey=%s&nonce=%d", baseURL, c, a.http.APIKey, nonce())
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("apisign", a.http.SignHMACSHA512(url))
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return 0, err
	}
	var resp balanceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, exchange.Transport(err)
	}
	if !resp.Success {
		return 0, nil // known currency, no position
	}
	return resp.Result.Available, nil
}

type openOrdersResponse struct {
	Success bool `json:"success"`
	Message string `json:"message"`
	Result  []bittrexOrder `json:"result"`
}

type bittrexOrder struct {
	OrderUUID string `json:"OrderUuid"`
	Exchange  string `json:"Exchange"`
	OrderType string `json:"OrderType"`
	Quantity  float64 `json:"Quantity"`
	Limit     float64 `json:"Limit"`
	Opened    string  `json:"Opened"`
	CancelInitiated bool `json:"CancelInitiated"`
}

func (a *Adapter) signedRequest(ctx context.Context, endpoint string, params string) ([]byte, error) {
	url := fmt.Sprintf("%s%s?apikey=%s&nonce=%d%s", baseURL, endpoint, a.http.APIKey, nonce(), params)
	req, _ := http.NewRequest(http.MethodGet, url, nil)
	req.Header.Set("apisign", a.http.SignHMACSHA512(url))
	return a.http.DoFollowingRedirect(ctx, req)
}

func (a *Adapter) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	pair := currency.ToPair(currency.Bittrex, base, quoted)
	body, err := a.signedRequest(ctx, "/market/getopenorders", "&market="+pair)
	if err != nil {
		return nil, err
	}
	var resp openOrdersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, exchange.Transport(err)
	}
	if !resp.Success {
		return nil, exchange.StockExchangeError(resp.Message)
	}
	orders := make([]market.MarketOrder, 0, len(resp.Result))
	for _, o := range resp.Result {
		orders = append(orders, toMarketOrder(o, base, quoted))
	}
	return orders, nil
}

func toMarketOrder(o bittrexOrder, base, quoted currency.Currency) market.MarketOrder {
	side := market.Buy
	if o.OrderType == "LIMIT_SELL" {
		side = market.Sell
	}
	opened, _ := time.Parse("2006-01-02T15:04:05", o.Opened)
	return market.MarketOrder{
		UUID: o.OrderUUID, Base: base, Quoted: quoted, Side: side,
		Exchange: currency.Bittrex, Quantity: o.Quantity, Price: o.Limit,
		OpenedAt: exchange.ServerTimeOrLocal(opened), Canceled: o.CancelInitiated,
	}
}

// GetMarketOpenOrders does not fetch the public order book: it always
// returns no orders and a nil error.
func (a *Adapter) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return nil, nil
}

func (a *Adapter) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	body, err := a.signedRequest(ctx, "/account/getorder", "&uuid="+uuid)
	if err != nil {
		return market.MarketOrder{}, err
	}
	var resp struct {
		Success bool `json:"success"`
		Message string `json:"message"`
		Result  *bittrexOrder `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	if !resp.Success || resp.Result == nil {
		return market.MarketOrder{}, exchange.NoData("order not found: " + uuid)
	}
	return toMarketOrder(*resp.Result, base, quoted), nil
}

func (a *Adapter) place(ctx context.Context, endpoint string, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	pair := currency.ToPair(currency.Bittrex, base, quoted)
	params := fmt.Sprintf("&market=%s&quantity=%s&rate=%s", pair, market.FormatCoin(qty), market.FormatCoin(rate))
	body, err := a.signedRequest(ctx, endpoint, params)
	if err != nil {
		return market.MarketOrder{}, err
	}
	var resp struct {
		Success bool `json:"success"`
		Message string `json:"message"`
		Result  struct {
			UUID string `json:"uuid"`
		} `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	if !resp.Success {
		if resp.Message == "INSUFFICIENT_FUNDS" {
			return market.MarketOrder{}, exchange.InsufficientFunds(resp.Message)
		}
		return market.MarketOrder{}, exchange.StockExchangeError(resp.Message)
	}
	side := market.Buy
	if endpoint == "/market/selllimit" {
		side = market.Sell
	}
	return market.MarketOrder{
		UUID: resp.Result.UUID, Base: base, Quoted: quoted, Side: side,
		Exchange: currency.Bittrex, Quantity: qty, Price: rate,
		OpenedAt: exchange.ServerTimeOrLocal(time.Time{}),
	}, nil
}

func (a *Adapter) PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "/market/buylimit", base, quoted, qty, rate)
}

func (a *Adapter) PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "/market/selllimit", base, quoted, qty, rate)
}

func (a *Adapter) Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error) {
	body, err := a.signedRequest(ctx, "/market/cancel", "&uuid="+uuid)
	if err != nil {
		return false, err
	}
	var resp struct {
		Success bool `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, exchange.Transport(err)
	}
	if !resp.Success {
		return false, nil
	}
	return true, nil
}

// GetLotSize: Bittrex imposes no step-size requirement; returns empty.
func (a *Adapter) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	return market.LotSize{}, nil
}

func nonce() int64 { return time.Now().UnixNano() / int64(time.Millisecond) }
