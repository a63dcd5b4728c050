// Package poloniex adapts the exchange.Exchange capability to Poloniex's
// REST API: HMAC-SHA512 signing over a nonce-bearing POST body,
// "_" separated quoted_base pairs.
package poloniex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

const (
	publicURL  = "https://poloniex.com/public"
	tradingURL = "https://poloniex.com/tradingApi"
)

// Adapter implements exchange.Exchange for Poloniex.
type Adapter struct {
	http *exchange.HTTPClient
}

func New() *Adapter {
	return &Adapter{http: exchange.NewHTTPClient(publicURL)}
}

func (a *Adapter) Tag() currency.Exchange { return currency.Poloniex }

func (a *Adapter) SetCredentials(apiKey, secretKey string) {
	a.http.APIKey = apiKey
	a.http.SecretKey = secretKey
}

func (a *Adapter) public(ctx context.Context, command string, q url.Values) ([]byte, error) {
	q.Set("command", command)
	req, _ := http.NewRequest(http.MethodGet, publicURL+"?"+q.Encode(), nil)
	return a.http.DoFollowingRedirect(ctx, req)
}

func (a *Adapter) trading(ctx context.Context, command string, form url.Values) ([]byte, error) {
	form.Set("command", command)
	form.Set("nonce", strconv.FormatInt(nonce(), 10))
	payload := form.Encode()

	req, _ := http.NewRequest(http.MethodPost, tradingURL, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Key", a.http.APIKey)
	req.Header.Set("Sign", a.http.SignHMACSHA512(payload))
	return a.http.DoFollowingRedirect(ctx, req)
}

type poloniexError struct {
	Error string `json:"error"`
}

func checkError(body []byte) error {
	var e poloniexError
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		switch {
		case strings.Contains(e.Error, "Invalid currency pair"):
			return exchange.InvalidPair(e.Error)
		case strings.Contains(e.Error, "Not enough"):
			return exchange.InsufficientFunds(e.Error)
		default:
			return exchange.StockExchangeError(e.Error)
		}
	}
	return nil
}

func (a *Adapter) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	pair := currency.ToPair(currency.Poloniex, base, quoted)
	body, err := a.public(ctx, "returnTicker", url.Values{})
	if err != nil {
		return market.CurrencyTick{}, err
	}
	if err := checkError(body); err != nil {
		return market.CurrencyTick{}, err
	}
	var all map[string]struct {
		HighestBid string `json:"highestBid"`
		LowestAsk  string `json:"lowestAsk"`
	}
	if err := json.Unmarshal(body, &all); err != nil {
		return market.CurrencyTick{}, exchange.Transport(err)
	}
	t, ok := all[pair]
	if !ok {
		return market.CurrencyTick{}, exchange.InvalidPair(pair)
	}
	bid, _ := strconv.ParseFloat(t.HighestBid, 64)
	ask, _ := strconv.ParseFloat(t.LowestAsk, 64)
	return market.CurrencyTick{Bid: bid, Ask: ask, Base: base, Quoted: quoted}, nil
}

func (a *Adapter) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	pair := currency.ToPair(currency.Poloniex, base, quoted)
	period := strconv.Itoa(int(interval.Duration().Seconds()))
	q := url.Values{
		"currencyPair": {pair},
		"period":       {period},
		"start":        {"0"},
		"end":          {strconv.FormatInt(time.Now().Unix(), 10)},
	}
	body, err := a.public(ctx, "returnChartData", q)
	if err != nil {
		return nil, err
	}
	if err := checkError(body); err != nil {
		return nil, err
	}
	var rows []struct {
		Date   int64   `json:"date"`
		Open   float64 `json:"open"`
		High   float64 `json:"high"`
		Low    float64 `json:"low"`
		Close  float64 `json:"close"`
		Volume float64 `json:"volume"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, exchange.Transport(err)
	}
	candles := make([]market.Candle, 0, len(rows))
	for _, r := range rows {
		candles = append(candles, market.Candle{
			Timestamp: time.Unix(r.Date, 0).UTC(), Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		})
	}
	return candles, nil
}

func (a *Adapter) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	body, err := a.trading(ctx, "returnBalances", url.Values{})
	if err != nil {
		return 0, err
	}
	if err := checkError(body); err != nil {
		return 0, err
	}
	var balances map[string]string
	if err := json.Unmarshal(body, &balances); err != nil {
		return 0, exchange.Transport(err)
	}
	v, ok := balances[c.String()]
	if !ok {
		return 0, nil
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f, nil
}

type poloniexOrder struct {
	OrderNumber string  `json:"orderNumber"`
	Type        string  `json:"type"`
	Rate        string  `json:"rate"`
	Amount      string  `json:"amount"`
	Date        string  `json:"date"`
}

func (a *Adapter) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	pair := currency.ToPair(currency.Poloniex, base, quoted)
	body, err := a.trading(ctx, "returnOpenOrders", url.Values{"currencyPair": {pair}})
	if err != nil {
		return nil, err
	}
	if err := checkError(body); err != nil {
		return nil, err
	}
	var orders []poloniexOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, exchange.Transport(err)
	}
	result := make([]market.MarketOrder, 0, len(orders))
	for _, o := range orders {
		result = append(result, toMarketOrder(o, base, quoted))
	}
	return result, nil
}

func toMarketOrder(o poloniexOrder, base, quoted currency.Currency) market.MarketOrder {
	side := market.Buy
	if o.Type == "sell" {
		side = market.Sell
	}
	rate, _ := strconv.ParseFloat(o.Rate, 64)
	amount, _ := strconv.ParseFloat(o.Amount, 64)
	opened, _ := time.Parse("2006-01-02 15:04:05", o.Date)
	return market.MarketOrder{
		UUID: o.OrderNumber, Base: base, Quoted: quoted, Side: side, Exchange: currency.Poloniex,
		Quantity: amount, Price: rate, OpenedAt: exchange.ServerTimeOrLocal(opened),
	}
}

func (a *Adapter) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return nil, nil
}

func (a *Adapter) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	body, err := a.trading(ctx, "returnOrderStatus", url.Values{"orderNumber": {uuid}})
	if err != nil {
		return market.MarketOrder{}, err
	}
	var resp struct {
		Success int           `json:"success"`
		Result  map[string]poloniexOrder `json:"result"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	o, ok := resp.Result[uuid]
	if resp.Success == 0 || !ok {
		return market.MarketOrder{}, exchange.NoData("order not found: " + uuid)
	}
	return toMarketOrder(o, base, quoted), nil
}

func (a *Adapter) place(ctx context.Context, command string, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	pair := currency.ToPair(currency.Poloniex, base, quoted)
	form := url.Values{
		"currencyPair": {pair}, "rate": {market.FormatCoin(rate)}, "amount": {market.FormatCoin(qty)},
	}
	body, err := a.trading(ctx, command, form)
	if err != nil {
		return market.MarketOrder{}, err
	}
	if err := checkError(body); err != nil {
		return market.MarketOrder{}, err
	}
	var resp struct {
		OrderNumber string `json:"orderNumber"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.OrderNumber == "" {
		return market.MarketOrder{}, exchange.Transport(fmt.Errorf("no orderNumber returned"))
	}
	side := market.Buy
	if command == "sell" {
		side = market.Sell
	}
	return market.MarketOrder{
		UUID: resp.OrderNumber, Base: base, Quoted: quoted, Side: side, Exchange: currency.Poloniex,
		Quantity: qty, Price: rate, OpenedAt: exchange.ServerTimeOrLocal(time.Time{}),
	}, nil
}

func (a *Adapter) PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "buy", base, quoted, qty, rate)
}

func (a *Adapter) PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "sell", base, quoted, qty, rate)
}

func (a *Adapter) Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error) {
	body, err := a.trading(ctx, "cancelOrder", url.Values{"orderNumber": {uuid}})
	if err != nil {
		return false, err
	}
	var resp struct {
		Success int `json:"success"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, exchange.Transport(err)
	}
	return resp.Success == 1, nil
}

func (a *Adapter) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	return market.LotSize{}, nil
}

func nonce() int64 { return time.Now().UnixNano() }
