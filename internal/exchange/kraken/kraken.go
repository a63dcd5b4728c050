// Package kraken adapts the exchange.Exchange capability to Kraken's
// REST API: HMAC-SHA512 signing over a nonce-prefixed POST body, XBT/Z
// prefixed asset codes.
package kraken

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

const baseURL = "https://api.kraken.com"

// Adapter implements exchange.Exchange for Kraken.
type Adapter struct {
	http *exchange.HTTPClient
}

func New() *Adapter {
	return &Adapter{http: exchange.NewHTTPClient(baseURL)}
}

func (a *Adapter) Tag() currency.Exchange { return currency.Kraken }

func (a *Adapter) SetCredentials(apiKey, secretKey string) {
	a.http.APIKey = apiKey
	a.http.SecretKey = secretKey
}

type krakenEnvelope struct {
	Error  []string        `json:"error"`
	Result json.RawMessage `json:"result"`
}

func (a *Adapter) public(ctx context.Context, path string, q url.Values) (json.RawMessage, error) {
	u := fmt.Sprintf("%s/0/public/%s?%s", baseURL, path, q.Encode())
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var env krakenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, exchange.Transport(err)
	}
	if len(env.Error) > 0 {
		return nil, classifyKrakenError(env.Error[0])
	}
	return env.Result, nil
}

func (a *Adapter) private(ctx context.Context, path string, form url.Values) (json.RawMessage, error) {
	n := strconv.FormatInt(nonce(), 10)
	form.Set("nonce", n)
	payload := form.Encode()
	signPath := "/0/private/" + path
	signed := a.http.SignHMACSHA512(signPath + n + payload)

	req, _ := http.NewRequest(http.MethodPost, baseURL+signPath, strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", a.http.APIKey)
	req.Header.Set("API-Sign", signed)

	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var env krakenEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, exchange.Transport(err)
	}
	if len(env.Error) > 0 {
		return nil, classifyKrakenError(env.Error[0])
	}
	return env.Result, nil
}

func classifyKrakenError(msg string) error {
	switch {
	case strings.Contains(msg, "Unknown asset pair"):
		return exchange.InvalidPair(msg)
	case strings.Contains(msg, "Insufficient funds"):
		return exchange.InsufficientFunds(msg)
	default:
		return exchange.StockExchangeError(msg)
	}
}

func (a *Adapter) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	pair := currency.ToPair(currency.Kraken, base, quoted)
	q := url.Values{"pair": {pair}}
	result, err := a.public(ctx, "Ticker", q)
	if err != nil {
		return market.CurrencyTick{}, err
	}
	var byPair map[string]struct {
		Ask []string `json:"a"`
		Bid []string `json:"b"`
	}
	if err := json.Unmarshal(result, &byPair); err != nil {
		return market.CurrencyTick{}, exchange.Transport(err)
	}
	for _, v := range byPair {
		ask, _ := strconv.ParseFloat(v.Ask[0], 64)
		bid, _ := strconv.ParseFloat(v.Bid[0], 64)
		return market.CurrencyTick{Bid: bid, Ask: ask, Base: base, Quoted: quoted}, nil
	}
	return market.CurrencyTick{}, exchange.InvalidPair(pair)
}

func krakenInterval(i market.Interval) string {
	switch i {
	case market.Interval1m:
		return "1"
	case market.Interval5m:
		return "5"
	case market.Interval15m:
		return "15"
	case market.Interval1h:
		return "60"
	case market.Interval4h:
		return "240"
	case market.Interval1d:
		return "1440"
	default:
		return "1"
	}
}

func (a *Adapter) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	pair := currency.ToPair(currency.Kraken, base, quoted)
	q := url.Values{"pair": {pair}, "interval": {krakenInterval(interval)}}
	result, err := a.public(ctx, "OHLC", q)
	if err != nil {
		return nil, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, exchange.Transport(err)
	}
	var candles []market.Candle
	for key, v := range raw {
		if key == "last" {
			continue
		}
		var rows [][]interface{}
		if err := json.Unmarshal(v, &rows); err != nil {
			continue
		}
		for _, row := range rows {
			ts := int64(row[0].(float64))
			open, _ := strconv.ParseFloat(row[1].(string), 64)
			high, _ := strconv.ParseFloat(row[2].(string), 64)
			low, _ := strconv.ParseFloat(row[3].(string), 64)
			closeP, _ := strconv.ParseFloat(row[4].(string), 64)
			vol, _ := strconv.ParseFloat(row[6].(string), 64)
			candles = append(candles, market.Candle{
				Timestamp: time.Unix(ts, 0).UTC(), Open: open, High: high, Low: low, Close: closeP, Volume: vol,
			})
		}
	}
	return candles, nil
}

func (a *Adapter) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	result, err := a.private(ctx, "Balance", url.Values{})
	if err != nil {
		return 0, err
	}
	var balances map[string]string
	if err := json.Unmarshal(result, &balances); err != nil {
		return 0, exchange.Transport(err)
	}
	for _, key := range []string{c.String(), "X" + c.String(), "Z" + c.String()} {
		if v, ok := balances[key]; ok {
			f, _ := strconv.ParseFloat(v, 64)
			return f, nil
		}
	}
	return 0, nil
}

type krakenOrder struct {
	RefID     string `json:"refid"`
	OFlags    string `json:"oflags"`
	OpenTm    float64 `json:"opentm"`
	Status    string `json:"status"`
	Descr     struct {
		Pair string `json:"pair"`
		Type string `json:"type"`
		Price string `json:"price"`
	} `json:"descr"`
	Vol string `json:"vol"`
}

func (a *Adapter) openOrders(ctx context.Context) (map[string]krakenOrder, error) {
	result, err := a.private(ctx, "OpenOrders", url.Values{})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Open map[string]krakenOrder `json:"open"`
	}
	if err := json.Unmarshal(result, &resp); err != nil {
		return nil, exchange.Transport(err)
	}
	return resp.Open, nil
}

func (a *Adapter) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	open, err := a.openOrders(ctx)
	if err != nil {
		return nil, err
	}
	pair := currency.ToPair(currency.Kraken, base, quoted)
	var orders []market.MarketOrder
	for id, o := range open {
		if o.Descr.Pair != pair {
			continue
		}
		orders = append(orders, toMarketOrder(id, o, base, quoted))
	}
	return orders, nil
}

func toMarketOrder(id string, o krakenOrder, base, quoted currency.Currency) market.MarketOrder {
	side := market.Buy
	if o.Descr.Type == "sell" {
		side = market.Sell
	}
	qty, _ := strconv.ParseFloat(o.Vol, 64)
	price, _ := strconv.ParseFloat(o.Descr.Price, 64)
	return market.MarketOrder{
		UUID: id, Base: base, Quoted: quoted, Side: side, Exchange: currency.Kraken,
		Quantity: qty, Price: price,
		OpenedAt: exchange.ServerTimeOrLocal(time.Unix(int64(o.OpenTm), 0)),
		Canceled: o.Status == "canceled",
	}
}

func (a *Adapter) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return nil, nil
}

func (a *Adapter) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	result, err := a.private(ctx, "QueryOrders", url.Values{"txid": {uuid}})
	if err != nil {
		return market.MarketOrder{}, err
	}
	var orders map[string]krakenOrder
	if err := json.Unmarshal(result, &orders); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	o, ok := orders[uuid]
	if !ok {
		return market.MarketOrder{}, exchange.NoData("order not found: " + uuid)
	}
	return toMarketOrder(uuid, o, base, quoted), nil
}

func (a *Adapter) place(ctx context.Context, side string, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	pair := currency.ToPair(currency.Kraken, base, quoted)
	form := url.Values{
		"pair": {pair}, "type": {side}, "ordertype": {"limit"},
		"price": {market.FormatCoin(rate)}, "volume": {market.FormatCoin(qty)},
	}
	result, err := a.private(ctx, "AddOrder", form)
	if err != nil {
		return market.MarketOrder{}, err
	}
	var resp struct {
		TxID []string `json:"txid"`
	}
	if err := json.Unmarshal(result, &resp); err != nil || len(resp.TxID) == 0 {
		return market.MarketOrder{}, exchange.Transport(fmt.Errorf("no txid returned"))
	}
	s := market.Buy
	if side == "sell" {
		s = market.Sell
	}
	return market.MarketOrder{
		UUID: resp.TxID[0], Base: base, Quoted: quoted, Side: s, Exchange: currency.Kraken,
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
	_, err := a.private(ctx, "CancelOrder", url.Values{"txid": {uuid}})
	if err != nil {
		if k, ok := exchange.KindOf(err); ok && k == exchange.KindStockExchangeError {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (a *Adapter) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	return market.LotSize{}, nil
}

func nonce() int64 { return time.Now().UnixNano() }
