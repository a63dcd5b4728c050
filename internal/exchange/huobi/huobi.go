// Package huobi adapts the exchange.Exchange capability to Huobi's REST
// API: HMAC-SHA256 signing over a canonicalised query string, lowercase
// concatenated pairs, and a per-pair price precision table since Huobi
// rejects orders priced beyond its documented tick size.
package huobi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

const baseURL = "https://api.huobi.pro"

// pairPrecision mirrors stock_exchange_utils.h's per-pair precision table:
// Huobi does not use one global precision for order prices, unlike the
// COIN_PRECISION default other exchanges accept.
var pairPrecision = map[string]int{
	"btcusdt": 2,
	"ethusdt": 2,
	"ethbtc":  6,
	"ltcbtc":  6,
	"adausdt": 4,
}

func precisionFor(pair string) int {
	if p, ok := pairPrecision[pair]; ok {
		return p
	}
	return market.CoinPrecision
}

// Adapter implements exchange.Exchange for Huobi.
type Adapter struct {
	http      *exchange.HTTPClient
	accountID string
}

func New(accountID string) *Adapter {
	return &Adapter{http: exchange.NewHTTPClient(baseURL), accountID: accountID}
}

func (a *Adapter) Tag() currency.Exchange { return currency.Huobi }

func (a *Adapter) SetCredentials(apiKey, secretKey string) {
	a.http.APIKey = apiKey
	a.http.SecretKey = secretKey
}

// sign builds Huobi's canonicalised-query-string signature: method,
// host, path, and sorted query parameters newline-joined, HMAC-SHA256'd
// and base64-encoded (not hex, unlike Bittrex/Kraken/Poloniex).
func (a *Adapter) sign(method, path string, params url.Values) string {
	params.Set("AccessKeyId", a.http.APIKey)
	params.Set("SignatureMethod", "HmacSHA256")
	params.Set("SignatureVersion", "2")
	params.Set("Timestamp", exchange.ServerTimeOrLocal(time.Time{}).Format("2006-01-02T15:04:05"))

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(params.Get(k)))
	}
	payload := strings.Join([]string{method, "api.huobi.pro", path, strings.Join(parts, "&")}, "\n")

	mac := a.http.SignHMACSHA256(payload)
	decoded, _ := hexToBase64(mac)
	params.Set("Signature", decoded)
	return decoded
}

// hexToBase64 re-encodes the hex HMAC digest from the shared helper into
// the base64 form Huobi's signature scheme expects.
func hexToBase64(hexDigest string) (string, error) {
	raw := make([]byte, len(hexDigest)/2)
	for i := 0; i < len(raw); i++ {
		var b int
		fmt.Sscanf(hexDigest[i*2:i*2+2], "%02x", &b)
		raw[i] = byte(b)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type huobiEnvelope struct {
	Status  string          `json:"status"`
	ErrCode string          `json:"err-code"`
	ErrMsg  string          `json:"err-msg"`
	Data    json.RawMessage `json:"data"`
	Tick    json.RawMessage `json:"tick"`
}

func classify(env huobiEnvelope) error {
	if env.Status == "ok" || env.Status == "" {
		return nil
	}
	switch env.ErrCode {
	case "invalid-parameter":
		return exchange.InvalidPair(env.ErrMsg)
	case "account-frozen-balance-insufficient-error":
		return exchange.InsufficientFunds(env.ErrMsg)
	default:
		return exchange.StockExchangeError(env.ErrMsg)
	}
}

func (a *Adapter) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	pair := currency.ToPair(currency.Huobi, base, quoted)
	u := fmt.Sprintf("%s/market/detail/merged?symbol=%s", baseURL, pair)
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return market.CurrencyTick{}, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return market.CurrencyTick{}, exchange.Transport(err)
	}
	if err := classify(env); err != nil {
		return market.CurrencyTick{}, err
	}
	var tick struct {
		Bid []float64 `json:"bid"`
		Ask []float64 `json:"ask"`
	}
	if err := json.Unmarshal(env.Tick, &tick); err != nil || len(tick.Bid) == 0 || len(tick.Ask) == 0 {
		return market.CurrencyTick{}, exchange.InvalidPair(pair)
	}
	return market.CurrencyTick{Bid: tick.Bid[0], Ask: tick.Ask[0], Base: base, Quoted: quoted}, nil
}

func huobiPeriod(i market.Interval) string {
	switch i {
	case market.Interval1m:
		return "1min"
	case market.Interval5m:
		return "5min"
	case market.Interval15m:
		return "15min"
	case market.Interval1h:
		return "60min"
	case market.Interval4h:
		return "4hour"
	case market.Interval1d:
		return "1day"
	default:
		return "1min"
	}
}

func (a *Adapter) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	pair := currency.ToPair(currency.Huobi, base, quoted)
	u := fmt.Sprintf("%s/market/history/kline?symbol=%s&period=%s&size=150", baseURL, pair, huobiPeriod(interval))
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, exchange.Transport(err)
	}
	if err := classify(env); err != nil {
		return nil, err
	}
	var rows []struct {
		ID     int64   `json:"id"`
		Open   float64 `json:"open"`
		Close  float64 `json:"close"`
		Low    float64 `json:"low"`
		High   float64 `json:"high"`
		Volume float64 `json:"vol"`
	}
	if err := json.Unmarshal(env.Data, &rows); err != nil {
		return nil, exchange.Transport(err)
	}
	candles := make([]market.Candle, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		candles[len(rows)-1-i] = market.Candle{
			Timestamp: time.Unix(r.ID, 0).UTC(), Open: r.Open, High: r.High, Low: r.Low, Close: r.Close, Volume: r.Volume,
		}
	}
	return candles, nil
}

func (a *Adapter) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	params := url.Values{}
	a.sign(http.MethodGet, fmt.Sprintf("/v1/account/accounts/%s/balance", a.accountID), params)
	u := fmt.Sprintf("%s/v1/account/accounts/%s/balance?%s", baseURL, a.accountID, params.Encode())
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return 0, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return 0, exchange.Transport(err)
	}
	if err := classify(env); err != nil {
		return 0, exchange.StockExchangeError(env.ErrMsg)
	}
	var data struct {
		List []struct {
			Currency string `json:"currency"`
			Type     string `json:"type"`
			Balance  string `json:"balance"`
		} `json:"list"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return 0, exchange.Transport(err)
	}
	for _, b := range data.List {
		if strings.EqualFold(b.Currency, c.String()) && b.Type == "trade" {
			f, _ := strconv.ParseFloat(b.Balance, 64)
			return f, nil
		}
	}
	return 0, exchange.StockExchangeError("unknown currency on Huobi: " + c.String())
}

type huobiOrder struct {
	ID        int64  `json:"id"`
	Symbol    string `json:"symbol"`
	Type      string `json:"type"`
	Price     string `json:"price"`
	Amount    string `json:"amount"`
	CreatedAt int64  `json:"created-at"`
	State     string `json:"state"`
}

// GetAccountOpenOrders queries the documented flat open-orders endpoint.
// GetMarketOpenOrders below, not this call, is the one flagged per
// SPEC_FULL.md §6 as needing validation against the live nested shape.
func (a *Adapter) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	pair := currency.ToPair(currency.Huobi, base, quoted)
	params := url.Values{"symbol": {pair}, "states": {"submitted,partial-filled"}}
	a.sign(http.MethodGet, "/v1/order/orders", params)
	u := fmt.Sprintf("%s/v1/order/orders?%s", baseURL, params.Encode())
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, exchange.Transport(err)
	}
	if err := classify(env); err != nil {
		return nil, err
	}
	var orders []huobiOrder
	if err := json.Unmarshal(env.Data, &orders); err != nil {
		return nil, exchange.Transport(err)
	}
	result := make([]market.MarketOrder, 0, len(orders))
	for _, o := range orders {
		result = append(result, toMarketOrder(o, base, quoted))
	}
	return result, nil
}

func toMarketOrder(o huobiOrder, base, quoted currency.Currency) market.MarketOrder {
	side := market.Buy
	if strings.HasPrefix(o.Type, "sell") {
		side = market.Sell
	}
	price, _ := strconv.ParseFloat(o.Price, 64)
	amount, _ := strconv.ParseFloat(o.Amount, 64)
	return market.MarketOrder{
		UUID: strconv.FormatInt(o.ID, 10), Base: base, Quoted: quoted, Side: side, Exchange: currency.Huobi,
		Quantity: amount, Price: price,
		OpenedAt: exchange.ServerTimeOrLocal(time.UnixMilli(o.CreatedAt)),
		Canceled: o.State == "canceled",
	}
}

// GetMarketOpenOrders requests Huobi's public order-book endpoint but
// does not parse the book: it always returns no orders, and an error only
// when the request fails or the response envelope reports one. Neither
// the nested data[i].data[0] shape of the original source nor the flat
// "bids"/"asks" shape is read (see SPEC_FULL.md §6).
func (a *Adapter) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	pair := currency.ToPair(currency.Huobi, base, quoted)
	u := fmt.Sprintf("%s/market/depth?symbol=%s&type=step0", baseURL, pair)
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return nil, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, exchange.Transport(err)
	}
	return nil, classify(env)
}

func (a *Adapter) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	params := url.Values{}
	a.sign(http.MethodGet, "/v1/order/orders/"+uuid, params)
	u := fmt.Sprintf("%s/v1/order/orders/%s?%s", baseURL, uuid, params.Encode())
	req, _ := http.NewRequest(http.MethodGet, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return market.MarketOrder{}, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	if env.ErrCode == "base-record-invalid" {
		return market.MarketOrder{}, exchange.NoData("order not found: " + uuid)
	}
	if err := classify(env); err != nil {
		return market.MarketOrder{}, err
	}
	var o huobiOrder
	if err := json.Unmarshal(env.Data, &o); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	return toMarketOrder(o, base, quoted), nil
}

func (a *Adapter) place(ctx context.Context, orderType string, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	pair := currency.ToPair(currency.Huobi, base, quoted)
	precision := precisionFor(pair)
	body := map[string]string{
		"account-id": a.accountID,
		"symbol":     pair,
		"type":       orderType,
		"amount":     market.FormatCoin(qty),
		"price":      market.FormatCoinWithPrecision(rate, precision),
		"source":     "api",
	}
	payload, _ := json.Marshal(body)

	params := url.Values{}
	a.sign(http.MethodPost, "/v1/order/orders/place", params)
	u := fmt.Sprintf("%s/v1/order/orders/place?%s", baseURL, params.Encode())
	req, _ := http.NewRequest(http.MethodPost, u, strings.NewReader(string(payload)))
	req.Header.Set("Content-Type", "application/json")

	respBody, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return market.MarketOrder{}, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	if err := classify(env); err != nil {
		return market.MarketOrder{}, err
	}
	var id string
	if err := json.Unmarshal(env.Data, &id); err != nil {
		return market.MarketOrder{}, exchange.Transport(err)
	}
	side := market.Buy
	if strings.HasPrefix(orderType, "sell") {
		side = market.Sell
	}
	return market.MarketOrder{
		UUID: id, Base: base, Quoted: quoted, Side: side, Exchange: currency.Huobi,
		Quantity: qty, Price: rate, OpenedAt: exchange.ServerTimeOrLocal(time.Now().UTC()),
	}, nil
}

func (a *Adapter) PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "buy-limit", base, quoted, qty, rate)
}

func (a *Adapter) PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	return a.place(ctx, "sell-limit", base, quoted, qty, rate)
}

func (a *Adapter) Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error) {
	params := url.Values{}
	a.sign(http.MethodPost, "/v1/order/orders/"+uuid+"/submitcancel", params)
	u := fmt.Sprintf("%s/v1/order/orders/%s/submitcancel?%s", baseURL, uuid, params.Encode())
	req, _ := http.NewRequest(http.MethodPost, u, nil)
	body, err := a.http.DoFollowingRedirect(ctx, req)
	if err != nil {
		return false, err
	}
	var env huobiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return false, exchange.Transport(err)
	}
	if env.Status != "ok" {
		return false, nil
	}
	return true, nil
}

func (a *Adapter) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	return market.LotSize{}, nil
}
