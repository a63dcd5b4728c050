// Package binance adapts the exchange.Exchange capability to Binance via
// github.com/adshao/go-binance/v2, which already handles HMAC-SHA256
// request signing and server-time retrieval, so this adapter does not
// hand-roll either.
package binance

import (
	"context"
	"strconv"
	"strings"
	"time"

	binancesdk "github.com/adshao/go-binance/v2"

	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/market"
)

// Adapter implements exchange.Exchange for Binance.
type Adapter struct {
	client *binancesdk.Client
}

func New() *Adapter {
	return &Adapter{client: binancesdk.NewClient("", "")}
}

func (a *Adapter) Tag() currency.Exchange { return currency.Binance }

func (a *Adapter) SetCredentials(apiKey, secretKey string) {
	a.client = binancesdk.NewClient(apiKey, secretKey)
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "Invalid symbol"):
		return exchange.InvalidPair(msg)
	case strings.Contains(msg, "insufficient balance"):
		return exchange.InsufficientFunds(msg)
	default:
		return exchange.Transport(err)
	}
}

func (a *Adapter) GetTicker(ctx context.Context, base, quoted currency.Currency) (market.CurrencyTick, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	books, err := a.client.NewListBookTickersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return market.CurrencyTick{}, classify(err)
	}
	if len(books) == 0 {
		return market.CurrencyTick{}, exchange.InvalidPair(symbol)
	}
	bid, _ := strconv.ParseFloat(books[0].BidPrice, 64)
	ask, _ := strconv.ParseFloat(books[0].AskPrice, 64)
	return market.CurrencyTick{Bid: bid, Ask: ask, Base: base, Quoted: quoted}, nil
}

func binanceInterval(i market.Interval) string {
	switch i {
	case market.Interval1m:
		return "1m"
	case market.Interval5m:
		return "5m"
	case market.Interval15m:
		return "15m"
	case market.Interval1h:
		return "1h"
	case market.Interval4h:
		return "4h"
	case market.Interval1d:
		return "1d"
	default:
		return "1m"
	}
}

func (a *Adapter) GetCandles(ctx context.Context, base, quoted currency.Currency, interval market.Interval) ([]market.Candle, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	klines, err := a.client.NewKlinesService().Symbol(symbol).Interval(binanceInterval(interval)).Limit(150).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	candles := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		open, _ := strconv.ParseFloat(k.Open, 64)
		high, _ := strconv.ParseFloat(k.High, 64)
		low, _ := strconv.ParseFloat(k.Low, 64)
		closeP, _ := strconv.ParseFloat(k.Close, 64)
		volume, _ := strconv.ParseFloat(k.Volume, 64)
		candles = append(candles, market.Candle{
			Timestamp: time.UnixMilli(k.OpenTime).UTC(),
			Open:      open, High: high, Low: low, Close: closeP, Volume: volume,
		})
	}
	return candles, nil
}

func (a *Adapter) GetBalance(ctx context.Context, c currency.Currency) (float64, error) {
	account, err := a.client.NewGetAccountService().Do(ctx)
	if err != nil {
		return 0, classify(err)
	}
	for _, b := range account.Balances {
		if strings.EqualFold(b.Asset, c.String()) {
			f, _ := strconv.ParseFloat(b.Free, 64)
			return f, nil
		}
	}
	return 0, nil
}

func toMarketOrder(o *binancesdk.Order, base, quoted currency.Currency) market.MarketOrder {
	side := market.Buy
	if o.Side == binancesdk.SideTypeSell {
		side = market.Sell
	}
	price, _ := strconv.ParseFloat(o.Price, 64)
	qty, _ := strconv.ParseFloat(o.OrigQuantity, 64)
	return market.MarketOrder{
		UUID: strconv.FormatInt(o.OrderID, 10), Base: base, Quoted: quoted, Side: side,
		Exchange: currency.Binance, Quantity: qty, Price: price,
		OpenedAt: exchange.ServerTimeOrLocal(time.UnixMilli(o.Time)),
		Canceled: o.Status == binancesdk.OrderStatusTypeCanceled,
	}
}

func (a *Adapter) GetAccountOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	orders, err := a.client.NewListOpenOrdersService().Symbol(symbol).Do(ctx)
	if err != nil {
		return nil, classify(err)
	}
	result := make([]market.MarketOrder, 0, len(orders))
	for _, o := range orders {
		result = append(result, toMarketOrder(o, base, quoted))
	}
	return result, nil
}

// GetMarketOpenOrders does not fetch the public order book: it always
// returns no orders and a nil error.
func (a *Adapter) GetMarketOpenOrders(ctx context.Context, base, quoted currency.Currency) ([]market.MarketOrder, error) {
	return nil, nil
}

func (a *Adapter) GetAccountOrder(ctx context.Context, base, quoted currency.Currency, uuid string) (market.MarketOrder, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	id, err := strconv.ParseInt(uuid, 10, 64)
	if err != nil {
		return market.MarketOrder{}, exchange.NoData("invalid order id: " + uuid)
	}
	o, err := a.client.NewGetOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return market.MarketOrder{}, exchange.NoData("order not found: " + uuid)
	}
	return toMarketOrder(&binancesdk.Order{
		OrderID: o.OrderID, Side: o.Side, Price: o.Price, OrigQuantity: o.OrigQuantity,
		Time: o.Time, Status: o.Status,
	}, base, quoted), nil
}

func (a *Adapter) place(ctx context.Context, side binancesdk.SideType, base, quoted currency.Currency, qty, rate float64, lot market.LotSize) (market.MarketOrder, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	rounded := lot.Round(qty)
	order, err := a.client.NewCreateOrderService().
		Symbol(symbol).
		Side(side).
		Type(binancesdk.OrderTypeLimit).
		TimeInForce(binancesdk.TimeInForceTypeGTC).
		Quantity(market.FormatCoin(rounded)).
		Price(market.FormatCoin(rate)).
		Do(ctx)
	if err != nil {
		return market.MarketOrder{}, classify(err)
	}
	s := market.Buy
	if side == binancesdk.SideTypeSell {
		s = market.Sell
	}
	return market.MarketOrder{
		UUID: strconv.FormatInt(order.OrderID, 10), Base: base, Quoted: quoted, Side: s,
		Exchange: currency.Binance, Quantity: rounded, Price: rate,
		OpenedAt: exchange.ServerTimeOrLocal(time.UnixMilli(order.TransactTime)),
	}, nil
}

func (a *Adapter) PlaceBuy(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	lot, _ := a.GetLotSize(ctx, base, quoted)
	return a.place(ctx, binancesdk.SideTypeBuy, base, quoted, qty, rate, lot)
}

func (a *Adapter) PlaceSell(ctx context.Context, base, quoted currency.Currency, qty, rate float64) (market.MarketOrder, error) {
	lot, _ := a.GetLotSize(ctx, base, quoted)
	return a.place(ctx, binancesdk.SideTypeSell, base, quoted, qty, rate, lot)
}

func (a *Adapter) Cancel(ctx context.Context, base, quoted currency.Currency, uuid string) (bool, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	id, err := strconv.ParseInt(uuid, 10, 64)
	if err != nil {
		return false, exchange.StockExchangeError("invalid order id: " + uuid)
	}
	_, err = a.client.NewCancelOrderService().Symbol(symbol).OrderID(id).Do(ctx)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// GetLotSize reads the LOT_SIZE filter from the exchange info endpoint,
// Binance being the one exchange in this core that requires step-size
// rounding of order quantities.
func (a *Adapter) GetLotSize(ctx context.Context, base, quoted currency.Currency) (market.LotSize, error) {
	symbol := currency.ToPair(currency.Binance, base, quoted)
	info, err := a.client.NewExchangeInfoService().Symbol(symbol).Do(ctx)
	if err != nil || len(info.Symbols) == 0 {
		return market.LotSize{}, classify(err)
	}
	for _, f := range info.Symbols[0].Filters {
		if f["filterType"] == "LOT_SIZE" {
			minQty, _ := strconv.ParseFloat(f["minQty"].(string), 64)
			maxQty, _ := strconv.ParseFloat(f["maxQty"].(string), 64)
			step, _ := strconv.ParseFloat(f["stepSize"].(string), 64)
			return market.LotSize{MinQty: minQty, MaxQty: maxQty, StepSize: step}, nil
		}
	}
	return market.LotSize{}, nil
}
