// Package engine implements the trading control loop of spec.md §4.6:
// one worker goroutine per active trade configuration, running the
// seven-step tick (reconcile, cancel timeouts, compute signals,
// admission-gated BUY, profit-gated SELL, cache update, sleep) with no
// shared mutable state across configurations. Grounded on the teacher's
// internal/engine/engine.go Run-loop shape, generalized from a single
// backtest candle feed to the live per-configuration tick contract.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradecore/internal/config"
	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/logger"
	"tradecore/internal/market"
	"tradecore/internal/signalcache"
	"tradecore/internal/stats"
	"tradecore/internal/store"
	"tradecore/internal/strategy"
	"tradecore/internal/trade"
)

// Worker runs the tick loop for one trade configuration.
type Worker struct {
	cfg      config.TradeConfiguration
	exchange exchange.Exchange
	strategy *strategy.Strategy
	store    *store.Store
	cache    *signalcache.Cache
	log      logger.Logger
	pub      *stats.Publisher

	holder *trade.Holder
}

// NewWorker wires together one trade configuration's dependencies. pub
// may be nil, in which case tick snapshots are simply not published.
func NewWorker(cfg config.TradeConfiguration, ex exchange.Exchange, strat *strategy.Strategy, st *store.Store, cache *signalcache.Cache, log logger.Logger, pub *stats.Publisher) *Worker {
	return &Worker{
		cfg: cfg, exchange: ex, strategy: strat, store: st, cache: cache, log: log, pub: pub,
		holder: trade.New(),
	}
}

// Run executes the tick loop until ctx is canceled, sleeping to the
// configuration's trading_timeout boundary between ticks.
func (w *Worker) Run(ctx context.Context, timeout time.Duration) {
	w.log.Info("worker starting", "configuration", w.cfg.Name, "strategy", w.cfg.StrategyName)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped", "configuration", w.cfg.Name)
			return
		default:
		}

		tickStart := time.Now()
		w.tick(ctx)

		elapsed := time.Since(tickStart)
		sleepFor := timeout - elapsed
		if sleepFor < 0 {
			sleepFor = 0
		}
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped", "configuration", w.cfg.Name)
			return
		case <-time.After(sleepFor):
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	base := currency.Parse(w.cfg.CoinSettings.BaseCurrency)
	for _, raw := range w.cfg.CoinSettings.TradedCurrencies {
		c := currency.Parse(raw)
		if c == currency.Unknown {
			w.log.Warn("skipping unknown traded currency", "value", raw, "configuration", w.cfg.Name)
			continue
		}
		if err := w.reconcile(ctx, base, c); err != nil {
			w.log.Error("reconcile failed", "pair", pairLabel(base, c), "error", err)
			continue
		}
		w.cancelTimeouts(ctx, base, c)
	}

	var signals []stats.CurrencySignal
	for _, raw := range w.cfg.CoinSettings.TradedCurrencies {
		c := currency.Parse(raw)
		if c == currency.Unknown {
			continue
		}
		decision, candles, err := w.computeSignal(ctx, base, c)
		if err != nil {
			w.log.Error("signal computation failed", "pair", pairLabel(base, c), "error", err)
			continue
		}
		signals = append(signals, stats.CurrencySignal{Currency: c, Decision: decision})
		if len(candles) > 0 {
			w.updateCache(base, c, candles[len(candles)-1])
		}
		switch decision {
		case strategy.Buy:
			w.tryBuy(ctx, base, c)
		case strategy.Sell:
			w.trySell(ctx, base, c)
		}
	}

	w.publishSnapshot(base, signals)
}

func (w *Worker) publishSnapshot(base currency.Currency, signals []stats.CurrencySignal) {
	if w.pub == nil {
		return
	}
	stats.SortSignals(signals)
	w.pub.Publish(stats.Snapshot{
		ConfigurationName: w.cfg.Name,
		Exchange:          w.exchange.Tag(),
		BaseCurrency:      base,
		Timestamp:         time.Now(),
		OpenBuyOrders:     w.holder.BuyOrdersCount(),
		OpenSellOrders:    w.holder.SellOrdersCount(),
		ProfitGroupCount:  w.holder.ProfitGroupCount(),
		CoinInTrading:     w.holder.CoinInTradingCount(),
		Signals:           signals,
	})
}

func pairLabel(base, quoted currency.Currency) string {
	return fmt.Sprintf("%s/%s", base.String(), quoted.String())
}

// reconcile implements step 1: fetch remote open orders for (base, c)
// and compare with local state, moving filled/canceled orders out of
// open_buys/open_sells.
func (w *Worker) reconcile(ctx context.Context, base, c currency.Currency) error {
	remote, err := w.exchange.GetAccountOpenOrders(ctx, base, c)
	if err != nil {
		return err
	}

	var localBuys []market.MarketOrder
	w.holder.ForEachBuyOrder(func(o market.MarketOrder) {
		if o.Quoted == c {
			localBuys = append(localBuys, o)
		}
	})
	missingBuys := diffByUUID(localBuys, remote)
	for _, o := range missingBuys {
		w.reconcileMissingBuy(ctx, c, o)
	}

	var localSells []market.MarketOrder
	w.holder.ForEachSellOrder(func(o market.MarketOrder) {
		if o.Quoted == c {
			localSells = append(localSells, o)
		}
	})
	missingSells := diffByUUID(localSells, remote)
	for _, o := range missingSells {
		w.reconcileMissingSell(ctx, base, c, o)
	}
	return nil
}

func diffByUUID(local, remote []market.MarketOrder) []market.MarketOrder {
	remoteSet := make(map[string]struct{}, len(remote))
	for _, o := range remote {
		remoteSet[o.UUID] = struct{}{}
	}
	var missing []market.MarketOrder
	for _, o := range local {
		if _, ok := remoteSet[o.UUID]; !ok {
			missing = append(missing, o)
		}
	}
	return missing
}

func (w *Worker) reconcileMissingBuy(ctx context.Context, c currency.Currency, o market.MarketOrder) {
	reported, err := w.exchange.GetAccountOrder(ctx, o.Base, o.Quoted, o.UUID)
	if err != nil {
		var exErr *exchange.Error
		if errors.As(err, &exErr) && exErr.Kind == exchange.KindNoData && cancellationDelayElapsed(o, w.cfg.BuySettings.MaxOpenTimeMinutes) {
			w.holder.RemoveBuyOrder(o)
			_ = w.store.RemoveOrder(ctx, o.DBID)
		}
		return
	}
	if reported.Canceled {
		w.holder.RemoveBuyOrder(o)
		_ = w.store.RemoveOrder(ctx, o.DBID)
		return
	}
	// Filled: move from open_buys to orders_profit[C].
	w.holder.RemoveBuyOrder(o)
	w.holder.OrdersProfitFor(c).Add(o)
	_ = w.store.InsertOrderProfit(ctx, o.DBID, c, w.exchange.Tag())
}

func (w *Worker) reconcileMissingSell(ctx context.Context, base, c currency.Currency, o market.MarketOrder) {
	reported, err := w.exchange.GetAccountOrder(ctx, o.Base, o.Quoted, o.UUID)
	if err != nil {
		return
	}
	if reported.Canceled {
		w.holder.RemoveSellOrder(o)
		_ = w.store.RemoveOrder(ctx, o.DBID)
		return
	}
	// Filled: record the (sell, matched buy) and remove the buy from
	// orders_profit[C].
	matchedBuy, ok := w.holder.Matching().MatchOf(o)
	w.holder.RemoveSellOrder(o)
	if ok {
		w.holder.OrdersProfitFor(c).Remove(matchedBuy)
		_ = w.store.InsertOrderMatching(ctx, matchedBuy.DBID, o.DBID, market.Sell, market.Buy, w.exchange.Tag(), pairLabel(base, c))
	}
}

func cancellationDelayElapsed(o market.MarketOrder, maxOpenTimeMinutes int) bool {
	return time.Since(o.OpenedAt) > time.Duration(maxOpenTimeMinutes)*time.Minute
}

// cancelTimeouts implements step 2.
func (w *Worker) cancelTimeouts(ctx context.Context, base, c currency.Currency) {
	var buys []market.MarketOrder
	w.holder.ForEachBuyOrder(func(o market.MarketOrder) {
		if o.Quoted == c {
			buys = append(buys, o)
		}
	})
	for _, o := range buys {
		if time.Since(o.OpenedAt) <= time.Duration(w.cfg.BuySettings.MaxOpenTimeMinutes)*time.Minute {
			continue
		}
		ok, err := w.exchange.Cancel(ctx, o.Base, o.Quoted, o.UUID)
		if err != nil || !ok {
			continue
		}
		w.holder.RemoveBuyOrder(o)
		_ = w.store.RemoveOrder(ctx, o.DBID)
	}

	var sells []market.MarketOrder
	w.holder.ForEachSellOrder(func(o market.MarketOrder) {
		if o.Quoted == c {
			sells = append(sells, o)
		}
	})
	for _, o := range sells {
		if time.Since(o.OpenedAt) <= time.Duration(w.cfg.SellSettings.OpenOrderTimeMinutes)*time.Minute {
			continue
		}
		ok, err := w.exchange.Cancel(ctx, o.Base, o.Quoted, o.UUID)
		if err != nil || !ok {
			continue
		}
		matchedBuy, found := w.holder.Matching().MatchOf(o)
		w.holder.RemoveSellOrder(o)
		w.holder.Matching().Remove(o)
		if found {
			w.holder.OrdersProfitFor(c).Add(matchedBuy)
		}
		_ = w.store.RemoveOrder(ctx, o.DBID)
	}
}

// defaultIndicatorWindow bounds how many trailing candles are fed to the
// strategy each tick; indicator periods are configured well below this.
const defaultIndicatorWindow = 150

// computeSignal implements step 3.
func (w *Worker) computeSignal(ctx context.Context, base, c currency.Currency) (strategy.Decision, []market.Candle, error) {
	candles, err := w.exchange.GetCandles(ctx, base, c, market.Interval1h)
	if err != nil {
		// As in tryBuy: the adapter already retried once against the
		// redirect's Location internally. A KindRedirect here means that
		// retry redirected too, so take the engine's one permitted retry
		// of the whole call (spec.md §4.1/§7) before abandoning the tick
		// for this currency.
		var exErr *exchange.Error
		if errors.As(err, &exErr) && exErr.Kind == exchange.KindRedirect {
			candles, err = w.exchange.GetCandles(ctx, base, c, market.Interval1h)
		}
		if err != nil {
			return strategy.NoDecision, nil, err
		}
	}
	if len(candles) == 0 {
		return strategy.NoDecision, nil, nil
	}
	if len(candles) > defaultIndicatorWindow {
		candles = candles[len(candles)-defaultIndicatorWindow:]
	}

	key := signalcache.Key{Exchange: w.exchange.Tag(), Base: base, Quoted: c, Strategy: w.strategy.Name}
	newest := candles[len(candles)-1]
	if w.cache.Seen(key, newest) {
		return strategy.NoDecision, candles, nil
	}

	decision, err := w.strategy.Evaluate(candles)
	if err != nil {
		return strategy.NoDecision, candles, err
	}
	return decision, candles, nil
}

func (w *Worker) updateCache(base, c currency.Currency, candle market.Candle) {
	key := signalcache.Key{Exchange: w.exchange.Tag(), Base: base, Quoted: c, Strategy: w.strategy.Name}
	w.cache.Update(key, candle)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = w.store.UpsertLastTick(ctx, store.LastTick{
		Exchange: w.exchange.Tag(), Base: base, Quoted: c, StrategyType: w.strategy.Name, Candle: candle,
	})
}

// tryBuy implements step 4: admission-gated BUY.
func (w *Worker) tryBuy(ctx context.Context, base, c currency.Currency) {
	bs := w.cfg.BuySettings

	if w.holder.BuyOrdersCount() >= bs.MaxOpenOrders {
		return
	}
	openForC := 0
	w.holder.ForEachBuyOrder(func(o market.MarketOrder) {
		if o.Quoted == c {
			openForC++
		}
	})
	if w.holder.OrdersProfitFor(c).Len()+openForC >= bs.OpenPositionsPerCoin {
		return
	}

	proposedCost := bs.MaxCoinAmount * bs.PercentageBuyAmount / 100
	if proposedCost < bs.MinOrderPrice {
		return
	}
	if w.holder.CoinInTradingCount()+proposedCost > bs.MaxCoinAmount {
		return
	}

	// The adapter itself already retries once against the redirect's own
	// Location (HTTPClient.DoFollowingRedirect); reaching KindRedirect here
	// means that retry also redirected, so this is the engine's one
	// permitted retry of the whole call per spec.md §4.1/§7.
	tick, err := w.exchange.GetTicker(ctx, base, c)
	if err != nil {
		var exErr *exchange.Error
		if errors.As(err, &exErr) && exErr.Kind == exchange.KindRedirect {
			tick, err = w.exchange.GetTicker(ctx, base, c)
		}
		if err != nil {
			w.log.Error("get ticker failed", "pair", pairLabel(base, c), "error", err)
			return
		}
	}
	if tick.Bid <= 0 {
		return
	}

	qty := proposedCost / tick.Bid
	lot, err := w.exchange.GetLotSize(ctx, base, c)
	if err == nil && !lot.Empty() {
		qty = lot.Round(qty)
	}
	if qty*tick.Bid < bs.MinOrderPrice {
		return
	}

	order, err := w.exchange.PlaceBuy(ctx, base, c, qty, tick.Bid)
	if err != nil {
		var exErr *exchange.Error
		if errors.As(err, &exErr) && exErr.Kind == exchange.KindInsufficientFunds {
			return
		}
		w.log.Error("place buy failed", "pair", pairLabel(base, c), "error", err)
		return
	}

	dbID, err := w.store.InsertOrder(ctx, order)
	if err != nil {
		w.log.Error("persist buy failed", "pair", pairLabel(base, c), "error", err)
	}
	order.DBID = dbID
	w.holder.AddBuyOrder(order)
}

// trySell implements step 5: profit-gated SELL.
func (w *Worker) trySell(ctx context.Context, base, c currency.Currency) {
	profit := w.holder.OrdersProfitFor(c)
	if profit.Len() == 0 {
		return
	}

	tick, err := w.exchange.GetTicker(ctx, base, c)
	if err != nil {
		w.log.Error("get ticker failed", "pair", pairLabel(base, c), "error", err)
		return
	}

	var admitted []market.MarketOrder
	profit.ForEach(func(buy market.MarketOrder) {
		target := buy.Price * (1 + w.cfg.SellSettings.ProfitPercentage/100)
		if tick.Ask >= target {
			admitted = append(admitted, buy)
		}
	})

	for _, buy := range admitted {
		target := buy.Price * (1 + w.cfg.SellSettings.ProfitPercentage/100)
		rate := tick.Ask
		if target > rate {
			rate = target
		}

		sell, err := w.exchange.PlaceSell(ctx, base, c, buy.Quantity, rate)
		if err != nil {
			var exErr *exchange.Error
			if errors.As(err, &exErr) && exErr.Kind == exchange.KindInsufficientFunds {
				continue
			}
			w.log.Error("place sell failed", "pair", pairLabel(base, c), "error", err)
			continue
		}

		dbID, err := w.store.InsertOrder(ctx, sell)
		if err != nil {
			w.log.Error("persist sell failed", "pair", pairLabel(base, c), "error", err)
		}
		sell.DBID = dbID

		w.holder.AddSellOrder(sell)
		profit.Remove(buy)
		w.holder.Matching().Add(sell, buy)
	}
}
