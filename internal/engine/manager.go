package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tradecore/internal/config"
	"tradecore/internal/currency"
	"tradecore/internal/exchange"
	"tradecore/internal/logger"
	"tradecore/internal/signalcache"
	"tradecore/internal/stats"
	"tradecore/internal/store"
	"tradecore/internal/strategy"
)

// Manager owns one Worker per active trade configuration and runs them
// concurrently, per the concurrency model in spec.md §5.
type Manager struct {
	workers []*Worker
	timeout time.Duration
	log     logger.Logger
	pub     *stats.Publisher
}

// NewManager builds a Worker for every active configuration in cfg,
// resolving each configuration's exchange adapter and named strategy.
// Tick snapshots are published through pub, which may be nil.
func NewManager(cfg *config.Config, strategies map[string]*strategy.Strategy, st *store.Store, log logger.Logger, pub *stats.Publisher) (*Manager, error) {
	m := &Manager{
		timeout: time.Duration(cfg.App.TradingTimeoutMinutes) * time.Minute,
		log:     log,
		pub:     pub,
	}

	for _, tc := range cfg.Trades {
		if !tc.Active {
			continue
		}
		strat, ok := strategies[tc.StrategyName]
		if !ok {
			return nil, fmt.Errorf("engine: trade configuration %q references unknown strategy %q", tc.Name, tc.StrategyName)
		}
		tag := currency.ParseExchange(tc.StockExchange.ExchangeTag)
		ex, err := exchange.New(tag, tc.StockExchange.APIKey, tc.StockExchange.SecretKey, tc.StockExchange.AccountID)
		if err != nil {
			return nil, fmt.Errorf("engine: trade configuration %q: %w", tc.Name, err)
		}
		m.workers = append(m.workers, NewWorker(tc, ex, strat, st, signalcache.New(), log, pub))
	}
	return m, nil
}

// Run starts every worker in its own goroutine and blocks until ctx is
// canceled and all workers have returned.
func (m *Manager) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range m.workers {
		wg.Add(1)
		go func(w *Worker) {
			defer wg.Done()
			w.Run(ctx, m.timeout)
		}(w)
	}
	wg.Wait()
}

// ActiveConfigurations reports how many workers are running.
func (m *Manager) ActiveConfigurations() int { return len(m.workers) }
