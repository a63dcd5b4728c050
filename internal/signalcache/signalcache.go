// Package signalcache tracks, per (exchange, pair, strategy), the
// newest candle a signal was last computed from, so an unchanged candle
// never re-fires the same signal twice. Grounded on spec.md §6 and
// invariant 5: at most one entry per key, with a non-decreasing
// opened_at.
package signalcache

import (
	"sync"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

// Key identifies one cached signal slot.
type Key struct {
	Exchange     currency.Exchange
	Base, Quoted currency.Currency
	Strategy     string
}

// Cache is safe for concurrent use by one worker goroutine per trade
// configuration, per the concurrency model in spec.md §5 — no shared
// mutable state is expected across configurations, but the mutex guards
// the stats worker's read-only snapshot access.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]market.Candle
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key]market.Candle)}
}

// Seen reports whether candle is already the cached newest candle for
// key — i.e. whether re-computing the signal on it would be a duplicate.
func (c *Cache) Seen(key Key, candle market.Candle) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.entries[key]
	if !ok {
		return false
	}
	return cached.Equal(candle)
}

// Update records candle as the newest seen for key, regardless of
// whether it produced a signal, per spec.md §4.6 step 6.
func (c *Cache) Update(key Key, candle market.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = candle
}

// Get returns the cached candle for key, if any.
func (c *Cache) Get(key Key) (market.Candle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	candle, ok := c.entries[key]
	return candle, ok
}

// Snapshot returns a copy of every cached entry, for UI/stats reporting.
func (c *Cache) Snapshot() map[Key]market.Candle {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[Key]market.Candle, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
