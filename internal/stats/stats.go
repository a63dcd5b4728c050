// Package stats publishes engine-tick snapshots onto a bounded channel
// for the UI and API layers to drain, replacing the teacher's direct
// worker-to-hub broadcast calls with message passing between the engine
// goroutine and any number of readers. Grounded on spec.md's Design
// Note under REDESIGN FLAGS: "the engine publishes snapshots of state
// after each tick onto a bounded channel that the UI drains."
package stats

import (
	"sort"
	"time"

	"tradecore/internal/currency"
	"tradecore/internal/strategy"
)

// CurrencySignal is the strategy decision reached for one traded
// currency during a tick.
type CurrencySignal struct {
	Currency currency.Currency   `json:"currency"`
	Decision strategy.Decision   `json:"decision"`
}

// Snapshot is the state of one trade configuration after a single
// engine tick. It is re-derived from the in-memory holder rather than
// carrying order contents, so a snapshot never goes stale relative to
// what the exchange or the store would report.
type Snapshot struct {
	ConfigurationName string           `json:"configuration_name"`
	Exchange          currency.Exchange `json:"exchange"`
	BaseCurrency      currency.Currency `json:"base_currency"`
	Timestamp         time.Time         `json:"timestamp"`

	OpenBuyOrders    int     `json:"open_buy_orders"`
	OpenSellOrders   int     `json:"open_sell_orders"`
	ProfitGroupCount int     `json:"profit_group_count"`
	CoinInTrading    float64 `json:"coin_in_trading"`

	Signals []CurrencySignal `json:"signals,omitempty"`
}

// Publisher is a bounded fan-out point: the engine pushes snapshots in,
// any number of subscribers read a private copy of the stream out.
// Publish never blocks the engine tick; a slow or absent subscriber
// only misses snapshots, it never stalls trading.
type Publisher struct {
	register   chan chan Snapshot
	unregister chan chan Snapshot
	publish    chan Snapshot
	done       chan struct{}
}

// NewPublisher starts the fan-out goroutine and returns a ready
// Publisher. Call Close when the engine shuts down.
func NewPublisher() *Publisher {
	p := &Publisher{
		register:   make(chan chan Snapshot),
		unregister: make(chan chan Snapshot),
		publish:    make(chan Snapshot, 256),
		done:       make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	subscribers := make(map[chan Snapshot]struct{})
	for {
		select {
		case ch := <-p.register:
			subscribers[ch] = struct{}{}
		case ch := <-p.unregister:
			if _, ok := subscribers[ch]; ok {
				delete(subscribers, ch)
				close(ch)
			}
		case snap := <-p.publish:
			for ch := range subscribers {
				select {
				case ch <- snap:
				default:
					// Subscriber's buffer is full: drop the snapshot
					// for that subscriber rather than block the tick.
				}
			}
		case <-p.done:
			for ch := range subscribers {
				close(ch)
			}
			return
		}
	}
}

// Publish hands a snapshot to the fan-out loop. It never blocks on a
// subscriber; if the internal buffer itself is full the snapshot is
// dropped, matching the bounded-channel semantics the engine relies on.
func (p *Publisher) Publish(snap Snapshot) {
	select {
	case p.publish <- snap:
	default:
	}
}

// Subscribe returns a bounded channel of future snapshots. The caller
// must keep draining it and call Unsubscribe when done.
func (p *Publisher) Subscribe() chan Snapshot {
	ch := make(chan Snapshot, 32)
	p.register <- ch
	return ch
}

// Unsubscribe stops delivery to ch and closes it.
func (p *Publisher) Unsubscribe(ch chan Snapshot) {
	p.unregister <- ch
}

// Close stops the fan-out goroutine and closes every subscriber
// channel.
func (p *Publisher) Close() {
	close(p.done)
}

// SortSignals orders signals by currency code for deterministic
// display, since map iteration elsewhere in the engine is not ordered.
func SortSignals(signals []CurrencySignal) {
	sort.Slice(signals, func(i, j int) bool {
		return signals[i].Currency.String() < signals[j].Currency.String()
	})
}
