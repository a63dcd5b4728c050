// Package store persists trade state to PostgreSQL across the four
// tables named in spec.md §4.4: orders, order_profit, order_matching,
// and last_tick. No table cascades into another; callers that want
// cascading deletes compose the Remove* calls themselves.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"tradecore/internal/currency"
	"tradecore/internal/market"
)

// Store is a PostgreSQL-backed implementation of the persistent store.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL and verifies the connection with a ping.
func Open(connectionString string) (*Store, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

const schema = `
CREATE TABLE IF NOT EXISTS orders (
	db_id SERIAL PRIMARY KEY,
	uuid TEXT NOT NULL,
	base TEXT NOT NULL,
	quoted TEXT NOT NULL,
	side TEXT NOT NULL,
	exchange TEXT NOT NULL,
	qty DOUBLE PRECISION NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	opened_at TIMESTAMPTZ NOT NULL,
	canceled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS order_profit (
	id SERIAL PRIMARY KEY,
	order_id INTEGER NOT NULL REFERENCES orders(db_id),
	currency TEXT NOT NULL,
	exchange TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_matching (
	id SERIAL PRIMARY KEY,
	from_order_id INTEGER NOT NULL REFERENCES orders(db_id),
	to_order_id INTEGER NOT NULL REFERENCES orders(db_id),
	from_side TEXT NOT NULL,
	to_side TEXT NOT NULL,
	exchange TEXT NOT NULL,
	pair_string TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS last_tick (
	id SERIAL PRIMARY KEY,
	exchange TEXT NOT NULL,
	base TEXT NOT NULL,
	quoted TEXT NOT NULL,
	strategy_type TEXT NOT NULL,
	opened_at TIMESTAMPTZ NOT NULL,
	open DOUBLE PRECISION NOT NULL,
	close DOUBLE PRECISION NOT NULL,
	low DOUBLE PRECISION NOT NULL,
	high DOUBLE PRECISION NOT NULL,
	volume DOUBLE PRECISION NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_orders_exchange ON orders(exchange, base, quoted);
CREATE INDEX IF NOT EXISTS idx_order_profit_order ON order_profit(order_id);
CREATE INDEX IF NOT EXISTS idx_order_matching_from_to ON order_matching(from_order_id, to_order_id);
CREATE INDEX IF NOT EXISTS idx_last_tick_lookup ON last_tick(exchange, base, quoted, strategy_type);
`

// Migrate creates the schema if it does not already exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// InsertOrder adds a new order row and returns its db_id.
func (s *Store) InsertOrder(ctx context.Context, o market.MarketOrder) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO orders (uuid, base, quoted, side, exchange, qty, price, opened_at, canceled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING db_id
	`, o.UUID, o.Base.String(), o.Quoted.String(), o.Side.String(), o.Exchange.String(),
		o.Quantity, o.Price, o.OpenedAt, o.Canceled).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("store: insert order: %w", err)
	}
	return id, nil
}

// RemoveOrder deletes one order by db_id. Does not cascade into
// order_profit or order_matching; see RemoveCurrencyProfit and
// RemoveCurrencyOrdersMatching.
func (s *Store) RemoveOrder(ctx context.Context, dbID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE db_id = $1`, dbID)
	if err != nil {
		return fmt.Errorf("store: remove order: %w", err)
	}
	return nil
}

// BrowseOrders returns all open orders for an exchange, optionally
// narrowed to one (base, quoted) pair when quoted != currency.Unknown.
func (s *Store) BrowseOrders(ctx context.Context, ex currency.Exchange, base, quoted currency.Currency) ([]market.MarketOrder, int64, error) {
	query := `SELECT db_id, uuid, base, quoted, side, exchange, qty, price, opened_at, canceled FROM orders WHERE exchange = $1`
	args := []interface{}{ex.String()}
	if quoted != currency.Unknown {
		query += ` AND base = $2 AND quoted = $3`
		args = append(args, base.String(), quoted.String())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: browse orders: %w", err)
	}
	defer rows.Close()

	var orders []market.MarketOrder
	var lastID int64
	for rows.Next() {
		var (
			dbID                 int64
			uuid, baseS, quoteS  string
			sideS, exchangeS     string
			qty, price           float64
			openedAt             time.Time
			canceled             bool
		)
		if err := rows.Scan(&dbID, &uuid, &baseS, &quoteS, &sideS, &exchangeS, &qty, &price, &openedAt, &canceled); err != nil {
			return nil, 0, fmt.Errorf("store: scan order: %w", err)
		}
		b := currency.Parse(baseS)
		q := currency.Parse(quoteS)
		side := market.Buy
		if sideS == "sell" {
			side = market.Sell
		}
		orders = append(orders, market.MarketOrder{
			DBID: dbID, UUID: uuid, Base: b, Quoted: q, Side: side, Exchange: ex,
			Quantity: qty, Price: price, OpenedAt: openedAt, Canceled: canceled,
		})
		lastID = dbID
	}
	return orders, lastID, nil
}

// OrdersProfit groups the filled BUY orders currently awaiting a
// matching SELL for one currency.
type OrdersProfit struct {
	Currency currency.Currency
	Exchange currency.Exchange
	Orders   []market.MarketOrder
}

// InsertOrderProfit records that dbID (an order already in `orders`)
// belongs to the open profit set for c on exchange ex.
func (s *Store) InsertOrderProfit(ctx context.Context, dbID int64, c currency.Currency, ex currency.Exchange) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_profit (order_id, currency, exchange) VALUES ($1, $2, $3)
	`, dbID, c.String(), ex.String())
	if err != nil {
		return fmt.Errorf("store: insert order_profit: %w", err)
	}
	return nil
}

// RemoveCurrencyProfit removes every order_profit row for c on ex,
// without touching the underlying orders rows.
func (s *Store) RemoveCurrencyProfit(ctx context.Context, c currency.Currency, ex currency.Exchange) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM order_profit WHERE currency = $1 AND exchange = $2`, c.String(), ex.String())
	if err != nil {
		return fmt.Errorf("store: remove currency profit: %w", err)
	}
	return nil
}

// BrowseOrdersProfit reconstructs each OrdersProfit group for ex by
// joining order_profit back to orders via order_id.
func (s *Store) BrowseOrdersProfit(ctx context.Context, ex currency.Exchange) ([]OrdersProfit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.db_id, o.uuid, o.base, o.quoted, o.side, o.exchange, o.qty, o.price, o.opened_at, o.canceled,
		       p.currency
		FROM order_profit p
		JOIN orders o ON o.db_id = p.order_id
		WHERE p.exchange = $1
		ORDER BY p.currency
	`, ex.String())
	if err != nil {
		return nil, fmt.Errorf("store: browse orders_profit: %w", err)
	}
	defer rows.Close()

	groups := map[currency.Currency]*OrdersProfit{}
	var order []currency.Currency
	for rows.Next() {
		var (
			dbID                int64
			uuid, baseS, quoteS string
			sideS, exchangeS    string
			qty, price          float64
			openedAt            time.Time
			canceled            bool
			currencyS           string
		)
		if err := rows.Scan(&dbID, &uuid, &baseS, &quoteS, &sideS, &exchangeS, &qty, &price, &openedAt, &canceled, &currencyS); err != nil {
			return nil, fmt.Errorf("store: scan order_profit: %w", err)
		}
		b := currency.Parse(baseS)
		q := currency.Parse(quoteS)
		c := currency.Parse(currencyS)
		side := market.Buy
		if sideS == "sell" {
			side = market.Sell
		}
		o := market.MarketOrder{DBID: dbID, UUID: uuid, Base: b, Quoted: q, Side: side, Exchange: ex, Quantity: qty, Price: price, OpenedAt: openedAt, Canceled: canceled}
		g, ok := groups[c]
		if !ok {
			g = &OrdersProfit{Currency: c, Exchange: ex}
			groups[c] = g
			order = append(order, c)
		}
		g.Orders = append(g.Orders, o)
	}
	result := make([]OrdersProfit, 0, len(order))
	for _, c := range order {
		result = append(result, *groups[c])
	}
	return result, nil
}

// InsertOrderMatching records a matched (from, to) order pair.
func (s *Store) InsertOrderMatching(ctx context.Context, fromID, toID int64, fromSide, toSide market.Side, ex currency.Exchange, pairString string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO order_matching (from_order_id, to_order_id, from_side, to_side, exchange, pair_string)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, fromID, toID, fromSide.String(), toSide.String(), ex.String(), pairString)
	if err != nil {
		return fmt.Errorf("store: insert order_matching: %w", err)
	}
	return nil
}

// RemoveCurrencyOrdersMatching removes every order_matching row whose
// pair_string matches pairString on ex.
func (s *Store) RemoveCurrencyOrdersMatching(ctx context.Context, ex currency.Exchange, pairString string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM order_matching WHERE exchange = $1 AND pair_string = $2`, ex.String(), pairString)
	if err != nil {
		return fmt.Errorf("store: remove currency orders_matching: %w", err)
	}
	return nil
}

// MatchedPair is one row of a BrowseOrdersMatching result: the matched
// from/to orders joined back from order_matching.
type MatchedPair struct {
	From market.MarketOrder
	To   market.MarketOrder
}

// BrowseOrdersMatching joins order_matching twice, once for the from
// order and once for the to order, for every row on ex.
func (s *Store) BrowseOrdersMatching(ctx context.Context, ex currency.Exchange) ([]MatchedPair, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			f.db_id, f.uuid, f.base, f.quoted, f.side, f.qty, f.price, f.opened_at, f.canceled,
			t.db_id, t.uuid, t.base, t.quoted, t.side, t.qty, t.price, t.opened_at, t.canceled
		FROM order_matching m
		JOIN orders f ON f.db_id = m.from_order_id
		JOIN orders t ON t.db_id = m.to_order_id
		WHERE m.exchange = $1
	`, ex.String())
	if err != nil {
		return nil, fmt.Errorf("store: browse orders_matching: %w", err)
	}
	defer rows.Close()

	var result []MatchedPair
	for rows.Next() {
		var (
			fDBID, tDBID           int64
			fUUID, fBase, fQuoted  string
			fSide                  string
			fQty, fPrice           float64
			fOpened                time.Time
			fCanceled              bool
			tUUID, tBase, tQuoted  string
			tSide                  string
			tQty, tPrice           float64
			tOpened                time.Time
			tCanceled              bool
		)
		err := rows.Scan(
			&fDBID, &fUUID, &fBase, &fQuoted, &fSide, &fQty, &fPrice, &fOpened, &fCanceled,
			&tDBID, &tUUID, &tBase, &tQuoted, &tSide, &tQty, &tPrice, &tOpened, &tCanceled,
		)
		if err != nil {
			return nil, fmt.Errorf("store: scan order_matching: %w", err)
		}
		result = append(result, MatchedPair{
			From: toOrder(fDBID, fUUID, fBase, fQuoted, fSide, ex, fQty, fPrice, fOpened, fCanceled),
			To:   toOrder(tDBID, tUUID, tBase, tQuoted, tSide, ex, tQty, tPrice, tOpened, tCanceled),
		})
	}
	return result, nil
}

// PositionSummary is one row of BrowseOpenPositionsSummary: an order
// still open on its exchange, paired with the most recent last_tick
// close price for its pair so the stats worker can mark it to market.
type PositionSummary struct {
	Order        market.MarketOrder
	CurrentPrice float64
	HasPrice     bool
}

// BrowseOpenPositionsSummary reconciles an open-position view across all
// four core tables for ex, for the stats worker's periodic sweep: every
// uncanceled order that does not yet appear as a from_order_id in
// order_matching (i.e. has not been closed out by a later order), joined
// against last_tick for a mark-to-market price. An order only shows up
// here once, even if it also has order_profit rows, since profit
// attribution is a many-to-one annotation rather than a second position.
func (s *Store) BrowseOpenPositionsSummary(ctx context.Context, ex currency.Exchange) ([]PositionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.db_id, o.uuid, o.base, o.quoted, o.side, o.qty, o.price, o.opened_at, o.canceled,
		       lt.close
		FROM orders o
		LEFT JOIN order_matching m ON m.from_order_id = o.db_id
		LEFT JOIN LATERAL (
			SELECT close FROM last_tick lt
			WHERE lt.exchange = o.exchange AND lt.base = o.base AND lt.quoted = o.quoted
			ORDER BY lt.opened_at DESC
			LIMIT 1
		) lt ON TRUE
		WHERE o.exchange = $1 AND o.canceled = FALSE AND m.from_order_id IS NULL
		ORDER BY o.opened_at
	`, ex.String())
	if err != nil {
		return nil, fmt.Errorf("store: browse open positions summary: %w", err)
	}
	defer rows.Close()

	var result []PositionSummary
	for rows.Next() {
		var (
			dbID                int64
			uuid, baseS, quoteS string
			sideS               string
			qty, price          float64
			openedAt            time.Time
			canceled            bool
			closePrice          sql.NullFloat64
		)
		if err := rows.Scan(&dbID, &uuid, &baseS, &quoteS, &sideS, &qty, &price, &openedAt, &canceled, &closePrice); err != nil {
			return nil, fmt.Errorf("store: scan open positions summary: %w", err)
		}
		order := toOrder(dbID, uuid, baseS, quoteS, sideS, ex, qty, price, openedAt, canceled)
		result = append(result, PositionSummary{Order: order, CurrentPrice: closePrice.Float64, HasPrice: closePrice.Valid})
	}
	return result, nil
}

func toOrder(dbID int64, uuid, baseS, quoteS, sideS string, ex currency.Exchange, qty, price float64, openedAt time.Time, canceled bool) market.MarketOrder {
	b := currency.Parse(baseS)
	q := currency.Parse(quoteS)
	side := market.Buy
	if sideS == "sell" {
		side = market.Sell
	}
	return market.MarketOrder{DBID: dbID, UUID: uuid, Base: b, Quoted: q, Side: side, Exchange: ex, Quantity: qty, Price: price, OpenedAt: openedAt, Canceled: canceled}
}

// RemoveMarketOrders deletes every orders row for ex (and, by
// consequence of the foreign keys, must be called after the caller has
// already cleared order_profit/order_matching for that market).
func (s *Store) RemoveMarketOrders(ctx context.Context, ex currency.Exchange, base, quoted currency.Currency) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE exchange = $1 AND base = $2 AND quoted = $3`, ex.String(), base.String(), quoted.String())
	if err != nil {
		return fmt.Errorf("store: remove market orders: %w", err)
	}
	return nil
}

// LastTick is the most recent candle cached per (exchange, pair,
// strategy), used to skip re-fetching unchanged data, per spec.md §6.
type LastTick struct {
	Exchange     currency.Exchange
	Base, Quoted currency.Currency
	StrategyType string
	Candle       market.Candle
}

// UpsertLastTick replaces the cached last tick for one (exchange, pair,
// strategy) key.
func (s *Store) UpsertLastTick(ctx context.Context, lt LastTick) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin upsert last_tick: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM last_tick WHERE exchange = $1 AND base = $2 AND quoted = $3 AND strategy_type = $4
	`, lt.Exchange.String(), lt.Base.String(), lt.Quoted.String(), lt.StrategyType)
	if err != nil {
		return fmt.Errorf("store: clear last_tick: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO last_tick (exchange, base, quoted, strategy_type, opened_at, open, close, low, high, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, lt.Exchange.String(), lt.Base.String(), lt.Quoted.String(), lt.StrategyType,
		lt.Candle.Timestamp, lt.Candle.Open, lt.Candle.Close, lt.Candle.Low, lt.Candle.High, lt.Candle.Volume)
	if err != nil {
		return fmt.Errorf("store: insert last_tick: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit last_tick: %w", err)
	}
	return nil
}

// GetLastTick returns the cached last tick for one key, if any.
func (s *Store) GetLastTick(ctx context.Context, ex currency.Exchange, base, quoted currency.Currency, strategyType string) (LastTick, bool, error) {
	var lt LastTick
	lt.Exchange, lt.Base, lt.Quoted, lt.StrategyType = ex, base, quoted, strategyType
	err := s.db.QueryRowContext(ctx, `
		SELECT opened_at, open, close, low, high, volume FROM last_tick
		WHERE exchange = $1 AND base = $2 AND quoted = $3 AND strategy_type = $4
	`, ex.String(), base.String(), quoted.String(), strategyType).Scan(
		&lt.Candle.Timestamp, &lt.Candle.Open, &lt.Candle.Close, &lt.Candle.Low, &lt.Candle.High, &lt.Candle.Volume,
	)
	if err == sql.ErrNoRows {
		return LastTick{}, false, nil
	}
	if err != nil {
		return LastTick{}, false, fmt.Errorf("store: get last_tick: %w", err)
	}
	return lt, true, nil
}
