// Package sqlite backs the catalog, the inventory ledger, and the order and
// status stores with one SQLite database. Keeping them in one database is the
// point: a checkout's conditional stock decrements commit in a single ACID
// transaction, and the order batch with its initial status rows commits in
// another, so no reader ever observes a half-applied batch.
//
// WAL mode is enabled on Open so that readers never block writers: checkout
// workers write while read endpoints query.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// Register the pure-Go SQLite driver. modernc.org/sqlite avoids CGO,
	// which keeps cross-compilation and Alpine images simple.
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
    product_id   TEXT PRIMARY KEY,
    vendor_id    TEXT    NOT NULL,
    name         TEXT    NOT NULL DEFAULT '',
    unit_price   INTEGER NOT NULL,
    in_stock     INTEGER NOT NULL CHECK (in_stock >= 0),
    origin_code  TEXT    NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS orders (
    order_id            TEXT PRIMARY KEY,
    customer_id         TEXT    NOT NULL,
    vendor_id           TEXT    NOT NULL,
    shipping_profile_id TEXT    NOT NULL,
    payment_method_id   TEXT    NOT NULL,
    shipping_fee        INTEGER NOT NULL CHECK (shipping_fee >= 0),
    created_at          TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS order_lines (
    -- Surrogate key preserves line order within an order.
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id   TEXT    NOT NULL REFERENCES orders(order_id),
    product_id TEXT    NOT NULL,
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    unit_price INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS order_status_history (
    -- Append-only: each row is an immutable event in the order's lifecycle.
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id    TEXT NOT NULL REFERENCES orders(order_id),
    status      TEXT NOT NULL,
    message     TEXT NOT NULL DEFAULT '',
    occurred_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_lines_order ON order_lines(order_id);
CREATE INDEX IF NOT EXISTS idx_status_history_order ON order_status_history(order_id);
`

// Store implements catalog.Gateway, inventory.Ledger, and order.Repository
// over a single SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// SQLite allows one writer at a time; serialize access on the pool side
	// instead of surfacing SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// encodeTime / decodeTime keep timestamps lexicographically sortable in TEXT
// columns while round-tripping to nanosecond precision.
func encodeTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func decodeTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
