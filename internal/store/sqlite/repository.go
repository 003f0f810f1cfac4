// Package sqlite provides a SQLite-backed implementation of store.Ledger.
//
// WAL mode is enabled on Open so that readers never block writers and vice
// versa — important because the webhook goroutine writes while a browser
// callback for the same order may be reading or writing concurrently.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/tienda/internal/store"

	// Register the pure-Go SQLite driver.
	// We use modernc.org/sqlite instead of mattn/go-sqlite3 to avoid CGO
	// requirements, making it easier to build and run in Docker (Alpine).
	_ "modernc.org/sqlite"
)

// schema is the DDL executed once on startup.
const schema = `
CREATE TABLE IF NOT EXISTS products (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    name         TEXT    NOT NULL,
    description  TEXT    NOT NULL DEFAULT '',

    -- Price in the store currency. Checkout sends it to the gateway as a
    -- floating-point unit_price, so REAL matches the wire format.
    price        REAL    NOT NULL CHECK (price >= 0)
);

CREATE TABLE IF NOT EXISTS orders (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Exactly one product per order; removing a product removes its orders.
    product_id      INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,

    -- Wall-clock creation time (RFC3339 stored as TEXT, SQLite idiom).
    created_at      TEXT    NOT NULL,

    -- External gateway payment reference. NULL until the gateway reports it.
    payment_id      TEXT,

    -- Normally pending/completed/failed, but the webhook stores the raw
    -- gateway status string, so the column is not CHECK-constrained.
    payment_status  TEXT    NOT NULL DEFAULT 'pending'
);

CREATE INDEX IF NOT EXISTS idx_orders_product_id ON orders(product_id);
`

// Ledger is the SQLite implementation of store.Ledger.
type Ledger struct {
	db *sql.DB
}

var _ store.Ledger = (*Ledger)(nil)

// Open opens (or creates) the SQLite database at the given path and applies
// the schema. WAL mode is enabled for better concurrent read/write performance.
//
//	ledger, err := sqlite.Open("./data/store.db")
func Open(path string) (*Ledger, error) {
	// The pure-Go driver uses _pragma query parameters to configure connection state.
	// WAL enables concurrent readers. foreign_keys=on enforces the
	// product→order cascade. busy_timeout waits for locks instead of failing.
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	// Use "sqlite", not "sqlite3" for the modernc driver.
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}

	// SQLite performs best with a single writer connection.
	db.SetMaxOpenConns(1)

	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Ledger{db: db}, nil
}

// Close releases the database connection. Call it with defer in main().
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) ListProducts(ctx context.Context) ([]store.Product, error) {
	const q = `SELECT id, name, description, price FROM products ORDER BY id`

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	defer rows.Close()

	var products []store.Product
	for rows.Next() {
		var p store.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price); err != nil {
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list products: %w", err)
	}
	return products, nil
}

func (l *Ledger) GetProduct(ctx context.Context, id int64) (*store.Product, error) {
	const q = `SELECT id, name, description, price FROM products WHERE id = ?`

	var p store.Product
	err := l.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.Description, &p.Price)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get product %d: %w", id, err)
	}
	return &p, nil
}

func (l *Ledger) CreateProduct(ctx context.Context, p *store.Product) error {
	const q = `INSERT INTO products (name, description, price) VALUES (?, ?, ?)`

	res, err := l.db.ExecContext(ctx, q, p.Name, p.Description, p.Price)
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create product %q: %w", p.Name, err)
	}
	return nil
}

// CreateOrder inserts a pending order row. It fills in o.ID and o.CreatedAt.
func (l *Ledger) CreateOrder(ctx context.Context, o *store.Order) error {
	const q = `
		INSERT INTO orders (product_id, created_at, payment_id, payment_status)
		VALUES (?, ?, ?, ?)`

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = store.StatusPending
	}

	res, err := l.db.ExecContext(ctx, q,
		o.ProductID,
		o.CreatedAt.UTC().Format(time.RFC3339Nano),
		nullableString(o.PaymentID),
		o.PaymentStatus,
	)
	if err != nil {
		return fmt.Errorf("sqlite: create order for product %d: %w", o.ProductID, err)
	}
	o.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("sqlite: create order for product %d: %w", o.ProductID, err)
	}
	return nil
}

func (l *Ledger) GetOrder(ctx context.Context, id int64) (*store.Order, error) {
	const q = `
		SELECT id, product_id, created_at, COALESCE(payment_id, ''), payment_status
		FROM   orders
		WHERE  id = ?`

	var o store.Order
	var createdAt string
	err := l.db.QueryRowContext(ctx, q, id).Scan(
		&o.ID,
		&o.ProductID,
		&createdAt,
		&o.PaymentID,
		&o.PaymentStatus,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get order %d: %w", id, err)
	}

	o.CreatedAt, err = parseRFC3339(createdAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// SetPayment records the gateway reference and status. Last write wins.
func (l *Ledger) SetPayment(ctx context.Context, id int64, paymentID, status string) error {
	const q = `UPDATE orders SET payment_id = ?, payment_status = ? WHERE id = ?`

	res, err := l.db.ExecContext(ctx, q, nullableString(paymentID), status, id)
	if err != nil {
		return fmt.Errorf("sqlite: set payment for order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: set payment for order %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (l *Ledger) DeleteOrder(ctx context.Context, id int64) error {
	const q = `DELETE FROM orders WHERE id = ?`

	res, err := l.db.ExecContext(ctx, q, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: delete order %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// applySchema runs the DDL statements once. Idempotent due to IF NOT EXISTS.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings so SQLite stores NULL instead
// of an empty TEXT — keeps payment_id NULL until the gateway reports one.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
