// Package store defines the storefront's persisted entities and the
// Ledger port they are read and written through.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Ledger lookups for missing products or orders.
var ErrNotFound = errors.New("store: not found")

// PaymentStatus is the lifecycle state of an order's payment.
type PaymentStatus = string

const (
	StatusPending   PaymentStatus = "pending"
	StatusCompleted PaymentStatus = "completed"
	StatusFailed    PaymentStatus = "failed"
)

// Product is a catalog entry. Products are created out-of-band (seeding)
// and read-only in the checkout flows.
//
// Price is a float because the gateway takes unit_price as floating point
// and amounts are whole CLP; no money arithmetic happens locally. Switch to
// a fixed-point representation before adding any.
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       float64
}

// Order is one row in the order ledger.
//
// PaymentStatus normally holds one of the Status* constants, but the webhook
// persists the gateway's status string verbatim (e.g. "approved",
// "in_process"), so the field is deliberately not a closed enum.
type Order struct {
	ID            int64
	ProductID     int64
	CreatedAt     time.Time
	PaymentID     string // external gateway reference, empty until known
	PaymentStatus PaymentStatus
}

// Ledger is the port for catalog and order persistence.
type Ledger interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateProduct(ctx context.Context, p *Product) error

	// CreateOrder inserts a pending order for the given product and fills
	// in the generated ID and CreatedAt.
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id int64) (*Order, error)
	// SetPayment records the payment reference and status for an order.
	// Last write wins: callbacks and the webhook race on this by design.
	SetPayment(ctx context.Context, id int64, paymentID, status string) error
	DeleteOrder(ctx context.Context, id int64) error
}
