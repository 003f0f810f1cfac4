package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/tienda/internal/store"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()

	ledger, err := Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	return ledger
}

func TestProductRoundTrip(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)

	p := &store.Product{Name: "Café de grano", Description: "1 kg, tueste medio", Price: 12990}
	require.NoError(t, ledger.CreateProduct(ctx, p))
	require.NotZero(t, p.ID)

	got, err := ledger.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Description, got.Description)
	assert.Equal(t, p.Price, got.Price)

	products, err := ledger.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, p.ID, products[0].ID)
}

func TestGetProductNotFound(t *testing.T) {
	ledger := openTestLedger(t)

	_, err := ledger.GetProduct(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateOrderDefaults(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)

	p := &store.Product{Name: "Té verde", Price: 3500}
	require.NoError(t, ledger.CreateProduct(ctx, p))

	o := &store.Order{ProductID: p.ID}
	require.NoError(t, ledger.CreateOrder(ctx, o))
	require.NotZero(t, o.ID)

	got, err := ledger.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusPending, got.PaymentStatus)
	assert.Empty(t, got.PaymentID)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSetPayment(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)

	p := &store.Product{Name: "Mate", Price: 9990}
	require.NoError(t, ledger.CreateProduct(ctx, p))
	o := &store.Order{ProductID: p.ID}
	require.NoError(t, ledger.CreateOrder(ctx, o))

	require.NoError(t, ledger.SetPayment(ctx, o.ID, "pay-123", store.StatusCompleted))

	got, err := ledger.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "pay-123", got.PaymentID)
	assert.Equal(t, store.StatusCompleted, got.PaymentStatus)

	// The webhook writes raw gateway statuses; the column must accept them.
	require.NoError(t, ledger.SetPayment(ctx, o.ID, "pay-123", "in_process"))
	got, err = ledger.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "in_process", got.PaymentStatus)
}

func TestSetPaymentNotFound(t *testing.T) {
	ledger := openTestLedger(t)

	err := ledger.SetPayment(context.Background(), 99, "pay-1", store.StatusCompleted)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteOrder(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)

	p := &store.Product{Name: "Azúcar", Price: 1200}
	require.NoError(t, ledger.CreateProduct(ctx, p))
	o := &store.Order{ProductID: p.ID}
	require.NoError(t, ledger.CreateOrder(ctx, o))

	require.NoError(t, ledger.DeleteOrder(ctx, o.ID))

	_, err := ledger.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, ledger.DeleteOrder(ctx, o.ID), store.ErrNotFound)
}

func TestDeleteProductCascadesOrders(t *testing.T) {
	ctx := context.Background()
	ledger := openTestLedger(t)

	p := &store.Product{Name: "Harina", Price: 1800}
	require.NoError(t, ledger.CreateProduct(ctx, p))
	o := &store.Order{ProductID: p.ID}
	require.NoError(t, ledger.CreateOrder(ctx, o))

	_, err := ledger.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, p.ID)
	require.NoError(t, err)

	_, err = ledger.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}
