package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/pagination"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

func openOrdersDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY, customer_id TEXT, session_id TEXT, email TEXT,
			status TEXT NOT NULL DEFAULT 'new', shipping_address TEXT, billing_address TEXT,
			shipping_cents INTEGER, tax_cents INTEGER, payment_processor TEXT, payment_reference TEXT, payment_attempts INTEGER NOT NULL DEFAULT 0,
			placed_at DATETIME, paid_at DATETIME, created_at DATETIME, updated_at DATETIME)`,
		`CREATE TABLE order_lines (
			id TEXT PRIMARY KEY, order_id TEXT NOT NULL, packet_id TEXT NOT NULL, cultivar_id TEXT NOT NULL,
			sku TEXT NOT NULL, label TEXT NOT NULL, quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL, created_at DATETIME, updated_at DATETIME)`,
	} {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func cartOrder(customerID uuid.UUID, qty ...int) *models.Order {
	order := &models.Order{CustomerID: &customerID, Status: enums.OrderStatusNew}
	for i, q := range qty {
		order.Lines = append(order.Lines, models.OrderLine{
			PacketID:       uuid.New(),
			CultivarID:     uuid.New(),
			SKU:            fmt.Sprintf("SKU-%d", i),
			Label:          "100 seeds",
			Quantity:       q,
			UnitPriceCents: 350,
		})
	}
	return order
}

func TestSaveReplacesLines(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	customer := uuid.New()

	order := cartOrder(customer, 1, 2)
	require.NoError(t, repo.Save(ctx, order))
	require.NotEqual(t, uuid.Nil, order.ID)

	order.Lines = order.Lines[:1]
	order.Lines[0].Quantity = 4
	require.NoError(t, repo.Save(ctx, order))

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 4, got.Lines[0].Quantity)
	assert.Equal(t, int64(1400), got.SubtotalCents())

	open, err := repo.FindOpenByCustomer(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, order.ID, open.ID)
}

func TestSaveWithinTransactionRollsBack(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := cartOrder(uuid.New(), 1)

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := repo.WithTx(tx).Save(ctx, order); err != nil {
			return err
		}
		return fmt.Errorf("boom")
	})
	require.Error(t, err)

	_, err = repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUpdateStatusIsConditional(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	order := cartOrder(uuid.New(), 1)
	order.ShippingAddress = &types.Address{Name: "Ada", Line1: "1 Main", City: "Portland", State: "OR", PostalCode: "97201", Country: "US"}
	require.NoError(t, repo.Save(ctx, order))

	placedAt := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusNew, enums.OrderStatusPendingPayment, map[string]any{"placed_at": placedAt}))
	assert.ErrorIs(t, repo.UpdateStatus(ctx, order.ID, enums.OrderStatusNew, enums.OrderStatusCancelled, nil), ErrStatusChanged)

	got, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, got.Status)
	require.NotNil(t, got.ShippingAddress)
	assert.Equal(t, "US-OR", got.ShippingAddress.Region())

	stale, err := repo.FindPendingBefore(ctx, time.Now().UTC(), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, order.ID, stale[0].ID)

	none, err := repo.FindPendingBefore(ctx, placedAt.Add(-time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSaveDoesNotRewritePlacedOrder(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	customer := uuid.New()

	require.NoError(t, repo.Save(ctx, cartOrder(customer, 1)))
	stale, err := repo.FindOpenByCustomer(ctx, customer)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateStatus(ctx, stale.ID, enums.OrderStatusNew, enums.OrderStatusPendingPayment, map[string]any{
		"placed_at": time.Now().UTC(),
	}))

	stale.Lines[0].Quantity = 9
	assert.ErrorIs(t, repo.Save(ctx, stale), ErrStatusChanged)

	got, err := repo.FindByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPendingPayment, got.Status)
	assert.NotNil(t, got.PlacedAt)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 1, got.Lines[0].Quantity)

	_, err = repo.FindOpenByCustomer(ctx, customer)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestLockOpenByCustomerInsideTransaction(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	customer := uuid.New()
	require.NoError(t, repo.Save(ctx, cartOrder(customer, 2)))

	err := conn.Transaction(func(tx *gorm.DB) error {
		txRepo := repo.WithTx(tx)
		open, err := txRepo.LockOpenByCustomer(ctx, customer)
		if err != nil {
			return err
		}
		open.Lines[0].Quantity++
		return txRepo.Save(ctx, open)
	})
	require.NoError(t, err)

	got, err := repo.FindOpenByCustomer(ctx, customer)
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 3, got.Lines[0].Quantity)
}

func TestListByCustomerPaginates(t *testing.T) {
	conn := openOrdersDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	customer := uuid.New()

	open := cartOrder(customer, 1)
	require.NoError(t, repo.Save(ctx, open))
	for i := 0; i < 3; i++ {
		placed := cartOrder(customer, i+1)
		placed.Status = enums.OrderStatusPaid
		placed.CreatedAt = time.Now().UTC().Add(time.Duration(-i) * time.Minute)
		require.NoError(t, repo.Save(ctx, placed))
	}
	require.NoError(t, repo.Save(ctx, func() *models.Order {
		o := cartOrder(uuid.New(), 1)
		o.Status = enums.OrderStatusPaid
		return o
	}()))

	first, err := repo.ListByCustomer(ctx, customer, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := repo.ListByCustomer(ctx, customer, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Empty(t, second.NextCursor)

	for _, item := range append(first.Orders, second.Orders...) {
		assert.NotEqual(t, open.ID, item.ID, "open cart must not be listed")
	}
}

func TestViewerCanSee(t *testing.T) {
	customer := uuid.New()
	session := "sess-1"
	byCustomer := &models.Order{CustomerID: &customer}
	bySession := &models.Order{SessionID: &session}
	other := uuid.New()

	assert.True(t, Viewer{CustomerID: &customer}.CanSee(byCustomer))
	assert.False(t, Viewer{CustomerID: &other}.CanSee(byCustomer))
	assert.True(t, Viewer{SessionID: session}.CanSee(bySession))
	assert.False(t, Viewer{}.CanSee(bySession))
	assert.True(t, Viewer{CanManageOrders: true}.CanSee(byCustomer))
}
