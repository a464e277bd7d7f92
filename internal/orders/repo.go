package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/money"
	"github.com/greenrow/seedshop-backend/pkg/pagination"
)

// ErrStatusChanged reports a conditional status update that matched no row.
var ErrStatusChanged = errors.New("order status changed concurrently")

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC").Order("id ASC")
	})
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := withLines(r.db.WithContext(ctx)).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOpenByCustomer returns the customer's cart order, the newest one in status new.
func (r *repository) FindOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withLines(r.db.WithContext(ctx)).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusNew).
		Order("created_at DESC").
		First(&order).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByCustomer pages through placed orders, newest first.
func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	q := withLines(r.db.WithContext(ctx)).
		Where("customer_id = ? AND status <> ?", customerID, enums.OrderStatusNew)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	var rows []models.Order
	err = q.Order("created_at DESC").
		Order("id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	list := &OrderList{Orders: make([]OrderListItem, 0, len(rows))}
	if len(rows) > limit {
		last := rows[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:limit]
	}
	for _, o := range rows {
		list.Orders = append(list.Orders, OrderListItem{
			ID:        o.ID,
			Status:    o.Status,
			LineCount: len(o.Lines),
			Subtotal:  money.FromCents(o.SubtotalCents()),
			PlacedAt:  o.PlacedAt,
			CreatedAt: o.CreatedAt,
		})
	}
	return list, nil
}

// LockOpenByCustomer is FindOpenByCustomer with the row locked for update. Run
// it inside the transaction that saves the cart.
func (r *repository) LockOpenByCustomer(ctx context.Context, customerID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := withLines(r.db.WithContext(ctx)).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND status = ?", customerID, enums.OrderStatusNew).
		Order("created_at DESC").
		First(&order).
		Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Save inserts a new order or rewrites an open cart, and replaces its lines.
// An existing row is only written while it is still in status new; a cart that
// was placed in the meantime fails with ErrStatusChanged. Run it inside a
// transaction.
func (r *repository) Save(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
		if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
	} else if err := r.updateOpen(ctx, order); err != nil {
		return err
	}

	if err := db.Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
		return fmt.Errorf("clear order lines: %w", err)
	}
	if len(order.Lines) == 0 {
		return nil
	}
	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		if order.Lines[i].ID == uuid.Nil {
			order.Lines[i].ID = uuid.New()
		}
	}
	if err := db.Create(&order.Lines).Error; err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

func (r *repository) updateOpen(ctx context.Context, order *models.Order) error {
	db := r.db.WithContext(ctx)
	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, enums.OrderStatusNew).
		Updates(map[string]any{
			"customer_id":      order.CustomerID,
			"session_id":       order.SessionID,
			"email":            order.Email,
			"shipping_address": order.ShippingAddress,
			"billing_address":  order.BillingAddress,
			"shipping_cents":   order.ShippingCents,
			"tax_cents":        order.TaxCents,
		})
	if res.Error != nil {
		return fmt.Errorf("update order: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
		return fmt.Errorf("check order: %w", err)
	}
	if count > 0 {
		return ErrStatusChanged
	}
	if err := db.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateStatus moves the order from one status to another, writing any extra
// columns in the same statement. It fails with ErrStatusChanged when the row is
// no longer in status from.
func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, updates map[string]any) error {
	values := map[string]any{"status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// FindPendingBefore lists orders still awaiting payment that were placed before cutoff.
func (r *repository) FindPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("status IN ? AND placed_at < ?", []enums.OrderStatus{enums.OrderStatusPendingPayment, enums.OrderStatusPaymentRejected}, cutoff).
		Order("placed_at ASC").
		Limit(limit).
		Find(&rows).
		Error
	return rows, err
}
