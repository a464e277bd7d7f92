package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

// Order is both the customer's open cart (status new) and the placed purchase.
type Order struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID       *uuid.UUID              `gorm:"column:customer_id;type:uuid"`
	SessionID        *string                 `gorm:"column:session_id"`
	Email            *string                 `gorm:"column:email"`
	Status           enums.OrderStatus       `gorm:"column:status;type:order_status;not null;default:'new'"`
	ShippingAddress  *types.Address          `gorm:"column:shipping_address;type:jsonb"`
	BillingAddress   *types.Address          `gorm:"column:billing_address;type:jsonb"`
	ShippingCents    *int64                  `gorm:"column:shipping_cents"`
	TaxCents         *int64                  `gorm:"column:tax_cents"`
	PaymentProcessor *enums.PaymentProcessor `gorm:"column:payment_processor"`
	PaymentReference *string                 `gorm:"column:payment_reference"`
	PaymentAttempts  int                     `gorm:"column:payment_attempts;not null;default:0"`
	PlacedAt         *time.Time              `gorm:"column:placed_at"`
	PaidAt           *time.Time              `gorm:"column:paid_at"`
	Lines            []OrderLine             `gorm:"foreignKey:OrderID"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents sums every line regardless of stock or shipping restrictions.
func (o Order) SubtotalCents() int64 {
	var total int64
	for _, line := range o.Lines {
		total += line.TotalCents()
	}
	return total
}
