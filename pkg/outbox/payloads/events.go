package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// OrderPlacedEvent is emitted when checkout moves an order to pending_payment.
type OrderPlacedEvent struct {
	OrderID       uuid.UUID  `json:"order_id"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	Email         string     `json:"email"`
	LineCount     int        `json:"line_count"`
	SubtotalCents int64      `json:"subtotal_cents"`
	ShippingCents int64      `json:"shipping_cents"`
	TaxCents      int64      `json:"tax_cents"`
	TotalCents    int64      `json:"total_cents"`
	PlacedAt      time.Time  `json:"placed_at"`
}

// OrderPaidEvent is emitted after the processor captured the order total.
type OrderPaidEvent struct {
	OrderID          uuid.UUID              `json:"order_id"`
	Processor        enums.PaymentProcessor `json:"processor"`
	PaymentReference string                 `json:"payment_reference"`
	AmountCents      int64                  `json:"amount_cents"`
	PaidAt           time.Time              `json:"paid_at"`
}

// PaymentRejectedEvent is emitted when the processor declined a charge.
type PaymentRejectedEvent struct {
	OrderID     uuid.UUID              `json:"order_id"`
	Processor   enums.PaymentProcessor `json:"processor"`
	AmountCents int64                  `json:"amount_cents"`
	Reason      string                 `json:"reason,omitempty"`
}

// OrderStatusChangedEvent covers staff transitions and expiry.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Reason    string            `json:"reason,omitempty"`
	ChangedAt time.Time         `json:"changed_at"`
}
