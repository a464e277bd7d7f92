package checkout

import (
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/types"
)

// BeginInput carries the contact and address data collected at checkout.
type BeginInput struct {
	Email           string
	ShippingAddress *types.Address
	BillingAddress  *types.Address
}

// PayInput selects the processor and forwards its opaque token.
type PayInput struct {
	Processor   string
	SourceToken string
}

// TransitionInput is a staff status move.
type TransitionInput struct {
	To     string
	Reason string
}

// OrderDetail is the order summary plus checkout and payment fields.
type OrderDetail struct {
	cart.Summary
	CustomerID       *uuid.UUID              `json:"customer_id,omitempty"`
	Email            *string                 `json:"email,omitempty"`
	ShippingAddress  *types.Address          `json:"shipping_address,omitempty"`
	BillingAddress   *types.Address          `json:"billing_address,omitempty"`
	PaymentProcessor *enums.PaymentProcessor `json:"payment_processor,omitempty"`
	PaymentReference *string                 `json:"payment_reference,omitempty"`
	PlacedAt         *time.Time              `json:"placed_at,omitempty"`
	PaidAt           *time.Time              `json:"paid_at,omitempty"`
}

func newOrderDetail(order *models.Order, cultivars map[uuid.UUID]models.Cultivar) *OrderDetail {
	return &OrderDetail{
		Summary:          cart.Summarize(order, cultivars),
		CustomerID:       order.CustomerID,
		Email:            order.Email,
		ShippingAddress:  order.ShippingAddress,
		BillingAddress:   order.BillingAddress,
		PaymentProcessor: order.PaymentProcessor,
		PaymentReference: order.PaymentReference,
		PlacedAt:         order.PlacedAt,
		PaidAt:           order.PaidAt,
	}
}
