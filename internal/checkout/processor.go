package checkout

import (
	"context"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	"github.com/stripe/stripe-go/v84"

	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/square"
	pkgstripe "github.com/greenrow/seedshop-backend/pkg/stripe"
)

// ChargeRequest is what the core hands a processor. SourceToken is the opaque
// token produced by the processor's client widget; card data never reaches us.
type ChargeRequest struct {
	OrderID        uuid.UUID
	AmountCents    int64
	Email          string
	SourceToken    string
	IdempotencyKey string
}

// ChargeResult reports a settled or declined charge. Declines are not errors.
type ChargeResult struct {
	Approved      bool
	Reference     string
	AmountCents   int64
	DeclineReason string
}

// Processor charges an order total through a hosted payment provider.
type Processor interface {
	Name() enums.PaymentProcessor
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type squarePayments interface {
	CreatePayment(ctx context.Context, params square.PaymentCreateParams) (*sq.Payment, error)
}

// SquareProcessor charges card nonces through the Payments API.
type SquareProcessor struct {
	client squarePayments
}

func NewSquareProcessor(client squarePayments) *SquareProcessor {
	return &SquareProcessor{client: client}
}

func (p *SquareProcessor) Name() enums.PaymentProcessor { return enums.PaymentProcessorSquare }

func (p *SquareProcessor) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	payment, err := p.client.CreatePayment(ctx, square.PaymentCreateParams{
		AmountCents:    req.AmountCents,
		Currency:       "USD",
		SourceID:       req.SourceToken,
		BuyerEmail:     req.Email,
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    req.OrderID.String(),
		Note:           "seed order " + req.OrderID.String(),
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodePayment) {
			return &ChargeResult{Approved: false, DeclineReason: err.Error()}, nil
		}
		return nil, err
	}
	if payment == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "square returned no payment")
	}

	result := &ChargeResult{}
	if payment.ID != nil {
		result.Reference = *payment.ID
	}
	if payment.AmountMoney != nil && payment.AmountMoney.Amount != nil {
		result.AmountCents = *payment.AmountMoney.Amount
	}
	status := ""
	if payment.Status != nil {
		status = strings.ToUpper(*payment.Status)
	}
	switch status {
	case "COMPLETED", "APPROVED":
		result.Approved = true
	default:
		result.DeclineReason = "payment status " + strings.ToLower(status)
	}
	return result, nil
}

type stripeCharger interface {
	Charge(ctx context.Context, params pkgstripe.ChargeParams) (*stripe.PaymentIntent, error)
}

// StripeProcessor confirms PaymentIntents from a PaymentMethod id.
type StripeProcessor struct {
	client stripeCharger
}

func NewStripeProcessor(client stripeCharger) *StripeProcessor {
	return &StripeProcessor{client: client}
}

func (p *StripeProcessor) Name() enums.PaymentProcessor { return enums.PaymentProcessorStripe }

func (p *StripeProcessor) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	intent, err := p.client.Charge(ctx, pkgstripe.ChargeParams{
		AmountCents:     req.AmountCents,
		PaymentMethodID: req.SourceToken,
		ReceiptEmail:    req.Email,
		IdempotencyKey:  req.IdempotencyKey,
		Metadata:        map[string]string{"order_id": req.OrderID.String()},
	})
	if err != nil {
		if pkgerrors.Is(err, pkgerrors.CodePayment) {
			return &ChargeResult{Approved: false, DeclineReason: err.Error()}, nil
		}
		return nil, err
	}
	if intent == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe returned no payment intent")
	}
	result := &ChargeResult{Reference: intent.ID, AmountCents: intent.Amount}
	if intent.Status == stripe.PaymentIntentStatusSucceeded {
		result.Approved = true
	} else {
		result.DeclineReason = "payment intent " + string(intent.Status)
	}
	return result, nil
}
