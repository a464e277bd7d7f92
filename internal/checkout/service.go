package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/checkout/helpers"
	"github.com/greenrow/seedshop-backend/internal/orders"
	pkgcheckout "github.com/greenrow/seedshop-backend/pkg/checkout"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/idempotency"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
	"github.com/greenrow/seedshop-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartLoader interface {
	Load(ctx context.Context, key cart.Key) (*models.Order, map[uuid.UUID]models.Cultivar, error)
	Discard(ctx context.Context, key cart.Key) error
}

type cultivarLookup interface {
	FindCultivarsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Cultivar, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type paymentGuard interface {
	Claim(ctx context.Context, scope, id string) (bool, error)
	Release(ctx context.Context, scope, id string) error
}

type checkoutObserver interface {
	IncCheckout(step, outcome string)
}

var paymentScope = idempotency.Scope("payment", "order")

// Service places orders, takes payment, and moves orders through fulfilment.
type Service interface {
	Begin(ctx context.Context, key cart.Key, input BeginInput) (*OrderDetail, error)
	Pay(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID, input PayInput) (*OrderDetail, error)
	Transition(ctx context.Context, orderID uuid.UUID, input TransitionInput) (*OrderDetail, error)
	GetOrder(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID) (*OrderDetail, error)
	ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*orders.OrderList, error)
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type ServiceParams struct {
	Orders     orders.Repository
	Carts      cartLoader
	Catalog    cultivarLookup
	Outbox     outboxPublisher
	Tx         txRunner
	Processors []Processor
	Guard      paymentGuard
	Config     config.CheckoutConfig
	Logger     *logger.Logger
	Metrics    checkoutObserver
	Now        func() time.Time
}

type service struct {
	orders     orders.Repository
	carts      cartLoader
	catalog    cultivarLookup
	outbox     outboxPublisher
	tx         txRunner
	processors map[enums.PaymentProcessor]Processor
	guard      paymentGuard
	cfg        config.CheckoutConfig
	logg       *logger.Logger
	metrics    checkoutObserver
	now        func() time.Time
}

// NewService builds the checkout service. Processors not listed in the
// checkout config are ignored.
func NewService(params ServiceParams) (Service, error) {
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	enabled := map[enums.PaymentProcessor]bool{}
	for _, name := range params.Config.Processors {
		if p, err := enums.ParsePaymentProcessor(strings.ToLower(strings.TrimSpace(name))); err == nil {
			enabled[p] = true
		}
	}
	processors := map[enums.PaymentProcessor]Processor{}
	for _, p := range params.Processors {
		if p != nil && enabled[p.Name()] {
			processors[p.Name()] = p
		}
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		orders:     params.Orders,
		carts:      params.Carts,
		catalog:    params.Catalog,
		outbox:     params.Outbox,
		tx:         params.Tx,
		processors: processors,
		guard:      params.Guard,
		cfg:        params.Config,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        now,
	}, nil
}

func (s *service) Begin(ctx context.Context, key cart.Key, input BeginInput) (*OrderDetail, error) {
	email, err := helpers.NormalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	shipping, err := helpers.ValidateShippingAddress(input.ShippingAddress)
	if err != nil {
		return nil, err
	}

	order, cultivars, err := s.carts.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(order.Lines) == 0 {
		s.observe("begin", "empty")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if order.Status != enums.OrderStatusNew {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is no longer open")
	}

	order.ShippingAddress = shipping
	order.BillingAddress = input.BillingAddress
	if order.BillingAddress == nil {
		billing := *shipping
		order.BillingAddress = &billing
	}
	order.Email = &email

	summary := cart.Summarize(order, cultivars)
	checks := make([]pkgcheckout.LineCheck, 0, len(summary.Lines))
	for _, l := range summary.Lines {
		checks = append(checks, pkgcheckout.LineCheck{PacketID: l.PacketID, SKU: l.SKU, Name: l.Name, InStock: l.InStock, Noship: l.Noship})
	}
	if err := pkgcheckout.ValidatePurchasable(checks); err != nil {
		s.observe("begin", "blocked")
		return nil, err
	}

	quote := helpers.ComputeQuote(order, cultivars, s.cfg)
	order.ShippingCents = &quote.ShippingCents
	order.TaxCents = &quote.TaxCents
	placedAt := s.now()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		if err := repo.Save(ctx, order); err != nil {
			return err
		}
		if err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusNew, enums.OrderStatusPendingPayment, map[string]any{
			"placed_at": placedAt,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorFor(key),
			Data: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				CustomerID:    order.CustomerID,
				Email:         email,
				LineCount:     len(order.Lines),
				SubtotalCents: quote.SubtotalCents,
				ShippingCents: quote.ShippingCents,
				TaxCents:      quote.TaxCents,
				TotalCents:    quote.TotalCents(),
				PlacedAt:      placedAt,
			},
		})
	})
	if err != nil {
		s.observe("begin", "error")
		return nil, s.statusError(err, "place order")
	}
	order.Status = enums.OrderStatusPendingPayment
	order.PlacedAt = &placedAt

	logCtx := s.logg.WithOrderID(s.logg.WithCartKey(ctx, key.Kind(), key.ID()), order.ID.String())
	if err := s.carts.Discard(ctx, key); err != nil {
		s.logg.Warn(logCtx, "failed to discard session cart after checkout")
	}
	s.logg.Info(s.logg.WithField(logCtx, "total_cents", quote.TotalCents()), "order placed")
	s.observe("begin", "placed")
	return newOrderDetail(order, cultivars), nil
}

func (s *service) Pay(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID, input PayInput) (*OrderDetail, error) {
	name, err := enums.ParsePaymentProcessor(strings.ToLower(strings.TrimSpace(input.Processor)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment processor")
	}
	processor, ok := s.processors[name]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment processor not available").
			WithDetails(map[string]any{"processor": name.String()})
	}
	if strings.TrimSpace(input.SourceToken) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment token is required")
	}

	order, err := s.loadVisible(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	from := order.Status
	if from != enums.OrderStatusPendingPayment && from != enums.OrderStatusPaymentRejected {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting payment").
			WithDetails(map[string]any{"status": from.String()})
	}

	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, paymentScope, orderID.String())
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim payment")
		}
		if !claimed {
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "a payment for this order is already in progress")
		}
		defer func() {
			if err := s.guard.Release(context.WithoutCancel(ctx), paymentScope, orderID.String()); err != nil {
				s.logg.Warn(s.logg.WithOrderID(ctx, orderID.String()), "failed to release payment claim")
			}
		}()
	}

	total := totalCents(order)
	email := ""
	if order.Email != nil {
		email = *order.Email
	}
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, orderID.String()), map[string]any{
		"processor":   name.String(),
		"total_cents": total,
	})

	result, err := processor.Charge(ctx, ChargeRequest{
		OrderID:        orderID,
		AmountCents:    total,
		Email:          email,
		SourceToken:    input.SourceToken,
		IdempotencyKey: chargeKey(order),
	})
	if err != nil {
		s.logg.Error(logCtx, "payment processor error", err)
		s.observe("pay", "error")
		return nil, err
	}

	if !result.Approved {
		return s.reject(ctx, logCtx, order, name, total, result.DeclineReason)
	}

	if result.AmountCents != total {
		s.logg.Error(s.logg.WithFields(logCtx, map[string]any{
			"charged_cents":     result.AmountCents,
			"payment_reference": result.Reference,
		}), "charged amount does not match order total", nil)
		s.observe("pay", "mismatch")
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "charged amount does not match order total").
			WithDetails(map[string]any{
				"expected":          total,
				"charged":           result.AmountCents,
				"payment_reference": result.Reference,
			})
	}

	paidAt := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, orderID, from, enums.OrderStatusPaid, map[string]any{
			"payment_processor": name,
			"payment_reference": result.Reference,
			"paid_at":           paidAt,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         actorForViewer(viewer),
			Data: payloads.OrderPaidEvent{
				OrderID:          orderID,
				Processor:        name,
				PaymentReference: result.Reference,
				AmountCents:      result.AmountCents,
				PaidAt:           paidAt,
			},
		})
	})
	if err != nil {
		s.logg.Error(s.logg.WithField(logCtx, "payment_reference", result.Reference), "payment captured but order update failed", err)
		s.observe("pay", "error")
		return nil, s.statusError(err, "record payment")
	}

	order.Status = enums.OrderStatusPaid
	order.PaymentProcessor = &name
	order.PaymentReference = &result.Reference
	order.PaidAt = &paidAt
	s.logg.Info(logCtx, "order paid")
	s.observe("pay", "paid")
	return s.detail(ctx, order)
}

// reject records a declined charge. The order stays payable so the client can
// retry with another token.
func (s *service) reject(ctx, logCtx context.Context, order *models.Order, name enums.PaymentProcessor, total int64, reason string) (*OrderDetail, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		attempts := map[string]any{"payment_attempts": order.PaymentAttempts + 1}
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, order.Status, enums.OrderStatusPaymentRejected, attempts); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentRejected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentRejectedEvent{
				OrderID:     order.ID,
				Processor:   name,
				AmountCents: total,
				Reason:      reason,
			},
		})
	})
	if err != nil {
		s.observe("pay", "error")
		return nil, s.statusError(err, "record declined payment")
	}
	order.Status = enums.OrderStatusPaymentRejected
	order.PaymentAttempts++
	s.logg.Warn(s.logg.WithField(logCtx, "decline_reason", reason), "payment declined")
	s.observe("pay", "declined")
	return s.detail(ctx, order)
}

// chargeKey is stable across retries of one attempt and changes after every decline.
func chargeKey(order *models.Order) string {
	return fmt.Sprintf("%s-%d", order.ID, order.PaymentAttempts)
}

func (s *service) Transition(ctx context.Context, orderID uuid.UUID, input TransitionInput) (*OrderDetail, error) {
	to, err := enums.ParseOrderStatus(strings.ToLower(strings.TrimSpace(input.To)))
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status")
	}
	switch to {
	case enums.OrderStatusShipped, enums.OrderStatusRefunded, enums.OrderStatusCancelled:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status cannot be set directly").
			WithDetails(map[string]any{"status": to.String()})
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err)
	}
	if err := s.transition(ctx, order, to, input.Reason); err != nil {
		return nil, err
	}
	s.observe("transition", to.String())
	return s.detail(ctx, order)
}

func (s *service) transition(ctx context.Context, order *models.Order, to enums.OrderStatus, reason string) error {
	from := order.Status
	if !from.CanTransitionTo(to) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition not allowed").
			WithDetails(map[string]any{"from": from.String(), "to": to.String()})
	}
	changedAt := s.now()
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).UpdateStatus(ctx, order.ID, from, to, nil); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:   order.ID,
				From:      from,
				To:        to,
				Reason:    strings.TrimSpace(reason),
				ChangedAt: changedAt,
			},
		})
	})
	if err != nil {
		return s.statusError(err, "update order status")
	}
	order.Status = to
	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID.String()), map[string]any{"from": from.String(), "to": to.String()})
	s.logg.Info(logCtx, "order status changed")
	return nil
}

// ExpireStale cancels orders that have waited for payment since before cutoff.
func (s *service) ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	stale, err := s.orders.FindPendingBefore(ctx, cutoff, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stale orders")
	}
	expired := 0
	for i := range stale {
		order := &stale[i]
		if err := s.transition(ctx, order, enums.OrderStatusCancelled, "payment window expired"); err != nil {
			if pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
				continue
			}
			return expired, err
		}
		expired++
	}
	return expired, nil
}

func (s *service) GetOrder(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID) (*OrderDetail, error) {
	order, err := s.loadVisible(ctx, viewer, orderID)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, order)
}

func (s *service) ListOrders(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*orders.OrderList, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "sign in to list orders")
	}
	list, err := s.orders.ListByCustomer(ctx, customerID, params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

// loadVisible hides orders the viewer may not see behind NotFound.
func (s *service) loadVisible(ctx context.Context, viewer orders.Viewer, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, lookupError(err)
	}
	if !viewer.CanSee(order) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) detail(ctx context.Context, order *models.Order) (*OrderDetail, error) {
	cultivars, err := s.catalog.FindCultivarsByIDs(ctx, orders.CultivarIDs(order))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cultivars")
	}
	return newOrderDetail(order, cultivars), nil
}

func (s *service) statusError(err error, op string) error {
	if errors.Is(err, orders.ErrStatusChanged) {
		return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order changed while processing")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, op)
}

func (s *service) observe(step, outcome string) {
	if s.metrics != nil {
		s.metrics.IncCheckout(step, outcome)
	}
}

func lookupError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func totalCents(order *models.Order) int64 {
	total := order.SubtotalCents()
	if order.ShippingCents != nil {
		total += *order.ShippingCents
	}
	if order.TaxCents != nil {
		total += *order.TaxCents
	}
	return total
}

func actorFor(key cart.Key) *outbox.ActorRef {
	if key.CustomerID == nil {
		return nil
	}
	id := *key.CustomerID
	return &outbox.ActorRef{UserID: &id, Role: enums.UserRoleCustomer.String()}
}

func actorForViewer(viewer orders.Viewer) *outbox.ActorRef {
	if viewer.CustomerID == nil {
		return nil
	}
	id := *viewer.CustomerID
	return &outbox.ActorRef{UserID: &id}
}
