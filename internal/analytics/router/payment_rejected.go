package router

import (
	"context"
	"fmt"
	"time"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

type paymentRejectedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newPaymentRejectedHandler(writer Writer, logg *logger.Logger) Handler {
	return &paymentRejectedHandler{writer: writer, logg: logg}
}

func (h *paymentRejectedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.PaymentRejectedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for payment_rejected")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"processor":  event.Processor,
	})

	row, err := baseRow(envelope, event.OrderID.String(), time.Time{}, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build sales row", err)
		return err
	}
	row.Processor = stringPtr(string(event.Processor))
	row.AmountCents = int64Ptr(event.AmountCents)
	row.Reason = stringPtr(event.Reason)

	if err := h.writer.InsertSales(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sales row", err)
		return err
	}

	h.logg.Info(logCtx, "payment_rejected handler inserted sales row")
	return nil
}
