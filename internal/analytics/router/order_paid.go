package router

import (
	"context"
	"fmt"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

type orderPaidHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPaidHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPaidHandler{writer: writer, logg: logg}
}

func (h *orderPaidHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPaidEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_paid")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":   envelope.EventType,
		"order_id":     event.OrderID,
		"amount_cents": event.AmountCents,
		"processor":    event.Processor,
	})

	row, err := baseRow(envelope, event.OrderID.String(), event.PaidAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build sales row", err)
		return err
	}
	row.Processor = stringPtr(string(event.Processor))
	row.AmountCents = int64Ptr(event.AmountCents)

	if err := h.writer.InsertSales(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sales row", err)
		return err
	}

	h.logg.Info(logCtx, "order_paid handler inserted sales row")
	return nil
}
