package router

import (
	"context"
	"fmt"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

type statusChangedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newStatusChangedHandler(writer Writer, logg *logger.Logger) Handler {
	return &statusChangedHandler{writer: writer, logg: logg}
}

func (h *statusChangedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderStatusChangedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_status_changed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type": envelope.EventType,
		"order_id":   event.OrderID,
		"from":       event.From,
		"to":         event.To,
	})

	row, err := baseRow(envelope, event.OrderID.String(), event.ChangedAt, event)
	if err != nil {
		h.logg.Error(logCtx, "failed to build sales row", err)
		return err
	}
	row.StatusFrom = stringPtr(string(event.From))
	row.StatusTo = stringPtr(string(event.To))
	row.Reason = stringPtr(event.Reason)

	if err := h.writer.InsertSales(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sales row", err)
		return err
	}

	h.logg.Info(logCtx, "order_status_changed handler inserted sales row")
	return nil
}
