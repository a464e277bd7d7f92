package router

import (
	"context"
	"fmt"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

type orderPlacedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newOrderPlacedHandler(writer Writer, logg *logger.Logger) Handler {
	return &orderPlacedHandler{writer: writer, logg: logg}
}

func (h *orderPlacedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.OrderPlacedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for order_placed")
	}
	logCtx := h.logg.WithFields(ctx, map[string]any{
		"event_type":  envelope.EventType,
		"order_id":    event.OrderID,
		"total_cents": event.TotalCents,
	})

	// The email stays out of the warehouse.
	redacted := *event
	redacted.Email = ""

	row, err := baseRow(envelope, event.OrderID.String(), event.PlacedAt, redacted)
	if err != nil {
		h.logg.Error(logCtx, "failed to build sales row", err)
		return err
	}
	row.CustomerID = uuidPtrString(event.CustomerID)
	row.LineCount = int64Ptr(int64(event.LineCount))
	row.SubtotalCents = int64Ptr(event.SubtotalCents)
	row.ShippingCents = int64Ptr(event.ShippingCents)
	row.TaxCents = int64Ptr(event.TaxCents)
	row.TotalCents = int64Ptr(event.TotalCents)

	if err := h.writer.InsertSales(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sales row", err)
		return err
	}

	h.logg.Info(logCtx, "order_placed handler inserted sales row")
	return nil
}
