package router

import (
	"fmt"
	"time"

	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	analyticswriter "github.com/greenrow/seedshop-backend/internal/analytics/writer"
)

// baseRow fills the columns every sales event shares. occurred falls back to
// the envelope timestamp when the payload carries none.
func baseRow(envelope types.Envelope, orderID string, occurred time.Time, payload any) (types.SalesEventRow, error) {
	if occurred.IsZero() {
		occurred = envelope.OccurredAt
	}

	payloadJSON, err := analyticswriter.EncodeJSON(payload)
	if err != nil {
		return types.SalesEventRow{}, fmt.Errorf("encode payload json: %w", err)
	}

	return types.SalesEventRow{
		EventID:    envelope.EventID,
		EventType:  string(envelope.EventType),
		OccurredAt: occurred.UTC(),
		OrderID:    orderID,
		Payload:    payloadJSON,
	}, nil
}
