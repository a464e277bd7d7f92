package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"time"

	"github.com/greenrow/seedshop-backend/pkg/enums"
)

// Envelope is an order event as delivered on the orders topic.
type Envelope struct {
	EventID       string                    `json:"event_id"`
	EventType     enums.OutboxEventType     `json:"event_type"`
	AggregateType enums.OutboxAggregateType `json:"aggregate_type"`
	AggregateID   string                    `json:"aggregate_id"`
	OccurredAt    time.Time                 `json:"occurred_at"`
	Payload       json.RawMessage           `json:"payload"`
}

// Decode unmarshals the payload into dst.
func (e Envelope) Decode(dst any) error {
	if len(bytes.TrimSpace(e.Payload)) == 0 {
		return errors.New("empty payload")
	}
	return json.Unmarshal(e.Payload, dst)
}
