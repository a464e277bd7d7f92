package router

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "analytics-router-test"})
}

func TestOrderPlacedHandlerInsertsTotals(t *testing.T) {
	writer := &fakeWriter{}
	handler := newOrderPlacedHandler(writer, testLogger())
	customer := uuid.New()
	placedAt := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	event := &payloads.OrderPlacedEvent{
		OrderID:       uuid.New(),
		CustomerID:    &customer,
		Email:         "grower@example.com",
		LineCount:     2,
		SubtotalCents: 1000,
		ShippingCents: 495,
		TaxCents:      0,
		TotalCents:    1495,
		PlacedAt:      placedAt,
	}
	envelope := types.Envelope{EventID: "evt-placed", EventType: enums.EventOrderPlaced, OccurredAt: placedAt.Add(time.Minute)}

	if err := handler.Handle(context.Background(), envelope, event); err != nil {
		t.Fatalf("handle order_placed: %v", err)
	}
	if len(writer.inserted) != 1 {
		t.Fatalf("expected 1 insert, got %d", len(writer.inserted))
	}
	row := writer.inserted[0]
	if row.EventID != "evt-placed" || row.EventType != "order_placed" {
		t.Fatalf("unexpected identity %s/%s", row.EventID, row.EventType)
	}
	if !row.OccurredAt.Equal(placedAt) {
		t.Fatalf("expected occurred_at from placed_at, got %s", row.OccurredAt)
	}
	if row.CustomerID == nil || *row.CustomerID != customer.String() {
		t.Fatalf("customer id mismatch: %v", row.CustomerID)
	}
	if row.TotalCents == nil || *row.TotalCents != 1495 {
		t.Fatalf("total mismatch: %v", row.TotalCents)
	}
	if row.LineCount == nil || *row.LineCount != 2 {
		t.Fatalf("line count mismatch: %v", row.LineCount)
	}
	if strings.Contains(row.Payload.JSONVal, "grower@example.com") {
		t.Fatal("email leaked into payload column")
	}
	if event.Email == "" {
		t.Fatal("handler must not mutate the decoded event")
	}
}

func TestOrderPlacedGuestHasNoCustomer(t *testing.T) {
	writer := &fakeWriter{}
	handler := newOrderPlacedHandler(writer, testLogger())
	event := &payloads.OrderPlacedEvent{OrderID: uuid.New(), TotalCents: 100}
	occurred := time.Now().UTC()

	if err := handler.Handle(context.Background(), types.Envelope{EventID: "e", EventType: enums.EventOrderPlaced, OccurredAt: occurred}, event); err != nil {
		t.Fatalf("handle: %v", err)
	}
	row := writer.inserted[0]
	if row.CustomerID != nil {
		t.Fatalf("expected nil customer, got %v", *row.CustomerID)
	}
	if !row.OccurredAt.Equal(occurred) {
		t.Fatalf("expected envelope timestamp fallback, got %s", row.OccurredAt)
	}
}

func TestOrderPaidHandlerInsertsAmount(t *testing.T) {
	writer := &fakeWriter{}
	handler := newOrderPaidHandler(writer, testLogger())
	paidAt := time.Now().UTC()
	event := &payloads.OrderPaidEvent{
		OrderID:          uuid.New(),
		Processor:        enums.PaymentProcessorSquare,
		PaymentReference: "sq_123",
		AmountCents:      12345,
		PaidAt:           paidAt,
	}
	envelope := types.Envelope{EventID: "paid-event-id", EventType: enums.EventOrderPaid, OccurredAt: paidAt.Add(-time.Hour)}

	if err := handler.Handle(context.Background(), envelope, event); err != nil {
		t.Fatalf("handle order_paid: %v", err)
	}
	row := writer.inserted[0]
	if !row.OccurredAt.Equal(paidAt) {
		t.Fatalf("expected occurred_at from paid_at, got %s", row.OccurredAt)
	}
	if row.AmountCents == nil || *row.AmountCents != 12345 {
		t.Fatalf("amount mismatch: %v", row.AmountCents)
	}
	if row.Processor == nil || *row.Processor != "square" {
		t.Fatalf("processor mismatch: %v", row.Processor)
	}
	var payloadData map[string]any
	if err := json.Unmarshal([]byte(row.Payload.JSONVal), &payloadData); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payloadData["order_id"] != event.OrderID.String() {
		t.Fatalf("payload order id mismatch: %v", payloadData["order_id"])
	}
}

func TestPaymentRejectedHandlerRecordsReason(t *testing.T) {
	writer := &fakeWriter{}
	handler := newPaymentRejectedHandler(writer, testLogger())
	event := &payloads.PaymentRejectedEvent{
		OrderID:     uuid.New(),
		Processor:   enums.PaymentProcessorStripe,
		AmountCents: 500,
		Reason:      "card_declined",
	}

	if err := handler.Handle(context.Background(), types.Envelope{EventID: "rej", EventType: enums.EventPaymentRejected, OccurredAt: time.Now()}, event); err != nil {
		t.Fatalf("handle payment_rejected: %v", err)
	}
	row := writer.inserted[0]
	if row.Reason == nil || *row.Reason != "card_declined" {
		t.Fatalf("reason mismatch: %v", row.Reason)
	}
	if row.TotalCents != nil {
		t.Fatal("rejections must not carry order totals")
	}
}

func TestStatusChangedHandlerRecordsTransition(t *testing.T) {
	writer := &fakeWriter{}
	handler := newStatusChangedHandler(writer, testLogger())
	event := &payloads.OrderStatusChangedEvent{
		OrderID:   uuid.New(),
		From:      enums.OrderStatusPaid,
		To:        enums.OrderStatusRefunded,
		Reason:    "customer request",
		ChangedAt: time.Now().UTC(),
	}

	if err := handler.Handle(context.Background(), types.Envelope{EventID: "chg", EventType: enums.EventOrderStatusChanged}, event); err != nil {
		t.Fatalf("handle order_status_changed: %v", err)
	}
	row := writer.inserted[0]
	if row.StatusFrom == nil || *row.StatusFrom != "paid" || row.StatusTo == nil || *row.StatusTo != "refunded" {
		t.Fatalf("unexpected transition %v -> %v", row.StatusFrom, row.StatusTo)
	}
}

func TestHandlerPropagatesWriterError(t *testing.T) {
	writer := &fakeWriter{err: errors.New("bq down")}
	handler := newOrderPaidHandler(writer, testLogger())
	err := handler.Handle(context.Background(), types.Envelope{EventID: "x", EventType: enums.EventOrderPaid}, &payloads.OrderPaidEvent{OrderID: uuid.New()})
	if err == nil {
		t.Fatal("expected writer error")
	}
}

func TestHandlerRejectsWrongPayloadType(t *testing.T) {
	handler := newOrderPaidHandler(&fakeWriter{}, testLogger())
	if err := handler.Handle(context.Background(), types.Envelope{}, &payloads.OrderPlacedEvent{}); err == nil {
		t.Fatal("expected payload type error")
	}
}
