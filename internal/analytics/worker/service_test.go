package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/greenrow/seedshop-backend/internal/analytics/router"
	"github.com/greenrow/seedshop-backend/internal/analytics/types"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox"
)

func TestBuildEnvelope(t *testing.T) {
	svc := newTestService(t)
	eventID := uuid.NewString()
	orderID := uuid.NewString()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data:       json.RawMessage(`{"order_id":"` + orderID + `"}`),
	}
	msg := buildMessage(payload, map[string]string{
		"event_type":     "order_paid",
		"aggregate_type": "order",
		"aggregate_id":   orderID,
	})

	env, err := svc.buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventType != enums.EventOrderPaid {
		t.Fatalf("unexpected event type %v", env.EventType)
	}
	if env.AggregateType != enums.AggregateOrder {
		t.Fatalf("unexpected aggregate type %v", env.AggregateType)
	}
	if env.AggregateID != orderID {
		t.Fatalf("unexpected aggregate id %s", env.AggregateID)
	}
	if env.EventID != eventID {
		t.Fatalf("unexpected event id %s", env.EventID)
	}
	if !env.OccurredAt.Equal(payload.OccurredAt) {
		t.Fatalf("unexpected occurred at %v", env.OccurredAt)
	}
}

func TestBuildEnvelopeFallsBackToAttributes(t *testing.T) {
	svc := newTestService(t)
	eventID := uuid.NewString()
	created := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	msg := buildMessage(outbox.PayloadEnvelope{Data: json.RawMessage(`{}`)}, map[string]string{
		"event_id":       eventID,
		"event_type":     "order_placed",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
		"created_at":     created.Format(time.RFC3339Nano),
	})

	env, err := svc.buildEnvelope(msg)
	if err != nil {
		t.Fatalf("build envelope: %v", err)
	}
	if env.EventID != eventID {
		t.Fatalf("expected attribute event id, got %s", env.EventID)
	}
	if !env.OccurredAt.Equal(created) {
		t.Fatalf("expected created_at fallback, got %v", env.OccurredAt)
	}
}

func TestBuildEnvelopeRejectsUnknownEventType(t *testing.T) {
	svc := newTestService(t)
	msg := buildMessage(outbox.PayloadEnvelope{EventID: uuid.NewString()}, map[string]string{
		"event_type":     "ad_click",
		"aggregate_type": "order",
		"aggregate_id":   "abc",
	})
	if _, err := svc.buildEnvelope(msg); err == nil {
		t.Fatal("expected event type error")
	}
}

func TestProcessHandlesNewEvent(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, claims)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if res.nack {
		t.Fatal("expected ack")
	}
	if !handler.called {
		t.Fatal("handler should be invoked")
	}
	if len(claims.claimed) != 1 || claims.scopes[0] != dedupeScope {
		t.Fatalf("unexpected claims %v %v", claims.claimed, claims.scopes)
	}
}

func TestProcessAlreadyProcessed(t *testing.T) {
	claims := &stubClaims{taken: true}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, claims)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if res.nack {
		t.Fatalf("expected ack, got nack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked when already processed")
	}
}

func TestProcessClaimErrorNacks(t *testing.T) {
	claims := &stubClaims{claimErr: errors.New("redis down")}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, claims)

	if res := svc.process(context.Background(), buildOrderMessage(t)); !res.nack {
		t.Fatal("expected nack when the claim fails")
	}
	if handler.called {
		t.Fatal("handler should not run without a claim")
	}
}

func TestProcessHandlerErrorRetries(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{err: errors.New("boom")}
	svc := newTestServiceWithDeps(t, handler, claims)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if !res.nack {
		t.Fatalf("expected nack on handler error")
	}
	if len(claims.released) != 1 {
		t.Fatalf("expected claim release on failure")
	}
}

func TestProcessInvalidEnvelope(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{}
	svc := newTestServiceWithDeps(t, handler, claims)

	res := svc.process(context.Background(), &gcppubsub.Message{Data: []byte("invalid json")})
	if res.nack {
		t.Fatalf("invalid envelope should ack")
	}
	if handler.called {
		t.Fatal("handler should not be invoked")
	}
	if len(claims.claimed) != 0 {
		t.Fatalf("idempotency guard should not be touched")
	}
}

func TestProcessUnsupportedEvent(t *testing.T) {
	claims := &stubClaims{}
	handler := &stubHandler{err: router.ErrUnsupportedEventType}
	svc := newTestServiceWithDeps(t, handler, claims)

	res := svc.process(context.Background(), buildOrderMessage(t))
	if res.nack {
		t.Fatalf("unsupported event should ack")
	}
	if len(claims.released) != 0 {
		t.Fatalf("claim release should not run")
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "analytics-test"})
	if _, err := NewService(nil, &stubHandler{}, &stubClaims{}, logg); err == nil {
		t.Fatal("expected subscription error")
	}
}

func buildOrderMessage(t *testing.T) *gcppubsub.Message {
	t.Helper()
	payload := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"` + uuid.NewString() + `"}`),
	}
	return buildMessage(payload, map[string]string{
		"event_type":     "order_placed",
		"aggregate_type": "order",
		"aggregate_id":   uuid.NewString(),
	})
}

func buildMessage(payload outbox.PayloadEnvelope, attrs map[string]string) *gcppubsub.Message {
	data, _ := json.Marshal(payload)
	return &gcppubsub.Message{
		ID:         "msg-1",
		Data:       data,
		Attributes: attrs,
	}
}

func newTestService(t *testing.T) *Service {
	return newTestServiceWithDeps(t, &stubHandler{}, &stubClaims{})
}

func newTestServiceWithDeps(t *testing.T, handler Handler, claims *stubClaims) *Service {
	t.Helper()
	return &Service{
		handler: handler,
		claims:  claims,
		logg:    logger.New(logger.Options{ServiceName: "analytics-test"}),
	}
}

type stubHandler struct {
	called   bool
	envelope types.Envelope
	err      error
}

func (h *stubHandler) Handle(ctx context.Context, envelope types.Envelope) error {
	h.called = true
	h.envelope = envelope
	return h.err
}

type stubClaims struct {
	taken    bool
	claimErr error
	scopes   []string
	claimed  []string
	released []string
}

func (s *stubClaims) Claim(ctx context.Context, scope, id string) (bool, error) {
	s.scopes = append(s.scopes, scope)
	s.claimed = append(s.claimed, id)
	if s.claimErr != nil {
		return false, s.claimErr
	}
	return !s.taken, nil
}

func (s *stubClaims) Release(ctx context.Context, scope, id string) error {
	s.released = append(s.released, id)
	return nil
}
