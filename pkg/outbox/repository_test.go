package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/outbox/payloads"
)

func openOutboxDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.Exec(`CREATE TABLE outbox_events (
		id TEXT PRIMARY KEY, event_type TEXT NOT NULL, aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL, payload TEXT NOT NULL, created_at DATETIME,
		published_at DATETIME, attempt_count INTEGER NOT NULL DEFAULT 0, last_error TEXT)`).Error)
	return conn
}

func emitPlaced(t *testing.T, svc *Service, conn *gorm.DB, orderID uuid.UUID) {
	t.Helper()
	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          payloads.OrderPlacedEvent{OrderID: orderID, TotalCents: 1595},
		})
	}))
}

func TestEmitWritesEnvelope(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))
	orderID := uuid.New()

	emitPlaced(t, svc, conn, orderID)

	rows, err := repo.FetchUnpublishedTx(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, enums.EventOrderPlaced, rows[0].EventType)
	assert.Equal(t, orderID, rows[0].AggregateID)

	var env PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &env))
	assert.Equal(t, 1, env.Version)
	assert.NotEmpty(t, env.EventID)
	assert.False(t, env.OccurredAt.IsZero())

	var data payloads.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, int64(1595), data.TotalCents)
}

func TestEmitRollsBackWithTransaction(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))

	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
			Data:          payloads.OrderPaidEvent{},
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	rows, err := repo.FetchUnpublishedTx(conn, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestEmitRejectsUnknownEvent(t *testing.T) {
	conn := openOutboxDB(t)
	svc := NewService(NewRepository(conn), logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))

	err := svc.Emit(context.Background(), conn, DomainEvent{EventType: "order_shredded", AggregateType: enums.AggregateOrder, AggregateID: uuid.New()})
	assert.Error(t, err)
	assert.Error(t, svc.Emit(context.Background(), nil, DomainEvent{EventType: enums.EventOrderPaid}))
}

func TestMarkingLifecycle(t *testing.T) {
	conn := openOutboxDB(t)
	repo := NewRepository(conn)
	svc := NewService(repo, logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard}))
	emitPlaced(t, svc, conn, uuid.New())
	emitPlaced(t, svc, conn, uuid.New())

	rows, err := repo.FetchUnpublishedTx(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, repo.MarkFailedTx(conn, rows[0].ID, errors.New("transient")))
	require.NoError(t, repo.MarkPublishedTx(conn, rows[1].ID))

	pending, err := repo.FetchUnpublishedTx(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "transient", *pending[0].LastError)

	require.NoError(t, repo.MarkTerminalTx(conn, rows[0].ID, errors.New("bad payload"), 3))
	pending, err = repo.FetchUnpublishedTx(conn, 10, 3)
	require.NoError(t, err)
	assert.Empty(t, pending)

	deleted, err := repo.DeletePublishedBefore(context.Background(), time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var remaining int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining, "terminal rows stay for inspection")
}
