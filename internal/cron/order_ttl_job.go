package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/greenrow/seedshop-backend/pkg/logger"
)

const (
	defaultPendingOrderTTL = 72 * time.Hour
	defaultExpireBatch     = 100
	maxExpireRounds        = 50
)

type staleOrderExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time, limit int) (int, error)
}

type OrderTTLJobParams struct {
	Logger    *logger.Logger
	Orders    staleOrderExpirer
	TTL       time.Duration
	BatchSize int
}

// NewOrderTTLJob builds the job that cancels orders left unpaid past the TTL.
func NewOrderTTLJob(params OrderTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order expirer required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpireBatch
	}
	return &orderTTLJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		batch:  batch,
		now:    time.Now,
	}, nil
}

type orderTTLJob struct {
	logg   *logger.Logger
	orders staleOrderExpirer
	ttl    time.Duration
	batch  int
	now    func() time.Time
}

func (j *orderTTLJob) Name() string { return "order-ttl" }

// Run expires in batches until a batch comes back short. The round cap keeps a
// run bounded when orders fail to move and are fetched again.
func (j *orderTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	total := 0
	for round := 0; round < maxExpireRounds; round++ {
		n, err := j.orders.ExpireStale(ctx, cutoff, j.batch)
		total += n
		if err != nil {
			return fmt.Errorf("expire stale orders: %w", err)
		}
		if n < j.batch {
			break
		}
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"expired": total,
	})
	j.logg.Info(logCtx, "order expiration loop complete")
	return nil
}
