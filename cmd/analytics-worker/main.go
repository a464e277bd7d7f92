package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/greenrow/seedshop-backend/internal/analytics/router"
	"github.com/greenrow/seedshop-backend/internal/analytics/worker"
	"github.com/greenrow/seedshop-backend/internal/analytics/writer"
	"github.com/greenrow/seedshop-backend/pkg/bigquery"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/idempotency"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/pubsub"
	"github.com/greenrow/seedshop-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "analytics-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "analytics-worker"

	logg = logger.New(logger.Options{
		ServiceName: "analytics-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if !cfg.BigQuery.Enabled() {
		requireResource(ctx, logg, "bigquery dataset", errors.New(config.EnvBigQueryDataset+" is not set"))
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()
	requireResource(ctx, logg, "analytics subscription", pubsubClient.EnsureSubscription(ctx, cfg.PubSub.AnalyticsSubscription))

	bqClient, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	requireResource(ctx, logg, "bigquery client", err)
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(ctx, "failed to close bigquery client", err)
		}
	}()

	subscription := pubsubClient.AnalyticsSubscriber()
	if subscription == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}
	if cfg.Analytics.MaxOutstanding > 0 {
		subscription.ReceiveSettings.MaxOutstandingMessages = cfg.Analytics.MaxOutstanding
	}

	guard, err := idempotency.NewGuard(redisClient, cfg.Analytics.DedupeTTL)
	requireResource(ctx, logg, "idempotency guard", err)

	salesWriter, err := writer.New(bqClient, writer.Config{SalesTable: cfg.BigQuery.SalesTable})
	requireResource(ctx, logg, "sales bigquery writer", err)

	routingHandler, err := router.NewRouter(salesWriter, logg, nil)
	requireResource(ctx, logg, "analytics router", err)

	service, err := worker.NewService(subscription, routingHandler, guard, logg)
	requireResource(ctx, logg, "analytics worker service", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.AnalyticsSubscription,
	})
	logg.Info(runCtx, "analytics worker ready")

	runErr := service.Run(runCtx)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := salesWriter.Flush(flushCtx); err != nil {
		logg.Error(flushCtx, "failed to flush buffered sales rows", err)
	}

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logg.Error(runCtx, "analytics worker failed", runErr)
		os.Exit(1)
	}
	logg.Info(flushCtx, "analytics worker stopped")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
