package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/greenrow/seedshop-backend/api/controllers"
	"github.com/greenrow/seedshop-backend/api/routes"
	"github.com/greenrow/seedshop-backend/internal/analytics"
	"github.com/greenrow/seedshop-backend/internal/auth"
	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/internal/checkout"
	"github.com/greenrow/seedshop-backend/internal/orders"
	"github.com/greenrow/seedshop-backend/internal/positions"
	"github.com/greenrow/seedshop-backend/internal/users"
	"github.com/greenrow/seedshop-backend/pkg/auth/session"
	"github.com/greenrow/seedshop-backend/pkg/bigquery"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db"
	"github.com/greenrow/seedshop-backend/pkg/idempotency"
	"github.com/greenrow/seedshop-backend/pkg/instance"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/metrics"
	"github.com/greenrow/seedshop-backend/pkg/migrate"
	"github.com/greenrow/seedshop-backend/pkg/outbox"
	"github.com/greenrow/seedshop-backend/pkg/redis"
	"github.com/greenrow/seedshop-backend/pkg/square"
	pkgstripe "github.com/greenrow/seedshop-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)
	shopMetrics := metrics.NewShopMetrics(prometheus.DefaultRegisterer)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo, logg, shopMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}
	catalogAdmin, err := catalog.NewAdminService(catalogRepo, positions.NewStore(dbClient.DB()), dbClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog admin service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	sessions, err := cart.NewRedisSessionStore(redisClient, cfg.Cart.SessionTTL, redis.IsNil)
	if err != nil {
		logg.Error(context.Background(), "failed to create session cart store", err)
		os.Exit(1)
	}
	cartService, err := cart.NewService(cart.ServiceParams{
		Orders:   ordersRepo,
		Catalog:  catalogRepo,
		Sessions: sessions,
		Tx:       dbClient,
		Config:   cfg.Cart,
		Logger:   logg,
		Metrics:  shopMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	processors, err := buildProcessors(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment processors", err)
		os.Exit(1)
	}
	paymentGuard, err := idempotency.NewGuard(redisClient, cfg.Checkout.PaymentIdempotencyTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create payment guard", err)
		os.Exit(1)
	}
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Orders:     ordersRepo,
		Carts:      cartService,
		Catalog:    catalogRepo,
		Outbox:     outbox.NewService(outbox.NewRepository(dbClient.DB()), logg),
		Tx:         dbClient,
		Processors: processors,
		Guard:      paymentGuard,
		Config:     cfg.Checkout,
		Logger:     logg,
		Metrics:    shopMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		Carts:          cartService,
		JWTConfig:      cfg.JWT,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}
	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		Tx:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create register service", err)
		os.Exit(1)
	}

	analyticsService, closeAnalytics := buildAnalytics(context.Background(), cfg, logg)
	defer closeAnalytics()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := instance.GetID("local")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"instance":   id,
		"processors": strings.Join(cfg.Checkout.Processors, ","),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			map[string]controllers.Pinger{"db": dbClient, "redis": redisClient},
			redisClient,
			sessionManager,
			httpMetrics,
			promhttp.Handler(),
			authService,
			registerService,
			catalogService,
			catalogAdmin,
			cartService,
			checkoutService,
			analyticsService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server shutting down gracefully")
	}
}

// buildProcessors constructs a client for every processor the checkout config
// enables. A listed processor without credentials is a startup error.
func buildProcessors(ctx context.Context, cfg *config.Config, logg *logger.Logger) ([]checkout.Processor, error) {
	var processors []checkout.Processor
	for _, raw := range cfg.Checkout.Processors {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "square":
			client, err := square.NewClient(ctx, cfg.Square, logg)
			if err != nil {
				return nil, err
			}
			processors = append(processors, checkout.NewSquareProcessor(client))
		case "stripe":
			client, err := pkgstripe.NewClient(ctx, cfg.Stripe, logg)
			if err != nil {
				return nil, err
			}
			processors = append(processors, checkout.NewStripeProcessor(client))
		case "":
		default:
			return nil, errors.New("unknown payment processor " + raw)
		}
	}
	return processors, nil
}

// buildAnalytics returns nil when no dataset is configured; the sales
// endpoint then answers 503 instead of failing startup.
func buildAnalytics(ctx context.Context, cfg *config.Config, logg *logger.Logger) (analytics.Service, func()) {
	noop := func() {}
	if !cfg.BigQuery.Enabled() {
		logg.Info(ctx, "bigquery dataset not configured, sales analytics disabled")
		return nil, noop
	}
	client, err := bigquery.NewClient(ctx, cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap bigquery, sales analytics disabled", err)
		return nil, noop
	}
	svc, err := analytics.NewService(client, cfg.Analytics.MaxQueryWindow)
	if err != nil {
		logg.Error(ctx, "failed to create analytics service", err)
		_ = client.Close()
		return nil, noop
	}
	return svc, func() {
		if err := client.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery client", err)
		}
	}
}
