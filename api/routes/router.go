package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/greenrow/seedshop-backend/api/controllers"
	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/internal/analytics"
	"github.com/greenrow/seedshop-backend/internal/auth"
	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/internal/checkout"
	"github.com/greenrow/seedshop-backend/pkg/auth/session"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	pkgredis "github.com/greenrow/seedshop-backend/pkg/redis"
)

// Store is the redis surface the HTTP layer needs for replay protection and throttling.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type requestObserver interface {
	Observe(method, route string, status int, elapsed time.Duration)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	pingers map[string]controllers.Pinger,
	store Store,
	sessions session.AccessSessionChecker,
	httpMetrics requestObserver,
	metricsHandler http.Handler,
	authService auth.Service,
	registerService auth.RegisterService,
	catalogService catalog.Service,
	catalogAdmin catalog.AdminService,
	cartService cart.Service,
	checkoutService checkout.Service,
	analyticsService analytics.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(httpMetrics),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.RateLimit.RegisterWindow,
		cfg.RateLimit.RegisterIPLimit,
		cfg.RateLimit.RegisterEmailLimit,
	)

	// replay protection runs per route so it sees the full chi pattern
	var idem func(http.Handler) http.Handler
	var limiter middlewareStore
	if store != nil {
		idem = middleware.Idempotency(store, logg)
		limiter = store
	} else {
		idem = passthrough
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.CartSession(logg))
		r.With(middleware.AuthRateLimit(loginPolicy, limiter, logg)).Post("/login", controllers.AuthLogin(authService, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, limiter, logg), idem).Post("/register", controllers.AuthRegister(registerService, authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(authService, logg))
		r.With(middleware.Auth(cfg.JWT, sessions, logg)).Post("/logout", controllers.AuthLogout(authService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.OptionalAuth(cfg.JWT, sessions, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", controllers.CatalogIndexes(catalogService, logg))
			r.Get("/{indexSlug}", controllers.CatalogIndex(catalogService, logg))
			r.Get("/{indexSlug}/{cnSlug}", controllers.CatalogCommonName(catalogService, logg))
			r.Get("/{indexSlug}/{cnSlug}/{cvSlug}", controllers.CatalogCultivar(catalogService, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.CartSession(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(cartService, logg))
				r.Post("/lines", controllers.CartAddLine(cartService, logg))
				r.Patch("/lines/{packetId}", controllers.CartSetQuantity(cartService, logg))
				r.Delete("/lines/{packetId}", controllers.CartRemoveLine(cartService, logg))
			})
			r.With(idem).Post("/checkout", controllers.Checkout(checkoutService, logg))
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.OrderList(checkoutService, logg))
				r.Get("/{orderId}", controllers.OrderDetail(checkoutService, logg))
				r.With(idem).Post("/{orderId}/pay", controllers.PayOrder(checkoutService, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))

		r.Route("/catalog", func(r chi.Router) {
			r.Use(middleware.RequireCatalogManager(logg))
			r.Post("/indexes", controllers.AdminCreateIndex(catalogAdmin, logg))
			r.Patch("/indexes/{indexId}", controllers.AdminUpdateIndex(catalogAdmin, logg))
			r.Delete("/indexes/{indexId}", controllers.AdminDeleteCatalogNode(catalogAdmin, enums.CatalogNodeIndex, "indexId", logg))
			r.Post("/common-names", controllers.AdminCreateCommonName(catalogAdmin, logg))
			r.Patch("/common-names/{commonNameId}", controllers.AdminUpdateCommonName(catalogAdmin, logg))
			r.Delete("/common-names/{commonNameId}", controllers.AdminDeleteCatalogNode(catalogAdmin, enums.CatalogNodeCommonName, "commonNameId", logg))
			r.Post("/sections", controllers.AdminCreateSection(catalogAdmin, logg))
			r.Patch("/sections/{sectionId}", controllers.AdminUpdateSection(catalogAdmin, logg))
			r.Delete("/sections/{sectionId}", controllers.AdminDeleteCatalogNode(catalogAdmin, enums.CatalogNodeSection, "sectionId", logg))
			r.Post("/sections/{sectionId}/reparent", controllers.AdminReparentSection(catalogAdmin, logg))
			r.Post("/cultivars", controllers.AdminCreateCultivar(catalogAdmin, logg))
			r.Patch("/cultivars/{cultivarId}", controllers.AdminUpdateCultivar(catalogAdmin, logg))
			r.Delete("/cultivars/{cultivarId}", controllers.AdminDeleteCatalogNode(catalogAdmin, enums.CatalogNodeCultivar, "cultivarId", logg))
			r.Patch("/cultivars/{cultivarId}/flags", controllers.AdminUpdateCultivarFlags(catalogAdmin, logg))
			r.Post("/cultivars/{cultivarId}/reparent", controllers.AdminReparentCultivar(catalogAdmin, logg))
			r.Post("/packets", controllers.AdminCreatePacket(catalogAdmin, logg))
			r.Patch("/packets/{packetId}", controllers.AdminUpdatePacket(catalogAdmin, logg))
			r.Delete("/packets/{packetId}", controllers.AdminDeletePacket(catalogAdmin, logg))
			r.Post("/grows-with", controllers.AdminAddGrowsWith(catalogAdmin, logg))
			r.Delete("/grows-with/{linkId}", controllers.AdminRemoveGrowsWith(catalogAdmin, logg))
			r.Post("/{kind}/{id}/move", controllers.AdminMove(catalogAdmin, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireOrderManager(logg))
			r.Get("/{orderId}", controllers.OrderDetail(checkoutService, logg))
			r.With(idem).Post("/{orderId}/transition", controllers.AdminTransitionOrder(checkoutService, logg))
		})

		r.With(middleware.RequireOrderManager(logg)).
			Get("/analytics/sales", controllers.AdminSalesAnalytics(analyticsService, logg))
	})

	return r
}

type middlewareStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

func passthrough(next http.Handler) http.Handler {
	return next
}
