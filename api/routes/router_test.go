package routes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/api/controllers"
	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/internal/checkout"
	pkgAuth "github.com/greenrow/seedshop-backend/pkg/auth"
	"github.com/greenrow/seedshop-backend/pkg/auth/session"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error {
	return s.err
}

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubCatalog struct {
	catalog.Service
}

func (stubCatalog) ListIndexes(ctx context.Context) ([]catalog.IndexSummary, error) {
	return []catalog.IndexSummary{}, nil
}

func (stubCatalog) GetIndex(ctx context.Context, slug string, canManage bool) (*catalog.IndexView, error) {
	return &catalog.IndexView{Slug: slug}, nil
}

type stubCatalogAdmin struct {
	catalog.AdminService
}

func (stubCatalogAdmin) CreateIndex(ctx context.Context, input catalog.CreateIndexInput) (*models.Index, error) {
	return &models.Index{ID: uuid.New(), Name: input.Name, Slug: input.Slug}, nil
}

type stubCart struct {
	cart.Service
}

func (stubCart) Get(ctx context.Context, key cart.Key) (*cart.Summary, error) {
	return &cart.Summary{OrderID: uuid.New(), Status: enums.OrderStatusNew, Lines: []cart.LineSummary{}}, nil
}

type stubCheckout struct {
	checkout.Service
	calls int
}

func (s *stubCheckout) Begin(ctx context.Context, key cart.Key, input checkout.BeginInput) (*checkout.OrderDetail, error) {
	s.calls++
	return &checkout.OrderDetail{Summary: cart.Summary{OrderID: uuid.New(), Status: enums.OrderStatusPendingPayment}}, nil
}

func (s *stubCheckout) Transition(ctx context.Context, orderID uuid.UUID, input checkout.TransitionInput) (*checkout.OrderDetail, error) {
	return &checkout.OrderDetail{Summary: cart.Summary{OrderID: orderID, Status: enums.OrderStatus(input.To)}}, nil
}

// memoryStore backs idempotency and rate limiting with plain maps.
type memoryStore struct {
	values map[string]string
	counts map[string]int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	return m.values[key], nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, key string) string {
	return "idem:" + scope + ":" + key
}

func (m *memoryStore) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "seedshop-test",
			ExpirationMinutes: 15,
		},
		RateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    2,
			LoginEmailLimit: 2,
		},
	}
}

func newTestRouter(cfg *config.Config, store Store, checkoutSvc checkout.Service, pingers map[string]controllers.Pinger) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		pingers,
		store,
		stubSessions{},
		nil,
		nil,
		nil,
		nil,
		stubCatalog{},
		stubCatalogAdmin{},
		stubCart{},
		checkoutSvc,
		nil,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "someone@example.com",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubCheckout{}, map[string]controllers.Pinger{"db": stubPinger{}})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReadyDependencyDown(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubCheckout{}, map[string]controllers.Pinger{"redis": stubPinger{err: errors.New("refused")}})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.Code)
	}
}

func TestCatalogIsPublic(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubCheckout{}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/catalog/vegetables", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCartMintsSession(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubCheckout{}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Header().Get(middleware.CartSessionHeader) == "" {
		t.Fatal("expected a minted cart session header")
	}
}

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	router := newTestRouter(testConfig(), newMemoryStore(), &stubCheckout{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	req.Header.Set(middleware.CartSessionHeader, "sess-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key got %d", resp.Code)
	}
}

func TestCheckoutReplaysStoredResponse(t *testing.T) {
	svc := &stubCheckout{}
	router := newTestRouter(testConfig(), newMemoryStore(), svc, nil)
	body := `{"email":"a@b.co","shipping_address":{"name":"Pat","line1":"1 Main","city":"Salem","postal_code":"97301","country":"US"}}`

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
		req.Header.Set(middleware.CartSessionHeader, "sess-1")
		req.Header.Set("Idempotency-Key", "checkout-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if svc.calls != 1 {
		t.Fatalf("expected checkout to run once, ran %d times", svc.calls)
	}
}

func TestOrderListRequiresSignIn(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubCheckout{}, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAdminCatalogRoles(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubCheckout{}, nil)
	body := `{"name":"Herbs","slug":"herbs"}`

	cases := []struct {
		name   string
		role   enums.UserRole
		token  bool
		status int
	}{
		{name: "anonymous", status: http.StatusUnauthorized},
		{name: "customer", role: enums.UserRoleCustomer, token: true, status: http.StatusForbidden},
		{name: "staff", role: enums.UserRoleStaff, token: true, status: http.StatusCreated},
		{name: "admin", role: enums.UserRoleAdmin, token: true, status: http.StatusCreated},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/catalog/indexes", strings.NewReader(body))
			if tc.token {
				req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, tc.role))
			}
			resp := httptest.NewRecorder()
			router.ServeHTTP(resp, req)
			if resp.Code != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.Code)
			}
		})
	}
}

func TestAdminOrdersRequireAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubCheckout{}, nil)
	path := "/api/admin/v1/orders/" + uuid.NewString() + "/transition"

	staff := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"to":"shipped"}`))
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"to":"shipped"}`))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestLoginRateLimited(t *testing.T) {
	router := newTestRouter(testConfig(), newMemoryStore(), &stubCheckout{}, nil)
	body := `{"email":"a@b.co","password":"whatever"}`

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
		req.RemoteAddr = "10.0.0.1:1234"
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third attempt got %d", last)
	}
}

func TestAdminSalesAnalyticsRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubCheckout{}, nil)

	staff := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/admin/v1/analytics/sales", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without a warehouse got %d", resp.Code)
	}
}
