package auth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/greenrow/seedshop-backend/internal/cart"
	pkgAuth "github.com/greenrow/seedshop-backend/pkg/auth"
	"github.com/greenrow/seedshop-backend/pkg/auth/session"
	"github.com/greenrow/seedshop-backend/pkg/config"
	"github.com/greenrow/seedshop-backend/pkg/db/models"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "seedshop",
	ExpirationMinutes: 30,
}

func TestServiceLoginMintsRoleClaim(t *testing.T) {
	password := "staff-secret-1"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "staff@example.com",
		PasswordHash: mustHashPassword(t, password),
		Name:         "Staff",
		Role:         enums.UserRoleStaff,
		IsActive:     true,
	}
	svc, sessions, _ := buildTestService(t, user, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  STAFF@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleStaff {
		t.Fatalf("expected staff role claim, got %s", claims.Role)
	}
	if !claims.CanManageCatalog() {
		t.Fatalf("expected staff to manage catalog")
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("unexpected refresh token %q", resp.RefreshToken)
	}
	if sessions.generated[claims.ID] != user.ID {
		t.Fatalf("expected session keyed by jti %s", claims.ID)
	}
	if user.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "c@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	cases := map[string]LoginRequest{
		"wrong password": {Email: user.Email, Password: "wrong-password"},
		"unknown email":  {Email: "nobody@example.com", Password: "right-password"},
		"blank email":    {Email: " ", Password: "right-password"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			svc, _, _ := buildTestService(t, user, nil)
			_, err := svc.Login(context.Background(), req)
			if !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
				t.Fatalf("expected unauthorized, got %v", err)
			}
		})
	}

	user.IsActive = false
	svc, _, _ := buildTestService(t, user, nil)
	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "right-password"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected inactive user to be rejected, got %v", err)
	}
}

func TestServiceLoginMergesSessionCart(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "c@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	merger := &stubCartMerger{}
	svc, _, _ := buildTestService(t, user, merger)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "right-password", SessionID: "sess-1"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if merger.sessionID != "sess-1" || merger.customerID != user.ID {
		t.Fatalf("expected merge of sess-1 into %s, got %q %s", user.ID, merger.sessionID, merger.customerID)
	}

	merger.err = errors.New("redis down")
	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "right-password", SessionID: "sess-2"}); err != nil {
		t.Fatalf("merge failure must not fail login: %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "c@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	svc, _, _ := buildTestService(t, user, nil)
	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "right-password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, refreshed.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.ID != "rotated-access" {
		t.Fatalf("expected rotated jti, got %s", claims.ID)
	}
	if refreshed.RefreshToken != "rotated-refresh" {
		t.Fatalf("unexpected refresh token %q", refreshed.RefreshToken)
	}

	if _, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: resp.AccessToken, RefreshToken: "stale"}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad refresh token, got %v", err)
	}
	if _, err := svc.Refresh(context.Background(), RefreshRequest{AccessToken: "garbage", RefreshToken: resp.RefreshToken}); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad access token, got %v", err)
	}
}

func TestServiceLogoutRevokes(t *testing.T) {
	svc, sessions, _ := buildTestService(t, &models.User{ID: uuid.New()}, nil)
	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-1" {
		t.Fatalf("expected jti-1 revoked, got %v", sessions.revoked)
	}
	if err := svc.Logout(context.Background(), ""); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for empty session, got %v", err)
	}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatalf("expected error without user repo")
	}
	if _, err := NewService(ServiceParams{UserRepo: &stubUserRepo{}}); err == nil {
		t.Fatalf("expected error without session manager")
	}
	if _, err := NewService(ServiceParams{UserRepo: &stubUserRepo{}, SessionManager: &stubSessionManager{}}); err == nil {
		t.Fatalf("expected error without logger")
	}
}

func buildTestService(t *testing.T, user *models.User, merger cartMerger) (Service, *stubSessionManager, *stubUserRepo) {
	t.Helper()
	repo := &stubUserRepo{user: user}
	sessions := &stubSessionManager{refreshToken: "refresh-token", generated: map[string]uuid.UUID{}}
	params := ServiceParams{
		UserRepo:       repo,
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Logger:         logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard}),
		Now:            func() time.Time { return time.Now().UTC() },
	}
	if merger != nil {
		params.Carts = merger
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, sessions, repo
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
	generated    map[string]uuid.UUID
	revoked      []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.generated[accessID] = userID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (*session.Rotation, error) {
	userID, ok := s.generated[oldAccessID]
	if !ok || provided != s.refreshToken {
		return nil, session.ErrInvalidRefreshToken
	}
	delete(s.generated, oldAccessID)
	return &session.Rotation{UserID: userID, AccessID: "rotated-access", RefreshToken: "rotated-refresh"}, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubCartMerger struct {
	sessionID  string
	customerID uuid.UUID
	err        error
}

func (s *stubCartMerger) Merge(ctx context.Context, sessionID string, customerID uuid.UUID) (*cart.Summary, error) {
	s.sessionID = sessionID
	s.customerID = customerID
	if s.err != nil {
		return nil, s.err
	}
	return &cart.Summary{}, nil
}
