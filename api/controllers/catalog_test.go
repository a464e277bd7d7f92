package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/pkg/enums"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

type stubCatalogService struct {
	catalog.Service
	index     *catalog.IndexView
	err       error
	gotSlug   string
	canManage bool
}

func (s *stubCatalogService) GetIndex(ctx context.Context, slug string, canManage bool) (*catalog.IndexView, error) {
	s.gotSlug = slug
	s.canManage = canManage
	return s.index, s.err
}

func (s *stubCatalogService) ListIndexes(ctx context.Context) ([]catalog.IndexSummary, error) {
	return []catalog.IndexSummary{{ID: uuid.New(), Name: "Vegetables", Slug: "vegetables"}}, nil
}

func TestCatalogIndexPassesVisibility(t *testing.T) {
	svc := &stubCatalogService{index: &catalog.IndexView{ID: uuid.New(), Name: "Vegetables", Slug: "vegetables"}}
	handler := CatalogIndex(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/Vegetables", nil)
	req = withURLParams(req, map[string]string{"indexSlug": "Vegetables"})
	req = req.WithContext(middleware.WithRole(req.Context(), string(enums.UserRoleStaff)))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotSlug != "vegetables" {
		t.Fatalf("expected lower-cased slug, got %q", svc.gotSlug)
	}
	if !svc.canManage {
		t.Fatal("expected staff to see hidden entries")
	}

	var envelope struct {
		Data catalog.IndexView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Name != "Vegetables" {
		t.Fatalf("unexpected index name %q", envelope.Data.Name)
	}
}

func TestCatalogIndexAnonymousCannotManage(t *testing.T) {
	svc := &stubCatalogService{index: &catalog.IndexView{}}
	handler := CatalogIndex(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/herbs", nil)
	req = withURLParams(req, map[string]string{"indexSlug": "herbs"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.canManage {
		t.Fatal("anonymous caller must not see hidden entries")
	}
}

func TestCatalogIndexNotFound(t *testing.T) {
	svc := &stubCatalogService{err: pkgerrors.New(pkgerrors.CodeNotFound, "index not found")}
	handler := CatalogIndex(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog/flowers", nil)
	req = withURLParams(req, map[string]string{"indexSlug": "flowers"})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestCatalogIndexesNilService(t *testing.T) {
	handler := CatalogIndexes(nil, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/catalog", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
