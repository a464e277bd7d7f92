package controllers

import (
	"net/http"

	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/api/responses"
	"github.com/greenrow/seedshop-backend/api/validators"
	"github.com/greenrow/seedshop-backend/internal/catalog"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

func CatalogIndexes(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		indexes, err := svc.ListIndexes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, indexes)
	}
}

func CatalogIndex(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		indexSlug, err := validators.ParseSlugParam(r, "indexSlug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetIndex(r.Context(), indexSlug, middleware.CanManageCatalog(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// CatalogCommonName serves the composed common-name page.
func CatalogCommonName(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		indexSlug, err := validators.ParseSlugParam(r, "indexSlug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cnSlug, err := validators.ParseSlugParam(r, "cnSlug")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.GetCommonName(r.Context(), indexSlug, cnSlug, middleware.CanManageCatalog(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func CatalogCultivar(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, serviceUnavailable("catalog"))
			return
		}
		slugs := make([]string, 0, 3)
		for _, name := range []string{"indexSlug", "cnSlug", "cvSlug"} {
			slug, err := validators.ParseSlugParam(r, name)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			slugs = append(slugs, slug)
		}
		detail, err := svc.GetCultivar(r.Context(), slugs[0], slugs[1], slugs[2], middleware.CanManageCatalog(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
