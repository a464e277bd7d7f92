package middleware

import (
	"context"
	"net/http"

	"github.com/greenrow/seedshop-backend/api/responses"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
)

// RequireCatalogManager admits staff and admins.
func RequireCatalogManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireCapability(CanManageCatalog, "catalog management role required", logg)
}

// RequireOrderManager admits admins.
func RequireOrderManager(logg *logger.Logger) func(http.Handler) http.Handler {
	return requireCapability(CanManageOrders, "order management role required", logg)
}

func requireCapability(check func(context.Context) bool, msg string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !check(r.Context()) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, msg))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
