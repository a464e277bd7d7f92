package controllers

import (
	"net/http"

	"github.com/greenrow/seedshop-backend/api/middleware"
	"github.com/greenrow/seedshop-backend/internal/cart"
	"github.com/greenrow/seedshop-backend/internal/orders"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
)

// cartKeyFromRequest prefers the signed-in customer's cart over the session cart.
func cartKeyFromRequest(r *http.Request) (cart.Key, error) {
	if customerID := middleware.CustomerIDFromContext(r.Context()); customerID != nil {
		return cart.CustomerKey(*customerID), nil
	}
	sessionID := middleware.SessionIDFromContext(r.Context())
	if sessionID == "" {
		return cart.Key{}, pkgerrors.New(pkgerrors.CodeValidation, "cart session required")
	}
	return cart.SessionKey(sessionID), nil
}

func viewerFromRequest(r *http.Request) orders.Viewer {
	return orders.Viewer{
		CustomerID:      middleware.CustomerIDFromContext(r.Context()),
		SessionID:       middleware.SessionIDFromContext(r.Context()),
		CanManageOrders: middleware.CanManageOrders(r.Context()),
	}
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
