package middleware

import (
	"net/http"
	"strings"

	"github.com/greenrow/seedshop-backend/api/responses"
	pkgerrors "github.com/greenrow/seedshop-backend/pkg/errors"
	"github.com/greenrow/seedshop-backend/pkg/logger"
	"github.com/greenrow/seedshop-backend/pkg/security"
)

// CartSessionHeader carries an anonymous visitor's cart session in both directions.
const CartSessionHeader = "X-Cart-Session"

const (
	cartSessionBytes  = 24
	maxCartSessionLen = 128
)

// CartSession attaches the caller's anonymous cart session. Anonymous callers
// without one get a fresh id echoed in the response header. Signed-in callers
// keep whatever they sent so the session cart can be merged on login.
func CartSession(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := strings.TrimSpace(r.Header.Get(CartSessionHeader))
			if len(sessionID) > maxCartSessionLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session id too long"))
				return
			}
			if sessionID == "" && UserIDFromContext(r.Context()) == "" {
				minted, err := security.RandomToken(cartSessionBytes)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint cart session"))
					return
				}
				sessionID = minted
			}
			if sessionID == "" {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set(CartSessionHeader, sessionID)
			ctx := WithSessionID(r.Context(), sessionID)
			if logg != nil {
				ctx = logg.WithField(ctx, "cart_session", sessionID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
