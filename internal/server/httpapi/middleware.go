package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/corkboard/internal/common"
	"github.com/dmitrijs2005/corkboard/internal/server/auth"
)

type ctxKey string

const identityKey ctxKey = "identity"

// IdentityFromContext returns the authenticated display identity stored by
// the auth middleware.
func IdentityFromContext(ctx context.Context) (string, bool) {
	identity, ok := ctx.Value(identityKey).(string)
	return identity, ok
}

// authMiddleware verifies the bearer token and stores the display identity
// in the request context. The core treats identity as an opaque string; this
// boundary is the only place it is verified.
func (h *Handler) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthHeaderName)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			h.writeError(w, r, common.ErrorUnauthorized)
			return
		}

		identity, err := auth.IdentityFromToken(token, h.secretKey)
		if err != nil {
			h.writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
