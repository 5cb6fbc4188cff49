package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type ctxKey string

const identityKey ctxKey = "identity"

// IdentityFromContext returns the authenticated identity attached by the
// middleware, or nil when the request bypassed authentication.
func IdentityFromContext(ctx context.Context) *Identity {
	identity, _ := ctx.Value(identityKey).(*Identity)
	return identity
}

// ContextWithIdentity returns a context carrying the identity. Handler
// tests use it to simulate an authenticated request.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// Middleware wraps a handler with bearer-token verification. Rejections
// short-circuit with 401 and the sentinel's fixed reason; on success the
// identity is stored in the request context for downstream handlers.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := v.Verify(r)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		ctx := ContextWithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func unauthorized(w http.ResponseWriter, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   reason,
	})
}
