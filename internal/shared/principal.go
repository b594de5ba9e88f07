package shared

import (
	"context"
	"net/http"

	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// Principal identifies the authenticated admin performing an operation.
// Authentication itself lives in a separate gateway; this service only
// requires that admin mutations arrive with an attributable identity.
type Principal struct {
	ID    string
	Email string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context. The second return
// is false when no principal was attached.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.ID != ""
}

// RequirePrincipal reads the identity headers set by the upstream auth gateway
// and rejects admin requests that arrive without one. There is deliberately no
// fallback identity.
func RequirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Admin-Id")
		if id == "" {
			httpx.RespondError(w, httpx.ErrUnauthorized)
			return
		}
		p := Principal{ID: id, Email: r.Header.Get("X-Admin-Email")}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
	})
}
