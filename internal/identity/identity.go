// Package identity carries the current actor's identity. Token
// validation is an upstream concern; this package only transports the
// resolved identity through contexts and requests.
package identity

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey struct{}

// Provider supplies the current actor's identity, or none.
type Provider interface {
	Current(ctx context.Context) (string, bool)
}

// ContextProvider reads the identity previously attached to the context.
type ContextProvider struct{}

var _ Provider = ContextProvider{}

func (ContextProvider) Current(ctx context.Context) (string, bool) {
	return FromContext(ctx)
}

// WithIdentity returns a context carrying the given user id.
func WithIdentity(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the identity attached to the context, if any.
func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Middleware extracts the authenticated user id from the X-User-ID
// header (set by the auth gateway in front of this service) and
// attaches it to the request context. Requests without the header pass
// through anonymously.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
