package netident

import (
	"context"
	"net/http"
)

type identityContextKey struct{}

// ResolveHTTP resolves the client identity of r.
func (r *Resolver) ResolveHTTP(req *http.Request) Identity {
	return r.Resolve(RequestContextFromHTTP(req))
}

// Middleware resolves each request's identity once and stores it in the
// request context for IdentityFromContext.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		identity := r.ResolveHTTP(req)
		ctx := context.WithValue(req.Context(), identityContextKey{}, identity)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// IdentityFromContext returns the identity stored by Middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(Identity)
	return identity, ok
}
