package testutil

import (
	"net/http"

	"rnp-recruitment/pkg/requestcontext"
)

// WithPrincipal returns req carrying an authenticated principal, as the auth
// middleware would after validating a bearer token.
func WithPrincipal(req *http.Request, subject, name, role string) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), requestcontext.Principal{
		Subject: subject,
		Name:    name,
		Role:    role,
	})
	return req.WithContext(ctx)
}

// AsPrincipal is a middleware that authenticates every request as the given
// principal. Handler tests mount it in place of token validation.
func AsPrincipal(subject, name, role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, WithPrincipal(r, subject, name, role))
		})
	}
}
