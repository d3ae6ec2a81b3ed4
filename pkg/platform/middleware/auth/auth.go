package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"rnp-recruitment/pkg/requestcontext"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// PrincipalRevocationChecker reports principals whose tokens must no longer
// be honoured, such as removed admin accounts.
type PrincipalRevocationChecker interface {
	IsPrincipalRevoked(ctx context.Context, subject, role string) (bool, error)
}

// Claims represents the claims we expect from the token validator
type Claims struct {
	Subject string
	Name    string
	Role    string
}

// writeJSONError writes a JSON error response with the given status code and error details.
func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireRole validates the bearer token and admits principals holding one of
// roles. The principal is stored in the request context for services. A nil
// revocationChecker skips the revocation check.
func RequireRole(validator TokenValidator, revocationChecker PrincipalRevocationChecker, logger *slog.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			if !slices.Contains(roles, claims.Role) {
				logger.WarnContext(ctx, "forbidden - role not permitted",
					"role", claims.Role,
					"subject", claims.Subject,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "Insufficient role for this resource")
				return
			}

			if revocationChecker != nil {
				revoked, err := revocationChecker.IsPrincipalRevoked(ctx, claims.Subject, claims.Role)
				if err != nil {
					logger.ErrorContext(ctx, "failed to check principal revocation",
						"error", err,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to validate token")
					return
				}
				if revoked {
					logger.WarnContext(ctx, "unauthorized access - principal revoked",
						"subject", claims.Subject,
						"request_id", requestID,
					)
					writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Token has been revoked")
					return
				}
			}

			ctx = requestcontext.WithPrincipal(ctx, requestcontext.Principal{
				Subject: claims.Subject,
				Name:    claims.Name,
				Role:    claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
