package chi

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/jurisdoc/internal/logger"
)

// exemptPaths are routes that bypass authentication.
var exemptPaths = map[string]struct{}{
	"/login":   {},
	"/health":  {},
	"/metrics": {},
}

// TokenValidator verifies a bearer token and returns its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

type subjectKey struct{}

// SubjectFromContext returns the authenticated subject, or "" for exempt routes.
func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens.
// If validator is nil, authentication is disabled (pass-through).
func BearerAuthMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		// Auth disabled, pass everything through
		if validator == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "missing authorization header")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeError(w, http.StatusUnauthorized,
					ErrorCodeUnauthorized, "authorization header must use Bearer scheme")
				return
			}

			subject, err := validator.Validate(auth[len(bearerPrefix):])
			if err != nil {
				logger.FromContext(r.Context()).Debug("token rejected", zap.Error(err))
				writeError(w, http.StatusUnauthorized, ErrorCodeUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), subjectKey{}, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
