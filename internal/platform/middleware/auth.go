package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"aureus/internal/auth/token"
	"aureus/internal/users"
	dErrors "aureus/pkg/domain-errors"
	"aureus/pkg/platform/httputil"
)

// TokenValidator validates a bearer token string into verified claims.
type TokenValidator interface {
	Validate(tokenString string) (*token.Claims, error)
}

// UserResolver re-reads the identity behind a token subject. The store is
// the source of truth: a valid token whose subject no longer exists must be
// rejected, which is what makes deletion visible to already-issued tokens
// without a revocation list.
type UserResolver interface {
	Get(ctx context.Context, username string) (*users.User, error)
}

type contextKeyUser struct{}

// GetUser retrieves the authenticated account from the context. It is only
// present downstream of RequireAuth.
func GetUser(ctx context.Context) *users.User {
	user, ok := ctx.Value(contextKeyUser{}).(*users.User)
	if !ok {
		return nil
	}
	return user
}

// RequireAuth is the per-request session gate: extract the bearer token,
// verify its signature and expiry, then re-look the subject up live. Both
// steps are mandatory; there is no cached identity path. Every rejection is
// the same generic 401.
func RequireAuth(validator TokenValidator, resolver UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			raw, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || raw == "" {
				logger.WarnContext(ctx, "unauthorized - missing bearer token",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.Validate(raw)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			user, err := resolver.Get(ctx, claims.Username())
			if err != nil {
				if dErrors.Is(err, dErrors.CodeUnavailable) {
					logger.ErrorContext(ctx, "user lookup failed during auth",
						"error", err,
						"request_id", requestID,
					)
					httputil.WriteError(w, err)
					return
				}
				// Subject no longer exists: the token is orphaned.
				logger.WarnContext(ctx, "unauthorized - unknown token subject",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			if user.Disabled {
				httputil.WriteJSON(w, http.StatusForbidden, map[string]string{"detail": "Inactive user"})
				return
			}

			ctx = context.WithValue(ctx, contextKeyUser{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUser injects a pre-resolved user into the request context, bypassing
// the gate. Handler tests use it to exercise protected routes directly.
func WithUser(user *users.User) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), contextKeyUser{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
		"detail": "Could not validate credentials",
	})
}
