package httptransport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"aureus/internal/audit"
	"aureus/internal/auth"
	"aureus/internal/platform/middleware"
	dErrors "aureus/pkg/domain-errors"
	"aureus/pkg/platform/httputil"
)

// AuthService is the slice of the authenticator the token endpoint needs.
type AuthService interface {
	Login(ctx context.Context, username, password string, meta audit.RequestMeta) (*auth.TokenResult, error)
}

// AuthHandler serves the token issuance endpoint.
type AuthHandler struct {
	auth AuthService
}

func NewAuthHandler(auth AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/token", h.handleToken)
}

// handleToken exchanges a username/password form for a bearer token. The
// request body is form-encoded (OAuth2 password grant shape); the failure
// response never says which half of the credentials was wrong.
func (h *AuthHandler) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid form body"))
		return
	}
	username := r.PostFormValue("username")
	plaintext := r.PostFormValue("password")
	if username == "" || plaintext == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "username and password are required"))
		return
	}

	result, err := h.auth.Login(r.Context(), username, plaintext, requestMeta(r))
	if err != nil {
		var locked *auth.LockedError
		if errors.As(err, &locked) {
			w.Header().Set("Retry-After", strconv.Itoa(int(locked.RetryAfter.Seconds())))
			httputil.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"detail": "Too many failed login attempts",
			})
			return
		}
		if dErrors.Is(err, dErrors.CodeUnauthorized) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httputil.WriteJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Incorrect username or password",
			})
			return
		}
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// requestMeta collects per-request attribution for audit events.
func requestMeta(r *http.Request) audit.RequestMeta {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}
	return audit.RequestMeta{
		RequestID: middleware.GetRequestID(r.Context()),
		IP:        ip,
		UserAgent: r.UserAgent(),
	}
}
