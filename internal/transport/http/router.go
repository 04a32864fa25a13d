package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aureus/internal/platform/metrics"
	"aureus/internal/platform/middleware"
)

// RouterConfig carries everything the HTTP surface needs. Handlers delegate
// to the services; no business logic lives in this package.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Auth           AuthService
	Users          UsersService
	Tokens         middleware.TokenValidator
	Resolver       middleware.UserResolver
	RequestTimeout time.Duration
}

// NewRouter wires the middleware chain and all routes. Registration and the
// token endpoint are public; the /users/me group sits behind the session
// gate.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(middleware.Latency(cfg.Metrics))
	}
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	authHandler := NewAuthHandler(cfg.Auth)
	usersHandler := NewUsersHandler(cfg.Users)

	authHandler.Register(r)
	usersHandler.RegisterPublic(r)

	r.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth(cfg.Tokens, cfg.Resolver, cfg.Logger))
		usersHandler.RegisterProtected(protected)
	})

	return r
}
