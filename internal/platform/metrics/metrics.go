package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	UsersCreated  prometheus.Counter
	UsersDeleted  prometheus.Counter
	LoginAttempts *prometheus.CounterVec
	TokensIssued  prometheus.Counter

	RequestDuration *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics on the given registerer.
// Passing a fresh registry keeps tests isolated; production passes
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UsersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "aureus_users_created_total",
			Help: "Total number of user accounts created",
		}),
		UsersDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "aureus_users_deleted_total",
			Help: "Total number of user accounts deleted",
		}),
		LoginAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aureus_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		TokensIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "aureus_tokens_issued_total",
			Help: "Total number of access tokens issued",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "aureus_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// RecordLogin bumps the login counter with outcome "success" or "failure".
func (m *Metrics) RecordLogin(success bool) {
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveRequest records one request's latency.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.RequestDuration.WithLabelValues(route, statusLabel(status)).Observe(d.Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
