// Package lockout slows credential-stuffing by locking a username+IP pair
// after repeated failed logins. It is a best-effort brake: when the backing
// store is down, authentication proceeds and the failure is logged.
package lockout

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var checkDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "aureus_lockout_check_duration_ms",
	Help:    "Latency of login lockout checks in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

// Store tracks failure counts and lock state per key. Implementations must
// expire failure counts after the window passes.
type Store interface {
	// RecordFailure increments the failure count for key and returns the
	// count within the current window.
	RecordFailure(ctx context.Context, key string, window time.Duration) (int64, error)
	// Lock marks key locked until the given time.
	Lock(ctx context.Context, key string, until time.Time) error
	// LockedUntil reports whether key is locked and until when.
	LockedUntil(ctx context.Context, key string) (time.Time, bool, error)
	// Clear removes all state for key.
	Clear(ctx context.Context, key string) error
}

// Config bounds the sliding window.
type Config struct {
	AttemptsPerWindow int64
	Window            time.Duration
	LockDuration      time.Duration
}

// DefaultConfig: 5 failures per 15 minutes locks for 15 minutes.
func DefaultConfig() Config {
	return Config{
		AttemptsPerWindow: 5,
		Window:            15 * time.Minute,
		LockDuration:      15 * time.Minute,
	}
}

// Result reports whether a login attempt may proceed.
type Result struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Service applies the lockout policy over a Store.
type Service struct {
	store  Store
	config Config
	logger *slog.Logger
}

func New(store Store, config Config, logger *slog.Logger) *Service {
	if config.AttemptsPerWindow <= 0 {
		config = DefaultConfig()
	}
	return &Service{store: store, config: config, logger: logger}
}

// Key builds the lockout identity for a username and source IP.
func Key(username, ip string) string {
	return username + "|" + ip
}

// Check reports whether a login attempt for key may proceed. Store failures
// fail open.
func (s *Service) Check(ctx context.Context, key string) Result {
	start := time.Now()
	defer func() {
		checkDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	until, locked, err := s.store.LockedUntil(ctx, key)
	if err != nil {
		s.logger.ErrorContext(ctx, "lockout check failed, failing open", "error", err)
		return Result{Allowed: true}
	}
	if locked {
		retry := time.Until(until)
		if retry < 0 {
			retry = 0
		}
		return Result{Allowed: false, RetryAfter: retry}
	}
	return Result{Allowed: true}
}

// RecordFailure registers one failed attempt and returns true if the key
// just became locked.
func (s *Service) RecordFailure(ctx context.Context, key string) bool {
	count, err := s.store.RecordFailure(ctx, key, s.config.Window)
	if err != nil {
		s.logger.ErrorContext(ctx, "lockout record failed", "error", err)
		return false
	}
	if count < s.config.AttemptsPerWindow {
		return false
	}
	until := time.Now().Add(s.config.LockDuration)
	if err := s.store.Lock(ctx, key, until); err != nil {
		s.logger.ErrorContext(ctx, "lockout lock failed", "error", err)
		return false
	}
	return true
}

// Clear drops failure state after a successful login.
func (s *Service) Clear(ctx context.Context, key string) {
	if err := s.store.Clear(ctx, key); err != nil {
		s.logger.ErrorContext(ctx, "lockout clear failed", "error", err)
	}
}
