// Package auth turns credentials into verified identities and bearer tokens.
// Rejections are deliberately information-minimal: an unknown username and a
// wrong password are indistinguishable from the outside.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"aureus/internal/audit"
	"aureus/internal/auth/password"
	"aureus/internal/auth/token"
	"aureus/internal/platform/metrics"
	"aureus/internal/ratelimit/lockout"
	"aureus/internal/users"
	dErrors "aureus/pkg/domain-errors"
	"aureus/pkg/platform/sentinel"
)

var tracer = otel.Tracer("aureus/auth")

// errBadCredentials is the single externally visible authentication failure.
var errBadCredentials = dErrors.New(dErrors.CodeUnauthorized, "Incorrect username or password")

// dummyDigest keeps the unknown-user path doing the same KDF work as the
// wrong-password path.
var dummyDigest, _ = password.Hash("aureus-timing-equalizer")

// LockedError reports an active login lockout.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("login locked, retry after %s", e.RetryAfter.Round(time.Second))
}

// UserStore is the slice of the store contract authentication needs.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
}

// TokenResult is the login response payload.
type TokenResult struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Service authenticates credentials against the store and issues tokens.
type Service struct {
	store    UserStore
	tokens   *token.Service
	lockouts *lockout.Service
	logger   *slog.Logger
	metrics  *metrics.Metrics
	auditor  audit.Emitter
	tokenTTL time.Duration
}

func NewService(
	store UserStore,
	tokens *token.Service,
	lockouts *lockout.Service,
	logger *slog.Logger,
	m *metrics.Metrics,
	auditor audit.Emitter,
	tokenTTL time.Duration,
) *Service {
	if auditor == nil {
		auditor = audit.NopEmitter{}
	}
	return &Service{
		store:    store,
		tokens:   tokens,
		lockouts: lockouts,
		logger:   logger,
		metrics:  m,
		auditor:  auditor,
		tokenTTL: tokenTTL,
	}
}

// Authenticate verifies username/password and returns the account. Every
// credential failure returns the same error; lockout state is checked first
// and a locked pair short-circuits before any verification.
func (s *Service) Authenticate(ctx context.Context, username, plaintext string, meta audit.RequestMeta) (*users.User, error) {
	ctx, span := tracer.Start(ctx, "auth.authenticate")
	defer span.End()

	key := lockout.Key(username, meta.IP)
	if res := s.lockouts.Check(ctx, key); !res.Allowed {
		s.logger.WarnContext(ctx, "login attempt while locked", "request_id", meta.RequestID)
		return nil, &LockedError{RetryAfter: res.RetryAfter}
	}

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Burn the same KDF cost as a real verification.
			password.Verify(plaintext, dummyDigest)
			return nil, s.reject(ctx, username, key, meta)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "find user")
	}

	if !password.Verify(plaintext, user.PasswordDigest) {
		return nil, s.reject(ctx, username, key, meta)
	}

	s.lockouts.Clear(ctx, key)
	s.metrics.RecordLogin(true)
	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionLogin, user.Username, meta))
	return user, nil
}

// Login authenticates and issues a bearer token.
func (s *Service) Login(ctx context.Context, username, plaintext string, meta audit.RequestMeta) (*TokenResult, error) {
	user, err := s.Authenticate(ctx, username, plaintext, meta)
	if err != nil {
		return nil, err
	}

	signed, err := s.tokens.Issue(user.Username, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "issue token")
	}

	s.metrics.TokensIssued.Inc()
	return &TokenResult{AccessToken: signed, TokenType: "bearer"}, nil
}

func (s *Service) reject(ctx context.Context, username, key string, meta audit.RequestMeta) error {
	s.metrics.RecordLogin(false)
	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionLoginFailed, username, meta))
	if locked := s.lockouts.RecordFailure(ctx, key); locked {
		s.auditor.Emit(ctx, audit.NewEvent(audit.ActionLockout, username, meta))
		s.logger.WarnContext(ctx, "login lockout triggered", "request_id", meta.RequestID)
	}
	return errBadCredentials
}
