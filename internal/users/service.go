package users

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"aureus/internal/audit"
	"aureus/internal/auth/password"
	"aureus/internal/platform/metrics"
	dErrors "aureus/pkg/domain-errors"
	"aureus/pkg/platform/sentinel"
)

var tracer = otel.Tracer("aureus/users")

// Service implements the account lifecycle on top of a Store. Plaintext
// passwords are hashed here, before any store call, on every path that can
// persist one.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor audit.Emitter
}

func NewService(store Store, logger *slog.Logger, m *metrics.Metrics, auditor audit.Emitter) *Service {
	if auditor == nil {
		auditor = audit.NopEmitter{}
	}
	return &Service{store: store, logger: logger, metrics: m, auditor: auditor}
}

// Create registers a new account. The response record carries no digest
// beyond the json-suppressed field; duplicates map to conflict.
func (s *Service) Create(ctx context.Context, req *CreateUserRequest, meta audit.RequestMeta) (*User, error) {
	ctx, span := s.startSpan(ctx, "users.create", req.Username)
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	digest, err := password.Hash(req.Password)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
	}

	created, err := s.store.Insert(ctx, &User{
		Username:       req.Username,
		Email:          req.Email,
		FullName:       req.FullName,
		Disabled:       req.Disabled,
		PasswordDigest: digest,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username already taken")
		}
		return nil, storeFailure(err, "insert user")
	}

	s.metrics.UsersCreated.Inc()
	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionUserCreated, created.Username, meta))
	s.logger.InfoContext(ctx, "user created", "username", created.Username)
	return created, nil
}

// Get returns the account for username.
func (s *Service) Get(ctx context.Context, username string) (*User, error) {
	ctx, span := s.startSpan(ctx, "users.get", username)
	defer span.End()

	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found")
		}
		return nil, storeFailure(err, "find user")
	}
	return user, nil
}

// UpdatePartial applies a tagged field update. An empty update is rejected
// before the store is touched; zero modified records map to not found.
func (s *Service) UpdatePartial(ctx context.Context, username string, fields Fields, meta audit.RequestMeta) (*User, error) {
	ctx, span := s.startSpan(ctx, "users.update_partial", username)
	defer span.End()

	if fields.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "No update data provided")
	}

	if fields.Password != nil {
		digest, err := password.Hash(*fields.Password)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
		}
		fields.PasswordDigest = &digest
		fields.Password = nil
	}

	modified, err := s.store.UpdateFields(ctx, username, fields)
	if err != nil {
		return nil, storeFailure(err, "update user")
	}
	if modified == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "User not found or no changes made")
	}

	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionUserUpdated, username, meta))
	return s.Get(ctx, username)
}

// Replace overwrites the whole record. A supplied password is re-hashed;
// an absent one preserves the stored digest rather than nulling it. The
// username is pinned to the authenticated subject and cannot change.
func (s *Service) Replace(ctx context.Context, username string, req *ReplaceUserRequest, meta audit.RequestMeta) (*User, error) {
	ctx, span := s.startSpan(ctx, "users.replace", username)
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	current, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "User not found or no changes made")
		}
		return nil, storeFailure(err, "find user")
	}

	digest := current.PasswordDigest
	if req.Password != nil {
		digest, err = password.Hash(*req.Password)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "hash password")
		}
	}

	replacement := &User{
		Username:       username,
		Email:          req.Email,
		FullName:       req.FullName,
		Disabled:       req.Disabled,
		PasswordDigest: digest,
	}
	modified, err := s.store.Replace(ctx, username, replacement)
	if err != nil {
		return nil, storeFailure(err, "replace user")
	}
	if modified == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "User not found or no changes made")
	}

	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionUserUpdated, username, meta))
	return s.Get(ctx, username)
}

// Delete removes the account. Zero deleted records map to not found.
func (s *Service) Delete(ctx context.Context, username string, meta audit.RequestMeta) error {
	ctx, span := s.startSpan(ctx, "users.delete", username)
	defer span.End()

	deleted, err := s.store.Delete(ctx, username)
	if err != nil {
		return storeFailure(err, "delete user")
	}
	if deleted == 0 {
		return dErrors.New(dErrors.CodeNotFound, "User not found")
	}

	s.metrics.UsersDeleted.Inc()
	s.auditor.Emit(ctx, audit.NewEvent(audit.ActionUserDeleted, username, meta))
	s.logger.InfoContext(ctx, "user deleted", "username", username)
	return nil
}

func (s *Service) startSpan(ctx context.Context, name, username string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("user.name", username)))
}

// storeFailure surfaces infrastructure errors as unavailable; they are never
// retried in-process.
func storeFailure(err error, op string) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, op)
}
