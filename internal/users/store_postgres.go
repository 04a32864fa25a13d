package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"aureus/pkg/platform/sentinel"
)

const uniqueViolation = "23505"

// PostgresStore persists accounts in a single users table. It goes through
// database/sql (pgx stdlib driver) and relies on per-row atomicity of
// UPDATE/DELETE for the adapter contract.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the users table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL,
			full_name TEXT NOT NULL DEFAULT '',
			disabled BOOLEAN NOT NULL DEFAULT FALSE,
			password_digest TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `
		SELECT id, username, email, full_name, disabled, password_digest
		FROM users
		WHERE username = $1
	`
	user := &User{}
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.FullName, &user.Disabled, &user.PasswordDigest,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, wrapDBErr("find user", err)
	}
	return user, nil
}

func (s *PostgresStore) Insert(ctx context.Context, user *User) (*User, error) {
	stored := *user
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	query := `
		INSERT INTO users (id, username, email, full_name, disabled, password_digest)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(ctx, query,
		stored.ID, stored.Username, stored.Email, stored.FullName, stored.Disabled, stored.PasswordDigest,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, sentinel.ErrConflict
		}
		return nil, wrapDBErr("insert user", err)
	}
	return &stored, nil
}

func (s *PostgresStore) UpdateFields(ctx context.Context, username string, fields Fields) (int64, error) {
	sets := []string{"updated_at = now()"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if fields.Email != nil {
		sets = append(sets, "email = "+arg(*fields.Email))
	}
	if fields.FullName != nil {
		sets = append(sets, "full_name = "+arg(*fields.FullName))
	}
	if fields.Disabled != nil {
		sets = append(sets, "disabled = "+arg(*fields.Disabled))
	}
	if fields.PasswordDigest != nil {
		sets = append(sets, "password_digest = "+arg(*fields.PasswordDigest))
	}
	if len(args) == 0 {
		return 0, nil
	}

	query := "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE username = " + arg(username)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapDBErr("update user", err)
	}
	modified, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBErr("update user", err)
	}
	return modified, nil
}

func (s *PostgresStore) Replace(ctx context.Context, username string, user *User) (int64, error) {
	query := `
		UPDATE users
		SET email = $1, full_name = $2, disabled = $3, password_digest = $4, updated_at = now()
		WHERE username = $5
	`
	res, err := s.db.ExecContext(ctx, query,
		user.Email, user.FullName, user.Disabled, user.PasswordDigest, username,
	)
	if err != nil {
		return 0, wrapDBErr("replace user", err)
	}
	modified, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBErr("replace user", err)
	}
	return modified, nil
}

func (s *PostgresStore) Delete(ctx context.Context, username string) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE username = $1", username)
	if err != nil {
		return 0, wrapDBErr("delete user", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, wrapDBErr("delete user", err)
	}
	return deleted, nil
}

func wrapDBErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}
