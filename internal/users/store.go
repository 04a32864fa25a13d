package users

import "context"

// Store is the persistence contract the account service requires. The
// store owns per-record atomicity; the service layers no locking on top.
//
// Counts returned by UpdateFields, Replace, and Delete report affected
// records; zero is not an error at this layer — callers decide whether it
// means "not found" or "no-op". Lookup misses return sentinel.ErrNotFound;
// duplicate usernames on Insert return sentinel.ErrConflict; infrastructure
// failures wrap sentinel.ErrUnavailable.
type Store interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Insert(ctx context.Context, user *User) (*User, error)
	UpdateFields(ctx context.Context, username string, fields Fields) (int64, error)
	Replace(ctx context.Context, username string, user *User) (int64, error)
	Delete(ctx context.Context, username string) (int64, error)
}
