package users

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"aureus/pkg/platform/sentinel"
)

// MemoryStore keeps accounts in a mutex-guarded map. It backs tests and
// database-less development runs; it intentionally favors clarity over
// performance.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]User)}
}

func (s *MemoryStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[username]; ok {
		return &user, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Insert(_ context.Context, user *User) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Username]; ok {
		return nil, sentinel.ErrConflict
	}
	stored := *user
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	s.users[stored.Username] = stored
	return &stored, nil
}

func (s *MemoryStore) UpdateFields(_ context.Context, username string, fields Fields) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[username]
	if !ok {
		return 0, nil
	}
	if fields.Email != nil {
		user.Email = *fields.Email
	}
	if fields.FullName != nil {
		user.FullName = *fields.FullName
	}
	if fields.Disabled != nil {
		user.Disabled = *fields.Disabled
	}
	if fields.PasswordDigest != nil {
		user.PasswordDigest = *fields.PasswordDigest
	}
	s.users[username] = user
	return 1, nil
}

func (s *MemoryStore) Replace(_ context.Context, username string, user *User) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[username]
	if !ok {
		return 0, nil
	}
	replacement := *user
	replacement.ID = existing.ID
	replacement.Username = username
	s.users[username] = replacement
	return 1, nil
}

func (s *MemoryStore) Delete(_ context.Context, username string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[username]; !ok {
		return 0, nil
	}
	delete(s.users, username)
	return 1, nil
}
