package lockout

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count       int64
	windowEnds  time.Time
	lockedUntil time.Time
}

// MemoryStore keeps lockout state in-process. Suitable for tests and
// single-instance deployments without Redis.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

func (s *MemoryStore) RecordFailure(_ context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	entry, ok := s.entries[key]
	if !ok || now.After(entry.windowEnds) {
		entry = &memoryEntry{windowEnds: now.Add(window)}
		s.entries[key] = entry
	}
	entry.count++
	return entry.count, nil
}

func (s *MemoryStore) Lock(_ context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		entry = &memoryEntry{}
		s.entries[key] = entry
	}
	entry.lockedUntil = until
	return nil
}

func (s *MemoryStore) LockedUntil(_ context.Context, key string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || time.Now().After(entry.lockedUntil) {
		return time.Time{}, false, nil
	}
	return entry.lockedUntil, true, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
