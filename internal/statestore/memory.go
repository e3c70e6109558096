package statestore

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the single-instance backend: a mutex-guarded map with
// verify-on-read expiry.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Put(_ context.Context, state string, entry Entry, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state] = memoryEntry{entry: entry, expiresAt: time.Now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Take(_ context.Context, state string) (Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.entries[state]
	if !ok {
		return Entry{}, ErrNotFound
	}
	delete(s.entries, state)

	if time.Now().After(stored.expiresAt) {
		return Entry{}, ErrNotFound
	}
	return stored.entry, nil
}
