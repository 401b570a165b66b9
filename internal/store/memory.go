package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a simple in-process store for local/dev use. Expired entries
// are dropped lazily on read; StartJanitor adds periodic cleanup so an idle
// instance does not accumulate dead sessions.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	value    []byte
	deadline time.Time // zero means no expiry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.deadline.IsZero() && time.Now().After(e.deadline) {
		delete(s.entries, key)
		return nil, false, nil
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryEntry{value: stored, deadline: deadline}
	return nil
}

func (s *MemoryStore) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.dropExpired()
			}
		}
	}()
}

func (s *MemoryStore) dropExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if !e.deadline.IsZero() && now.After(e.deadline) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryStore) Close() error { return nil }
