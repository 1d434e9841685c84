package store

import (
	"context"
	"sync"
	"time"

	"github.com/tradegate/steamauth/core"
	"github.com/tradegate/steamauth/ports"
)

// MemoryStore is an in-memory implementation of the SessionStore
// interface
type MemoryStore struct {
	sessions map[string]entry
	mu       sync.RWMutex
}

type entry struct {
	state     core.SessionState
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.SessionStore {
	return &MemoryStore{
		sessions: make(map[string]entry),
	}
}

// SaveSession stores a session snapshot until its TTL elapses
func (s *MemoryStore) SaveSession(ctx context.Context, key string, state core.SessionState, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[key] = entry{
		state:     state,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// LoadSession retrieves a session snapshot by key
func (s *MemoryStore) LoadSession(ctx context.Context, key string) (core.SessionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.sessions[key]
	if !exists {
		return core.SessionState{}, ports.ErrSessionNotFound
	}

	// Expired entries are treated as absent
	if time.Now().After(stored.expiresAt) {
		return core.SessionState{}, ports.ErrSessionNotFound
	}

	return stored.state, nil
}

// DeleteSession removes a session snapshot
func (s *MemoryStore) DeleteSession(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, key)
	return nil
}
