package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tradegate/steamauth/core"
	"github.com/tradegate/steamauth/ports"
)

// RedisStore is a Redis implementation of the SessionStore interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.SessionStore {
	return &RedisStore{
		client: client,
		prefix: "steamauth:session:",
	}
}

// SaveSession stores a serialized session snapshot with expiration
func (s *RedisStore) SaveSession(ctx context.Context, key string, state core.SessionState, ttl time.Duration) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := s.client.Set(ctx, s.prefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// LoadSession retrieves a session snapshot from Redis
func (s *RedisStore) LoadSession(ctx context.Context, key string) (core.SessionState, error) {
	payload, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.SessionState{}, ports.ErrSessionNotFound
	}
	if err != nil {
		return core.SessionState{}, fmt.Errorf("failed to load session: %w", err)
	}

	var state core.SessionState
	if err := json.Unmarshal(payload, &state); err != nil {
		return core.SessionState{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return state, nil
}

// DeleteSession removes a session snapshot from Redis
func (s *RedisStore) DeleteSession(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
