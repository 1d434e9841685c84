package ports

import (
	"context"
	"errors"
	"time"

	"github.com/tradegate/steamauth/core"
)

// ErrSessionNotFound is returned by LoadSession when no snapshot exists
// for the key
var ErrSessionNotFound = errors.New("session not found")

// SessionStore persists session snapshots so a restarted process can
// resume without a fresh login
type SessionStore interface {
	SaveSession(ctx context.Context, key string, state core.SessionState, ttl time.Duration) error
	LoadSession(ctx context.Context, key string) (core.SessionState, error)
	DeleteSession(ctx context.Context, key string) error
}
