package steamauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradegate/steamauth/adapters/store"
	"github.com/tradegate/steamauth/ports"
)

func TestSaveAndRestoreSession(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	sessionStore := store.NewMemoryStore()
	ctx := context.Background()

	first := newTestClient(t, p)
	first.store = sessionStore
	require.NoError(t, first.Login(ctx, "jakub", "password", testGuardJSON))
	require.NoError(t, first.SaveSession(ctx, time.Hour))

	// A fresh client resumes from the snapshot without logging in again
	second := newTestClient(t, p)
	second.store = sessionStore
	require.NoError(t, second.RestoreSession(ctx, "jakub", testGuardJSON))

	sessionID, err := second.SessionID()
	require.NoError(t, err)
	assert.Equal(t, "testsession", sessionID)

	// Only the first client's login hit the provider
	assert.Equal(t, 1, p.dologinCalls)
}

func TestRestoreSessionMissingSnapshot(t *testing.T) {
	p := newFakeProvider(t)
	client := newTestClient(t, p)
	client.store = store.NewMemoryStore()

	err := client.RestoreSession(context.Background(), "jakub", testGuardJSON)
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}

func TestRestoreSessionDeadOnProvider(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	sessionStore := store.NewMemoryStore()
	ctx := context.Background()

	first := newTestClient(t, p)
	first.store = sessionStore
	require.NoError(t, first.Login(ctx, "jakub", "password", testGuardJSON))
	require.NoError(t, first.SaveSession(ctx, time.Hour))

	// The provider no longer recognizes the session
	p.loggedOut = true

	second := newTestClient(t, p)
	second.store = sessionStore
	err := second.RestoreSession(ctx, "jakub", testGuardJSON)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = second.SessionID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutDeletesStoredSession(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	sessionStore := store.NewMemoryStore()
	ctx := context.Background()

	client := newTestClient(t, p)
	client.store = sessionStore
	require.NoError(t, client.Login(ctx, "jakub", "password", testGuardJSON))
	require.NoError(t, client.SaveSession(ctx, time.Hour))
	require.NoError(t, client.Logout(ctx))

	_, err := sessionStore.LoadSession(ctx, "jakub")
	assert.ErrorIs(t, err, ports.ErrSessionNotFound)
}
