package core

import "time"

// Cookie is the serializable subset of an HTTP cookie that a session
// store needs to rebuild a cookie jar.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain"`
	Path   string `json:"path"`
}

// SessionState is a snapshot of an authenticated session, suitable for
// persisting in a store and restoring into a fresh client.
type SessionState struct {
	Username  string    `json:"username"`
	SteamID   string    `json:"steamid"`
	SessionID string    `json:"session_id"`
	Cookies   []Cookie  `json:"cookies"`
	IssuedAt  time.Time `json:"issued_at"`
}
