// Package steamauth implements authentication against the Steam identity
// provider (RSA-encrypted credential submission with two-factor codes),
// session propagation across the cookie-isolated store and community
// origins, and discovery/approval of pending mobile confirmations.
package steamauth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tradegate/steamauth/core"
	"github.com/tradegate/steamauth/ports"
)

const (
	defaultCommunityURL = "https://steamcommunity.com"
	defaultStoreURL     = "https://store.steampowered.com"
	defaultAPIURL       = "https://api.steampowered.com"

	sessionCookieName = "sessionid"
)

// Client owns the single cookie-bearing session. Login creates the
// session, Logout destroys it, every authenticated operation checks it
// first. A store and an event publisher are optional; pass nil to skip
// session persistence and event publishing.
type Client struct {
	apiKey string
	http   *http.Client
	jar    http.CookieJar

	secrets       core.GuardSecrets
	username      string
	authenticated bool

	// loginMu serializes login/logout so a concurrent second login cannot
	// race the redirect-following step and corrupt cookie state
	loginMu sync.Mutex

	store  ports.SessionStore
	events ports.EventPublisher

	communityURL string
	storeURL     string
	apiURL       string
}

// NewClient creates a new client. The api key is only needed for web API
// wrappers; pass an empty string if those are not used.
func NewClient(apiKey string, store ports.SessionStore, events ports.EventPublisher) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	return &Client{
		apiKey:       apiKey,
		http:         &http.Client{Timeout: 30 * time.Second, Jar: jar},
		jar:          jar,
		store:        store,
		events:       events,
		communityURL: defaultCommunityURL,
		storeURL:     defaultStoreURL,
		apiURL:       defaultAPIURL,
	}, nil
}

// Login authenticates against the provider. The guard descriptor is a
// path to a secrets file or the inline JSON document (see
// core.LoadGuardSecrets).
func (c *Client) Login(ctx context.Context, username, password, guardDescriptor string) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	secrets, err := core.LoadGuardSecrets(guardDescriptor)
	if err != nil {
		return err
	}

	executor := &loginExecutor{
		client:       c,
		username:     username,
		password:     password,
		sharedSecret: secrets.SharedSecret,
	}
	if err := executor.run(ctx); err != nil {
		return err
	}

	c.secrets = secrets
	c.username = username
	c.authenticated = true

	if c.events != nil {
		// Best effort, a failed event must not fail the login
		_ = c.events.PublishLogin(ctx, username, secrets.SteamID)
	}

	return nil
}

// Logout submits a logout request carrying the session identifier, then
// verifies the session is actually gone by probing the community page.
// Local state is only cleared once the provider confirms.
func (c *Client) Logout(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if err := c.checkSession(); err != nil {
		return err
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return err
	}

	resp, err := c.postForm(ctx, c.storeURL+"/logout/", url.Values{"sessionid": {sessionID}}, nil)
	if err != nil {
		return err
	}
	if _, err := drainBody(resp); err != nil {
		return err
	}

	alive, err := c.IsSessionAlive(ctx)
	if err != nil {
		return err
	}
	if alive {
		return ErrLogoutFailed
	}

	username := c.username
	c.authenticated = false
	c.username = ""
	c.secrets = core.GuardSecrets{}

	if c.store != nil {
		_ = c.store.DeleteSession(ctx, username)
	}
	if c.events != nil {
		_ = c.events.PublishLogout(ctx, username)
	}

	return nil
}

// IsSessionAlive reports whether the provider still recognizes the
// session by checking for the username on the community page.
func (c *Client) IsSessionAlive(ctx context.Context) (bool, error) {
	if err := c.checkSession(); err != nil {
		return false, err
	}

	resp, err := c.get(ctx, c.communityURL, nil, nil)
	if err != nil {
		return false, err
	}
	body, err := drainBody(resp)
	if err != nil {
		return false, err
	}

	return strings.Contains(strings.ToLower(string(body)), strings.ToLower(c.username)), nil
}

// SessionID returns the session identifier token required as a form
// parameter by every authenticated downstream request, or
// ErrNotAuthenticated when no session is present.
func (c *Client) SessionID() (string, error) {
	if err := c.checkSession(); err != nil {
		return "", err
	}

	sessionID := c.sessionCookieValue()
	if sessionID == "" {
		return "", ErrNotAuthenticated
	}
	return sessionID, nil
}

// SteamID returns the account id of the authenticated user.
func (c *Client) SteamID() (string, error) {
	if err := c.checkSession(); err != nil {
		return "", err
	}
	return c.secrets.SteamID, nil
}

// SaveSession snapshots the current session into the configured store so
// a later process can resume without a fresh login.
func (c *Client) SaveSession(ctx context.Context, ttl time.Duration) error {
	if err := c.checkSession(); err != nil {
		return err
	}
	if c.store == nil {
		return fmt.Errorf("no session store configured")
	}

	sessionID, err := c.SessionID()
	if err != nil {
		return err
	}

	state := core.SessionState{
		Username:  c.username,
		SteamID:   c.secrets.SteamID,
		SessionID: sessionID,
		IssuedAt:  time.Now(),
	}
	for _, origin := range c.origins() {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		for _, cookie := range c.jar.Cookies(u) {
			state.Cookies = append(state.Cookies, core.Cookie{
				Name:   cookie.Name,
				Value:  cookie.Value,
				Domain: u.Host,
				Path:   "/",
			})
		}
	}

	return c.store.SaveSession(ctx, c.username, state, ttl)
}

// RestoreSession loads a snapshot from the store, rebuilds the cookie
// jar, and probes the provider. The session is only marked authenticated
// when the probe confirms it is still alive.
func (c *Client) RestoreSession(ctx context.Context, username, guardDescriptor string) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.store == nil {
		return fmt.Errorf("no session store configured")
	}

	secrets, err := core.LoadGuardSecrets(guardDescriptor)
	if err != nil {
		return err
	}

	state, err := c.store.LoadSession(ctx, username)
	if err != nil {
		return err
	}

	for _, cookie := range state.Cookies {
		u := &url.URL{Scheme: "https", Host: cookie.Domain}
		c.jar.SetCookies(u, []*http.Cookie{{Name: cookie.Name, Value: cookie.Value, Path: cookie.Path}})
	}

	c.secrets = secrets
	c.username = state.Username
	c.authenticated = true

	alive, err := c.IsSessionAlive(ctx)
	if err != nil || !alive {
		c.authenticated = false
		c.username = ""
		c.secrets = core.GuardSecrets{}
		if err != nil {
			return err
		}
		return ErrNotAuthenticated
	}

	return nil
}

// checkSession is the single authentication gate applied at the top of
// every authenticated operation.
func (c *Client) checkSession() error {
	if !c.authenticated {
		return ErrNotAuthenticated
	}
	return nil
}

// origins lists every site origin the client talks to with the shared
// session.
func (c *Client) origins() []string {
	return []string{c.communityURL, c.storeURL}
}

// sessionCookieValue scans the configured origins for the session
// identifier cookie.
func (c *Client) sessionCookieValue() string {
	for _, origin := range c.origins() {
		u, err := url.Parse(origin)
		if err != nil {
			continue
		}
		for _, cookie := range c.jar.Cookies(u) {
			if cookie.Name == sessionCookieName {
				return cookie.Value
			}
		}
	}
	return ""
}

// apiCall performs a web API request against the configured api key.
func (c *Client) apiCall(ctx context.Context, method, apiInterface, apiMethod, version string, params url.Values) ([]byte, error) {
	endpoint := strings.Join([]string{c.apiURL, apiInterface, apiMethod, version}, "/")

	var resp *http.Response
	var err error
	if method == http.MethodGet {
		resp, err = c.get(ctx, endpoint, params, nil)
	} else {
		resp, err = c.postForm(ctx, endpoint, params, nil)
	}
	if err != nil {
		return nil, err
	}

	body, err := drainBody(resp)
	if err != nil {
		return nil, err
	}
	if isInvalidAPIKeyResponse(string(body)) {
		return nil, ErrInvalidAPIKey
	}
	return body, nil
}

// isInvalidAPIKeyResponse detects the access-denied page the web API
// serves for a bad key.
func isInvalidAPIKeyResponse(body string) bool {
	return strings.Contains(body, "Access is denied. Retrying will not help. Please verify your <pre>key=</pre> parameter")
}

// get performs a GET request with the shared session.
func (c *Client) get(ctx context.Context, rawurl string, params url.Values, headers map[string]string) (*http.Response, error) {
	if len(params) > 0 {
		rawurl = rawurl + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

// postForm performs a form POST with the shared session.
func (c *Client) postForm(ctx context.Context, rawurl string, data url.Values, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawurl, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.http.Do(req)
}

// drainBody reads and closes a response body.
func drainBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// decodeJSON reads, closes and unmarshals a response body.
func decodeJSON(resp *http.Response, v interface{}) error {
	body, err := drainBody(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}
