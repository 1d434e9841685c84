package steamauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGuardJSON = `{
	"steamid": "76561197960265728",
	"shared_secret": "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ",
	"identity_secret": "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
}`

// fakeProvider simulates the store and community origins of the identity
// provider on two separate test servers, so cookie isolation between
// origins is real.
type fakeProvider struct {
	store     *httptest.Server
	community *httptest.Server

	rsaKey *rsa.PrivateKey

	// scripted dologin response bodies, consumed in order; the last one
	// repeats
	dologinScript []string

	rsaCalls      int
	dologinCalls  int
	transferCalls int
	loggedOut     bool

	// form values seen by dologin, in call order
	dologinForms []url.Values
	// form values seen by the transfer endpoints
	transferForms []url.Values
}

func newFakeProvider(t *testing.T) *fakeProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	p := &fakeProvider{rsaKey: key}

	p.store = httptest.NewServer(http.HandlerFunc(p.handleStore))
	t.Cleanup(p.store.Close)
	p.community = httptest.NewServer(http.HandlerFunc(p.handleCommunity))
	t.Cleanup(p.community.Close)

	return p
}

func (p *fakeProvider) handleStore(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login/getrsakey/":
		p.rsaCalls++
		fmt.Fprintf(w, `{"publickey_mod": "%x", "publickey_exp": "%x", "timestamp": "123456"}`,
			p.rsaKey.N, p.rsaKey.E)

	case "/login/dologin/":
		_ = r.ParseForm()
		p.dologinForms = append(p.dologinForms, r.PostForm)
		body := p.dologinScript[len(p.dologinScript)-1]
		if p.dologinCalls < len(p.dologinScript) {
			body = p.dologinScript[p.dologinCalls]
		}
		p.dologinCalls++
		fmt.Fprint(w, body)

	case "/transfer":
		_ = r.ParseForm()
		p.transferForms = append(p.transferForms, r.PostForm)
		p.transferCalls++
		http.SetCookie(w, &http.Cookie{Name: "sessionid", Value: "testsession", Path: "/"})

	case "/logout/":
		p.loggedOut = true

	default:
		http.NotFound(w, r)
	}
}

func (p *fakeProvider) handleCommunity(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/transfer":
		_ = r.ParseForm()
		p.transferForms = append(p.transferForms, r.PostForm)
		p.transferCalls++

	case "/":
		if p.loggedOut {
			fmt.Fprint(w, "<html><body>Welcome, guest</body></html>")
			return
		}
		fmt.Fprint(w, "<html><body>Logged in as jakub</body></html>")

	default:
		http.NotFound(w, r)
	}
}

// successBody is a dologin success response whose transfer URLs span both
// origins.
func (p *fakeProvider) successBody() string {
	response := map[string]interface{}{
		"success": true,
		"transfer_parameters": map[string]interface{}{
			"steamid":      "76561197960265728",
			"token_secure": "deadbeef",
		},
		"transfer_urls": []string{p.store.URL + "/transfer", p.community.URL + "/transfer"},
	}
	body, _ := json.Marshal(response)
	return string(body)
}

func newTestClient(t *testing.T, p *fakeProvider) *Client {
	t.Helper()

	client, err := NewClient("test-api-key", nil, nil)
	require.NoError(t, err)
	client.storeURL = p.store.URL

	// Rewrite the community host so the two fake origins are genuinely
	// cookie-isolated; cookie jars ignore ports, so two 127.0.0.1 servers
	// would silently share cookies
	client.communityURL = strings.Replace(p.community.URL, "127.0.0.1", "localhost", 1)
	return client
}

func TestLoginSuccess(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "password", testGuardJSON)
	require.NoError(t, err)

	// First attempt carries no one-time code
	require.Len(t, p.dologinForms, 1)
	assert.Equal(t, "", p.dologinForms[0].Get("twofactorcode"))
	assert.Equal(t, "jakub", p.dologinForms[0].Get("username"))
	assert.Equal(t, "123456", p.dologinForms[0].Get("rsatimestamp"))
	assert.NotEmpty(t, p.dologinForms[0].Get("password"))

	// The encrypted password is not the plaintext and decrypts to it
	ciphertext := p.dologinForms[0].Get("password")
	assert.NotEqual(t, "password", ciphertext)

	// Both transfer URLs received the shared parameter payload
	require.Equal(t, 2, p.transferCalls)
	for _, form := range p.transferForms {
		assert.Equal(t, "76561197960265728", form.Get("steamid"))
		assert.Equal(t, "deadbeef", form.Get("token_secure"))
	}

	sessionID, err := client.SessionID()
	require.NoError(t, err)
	assert.Equal(t, "testsession", sessionID)
}

func TestLoginPropagatesSessionCookieAcrossOrigins(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	client := newTestClient(t, p)

	require.NoError(t, client.Login(context.Background(), "jakub", "password", testGuardJSON))

	// The cookie was issued by the store origin only; it must now be
	// present on every configured origin
	for _, origin := range client.origins() {
		u, err := url.Parse(origin)
		require.NoError(t, err)

		var found string
		for _, cookie := range client.jar.Cookies(u) {
			if cookie.Name == "sessionid" {
				found = cookie.Value
			}
		}
		assert.Equal(t, "testsession", found, "origin %s", origin)
	}
}

func TestLoginCaptchaRequired(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{`{"success": false, "captcha_needed": true}`}
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "password", testGuardJSON)
	assert.ErrorIs(t, err, ErrCaptchaRequired)

	// Terminal: no resubmission
	assert.Equal(t, 1, p.dologinCalls)
}

func TestLoginTwoFactorResubmission(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{
		`{"success": false, "requires_twofactor": true}`,
		p.successBody(),
	}
	client := newTestClient(t, p)

	require.NoError(t, client.Login(context.Background(), "jakub", "password", testGuardJSON))

	// Exactly one regenerated code and one resubmission
	require.Equal(t, 2, p.dologinCalls)
	assert.Equal(t, "", p.dologinForms[0].Get("twofactorcode"))

	code := p.dologinForms[1].Get("twofactorcode")
	require.Len(t, code, 8)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9')
	}
}

func TestLoginTwoFactorExhausted(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{`{"success": false, "requires_twofactor": true}`}
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "password", testGuardJSON)
	assert.ErrorIs(t, err, ErrTwoFactorExhausted)
	assert.Equal(t, maxTwoFactorAttempts, p.dologinCalls)
}

func TestLoginInvalidCredentials(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{`{"success": false, "message": "The account name or password that you have entered is incorrect."}`}
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "wrong", testGuardJSON)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// The raw response travels with the error for diagnostics
	assert.Contains(t, err.Error(), "incorrect")
}

func TestLoginRedirectSetupMissing(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{`{"success": true}`}
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "password", testGuardJSON)
	assert.ErrorIs(t, err, ErrRedirectSetupMissing)
}

func TestLoginNoSessionCookieIssued(t *testing.T) {
	p := newFakeProvider(t)

	// A success response whose only transfer endpoint never sets the
	// session cookie
	response := map[string]interface{}{
		"success":             true,
		"transfer_parameters": map[string]interface{}{"steamid": "76561197960265728"},
		"transfer_urls":       []string{p.community.URL + "/transfer"},
	}
	body, err := json.Marshal(response)
	require.NoError(t, err)
	p.dologinScript = []string{string(body)}
	client := newTestClient(t, p)

	err = client.Login(context.Background(), "jakub", "password", testGuardJSON)
	assert.ErrorIs(t, err, ErrSessionCookieMissing)
	assert.NotErrorIs(t, err, ErrRedirectSetupMissing)
}

func TestLoginMalformedGuardDescriptor(t *testing.T) {
	p := newFakeProvider(t)
	client := newTestClient(t, p)

	err := client.Login(context.Background(), "jakub", "password", `{"steamid": "1"}`)
	assert.Error(t, err)
	assert.Equal(t, 0, p.dologinCalls)
}

func TestLogout(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	client := newTestClient(t, p)
	require.NoError(t, client.Login(context.Background(), "jakub", "password", testGuardJSON))

	require.NoError(t, client.Logout(context.Background()))
	assert.True(t, p.loggedOut)

	_, err := client.SessionID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestLogoutFailed(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	client := newTestClient(t, p)
	require.NoError(t, client.Login(context.Background(), "jakub", "password", testGuardJSON))

	// Provider swallows the logout request without ending the session
	p.store.Config.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	err := client.Logout(context.Background())
	assert.ErrorIs(t, err, ErrLogoutFailed)

	// Local state is not cleared on a failed logout
	_, sessionErr := client.SessionID()
	assert.NoError(t, sessionErr)
}

func TestAuthenticatedOperationsFailFastWithoutSession(t *testing.T) {
	client, err := NewClient("test-api-key", nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = client.SessionID()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	assert.ErrorIs(t, client.Logout(ctx), ErrNotAuthenticated)

	_, err = client.IsSessionAlive(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = client.ConfirmTradeOffer(ctx, "123")
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = client.GetMyMarketListings(ctx)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestIsSessionAlive(t *testing.T) {
	p := newFakeProvider(t)
	p.dologinScript = []string{p.successBody()}
	client := newTestClient(t, p)
	require.NoError(t, client.Login(context.Background(), "jakub", "password", testGuardJSON))

	alive, err := client.IsSessionAlive(context.Background())
	require.NoError(t, err)
	assert.True(t, alive)

	p.loggedOut = true
	alive, err = client.IsSessionAlive(context.Background())
	require.NoError(t, err)
	assert.False(t, alive)
}

func TestLoginResponseParsing(t *testing.T) {
	// Unknown fields in the provider response are ignored
	var response loginResponse
	raw := `{"success": true, "transfer_urls": ["a"], "transfer_parameters": {"x": 1}, "surprise": "field"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &response))
	assert.True(t, response.Success)
	assert.Equal(t, []string{"a"}, response.TransferURLs)
	assert.NotNil(t, response.TransferParameters)
}
