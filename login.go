package steamauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tradegate/steamauth/guard"
)

// maxTwoFactorAttempts bounds credential resubmission when the provider
// keeps requesting a two-factor code; in practice one resubmission is
// enough.
const maxTwoFactorAttempts = 3

// loginResponse is the JSON shape of the credential submission endpoint.
type loginResponse struct {
	Success            bool                   `json:"success"`
	CaptchaNeeded      bool                   `json:"captcha_needed"`
	RequiresTwoFactor  bool                   `json:"requires_twofactor"`
	Message            string                 `json:"message"`
	TransferParameters map[string]interface{} `json:"transfer_parameters"`
	TransferURLs       []string               `json:"transfer_urls"`
}

// loginExecutor runs one login protocol exchange against the provider:
// fetch RSA params, encrypt the password, submit credentials, resubmit
// with a generated code on a two-factor challenge, follow the issued
// transfer URLs, and normalize the session cookie across origins.
type loginExecutor struct {
	client       *Client
	username     string
	password     string
	sharedSecret string
	oneTimeCode  string
}

func (e *loginExecutor) run(ctx context.Context) error {
	for attempt := 0; attempt < maxTwoFactorAttempts; attempt++ {
		response, raw, err := e.submitCredentials(ctx)
		if err != nil {
			return err
		}

		switch {
		case response.CaptchaNeeded:
			// Terminal: this protocol variant cannot solve captchas
			return ErrCaptchaRequired

		case response.RequiresTwoFactor:
			code, err := guard.GenerateOneTimeCode(e.sharedSecret, time.Now().Unix())
			if err != nil {
				return err
			}
			e.oneTimeCode = code
			continue

		case !response.Success:
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, raw)
		}

		if err := e.performRedirects(ctx, response); err != nil {
			return err
		}
		return e.setSessionIDCookies()
	}

	return ErrTwoFactorExhausted
}

// submitCredentials fetches fresh RSA key material, encrypts the
// password and posts the login form. The one-time code is empty on the
// first attempt.
func (e *loginExecutor) submitCredentials(ctx context.Context) (loginResponse, string, error) {
	params, err := e.client.fetchRSAParams(ctx, e.username)
	if err != nil {
		return loginResponse{}, "", err
	}

	encrypted, err := encryptPassword(params, e.password)
	if err != nil {
		return loginResponse{}, "", err
	}

	data := url.Values{
		"password":          {encrypted},
		"username":          {e.username},
		"twofactorcode":     {e.oneTimeCode},
		"emailauth":         {""},
		"loginfriendlyname": {""},
		"captchagid":        {"-1"},
		"captcha_text":      {""},
		"emailsteamid":      {""},
		"rsatimestamp":      {params.timestamp},
		"remember_login":    {"false"},
		"donotcache":        {strconv.FormatInt(time.Now().UnixMilli(), 10)},
	}

	resp, err := e.client.postForm(ctx, e.client.storeURL+"/login/dologin/", data, nil)
	if err != nil {
		return loginResponse{}, "", err
	}
	raw, err := drainBody(resp)
	if err != nil {
		return loginResponse{}, "", err
	}

	var response loginResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return loginResponse{}, "", err
	}
	return response, string(raw), nil
}

// performRedirects posts the shared transfer parameters to each transfer
// URL in the order given, finalizing the login on every origin. A missing
// parameter payload indicates a provider-side protocol change.
func (e *loginExecutor) performRedirects(ctx context.Context, response loginResponse) error {
	if response.TransferParameters == nil {
		return ErrRedirectSetupMissing
	}

	data := url.Values{}
	for key, value := range response.TransferParameters {
		data.Set(key, fmt.Sprint(value))
	}

	for _, transferURL := range response.TransferURLs {
		resp, err := e.client.postForm(ctx, transferURL, data, nil)
		if err != nil {
			return err
		}
		if _, err := drainBody(resp); err != nil {
			return err
		}
	}
	return nil
}

// setSessionIDCookies copies the session identifier cookie issued for
// one origin onto every other configured origin. The origins are
// cookie-isolated, so the provider does not do this itself.
func (e *loginExecutor) setSessionIDCookies() error {
	sessionID := e.client.sessionCookieValue()
	if sessionID == "" {
		return ErrSessionCookieMissing
	}

	for _, origin := range e.client.origins() {
		u, err := url.Parse(origin)
		if err != nil {
			return err
		}
		e.client.jar.SetCookies(u, []*http.Cookie{{
			Name:  sessionCookieName,
			Value: sessionID,
			Path:  "/",
		}})
	}
	return nil
}
