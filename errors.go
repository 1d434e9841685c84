package steamauth

import (
	"errors"
)

var (
	// ErrNotAuthenticated is returned by any authenticated operation
	// attempted before a successful login
	ErrNotAuthenticated = errors.New("not authenticated, use Login first")

	// ErrKeyFetchExhausted is returned when the RSA key endpoint keeps
	// returning an incomplete shape after the retry bound
	ErrKeyFetchExhausted = errors.New("could not obtain rsa key parameters")

	// ErrCaptchaRequired is returned when the provider demands a captcha;
	// this login variant cannot solve captchas, so it is terminal
	ErrCaptchaRequired = errors.New("captcha required")

	// ErrInvalidCredentials is returned when the provider rejects the
	// submitted credentials
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTwoFactorExhausted is returned when the provider keeps asking for
	// a two-factor code after the resubmission bound
	ErrTwoFactorExhausted = errors.New("two-factor code was not accepted")

	// ErrRedirectSetupMissing is returned when the login success response
	// carries no transfer parameters; this indicates a provider-side
	// protocol change and is not retryable
	ErrRedirectSetupMissing = errors.New("cannot perform redirects after login, no transfer parameters")

	// ErrSessionCookieMissing is returned when the login exchange
	// completed, redirects included, yet no origin was issued a session
	// identifier cookie
	ErrSessionCookieMissing = errors.New("login did not issue a session cookie")

	// ErrLogoutFailed is returned when the provider still reports an
	// active session after a logout request
	ErrLogoutFailed = errors.New("logout unsuccessful")

	// ErrInvalidGuardSecret is returned when the provider rejects the
	// confirmation signing key; this is a misconfiguration, not transient
	ErrInvalidGuardSecret = errors.New("identity secret rejected by provider")

	// ErrConfirmationNotFound is returned when confirmations exist but
	// none resolves to the requested target identifier
	ErrConfirmationNotFound = errors.New("no confirmation matches the target")

	// ErrConfirmationPageParseError is returned when a confirmation list
	// or detail page does not have the expected shape
	ErrConfirmationPageParseError = errors.New("cannot parse confirmation page")

	// ErrConfirmationRejected is returned when the allow request itself
	// is refused by the provider
	ErrConfirmationRejected = errors.New("confirmation was rejected by provider")

	// ErrInvalidAPIKey is returned when the web API denies the configured
	// key
	ErrInvalidAPIKey = errors.New("invalid web api key")

	// ErrTooManyRequests is returned when a market endpoint rate-limits
	// the session
	ErrTooManyRequests = errors.New("too many requests")

	// ErrSevenDaysHold is returned when the account cannot trade because
	// it logged in from a new device
	ErrSevenDaysHold = errors.New("account cannot trade for 7 days after login from a new device")
)
