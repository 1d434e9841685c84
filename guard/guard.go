// Package guard derives the time-based values the provider expects: the
// 8-digit login one-time code, the base64 confirmation signing key, and
// the stable per-account device id.
//
// The one-time code and the confirmation key look alike but carry
// different meanings (a human-entered 2FA code vs. a machine-verified
// request signature), are keyed by different secrets, and deliberately
// share no code.
package guard

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base32"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/tradegate/steamauth/core"
)

// GenerateOneTimeCode produces the login two-factor code for the given
// shared secret and Unix timestamp: standard TOTP over 30-second windows,
// HMAC-SHA1, rendered as a zero-padded 8-digit string.
func GenerateOneTimeCode(sharedSecret string, timestamp int64) (string, error) {
	code, err := totp.GenerateCodeCustom(sharedSecret, time.Unix(timestamp, 0), totp.ValidateOpts{
		Period:    30,
		Digits:    otp.DigitsEight,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", core.ErrInvalidSecret
	}
	return code, nil
}

// GenerateConfirmationKey signs a confirmation-protocol request: HMAC-SHA1
// keyed by the identity secret over the big-endian 8-byte timestamp
// followed by the tag bytes, base64-encoded. Unlike the one-time code the
// timestamp is not bucketed and the digest is not truncated.
func GenerateConfirmationKey(identitySecret, tag string, timestamp int64) (string, error) {
	key, err := decodeSecret(identitySecret)
	if err != nil {
		return "", core.ErrInvalidSecret
	}

	msg := make([]byte, 8, 8+len(tag))
	binary.BigEndian.PutUint64(msg, uint64(timestamp))
	msg = append(msg, []byte(tag)...)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// GenerateDeviceID derives the stable device identifier attached to every
// confirmation-protocol request: the SHA-1 of the account id formatted as
// a hyphenated hex id with the platform prefix.
func GenerateDeviceID(steamID string) string {
	sum := fmt.Sprintf("%x", sha1.Sum([]byte(steamID)))
	return fmt.Sprintf("android:%s-%s-%s-%s-%s",
		sum[:8], sum[8:12], sum[12:16], sum[16:20], sum[20:32])
}

// decodeSecret decodes a base32 secret, tolerating missing padding.
func decodeSecret(secret string) ([]byte, error) {
	secret = strings.ToUpper(strings.TrimSpace(secret))
	if n := len(secret) % 8; n != 0 {
		secret += strings.Repeat("=", 8-n)
	}
	return base32.StdEncoding.DecodeString(secret)
}
