package steamauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
)

// maxKeyFetchAttempts bounds retries of the RSA key endpoint when it
// returns an incomplete shape (rate limiting, unknown user).
const maxKeyFetchAttempts = 5

// rsaParams is the per-login key material returned by the provider.
type rsaParams struct {
	key       *rsa.PublicKey
	timestamp string
}

// fetchRSAParams requests the RSA public key parameters for a username.
// An incomplete response is retried up to maxKeyFetchAttempts with no
// extra backoff; exhaustion fails with ErrKeyFetchExhausted.
func (c *Client) fetchRSAParams(ctx context.Context, username string) (rsaParams, error) {
	for attempt := 0; attempt < maxKeyFetchAttempts; attempt++ {
		resp, err := c.postForm(ctx, c.storeURL+"/login/getrsakey/", url.Values{"username": {username}}, nil)
		if err != nil {
			return rsaParams{}, err
		}

		var keyResponse struct {
			PublicKeyMod string `json:"publickey_mod"`
			PublicKeyExp string `json:"publickey_exp"`
			// json.Number tolerates both the string and the bare-number
			// shape without a float round trip
			Timestamp json.Number `json:"timestamp"`
		}
		if err := decodeJSON(resp, &keyResponse); err != nil {
			return rsaParams{}, err
		}

		if keyResponse.PublicKeyMod == "" || keyResponse.PublicKeyExp == "" {
			continue
		}

		mod, ok := new(big.Int).SetString(keyResponse.PublicKeyMod, 16)
		if !ok {
			continue
		}
		exp, ok := new(big.Int).SetString(keyResponse.PublicKeyExp, 16)
		if !ok {
			continue
		}

		return rsaParams{
			key:       &rsa.PublicKey{N: mod, E: int(exp.Int64())},
			timestamp: keyResponse.Timestamp.String(),
		}, nil
	}

	return rsaParams{}, ErrKeyFetchExhausted
}

// encryptPassword encrypts the plaintext password with the fetched key
// using PKCS#1 v1.5 padding and base64-encodes the ciphertext. Purely
// local; no retries.
func encryptPassword(params rsaParams, password string) (string, error) {
	ciphertext, err := rsa.EncryptPKCS1v15(rand.Reader, params.key, []byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt password: %w", err)
	}
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}
