package core

import (
	"encoding/base32"
	"encoding/json"
	"os"
	"strings"
)

// GuardSecrets holds the per-account secret bundle used for two-factor
// login and mobile confirmation signing. Immutable after load; this
// package never persists it.
type GuardSecrets struct {
	SteamID        string `json:"steamid"`
	SharedSecret   string `json:"shared_secret"`
	IdentitySecret string `json:"identity_secret"`
}

// LoadGuardSecrets loads a secret bundle from a descriptor: either a path
// to a JSON file or the JSON document itself. Missing fields or secrets
// that are not valid base32 fail with ErrMalformedGuardFile.
func LoadGuardSecrets(descriptor string) (GuardSecrets, error) {
	raw := []byte(descriptor)
	if !strings.HasPrefix(strings.TrimSpace(descriptor), "{") {
		data, err := os.ReadFile(descriptor)
		if err != nil {
			return GuardSecrets{}, err
		}
		raw = data
	}

	var secrets GuardSecrets
	if err := json.Unmarshal(raw, &secrets); err != nil {
		return GuardSecrets{}, ErrMalformedGuardFile
	}

	if secrets.SteamID == "" || secrets.SharedSecret == "" || secrets.IdentitySecret == "" {
		return GuardSecrets{}, ErrMalformedGuardFile
	}

	if !isBase32(secrets.SharedSecret) || !isBase32(secrets.IdentitySecret) {
		return GuardSecrets{}, ErrMalformedGuardFile
	}

	return secrets, nil
}

// isBase32 reports whether s decodes as standard base32, tolerating
// missing padding the way authenticator exports are usually stored.
func isBase32(s string) bool {
	s = strings.ToUpper(strings.TrimSpace(s))
	if n := len(s) % 8; n != 0 {
		s += strings.Repeat("=", 8-n)
	}
	_, err := base32.StdEncoding.DecodeString(s)
	return err == nil
}
