package helpers

import (
	"crypto/rand"
	"encoding/hex"
)

// tokenBytes yields 40 hex characters, the width of auth_tokens.key.
const tokenBytes = 20

// GenerateAPIToken returns a random opaque API token.
func GenerateAPIToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
