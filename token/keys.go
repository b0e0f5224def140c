package token

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Key purposes. Each cookie kind gets its own key so a token minted for one
// can never be replayed as the other.
const (
	PurposeOAuthState = "oauth-state"
	PurposeSession    = "session"
)

const derivedKeyLength = 32

// DeriveKey expands the configured secret into a purpose-bound HMAC key.
func DeriveKey(secret, purpose string) ([]byte, error) {
	if secret == "" {
		return nil, fmt.Errorf("[token DeriveKey] secret is required")
	}
	key := make([]byte, derivedKeyLength)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("[token DeriveKey] %w", err)
	}
	return key, nil
}
