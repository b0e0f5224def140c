package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/users"
)

// DefaultTTL is the fixed lifetime of a login session.
const DefaultTTL = 24 * time.Hour

// tokenLength is 32 bytes = 256 bits of entropy.
const tokenLength = 32

// Session maps an opaque token, delivered as a cookie, to the user who
// completed the OAuth callback.
type Session struct {
	Token     string       `json:"token"`
	User      users.Record `json:"user"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// Store is the session contract used by the HTTP layer. Lookup of an unknown
// or expired token returns ErrSessionNotFound; callers treat that as
// "unauthenticated", never as a server fault.
type Store interface {
	// Create stores a new session for user and returns it with its token
	Create(ctx context.Context, user users.Record) (Session, error)

	// Lookup returns the live session for token
	Lookup(ctx context.Context, token string) (Session, error)

	// Destroy removes the session. Unknown tokens are not an error
	Destroy(ctx context.Context, token string) error

	// DeleteExpired removes expired sessions and reports how many went
	DeleteExpired(ctx context.Context) (int, error)
}

// GenerateToken returns a base64url token read from crypto/rand. Tokens are
// independent of the user and of every previous token.
func GenerateToken() (string, error) {
	b := make([]byte, tokenLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
