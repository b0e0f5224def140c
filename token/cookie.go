package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
)

// CookieSigner wraps a value in a short HS256 JWT so that cookie contents
// cannot be forged or moved between purposes. The audience claim carries the
// purpose.
type CookieSigner struct {
	signer  Signer
	purpose string
	nowFunc func() time.Time
}

// NewCookieSigner derives a purpose key from secret and returns a signer for it.
func NewCookieSigner(secret, purpose string) (*CookieSigner, error) {
	key, err := DeriveKey(secret, purpose)
	if err != nil {
		return nil, err
	}
	return &CookieSigner{
		signer:  NewHMACSigner(key),
		purpose: purpose,
		nowFunc: time.Now,
	}, nil
}

// WithClock replaces the time source, for tests.
func (c *CookieSigner) WithClock(now func() time.Time) *CookieSigner {
	c.nowFunc = now
	return c
}

// Sign returns a token carrying value as its subject, valid until expiresAt.
func (c *CookieSigner) Sign(value string, expiresAt time.Time) (string, error) {
	now := c.nowFunc()
	claims := jwt.RegisteredClaims{
		ID:        uuid.New().String(),
		Subject:   value,
		Audience:  jwt.ClaimStrings{c.purpose},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	return c.signer.Sign(claims)
}

// Verify checks signature, purpose and expiry and returns the carried value.
func (c *CookieSigner) Verify(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", apperrors.ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(raw, &claims, c.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{c.signer.GetSigningMethod().Alg()}),
		jwt.WithAudience(c.purpose),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.nowFunc),
	)
	if err != nil {
		if apperrors.Is(err, jwt.ErrTokenExpired) {
			return "", apperrors.Wrapf(apperrors.ErrTokenExpired, "[token Verify] %s", c.purpose)
		}
		return "", apperrors.Wrapf(apperrors.ErrInvalidToken, "[token Verify] %s: %v", c.purpose, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return "", apperrors.ErrInvalidToken
	}
	return claims.Subject, nil
}
