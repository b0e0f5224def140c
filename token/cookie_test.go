package token_test

import (
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/token"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestDeriveKey(t *testing.T) {
	stateKey, err := token.DeriveKey(testSecret, token.PurposeOAuthState)
	require.NoError(t, err)
	require.Len(t, stateKey, 32)

	again, err := token.DeriveKey(testSecret, token.PurposeOAuthState)
	require.NoError(t, err)
	require.Equal(t, stateKey, again)

	sessionKey, err := token.DeriveKey(testSecret, token.PurposeSession)
	require.NoError(t, err)
	require.NotEqual(t, stateKey, sessionKey)

	_, err = token.DeriveKey("", token.PurposeSession)
	require.Error(t, err)
}

func TestCookieSigner_RoundTrip(t *testing.T) {
	s, err := token.NewCookieSigner(testSecret, token.PurposeSession)
	require.NoError(t, err)

	raw, err := s.Sign("opaque-session-token", time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.NotContains(t, raw, testSecret)

	value, err := s.Verify(raw)
	require.NoError(t, err)
	require.Equal(t, "opaque-session-token", value)
}

func TestCookieSigner_Rejects(t *testing.T) {
	sessionSigner, err := token.NewCookieSigner(testSecret, token.PurposeSession)
	require.NoError(t, err)
	stateSigner, err := token.NewCookieSigner(testSecret, token.PurposeOAuthState)
	require.NoError(t, err)

	t.Run("empty", func(t *testing.T) {
		_, err := sessionSigner.Verify("")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := sessionSigner.Verify("not.a.jwt")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("other purpose", func(t *testing.T) {
		raw, err := stateSigner.Sign("state-value", time.Now().Add(time.Minute))
		require.NoError(t, err)
		_, err = sessionSigner.Verify(raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("other secret", func(t *testing.T) {
		other, err := token.NewCookieSigner("fedcba9876543210fedcba9876543210", token.PurposeSession)
		require.NoError(t, err)
		raw, err := other.Sign("opaque", time.Now().Add(time.Minute))
		require.NoError(t, err)
		_, err = sessionSigner.Verify(raw)
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		now := time.Now()
		s, err := token.NewCookieSigner(testSecret, token.PurposeSession)
		require.NoError(t, err)
		s.WithClock(func() time.Time { return now })

		raw, err := s.Sign("opaque", now.Add(time.Minute))
		require.NoError(t, err)

		s.WithClock(func() time.Time { return now.Add(2 * time.Minute) })
		_, err = s.Verify(raw)
		require.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})
}
