package main

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/internal/config"
	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/stretchr/testify/require"
)

func testEnv() map[string]string {
	return map[string]string{
		"PORT":                 "0",
		"GOOGLE_CLIENT_ID":     "client-id",
		"GOOGLE_CLIENT_SECRET": "client-secret",
		"GOOGLE_CALLBACK_URL":  "http://localhost:3000/auth/google/callback",
		"FRONTEND_URL":         "http://localhost:5173",
		"SESSION_SECRET":       "0123456789abcdef0123456789abcdef",
		"LOG_LEVEL":            "error",
	}
}

func TestRun_MissingClientSecret(t *testing.T) {
	env := testEnv()
	delete(env, "GOOGLE_CLIENT_SECRET")

	err := run(context.Background(), func() (config.Config, error) {
		return config.LoadFromMap(env)
	})
	require.ErrorIs(t, err, apperrors.ErrConfiguration)

	var cfgErr *apperrors.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Contains(t, cfgErr.Fields, "GOOGLE_CLIENT_SECRET")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- run(ctx, func() (config.Config, error) {
			return config.LoadFromMap(testEnv())
		})
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(shutdownTimeout + time.Second):
		t.Fatal("run did not return after cancel")
	}
}
