package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/auth"
	"github.com/jrsteele09/go-google-auth-backend/auth/fakegoogle"
	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/internal/metrics"
	"github.com/jrsteele09/go-google-auth-backend/server/authflowrepo"
	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/jrsteele09/go-google-auth-backend/users"
	"github.com/stretchr/testify/require"
)

const (
	frontendURL = "https://frontend.example"
	callbackURL = "https://api.example/auth/google/callback"
)

var alice = users.GoogleProfile{
	Sub:           "1234567890",
	Email:         "Alice@Example.com",
	EmailVerified: true,
	Name:          "Alice Example",
	Picture:       "https://lh3.googleusercontent.com/a/alice",
}

type testFlow struct {
	svc     *auth.Service
	google  *fakegoogle.Server
	store   *sessions.InMemoryStore
	states  *authflowrepo.InMemoryRepo
	metrics *metrics.Metrics
}

func providerConfig(g *fakegoogle.Server) auth.ProviderConfig {
	return auth.ProviderConfig{
		ClientID:     fakegoogle.ClientID,
		ClientSecret: fakegoogle.ClientSecret,
		RedirectURL:  callbackURL,
		AuthURL:      g.AuthURL(),
		TokenURL:     g.TokenURL(),
		UserInfoURL:  g.UserInfoURL(),
		JWKSURL:      g.JWKSURL(),
		Issuer:       g.Issuer(),
	}
}

func newTestFlow(t *testing.T, cfg auth.Config, opts ...auth.ServiceOption) *testFlow {
	t.Helper()
	g := fakegoogle.New(t)
	tf := &testFlow{
		google:  g,
		store:   sessions.NewInMemoryStore(sessions.DefaultTTL),
		states:  authflowrepo.NewInMemoryRepo(),
		metrics: metrics.New(),
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = frontendURL
	}
	provider := auth.NewGoogleProvider(context.Background(), providerConfig(g))

	opts = append([]auth.ServiceOption{auth.WithMetrics(tf.metrics)}, opts...)
	svc, err := auth.NewService(cfg, provider, tf.states, tf.store, opts...)
	require.NoError(t, err)
	tf.svc = svc
	return tf
}

func (tf *testFlow) metricsText(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	tf.metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

// login runs Initiate and has the fake provider approve it.
func (tf *testFlow) login(t *testing.T, profile users.GoogleProfile) (code, state string) {
	t.Helper()
	start, err := tf.svc.Initiate(context.Background())
	require.NoError(t, err)
	code, state, err = tf.google.Approve(start.RedirectURL, profile)
	require.NoError(t, err)
	require.Equal(t, start.State, state)
	return code, state
}

func TestService_Initiate(t *testing.T) {
	tf := newTestFlow(t, auth.Config{})

	start, err := tf.svc.Initiate(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, start.State)
	require.Equal(t, 0, tf.store.Len())

	u, err := url.Parse(start.RedirectURL)
	require.NoError(t, err)
	require.Equal(t, tf.google.AuthURL(), u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	require.Equal(t, fakegoogle.ClientID, q.Get("client_id"))
	require.Equal(t, callbackURL, q.Get("redirect_uri"))
	require.Equal(t, "profile email", q.Get("scope"))
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, start.State, q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, "online", q.Get("access_type"))

	pending, err := tf.states.Get(start.State)
	require.NoError(t, err)
	require.NotEmpty(t, pending.CodeVerifier)
	require.WithinDuration(t, time.Now().Add(auth.DefaultStateTTL), pending.ExpiresAt, 5*time.Second)

	again, err := tf.svc.Initiate(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, start.State, again.State)
}

func TestService_CompleteSuccess(t *testing.T) {
	tf := newTestFlow(t, auth.Config{})
	code, state := tf.login(t, alice)

	res, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
	require.NoError(t, err)
	require.Equal(t, auth.StateSessionEstablished, res.State)
	require.NotEmpty(t, res.Session.Token)
	require.Equal(t, "alice@example.com", res.Session.User.Email)
	require.Equal(t, alice.Sub, res.Session.User.Subject)
	require.Equal(t, users.ProviderGoogle, res.Session.User.Provider)

	got, err := tf.store.Lookup(context.Background(), res.Session.Token)
	require.NoError(t, err)
	require.Equal(t, res.Session.User, got.User)
	require.Equal(t, 1, tf.store.Len())

	require.Equal(t, 1, tf.google.Calls(fakegoogle.PathToken))
	require.Equal(t, 1, tf.google.Calls(fakegoogle.PathUserInfo))
	require.Contains(t, tf.metricsText(t), `google_auth_logins_total{reason="",result="success"} 1`)

	_, err = tf.states.Get(state)
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestService_CompleteStateMismatch(t *testing.T) {
	tests := []struct {
		name   string
		params func(code, state string) auth.CallbackParams
	}{
		{
			name: "cookie differs",
			params: func(code, state string) auth.CallbackParams {
				return auth.CallbackParams{Code: code, State: state, CookieState: "someone-elses-state"}
			},
		},
		{
			name: "no cookie",
			params: func(code, state string) auth.CallbackParams {
				return auth.CallbackParams{Code: code, State: state}
			},
		},
		{
			name: "no state",
			params: func(code, _ string) auth.CallbackParams {
				return auth.CallbackParams{Code: code}
			},
		},
		{
			name: "forged state matching forged cookie",
			params: func(code, _ string) auth.CallbackParams {
				return auth.CallbackParams{Code: code, State: "forged", CookieState: "forged"}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tf := newTestFlow(t, auth.Config{})
			code, state := tf.login(t, alice)

			res, err := tf.svc.Complete(context.Background(), tt.params(code, state))
			require.ErrorIs(t, err, apperrors.ErrStateMismatch)
			require.Equal(t, auth.StateAuthFailed, res.State)
			require.Empty(t, res.Session.Token)
			require.Equal(t, 0, tf.store.Len())
			require.Equal(t, 0, tf.google.Calls(fakegoogle.PathToken))
			require.Contains(t, tf.metricsText(t), `google_auth_logins_total{reason="state_mismatch",result="failure"} 1`)
		})
	}
}

func TestService_CompleteReplay(t *testing.T) {
	tf := newTestFlow(t, auth.Config{})
	code, state := tf.login(t, alice)
	params := auth.CallbackParams{Code: code, State: state, CookieState: state}

	_, err := tf.svc.Complete(context.Background(), params)
	require.NoError(t, err)

	t.Run("same state", func(t *testing.T) {
		res, err := tf.svc.Complete(context.Background(), params)
		require.ErrorIs(t, err, apperrors.ErrStateMismatch)
		require.Equal(t, auth.StateAuthFailed, res.State)
	})

	t.Run("same code under a fresh state", func(t *testing.T) {
		_, freshState := tf.login(t, alice)
		res, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: freshState, CookieState: freshState})
		require.ErrorIs(t, err, apperrors.ErrProviderExchange)
		require.Equal(t, auth.StateAuthFailed, res.State)
	})

	require.Equal(t, 1, tf.store.Len())
}

func TestService_CompleteExpiredState(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	tf := newTestFlow(t, auth.Config{StateTTL: time.Minute}, auth.WithNowTime(clock))
	tf.states.WithClock(clock)
	code, state := tf.login(t, alice)

	now = now.Add(2 * time.Minute)
	res, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
	require.ErrorIs(t, err, apperrors.ErrStateMismatch)
	require.Equal(t, auth.StateAuthFailed, res.State)
	require.Equal(t, 0, tf.google.Calls(fakegoogle.PathToken))
}

func TestService_CompleteProviderFailures(t *testing.T) {
	t.Run("provider error parameter", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{})
		_, state := tf.login(t, alice)

		res, err := tf.svc.Complete(context.Background(), auth.CallbackParams{State: state, CookieState: state, Error: "access_denied"})
		require.ErrorIs(t, err, apperrors.ErrProviderExchange)
		require.Equal(t, auth.StateAuthFailed, res.State)
		require.Equal(t, 0, tf.google.Calls(fakegoogle.PathToken))

		_, err = tf.states.Get(state)
		require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
	})

	t.Run("missing code", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{})
		_, state := tf.login(t, alice)

		_, err := tf.svc.Complete(context.Background(), auth.CallbackParams{State: state, CookieState: state})
		require.ErrorIs(t, err, apperrors.ErrProviderExchange)
		require.Equal(t, 0, tf.google.Calls(fakegoogle.PathToken))
	})

	t.Run("unknown code", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{})
		_, state := tf.login(t, alice)

		_, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: "made-up", State: state, CookieState: state})
		require.ErrorIs(t, err, apperrors.ErrProviderExchange)
		require.Contains(t, err.Error(), "invalid_grant")
		require.Equal(t, 0, tf.store.Len())
	})

	t.Run("exchange timeout", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{ExchangeTimeout: 50 * time.Millisecond})
		tf.google.SetTokenDelay(2 * time.Second)
		code, state := tf.login(t, alice)

		start := time.Now()
		_, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
		require.ErrorIs(t, err, apperrors.ErrProviderExchange)
		require.Less(t, time.Since(start), time.Second)
		require.Equal(t, 0, tf.store.Len())
	})

	t.Run("userinfo failure", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{})
		tf.google.FailUserInfo(1)
		code, state := tf.login(t, alice)

		_, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
		require.ErrorIs(t, err, apperrors.ErrProfileFetch)
		require.Equal(t, 0, tf.store.Len())
	})

	t.Run("profile without subject", func(t *testing.T) {
		tf := newTestFlow(t, auth.Config{})
		code, state := tf.login(t, users.GoogleProfile{Email: "nobody@example.com"})

		_, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
		require.ErrorIs(t, err, apperrors.ErrProfileFetch)
		require.Equal(t, 0, tf.store.Len())
	})
}

func TestService_Logout(t *testing.T) {
	tf := newTestFlow(t, auth.Config{})
	code, state := tf.login(t, alice)
	res, err := tf.svc.Complete(context.Background(), auth.CallbackParams{Code: code, State: state, CookieState: state})
	require.NoError(t, err)

	require.NoError(t, tf.svc.Logout(context.Background(), res.Session.Token))
	_, err = tf.store.Lookup(context.Background(), res.Session.Token)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)

	require.NoError(t, tf.svc.Logout(context.Background(), res.Session.Token))
	require.NoError(t, tf.svc.Logout(context.Background(), ""))
}

func TestService_SweepStates(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	tf := newTestFlow(t, auth.Config{StateTTL: time.Minute}, auth.WithNowTime(func() time.Time { return now }))

	_, err := tf.svc.Initiate(context.Background())
	require.NoError(t, err)
	_, err = tf.svc.Initiate(context.Background())
	require.NoError(t, err)

	require.Equal(t, 0, tf.svc.SweepStates())
	now = now.Add(time.Minute)
	require.Equal(t, 2, tf.svc.SweepStates())
}

func TestService_RedirectURLs(t *testing.T) {
	tf := newTestFlow(t, auth.Config{})
	require.Equal(t, "https://frontend.example/?login=success", tf.svc.SuccessURL())
	require.Equal(t, "https://frontend.example/?login=failure", tf.svc.FailureURL())
	require.Equal(t, "https://frontend.example/?logout=success", tf.svc.LogoutURL())
}

func TestNewService_RejectsBadConfig(t *testing.T) {
	g := fakegoogle.New(t)
	provider := auth.NewGoogleProvider(context.Background(), providerConfig(g))
	store := sessions.NewInMemoryStore(sessions.DefaultTTL)
	states := authflowrepo.NewInMemoryRepo()

	_, err := auth.NewService(auth.Config{FrontendURL: "/relative"}, provider, states, store)
	require.Error(t, err)

	_, err = auth.NewService(auth.Config{FrontendURL: frontendURL}, nil, states, store)
	require.Error(t, err)
}

func TestFrontendRedirect(t *testing.T) {
	tests := []struct {
		frontend string
		want     string
	}{
		{"https://frontend.example", "https://frontend.example/?login=success"},
		{"https://frontend.example/", "https://frontend.example/?login=success"},
		{"https://frontend.example/app", "https://frontend.example/app?login=success"},
		{"http://localhost:5173", "http://localhost:5173/?login=success"},
		{"https://frontend.example/?tab=home", "https://frontend.example/?login=success&tab=home"},
	}
	for _, tt := range tests {
		t.Run(tt.frontend, func(t *testing.T) {
			got, err := auth.FrontendRedirect(tt.frontend, auth.LoginParam, auth.ValueSuccess)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := auth.FrontendRedirect("frontend.example", auth.LoginParam, auth.ValueSuccess)
	require.Error(t, err)
}

func TestFlowState_String(t *testing.T) {
	require.Equal(t, "UNAUTHENTICATED", auth.StateUnauthenticated.String())
	require.Equal(t, "PENDING_PROVIDER", auth.StatePendingProvider.String())
	require.Equal(t, "CALLBACK_RECEIVED", auth.StateCallbackReceived.String())
	require.Equal(t, "SESSION_ESTABLISHED", auth.StateSessionEstablished.String())
	require.Equal(t, "AUTH_FAILED", auth.StateAuthFailed.String())
	require.Equal(t, "FlowState(42)", auth.FlowState(42).String())
}
