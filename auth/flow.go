package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/internal/metrics"
	"github.com/jrsteele09/go-google-auth-backend/server/authflowrepo"
	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/jrsteele09/go-google-auth-backend/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultStateTTL        = 10 * time.Minute
	DefaultExchangeTimeout = 10 * time.Second
)

// Query parameter appended to the frontend URL after a callback or logout.
const (
	LoginParam   = "login"
	LogoutParam  = "logout"
	ValueSuccess = "success"
	ValueFailure = "failure"
)

// FlowState is the position of one login attempt in the redirect dance.
type FlowState int

const (
	StateUnauthenticated FlowState = iota
	StatePendingProvider
	StateCallbackReceived
	StateSessionEstablished
	StateAuthFailed
)

func (s FlowState) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StatePendingProvider:
		return "PENDING_PROVIDER"
	case StateCallbackReceived:
		return "CALLBACK_RECEIVED"
	case StateSessionEstablished:
		return "SESSION_ESTABLISHED"
	case StateAuthFailed:
		return "AUTH_FAILED"
	default:
		return fmt.Sprintf("FlowState(%d)", int(s))
	}
}

// Config is built once at startup and never mutated.
type Config struct {
	FrontendURL     string
	StateTTL        time.Duration
	ExchangeTimeout time.Duration
}

// Initiation is what the HTTP layer needs to start a login: the state to bind
// to the browser and the provider URL to redirect to.
type Initiation struct {
	State       string
	RedirectURL string
	ExpiresAt   time.Time
}

// CallbackParams are the inputs of the provider callback. CookieState is the
// state value recovered from the browser-bound state cookie.
type CallbackParams struct {
	Code        string
	State       string
	CookieState string
	Error       string
}

// Result is the outcome of Complete. Session is only set when State is
// StateSessionEstablished.
type Result struct {
	State   FlowState
	Session sessions.Session
}

// Service runs the authorization-code flow: validate state, exchange code,
// fetch profile, create session.
type Service struct {
	cfg      Config
	provider Provider
	states   authflowrepo.Repo
	sessions sessions.Store
	metrics  *metrics.Metrics
	nowFunc  func() time.Time

	successURL string
	failureURL string
	logoutURL  string
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowFunc = nowFunc
	}
}

// WithMetrics records login outcomes on m.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService validates cfg and wires the flow to its collaborators.
func NewService(cfg Config, provider Provider, states authflowrepo.Repo, store sessions.Store, opts ...ServiceOption) (*Service, error) {
	if provider == nil || states == nil || store == nil {
		return nil, fmt.Errorf("[auth NewService] provider, state repo and session store are required")
	}
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = DefaultExchangeTimeout
	}

	successURL, err := FrontendRedirect(cfg.FrontendURL, LoginParam, ValueSuccess)
	if err != nil {
		return nil, fmt.Errorf("[auth NewService] %w", err)
	}
	failureURL, _ := FrontendRedirect(cfg.FrontendURL, LoginParam, ValueFailure)
	logoutURL, _ := FrontendRedirect(cfg.FrontendURL, LogoutParam, ValueSuccess)

	s := &Service{
		cfg:        cfg,
		provider:   provider,
		states:     states,
		sessions:   store,
		nowFunc:    time.Now,
		successURL: successURL,
		failureURL: failureURL,
		logoutURL:  logoutURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SuccessURL is where the browser lands after a completed login.
func (s *Service) SuccessURL() string { return s.successURL }

// FailureURL is where the browser lands after any failed login.
func (s *Service) FailureURL() string { return s.failureURL }

// LogoutURL is where the browser lands after logout.
func (s *Service) LogoutURL() string { return s.logoutURL }

// StateTTL is the lifetime of a pending login.
func (s *Service) StateTTL() time.Duration { return s.cfg.StateTTL }

// Initiate starts a login. No session exists after this call; only a
// pending state, which the caller must bind to the browser.
func (s *Service) Initiate(_ context.Context) (Initiation, error) {
	state, err := sessions.GenerateToken()
	if err != nil {
		return Initiation{}, fmt.Errorf("[auth Initiate] state: %w", err)
	}
	verifier := oauth2.GenerateVerifier()

	now := s.nowFunc()
	expiresAt := now.Add(s.cfg.StateTTL)
	if err := s.states.Upsert(state, &authflowrepo.AuthFlowState{
		CodeVerifier: verifier,
		CreatedAt:    now,
		ExpiresAt:    expiresAt,
	}); err != nil {
		return Initiation{}, fmt.Errorf("[auth Initiate] store state: %w", err)
	}

	return Initiation{
		State:       state,
		RedirectURL: s.provider.AuthCodeURL(state, verifier),
		ExpiresAt:   expiresAt,
	}, nil
}

// Complete handles the provider callback. Any returned error means
// StateAuthFailed; the error wraps one of the sentinel errors and is for
// logs only.
func (s *Service) Complete(ctx context.Context, p CallbackParams) (Result, error) {
	failed := Result{State: StateAuthFailed}

	// The state must match the browser-bound cookie before the pending entry
	// is even looked at. A forged callback never reaches the provider.
	if p.State == "" || subtle.ConstantTimeCompare([]byte(p.State), []byte(p.CookieState)) != 1 {
		s.metrics.LoginFailed("state_mismatch")
		return failed, apperrors.Wrapf(apperrors.ErrStateMismatch, "[auth Complete] state does not match cookie")
	}
	pending, err := s.states.Take(p.State)
	if err != nil {
		s.metrics.LoginFailed("state_mismatch")
		return failed, apperrors.Wrapf(apperrors.ErrStateMismatch, "[auth Complete] unknown or expired state")
	}
	// The pending state is spent even when the user denied consent.
	if p.Error != "" {
		s.metrics.LoginFailed("provider_error")
		return failed, apperrors.Wrapf(apperrors.ErrProviderExchange, "[auth Complete] provider returned %q", p.Error)
	}
	if p.Code == "" {
		s.metrics.LoginFailed("missing_code")
		return failed, apperrors.Wrapf(apperrors.ErrProviderExchange, "[auth Complete] missing code")
	}

	user, err := s.exchange(ctx, p.Code, pending.CodeVerifier)
	if err != nil {
		return failed, err
	}

	sess, err := s.sessions.Create(ctx, user)
	if err != nil {
		s.metrics.LoginFailed("session")
		return failed, fmt.Errorf("[auth Complete] create session: %w", err)
	}

	s.metrics.LoginSucceeded()
	log.Info().Str("sub", user.Subject).Str("user", user.DisplayName()).Msg("Login session established")
	return Result{State: StateSessionEstablished, Session: sess}, nil
}

// exchange runs the provider round trips under one deadline.
func (s *Service) exchange(ctx context.Context, code, verifier string) (users.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ExchangeTimeout)
	defer cancel()

	start := s.nowFunc()
	defer func() { s.metrics.ObserveExchange(s.nowFunc().Sub(start).Seconds()) }()

	tok, err := s.provider.Exchange(ctx, code, verifier)
	if err != nil {
		s.metrics.LoginFailed("exchange")
		return users.Record{}, apperrors.Wrapf(apperrors.ErrProviderExchange, "[auth exchange] %s", describeExchangeError(err))
	}
	if !tok.Valid() {
		s.metrics.LoginFailed("exchange")
		return users.Record{}, apperrors.Wrapf(apperrors.ErrProviderExchange, "[auth exchange] provider returned no usable access token")
	}

	profile, err := s.provider.Profile(ctx, tok)
	if err != nil {
		s.metrics.LoginFailed("profile")
		return users.Record{}, apperrors.Wrapf(apperrors.ErrProfileFetch, "[auth exchange] %v", err)
	}

	user, err := users.FromGoogleProfile(profile)
	if err != nil {
		s.metrics.LoginFailed("profile")
		return users.Record{}, apperrors.Wrapf(apperrors.ErrProfileFetch, "[auth exchange] %v", err)
	}
	return user, nil
}

// Logout destroys the session behind token. Unknown tokens are fine.
func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, token); err != nil {
		return fmt.Errorf("[auth Logout] %w", err)
	}
	s.metrics.SessionsEnded("logout", 1)
	return nil
}

// SweepStates drops pending logins nobody came back for.
func (s *Service) SweepStates() int {
	return s.states.DeleteExpired(s.nowFunc())
}

func describeExchangeError(err error) string {
	var re *oauth2.RetrieveError
	if apperrors.As(err, &re) {
		if re.ErrorCode != "" {
			return "provider rejected code: " + re.ErrorCode
		}
		if re.Response != nil {
			return fmt.Sprintf("provider rejected code: status %d", re.Response.StatusCode)
		}
	}
	return err.Error()
}

// FrontendRedirect appends key=value to the frontend URL, defaulting the path
// to "/" so that "https://app.example" becomes "https://app.example/?login=success".
func FrontendRedirect(frontendURL, key, value string) (string, error) {
	u, err := url.Parse(frontendURL)
	if err != nil {
		return "", fmt.Errorf("invalid frontend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("frontend url must be absolute: %q", frontendURL)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	u.Fragment = ""
	return u.String(), nil
}
