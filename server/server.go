package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/auth"
	"github.com/jrsteele09/go-google-auth-backend/internal/config"
	"github.com/jrsteele09/go-google-auth-backend/internal/metrics"
	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/jrsteele09/go-google-auth-backend/token"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env           string // Environment (e.g., "DEV", "PROD")
	mux           *http.ServeMux
	routes        []string
	config        config.Config
	auth          *auth.Service
	sessions      sessions.Store
	metrics       *metrics.Metrics
	stateCookie   *token.CookieSigner
	sessionCookie *token.CookieSigner
	nowFunc       func() time.Time
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithNowTime sets the clock used for cookie expiry (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowFunc = nowFunc
	}
}

// New wires the HTTP surface. The auth service and the session store must
// share the same store instance.
func New(c config.Config, authService *auth.Service, store sessions.Store, m *metrics.Metrics, opts ...Option) (*Server, error) {
	if authService == nil || store == nil {
		return nil, fmt.Errorf("[Server New] auth service and session store are required")
	}

	stateCookie, err := token.NewCookieSigner(c.GetSessionSecret(), token.PurposeOAuthState)
	if err != nil {
		return nil, fmt.Errorf("[Server New] state cookie signer: %w", err)
	}
	sessionCookie, err := token.NewCookieSigner(c.GetSessionSecret(), token.PurposeSession)
	if err != nil {
		return nil, fmt.Errorf("[Server New] session cookie signer: %w", err)
	}

	s := &Server{
		env:           c.GetEnv(),
		mux:           http.NewServeMux(),
		config:        c,
		auth:          authService,
		sessions:      store,
		metrics:       m,
		stateCookie:   stateCookie,
		sessionCookie: sessionCookie,
		nowFunc:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stateCookie.WithClock(s.nowFunc)
	s.sessionCookie.WithClock(s.nowFunc)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

// Routes lists the registered patterns in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != config.EnvDevelopment {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msg(fmt.Sprintf("[%-19s] %s", displayMethod, path))
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
