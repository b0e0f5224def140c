package server

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeySession stores the live sessions.Session
	ContextKeySession ContextKey = "session"
)

// SessionFromContext returns the session attached by SessionMiddleware.
func SessionFromContext(ctx context.Context) (sessions.Session, bool) {
	sess, ok := ctx.Value(ContextKeySession).(sessions.Session)
	return sess, ok
}

// SessionMiddleware attaches the session named by the session cookie, if
// any. A missing, forged, unknown or expired session leaves the request
// unauthenticated and clears the stale cookie. A store failure is a 503.
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return s.sessionLookup(next, true)
}

// SessionContextMiddleware attaches the session like SessionMiddleware but
// never writes to the response. Routes whose only output is a redirect, or
// that must answer while the store is down, use it.
func (s *Server) SessionContextMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return s.sessionLookup(next, false)
}

func (s *Server) sessionLookup(next http.HandlerFunc, respond bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := r.Cookie(SessionCookieName); err != nil {
			next(w, r)
			return
		}

		tok := s.sessionTokenFromCookie(r)
		if tok == "" {
			if respond {
				s.ClearLoginSessionCookie(w, r)
			}
			next(w, r)
			return
		}

		sess, err := s.sessions.Lookup(r.Context(), tok)
		switch {
		case err == nil:
			r = r.WithContext(context.WithValue(r.Context(), ContextKeySession, sess))
		case apperrors.Is(err, apperrors.ErrSessionNotFound):
			if apperrors.Is(err, apperrors.ErrSessionExpired) {
				s.metrics.SessionsEnded("expired", 1)
			}
			if respond {
				s.ClearLoginSessionCookie(w, r)
			}
		default:
			log.Error().Err(err).
				Str("request_id", RequestIDFromContext(r.Context())).
				Msg("Session lookup failed")
			if respond {
				writeJSONError(w, http.StatusServiceUnavailable, "session_store_unavailable")
				return
			}
		}
		next(w, r)
	}
}

// RequireSession rejects requests without a live session with 401.
func (s *Server) RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		next(w, r)
	}
}
