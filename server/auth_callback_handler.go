package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-google-auth-backend/auth"
	"github.com/rs/zerolog/log"
)

// GoogleLoginHandler starts the login: it binds a fresh state to the browser
// and sends it to Google's consent page. No session is created here.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start, err := s.auth.Initiate(r.Context())
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to start login")
			http.Redirect(w, r, s.auth.FailureURL(), http.StatusFound)
			return
		}

		signed, err := s.stateCookie.Sign(start.State, start.ExpiresAt)
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to sign state cookie")
			http.Redirect(w, r, s.auth.FailureURL(), http.StatusFound)
			return
		}

		s.SetStateCookie(w, r, signed, start.ExpiresAt)
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, start.RedirectURL, http.StatusFound)
	}
}

// GoogleCallbackHandler finishes the login. Every outcome is a redirect to
// the frontend; failure detail goes to the log only. A failed callback sets
// no cookies. The state cookie lapses with the pending state it names.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		params := auth.CallbackParams{
			Code:        q.Get("code"),
			State:       q.Get("state"),
			CookieState: s.stateFromCookie(r),
			Error:       q.Get("error"),
		}
		w.Header().Set("Cache-Control", "no-store")

		res, err := s.auth.Complete(r.Context(), params)
		if err != nil {
			log.Warn().Err(err).
				Str("request_id", RequestIDFromContext(r.Context())).
				Str("flow_state", res.State.String()).
				Msg("Login failed")
			http.Redirect(w, r, s.auth.FailureURL(), http.StatusFound)
			return
		}

		signed, err := s.sessionCookie.Sign(res.Session.Token, res.Session.ExpiresAt)
		if err != nil {
			log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to sign session cookie")
			// The browser never learns this token, so drop it.
			if derr := s.sessions.Destroy(context.WithoutCancel(r.Context()), res.Session.Token); derr != nil {
				log.Error().Err(derr).Msg("Failed to destroy orphaned session")
			}
			http.Redirect(w, r, s.auth.FailureURL(), http.StatusFound)
			return
		}

		// A fresh login replaces whatever session the browser held before.
		if prev, ok := SessionFromContext(r.Context()); ok && prev.Token != res.Session.Token {
			if err := s.sessions.Destroy(r.Context(), prev.Token); err != nil {
				log.Warn().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to destroy replaced session")
			}
		}

		s.ClearStateCookie(w, r)
		s.SetLoginSessionCookie(w, r, signed, res.Session.ExpiresAt)
		http.Redirect(w, r, s.auth.SuccessURL(), http.StatusFound)
	}
}
