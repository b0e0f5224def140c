package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/users"
	"github.com/rs/zerolog/log"
)

// IndexHandler is the liveness check
func (s *Server) IndexHandler() http.HandlerFunc {
	body := fmt.Sprintf("✅ %s Running", s.config.GetAppName())
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(body))
	}
}

// MeResponse is the body of GET /auth/me
type MeResponse struct {
	User      users.Record `json:"user"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// MeHandler returns the signed-in user. Must run behind RequireSession.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := SessionFromContext(r.Context())
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, MeResponse{User: sess.User, ExpiresAt: sess.ExpiresAt})
	}
}

// LogoutHandler destroys the current session, clears the cookie and sends
// the browser back to the frontend. It succeeds with or without a session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tok := s.sessionTokenFromCookie(r); tok != "" {
			if err := s.auth.Logout(r.Context(), tok); err != nil {
				log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("Failed to destroy session")
			}
		}
		s.ClearLoginSessionCookie(w, r)
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, s.auth.LogoutURL(), http.StatusFound)
	}
}

// NotFoundHandler answers unknown routes with a JSON 404
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found")
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeJSONError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}
