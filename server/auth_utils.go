package server

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName carries the signed session token
	SessionCookieName = "session_id"
	// StateCookieName binds the OAuth state to the browser that started the login
	StateCookieName = "oauth_state"
)

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetSecureCookies() || getScheme(r) == "https"
}

func maxAgeUntil(now, expiresAt time.Time) int {
	secs := int(expiresAt.Sub(now).Seconds())
	if secs < 1 {
		return -1
	}
	return secs
}

func (s *Server) SetLoginSessionCookie(w http.ResponseWriter, r *http.Request, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAgeUntil(s.nowFunc(), expiresAt),
	})
}

func (s *Server) ClearLoginSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// SetStateCookie is scoped to the login routes; it only has to survive the
// round trip through the provider.
func (s *Server) SetStateCookie(w http.ResponseWriter, r *http.Request, value string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     RouteGoogleLogin,
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAgeUntil(s.nowFunc(), expiresAt),
	})
}

func (s *Server) ClearStateCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    "",
		Path:     RouteGoogleLogin,
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// stateFromCookie returns the verified state value, or "" when the cookie
// is missing, forged or expired.
func (s *Server) stateFromCookie(r *http.Request) string {
	c, err := r.Cookie(StateCookieName)
	if err != nil {
		return ""
	}
	state, err := s.stateCookie.Verify(c.Value)
	if err != nil {
		return ""
	}
	return state
}

// sessionTokenFromCookie returns the opaque session token, or "" when the
// cookie is missing or fails verification.
func (s *Server) sessionTokenFromCookie(r *http.Request) string {
	c, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	tok, err := s.sessionCookie.Verify(c.Value)
	if err != nil {
		return ""
	}
	return tok
}
