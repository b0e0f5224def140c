// Package fakegoogle is an in-process stand-in for Google's authorization,
// token and userinfo endpoints.
package fakegoogle

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-google-auth-backend/users"
)

const (
	ClientID     = "fake-client-id"
	ClientSecret = "fake-client-secret"

	PathAuthorize = "/o/oauth2/auth"
	PathToken     = "/token"
	PathUserInfo  = "/v1/userinfo"
	PathJWKS      = "/oauth2/v3/certs"
)

type grant struct {
	redirectURI string
	challenge   string
	profile     users.GoogleProfile
}

// Server records every call it receives. Codes are single use and tied to
// the PKCE challenge they were issued against.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	grants   map[string]grant
	tokens   map[string]users.GoogleProfile
	calls    map[string]int
	delay    time.Duration
	userInfo int
	idToken  string
}

// New starts a fake provider that is shut down when t ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		grants: make(map[string]grant),
		tokens: make(map[string]users.GoogleProfile),
		calls:  make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+PathToken, s.token)
	mux.HandleFunc("GET "+PathUserInfo, s.userinfo)
	mux.HandleFunc("GET "+PathJWKS, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[]}`))
	})
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// AuthURL, TokenURL, UserInfoURL and JWKSURL point at this server.
func (s *Server) AuthURL() string     { return s.URL + PathAuthorize }
func (s *Server) TokenURL() string    { return s.URL + PathToken }
func (s *Server) UserInfoURL() string { return s.URL + PathUserInfo }
func (s *Server) JWKSURL() string     { return s.URL + PathJWKS }

// Issuer is the issuer the fake would put in ID tokens.
func (s *Server) Issuer() string { return s.URL }

// SetTokenDelay slows the token endpoint down, for timeout tests.
func (s *Server) SetTokenDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetIDToken adds raw as id_token to every token response.
func (s *Server) SetIDToken(raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idToken = raw
}

// FailUserInfo makes the next n userinfo calls answer 500.
func (s *Server) FailUserInfo(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userInfo = n
}

// Calls reports how many requests reached path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// Approve plays the user consenting on the authorization page. It reads the
// authorization URL the backend redirected to and returns the code and state
// Google would send to the callback.
func (s *Server) Approve(authorizationURL string, profile users.GoogleProfile) (code, state string, err error) {
	u, err := url.Parse(authorizationURL)
	if err != nil {
		return "", "", err
	}
	q := u.Query()
	if q.Get("client_id") != ClientID {
		return "", "", fmt.Errorf("unexpected client_id %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		return "", "", fmt.Errorf("unexpected response_type %q", q.Get("response_type"))
	}
	if q.Get("code_challenge_method") != "S256" || q.Get("code_challenge") == "" {
		return "", "", fmt.Errorf("missing PKCE challenge")
	}

	code = uuid.NewString()
	s.mu.Lock()
	s.grants[code] = grant{
		redirectURI: q.Get("redirect_uri"),
		challenge:   q.Get("code_challenge"),
		profile:     profile,
	}
	s.mu.Unlock()
	return code, q.Get("state"), nil
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[PathToken]++
	delay := s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if err := r.ParseForm(); err != nil {
		writeOAuthError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeOAuthError(w, http.StatusUnauthorized, "invalid_client")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeOAuthError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}

	code := r.PostForm.Get("code")
	s.mu.Lock()
	g, ok := s.grants[code]
	delete(s.grants, code)
	s.mu.Unlock()

	if !ok || g.redirectURI != r.PostForm.Get("redirect_uri") || challengeOf(r.PostForm.Get("code_verifier")) != g.challenge {
		writeOAuthError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	accessToken := uuid.NewString()
	s.mu.Lock()
	s.tokens[accessToken] = g.profile
	idToken := s.idToken
	s.mu.Unlock()

	resp := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   3599,
		"scope":        "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email",
	}
	if idToken != "" {
		resp["id_token"] = idToken
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) userinfo(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[PathUserInfo]++
	fail := s.userInfo > 0
	if fail {
		s.userInfo--
	}
	s.mu.Unlock()

	if fail {
		http.Error(w, "backend error", http.StatusInternalServerError)
		return
	}

	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	s.mu.Lock()
	profile, ok := s.tokens[auth[len(prefix):]]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(profile)
}

func challengeOf(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

func writeOAuthError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
