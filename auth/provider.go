package auth

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-google-auth-backend/users"
	"golang.org/x/oauth2"
)

// Scopes requested from Google. No openid scope: the profile comes from the
// userinfo endpoint, not from an ID token.
var DefaultScopes = []string{"profile", "email"}

// Provider is the identity provider side of the authorization-code flow.
type Provider interface {
	// AuthCodeURL builds the authorization endpoint URL for state, with the
	// PKCE challenge derived from verifier
	AuthCodeURL(state, verifier string) string

	// Exchange trades an authorization code for tokens over a direct,
	// client-authenticated request
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)

	// Profile fetches the user's profile with the access token
	Profile(ctx context.Context, token *oauth2.Token) (users.GoogleProfile, error)
}

// ProviderConfig is the immutable provider registration. Endpoint fields left
// empty fall back to Google's production endpoints.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string
	Issuer      string

	// HTTPClient is used for every server-to-server call. Its Timeout bounds
	// each request.
	HTTPClient *http.Client
}
