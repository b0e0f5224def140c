package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-google-auth-backend/users"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleIssuer      = "https://accounts.google.com"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	defaultHTTPTimeout = 10 * time.Second
)

// GoogleProvider implements Provider against Google's OAuth2 endpoints.
type GoogleProvider struct {
	config     oauth2.Config
	oidc       *oidc.Provider
	verifier   *oidc.IDTokenVerifier
	httpClient *http.Client
}

var _ Provider = (*GoogleProvider)(nil)

// NewGoogleProvider builds the provider from static endpoint configuration,
// so startup does not depend on reaching Google's discovery document.
func NewGoogleProvider(ctx context.Context, cfg ProviderConfig) *GoogleProvider {
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	// Google accepts client credentials in the POST body.
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	pc := oidc.ProviderConfig{
		IssuerURL:   valueOr(cfg.Issuer, googleIssuer),
		AuthURL:     endpoint.AuthURL,
		TokenURL:    endpoint.TokenURL,
		UserInfoURL: valueOr(cfg.UserInfoURL, googleUserInfoURL),
		JWKSURL:     valueOr(cfg.JWKSURL, googleJWKSURL),
		Algorithms:  []string{oidc.RS256},
	}
	provider := pc.NewProvider(oidc.ClientContext(ctx, httpClient))

	return &GoogleProvider{
		config: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		oidc:       provider,
		verifier:   provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		httpClient: httpClient,
	}
}

// AuthCodeURL generates the authorization URL.
func (p *GoogleProvider) AuthCodeURL(state, verifier string) string {
	return p.config.AuthCodeURL(state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(verifier),
	)
}

// Exchange exchanges an authorization code for tokens.
func (p *GoogleProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return p.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// Profile fetches the userinfo document. When the token response also carried
// an ID token it is verified and must name the same subject.
func (p *GoogleProvider) Profile(ctx context.Context, token *oauth2.Token) (users.GoogleProfile, error) {
	ctx = oidc.ClientContext(ctx, p.httpClient)

	info, err := p.oidc.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return users.GoogleProfile{}, fmt.Errorf("failed to get user info: %w", err)
	}

	var profile users.GoogleProfile
	if err := info.Claims(&profile); err != nil {
		log.Debug().Err(err).Msg("userinfo claims did not decode, using standard fields")
		profile = users.GoogleProfile{}
	}
	profile.Sub = info.Subject
	profile.Email = info.Email
	profile.EmailVerified = info.EmailVerified

	if rawIDToken, ok := token.Extra("id_token").(string); ok && rawIDToken != "" {
		idToken, err := p.verifier.Verify(ctx, rawIDToken)
		if err != nil {
			return users.GoogleProfile{}, fmt.Errorf("id token verification failed: %w", err)
		}
		if idToken.Subject != profile.Sub {
			return users.GoogleProfile{}, fmt.Errorf("id token subject does not match userinfo subject")
		}
	}

	return profile, nil
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
