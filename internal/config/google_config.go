package config

import "time"

type GoogleConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleCallbackURL() string
	GetGoogleEndpoints() GoogleEndpoints
	GetFrontendURL() string
	GetStateTTL() time.Duration
	GetExchangeTimeout() time.Duration
}

// GoogleEndpoints are overridable so that staging and tests can point at a fake provider.
type GoogleEndpoints struct {
	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string
	Issuer      string
}

var _ GoogleConfig = mainConfig{}

func (c mainConfig) GetGoogleClientID() string {
	return c.env.GoogleClientID
}

func (c mainConfig) GetGoogleClientSecret() string {
	return c.env.GoogleClientSecret
}

func (c mainConfig) GetGoogleCallbackURL() string {
	return c.env.GoogleCallbackURL
}

func (c mainConfig) GetGoogleEndpoints() GoogleEndpoints {
	return GoogleEndpoints{
		AuthURL:     c.env.GoogleAuthURL,
		TokenURL:    c.env.GoogleTokenURL,
		UserInfoURL: c.env.GoogleUserInfoURL,
		JWKSURL:     c.env.GoogleJWKSURL,
		Issuer:      c.env.GoogleIssuer,
	}
}

func (c mainConfig) GetFrontendURL() string {
	return c.env.FrontendURL
}

func (c mainConfig) GetStateTTL() time.Duration {
	return c.env.StateTTL
}

func (c mainConfig) GetExchangeTimeout() time.Duration {
	return c.env.ExchangeTimeout
}
