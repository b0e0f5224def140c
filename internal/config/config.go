package config

import (
	"net/url"
	"os"
	"reflect"
	"strings"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
)

// minSessionSecretLength is the shortest SESSION_SECRET accepted (256 bits of text).
const minSessionSecretLength = 32

type Config interface {
	EnvConfig
	CorsConfig
	GoogleConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	IsProduction() bool
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	env            envVars
	frontendOrigin string
}

// Load parses the process environment.
func Load() (Config, error) {
	return LoadFromMap(environMap(os.Environ()))
}

// LoadFromMap parses configuration from an explicit environment, which keeps
// tests independent of the process environment.
func LoadFromMap(environment map[string]string) (Config, error) {
	var raw envVars
	if err := env.ParseWithOptions(&raw, env.Options{Environment: environment}); err != nil {
		return nil, &apperrors.ConfigurationError{Fields: missingKeys(err), Cause: err}
	}

	c := mainConfig{env: raw}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *mainConfig) validate() error {
	var invalid []string

	frontend, err := parseAbsoluteURL(c.env.FrontendURL)
	if err != nil {
		invalid = append(invalid, "FRONTEND_URL")
	} else {
		c.frontendOrigin = frontend.Scheme + "://" + frontend.Host
	}
	if _, err := parseAbsoluteURL(c.env.GoogleCallbackURL); err != nil {
		invalid = append(invalid, "GOOGLE_CALLBACK_URL")
	}
	if len(c.env.SessionSecret) < minSessionSecretLength {
		invalid = append(invalid, "SESSION_SECRET")
	}
	if c.env.SessionTTL <= 0 {
		invalid = append(invalid, "SESSION_TTL")
	}
	if c.env.StateTTL <= 0 {
		invalid = append(invalid, "OAUTH_STATE_TTL")
	}
	if c.env.ExchangeTimeout <= 0 {
		invalid = append(invalid, "OAUTH_EXCHANGE_TIMEOUT")
	}
	switch c.env.SessionStore {
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.env.RedisURL == "" {
			invalid = append(invalid, "REDIS_URL")
		}
	default:
		invalid = append(invalid, "SESSION_STORE")
	}
	if c.env.Env != EnvDevelopment && c.env.Env != EnvProduction {
		invalid = append(invalid, "ENV")
	}

	if len(invalid) > 0 {
		return &apperrors.ConfigurationError{Fields: invalid}
	}
	return nil
}

func parseAbsoluteURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, apperrors.New("url must be absolute")
	}
	return u, nil
}

// missingKeys pulls the variable names out of an env parse failure.
func missingKeys(err error) []string {
	var keys []string
	var agg env.AggregateError
	if !apperrors.As(err, &agg) {
		return nil
	}
	for _, e := range agg.Errors {
		switch v := e.(type) {
		case env.VarIsNotSetError:
			keys = append(keys, v.Key)
		case env.EmptyVarError:
			keys = append(keys, v.Key)
		case env.ParseError:
			keys = append(keys, envKeyForField(v.Name))
		}
	}
	return keys
}

// envKeyForField maps an envVars field name back to its variable name.
func envKeyForField(field string) string {
	sf, ok := reflect.TypeOf(envVars{}).FieldByName(field)
	if !ok {
		return field
	}
	key, _, _ := strings.Cut(sf.Tag.Get("env"), ",")
	return key
}

func environMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok {
			m[k] = v
		}
	}
	return m
}
