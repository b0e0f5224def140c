package config

import (
	"fmt"
	"time"
)

const (
	EnvDevelopment = "DEV"
	EnvProduction  = "PROD"

	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// envVars is the raw environment. Secrets carry no default on purpose: a missing
// value is a ConfigurationError, never an insecure fallback.
type envVars struct {
	Port     string `env:"PORT"      envDefault:"3000"`
	AppName  string `env:"APP_NAME"  envDefault:"Google Auth Backend"`
	Env      string `env:"ENV"       envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID,required,notEmpty"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET,required,notEmpty"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL,required,notEmpty"`
	FrontendURL        string `env:"FRONTEND_URL,required,notEmpty"`
	SessionSecret      string `env:"SESSION_SECRET,required,notEmpty"`

	GoogleAuthURL     string `env:"GOOGLE_AUTH_URL"     envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	GoogleTokenURL    string `env:"GOOGLE_TOKEN_URL"    envDefault:"https://oauth2.googleapis.com/token"`
	GoogleUserInfoURL string `env:"GOOGLE_USERINFO_URL" envDefault:"https://openidconnect.googleapis.com/v1/userinfo"`
	GoogleJWKSURL     string `env:"GOOGLE_JWKS_URL"     envDefault:"https://www.googleapis.com/oauth2/v3/certs"`
	GoogleIssuer      string `env:"GOOGLE_ISSUER"       envDefault:"https://accounts.google.com"`

	SessionTTL           time.Duration `env:"SESSION_TTL"            envDefault:"24h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"10m"`
	StateTTL             time.Duration `env:"OAUTH_STATE_TTL"        envDefault:"10m"`
	ExchangeTimeout      time.Duration `env:"OAUTH_EXCHANGE_TIMEOUT" envDefault:"10s"`

	SessionStore   string `env:"SESSION_STORE"    envDefault:"memory"`
	RedisURL       string `env:"REDIS_URL"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"gab:session:"`
}

var _ EnvConfig = mainConfig{}

func (c mainConfig) GetPort() string {
	port := c.env.Port
	if port == "" || port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (c mainConfig) GetAppName() string {
	return c.env.AppName
}

func (c mainConfig) GetEnv() string {
	return c.env.Env
}

func (c mainConfig) GetLogLevel() string {
	return c.env.LogLevel
}

func (c mainConfig) IsProduction() bool {
	return c.env.Env == EnvProduction
}
