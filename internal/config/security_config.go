package config

import "time"

type SecurityConfig interface {
	GetSessionSecret() string
	GetSessionTTL() time.Duration
	GetSessionSweepInterval() time.Duration
	GetSecureCookies() bool
}

type StoreConfig interface {
	GetSessionStore() string
	GetRedisURL() string
	GetRedisKeyPrefix() string
}

var (
	_ SecurityConfig = mainConfig{}
	_ StoreConfig    = mainConfig{}
)

func (c mainConfig) GetSessionSecret() string {
	return c.env.SessionSecret
}

func (c mainConfig) GetSessionTTL() time.Duration {
	return c.env.SessionTTL
}

func (c mainConfig) GetSessionSweepInterval() time.Duration {
	return c.env.SessionSweepInterval
}

// GetSecureCookies is true in production, where the backend is served over HTTPS.
func (c mainConfig) GetSecureCookies() bool {
	return c.IsProduction()
}

func (c mainConfig) GetSessionStore() string {
	return c.env.SessionStore
}

func (c mainConfig) GetRedisURL() string {
	return c.env.RedisURL
}

func (c mainConfig) GetRedisKeyPrefix() string {
	return c.env.RedisKeyPrefix
}
