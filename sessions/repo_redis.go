package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/users"
	"github.com/redis/go-redis/v9"
)

// Default timeouts for Redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// createAttempts bounds the retries when SETNX finds the token taken.
const createAttempts = 3

// RedisStore keeps sessions in Redis so they survive restarts and are shared
// between replicas. Expiry is delegated to the key TTL.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
	nowFunc   func() time.Time
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to the Redis instance at redisURL and checks it responds.
func NewRedisStore(ctx context.Context, redisURL, keyPrefix string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = DefaultWriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, keyPrefix, ttl), nil
}

// NewRedisStoreWithClient creates a RedisStore with a pre-configured client.
// This is useful for testing with miniredis.
func NewRedisStoreWithClient(client redis.UniversalClient, keyPrefix string, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		nowFunc:   time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	s.nowFunc = now
	return s
}

// Close closes the Redis client connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks Redis connectivity (health check).
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) key(token string) string {
	return s.keyPrefix + token
}

// Create stores a new session for user with the store TTL.
func (s *RedisStore) Create(ctx context.Context, user users.Record) (Session, error) {
	for range createAttempts {
		tok, err := GenerateToken()
		if err != nil {
			return Session{}, fmt.Errorf("[RedisStore Create] %w", err)
		}

		now := s.nowFunc()
		sess := Session{
			Token:     tok,
			User:      user,
			CreatedAt: now,
			ExpiresAt: now.Add(s.ttl),
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return Session{}, fmt.Errorf("failed to marshal session: %w", err)
		}

		ok, err := s.client.SetNX(ctx, s.key(tok), data, s.ttl).Result()
		if err != nil {
			return Session{}, fmt.Errorf("failed to store session: %w", err)
		}
		if ok {
			return sess, nil
		}
	}
	return Session{}, fmt.Errorf("[RedisStore Create] token collision")
}

// Lookup loads the session for token. Entries past ExpiresAt are treated as
// missing even if the key has not expired yet.
func (s *RedisStore) Lookup(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, apperrors.ErrSessionNotFound
	}

	data, err := s.client.Get(ctx, s.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Session{}, apperrors.ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to get session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if sess.User.SchemaVersion != users.SchemaVersion {
		_ = s.client.Del(ctx, s.key(token)).Err()
		return Session{}, apperrors.ErrSessionNotFound
	}
	if sess.Expired(s.nowFunc()) {
		_ = s.client.Del(ctx, s.key(token)).Err()
		return Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionNotFound, apperrors.ErrSessionExpired)
	}
	return sess, nil
}

// Destroy deletes the session key.
func (s *RedisStore) Destroy(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis expires the keys itself.
func (s *RedisStore) DeleteExpired(_ context.Context) (int, error) {
	return 0, nil
}
