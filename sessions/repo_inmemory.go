package sessions

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-google-auth-backend/internal/errors"
	"github.com/jrsteele09/go-google-auth-backend/users"
)

// InMemoryStore keeps sessions in process memory. A restart logs everybody out.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session // token -> Session
	ttl      time.Duration
	nowFunc  func() time.Time
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore creates an in-memory session store with the given lifetime
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &InMemoryStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *InMemoryStore) WithClock(now func() time.Time) *InMemoryStore {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = now
	return r
}

// Create stores a new session for user
func (r *InMemoryStore) Create(_ context.Context, user users.Record) (Session, error) {
	tok, err := GenerateToken()
	if err != nil {
		return Session{}, fmt.Errorf("[InMemoryStore Create] %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A collision on 256 random bits means the random source is broken.
	if _, exists := r.sessions[tok]; exists {
		return Session{}, fmt.Errorf("[InMemoryStore Create] token collision")
	}

	now := r.nowFunc()
	s := Session{
		Token:     tok,
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
	}
	r.sessions[tok] = s
	return s, nil
}

// Lookup returns the session if present and not expired. Expired entries
// are evicted on the way out.
func (r *InMemoryStore) Lookup(_ context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, apperrors.ErrSessionNotFound
	}

	r.mu.RLock()
	s, ok := r.sessions[token]
	now := r.nowFunc()
	r.mu.RUnlock()

	if !ok {
		return Session{}, apperrors.ErrSessionNotFound
	}
	if s.Expired(now) {
		r.mu.Lock()
		if cur, still := r.sessions[token]; still && cur.Expired(r.nowFunc()) {
			delete(r.sessions, token)
		}
		r.mu.Unlock()
		return Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionNotFound, apperrors.ErrSessionExpired)
	}
	return s, nil
}

// Destroy removes a session
func (r *InMemoryStore) Destroy(_ context.Context, token string) error {
	if token == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, token)
	return nil
}

// DeleteExpired removes every expired session
func (r *InMemoryStore) DeleteExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	count := 0
	for tok, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, tok)
			count++
		}
	}
	return count, nil
}

// Len returns the number of stored sessions, expired ones included.
func (r *InMemoryStore) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
