package authflowrepo

import (
	"errors"
	"sync"
	"time"
)

var ErrStateNotFound = errors.New("state not found")

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu      sync.RWMutex
	states  map[string]*AuthFlowState
	nowFunc func() time.Time
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states:  make(map[string]*AuthFlowState),
		nowFunc: time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (r *InMemoryRepo) WithClock(now func() time.Time) *InMemoryRepo {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nowFunc = now
	return r
}

// Upsert stores or updates an auth flow state
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Create a copy to prevent external modifications
	cp := *authState
	r.states[state] = &cp

	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists || r.expired(authState) {
		return nil, ErrStateNotFound
	}

	// Return a copy to prevent external modifications
	cp := *authState
	return &cp, nil
}

// Delete removes an auth flow state
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.states, state)
	return nil
}

// Take retrieves and removes an auth flow state
func (r *InMemoryRepo) Take(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, ErrStateNotFound
	}
	delete(r.states, state)

	if r.expired(authState) {
		return nil, ErrStateNotFound
	}
	cp := *authState
	return &cp, nil
}

// DeleteExpired removes flows whose ExpiresAt has passed
func (r *InMemoryRepo) DeleteExpired(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for state, authState := range r.states {
		if !authState.ExpiresAt.IsZero() && !now.Before(authState.ExpiresAt) {
			delete(r.states, state)
			count++
		}
	}
	return count
}

// expired must be called with the lock held.
func (r *InMemoryRepo) expired(authState *AuthFlowState) bool {
	return !authState.ExpiresAt.IsZero() && !r.nowFunc().Before(authState.ExpiresAt)
}
