package authflowrepo

import "time"

// AuthFlowState is the server-side half of an in-flight login, keyed by the
// state value sent to the provider.
type AuthFlowState struct {
	CodeVerifier string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type Repo interface {
	Upsert(state string, authState *AuthFlowState) error
	Get(state string) (*AuthFlowState, error)
	Delete(state string) error

	// Take returns the state and removes it in one step, so a state value
	// can only ever complete one callback.
	Take(state string) (*AuthFlowState, error)

	// DeleteExpired drops abandoned flows and reports how many went.
	DeleteExpired(now time.Time) int
}
