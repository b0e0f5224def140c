package authflowrepo_test

import (
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo_UpsertGetDelete(t *testing.T) {
	r := authflowrepo.NewInMemoryRepo()
	now := time.Now()

	in := &authflowrepo.AuthFlowState{CodeVerifier: "verifier", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, r.Upsert("state-1", in))

	// Mutating the caller's copy must not change the stored one
	in.CodeVerifier = "changed"

	got, err := r.Get("state-1")
	require.NoError(t, err)
	require.Equal(t, "verifier", got.CodeVerifier)

	require.NoError(t, r.Delete("state-1"))
	_, err = r.Get("state-1")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
}

func TestInMemoryRepo_Validation(t *testing.T) {
	r := authflowrepo.NewInMemoryRepo()

	require.Error(t, r.Upsert("", &authflowrepo.AuthFlowState{}))
	require.Error(t, r.Upsert("state", nil))
	_, err := r.Get("")
	require.Error(t, err)
	_, err = r.Take("")
	require.Error(t, err)
	require.Error(t, r.Delete(""))
}

func TestInMemoryRepo_TakeIsSingleUse(t *testing.T) {
	r := authflowrepo.NewInMemoryRepo()
	now := time.Now()
	require.NoError(t, r.Upsert("state-1", &authflowrepo.AuthFlowState{CodeVerifier: "v", ExpiresAt: now.Add(time.Minute)}))

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Take("state-1"); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 1, wins)
}

func TestInMemoryRepo_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := authflowrepo.NewInMemoryRepo().WithClock(func() time.Time { return now })

	require.NoError(t, r.Upsert("old", &authflowrepo.AuthFlowState{ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, r.Upsert("new", &authflowrepo.AuthFlowState{ExpiresAt: now.Add(time.Minute)}))

	_, err := r.Get("old")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
	_, err = r.Take("old")
	require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)

	require.NoError(t, r.Upsert("old", &authflowrepo.AuthFlowState{ExpiresAt: now.Add(-time.Second)}))
	require.Equal(t, 1, r.DeleteExpired(now))

	_, err = r.Take("new")
	require.NoError(t, err)
}
