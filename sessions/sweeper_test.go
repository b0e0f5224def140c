package sessions_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-google-auth-backend/sessions"
	"github.com/stretchr/testify/require"
)

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := sessions.NewInMemoryStore(time.Minute).WithClock(clock.Now)

	for range 2 {
		_, err := store.Create(ctx, testUser)
		require.NoError(t, err)
	}

	var reported atomic.Int64
	sw := sessions.NewSweeper(store, time.Hour, func(n int) { reported.Add(int64(n)) })

	require.Equal(t, 0, sw.Sweep(ctx))
	clock.Advance(2 * time.Minute)
	require.Equal(t, 2, sw.Sweep(ctx))
	require.EqualValues(t, 2, reported.Load())
	require.Equal(t, 0, store.Len())
}

func TestSweeper_StartStop(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := sessions.NewInMemoryStore(time.Minute).WithClock(clock.Now)

	_, err := store.Create(ctx, testUser)
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)

	sw := sessions.NewSweeper(store, 10*time.Millisecond, nil)
	sw.Start(ctx)
	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)
	sw.Stop()
}
