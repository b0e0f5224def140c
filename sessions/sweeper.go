package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 10 * time.Minute

// Sweeper periodically removes expired sessions. Lookups already evict
// lazily; the sweep bounds memory held by sessions nobody asks for again.
type Sweeper struct {
	store    Store
	interval time.Duration
	onSweep  func(removed int)
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewSweeper creates a sweeper. onSweep, if not nil, is told how many
// sessions each pass removed.
func NewSweeper(store Store, interval time.Duration, onSweep func(removed int)) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		onSweep:  onSweep,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine
func (sw *Sweeper) Start(ctx context.Context) {
	log.Info().Str("interval", sw.interval.String()).Msg("Starting session sweeper")
	go sw.run(ctx)
}

// Stop ends the loop and waits for it to exit
func (sw *Sweeper) Stop() {
	close(sw.stopChan)
	<-sw.doneChan
	log.Info().Msg("Session sweeper stopped")
}

func (sw *Sweeper) run(ctx context.Context) {
	defer close(sw.doneChan)

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sw.Sweep(ctx)
		case <-sw.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs a single pass.
func (sw *Sweeper) Sweep(ctx context.Context) int {
	count, err := sw.store.DeleteExpired(ctx)
	if err != nil {
		log.Err(err).Msg("Failed to sweep expired sessions")
		return 0
	}
	if count > 0 {
		log.Debug().Int("count", count).Msg("Swept expired sessions")
		if sw.onSweep != nil {
			sw.onSweep(count)
		}
	}
	return count
}
