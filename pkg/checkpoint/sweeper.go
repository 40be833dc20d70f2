package checkpoint

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"
)

// Sweeper periodically calls Store.SweepExpired on a jittered interval.
type Sweeper struct {
	store    Store
	interval time.Duration
	jitter   time.Duration
	log      *slog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewSweeper creates a Sweeper that calls store.SweepExpired roughly every
// interval, +/- jitter.
func NewSweeper(store Store, interval, jitter time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		interval: interval,
		jitter:   jitter,
		log:      slog.With("component", "checkpoint-sweeper"),
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sweep loop in a goroutine.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.run(ctx)
}

// Stop signals the sweeper to stop and waits for it to finish. Safe to
// call more than once.
func (s *Sweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

func (s *Sweeper) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval()):
			removed, err := s.store.SweepExpired(ctx)
			if err != nil {
				s.log.Warn("sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				s.log.Info("swept expired entries", "count", removed)
			}
		}
	}
}

func (s *Sweeper) pollInterval() time.Duration {
	if s.jitter <= 0 {
		return s.interval
	}
	offset := time.Duration(rand.Int64N(int64(2 * s.jitter)))
	return s.interval - s.jitter + offset
}
