package app

import (
	"context"
	"log/slog"
	"time"

	"shiftwatch/cmd/internal/auth/session"
)

// Sweeper periodically deletes dead credentials. Expired and stale revoked
// rows are only hygiene: the guard never treats a missing row as valid, so
// sweeping is safe at any cadence.
type Sweeper struct {
	log       *slog.Logger
	store     session.Store
	interval  time.Duration
	retention time.Duration
}

// NewSweeper constructs a Sweeper. Non-positive interval or retention fall
// back to hourly sweeps keeping one day of dead rows.
func NewSweeper(log *slog.Logger, store session.Store, interval, retention time.Duration) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &Sweeper{log: log, store: store, interval: interval, retention: retention}
}

// Run sweeps on a ticker until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.retention)

	n, err := s.store.SweepExpired(ctx, cutoff)
	if err != nil {
		s.log.Error("sweeper.sweep.fail", "err", err)
		return
	}
	if n > 0 {
		s.log.Info("sweeper.sweep", "removed", n)
	}
}
