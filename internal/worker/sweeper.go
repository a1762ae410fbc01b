package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// SweepFunc runs one auto-cancellation sweep and returns how many bookings it
// cancelled.
type SweepFunc func(ctx context.Context) (cancelled int, err error)

// Sweeper periodically force-cancels bookings whose appointment time has
// passed without a check-in. It runs independently of user-triggered
// transitions; the repository's compare-and-update guard resolves any race
// between the two.
type Sweeper struct {
	sweep    SweepFunc
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper creates a Sweeper that runs sweep every interval.
func NewSweeper(sweep SweepFunc, interval time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		sweep:    sweep,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the sweep loop until the context is cancelled. One sweep runs
// immediately on start so that a restart does not delay overdue cancellations
// by a full interval.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("auto-cancel sweeper started", zap.Duration("interval", s.interval))

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("auto-cancel sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	cancelled, err := s.sweep(ctx)
	if err != nil {
		s.logger.Error("sweep run failed", zap.Error(err))
		return
	}
	if cancelled > 0 {
		s.logger.Info("sweep run finished", zap.Int("cancelled", cancelled))
	}
}
