package sweep

import (
	"context"
	"errors"
	"time"

	"triage/internal/constants"
	"triage/internal/logger"
)

type Scheduler struct {
	runner   Runner
	interval time.Duration
	logger   logger.Logger
}

func NewScheduler(runner Runner, interval time.Duration, log logger.Logger) *Scheduler {
	if interval <= 0 {
		interval = constants.DefaultSweepInterval
	}
	return &Scheduler{runner: runner, interval: interval, logger: log}
}

// Start runs a sweep immediately and then on every tick until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.runner.Run(ctx, constants.SweepTriggerSchedule); err != nil {
		if errors.Is(err, ErrSweepInProgress) || errors.Is(err, context.Canceled) {
			return
		}
		s.logger.ErrorwCtx(ctx, "Scheduled sweep failed", "error", err)
	}
}
