package sweep

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/matcher"
	"triage/internal/rules"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/metrics"
	"triage/pkg/tracing"
)

type Option func(*Service)

func WithLocker(locker Locker) Option {
	return func(s *Service) {
		s.locker = locker
	}
}

func WithWorkers(workers int) Option {
	return func(s *Service) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

func WithDeleteTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.deleteTimeout = timeout
		}
	}
}

func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		s.logger = log
	}
}

// Service removes tasks whose thread matches an active suppression rule.
type Service struct {
	rules         RuleSource
	tasks         TaskRepository
	locker        Locker
	workers       int
	deleteTimeout time.Duration
	logger        logger.Logger
}

func NewService(ruleSource RuleSource, tasks TaskRepository, opts ...Option) *Service {
	s := &Service{
		rules:         ruleSource,
		tasks:         tasks,
		workers:       constants.DefaultSweepWorkers,
		deleteTimeout: constants.DefaultSweepDeleteTimeout,
		logger:        logger.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type counters struct {
	scanned atomic.Int64
	deleted atomic.Int64
	skipped atomic.Int64
	failed  atomic.Int64
}

// Run evaluates every task independently. A single task failing is counted
// and logged; only a failure to list rules or tasks aborts the sweep.
func (s *Service) Run(ctx context.Context, trigger string) (Result, error) {
	ctx, span := tracing.Start(ctx, tracing.TracerSweep, "sweep.Run", attribute.String("sweep.trigger", trigger))
	defer span.End()

	start := time.Now()

	if s.locker != nil {
		token, err := s.locker.Acquire(ctx)
		if errors.Is(err, ErrSweepInProgress) {
			metrics.SweepRunsTotal.WithLabelValues(trigger, "skipped").Inc()
			s.logger.InfowCtx(ctx, "Sweep already running elsewhere, skipping", "trigger", trigger)
			return Result{}, pkgerrors.ErrConflict.WithCause(err).WithMessage(err.Error())
		}
		if err != nil {
			metrics.SweepRunsTotal.WithLabelValues(trigger, "error").Inc()
			tracing.Fail(span, err)
			return Result{}, pkgerrors.Wrap(err, pkgerrors.ErrServiceUnavailable)
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), s.deleteTimeout)
			defer cancel()
			if err := s.locker.Release(releaseCtx, token); err != nil {
				s.logger.WarnwCtx(ctx, "Failed to release sweep lock", "error", err)
			}
		}()
	}

	suppressRules, err := s.rules.ListRulesByAction(ctx, rules.ActionSuppress)
	if err != nil {
		return s.abort(ctx, trigger, err)
	}
	metrics.SetActiveRules(string(rules.ActionSuppress), len(suppressRules))

	if len(suppressRules) == 0 {
		metrics.SweepRunsTotal.WithLabelValues(trigger, "success").Inc()
		s.logger.DebugwCtx(ctx, "No suppression rules, nothing to sweep")
		return Result{Duration: time.Since(start)}, nil
	}

	tasks, err := s.tasks.ListTasks(ctx)
	if err != nil {
		return s.abort(ctx, trigger, err)
	}

	var c counters
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, task := range tasks {
		g.Go(func() error {
			s.sweepTask(gctx, task, suppressRules, &c)
			return nil
		})
	}
	_ = g.Wait()

	result := Result{
		Scanned:  int(c.scanned.Load()),
		Deleted:  int(c.deleted.Load()),
		Skipped:  int(c.skipped.Load()),
		Failed:   int(c.failed.Load()),
		Duration: time.Since(start),
	}

	metrics.ObserveSweepDuration(result.Duration)
	span.SetAttributes(
		attribute.Int("sweep.scanned", result.Scanned),
		attribute.Int("sweep.deleted", result.Deleted),
		attribute.Int("sweep.failed", result.Failed),
	)

	if err := ctx.Err(); err != nil {
		metrics.SweepRunsTotal.WithLabelValues(trigger, "cancelled").Inc()
		return result, err
	}

	metrics.SweepRunsTotal.WithLabelValues(trigger, "success").Inc()
	s.logger.InfowCtx(ctx, "Suppression sweep finished",
		"trigger", trigger,
		"rules", len(suppressRules),
		"scanned", result.Scanned,
		"deleted", result.Deleted,
		"failed", result.Failed,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) sweepTask(ctx context.Context, task Task, suppressRules []rules.Rule, c *counters) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			err := pkgerrors.RecoverPanic(r)
			c.failed.Add(1)
			metrics.SweepTasksTotal.WithLabelValues("failed").Inc()
			s.logger.ErrorwCtx(ctx, "Panic while sweeping task", "error", err, "task_id", task.ID)
		}
	}()

	c.scanned.Add(1)
	decision := matcher.Evaluate(task.Subject, suppressRules)
	metrics.IncMatcherDecision("sweep", decision.Suppressed)
	if !decision.Suppressed {
		c.skipped.Add(1)
		metrics.SweepTasksTotal.WithLabelValues("kept").Inc()
		return
	}

	deleteCtx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	deleted, err := s.tasks.DeleteTask(deleteCtx, task.ID)
	if err != nil {
		c.failed.Add(1)
		metrics.SweepTasksTotal.WithLabelValues("failed").Inc()
		s.logger.WarnwCtx(ctx, "Failed to delete suppressed task", "error", err, "task_id", task.ID)
		return
	}
	if !deleted {
		c.skipped.Add(1)
		metrics.SweepTasksTotal.WithLabelValues("gone").Inc()
		return
	}

	c.deleted.Add(1)
	metrics.SweepTasksTotal.WithLabelValues("deleted").Inc()
	s.logger.DebugwCtx(ctx, "Deleted suppressed task",
		"task_id", task.ID,
		"thread_id", task.ThreadID,
		"rule_id", decision.FiredRule.ID,
	)
}

func (s *Service) abort(ctx context.Context, trigger string, err error) (Result, error) {
	metrics.SweepRunsTotal.WithLabelValues(trigger, "error").Inc()
	s.logger.ErrorwCtx(ctx, "Suppression sweep aborted", "error", err, "trigger", trigger)
	return Result{}, pkgerrors.Wrap(err, pkgerrors.ErrStore)
}
