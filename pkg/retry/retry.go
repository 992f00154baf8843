package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"triage/internal/config"
)

// markedError carries an explicit retry decision for an error that has none.
type markedError struct {
	err   error
	fatal bool
}

func (e *markedError) Error() string     { return e.err.Error() }
func (e *markedError) Unwrap() error     { return e.err }
func (e *markedError) IsRetryable() bool { return !e.fatal }
func (e *markedError) IsFatal() bool     { return e.fatal }

// Retryable marks err as transient.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err}
}

// Fatal marks err as permanent: Do returns it without another attempt.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: err, fatal: true}
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
	// Jitter is the randomization factor applied to each interval.
	Jitter float64
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		MaxElapsedTime:  5 * time.Minute,
		Jitter:          0.5,
	}
}

// FromConfig overlays the non-zero settings of cfg on DefaultPolicy.
func FromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		p.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return p
}

func (p Policy) backOff(ctx context.Context) backoff.BackOff {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.InitialInterval
	exp.MaxInterval = p.MaxInterval
	exp.Multiplier = p.Multiplier
	exp.MaxElapsedTime = p.MaxElapsedTime
	exp.RandomizationFactor = p.Jitter
	exp.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(attempts-1)), ctx)
}

// Notify is called before each retry with the attempt that just failed.
type Notify func(attempt int, err error, next time.Duration)

func Do(ctx context.Context, p Policy, fn func() error) error {
	return DoNotify(ctx, p, fn, nil)
}

// DoNotify runs fn until it succeeds, fails permanently, the attempts run out
// or ctx is done. Errors that report IsFatal() or !IsRetryable() are
// permanent; everything else is retried.
func DoNotify(ctx context.Context, p Policy, fn func() error, notify Notify) error {
	attempt := 0
	op := func() error {
		attempt++
		if err := fn(); err != nil {
			return classify(err)
		}
		return nil
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, next time.Duration) { notify(attempt, err, next) }
	}
	return backoff.RetryNotify(op, p.backOff(ctx), onRetry)
}

func classify(err error) error {
	var fatal interface{ IsFatal() bool }
	if errors.As(err, &fatal) && fatal.IsFatal() {
		return backoff.Permanent(err)
	}
	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) && !retryable.IsRetryable() {
		return backoff.Permanent(err)
	}
	return err
}
