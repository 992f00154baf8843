package circuitbreaker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"triage/internal/config"
	"triage/pkg/metrics"
)

// Settings trip the breaker once at least MinRequests calls were seen in an
// Interval and FailureRatio of them failed. After Timeout, up to MaxRequests
// probe calls are let through.
type Settings struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

func DefaultSettings() Settings {
	return Settings{
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      time.Minute,
		FailureRatio: 0.5,
		MinRequests:  3,
	}
}

// SettingsFrom overlays the non-zero fields of cfg on DefaultSettings.
func SettingsFrom(cfg config.CircuitBreakerConfig) Settings {
	s := DefaultSettings()
	if cfg.MaxRequests > 0 {
		s.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		s.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		s.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 {
		s.FailureRatio = cfg.FailureRatio
	}
	if cfg.MinRequests > 0 {
		s.MinRequests = cfg.MinRequests
	}
	return s
}

func (s Settings) readyToTrip(counts gobreaker.Counts) bool {
	if counts.Requests < s.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
}

type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func New(name string, s Settings) *Breaker {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: s.readyToTrip,
		// a caller giving up says nothing about the dependency
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, _, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, stateValue(to))
		},
	})
	metrics.SetCircuitBreakerState(name, stateValue(cb.State()))
	return &Breaker{cb: cb}
}

func (b *Breaker) Name() string           { return b.cb.Name() }
func (b *Breaker) State() gobreaker.State { return b.cb.State() }
func (b *Breaker) Open() bool             { return b.cb.State() == gobreaker.StateOpen }

// Run calls fn through b. A rejected call returns an error for which
// Rejected is true and never reaches fn.
func Run[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	out, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	metrics.IncCircuitBreakerRequest(b.cb.Name(), outcome(err))
	if err != nil {
		return zero, err
	}
	return out.(T), nil
}

// Rejected reports whether err came from the breaker refusing a call.
func Rejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case Rejected(err):
		return "rejected"
	default:
		return "failure"
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
