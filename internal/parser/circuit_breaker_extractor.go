package parser

import (
	"context"
	"fmt"

	"triage/internal/rules"
	"triage/pkg/circuitbreaker"
	pkgerrors "triage/pkg/errors"
)

// CircuitBreakerExtractor stops calling a failing extractor for a while and
// answers ErrServiceUnavailable instead.
type CircuitBreakerExtractor struct {
	extractor TextToRule
	breaker   *circuitbreaker.Breaker
}

func NewCircuitBreakerExtractor(extractor TextToRule, name string, s circuitbreaker.Settings) *CircuitBreakerExtractor {
	return &CircuitBreakerExtractor{
		extractor: extractor,
		breaker:   circuitbreaker.New(name, s),
	}
}

func (e *CircuitBreakerExtractor) Extract(ctx context.Context, text string, defaultAction rules.Action) (string, error) {
	out, err := circuitbreaker.Run(ctx, e.breaker, func(ctx context.Context) (string, error) {
		return e.extractor.Extract(ctx, text, defaultAction)
	})
	if circuitbreaker.Rejected(err) {
		return "", pkgerrors.ErrServiceUnavailable.
			WithCause(fmt.Errorf("extractor %s: %w", e.breaker.Name(), err)).
			WithMessage("rule extraction temporarily unavailable")
	}
	return out, err
}

func (e *CircuitBreakerExtractor) IsOpen() bool {
	return e.breaker.Open()
}
