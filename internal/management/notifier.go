package management

import (
	"context"
	"fmt"

	"triage/internal/broker"
	"triage/pkg/models"
	"triage/pkg/tracing"
)

// RuleEventProducer publishes rule mutations so sweep workers can react.
// A nil producer or empty topic turns publishing into a no-op.
type RuleEventProducer struct {
	producer broker.Producer
	topic    string
	source   string
}

func NewRuleEventProducer(producer broker.Producer, topic, source string) *RuleEventProducer {
	return &RuleEventProducer{producer: producer, topic: topic, source: source}
}

func (p *RuleEventProducer) PublishRuleEvent(ctx context.Context, event models.RuleEvent) error {
	if p.producer == nil || p.topic == "" {
		return nil
	}

	envelope, err := event.Envelope(p.source, models.WithTraceID(tracing.TraceID(ctx)))
	if err != nil {
		return err
	}
	if err := p.producer.Publish(ctx, p.topic, envelope); err != nil {
		return fmt.Errorf("failed to publish %s event for rule %s: %w", event.Action, event.RuleID, err)
	}
	return nil
}
