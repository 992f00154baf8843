package management

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/pkg/models"
)

type recordingProducer struct {
	topic    string
	envelope models.MessageEnvelope
	calls    int
	err      error
}

func (p *recordingProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	p.calls++
	p.topic = topic
	p.envelope = msg
	return p.err
}

func (p *recordingProducer) Close() error { return nil }

func TestRuleEventProducer_Publish(t *testing.T) {
	producer := &recordingProducer{}
	notifier := NewRuleEventProducer(producer, "rule_events", "rules-service")

	err := notifier.PublishRuleEvent(context.Background(), models.RuleEvent{
		EventType:  models.EventTypeRuleChanged,
		RuleID:     "rule-1",
		Action:     models.ActionCreate,
		RuleType:   "DOMAIN",
		RuleAction: "SUPPRESS",
	})
	require.NoError(t, err)

	assert.Equal(t, "rule_events", producer.topic)
	assert.Equal(t, "rules-service", producer.envelope.Source)
	assert.NotEmpty(t, producer.envelope.ID)
	assert.False(t, producer.envelope.Timestamp.IsZero())
	require.NoError(t, producer.envelope.Validate())
	assert.Equal(t, models.EventTypeRuleChanged, producer.envelope.EventType())

	decoded, err := models.DecodeRuleEvent(producer.envelope)
	require.NoError(t, err)
	assert.Equal(t, "rule-1", decoded.RuleID)
	assert.Equal(t, "SUPPRESS", decoded.RuleAction)
}

func TestRuleEventProducer_Disabled(t *testing.T) {
	producer := &recordingProducer{}

	require.NoError(t, NewRuleEventProducer(nil, "rule_events", "rules-service").
		PublishRuleEvent(context.Background(), models.RuleEvent{EventType: models.EventTypeRuleChanged}))
	require.NoError(t, NewRuleEventProducer(producer, "", "rules-service").
		PublishRuleEvent(context.Background(), models.RuleEvent{EventType: models.EventTypeRuleChanged}))
	assert.Zero(t, producer.calls)
}

func TestRuleEventProducer_PublishError(t *testing.T) {
	producer := &recordingProducer{err: errors.New("broker down")}
	notifier := NewRuleEventProducer(producer, "rule_events", "rules-service")

	err := notifier.PublishRuleEvent(context.Background(), models.RuleEvent{
		EventType: models.EventTypeRuleChanged,
		RuleID:    "rule-9",
		Action:    models.ActionDelete,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "rule-9")
}
