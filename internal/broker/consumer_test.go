package broker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"triage/internal/config"
	"triage/internal/logger"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/models"
	"triage/pkg/retry"
)

type fakeReader struct {
	messages  []kafka.Message
	committed []int64
	cancel    context.CancelFunc
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.messages[0]
	r.messages = r.messages[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type dlqRecorder struct {
	mu        sync.Mutex
	envelopes []models.MessageEnvelope
}

func (p *dlqRecorder) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.envelopes = append(p.envelopes, msg)
	return nil
}

func (p *dlqRecorder) Close() error { return nil }

func (p *dlqRecorder) reasons() map[string]string {
	out := make(map[string]string)
	for _, env := range p.envelopes {
		reason, _ := env.Metadata.StringAttribute("dlq_reason")
		out[env.ID] = reason
	}
	return out
}

func message(t *testing.T, offset int64, env models.MessageEnvelope) kafka.Message {
	t.Helper()
	body, err := json.Marshal(env)
	require.NoError(t, err)
	return kafka.Message{Topic: "rule_events", Offset: offset, Value: body}
}

func TestKafkaConsumer_Consume(t *testing.T) {
	envelope := func(id string) models.MessageEnvelope {
		return models.NewEnvelope("rules-service", map[string]interface{}{}, models.WithEnvelopeID(id))
	}
	invalid := envelope("")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &fakeReader{cancel: cancel, messages: []kafka.Message{
		message(t, 0, envelope("ok")),
		{Topic: "rule_events", Offset: 1, Value: []byte("not json")},
		message(t, 2, invalid),
		message(t, 3, envelope("flaky")),
		message(t, 4, envelope("bad")),
		message(t, 5, envelope("panics")),
	}}
	dlq := &dlqRecorder{}

	c := &KafkaConsumer{
		cfg:     config.KafkaConfig{DLQTopic: "rule_events.dlq"},
		service: "test",
		logger:  logger.NopLogger(),
		policy:  retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond, Multiplier: 1},
		dlq:     dlq,
	}

	calls := make(map[string]int)
	handler := func(ctx context.Context, msg models.MessageEnvelope) error {
		calls[msg.ID]++
		switch msg.ID {
		case "flaky":
			return errors.New("store unavailable")
		case "bad":
			return pkgerrors.ErrValidation.WithMessage("bad payload")
		case "panics":
			panic("boom")
		}
		return nil
	}

	err := c.consume(ctx, reader, "rule_events", handler)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, map[string]int{"ok": 1, "flaky": 2, "bad": 1, "panics": 1}, calls)
	assert.Equal(t, []int64{0, 1, 2, 3, 4, 5}, reader.committed)
	assert.Equal(t, map[string]string{
		"flaky":  "retries_exhausted",
		"bad":    "fatal_error",
		"panics": "fatal_error",
	}, dlq.reasons())
}

func TestNewProducer_UnsupportedType(t *testing.T) {
	_, err := NewProducer(config.BrokerConfig{Type: "rabbitmq"}, "test", logger.NopLogger())
	require.Error(t, err)

	_, err = NewConsumer(config.BrokerConfig{Type: ""}, "test", logger.NopLogger())
	require.Error(t, err)
}
