package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"triage/internal/config"
	"triage/internal/logger"
	"triage/pkg/metrics"
	"triage/pkg/models"
	"triage/pkg/tracing"
)

const (
	producerBatchTimeout = 10 * time.Millisecond
	producerWriteTimeout = 10 * time.Second
)

// KafkaProducer writes envelopes synchronously so callers learn about
// delivery failures.
type KafkaProducer struct {
	writer  *kafka.Writer
	service string
	logger  logger.Logger
}

func NewKafkaProducer(cfg config.KafkaConfig, service string, log logger.Logger) *KafkaProducer {
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Balancer:               &kafka.Hash{},
			BatchTimeout:           producerBatchTimeout,
			WriteTimeout:           producerWriteTimeout,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		service: service,
		logger:  log,
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode envelope %s: %w", msg.ID, err)
	}

	headers := tracing.InjectKafkaHeaders(ctx, nil)
	if eventType := msg.EventType(); eventType != "" {
		headers = append(headers, kafka.Header{Key: models.AttrEventType, Value: []byte(eventType)})
	}

	start := time.Now()
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic:   topic,
		Key:     []byte(msg.ID),
		Value:   body,
		Headers: headers,
		Time:    msg.Timestamp,
	})
	metrics.ObserveKafkaWriteDuration(p.service, topic, time.Since(start))
	if err != nil {
		return fmt.Errorf("failed to write to %s: %w", topic, err)
	}

	metrics.IncKafkaMessagesWritten(p.service, topic)
	metrics.ObserveKafkaMessageSize(p.service, topic, "out", len(body))
	p.logger.DebugwCtx(ctx, "Envelope published", "topic", topic, "id", msg.ID, "event_type", msg.EventType())
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
