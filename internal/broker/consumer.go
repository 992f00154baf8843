package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"triage/internal/config"
	"triage/internal/logger"
	pkgerrors "triage/pkg/errors"
	"triage/pkg/logging"
	"triage/pkg/metrics"
	"triage/pkg/models"
	"triage/pkg/retry"
	"triage/pkg/tracing"
)

const fetchErrorBackoff = time.Second

// messageReader is the subset of *kafka.Reader the consumer drives.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer commits every message it fetches: processed, dead-lettered or
// undecodable. A poison message never blocks the partition.
type KafkaConsumer struct {
	cfg     config.KafkaConfig
	service string
	logger  logger.Logger
	policy  retry.Policy
	dlq     Producer

	mu     sync.Mutex
	reader messageReader
}

func NewKafkaConsumer(cfg config.KafkaConfig, service string, log logger.Logger) *KafkaConsumer {
	c := &KafkaConsumer{
		cfg:     cfg,
		service: service,
		logger:  log,
		policy:  retry.FromConfig(cfg.Retry),
	}
	if cfg.DLQTopic != "" {
		c.dlq = NewKafkaProducer(cfg, service, log)
	}
	return c
}

func (c *KafkaConsumer) Consume(ctx context.Context, topic string, handler HandlerFunc) error {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.cfg.Brokers,
		GroupID:  c.cfg.GroupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})
	c.mu.Lock()
	c.reader = reader
	c.mu.Unlock()

	return c.consume(logging.WithServiceName(ctx, c.service), reader, topic, handler)
}

func (c *KafkaConsumer) consume(ctx context.Context, reader messageReader, topic string, handler HandlerFunc) error {
	c.logger.InfowCtx(ctx, "Consuming", "topic", topic, "group_id", c.cfg.GroupID)

	for {
		fetchStart := time.Now()
		m, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.InfowCtx(ctx, "Stopped consuming", "topic", topic)
				return ctx.Err()
			}
			c.logger.ErrorwCtx(ctx, "Failed to fetch message", "error", err, "topic", topic)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(fetchErrorBackoff):
			}
			continue
		}

		metrics.IncKafkaMessagesRead(c.service, topic)
		metrics.ObserveKafkaReadDuration(c.service, topic, time.Since(fetchStart))
		metrics.ObserveKafkaMessageSize(c.service, topic, "in", len(m.Value))
		if m.HighWaterMark > 0 {
			metrics.SetKafkaConsumerLag(c.service, topic, m.Partition, m.HighWaterMark-m.Offset-1)
		}

		c.handle(ctx, m, handler)

		if err := reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
			c.logger.ErrorwCtx(ctx, "Failed to commit message", "error", err, "topic", topic, "offset", m.Offset)
		}
	}
}

func (c *KafkaConsumer) handle(ctx context.Context, m kafka.Message, handler HandlerFunc) {
	var envelope models.MessageEnvelope
	if err := json.Unmarshal(m.Value, &envelope); err != nil {
		c.logger.ErrorwCtx(ctx, "Dropping undecodable message", "error", err, "topic", m.Topic, "offset", m.Offset)
		return
	}
	if err := envelope.Validate(); err != nil {
		c.logger.WarnwCtx(ctx, "Dropping invalid envelope", "error", err, "topic", m.Topic, "offset", m.Offset)
		return
	}

	ctx, span := tracing.StartConsumerSpan(ctx, m)
	defer span.End()

	traceID := envelope.Metadata.TraceID
	if traceID == "" {
		traceID = tracing.TraceID(ctx)
	}
	ctx = logging.WithMessageID(logging.WithTraceID(ctx, traceID), envelope.ID)

	err := retry.DoNotify(ctx, c.policy, func() error {
		return c.invoke(ctx, handler, envelope)
	}, func(attempt int, err error, next time.Duration) {
		metrics.RetryAttemptsTotal.WithLabelValues(c.service, m.Topic).Inc()
		c.logger.WarnwCtx(ctx, "Handler failed, retrying",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"next_delay", next,
			"error", err,
		)
	})
	if err == nil {
		return
	}

	tracing.Fail(span, err)
	c.logger.ErrorwCtx(ctx, "Handler gave up on message", "error", err, "topic", m.Topic)
	if c.dlq == nil || c.cfg.DLQTopic == "" {
		return
	}
	if dlqErr := c.deadLetter(ctx, envelope, m.Topic, err); dlqErr != nil {
		c.logger.ErrorwCtx(ctx, "Failed to dead-letter message", "error", dlqErr, "topic", m.Topic)
	}
}

// invoke converts handler panics into fatal errors so one bad message cannot
// kill the consumer.
func (c *KafkaConsumer) invoke(ctx context.Context, handler HandlerFunc, envelope models.MessageEnvelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.RecoverPanic(r)
			c.logger.ErrorwCtx(ctx, "Handler panicked", "error", err)
		}
	}()
	return handler(ctx, envelope)
}

func (c *KafkaConsumer) deadLetter(ctx context.Context, envelope models.MessageEnvelope, source string, cause error) error {
	reason := "retries_exhausted"
	var fatal interface{ IsFatal() bool }
	if errors.As(cause, &fatal) && fatal.IsFatal() {
		reason = "fatal_error"
	}

	envelope.Metadata.SetAttribute("dlq_reason", reason)
	envelope.Metadata.SetAttribute("dlq_error", cause.Error())
	envelope.Metadata.SetAttribute("dlq_source_topic", source)
	envelope.Metadata.SetAttribute("dlq_timestamp", time.Now().UTC().Format(time.RFC3339))

	if err := c.dlq.Publish(ctx, c.cfg.DLQTopic, envelope); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", c.cfg.DLQTopic, err)
	}
	metrics.DLQMessagesTotal.WithLabelValues(c.service, source, reason).Inc()
	c.logger.WarnwCtx(ctx, "Message dead-lettered", "dlq_topic", c.cfg.DLQTopic, "reason", reason)
	return nil
}

func (c *KafkaConsumer) Close() error {
	var errs []error
	c.mu.Lock()
	if c.reader != nil {
		errs = append(errs, c.reader.Close())
	}
	c.mu.Unlock()
	if c.dlq != nil {
		errs = append(errs, c.dlq.Close())
	}
	return errors.Join(errs...)
}
