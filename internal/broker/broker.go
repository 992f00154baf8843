package broker

import (
	"context"
	"fmt"

	"triage/internal/config"
	"triage/internal/logger"
	"triage/pkg/models"
)

const TypeKafka = "kafka"

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error
	Close() error
}

// Consumer blocks in Consume until ctx is done, handing each valid envelope to
// handler. A handler error triggers retries and, once they run out, the DLQ.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error

func NewProducer(cfg config.BrokerConfig, service string, log logger.Logger) (Producer, error) {
	if cfg.Type != TypeKafka {
		return nil, fmt.Errorf("unsupported broker type: %q", cfg.Type)
	}
	return NewKafkaProducer(cfg.Kafka, service, log), nil
}

func NewConsumer(cfg config.BrokerConfig, service string, log logger.Logger) (Consumer, error) {
	if cfg.Type != TypeKafka {
		return nil, fmt.Errorf("unsupported broker type: %q", cfg.Type)
	}
	return NewKafkaConsumer(cfg.Kafka, service, log), nil
}
