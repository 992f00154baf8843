package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"triage/internal/broker"
	"triage/internal/config"
	"triage/internal/logger"
	"triage/pkg/tracing"
)

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Base carries what both services share: config, logger, tracing and the
// broker clients, plus the ordered list of things to release on exit.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Service  string
	Producer broker.Producer
	Consumer broker.Consumer

	mu       sync.Mutex
	closers  []closer
	shutdown bool
}

func NewBase(cfg *config.Config, log logger.Logger, service string) *Base {
	return &Base{Config: cfg, Logger: log, Service: service}
}

// OnShutdown registers fn to run on Shutdown. Closers run in reverse order of
// registration, so register a resource right after acquiring it.
func (b *Base) OnShutdown(name string, fn func(ctx context.Context) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closers = append(b.closers, closer{name: name, fn: fn})
}

// BrokerEnabled reports whether rule events are configured at all.
func (b *Base) BrokerEnabled() bool {
	return b.Config.Broker.Type != ""
}

func (b *Base) InitTracing(ctx context.Context) error {
	shutdown, err := tracing.Setup(ctx, b.Config.Tracing, b.Service)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	b.OnShutdown("tracing", shutdown)
	return nil
}

func (b *Base) InitProducer() error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Service, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}
	b.Producer = producer
	b.OnShutdown("producer", func(context.Context) error { return producer.Close() })
	return nil
}

func (b *Base) InitConsumer() error {
	consumer, err := broker.NewConsumer(b.Config.Broker, b.Service, b.Logger)
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}
	b.Consumer = consumer
	b.OnShutdown("consumer", func(context.Context) error { return consumer.Close() })
	return nil
}

// OpenStores opens the service's stores and registers them for shutdown.
func (b *Base) OpenStores(ctx context.Context, req StoreRequirements) (*Stores, error) {
	stores, err := OpenStores(ctx, b.Config.Database, req, b.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open stores: %w", err)
	}
	b.OnShutdown("stores", stores.Close)
	return stores, nil
}

// Shutdown runs every registered closer once, newest first, and joins their
// errors. Later calls are no-ops.
func (b *Base) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	if b.shutdown {
		b.mu.Unlock()
		return nil
	}
	b.shutdown = true
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	b.Logger.InfowCtx(ctx, "Shutting down", "service", b.Service)

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(ctx); err != nil {
			b.Logger.ErrorwCtx(ctx, "Shutdown step failed", "step", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	b.Logger.InfowCtx(ctx, "Shutdown complete", "service", b.Service)
	return nil
}
