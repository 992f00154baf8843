package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"triage/internal/config"
	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/management"
	"triage/internal/sweep"
	"triage/pkg/bootstrap"
	"triage/pkg/health"
	"triage/pkg/metrics"
)

const serviceName = "sweep-service"

type App struct {
	*bootstrap.Base
	stores  *bootstrap.Stores
	service *sweep.Service
	server  *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if cfg.Broker.Kafka.GroupID == "" {
		cfg.Broker.Kafka.GroupID = constants.DefaultSweepGroupID
	}
	return &App{Base: bootstrap.NewBase(cfg, log, serviceName)}
}

// initService opens the stores and builds the sweep service. It is all the
// one-shot command needs.
func (a *App) initService(ctx context.Context) error {
	// Redis holds the sweep lock; once configured, running without it would
	// let replicas sweep concurrently.
	stores, err := a.OpenStores(ctx, bootstrap.StoreRequirements{Redis: bootstrap.Required})
	if err != nil {
		return err
	}
	a.stores = stores

	cfg := a.Config.Sweep
	opts := []sweep.Option{
		sweep.WithWorkers(cfg.Workers),
		sweep.WithDeleteTimeout(cfg.DeleteTimeout),
		sweep.WithLogger(a.Logger),
	}
	if stores.Redis != nil {
		ttl := cfg.LockTTL()
		if ttl <= 0 {
			ttl = constants.DefaultSweepLockTTL
		}
		opts = append(opts, sweep.WithLocker(sweep.NewRedisLock(stores.Redis, constants.LockKeySweep, ttl)))
	} else {
		a.Logger.Warnw("Redis not configured, sweep lock disabled")
	}

	a.service = sweep.NewService(
		management.NewRepository(stores.Postgres),
		sweep.NewTaskRepository(stores.Postgres),
		opts...,
	)
	return nil
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(ctx); err != nil {
		return err
	}
	if err := a.initService(ctx); err != nil {
		return err
	}

	groups := []metrics.Group{metrics.Sweep, metrics.Database}
	if a.BrokerEnabled() {
		if err := a.InitConsumer(); err != nil {
			return err
		}
		groups = append(groups, metrics.Broker)
	}
	metrics.MustRegister(groups...)

	checks := health.NewRegistry()
	a.stores.RegisterHealth(checks)

	mux := http.NewServeMux()
	mux.Handle("/health", checks)
	mux.Handle("/metrics", promhttp.Handler())
	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}
	return nil
}

// Run sweeps on a schedule and on rule events until ctx is done.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "HTTP server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	interval := a.Config.Sweep.Interval()
	scheduler := sweep.NewScheduler(a.service, interval, a.Logger)
	g.Go(func() error {
		return ignoreCanceled(scheduler.Start(gCtx))
	})

	if a.Consumer != nil {
		topic := a.Config.Broker.Kafka.RuleEventsTopic
		if topic == "" {
			topic = constants.DefaultRuleEventsTopic
		}
		handler := sweep.NewEventHandler(a.service, a.Logger)
		g.Go(func() error {
			return ignoreCanceled(a.Consumer.Consume(gCtx, topic, handler.HandleRuleEvent))
		})
	}

	err := g.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.Shutdown(shutdownCtx))
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
