package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	"triage/internal/audit"
	"triage/internal/config"
	"triage/internal/constants"
	"triage/internal/logger"
	"triage/internal/management"
	"triage/internal/parser"
	"triage/pkg/bootstrap"
	"triage/pkg/circuitbreaker"
	"triage/pkg/health"
	"triage/pkg/metrics"
	"triage/pkg/middleware"
	"triage/pkg/ratelimit"
	"triage/pkg/retry"
	"triage/pkg/tracing"
)

const serviceName = "rules-service"

type App struct {
	*bootstrap.Base
	stores  *bootstrap.Stores
	limiter *ratelimit.Limiter
	server  *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{Base: bootstrap.NewBase(cfg, log, serviceName)}
}

// storeRequirements: Redis only backs the extractor cache; Mongo only when it
// holds the audit log.
func (a *App) storeRequirements() bootstrap.StoreRequirements {
	return bootstrap.StoreRequirements{
		Redis: bootstrap.Optional,
		Mongo: a.Config.Audit.Store == constants.AuditStoreMongoDB,
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitTracing(ctx); err != nil {
		return err
	}

	stores, err := a.OpenStores(ctx, a.storeRequirements())
	if err != nil {
		return err
	}
	a.stores = stores

	if a.Config.Database.RunMigrations {
		if err := stores.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	groups := []metrics.Group{metrics.Rules, metrics.Audit, metrics.HTTP, metrics.Database}
	if a.Config.CircuitBreaker.Enabled {
		groups = append(groups, metrics.Resilience)
	}
	if a.BrokerEnabled() {
		if err := a.InitProducer(); err != nil {
			return err
		}
		groups = append(groups, metrics.Broker)
	}
	metrics.MustRegister(groups...)

	svc, err := a.initService()
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router(svc),
		ReadTimeout:  a.Config.Server.ReadTimeout(),
		WriteTimeout: a.Config.Server.WriteTimeout(),
	}
	return nil
}

func (a *App) initService() (management.Service, error) {
	var store audit.Store = audit.NewPostgresStore(a.stores.Postgres)
	if a.Config.Audit.Store == constants.AuditStoreMongoDB {
		store = audit.NewMongoStore(a.stores.MongoDatabase())
	}
	recorder := audit.NewRecorder(store, a.Logger,
		audit.WithQueueSize(a.Config.Audit.QueueSize),
		audit.WithWorkers(a.Config.Audit.Workers),
		audit.WithWriteTimeout(a.Config.Audit.WriteTimeout),
	)
	// registered after the stores and producer so it drains before they close
	a.OnShutdown("audit", func(context.Context) error {
		recorder.Close()
		return nil
	})

	ruleParser, err := parser.NewParser(a.extractor(),
		parser.WithAuditRecorder(recorder),
		parser.WithLogger(a.Logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create parser: %w", err)
	}

	opts := []management.ServiceOption{
		management.WithParser(ruleParser),
		management.WithAuditLog(recorder),
		management.WithLogger(a.Logger),
		management.WithParserSettings(a.Config.Parser),
	}
	if a.Producer != nil {
		topic := a.Config.Broker.Kafka.RuleEventsTopic
		if topic == "" {
			topic = constants.DefaultRuleEventsTopic
		}
		opts = append(opts, management.WithRuleEvents(management.NewRuleEventProducer(a.Producer, topic, serviceName)))
		a.Logger.Infow("Publishing rule events", "topic", topic)
	}

	return management.NewService(management.NewRepository(a.stores.Postgres), opts...), nil
}

// extractor layers HTTP, then the circuit breaker, then the Redis cache. It
// is nil without an endpoint, which leaves only the heuristics.
func (a *App) extractor() parser.TextToRule {
	cfg := a.Config.Parser.Extractor
	if cfg.URL == "" {
		a.Logger.Warnw("No extractor endpoint configured, AI fallback disabled")
		return nil
	}

	var ex parser.TextToRule = parser.NewHTTPExtractor(parser.HTTPExtractorConfig{
		URL:     cfg.URL,
		APIKey:  cfg.APIKey,
		Timeout: cfg.Timeout,
		Retry:   retry.FromConfig(cfg.Retry),
	})
	if a.Config.CircuitBreaker.Enabled {
		ex = parser.NewCircuitBreakerExtractor(ex, constants.ExtractorNameHTTP+"-extractor",
			circuitbreaker.SettingsFrom(a.Config.CircuitBreaker))
	}
	if a.stores.Redis != nil {
		ex = parser.NewCachingExtractor(ex, a.stores.Redis, time.Duration(cfg.CacheTTLSeconds)*time.Second, a.Logger)
	}
	return ex
}

func (a *App) router(svc management.Service) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(tracing.GinMiddleware(serviceName))
	router.Use(middleware.Recovery(a.Logger), middleware.RequestContext(), middleware.AccessLog(a.Logger))

	if rl := a.Config.Management.RateLimit; rl.Enabled {
		settings := ratelimit.SettingsFrom(rl)
		a.limiter = ratelimit.New(settings)
		router.Use(a.limiter.Middleware())
		a.Logger.Infow("Rate limiting enabled", "rps", settings.RPS, "burst", settings.Burst)
	}

	management.NewHandler(svc, a.Logger).RegisterRoutes(router)

	checks := health.NewRegistry()
	a.stores.RegisterHealth(checks)
	router.GET("/health", gin.WrapH(checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}

// Run serves until ctx is done, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(gCtx, "Server listening", "port", a.Config.Server.Port)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	if a.limiter != nil {
		g.Go(func() error {
			a.limiter.Run(gCtx)
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()
	return errors.Join(err, a.Shutdown(shutdownCtx))
}
