package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"triage/internal/config"
	"triage/internal/constants"
	"triage/internal/logger"
	"triage/pkg/health"
	"triage/pkg/migrations"
)

// Need says how a service depends on an optional store.
type Need int

const (
	// Skip never connects.
	Skip Need = iota
	// Optional connects when configured and carries on without it on failure.
	Optional
	// Required connects when configured and fails startup on error.
	Required
)

type StoreRequirements struct {
	Redis Need
	Mongo bool
}

// Stores holds the connections a service opened. Postgres is always present;
// Redis and Mongo are nil when skipped or unavailable.
type Stores struct {
	Postgres *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client

	cfg config.DatabaseConfig
	log logger.Logger
}

func OpenStores(ctx context.Context, cfg config.DatabaseConfig, req StoreRequirements, log logger.Logger) (*Stores, error) {
	s := &Stores{cfg: cfg, log: log}

	db, err := openPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	s.Postgres = db
	log.InfowCtx(ctx, "Connected to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.DBName)

	if req.Redis != Skip && cfg.Redis.Host != "" {
		client, err := openRedis(ctx, cfg.Redis)
		switch {
		case err == nil:
			s.Redis = client
			log.InfowCtx(ctx, "Connected to Redis", "host", cfg.Redis.Host)
		case req.Redis == Optional:
			log.WarnwCtx(ctx, "Redis unavailable, continuing without it", "error", err)
		default:
			return nil, errors.Join(err, s.Close(ctx))
		}
	}

	if req.Mongo {
		client, err := openMongo(ctx, cfg.MongoDB)
		if err != nil {
			return nil, errors.Join(err, s.Close(ctx))
		}
		s.Mongo = client
		log.InfowCtx(ctx, "Connected to MongoDB", "database", s.mongoName())
	}

	return s, nil
}

func postgresDSN(cfg config.PostgresConfig) string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Host:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:   "/" + cfg.DBName,
	}
	if cfg.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
	}
	return u.String()
}

func openPostgres(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	if cfg.Host == "" {
		return nil, errors.New("postgres host is not configured")
	}
	db, err := sql.Open("postgres", postgresDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func openMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongodb uri is not configured")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

func (s *Stores) mongoName() string {
	if s.cfg.MongoDB.Database != "" {
		return s.cfg.MongoDB.Database
	}
	return constants.DefaultMongoDBName
}

// MongoDatabase is nil when Mongo was not opened.
func (s *Stores) MongoDatabase() *mongo.Database {
	if s.Mongo == nil {
		return nil
	}
	return s.Mongo.Database(s.mongoName())
}

// Migrate applies the embedded Postgres migrations and, with Mongo open,
// ensures the audit indexes.
func (s *Stores) Migrate(ctx context.Context) error {
	if err := migrations.RunPostgres(s.Postgres); err != nil {
		return err
	}
	s.log.InfowCtx(ctx, "PostgreSQL migrations applied")

	if db := s.MongoDatabase(); db != nil {
		if err := migrations.EnsureAuditIndexes(ctx, db); err != nil {
			return err
		}
		s.log.InfowCtx(ctx, "MongoDB audit indexes ensured")
	}
	return nil
}

// RegisterHealth adds a check per open store. Redis only degrades the service.
func (s *Stores) RegisterHealth(r *health.Registry) {
	r.Require("postgres", health.Postgres(s.Postgres))
	if s.Redis != nil {
		r.Optional("redis", health.Redis(s.Redis))
	}
	if s.Mongo != nil {
		r.Require("mongodb", health.Mongo(s.Mongo))
	}
}

func (s *Stores) Close(ctx context.Context) error {
	var errs []error
	if s.Mongo != nil {
		if err := s.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis: %w", err))
		}
	}
	if s.Postgres != nil {
		if err := s.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres: %w", err))
		}
	}
	return errors.Join(errs...)
}
