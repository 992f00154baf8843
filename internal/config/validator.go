package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"triage/internal/constants"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// checker collects every failed check instead of stopping at the first.
type checker struct {
	errs []error
}

func (c *checker) require(ok bool, field, format string, args ...interface{}) {
	if !ok {
		c.errs = append(c.errs, &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}
}

func (c *checker) port(field string, port int) {
	c.require(port >= 1 && port <= 65535, field, "port must be between 1 and 65535, got %d", port)
}

func (c *checker) nonNegative(field string, n int64) {
	c.require(n >= 0, field, "must not be negative, got %d", n)
}

// ValidateStatic checks what can be checked without touching the network.
func ValidateStatic(cfg *Config) error {
	c := &checker{}

	c.port("server.port", cfg.Server.Port)
	c.require(cfg.Server.ReadTimeoutSeconds > 0, "server.read_timeout_seconds", "must be positive")
	c.require(cfg.Server.WriteTimeoutSeconds > 0, "server.write_timeout_seconds", "must be positive")

	c.database(cfg.Database)
	c.broker(cfg.Broker)
	c.parser(cfg.Parser)
	c.audit(cfg.Audit, cfg.Database.MongoDB)

	c.nonNegative("sweep.interval_seconds", int64(cfg.Sweep.IntervalSeconds))
	c.nonNegative("sweep.workers", int64(cfg.Sweep.Workers))
	c.nonNegative("sweep.lock_ttl_seconds", int64(cfg.Sweep.LockTTLSeconds))

	if rl := cfg.Management.RateLimit; rl.Enabled {
		c.require(rl.RPS > 0, "management.rate_limit.rps", "must be positive when rate limiting is enabled")
	}
	if cb := cfg.CircuitBreaker; cb.Enabled {
		c.require(cb.FailureRatio >= 0 && cb.FailureRatio <= 1, "circuit_breaker.failure_ratio", "must be within [0, 1], got %g", cb.FailureRatio)
	}

	if err := errors.Join(c.errs...); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

var sslModes = map[string]bool{
	"disable": true, "allow": true, "prefer": true,
	"require": true, "verify-ca": true, "verify-full": true,
}

func (c *checker) database(cfg DatabaseConfig) {
	if pg := cfg.Postgres; pg.Host != "" {
		c.port("database.postgres.port", pg.Port)
		c.require(pg.User != "", "database.postgres.user", "is required")
		c.require(pg.DBName != "", "database.postgres.dbname", "is required")
		c.require(pg.SSLMode == "" || sslModes[strings.ToLower(pg.SSLMode)], "database.postgres.sslmode",
			"unknown mode %q", pg.SSLMode)
	}

	if cfg.Redis.Host != "" {
		c.port("database.redis.port", cfg.Redis.Port)
		c.nonNegative("database.redis.db", int64(cfg.Redis.DB))
	}

	if uri := cfg.MongoDB.URI; uri != "" {
		c.require(strings.HasPrefix(uri, "mongodb://") || strings.HasPrefix(uri, "mongodb+srv://"),
			"database.mongodb.uri", "must use the mongodb:// or mongodb+srv:// scheme")
	}
}

func (c *checker) broker(cfg BrokerConfig) {
	switch cfg.Type {
	case "":
		return
	case "kafka":
	default:
		c.require(false, "broker.type", "unsupported broker %q (supported: kafka)", cfg.Type)
		return
	}

	k := cfg.Kafka
	c.require(len(k.Brokers) > 0, "broker.kafka.brokers", "at least one broker is required")
	c.require(k.DLQTopic == "" || k.DLQTopic != k.RuleEventsTopic, "broker.kafka.dlq_topic", "must differ from the rule events topic")
	c.retry("broker.kafka.retry", k.Retry)
}

func (c *checker) retry(prefix string, r RetryConfig) {
	c.nonNegative(prefix+".max_attempts", int64(r.MaxAttempts))
	c.nonNegative(prefix+".initial_interval", int64(r.InitialInterval))
	c.nonNegative(prefix+".max_interval", int64(r.MaxInterval))
	c.require(r.MaxInterval == 0 || r.MaxInterval >= r.InitialInterval, prefix+".max_interval",
		"must not be below initial_interval")
	c.require(r.Multiplier == 0 || r.Multiplier >= 1, prefix+".multiplier", "must be at least 1, got %g", r.Multiplier)
}

func (c *checker) parser(cfg ParserConfig) {
	action := strings.ToUpper(cfg.DefaultAction)
	c.require(action == "" || action == "VIP" || action == "SUPPRESS", "parser.default_action",
		"unknown action %q (valid: VIP, SUPPRESS)", cfg.DefaultAction)

	ex := cfg.Extractor
	if ex.URL != "" {
		u, err := url.Parse(ex.URL)
		c.require(err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "",
			"parser.extractor.url", "must be an absolute http(s) URL")
	}
	c.nonNegative("parser.extractor.timeout", int64(ex.Timeout))
	c.nonNegative("parser.extractor.cache_ttl_seconds", int64(ex.CacheTTLSeconds))
	c.retry("parser.extractor.retry", ex.Retry)
}

func (c *checker) audit(cfg AuditConfig, mongo MongoDBConfig) {
	switch strings.ToLower(cfg.Store) {
	case "", constants.AuditStorePostgres:
	case constants.AuditStoreMongoDB:
		c.require(mongo.URI != "", "audit.store", "the mongodb store requires database.mongodb.uri")
	default:
		c.require(false, "audit.store", "unknown store %q (valid: postgres, mongodb)", cfg.Store)
	}
	c.nonNegative("audit.queue_size", int64(cfg.QueueSize))
	c.nonNegative("audit.workers", int64(cfg.Workers))
}
