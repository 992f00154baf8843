package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"triage/internal/constants"
)

var defaults = map[string]interface{}{
	"server.port":                            8080,
	"server.read_timeout_seconds":            15,
	"server.write_timeout_seconds":           15,
	"database.postgres.port":                 5432,
	"database.postgres.sslmode":              "disable",
	"database.redis.port":                    6379,
	"database.mongodb.database":              constants.DefaultMongoDBName,
	"logging.level":                          "info",
	"logging.format":                         "json",
	"parser.default_action":                  constants.DefaultParserDefaultAction,
	"parser.ai_fallback_enabled":             true,
	"parser.extractor.timeout":               constants.DefaultExtractorTimeout,
	"audit.store":                            constants.DefaultAuditStore,
	"audit.queue_size":                       constants.DefaultAuditQueueSize,
	"audit.workers":                          constants.DefaultAuditWorkers,
	"audit.write_timeout":                    constants.DefaultAuditWriteTimeout,
	"sweep.interval_seconds":                 int(constants.DefaultSweepInterval.Seconds()),
	"sweep.workers":                          constants.DefaultSweepWorkers,
	"sweep.lock_ttl_seconds":                 int(constants.DefaultSweepLockTTL.Seconds()),
	"sweep.delete_timeout":                   constants.DefaultSweepDeleteTimeout,
	"broker.kafka.rule_events_topic":         constants.DefaultRuleEventsTopic,
	"broker.kafka.retry.multiplier":          2.0,
	"management.rate_limit.rps":              10.0,
	"management.rate_limit.burst":            20,
	"management.rate_limit.max_age":          600,
	"management.rate_limit.cleanup_interval": 300,
	"circuit_breaker.enabled":                true,
	"tracing.sampler.type":                   "parentbased_always_on",
}

// LoadConfig reads configFile, applies environment overrides and validates
// the result.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range keys(reflect.TypeOf(Config{}), "") {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	normalize(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// keys lists the dotted path of every leaf field, so keys absent from the
// file can still come from the environment.
func keys(t reflect.Type, prefix string) []string {
	var out []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("mapstructure")
		if name == "" {
			name = strings.ToLower(f.Name)
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		if f.Type.Kind() == reflect.Struct && f.Type.PkgPath() == t.PkgPath() {
			out = append(out, keys(f.Type, name)...)
			continue
		}
		out = append(out, name)
	}
	return out
}

func normalize(cfg *Config) {
	brokers := cfg.Broker.Kafka.Brokers[:0]
	for _, b := range cfg.Broker.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	cfg.Broker.Kafka.Brokers = brokers
	cfg.Audit.Store = strings.ToLower(cfg.Audit.Store)
	cfg.Parser.DefaultAction = strings.ToUpper(cfg.Parser.DefaultAction)
}
