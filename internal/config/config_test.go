package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseYAML = `
server:
  port: 8080
  read_timeout_seconds: 10
  write_timeout_seconds: 10
database:
  postgres:
    host: localhost
    port: 5432
    user: triage
    password: triage
    dbname: triage
    sslmode: disable
  redis:
    host: localhost
    port: 6379
logging:
  level: info
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "SUPPRESS", cfg.Parser.DefaultAction)
	assert.True(t, cfg.Parser.AIFallbackEnabled)
	assert.Equal(t, 15*time.Second, cfg.Parser.Extractor.Timeout)
	assert.Equal(t, "postgres", cfg.Audit.Store)
	assert.Equal(t, 1024, cfg.Audit.QueueSize)
	assert.Equal(t, 2, cfg.Audit.Workers)
	assert.Equal(t, 300, cfg.Sweep.IntervalSeconds)
	assert.Equal(t, 8, cfg.Sweep.Workers)
	assert.Equal(t, "rule_events", cfg.Broker.Kafka.RuleEventsTopic)
	assert.Empty(t, cfg.Broker.Type)
}

func TestLoadConfig_ParserSection(t *testing.T) {
	body := baseYAML + `
parser:
  default_action: VIP
  ai_fallback_enabled: false
  extractor:
    url: https://extractor.internal/v1/rules
    timeout: 3s
    cache_ttl_seconds: 60
`
	cfg, err := LoadConfig(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "VIP", cfg.Parser.DefaultAction)
	assert.False(t, cfg.Parser.AIFallbackEnabled)
	assert.Equal(t, "https://extractor.internal/v1/rules", cfg.Parser.Extractor.URL)
	assert.Equal(t, 3*time.Second, cfg.Parser.Extractor.Timeout)
	assert.Equal(t, 60, cfg.Parser.Extractor.CacheTTLSeconds)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("PARSER_DEFAULT_ACTION", "VIP")
	t.Setenv("SWEEP_WORKERS", "3")

	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "VIP", cfg.Parser.DefaultAction)
	assert.Equal(t, 3, cfg.Sweep.Workers)
}

func TestLoadConfig_EnvOnlyKeys(t *testing.T) {
	t.Setenv("BROKER_TYPE", "kafka")
	t.Setenv("BROKER_KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")
	t.Setenv("DATABASE_POSTGRES_PASSWORD", "s3cret")

	cfg, err := LoadConfig(writeConfig(t, baseYAML))
	require.NoError(t, err)

	assert.Equal(t, "kafka", cfg.Broker.Type)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Broker.Kafka.Brokers)
	assert.Equal(t, "s3cret", cfg.Database.Postgres.Password)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout())
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: 8080, ReadTimeoutSeconds: 10, WriteTimeoutSeconds: 10},
			Parser: ParserConfig{DefaultAction: "SUPPRESS"},
			Audit:  AuditConfig{Store: "postgres", QueueSize: 10, Workers: 1},
			Sweep:  SweepConfig{IntervalSeconds: 60, Workers: 2},
		}
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{
			name:      "bad port",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantError: "server.port",
		},
		{
			name:      "bad default action",
			mutate:    func(c *Config) { c.Parser.DefaultAction = "BLOCK" },
			wantError: "parser.default_action",
		},
		{
			name:      "extractor url without scheme",
			mutate:    func(c *Config) { c.Parser.Extractor.URL = "extractor:8080" },
			wantError: "parser.extractor.url",
		},
		{
			name:      "mongodb audit store without uri",
			mutate:    func(c *Config) { c.Audit.Store = "mongodb" },
			wantError: "audit.store",
		},
		{
			name:      "unknown audit store",
			mutate:    func(c *Config) { c.Audit.Store = "s3" },
			wantError: "audit.store",
		},
		{
			name:      "negative sweep workers",
			mutate:    func(c *Config) { c.Sweep.Workers = -1 },
			wantError: "sweep.workers",
		},
		{
			name:      "kafka without brokers",
			mutate:    func(c *Config) { c.Broker.Type = "kafka" },
			wantError: "broker.kafka.brokers",
		},
		{
			name:      "unsupported broker",
			mutate:    func(c *Config) { c.Broker.Type = "rabbitmq" },
			wantError: "broker.type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantError == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantError)
		})
	}
}

func TestValidateStatic_ReportsEveryFailure(t *testing.T) {
	err := ValidateStatic(&Config{
		Server: ServerConfig{Port: 70000},
		Sweep:  SweepConfig{Workers: -1},
	})
	require.Error(t, err)

	var fields []string
	for _, e := range []string{"server.port", "server.read_timeout_seconds", "server.write_timeout_seconds", "sweep.workers"} {
		if assert.Contains(t, err.Error(), e) {
			fields = append(fields, e)
		}
	}
	assert.Len(t, fields, 4)
}
