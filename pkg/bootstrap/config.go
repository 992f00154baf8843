package bootstrap

import (
	"fmt"
	"os"

	"triage/internal/config"
	"triage/internal/logger"
	"triage/pkg/logging"
)

// ConfigFileEnv names the config file when --config is not given.
const ConfigFileEnv = "CONFIG_FILE"

// LoadConfig resolves the config path, loads and validates it, and builds the
// service logger. Failures before the logger exists go to stderr.
func LoadConfig(path, service string) (*config.Config, logger.Logger, error) {
	early := logging.NewEarlyLog(service)

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path == "" {
		early.Warn("no config file given, use --config or %s", ConfigFileEnv)
		return nil, nil, fmt.Errorf("config file is required")
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		early.Warn("failed to load config %s: %v", path, err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging, service)
	if err != nil {
		early.Warn("failed to init logger: %v", err)
		return nil, nil, err
	}
	return cfg, log, nil
}
