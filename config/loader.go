package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads configuration as raw strings from an optional YAML file (CONFIG_FILE)
// overlaid with environment variables. Components handle validation and defaults
// during initialization.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	applyEnv(cfg)
	return cfg, nil
}

// LoadFile parses a YAML configuration file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	return &cfg, nil
}

// applyEnv overrides fields with every non-empty environment variable
func applyEnv(cfg *Config) {
	env := []struct {
		key   string
		field *string
	}{
		{"SERVER_PORT", &cfg.Server.Port},
		{"SERVER_ENV", &cfg.Server.Environment},
		{"SERVER_READ_TIMEOUT", &cfg.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &cfg.Server.WriteTimeout},
		{"SERVER_ALLOW_ORIGINS", &cfg.Server.AllowOrigins},
		{"SERVER_RATE_LIMIT", &cfg.Server.RateLimit},
		{"SERVER_RATE_BURST", &cfg.Server.RateBurst},

		{"DB_HOST", &cfg.Database.Host},
		{"DB_PORT", &cfg.Database.Port},
		{"DB_USER", &cfg.Database.User},
		{"DB_PASSWORD", &cfg.Database.Password},
		{"DB_NAME", &cfg.Database.DBName},
		{"DB_SSLMODE", &cfg.Database.SSLMode},
		{"DB_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns},
		{"DB_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns},
		{"DB_CONN_MAX_LIFETIME", &cfg.Database.ConnMaxLifetime},

		{"JWT_SECRET", &cfg.JWT.Secret},
		{"JWT_EXPIRATION", &cfg.JWT.Expiration},

		{"ADMIN_USERNAME", &cfg.Admin.Username},
		{"ADMIN_PASSWORD_HASH", &cfg.Admin.PasswordHash},

		{"WORKER_REBUILD_INTERVAL", &cfg.Worker.RebuildInterval},
		{"WORKER_REBUILD_SCHEDULE", &cfg.Worker.RebuildSchedule},

		{"LOG_LEVEL", &cfg.Logging.Level},
		{"LOG_FORMAT", &cfg.Logging.Format},
		{"SERVICE_NAME", &cfg.Logging.ServiceName},
		{"LOG_DIR", &cfg.Logging.Dir},

		{"ENGINE_NEIGHBORS", &cfg.Engine.Neighbors},
		{"ENGINE_MIN_CO_RATERS", &cfg.Engine.MinCoRaters},
		{"ENGINE_SHRINKAGE", &cfg.Engine.Shrinkage},
		{"ENGINE_CENTERING", &cfg.Engine.Centering},
		{"ENGINE_WAIT_FOR_INDEX", &cfg.Engine.WaitForIndex},
		{"ENGINE_QUERY_TIMEOUT", &cfg.Engine.QueryTimeout},
		{"ENGINE_MIN_TITLE_SCORE", &cfg.Engine.MinTitleScore},
		{"ENGINE_DEFAULT_N", &cfg.Engine.DefaultN},

		{"CORPUS_SOURCE", &cfg.Corpus.Source},
		{"CORPUS_DATA_DIR", &cfg.Corpus.DataDir},

		{"REDIS_ADDR", &cfg.Cache.Addr},
		{"REDIS_PASSWORD", &cfg.Cache.Password},
		{"REDIS_DB", &cfg.Cache.DB},
		{"CACHE_TTL", &cfg.Cache.TTL},
		{"CACHE_FAILURE_THRESHOLD", &cfg.Cache.FailureThreshold},
		{"CACHE_OPEN_TIMEOUT", &cfg.Cache.OpenTimeout},
	}

	for _, e := range env {
		if v := os.Getenv(e.key); v != "" {
			*e.field = v
		}
	}
}
