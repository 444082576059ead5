package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every nested key when read from the environment,
// e.g. ORCH_SERVER_PORT for server.port.
const EnvPrefix = "ORCH"

// legacyEnv maps config keys to the unprefixed variable names used by the
// original deployment. They are consulted after the prefixed form.
var legacyEnv = map[string]string{
	"database.url":         "DATABASE_URL",
	"redis.url":            "REDIS_URL",
	"cors.allowed_origins": "CORS_ALLOW_ORIGINS",
}

// setDefaults registers every key with viper so AutomaticEnv can resolve it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8123)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "5m")
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.key_prefix", "orchestrator")

	v.SetDefault("worker.name", "worker")
	v.SetDefault("worker.concurrency", 1)
	v.SetDefault("worker.processing_delay", "3s")
	v.SetDefault("worker.dequeue_timeout", "2s")
	v.SetDefault("worker.heartbeat_interval", "5s")
	v.SetDefault("worker.heartbeat_ttl", "15s")
	v.SetDefault("worker.orphan_check_interval", "30s")
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("worker.backoff_base", "1s")
	v.SetDefault("worker.backoff_max", "10m")
	v.SetDefault("worker.jitter", true)

	v.SetDefault("results.expiry", "1h")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:4173", "http://localhost"})
}

// Load configuration from a .env file, an optional config.yaml and
// environment variables. Environment variables take precedence over values
// from config files. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), legacy); err != nil {
			return nil, fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.CORS.AllowedOrigins = normalizeOrigins(cfg.CORS.AllowedOrigins)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// normalizeOrigins splits comma-joined entries and drops blanks.
func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		for _, part := range strings.Split(o, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
