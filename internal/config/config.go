package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Redis    RedisConfig    `mapstructure:"redis"    validate:"required"`
	Worker   WorkerConfig   `mapstructure:"worker"   validate:"required"`
	Results  ResultsConfig  `mapstructure:"results"  validate:"required"`
	CORS     CORSConfig     `mapstructure:"cors"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"               validate:"required,url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"    validate:"gt=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"gt=0"`
	// AutoMigrate applies pending migrations when the server starts.
	AutoMigrate bool `mapstructure:"auto_migrate"`
}

// RedisConfig contains the broker connection settings.
type RedisConfig struct {
	URL       string `mapstructure:"url"        validate:"required,url"`
	KeyPrefix string `mapstructure:"key_prefix" validate:"required"`
}

// WorkerConfig contains worker pool and retry settings.
type WorkerConfig struct {
	// Name is combined with the hostname into the worker identity (name@host).
	Name        string `mapstructure:"name"        validate:"required"`
	Concurrency int    `mapstructure:"concurrency" validate:"gt=0"`

	// ProcessingDelay is the simulated latency of the processing stub.
	ProcessingDelay time.Duration `mapstructure:"processing_delay" validate:"gte=0"`

	DequeueTimeout      time.Duration `mapstructure:"dequeue_timeout"       validate:"gt=0"`
	HeartbeatInterval   time.Duration `mapstructure:"heartbeat_interval"    validate:"gt=0"`
	HeartbeatTTL        time.Duration `mapstructure:"heartbeat_ttl"         validate:"gtfield=HeartbeatInterval"`
	OrphanCheckInterval time.Duration `mapstructure:"orphan_check_interval" validate:"gt=0"`

	MaxRetries  int           `mapstructure:"max_retries"  validate:"gte=0"`
	BackoffBase time.Duration `mapstructure:"backoff_base" validate:"gt=0"`
	BackoffMax  time.Duration `mapstructure:"backoff_max"  validate:"gtefield=BackoffBase"`
	Jitter      bool          `mapstructure:"jitter"`
}

// ResultsConfig controls how long live job state is kept on the broker.
type ResultsConfig struct {
	Expiry time.Duration `mapstructure:"expiry" validate:"gt=0"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
