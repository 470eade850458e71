package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/utafrali/EcommerceGo/catalog/internal/storage"
	"github.com/utafrali/EcommerceGo/catalog/internal/storage/s3"
	pkgconfig "github.com/utafrali/EcommerceGo/catalog/pkg/config"
	"github.com/utafrali/EcommerceGo/catalog/pkg/database"
	pkgkafka "github.com/utafrali/EcommerceGo/catalog/pkg/kafka"
	"github.com/utafrali/EcommerceGo/catalog/pkg/tracing"
)

// Backend names.
const (
	BackendMemory = "memory"
	BackendS3     = "s3"
	BackendRedis  = "redis"
	BackendNone   = "none"
)

// Config holds all configuration for the catalog service.
type Config struct {
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort        int           `env:"CATALOG_HTTP_PORT" envDefault:"8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// PostgreSQL
	PostgresHost       string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort       int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser       string        `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass       string        `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB         string        `env:"CATALOG_DB_NAME" envDefault:"catalog"`
	PostgresSSL        string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns   int32         `env:"POSTGRES_MAX_CONNS" envDefault:"20"`
	MigrateOnStart     bool          `env:"MIGRATE_ON_START" envDefault:"true"`
	SlowQueryThreshold time.Duration `env:"SLOW_QUERY_THRESHOLD" envDefault:"200ms"`

	// Idempotency-Key storage: memory, redis or none.
	IdempotencyBackend string        `env:"IDEMPOTENCY_BACKEND" envDefault:"memory"`
	IdempotencyTTL     time.Duration `env:"IDEMPOTENCY_TTL" envDefault:"24h"`
	RedisHost          string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort          int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPassword      string        `env:"REDIS_PASSWORD"`
	RedisDB            int           `env:"REDIS_DB" envDefault:"0"`

	// Kafka
	EventsEnabled bool `env:"EVENTS_ENABLED" envDefault:"true"`
	Kafka         pkgkafka.ProducerConfig

	// Blob storage: memory or s3.
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"memory"`
	MediaBaseURL   string `env:"MEDIA_BASE_URL"`
	S3             s3.Config
	Breaker        storage.BreakerConfig

	// Request limits
	MaxRequestBytes int64 `env:"MAX_REQUEST_BYTES" envDefault:"31457280"`
	MaxFileBytes    int64 `env:"MAX_FILE_BYTES" envDefault:"5242880"`
	MaxUploadFiles  int   `env:"MAX_UPLOAD_FILES" envDefault:"10"`

	Tracing tracing.Config
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load catalog config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errs = append(errs, fmt.Errorf("CATALOG_HTTP_PORT %d is out of range", c.HTTPPort))
	}
	if c.PostgresHost == "" {
		errs = append(errs, errors.New("POSTGRES_HOST is required"))
	}
	switch c.StorageBackend {
	case BackendMemory:
	case BackendS3:
		if c.S3.Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required when STORAGE_BACKEND=s3"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORAGE_BACKEND %q must be memory or s3", c.StorageBackend))
	}
	switch c.IdempotencyBackend {
	case BackendMemory, BackendNone:
	case BackendRedis:
		if c.RedisHost == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when IDEMPOTENCY_BACKEND=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("IDEMPOTENCY_BACKEND %q must be memory, redis or none", c.IdempotencyBackend))
	}
	if c.EventsEnabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when EVENTS_ENABLED=true"))
	}
	if c.MaxFileBytes <= 0 || c.MaxRequestBytes < c.MaxFileBytes {
		errs = append(errs, errors.New("MAX_FILE_BYTES must be positive and not exceed MAX_REQUEST_BYTES"))
	}
	if c.MaxUploadFiles < 1 {
		errs = append(errs, errors.New("MAX_UPLOAD_FILES must be at least 1"))
	}
	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATE %v must be within [0, 1]", c.Tracing.SampleRate))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid catalog config: %w", errors.Join(errs...))
	}
	return nil
}

// Postgres returns the pool settings.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host, pg.Port = c.PostgresHost, c.PostgresPort
	pg.User, pg.Password = c.PostgresUser, c.PostgresPass
	pg.DBName, pg.SSLMode = c.PostgresDB, c.PostgresSSL
	pg.MaxConns = c.PostgresMaxConns
	return pg
}

// Redis returns the Redis connection settings.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{Host: c.RedisHost, Port: c.RedisPort, Password: c.RedisPassword, DB: c.RedisDB}
}

// BaseURL is the public root of blobs kept by the memory backend.
func (c *Config) BaseURL() string {
	if c.MediaBaseURL != "" {
		return c.MediaBaseURL
	}
	return fmt.Sprintf("http://localhost:%d/media", c.HTTPPort)
}
