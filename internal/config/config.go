// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Mail modes.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

var (
	// ErrDatabaseURLRequired is returned when the postgres store has no URL.
	ErrDatabaseURLRequired = errors.New("DATABASE_URL is required when STORE_BACKEND=postgres")
	// ErrInvalidStoreBackend is returned for an unknown STORE_BACKEND.
	ErrInvalidStoreBackend = errors.New("STORE_BACKEND must be postgres or memory")
	// ErrInvalidMailMode is returned for an unknown MAIL_MODE.
	ErrInvalidMailMode = errors.New("MAIL_MODE must be log or smtp")
	// ErrSMTPAddrRequired is returned when smtp mail has no server address.
	ErrSMTPAddrRequired = errors.New("SMTP_ADDR is required when MAIL_MODE=smtp")
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Entity store
	StoreBackend string `env:"STORE_BACKEND" envDefault:"postgres"`
	DatabaseURL  string `env:"DATABASE_URL"`

	// Cache and task stream (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`

	// Rate limiting per API key, or per client address for anonymous callers.
	// Zero disables it.
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"600"`
	RateLimitBurst     int `env:"RATE_LIMIT_BURST" envDefault:"60"`

	// Registration ledger
	RegistrationMaxAttempts int `env:"REGISTRATION_MAX_ATTEMPTS" envDefault:"5"`

	// Cached facts
	FeaturedSpeakerThreshold    int           `env:"FEATURED_SPEAKER_THRESHOLD" envDefault:"2"`
	AnnouncementRefreshInterval time.Duration `env:"ANNOUNCEMENT_REFRESH_INTERVAL" envDefault:"1h"`

	// Deferred tasks
	TaskWorkerEnabled  bool          `env:"TASK_WORKER_ENABLED" envDefault:"true"`
	TaskBatchSize      int           `env:"TASK_BATCH_SIZE" envDefault:"50"`
	TaskBlockTimeout   time.Duration `env:"TASK_BLOCK_TIMEOUT" envDefault:"5s"`
	TaskMaxRetries     int           `env:"TASK_MAX_RETRIES" envDefault:"3"`
	TaskPublishTimeout time.Duration `env:"TASK_PUBLISH_TIMEOUT" envDefault:"500ms"`

	// Outbound mail
	MailMode     string `env:"MAIL_MODE" envDefault:"log"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"noreply@confcentral.local"`
	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// UsesMemoryStore reports whether entities live in process memory.
func (c *Config) UsesMemoryStore() bool {
	return c.StoreBackend == StoreMemory
}

// Validate checks settings that depend on each other.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	case StoreMemory:
	default:
		return ErrInvalidStoreBackend
	}

	switch c.MailMode {
	case MailLog:
	case MailSMTP:
		if c.SMTPAddr == "" {
			return ErrSMTPAddrRequired
		}
	default:
		return ErrInvalidMailMode
	}
	return nil
}

// Load parses environment variables and returns a Config.
// Returns an error if required variables are missing.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
