// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Application tokens (app and session credentials)
	JWTSecret         string        `env:"JWT_SECRET,required,notEmpty"`
	JWTIssuer         string        `env:"JWT_ISSUER" envDefault:"teamkeys"`
	JWTTTL            time.Duration `env:"JWT_TTL" envDefault:"24h"`
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"accessToken"`

	// Minimum latency of failed authentication, to blunt timing probes
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"200ms"`

	// Pagination
	PaginationDefaultLimit int `env:"PAGINATION_DEFAULT_LIMIT" envDefault:"25"`
	PaginationMaxLimit     int `env:"PAGINATION_MAX_LIMIT" envDefault:"100"`

	// Rate limiting
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM     int  `env:"RATE_LIMIT_API_RPM" envDefault:"60"`
	RateLimitAPIBurst   int  `env:"RATE_LIMIT_API_BURST" envDefault:"10"`
	RateLimitIPEnabled  bool `env:"RATE_LIMIT_IP_ENABLED" envDefault:"true"`
	RateLimitIPRPS      int  `env:"RATE_LIMIT_IP_RPS" envDefault:"20"`
	RateLimitIPBurst    int  `env:"RATE_LIMIT_IP_BURST" envDefault:"40"`

	// Audit events are always written to Postgres; this toggles the Redis stream copy.
	AuditStreamEnabled bool `env:"AUDIT_STREAM_ENABLED" envDefault:"true"`

	// Prometheus exposition on /metrics
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// KeyEnv returns the environment tag embedded in newly minted API keys.
func (c *Config) KeyEnv() string {
	if c.IsProduction() {
		return "live"
	}
	return "test"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints that struct tags cannot express.
func (c *Config) Validate() error {
	if c.PaginationDefaultLimit <= 0 {
		return errors.New("PAGINATION_DEFAULT_LIMIT must be positive")
	}
	if c.PaginationMaxLimit < c.PaginationDefaultLimit {
		return errors.New("PAGINATION_MAX_LIMIT must not be below PAGINATION_DEFAULT_LIMIT")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes in production")
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
