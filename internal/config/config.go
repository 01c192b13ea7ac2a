// Package config loads service configuration from environment variables,
// applies defaults, and validates the result at startup.
package config

import (
	"net"
	"strconv"
	"time"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Import   ImportConfig
	Auth     AuthConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `env:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds each request through chi's Timeout middleware.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// StoreConfig selects the record store backend.
type StoreConfig struct {
	// Driver is "postgres" or "memory" (default: postgres)
	Driver string `env:"STORE_DRIVER" default:"postgres"`
}

// DatabaseConfig holds PostgreSQL pool settings. URL is required when
// the postgres driver is selected.
type DatabaseConfig struct {
	URL             string        `env:"DATABASE_URL" envAlt:"DB_URL"`
	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds bulk import settings.
type ImportConfig struct {
	// MaxRows is the most data rows a single file may contain (default: 200)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"200"`

	// MaxFileSize is the upload size limit in bytes (default: 5MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"5242880"`

	// MaxConcurrent is how many imports may parse or commit at once (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an import waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// CommitTimeout bounds the batch insert once it has started (default: 30s)
	CommitTimeout time.Duration `env:"IMPORT_COMMIT_TIMEOUT" default:"30s"`
}

// AuthConfig holds bearer token verification settings.
type AuthConfig struct {
	// Secret is the HMAC key used to verify JWTs (required)
	Secret string `env:"JWT_SECRET" required:"true"`

	// Issuer, when set, must match the token's iss claim.
	Issuer string `env:"JWT_ISSUER"`
}

// RateLimitConfig holds Redis-backed rate limiting settings.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RedisURL locates the counter store, e.g. redis://localhost:6379/0
	RedisURL string `env:"REDIS_URL"`

	// MutationLimit is the number of writes allowed per actor per MutationWindow.
	MutationLimit  int           `env:"RATE_LIMIT_MUTATIONS" default:"5"`
	MutationWindow time.Duration `env:"RATE_LIMIT_MUTATION_WINDOW" default:"10s"`

	// RequestsPerMinute applies to every API request, keyed by client IP.
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies lists CIDRs whose X-Forwarded-For headers are honored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL" default:"info"`
	Format string `env:"LOG_FORMAT" default:"text"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `env:"METRICS_ENABLED" default:"true"`
	Namespace string `env:"METRICS_NAMESPACE" default:"buyerleads"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
