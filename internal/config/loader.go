package config

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from the process environment.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom reads configuration through getenv, applies defaults for unset
// values, and validates the result.
func LoadFrom(getenv func(string) string) (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem(), getenv); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// MustLoad loads configuration and panics on error. Use only in main.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// loadStruct walks v, filling tagged fields and recursing into sections.
func loadStruct(v reflect.Value, getenv func(string) string) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fv := v.Field(i)
		if !fv.CanSet() {
			continue
		}

		if field.Type.Kind() == reflect.Struct {
			if err := loadStruct(fv, getenv); err != nil {
				return err
			}
			continue
		}

		name := field.Tag.Get("env")
		if name == "" {
			continue
		}

		value := getenv(name)
		if value == "" {
			if alt := field.Tag.Get("envAlt"); alt != "" {
				value = getenv(alt)
			}
		}
		if value == "" {
			if field.Tag.Get("required") == "true" {
				return fmt.Errorf("required environment variable %s is not set", name)
			}
			value = field.Tag.Get("default")
		}
		if value == "" {
			continue
		}

		if err := setField(fv, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", name, value, err)
		}
	}
	return nil
}

func setField(field reflect.Value, value string) error {
	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(value)

	case field.Kind() == reflect.Int, field.Kind() == reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		var parts []string
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		field.Set(reflect.ValueOf(parts))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []string
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	switch c.Store.Driver {
	case StorePostgres:
		if c.Database.URL == "" {
			fail("DATABASE_URL is required when STORE_DRIVER=%s", StorePostgres)
		}
		if c.Database.MaxConns <= 0 {
			fail("DB_MAX_CONNS must be positive")
		}
		if c.Database.MinConns < 0 {
			fail("DB_MIN_CONNS must be non-negative")
		}
		if c.Database.MaxConns < c.Database.MinConns {
			fail("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
		}
	case StoreMemory:
	default:
		fail("STORE_DRIVER (%q) must be one of: %s, %s", c.Store.Driver, StorePostgres, StoreMemory)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		fail("SERVER_PORT (%d) must be 1-65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		fail("SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	if c.Import.MaxRows <= 0 {
		fail("IMPORT_MAX_ROWS must be positive")
	}
	if c.Import.MaxFileSize <= 0 {
		fail("IMPORT_MAX_FILE_SIZE must be positive")
	}
	if c.Import.MaxConcurrent <= 0 {
		fail("IMPORT_MAX_CONCURRENT must be positive")
	}
	if c.Import.MaxWaitTime <= 0 {
		fail("IMPORT_MAX_WAIT_TIME must be positive")
	}
	if c.Import.CommitTimeout <= 0 {
		fail("IMPORT_COMMIT_TIMEOUT must be positive")
	}

	if len(c.Auth.Secret) < 16 {
		fail("JWT_SECRET must be at least 16 characters")
	}

	if c.Rate.Enabled {
		if c.Rate.RedisURL == "" {
			fail("REDIS_URL is required when rate limiting is enabled")
		}
		if c.Rate.MutationLimit <= 0 || c.Rate.MutationWindow <= 0 {
			fail("RATE_LIMIT_MUTATIONS and RATE_LIMIT_MUTATION_WINDOW must be positive")
		}
		if c.Rate.RequestsPerMinute <= 0 {
			fail("RATE_LIMIT_REQUESTS_PER_MINUTE must be positive")
		}
	}

	for _, cidr := range c.Security.TrustedProxies {
		if _, _, err := net.ParseCIDR(cidr); err != nil {
			fail("TRUSTED_PROXIES entry %q is not a CIDR", cidr)
		}
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		fail("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		fail("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String renders the config for logging with secrets masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Addr: %q}, ", c.Server.Addr())
	fmt.Fprintf(&b, "Store: {Driver: %q}, ", c.Store.Driver)
	fmt.Fprintf(&b, "Database: {URL: %s, MaxConns: %d, MinConns: %d}, ",
		mask(c.Database.URL), c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Import: {MaxRows: %d, MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Import.MaxRows, c.Import.MaxFileSize, c.Import.MaxConcurrent)
	fmt.Fprintf(&b, "Auth: {Secret: %s, Issuer: %q}, ", mask(c.Auth.Secret), c.Auth.Issuer)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RedisURL: %s, Mutations: %d/%s}, ",
		c.Rate.Enabled, mask(c.Rate.RedisURL), c.Rate.MutationLimit, c.Rate.MutationWindow)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return "[UNSET]"
	}
	return "[MASKED]"
}
