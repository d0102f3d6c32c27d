// Package config defines environment-driven configuration for dirkeeper.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: SSO, claims and role configuration
//   - database.go: session store, database and redis configuration
//   - directory.go: LDAP and Active Directory connections
//   - http.go: HTTP server configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or APP_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// PayloadKey enables the encrypted request envelope for credential-bearing
	// bodies. A 64-character hex string is used as-is; anything else is hashed.
	PayloadKey string `env:"PAYLOAD_ENCRYPTION_KEY"`

	// Authentication configuration
	Auth AuthConfig

	// Session storage
	Sessions SessionConfig `envPrefix:"SESSION_"`
	Postgres DBConfig      `envPrefix:"DB_"`
	Redis    RedisConfig   `envPrefix:"REDIS_"`

	// Directory backends
	LDAP DirectoryConfig `envPrefix:"LDAP_"`
	AD   DirectoryConfig `envPrefix:"AD_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// MetricsEnabled exposes Prometheus metrics on /metrics.
	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.PayloadKey = strings.TrimSpace(c.PayloadKey)
	c.Auth.Sanitize()
	c.Sessions.Sanitize()
	c.LDAP.Sanitize()
	c.AD.Sanitize()
	c.HTTP.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and APP_ENV environment variables.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// Validate reports configuration that cannot start a server. Call after Sanitize.
func (c *AppConfig) Validate() error {
	var errs []error
	if !c.LDAP.Configured() && !c.AD.Configured() {
		errs = append(errs, errors.New("at least one directory must be configured (LDAP_URL or AD_URL)"))
	}
	for name, d := range map[string]DirectoryConfig{"LDAP": c.LDAP, "AD": c.AD} {
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.Mode == AuthModeMock && !c.IsDev {
		errs = append(errs, errors.New("AUTH_MODE=mock requires DEV=true"))
	}
	return errors.Join(errs...)
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to info.
func (c *AppConfig) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
