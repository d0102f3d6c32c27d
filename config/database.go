package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreKind selects the session store implementation.
type SessionStoreKind string

const (
	// SessionStoreMemory keeps sessions in process memory.
	SessionStoreMemory SessionStoreKind = "memory"
	// SessionStoreRedis keeps sessions in Redis with a per-key TTL.
	SessionStoreRedis SessionStoreKind = "redis"
	// SessionStorePostgres keeps sessions in the sessions table.
	SessionStorePostgres SessionStoreKind = "postgres"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis", "postgres":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: memory, redis, postgres)", v)
	}
}

// SessionConfig controls session lifetime and storage.
type SessionConfig struct {
	Store SessionStoreKind `env:"STORE" envDefault:"memory"`
	// TTL is the lifetime of an authenticated session; a shorter SAML validity window wins.
	TTL time.Duration `env:"TTL" envDefault:"8h"`
	// PendingTTL bounds the gap between selecting an auth type and signing in.
	PendingTTL time.Duration `env:"PENDING_TTL" envDefault:"10m"`
	// SweepInterval is how often expired sessions are purged (memory and postgres).
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"5m"`
	// RedisPrefix namespaces session keys.
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"dirkeeper:session:"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.Store == "" {
		s.Store = SessionStoreMemory
	}
	if s.TTL <= 0 {
		s.TTL = 8 * time.Hour
	}
	if s.PendingTTL <= 0 {
		s.PendingTTL = 10 * time.Minute
	}
	if s.PendingTTL > s.TTL {
		s.PendingTTL = s.TTL
	}
	if s.SweepInterval < time.Second {
		s.SweepInterval = time.Minute
	}
}

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"dirkeeper"`
	Password string `env:"PASSWORD"                envDefault:"dirkeeper"`
	Name     string `env:"NAME"                    envDefault:"dirkeeper"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}
