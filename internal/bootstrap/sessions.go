package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/adapters/memory"
	"github.com/target/dirkeeper/internal/adapters/postgres"
	redisadapter "github.com/target/dirkeeper/internal/adapters/redis"
	httpx "github.com/target/dirkeeper/internal/http"
	"github.com/target/dirkeeper/internal/ports"
)

// SessionStoreDeps contains the connections a session store may need.
// Only the one matching Config.Store is used.
type SessionStoreDeps struct {
	Config config.SessionConfig
	DB     *sql.DB
	Redis  redis.UniversalClient
	Logger *slog.Logger
}

// SessionBackend bundles a session store with its readiness probe and,
// for stores that do not expire records themselves, a sweeper.
type SessionBackend struct {
	Store  ports.SessionStore
	Health httpx.HealthCheck
	// Janitor runs until ctx is done. Nil when the store expires records natively.
	Janitor func(ctx context.Context) error
}

// BuildSessionStore selects the session store named by configuration.
func BuildSessionStore(deps SessionStoreDeps) (SessionBackend, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := deps.Config.SweepInterval

	switch deps.Config.Store {
	case config.SessionStoreMemory:
		store := memory.NewSessionStore()
		logger.Warn("using in-memory session store; sessions do not survive restarts or span replicas")
		return SessionBackend{
			Store:  store,
			Health: func(context.Context) error { return nil },
			Janitor: func(ctx context.Context) error {
				return store.Janitor(ctx, interval, logger)
			},
		}, nil

	case config.SessionStoreRedis:
		if deps.Redis == nil {
			return SessionBackend{}, fmt.Errorf("session store %q requires a redis client", deps.Config.Store)
		}
		client := deps.Redis
		return SessionBackend{
			Store:  redisadapter.NewSessionStoreWithPrefix(client, deps.Config.RedisPrefix),
			Health: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		}, nil

	case config.SessionStorePostgres:
		if deps.DB == nil {
			return SessionBackend{}, fmt.Errorf("session store %q requires a database", deps.Config.Store)
		}
		store := postgres.NewSessionStore(deps.DB)
		db := deps.DB
		return SessionBackend{
			Store:  store,
			Health: db.PingContext,
			Janitor: func(ctx context.Context) error {
				return sweepLoop(ctx, interval, logger, store.Sweep)
			},
		}, nil

	default:
		return SessionBackend{}, fmt.Errorf("unknown session store %q", deps.Config.Store)
	}
}

// sweepLoop calls sweep every interval until ctx is done. Sweep failures are
// logged and retried on the next tick.
func sweepLoop(ctx context.Context, interval time.Duration, logger *slog.Logger, sweep func(context.Context) (int64, error)) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := sweep(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.WarnContext(ctx, "session sweep failed", "error", err)
				continue
			}
			if n > 0 {
				logger.DebugContext(ctx, "swept expired sessions", "count", n)
			}
		}
	}
}
