package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/adapters/authroles"
	httpx "github.com/target/dirkeeper/internal/http"
	"github.com/target/dirkeeper/internal/observability/metrics"
	"golang.org/x/sync/errgroup"
)

// App is a fully wired dirkeeper process.
type App struct {
	Server          *http.Server
	Janitor         func(ctx context.Context) error
	ShutdownTimeout time.Duration
	Logger          *slog.Logger

	closers []func() error
}

// Build connects infrastructure and wires every component from cfg. Call
// Close when Run returns.
func Build(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{ShutdownTimeout: cfg.HTTP.ShutdownTimeout, Logger: logger}

	recorder := metrics.New()
	roles := authroles.NewGroupRoleMapper(cfg.Auth.AdminGroups)

	codec, err := CreatePayloadCodec(cfg.PayloadKey, logger)
	if err != nil {
		return nil, err
	}

	connector, err := BuildDirectories(DirectoryDeps{
		LDAP:     cfg.LDAP,
		AD:       cfg.AD,
		Roles:    roles,
		Observer: recorder,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	for _, t := range connector.Configured() {
		if dir, resolveErr := connector.Resolve(t); resolveErr == nil {
			app.closers = append(app.closers, dir.Close)
		}
	}

	db, rdb, err := app.connectSessionInfra(ctx, cfg, logger)
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	backend, err := BuildSessionStore(SessionStoreDeps{
		Config: cfg.Sessions,
		DB:     db,
		Redis:  rdb,
		Logger: logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Janitor = backend.Janitor

	auth, err := BuildAuthService(ctx, AuthDeps{
		Auth:      cfg.Auth,
		Sessions:  cfg.Sessions,
		Store:     backend.Store,
		Connector: connector,
		Roles:     roles,
		Metrics:   recorder,
		Logger:    logger,
	})
	if err != nil {
		_ = app.Close()
		return nil, err
	}

	handler := BuildRouter(RouterDeps{
		Config:   cfg,
		Auth:     auth,
		Dirs:     connector,
		Sessions: backend,
		Body:     httpx.BodyDecoder{Codec: codec, Logger: logger},
		Metrics:  recorder,
		Logger:   logger,
	})
	app.Server = NewHTTPServer(HTTPServerConfig{HTTP: cfg.HTTP, Handler: handler, Logger: logger})
	return app, nil
}

// connectSessionInfra dials only the backing service the session store needs.
func (a *App) connectSessionInfra(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*sql.DB, redis.UniversalClient, error) {
	switch cfg.Sessions.Store {
	case config.SessionStorePostgres:
		db, err := ConnectDB(ctx, DatabaseConfig{DBConfig: cfg.Postgres, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				return nil, nil, err
			}
		}
		return db, nil, nil

	case config.SessionStoreRedis:
		client, err := ConnectRedis(ctx, DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return nil, client, nil

	default:
		return nil, nil, nil
	}
}

// Run serves HTTP and runs the session janitor until ctx is cancelled, SIGINT
// or SIGTERM arrives, or either task fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ServeHTTP(gctx, a.Server, a.ShutdownTimeout, a.Logger)
	})
	if a.Janitor != nil {
		g.Go(func() error {
			if err := a.Janitor(gctx); err != nil {
				return fmt.Errorf("session janitor: %w", err)
			}
			return nil
		})
	}

	err := g.Wait()
	if err != nil {
		a.Logger.Error("service error", "error", err)
	}
	return err
}

// Close releases infrastructure connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
