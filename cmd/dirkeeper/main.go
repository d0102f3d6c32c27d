package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger(slog.LevelInfo)
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	if level := cfg.SlogLevel(); level != slog.LevelInfo {
		logger = bootstrap.InitLogger(level)
	}

	logStartupInfo(ctx, logger, &cfg)

	app, err := bootstrap.Build(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close infrastructure failed", "error", cerr)
		}
	}()

	return app.Run(ctx)
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	backends := make([]string, 0, 2)
	if cfg.LDAP.Configured() {
		backends = append(backends, "ldap")
	}
	if cfg.AD.Configured() {
		backends = append(backends, "ad")
	}
	logger.InfoContext(ctx, "starting dirkeeper",
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"session_store", cfg.Sessions.Store,
		"directories", backends,
		"dev", cfg.IsDev)
}
