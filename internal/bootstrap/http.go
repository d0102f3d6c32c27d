package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/target/dirkeeper/config"
	httpx "github.com/target/dirkeeper/internal/http"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	HTTP    config.HTTPConfig
	Handler http.Handler
	Logger  *slog.Logger
}

// NewHTTPServer creates the server without starting it.
func NewHTTPServer(cfg HTTPServerConfig) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	addr := cfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           cfg.Handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if cfg.Logger != nil {
		server.ErrorLog = slog.NewLogLogger(cfg.Logger.With("component", "http").Handler(), slog.LevelWarn)
	}
	return server
}

// ServeHTTP runs server until ctx is done, then shuts it down within timeout.
// It returns nil on a clean shutdown.
func ServeHTTP(ctx context.Context, server *http.Server, timeout time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", server.Addr, err)
	}
	return serveListener(ctx, server, ln, timeout, logger)
}

func serveListener(ctx context.Context, server *http.Server, ln net.Listener, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", ln.Addr().String())
		errCh <- server.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP server")
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	// ctx is already cancelled; shutdown gets its own deadline.
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("HTTP server stopped")
	return nil
}

// RouterDeps contains the built components the router is assembled from.
type RouterDeps struct {
	Config   *config.AppConfig
	Auth     AuthComponents
	Dirs     httpx.DirectoryResolver
	Sessions SessionBackend
	Body     httpx.BodyDecoder
	Metrics  MetricsRecorder
	Logger   *slog.Logger
}

// MetricsRecorder is the subset of the Prometheus recorder the router uses.
type MetricsRecorder interface {
	httpx.ResponseObserver
	Handler() http.Handler
}

// BuildRouter assembles the HTTP handler with its middleware chain.
func BuildRouter(deps RouterDeps) http.Handler {
	cfg := deps.Config
	if cfg == nil {
		cfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Auth:     deps.Auth.Auth,
		Sessions: deps.Auth.Sessions,
		Dirs:     deps.Dirs,
		Body:     deps.Body,
		Cookies:  httpx.Cookies{Domain: cfg.HTTP.CookieDomain},
		RateLimit: httpx.RateLimitConfig{
			Requests: cfg.HTTP.RateLimitRequests,
			Window:   cfg.HTTP.RateLimitWindow,
		},
		SAMLMetadata: deps.Auth.SAMLMetadata,
		Logger:       deps.Logger,
	}
	if deps.Sessions.Health != nil {
		services.Health = map[string]httpx.HealthCheck{"sessions": deps.Sessions.Health}
	}
	if deps.Metrics != nil {
		services.Observer = deps.Metrics
		if cfg.MetricsEnabled {
			services.Metrics = deps.Metrics.Handler()
		}
	}
	return httpx.NewRouter(services)
}
