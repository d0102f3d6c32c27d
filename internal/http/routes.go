// Package httpx provides the HTTP API for directory administration and sign-in.
package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
)

// samlACSPath receives the identity provider's cross-site POST and is exempt from CSRF.
const samlACSPath = "/login/callback"

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth     AuthServiceInterface
	Sessions SessionValidator
	Dirs     DirectoryResolver
	// Optional: serves GET /saml/metadata when set.
	SAMLMetadata http.Handler
	// Optional: serves GET /metrics when set.
	Metrics  http.Handler
	Health   map[string]HealthCheck
	Observer ResponseObserver
	Body     BodyDecoder
	Cookies  Cookies

	RateLimit RateLimitConfig
	Logger    *slog.Logger
}

// NewRouter creates and configures the HTTP router with its middleware chain.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	body := services.Body
	if body.Logger == nil {
		body.Logger = logger
	}

	mux := http.NewServeMux()
	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Health, logger))
	if services.Metrics != nil {
		mux.Handle("GET /metrics", services.Metrics)
	}

	authHandlers := &AuthHandlers{Svc: services.Auth, Cookies: services.Cookies, Body: body, Logger: logger}
	registerAuthRoutes(mux, authHandlers, services.SAMLMetadata)

	// Any active session may read; changes need the admin role. Password
	// resets are also open to users acting on their own entry.
	protect := RequireSession(services.Sessions, services.Cookies)
	adminOnly := func(h http.Handler) http.Handler { return protect(RequireRole(domainauth.RoleAdmin)(h)) }
	registerUserRoutes(mux, NewUserHandlers(services.Dirs, body), protect, adminOnly)
	registerGroupRoutes(mux, "/api/groups", NewGroupHandlers(directory.GroupGeneral, services.Dirs, body), protect, adminOnly)
	registerGroupRoutes(mux, "/api/admin-groups", NewGroupHandlers(directory.GroupAdmin, services.Dirs, body), adminOnly, adminOnly)
	registerOrgUnitRoutes(mux, NewOrgUnitHandlers(services.Dirs, body), protect, adminOnly)

	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, ErrorParams{Code: http.StatusNotFound, ErrCode: "not_found", Err: errNotFound})
	}))

	var handler http.Handler = mux
	handler = CSRFProtection(CSRFConfig{Cookies: services.Cookies, ExemptPaths: []string{samlACSPath}})(handler)
	handler = RateLimit(services.RateLimit)(handler)
	handler = Logging(logger, services.Observer)(handler)
	return Recover(logger)(handler)
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, metadata http.Handler) {
	mux.HandleFunc("POST /session/auth/select", h.SelectAuthType)
	mux.HandleFunc("POST /session/authenticate", h.Authenticate)
	mux.HandleFunc("POST /session/logout", h.Logout)
	mux.HandleFunc("GET /session/status", h.Status)

	mux.HandleFunc("GET /saml/login", h.SSOLogin)
	mux.HandleFunc("GET /auth/login", h.SSOLogin)
	mux.HandleFunc("POST "+samlACSPath, h.SSOCallback)
	mux.HandleFunc("GET /auth/callback", h.SSOCallback)
	if metadata != nil {
		mux.Handle("GET /saml/metadata", metadata)
	}
}

func registerUserRoutes(mux *http.ServeMux, h *UserHandlers, read, write func(http.Handler) http.Handler) {
	mux.Handle("GET /api/users", read(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/users", write(http.HandlerFunc(h.Create)))
	mux.Handle("GET /api/users/{username}", read(http.HandlerFunc(h.Get)))
	mux.Handle("PATCH /api/users/{username}", write(http.HandlerFunc(h.Update)))
	mux.Handle("DELETE /api/users/{username}", write(http.HandlerFunc(h.Delete)))
	mux.Handle("PUT /api/users/{username}/password", read(http.HandlerFunc(h.ResetPassword)))
	mux.Handle("POST /api/users/{username}/status", write(http.HandlerFunc(h.SetStatus)))
	mux.Handle("GET /api/users/{username}/groups", read(http.HandlerFunc(h.Groups)))
}

func registerGroupRoutes(mux *http.ServeMux, prefix string, h *GroupHandlers, read, write func(http.Handler) http.Handler) {
	mux.Handle("GET "+prefix, read(http.HandlerFunc(h.List)))
	mux.Handle("POST "+prefix, write(http.HandlerFunc(h.Create)))
	mux.Handle("GET "+prefix+"/{name}", read(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE "+prefix+"/{name}", write(http.HandlerFunc(h.Delete)))
	mux.Handle("POST "+prefix+"/{name}/members", write(http.HandlerFunc(h.AddMembers)))
	mux.Handle("DELETE "+prefix+"/{name}/members", write(http.HandlerFunc(h.RemoveMembers)))
	if h.Class == directory.GroupGeneral {
		mux.Handle("POST "+prefix+"/{name}/lock", write(http.HandlerFunc(h.Lock)))
	}
}

func registerOrgUnitRoutes(mux *http.ServeMux, h *OrgUnitHandlers, read, write func(http.Handler) http.Handler) {
	mux.Handle("GET /api/organizations", read(http.HandlerFunc(h.List)))
	mux.Handle("POST /api/organizations", write(http.HandlerFunc(h.Create)))
	mux.Handle("DELETE /api/organizations/{name}", write(http.HandlerFunc(h.Delete)))
	mux.Handle("GET /api/domain", read(http.HandlerFunc(h.Domain)))
}
