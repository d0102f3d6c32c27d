package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/httprate"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
)

// SessionValidator is the single gate in front of every directory route.
type SessionValidator interface {
	Validate(ctx context.Context, id string) (domainauth.Session, error)
}

// ResponseObserver receives one call per completed response.
type ResponseObserver interface {
	ObserveHTTP(method string, status int)
}

// Logging returns a middleware that logs HTTP requests and responses.
// When obs is non-nil every response is also counted.
func Logging(logger *slog.Logger, obs ResponseObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "http",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
			if obs != nil {
				obs.ObserveHTTP(r.Method, ww.status)
			}
		})
	}
}

type respWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *respWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Recover returns a middleware that recovers from panics and logs them.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.ErrorContext(r.Context(), "panic",
						slog.Any("error", err),
						slog.String("path", r.URL.Path),
						slog.String("method", r.Method),
						slog.String("stack", string(debug.Stack())))
					WriteError(w, ErrorParams{
						Code:    http.StatusInternalServerError,
						ErrCode: "internal",
						Err:     errors.New(genericErrorMessage),
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSession validates the session cookie before anything else runs. A
// missing, unknown, pending or expired session short-circuits with 401 and the
// session cookies are cleared.
func RequireSession(v SessionValidator, cookies Cookies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := sessionID(r)
			if id == "" {
				writeServiceError(w, r, nil, apperrors.Unauthorized("authentication required"))
				return
			}
			sess, err := v.Validate(r.Context(), id)
			if err != nil {
				if apperrors.IsUnauthorized(err) {
					cookies.ClearSession(w, r)
				}
				writeServiceError(w, r, nil, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(SetSessionInContext(r.Context(), sess)))
		})
	}
}

// RequireRole rejects sessions without the given role. It must run after RequireSession.
func RequireRole(role domainauth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := SessionFromContext(r.Context())
			if !ok {
				writeServiceError(w, r, nil, apperrors.Unauthorized("authentication required"))
				return
			}
			if !hasRequiredRole(sess.Role, role) {
				writeServiceError(w, r, nil, apperrors.Forbidden("insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// hasRequiredRole checks if the user's role meets the required role.
// Role hierarchy: User < Admin.
func hasRequiredRole(userRole, requiredRole domainauth.Role) bool {
	roleHierarchy := map[domainauth.Role]int{
		domainauth.RoleUser:  1,
		domainauth.RoleAdmin: 2,
	}
	userLevel, userExists := roleHierarchy[userRole]
	requiredLevel, requiredExists := roleHierarchy[requiredRole]
	if !userExists || !requiredExists {
		return false
	}
	return userLevel >= requiredLevel
}

// RateLimitConfig bounds requests per client within a window. Requests <= 0 disables limiting.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimit returns a middleware answering 429 once a client exceeds the limit.
// Clients are keyed by remote IP; cookies are client-chosen and never select the bucket.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, ErrorParams{
				Code:    http.StatusTooManyRequests,
				ErrCode: "rate_limited",
				Err:     errors.New("too many requests, please slow down"),
			})
		}),
	)
}
