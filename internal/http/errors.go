package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/target/dirkeeper/internal/errors"
)

const genericErrorMessage = "internal server error"

var errNotFound = errors.New("resource not found")

// statusFor maps an application error code to an HTTP status. Anything that is
// not an AppError is an unmapped failure.
func statusFor(err error) (int, string) {
	switch apperrors.GetCode(err) {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, "bad_request"
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden, "forbidden"
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, "not_found"
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, "conflict"
	case apperrors.ErrCodeUnavailable, apperrors.ErrCodeTimeout:
		return http.StatusServiceUnavailable, "unavailable"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal"
}

// writeServiceError renders err with a stable message. Causes never reach the
// client; 5xx errors are logged with their full chain.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, code := statusFor(err)
	msg := apperrors.PublicMessage(err, genericErrorMessage)
	if apperrors.GetCode(err) == "" {
		msg = genericErrorMessage
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}
	WriteError(w, ErrorParams{Code: status, ErrCode: code, Err: errors.New(msg), Field: apperrors.GetField(err)})
}
