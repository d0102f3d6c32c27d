package service

import (
	"errors"

	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// directoryError translates adapter sentinels into the application taxonomy.
// subject names the object for client-facing messages ("user", "group").
// Backend result codes stay in the cause and never reach the message.
func directoryError(err error, subject string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	switch {
	case errors.Is(err, ports.ErrEntryNotFound):
		return apperrors.Wrap(err, apperrors.ErrCodeNotFound, subject+" not found")
	case errors.Is(err, ports.ErrEntryAlreadyExists):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, subject+" already exists")
	case errors.Is(err, ports.ErrConstraintViolation):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "request violates a directory constraint")
	case errors.Is(err, ports.ErrAuthenticationFailed):
		return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid credentials")
	case errors.Is(err, ports.ErrDirectoryUnavailable):
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "directory is unavailable")
	default:
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "directory operation failed")
	}
}
