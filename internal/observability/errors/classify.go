// Package errors classifies failures into short, stable labels for metrics and logs.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/target/dirkeeper/internal/ports"
)

//nolint:gochecknoglobals // read-only lookup of adapter sentinels
var sentinelClasses = []struct {
	err   error
	class string
}{
	{ports.ErrAuthenticationFailed, "auth_failed"},
	{ports.ErrDirectoryUnavailable, "unavailable"},
	{ports.ErrEntryAlreadyExists, "already_exists"},
	{ports.ErrEntryNotFound, "not_found"},
	{ports.ErrConstraintViolation, "constraint"},
	{ports.ErrInsufficientAccess, "insufficient_access"},
}

// Classify returns a label for err. Directory sentinels map to fixed names;
// anything else is named after its innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}
	for _, s := range sentinelClasses {
		if goerrors.Is(err, s.err) {
			return s.class
		}
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}
	name := strings.ToLower(strings.ReplaceAll(t.String(), ".", "_"))
	if name == "" {
		return "unknown"
	}
	return name
}
