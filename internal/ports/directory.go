package ports

import (
	"context"
	"errors"

	"github.com/target/dirkeeper/internal/domain/directory"
)

// Adapter-boundary errors. Every Directory implementation translates its native
// result codes into exactly one of these; callers match with errors.Is.
var (
	ErrAuthenticationFailed = errors.New("directory: authentication failed")
	ErrDirectoryUnavailable = errors.New("directory: unavailable")
	ErrEntryAlreadyExists   = errors.New("directory: entry already exists")
	ErrEntryNotFound        = errors.New("directory: entry not found")
	ErrConstraintViolation  = errors.New("directory: constraint violation")
	ErrInsufficientAccess   = errors.New("directory: insufficient access")
)

// Directory is one backend's client adapter. It owns exactly one live connection
// and serializes access to it: Bind acquires the connection and returns a
// BoundConn that must be released with Unbind on every path.
type Directory interface {
	// Name is the auth-type tag this adapter serves ("ldap" or "ad").
	Name() string
	// BaseDN is the search root of the directory.
	BaseDN() string
	// Bind acquires the connection and authenticates as dn.
	Bind(ctx context.Context, dn, credential string) (BoundConn, error)
	// BindAdmin acquires the connection and authenticates with the service account.
	BindAdmin(ctx context.Context) (BoundConn, error)
	// Close drops the live connection.
	Close() error
}

// BoundConn is an authenticated, exclusively held connection.
type BoundConn interface {
	// Search returns matching entries; an empty result is a non-nil empty slice.
	Search(ctx context.Context, req directory.SearchRequest) ([]directory.Entry, error)
	Add(ctx context.Context, dn string, attrs map[string][]string) error
	Modify(ctx context.Context, dn string, changes []directory.Change) error
	Delete(ctx context.Context, dn string) error
	// Rebind authenticates the held connection as a different principal.
	Rebind(ctx context.Context, dn, credential string) error
	// Unbind drops the elevated bind and releases the connection. Safe to call twice.
	Unbind()
}
