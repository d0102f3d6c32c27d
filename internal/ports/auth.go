package ports

// Package ports defines interfaces (hexagonal ports) for auth and directory behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"
	"net/url"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
)

// ErrSessionNotFound is returned by every SessionStore when an id is unknown or expired.
var ErrSessionNotFound = errors.New("session not found")

// BeginInput carries inputs for initiating an SSO flow.
type BeginInput struct {
	// RelayState is echoed back by the IdP (SAML) or used as the post-login redirect (OIDC).
	RelayState string
}

// BeginResult is the outcome of starting an SSO flow.
type BeginResult struct {
	AuthURL string
	// State identifies the outstanding request: the SAML AuthnRequest ID or the OIDC state.
	State string
	// Nonce is only set by OIDC providers.
	Nonce string
}

// CompleteInput groups parameters for completing an SSO flow.
type CompleteInput struct {
	// OIDC authorization code flow.
	Code  string
	State string
	Nonce string

	// SAML POST binding form and the outstanding request ids it may answer.
	Form       url.Values
	RequestIDs []string
}

// LogoutInput carries parameters for an IdP logout redirect.
type LogoutInput struct {
	NameID       string
	SessionIndex string
	RelayState   string
}

// SSOProvider initiates and completes a single sign-on flow. Completion returns a
// verified profile; signature and audience validation is the provider's job.
type SSOProvider interface {
	Begin(ctx context.Context, in BeginInput) (BeginResult, error)
	Complete(ctx context.Context, in CompleteInput) (domainauth.Profile, error)
	LogoutURL(ctx context.Context, in LogoutInput) (string, error)
}

// SessionStore persists and retrieves sessions. Records are written once; a Save
// with an existing id is an error.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleMapper maps directory group memberships (DNs or names) to an application role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// ClaimExtractor pulls a single string claim out of a profile's attributes.
type ClaimExtractor interface {
	Extract(attrs map[string][]string) (string, bool)
}
