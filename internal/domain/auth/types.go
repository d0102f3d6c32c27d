package auth

// Package auth contains domain-level types for authentication and sessions.
// It is pure and free of framework/adapter concerns.

import (
	"fmt"
	"strings"
	"time"
)

// Role represents an application's authorization role.
// Keep string form for easy persistence and cookies.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// AuthType selects which directory backend serves a session.
type AuthType string

const (
	AuthTypeLDAP AuthType = "ldap"
	AuthTypeAD   AuthType = "ad"
)

// ParseAuthType validates a raw auth-type tag. Only "ldap" and "ad" are accepted;
// there is no default.
func ParseAuthType(raw string) (AuthType, error) {
	switch t := AuthType(strings.ToLower(strings.TrimSpace(raw))); t {
	case AuthTypeLDAP, AuthTypeAD:
		return t, nil
	default:
		return "", fmt.Errorf("invalid auth type %q (valid options: ldap, ad)", raw)
	}
}

// AuthTypes lists every supported backend in probe order.
func AuthTypes() []AuthType { return []AuthType{AuthTypeLDAP, AuthTypeAD} }

// AuthMethod records how the principal proved its identity.
type AuthMethod string

const (
	AuthMethodPassword AuthMethod = "password"
	AuthMethodSAML     AuthMethod = "saml"
	AuthMethodOIDC     AuthMethod = "oidc"
)

// IdentityKey is the RDN type of the container holding the principal.
type IdentityKey string

const (
	IdentityKeyOU IdentityKey = "OU"
	IdentityKeyCN IdentityKey = "CN"
)

// Stage distinguishes a pre-authentication record (auth type chosen) from a live session.
type Stage string

const (
	StagePending Stage = "pending"
	StageActive  Stage = "active"
)

// Session is the server-side record we persist for a client.
// Records are never mutated after creation; promotion from pending to active
// writes a new record under a new ID.
type Session struct {
	ID            string      `json:"id"`
	Principal     string      `json:"principal"`
	Email         string      `json:"email,omitempty"`
	AuthType      AuthType    `json:"auth_type"`
	AuthMethod    AuthMethod  `json:"auth_method,omitempty"`
	Role          Role        `json:"role,omitempty"`
	IdentityKey   IdentityKey `json:"identity_key,omitempty"`
	IdentityValue string      `json:"identity_value,omitempty"`
	DN            string      `json:"dn,omitempty"`
	Stage         Stage       `json:"stage"`
	NameID        string      `json:"name_id,omitempty"`
	SessionIndex  string      `json:"session_index,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	ExpiresAt     time.Time   `json:"expires_at"`
}

// Valid reports whether the session is unexpired at now.
func (s Session) Valid(now time.Time) bool { return now.Before(s.ExpiresAt) }

// Active reports whether the session completed authentication.
func (s Session) Active() bool { return s.Stage == StageActive }

// IsAdmin returns true if the session carries the admin role.
func (s Session) IsAdmin() bool { return s.Role == RoleAdmin }

// SessionSeed is everything needed to mint an active session.
type SessionSeed struct {
	Principal     string
	Email         string
	AuthType      AuthType
	AuthMethod    AuthMethod
	Role          Role
	IdentityKey   IdentityKey
	IdentityValue string
	DN            string
	NameID        string
	SessionIndex  string
	// ExpiresAt overrides the default TTL when non-zero (SSO assertion validity).
	ExpiresAt time.Time
}

// Profile is a verified external identity as returned by an SSO provider.
// Signature and audience checks have already been performed by the provider.
type Profile struct {
	Method       AuthMethod
	NameID       string
	SessionIndex string
	Attributes   map[string][]string
	// NotOnOrAfter is the assertion validity bound, zero when the IdP did not state one.
	NotOnOrAfter time.Time
}

// First returns the first value of a named attribute, matching names case-insensitively.
func (p Profile) First(name string) string {
	for k, v := range p.Attributes {
		if strings.EqualFold(k, name) && len(v) > 0 {
			return v[0]
		}
	}
	return ""
}
