// Package devauth provides a config-driven SSO provider for local development.
package devauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"time"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
)

// Config controls the dev provider. EmployeeID is what the profile mapper looks
// up in the directory; AuthType is optional and feeds the auth-type claim.
type Config struct {
	NameID          string
	EmployeeID      string
	AuthType        string
	EmployeeIDAttr  string        // default "employeeNumber"
	AuthTypeAttr    string        // default "authType"
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.SSOProvider for local development. It short-circuits
// the IdP by redirecting straight back to our own callback and returns the
// configured profile from Complete.
type Provider struct {
	nameID   string
	attrs    map[string][]string
	duration time.Duration
}

var _ ports.SSOProvider = (*Provider)(nil)

// NewProvider constructs a dev provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.NameID == "" {
		return nil, errors.New("dev auth: NameID is required")
	}
	if cfg.EmployeeIDAttr == "" {
		cfg.EmployeeIDAttr = "employeeNumber"
	}
	if cfg.AuthTypeAttr == "" {
		cfg.AuthTypeAttr = "authType"
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	attrs := map[string][]string{"mail": {cfg.NameID}}
	if cfg.EmployeeID != "" {
		attrs[cfg.EmployeeIDAttr] = []string{cfg.EmployeeID}
	}
	if cfg.AuthType != "" {
		attrs[cfg.AuthTypeAttr] = []string{cfg.AuthType}
	}
	return &Provider{nameID: cfg.NameID, attrs: attrs, duration: dur}, nil
}

// Begin returns a local callback URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (ports.BeginResult, error) {
	state, err := randomString(24)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate nonce: %w", err)
	}
	q := url.Values{}
	q.Set("code", "dev")
	q.Set("state", state)
	return ports.BeginResult{AuthURL: "/auth/callback?" + q.Encode(), State: state, Nonce: nonce}, nil
}

// Complete ignores the code (state is checked by the handler) and returns the dev profile.
func (p *Provider) Complete(_ context.Context, _ ports.CompleteInput) (domainauth.Profile, error) {
	attrs := make(map[string][]string, len(p.attrs))
	for k, v := range p.attrs {
		attrs[k] = append([]string(nil), v...)
	}
	return domainauth.Profile{
		Method:       domainauth.AuthMethodOIDC,
		NameID:       p.nameID,
		Attributes:   attrs,
		NotOnOrAfter: time.Now().Add(p.duration),
	}, nil
}

// LogoutURL sends the browser straight to the relay target.
func (p *Provider) LogoutURL(_ context.Context, in ports.LogoutInput) (string, error) {
	return in.RelayState, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
