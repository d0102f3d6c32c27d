// Package oidc provides an OIDC single sign-on adapter producing the same
// verified profile as the SAML adapter.
package oidc

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
	"golang.org/x/oauth2"
)

// Provider implements ports.SSOProvider using OIDC/OAuth2.
type Provider struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client

	// go-oidc provider and verifier
	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

var _ ports.SSOProvider = (*Provider)(nil)

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // Optional, defaults to a 30s client
}

// DiscoveryDocument represents the OIDC discovery document.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JwksURI               string `json:"jwks_uri"`
}

// NewProvider creates a new OIDC provider.
func NewProvider(config ProviderConfig) (*Provider, error) {
	if config.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if config.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if config.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if config.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	p := &Provider{
		logoutURL:  config.LogoutURL,
		httpClient: httpClient,
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(config.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	p.oidcProvider = op
	p.verifier = op.Verifier(&gooidc.Config{ClientID: config.ClientID})

	p.config = &oauth2.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RedirectURL:  config.RedirectURL,
		Scopes:       strings.Fields(config.Scope),
		Endpoint:     op.Endpoint(),
	}
	if !p.hasOpenIDScope() {
		p.config.Scopes = append([]string{gooidc.ScopeOpenID}, p.config.Scopes...)
	}

	return p, nil
}

// Begin returns the authorization URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (ports.BeginResult, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate nonce: %w", err)
	}

	authURL := p.config.AuthCodeURL(state,
		gooidc.Nonce(nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return ports.BeginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// Complete exchanges the code, verifies the ID token and nonce, and returns
// the token claims as profile attributes.
func (p *Provider) Complete(ctx context.Context, in ports.CompleteInput) (domainauth.Profile, error) {
	if in.Code == "" {
		return domainauth.Profile{}, errors.New("authorization code is required")
	}
	if in.Nonce == "" {
		return domainauth.Profile{}, errors.New("nonce is required")
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.config.Exchange(ctx, in.Code)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.Profile{}, err
	}
	idTok, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Profile{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != in.Nonce {
		return domainauth.Profile{}, errors.New("invalid nonce")
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Profile{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}
	attrs := flattenClaims(claims)

	// UserInfo fills claims the ID token omitted; failures here are not fatal
	// because the verified ID token already identifies the subject.
	if ui, uiErr := p.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(token)); uiErr == nil {
		var extra map[string]any
		if ui.Claims(&extra) == nil {
			for k, v := range flattenClaims(extra) {
				if _, ok := attrs[k]; !ok {
					attrs[k] = v
				}
			}
		}
	}

	return domainauth.Profile{
		Method:       domainauth.AuthMethodOIDC,
		NameID:       idTok.Subject,
		Attributes:   attrs,
		NotOnOrAfter: idTok.Expiry,
	}, nil
}

// LogoutURL returns the configured end-session URL with the relay target as
// post_logout_redirect_uri. An empty string means the IdP has no logout endpoint.
func (p *Provider) LogoutURL(_ context.Context, in ports.LogoutInput) (string, error) {
	if p.logoutURL == "" {
		return "", nil
	}
	u, err := url.Parse(p.logoutURL)
	if err != nil {
		return "", fmt.Errorf("parse logout url: %w", err)
	}
	q := u.Query()
	q.Set("client_id", p.config.ClientID)
	if in.RelayState != "" {
		q.Set("post_logout_redirect_uri", in.RelayState)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// flattenClaims converts JSON claims into string lists. Nested objects are skipped.
func flattenClaims(claims map[string]any) map[string][]string {
	out := make(map[string][]string, len(claims))
	keys := make([]string, 0, len(claims))
	for k := range claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		switch v := claims[k].(type) {
		case string:
			out[k] = []string{v}
		case bool:
			out[k] = []string{strconv.FormatBool(v)}
		case float64:
			out[k] = []string{strconv.FormatFloat(v, 'f', -1, 64)}
		case []any:
			vals := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok {
					vals = append(vals, s)
				}
			}
			out[k] = vals
		}
	}
	return out
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// hasOpenIDScope reports whether the configured scopes include "openid".
func (p *Provider) hasOpenIDScope() bool {
	for _, sc := range p.config.Scopes {
		if sc == gooidc.ScopeOpenID {
			return true
		}
	}
	return false
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
