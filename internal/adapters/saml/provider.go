// Package saml provides a SAML 2.0 service-provider adapter built on crewjam/saml.
// It verifies assertions and hands the application a domain profile; nothing
// downstream sees XML or signatures.
package saml

import (
	"context"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/xml"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crewjam/saml"
	"github.com/crewjam/saml/samlsp"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
)

// Config describes the service provider and its identity provider.
type Config struct {
	// RootURL is the externally visible base URL of this application.
	RootURL string
	// EntityID defaults to RootURL + MetadataPath.
	EntityID     string
	ACSPath      string // default /login/callback
	MetadataPath string // default /saml/metadata

	// Exactly one of IdPMetadataURL and IdPMetadataXML is required.
	IdPMetadataURL string
	IdPMetadataXML []byte

	// CertPEM and KeyPEM hold the SP signing key pair.
	CertPEM []byte
	KeyPEM  []byte

	// IdPLogoutURL is used when the IdP metadata has no SingleLogoutService.
	IdPLogoutURL string

	AllowIDPInitiated bool
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// Provider implements ports.SSOProvider for SAML (HTTP-Redirect request, HTTP-POST response).
type Provider struct {
	sp           *saml.ServiceProvider
	idpLogoutURL string
	logger       *slog.Logger
}

var _ ports.SSOProvider = (*Provider)(nil)

// NewProvider loads the key pair and IdP metadata and builds the service provider.
func NewProvider(ctx context.Context, cfg Config) (*Provider, error) {
	root, err := url.Parse(strings.TrimSuffix(cfg.RootURL, "/"))
	if err != nil || root.Scheme == "" || root.Host == "" {
		return nil, fmt.Errorf("saml: invalid root URL %q", cfg.RootURL)
	}
	if cfg.ACSPath == "" {
		cfg.ACSPath = "/login/callback"
	}
	if cfg.MetadataPath == "" {
		cfg.MetadataPath = "/saml/metadata"
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	keyPair, err := tls.X509KeyPair(cfg.CertPEM, cfg.KeyPEM)
	if err != nil {
		return nil, fmt.Errorf("saml: load key pair: %w", err)
	}
	key, ok := keyPair.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("saml: signing key must be RSA")
	}
	cert, err := x509.ParseCertificate(keyPair.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("saml: parse certificate: %w", err)
	}

	idp, err := loadMetadata(ctx, cfg)
	if err != nil {
		return nil, err
	}

	acs := *root
	acs.Path = cfg.ACSPath
	md := *root
	md.Path = cfg.MetadataPath
	entityID := cfg.EntityID
	if entityID == "" {
		entityID = md.String()
	}

	sp := &saml.ServiceProvider{
		EntityID:          entityID,
		Key:               key,
		Certificate:       cert,
		HTTPClient:        cfg.HTTPClient,
		MetadataURL:       md,
		AcsURL:            acs,
		IDPMetadata:       idp,
		AllowIDPInitiated: cfg.AllowIDPInitiated,
		AuthnNameIDFormat: saml.UnspecifiedNameIDFormat,
	}
	return &Provider{sp: sp, idpLogoutURL: cfg.IdPLogoutURL, logger: cfg.Logger}, nil
}

func loadMetadata(ctx context.Context, cfg Config) (*saml.EntityDescriptor, error) {
	switch {
	case len(cfg.IdPMetadataXML) > 0:
		ed, err := samlsp.ParseMetadata(cfg.IdPMetadataXML)
		if err != nil {
			return nil, fmt.Errorf("saml: parse idp metadata: %w", err)
		}
		return ed, nil
	case cfg.IdPMetadataURL != "":
		u, err := url.Parse(cfg.IdPMetadataURL)
		if err != nil {
			return nil, fmt.Errorf("saml: invalid idp metadata url: %w", err)
		}
		ed, err := samlsp.FetchMetadata(ctx, cfg.HTTPClient, *u)
		if err != nil {
			return nil, fmt.Errorf("saml: fetch idp metadata: %w", err)
		}
		return ed, nil
	default:
		return nil, errors.New("saml: idp metadata url or xml is required")
	}
}

// Metadata returns the SP metadata document.
func (p *Provider) Metadata() *saml.EntityDescriptor { return p.sp.Metadata() }

// ServeMetadata writes the service provider metadata document.
func (p *Provider) ServeMetadata(w http.ResponseWriter, _ *http.Request) {
	buf, err := xml.MarshalIndent(p.Metadata(), "", "  ")
	if err != nil {
		http.Error(w, "metadata unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/samlmetadata+xml")
	_, _ = w.Write(buf)
}

// Begin builds a redirect-binding AuthnRequest. State carries the request ID,
// which the caller must present again on Complete.
func (p *Provider) Begin(_ context.Context, in ports.BeginInput) (ports.BeginResult, error) {
	req, err := p.sp.MakeAuthenticationRequest(
		p.sp.GetSSOBindingLocation(saml.HTTPRedirectBinding),
		saml.HTTPRedirectBinding,
		saml.HTTPPostBinding,
	)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("saml: make authn request: %w", err)
	}
	u, err := req.Redirect(in.RelayState, p.sp)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("saml: build redirect: %w", err)
	}
	return ports.BeginResult{AuthURL: u.String(), State: req.ID}, nil
}

// Complete validates the POSTed SAMLResponse and returns the asserted profile.
func (p *Provider) Complete(ctx context.Context, in ports.CompleteInput) (domainauth.Profile, error) {
	if in.Form.Get("SAMLResponse") == "" {
		return domainauth.Profile{}, errors.New("saml: SAMLResponse is required")
	}
	acs := p.sp.AcsURL
	req := &http.Request{
		Method:   http.MethodPost,
		URL:      &acs,
		Host:     acs.Host,
		Header:   http.Header{"Content-Type": {"application/x-www-form-urlencoded"}},
		Form:     in.Form,
		PostForm: in.Form,
	}
	assertion, err := p.sp.ParseResponse(req.WithContext(ctx), in.RequestIDs)
	if err != nil {
		var ire *saml.InvalidResponseError
		if errors.As(err, &ire) {
			p.logger.WarnContext(ctx, "saml assertion rejected", "error", ire.PrivateErr)
		}
		return domainauth.Profile{}, fmt.Errorf("saml: invalid response: %w", err)
	}
	return profileFromAssertion(assertion), nil
}

// LogoutURL returns an IdP logout redirect. SP-initiated single logout is used
// when the IdP advertises it and a NameID is known; otherwise the configured
// logout URL receives the RelayState as a query parameter.
func (p *Provider) LogoutURL(_ context.Context, in ports.LogoutInput) (string, error) {
	if in.NameID != "" && p.sp.GetSLOBindingLocation(saml.HTTPRedirectBinding) != "" {
		u, err := p.sp.MakeRedirectLogoutRequest(in.NameID, in.RelayState)
		if err != nil {
			return "", fmt.Errorf("saml: make logout request: %w", err)
		}
		return u.String(), nil
	}
	if p.idpLogoutURL == "" {
		return "", nil
	}
	u, err := url.Parse(p.idpLogoutURL)
	if err != nil {
		return "", fmt.Errorf("saml: parse idp logout url: %w", err)
	}
	if in.RelayState != "" {
		q := u.Query()
		q.Set("RelayState", in.RelayState)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// profileFromAssertion flattens attribute statements. Each attribute is keyed by
// its Name and, when different, its FriendlyName.
func profileFromAssertion(a *saml.Assertion) domainauth.Profile {
	prof := domainauth.Profile{
		Method:     domainauth.AuthMethodSAML,
		Attributes: map[string][]string{},
	}
	if a == nil {
		return prof
	}
	if a.Subject != nil && a.Subject.NameID != nil {
		prof.NameID = a.Subject.NameID.Value
	}
	for _, st := range a.AuthnStatements {
		if prof.SessionIndex == "" {
			prof.SessionIndex = st.SessionIndex
		}
		if st.SessionNotOnOrAfter != nil && !st.SessionNotOnOrAfter.IsZero() {
			prof.NotOnOrAfter = earliest(prof.NotOnOrAfter, *st.SessionNotOnOrAfter)
		}
	}
	if prof.NotOnOrAfter.IsZero() && a.Conditions != nil && !a.Conditions.NotOnOrAfter.IsZero() {
		prof.NotOnOrAfter = a.Conditions.NotOnOrAfter
	}
	for _, st := range a.AttributeStatements {
		for _, attr := range st.Attributes {
			vals := make([]string, 0, len(attr.Values))
			for _, v := range attr.Values {
				vals = append(vals, v.Value)
			}
			prof.Attributes[attr.Name] = append(prof.Attributes[attr.Name], vals...)
			if attr.FriendlyName != "" && attr.FriendlyName != attr.Name {
				prof.Attributes[attr.FriendlyName] = append(prof.Attributes[attr.FriendlyName], vals...)
			}
		}
	}
	return prof
}

func earliest(a, b time.Time) time.Time {
	if a.IsZero() || b.Before(a) {
		return b
	}
	return a
}
