package saml

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/crewjam/saml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
)

const idpMetadata = `<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID="https://idp.example.com/metadata">
  <IDPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">
    <SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect" Location="https://idp.example.com/sso"/>
  </IDPSSODescriptor>
</EntityDescriptor>`

const idpMetadataWithSLO = `<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID="https://idp.example.com/metadata">
  <IDPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">
    <SingleLogoutService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect" Location="https://idp.example.com/slo"/>
    <SingleSignOnService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-Redirect" Location="https://idp.example.com/sso"/>
  </IDPSSODescriptor>
</EntityDescriptor>`

func testKeyPair(t *testing.T) (certPEM, keyPEM []byte) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "dirkeeper-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM
}

func newTestProvider(t *testing.T, metadata string, logoutURL string) *Provider {
	t.Helper()
	certPEM, keyPEM := testKeyPair(t)
	p, err := NewProvider(context.Background(), Config{
		RootURL:        "https://dirkeeper.example.com/",
		IdPMetadataXML: []byte(metadata),
		CertPEM:        certPEM,
		KeyPEM:         keyPEM,
		IdPLogoutURL:   logoutURL,
	})
	require.NoError(t, err)
	return p
}

func TestNewProvider_Validation(t *testing.T) {
	certPEM, keyPEM := testKeyPair(t)
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "missing root url", cfg: Config{IdPMetadataXML: []byte(idpMetadata), CertPEM: certPEM, KeyPEM: keyPEM}},
		{name: "missing metadata", cfg: Config{RootURL: "https://sp.example.com", CertPEM: certPEM, KeyPEM: keyPEM}},
		{name: "bad key pair", cfg: Config{RootURL: "https://sp.example.com", IdPMetadataXML: []byte(idpMetadata)}},
		{name: "bad metadata", cfg: Config{RootURL: "https://sp.example.com", IdPMetadataXML: []byte("<nope"), CertPEM: certPEM, KeyPEM: keyPEM}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestProvider_Defaults(t *testing.T) {
	p := newTestProvider(t, idpMetadata, "")
	assert.Equal(t, "https://dirkeeper.example.com/login/callback", p.sp.AcsURL.String())
	assert.Equal(t, "https://dirkeeper.example.com/saml/metadata", p.sp.EntityID)
	assert.NotNil(t, p.Metadata())
}

func TestProvider_Begin(t *testing.T) {
	p := newTestProvider(t, idpMetadata, "")

	res, err := p.Begin(context.Background(), ports.BeginInput{RelayState: "/home"})
	require.NoError(t, err)
	require.NotEmpty(t, res.State)

	u, err := url.Parse(res.AuthURL)
	require.NoError(t, err)
	assert.Equal(t, "idp.example.com", u.Host)
	assert.Equal(t, "/sso", u.Path)
	assert.NotEmpty(t, u.Query().Get("SAMLRequest"))
	assert.Equal(t, "/home", u.Query().Get("RelayState"))

	again, err := p.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	assert.NotEqual(t, res.State, again.State, "request ids must be unique")
}

func TestProvider_Complete_Rejects(t *testing.T) {
	p := newTestProvider(t, idpMetadata, "")

	_, err := p.Complete(context.Background(), ports.CompleteInput{Form: url.Values{}})
	require.Error(t, err)

	form := url.Values{"SAMLResponse": {"bm90IGEgcmVzcG9uc2U="}}
	_, err = p.Complete(context.Background(), ports.CompleteInput{Form: form, RequestIDs: []string{"id-1"}})
	require.Error(t, err)
}

func TestProvider_LogoutURL(t *testing.T) {
	t.Run("configured fallback", func(t *testing.T) {
		p := newTestProvider(t, idpMetadata, "https://idp.example.com/logout?app=dk")
		got, err := p.LogoutURL(context.Background(), ports.LogoutInput{NameID: "alice", RelayState: "https://dirkeeper.example.com/login"})
		require.NoError(t, err)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.Equal(t, "/logout", u.Path)
		assert.Equal(t, "dk", u.Query().Get("app"))
		assert.Equal(t, "https://dirkeeper.example.com/login", u.Query().Get("RelayState"))
	})

	t.Run("no logout endpoint", func(t *testing.T) {
		p := newTestProvider(t, idpMetadata, "")
		got, err := p.LogoutURL(context.Background(), ports.LogoutInput{NameID: "alice"})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("single logout from metadata", func(t *testing.T) {
		p := newTestProvider(t, idpMetadataWithSLO, "https://idp.example.com/logout")
		got, err := p.LogoutURL(context.Background(), ports.LogoutInput{NameID: "alice", RelayState: "/login"})
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(got, "https://idp.example.com/slo?"), got)
		u, err := url.Parse(got)
		require.NoError(t, err)
		assert.NotEmpty(t, u.Query().Get("SAMLRequest"))
		assert.Equal(t, "/login", u.Query().Get("RelayState"))
	})
}

func TestProfileFromAssertion(t *testing.T) {
	early := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	a := &saml.Assertion{
		Subject:    &saml.Subject{NameID: &saml.NameID{Value: "alice@example.com"}},
		Conditions: &saml.Conditions{NotOnOrAfter: late.Add(time.Hour)},
		AuthnStatements: []saml.AuthnStatement{
			{SessionIndex: "idx-1", SessionNotOnOrAfter: &late},
			{SessionIndex: "idx-2", SessionNotOnOrAfter: &early},
		},
		AttributeStatements: []saml.AttributeStatement{{
			Attributes: []saml.Attribute{
				{Name: "urn:oid:2.16.840.1.113730.3.1.3", FriendlyName: "employeeNumber", Values: []saml.AttributeValue{{Value: "E1001"}}},
				{Name: "groups", Values: []saml.AttributeValue{{Value: "a"}, {Value: "b"}}},
			},
		}},
	}

	prof := profileFromAssertion(a)
	assert.Equal(t, domainauth.AuthMethodSAML, prof.Method)
	assert.Equal(t, "alice@example.com", prof.NameID)
	assert.Equal(t, "idx-1", prof.SessionIndex)
	assert.Equal(t, early, prof.NotOnOrAfter)
	assert.Equal(t, "E1001", prof.First("employeeNumber"))
	assert.Equal(t, "E1001", prof.First("urn:oid:2.16.840.1.113730.3.1.3"))
	assert.Equal(t, []string{"a", "b"}, prof.Attributes["groups"])
}

func TestProfileFromAssertion_ConditionsFallback(t *testing.T) {
	exp := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	prof := profileFromAssertion(&saml.Assertion{Conditions: &saml.Conditions{NotOnOrAfter: exp}})
	assert.Equal(t, exp, prof.NotOnOrAfter)
	assert.Empty(t, prof.NameID)

	empty := profileFromAssertion(nil)
	assert.NotNil(t, empty.Attributes)
}

func TestProvider_ServeMetadata(t *testing.T) {
	p := newTestProvider(t, idpMetadata, "")
	w := httptest.NewRecorder()
	p.ServeMetadata(w, httptest.NewRequest(http.MethodGet, "/saml/metadata", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/samlmetadata+xml", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "https://dirkeeper.example.com/login/callback")
	assert.Contains(t, w.Body.String(), "EntityDescriptor")
}
