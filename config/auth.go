package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the single sign-on mode for the application. Password
// login against the directories is always available.
type AuthMode string

const (
	// AuthModeNone disables single sign-on.
	AuthModeNone AuthMode = "none"
	// AuthModeSAML uses a SAML 2.0 identity provider.
	AuthModeSAML AuthMode = "saml"
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "none", "saml", "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: none, saml, oauth, mock)", v)
	}
}

// SAMLConfig contains SAML service provider configuration.
type SAMLConfig struct {
	// RootURL is the externally visible base URL, e.g. https://dirkeeper.example.com.
	RootURL  string `env:"ROOT_URL" envDefault:"http://localhost:8080"`
	EntityID string `env:"ENTITY_ID"`
	// Exactly one of IdPMetadataURL and IdPMetadataFile is required.
	IdPMetadataURL  string `env:"IDP_METADATA_URL"`
	IdPMetadataFile string `env:"IDP_METADATA_FILE"`
	CertFile        string `env:"CERT_FILE"`
	KeyFile         string `env:"KEY_FILE"`
	// IdPLogoutURL is used when the IdP metadata has no SingleLogoutService.
	IdPLogoutURL      string `env:"IDP_LOGOUT_URL"`
	AllowIDPInitiated bool   `env:"ALLOW_IDP_INITIATED" envDefault:"false"`
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"dirkeeper"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	NameID     string `env:"NAME_ID"     envDefault:"dev@example.com"`
	EmployeeID string `env:"EMPLOYEE_ID" envDefault:"E0001"`
	AuthType   string `env:"AUTH_TYPE"`
}

// ClaimsConfig holds JMESPath expressions evaluated against verified SSO
// attributes (attribute name to list of values).
type ClaimsConfig struct {
	EmployeeID string `env:"EMPLOYEE_ID" envDefault:"employeeNumber[0]"`
	// AuthType selects the backend; when empty every configured directory is probed.
	AuthType string `env:"AUTH_TYPE"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which single sign-on provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"none"`

	SAML    SAMLConfig    `envPrefix:"SAML_"`
	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`
	Claims  ClaimsConfig  `envPrefix:"CLAIM_"`

	// AdminGroups are the directory group names that grant the admin role.
	AdminGroups []string `env:"ADMIN_GROUPS" envDefault:"Domain Admins;admins" envSeparator:";"`

	// LoginURL is the login page the IdP returns to after a rejected sign-in.
	LoginURL string `env:"LOGIN_URL" envDefault:"/"`

	// SSOHTTPTimeout bounds metadata and token requests to the identity provider.
	SSOHTTPTimeout time.Duration `env:"SSO_HTTP_TIMEOUT" envDefault:"15s"`
}

// Sanitize trims list entries and fills defaults.
func (a *AuthConfig) Sanitize() {
	if a.Mode == "" {
		a.Mode = AuthModeNone
	}
	groups := a.AdminGroups[:0]
	for _, g := range a.AdminGroups {
		if g = strings.TrimSpace(g); g != "" {
			groups = append(groups, g)
		}
	}
	a.AdminGroups = groups
	a.Claims.EmployeeID = strings.TrimSpace(a.Claims.EmployeeID)
	a.Claims.AuthType = strings.TrimSpace(a.Claims.AuthType)
	if a.SSOHTTPTimeout <= 0 {
		a.SSOHTTPTimeout = 15 * time.Second
	}
}

// Validate checks the settings required by the selected mode.
func (a *AuthConfig) Validate() error {
	var errs []error
	if len(a.AdminGroups) == 0 {
		errs = append(errs, errors.New("ADMIN_GROUPS must name at least one group"))
	}
	if a.Mode != AuthModeNone && a.Claims.EmployeeID == "" {
		errs = append(errs, errors.New("CLAIM_EMPLOYEE_ID is required when single sign-on is enabled"))
	}
	switch a.Mode {
	case AuthModeSAML:
		if (a.SAML.IdPMetadataURL == "") == (a.SAML.IdPMetadataFile == "") {
			errs = append(errs, errors.New("exactly one of SAML_IDP_METADATA_URL and SAML_IDP_METADATA_FILE is required"))
		}
		if a.SAML.CertFile == "" || a.SAML.KeyFile == "" {
			errs = append(errs, errors.New("SAML_CERT_FILE and SAML_KEY_FILE are required"))
		}
	case AuthModeOAuth:
		if a.OAuth.DiscoveryURL == "" {
			errs = append(errs, errors.New("OAUTH_DISCOVERY_URL is required"))
		}
	}
	return errors.Join(errs...)
}
