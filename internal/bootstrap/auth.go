package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/adapters/authroles"
	"github.com/target/dirkeeper/internal/adapters/claims"
	"github.com/target/dirkeeper/internal/adapters/devauth"
	"github.com/target/dirkeeper/internal/adapters/oidc"
	samladapter "github.com/target/dirkeeper/internal/adapters/saml"
	"github.com/target/dirkeeper/internal/ports"
	"github.com/target/dirkeeper/internal/service"
)

// AuthDeps contains configuration and collaborators for the auth service.
type AuthDeps struct {
	Auth       config.AuthConfig
	Sessions   config.SessionConfig
	Store      ports.SessionStore
	Connector  *service.DirectoryConnector
	Roles      *authroles.GroupRoleMapper
	Metrics    service.SessionMetrics
	Logger     *slog.Logger
	HTTPClient *http.Client
}

// AuthComponents is what the HTTP layer needs from the auth stack.
type AuthComponents struct {
	Auth     *service.AuthService
	Sessions *service.SessionManager
	// SAMLMetadata is nil unless AUTH_MODE=saml.
	SAMLMetadata http.Handler
}

// BuildAuthService creates the session manager, the SSO provider selected by
// AUTH_MODE and the auth service on top of them. A selected SSO mode that
// cannot be built is a startup error; there is no silent fallback to password-only.
func BuildAuthService(ctx context.Context, deps AuthDeps) (AuthComponents, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil || deps.Connector == nil || deps.Roles == nil {
		return AuthComponents{}, errors.New("auth service requires a session store, directory connector and role mapper")
	}

	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Store: deps.Store,
		Config: service.SessionManagerConfig{
			TTL:        deps.Sessions.TTL,
			PendingTTL: deps.Sessions.PendingTTL,
			Logger:     logger,
		},
		Metrics: deps.Metrics,
	})

	var out AuthComponents
	out.Sessions = sessions

	mapper, err := buildProfileMapper(deps)
	if err != nil {
		return AuthComponents{}, err
	}

	var provider ports.SSOProvider
	if deps.Auth.Mode != config.AuthModeNone {
		provider, out.SAMLMetadata, err = buildSSOProvider(ctx, deps, logger)
		if err != nil {
			return AuthComponents{}, fmt.Errorf("%s sso provider: %w", deps.Auth.Mode, err)
		}
		logger.Info("single sign-on enabled", "mode", deps.Auth.Mode)
	}

	out.Auth = service.NewAuthService(service.AuthServiceOptions{
		Sessions: sessions,
		Mapper:   mapper,
		SSO: service.SSOOptions{
			Provider: provider,
			LoginURL: deps.Auth.LoginURL,
			Logger:   logger,
		},
	})
	return out, nil
}

//nolint:ireturn // the provider is selected by AUTH_MODE.
func buildSSOProvider(ctx context.Context, deps AuthDeps, logger *slog.Logger) (ports.SSOProvider, http.Handler, error) {
	client := deps.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: deps.Auth.SSOHTTPTimeout}
	}

	switch deps.Auth.Mode {
	case config.AuthModeSAML:
		p, err := buildSAMLProvider(ctx, deps.Auth.SAML, client, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, http.HandlerFunc(p.ServeMetadata), nil

	case config.AuthModeOAuth:
		oauth := deps.Auth.OAuth
		p, err := oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oauth.ClientID,
			ClientSecret: oauth.ClientSecret,
			RedirectURL:  oauth.RedirectURL,
			Scope:        oauth.Scope,
			DiscoveryURL: oauth.DiscoveryURL,
			LogoutURL:    oauth.LogoutURL,
			HTTPClient:   client,
		})
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil

	case config.AuthModeMock:
		dev := deps.Auth.DevAuth
		p, err := devauth.NewProvider(devauth.Config{
			NameID:          dev.NameID,
			EmployeeID:      dev.EmployeeID,
			AuthType:        dev.AuthType,
			SessionDuration: deps.Sessions.TTL,
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Warn("dev auth provider enabled; every SSO login signs in as the configured identity",
			"name_id", dev.NameID)
		return p, nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported auth mode %q", deps.Auth.Mode)
	}
}

func buildSAMLProvider(ctx context.Context, cfg config.SAMLConfig, client *http.Client, logger *slog.Logger) (*samladapter.Provider, error) {
	certPEM, err := os.ReadFile(cfg.CertFile)
	if err != nil {
		return nil, fmt.Errorf("read SAML_CERT_FILE: %w", err)
	}
	keyPEM, err := os.ReadFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("read SAML_KEY_FILE: %w", err)
	}
	var metadataXML []byte
	if cfg.IdPMetadataFile != "" {
		if metadataXML, err = os.ReadFile(cfg.IdPMetadataFile); err != nil {
			return nil, fmt.Errorf("read SAML_IDP_METADATA_FILE: %w", err)
		}
	}

	return samladapter.NewProvider(ctx, samladapter.Config{
		RootURL:           cfg.RootURL,
		EntityID:          cfg.EntityID,
		IdPMetadataURL:    cfg.IdPMetadataURL,
		IdPMetadataXML:    metadataXML,
		CertPEM:           certPEM,
		KeyPEM:            keyPEM,
		IdPLogoutURL:      cfg.IdPLogoutURL,
		AllowIDPInitiated: cfg.AllowIDPInitiated,
		HTTPClient:        client,
		Logger:            logger.With("component", "saml"),
	})
}

func buildProfileMapper(deps AuthDeps) (*service.ProfileMapper, error) {
	employeeID, err := claims.New(deps.Auth.Claims.EmployeeID)
	if err != nil {
		return nil, fmt.Errorf("CLAIM_EMPLOYEE_ID: %w", err)
	}
	pc := service.ProfileClaims{EmployeeID: employeeID}

	authTypeExpr := deps.Auth.Claims.AuthType
	if authTypeExpr == "" && deps.Auth.Mode == config.AuthModeMock && deps.Auth.DevAuth.AuthType != "" {
		authTypeExpr = "authType[0]"
	}
	if authTypeExpr != "" {
		authType, err := claims.New(authTypeExpr)
		if err != nil {
			return nil, fmt.Errorf("CLAIM_AUTH_TYPE: %w", err)
		}
		pc.AuthType = authType
	}

	return service.NewProfileMapper(service.ProfileMapperOptions{
		Connector: deps.Connector,
		Roles:     deps.Roles,
		Claims:    pc,
		Logger:    deps.Logger,
	}), nil
}
