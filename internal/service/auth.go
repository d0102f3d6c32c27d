package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// SSOOptions configures single sign-on. Provider may be nil when SSO is disabled.
type SSOOptions struct {
	Provider ports.SSOProvider
	// LoginURL is the absolute login page URL used as relay state on IdP logout.
	LoginURL string
	Logger   *slog.Logger
}

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Sessions *SessionManager
	Mapper   *ProfileMapper
	SSO      SSOOptions
}

// AuthService orchestrates password and SSO logins on top of the session manager.
type AuthService struct {
	sessions *SessionManager
	mapper   *ProfileMapper
	provider ports.SSOProvider
	loginURL string
	logger   *slog.Logger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	if opts.Sessions == nil || opts.Mapper == nil {
		panic("service: AuthService requires a SessionManager and a ProfileMapper")
	}
	logger := opts.SSO.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		sessions: opts.Sessions,
		mapper:   opts.Mapper,
		provider: opts.SSO.Provider,
		loginURL: opts.SSO.LoginURL,
		logger:   logger,
	}
}

// SSOEnabled reports whether an SSO provider is configured.
func (s *AuthService) SSOEnabled() bool { return s.provider != nil }

// SSORejection is returned when an SSO callback cannot produce a session. The
// caller must clear any session cookie and send the browser to LogoutURL.
type SSORejection struct {
	LogoutURL string
	Err       error
}

func (e *SSORejection) Error() string { return "sso login rejected: " + e.Err.Error() }

func (e *SSORejection) Unwrap() error { return e.Err }

// SelectAuthType records the backend choice for a following Authenticate call.
// Any record held under currentID is discarded.
func (s *AuthService) SelectAuthType(ctx context.Context, currentID, authType string) (domainauth.Session, error) {
	t, err := domainauth.ParseAuthType(authType)
	if err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid auth type (valid options: ldap, ad)")
	}
	if _, err := s.mapper.connector.Service(t); err != nil {
		return domainauth.Session{}, err
	}
	if err := s.sessions.Destroy(ctx, currentID); err != nil {
		return domainauth.Session{}, err
	}
	return s.sessions.Pending(ctx, t)
}

// PasswordLogin authenticates against the backend chosen by SelectAuthType and
// replaces the pending record with an active session.
func (s *AuthService) PasswordLogin(ctx context.Context, pendingID, username, password string) (domainauth.Session, error) {
	pending, err := s.sessions.Lookup(ctx, pendingID)
	if err != nil || pending.Active() {
		return domainauth.Session{}, apperrors.Validation("select an auth type before authenticating")
	}
	svc, err := s.mapper.connector.Service(pending.AuthType)
	if err != nil {
		return domainauth.Session{}, err
	}
	principal, err := svc.Authenticate(ctx, username, password)
	if err != nil {
		s.logger.InfoContext(ctx, "password login failed", "auth_type", pending.AuthType, "error", err)
		return domainauth.Session{}, err
	}
	seed, err := s.mapper.seed(ctx, svc, principal, domainauth.AuthMethodPassword)
	if err != nil {
		return domainauth.Session{}, err
	}
	return s.sessions.Promote(ctx, pendingID, seed)
}

// BeginSSO starts an SSO flow.
func (s *AuthService) BeginSSO(ctx context.Context, relayState string) (ports.BeginResult, error) {
	if s.provider == nil {
		return ports.BeginResult{}, apperrors.NotFound("single sign-on is not configured")
	}
	res, err := s.provider.Begin(ctx, ports.BeginInput{RelayState: relayState})
	if err != nil {
		return ports.BeginResult{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not start single sign-on")
	}
	return res, nil
}

// CompleteSSO verifies the IdP response, maps the profile and creates a session.
// Every failure destroys currentID and returns an *SSORejection.
func (s *AuthService) CompleteSSO(ctx context.Context, currentID string, in ports.CompleteInput) (domainauth.Session, error) {
	if s.provider == nil {
		return domainauth.Session{}, apperrors.NotFound("single sign-on is not configured")
	}
	if err := s.sessions.Destroy(ctx, currentID); err != nil {
		s.logger.WarnContext(ctx, "discarding prior session failed", "error", err)
	}

	prof, err := s.provider.Complete(ctx, in)
	if err != nil {
		return domainauth.Session{}, s.rejectSSO(ctx, domainauth.Profile{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "identity provider response is invalid"))
	}
	seed, err := s.mapper.Map(ctx, prof)
	if err != nil {
		return domainauth.Session{}, s.rejectSSO(ctx, prof, err)
	}
	sess, err := s.sessions.Create(ctx, seed)
	if err != nil {
		return domainauth.Session{}, s.rejectSSO(ctx, prof, err)
	}
	return sess, nil
}

func (s *AuthService) rejectSSO(ctx context.Context, prof domainauth.Profile, cause error) error {
	s.logger.WarnContext(ctx, "sso login rejected", "name_id", prof.NameID, "error", cause)
	logoutURL, err := s.provider.LogoutURL(ctx, ports.LogoutInput{
		NameID:       prof.NameID,
		SessionIndex: prof.SessionIndex,
		RelayState:   s.loginURL,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "building idp logout url failed", "error", err)
	}
	if logoutURL == "" {
		logoutURL = s.loginURL
	}
	return &SSORejection{LogoutURL: logoutURL, Err: cause}
}

// Logout destroys the session and returns where to send the browser: the IdP
// logout endpoint for SSO sessions, empty otherwise.
func (s *AuthService) Logout(ctx context.Context, id string) (string, error) {
	sess, lookupErr := s.sessions.Lookup(ctx, id)
	if err := s.sessions.Destroy(ctx, id); err != nil {
		return "", err
	}
	if lookupErr != nil {
		return "", nil
	}
	return s.SSOLogoutURL(ctx, sess)
}

// SSOLogoutURL returns the IdP logout redirect for an SSO session.
func (s *AuthService) SSOLogoutURL(ctx context.Context, sess domainauth.Session) (string, error) {
	if s.provider == nil || sess.AuthMethod == domainauth.AuthMethodPassword || sess.AuthMethod == "" {
		return "", nil
	}
	u, err := s.provider.LogoutURL(ctx, ports.LogoutInput{
		NameID:       sess.NameID,
		SessionIndex: sess.SessionIndex,
		RelayState:   s.loginURL,
	})
	if err != nil {
		return "", fmt.Errorf("idp logout url: %w", err)
	}
	return u, nil
}

// SessionStatus is the client-visible view of a session.
type SessionStatus struct {
	Authenticated bool                  `json:"authenticated"`
	Stage         domainauth.Stage      `json:"stage,omitempty"`
	AuthType      domainauth.AuthType   `json:"auth_type,omitempty"`
	AuthMethod    domainauth.AuthMethod `json:"auth_method,omitempty"`
	Principal     string                `json:"principal,omitempty"`
	Role          domainauth.Role       `json:"role,omitempty"`
	ExpiresAt     *time.Time            `json:"expires_at,omitempty"`
}

// Status reports the state of a session id without failing on absence.
func (s *AuthService) Status(ctx context.Context, id string) (SessionStatus, error) {
	sess, err := s.sessions.Lookup(ctx, id)
	if err != nil {
		if apperrors.IsUnauthorized(err) {
			return SessionStatus{}, nil
		}
		return SessionStatus{}, err
	}
	exp := sess.ExpiresAt
	return SessionStatus{
		Authenticated: sess.Active(),
		Stage:         sess.Stage,
		AuthType:      sess.AuthType,
		AuthMethod:    sess.AuthMethod,
		Principal:     sess.Principal,
		Role:          sess.Role,
		ExpiresAt:     &exp,
	}, nil
}

// IsSSORejection reports whether err is an SSO rejection and returns it.
func IsSSORejection(err error) (*SSORejection, bool) {
	var rej *SSORejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
