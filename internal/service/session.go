package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

const (
	// DefaultSessionTTL applies to password sessions and SSO sessions without a stated validity.
	DefaultSessionTTL = 30 * time.Minute
	// DefaultPendingTTL bounds the gap between auth-type selection and authentication.
	DefaultPendingTTL = 5 * time.Minute
)

// SessionMetrics receives session lifecycle events.
type SessionMetrics interface {
	SessionCreated(authType, method string)
	SessionValidated(ok bool)
}

// SessionManagerConfig holds timing and optional collaborators.
type SessionManagerConfig struct {
	TTL        time.Duration
	PendingTTL time.Duration
	Now        func() time.Time
	Logger     *slog.Logger
}

// SessionManagerOptions groups dependencies for SessionManager.
type SessionManagerOptions struct {
	Store   ports.SessionStore
	Config  SessionManagerConfig
	Metrics SessionMetrics // optional
}

// SessionManager creates, validates and destroys sessions. Records are never
// updated: every state change writes a new record under a new id.
type SessionManager struct {
	store      ports.SessionStore
	ttl        time.Duration
	pendingTTL time.Duration
	now        func() time.Time
	logger     *slog.Logger
	metrics    SessionMetrics
}

// NewSessionManager constructs a SessionManager. Store is required.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	if opts.Store == nil {
		panic("service: SessionManager requires a SessionStore")
	}
	cfg := opts.Config
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultSessionTTL
	}
	if cfg.PendingTTL <= 0 {
		cfg.PendingTTL = DefaultPendingTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &SessionManager{
		store:      opts.Store,
		ttl:        cfg.TTL,
		pendingTTL: cfg.PendingTTL,
		now:        cfg.Now,
		logger:     cfg.Logger,
		metrics:    opts.Metrics,
	}
}

// TTL returns the default session lifetime.
func (m *SessionManager) TTL() time.Duration { return m.ttl }

var errSessionInvalid = apperrors.Unauthorized("session is invalid or expired")

// Create mints an active session from a seed. The expiry is the seed's assertion
// bound when present, otherwise now + TTL.
func (m *SessionManager) Create(ctx context.Context, seed domainauth.SessionSeed) (domainauth.Session, error) {
	if seed.Principal == "" {
		return domainauth.Session{}, apperrors.Validation("session principal is required")
	}
	if _, err := domainauth.ParseAuthType(string(seed.AuthType)); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid auth type (valid options: ldap, ad)")
	}
	now := m.now()
	expires := now.Add(m.ttl)
	if !seed.ExpiresAt.IsZero() {
		if !now.Before(seed.ExpiresAt) {
			return domainauth.Session{}, apperrors.Unauthorized("assertion has expired")
		}
		expires = seed.ExpiresAt
	}
	role := seed.Role
	if role == "" {
		role = domainauth.RoleUser
	}
	sess := domainauth.Session{
		ID:            uuid.NewString(),
		Principal:     seed.Principal,
		Email:         seed.Email,
		AuthType:      seed.AuthType,
		AuthMethod:    seed.AuthMethod,
		Role:          role,
		IdentityKey:   seed.IdentityKey,
		IdentityValue: seed.IdentityValue,
		DN:            seed.DN,
		Stage:         domainauth.StageActive,
		NameID:        seed.NameID,
		SessionIndex:  seed.SessionIndex,
		CreatedAt:     now,
		ExpiresAt:     expires,
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not create session")
	}
	if m.metrics != nil {
		m.metrics.SessionCreated(string(sess.AuthType), string(sess.AuthMethod))
	}
	m.logger.InfoContext(ctx, "session created",
		"auth_type", sess.AuthType, "method", sess.AuthMethod, "role", sess.Role, "expires_at", sess.ExpiresAt)
	return sess, nil
}

// Pending records an auth-type selection ahead of authentication.
func (m *SessionManager) Pending(ctx context.Context, authType domainauth.AuthType) (domainauth.Session, error) {
	t, err := domainauth.ParseAuthType(string(authType))
	if err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid auth type (valid options: ldap, ad)")
	}
	now := m.now()
	sess := domainauth.Session{
		ID:        uuid.NewString(),
		AuthType:  t,
		Stage:     domainauth.StagePending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.pendingTTL),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not record auth type")
	}
	return sess, nil
}

// Lookup returns an unexpired record of either stage.
func (m *SessionManager) Lookup(ctx context.Context, id string) (domainauth.Session, error) {
	if id == "" {
		return domainauth.Session{}, errSessionInvalid
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrSessionNotFound) {
			return domainauth.Session{}, errSessionInvalid
		}
		return domainauth.Session{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not load session")
	}
	if !sess.Valid(m.now()) {
		m.destroyQuietly(ctx, id)
		return domainauth.Session{}, errSessionInvalid
	}
	return sess, nil
}

// Validate is the gate for protected routes: only unexpired active sessions pass.
// Expired records are removed and reported exactly like unknown ids.
func (m *SessionManager) Validate(ctx context.Context, id string) (domainauth.Session, error) {
	sess, err := m.Lookup(ctx, id)
	if err == nil && !sess.Active() {
		err = errSessionInvalid
	}
	if m.metrics != nil {
		m.metrics.SessionValidated(err == nil)
	}
	if err != nil {
		return domainauth.Session{}, err
	}
	return sess, nil
}

// Promote replaces a pending record with an active session for seed. The pending
// record is always consumed.
func (m *SessionManager) Promote(ctx context.Context, pendingID string, seed domainauth.SessionSeed) (domainauth.Session, error) {
	pending, err := m.Lookup(ctx, pendingID)
	if err != nil {
		return domainauth.Session{}, err
	}
	m.destroyQuietly(ctx, pendingID)
	if pending.Active() {
		return domainauth.Session{}, apperrors.Validation("session is already authenticated")
	}
	seed.AuthType = pending.AuthType
	return m.Create(ctx, seed)
}

// Destroy removes a session. Unknown ids are not an error.
func (m *SessionManager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, ports.ErrSessionNotFound) {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "could not destroy session")
	}
	return nil
}

func (m *SessionManager) destroyQuietly(ctx context.Context, id string) {
	if err := m.Destroy(ctx, id); err != nil {
		m.logger.WarnContext(ctx, "session delete failed", "error", err)
	}
}
