package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// ErrProfileRejected marks an SSO profile that cannot be turned into a session.
var ErrProfileRejected = errors.New("sso profile rejected")

// ProfileClaims names the extractors applied to a verified profile.
type ProfileClaims struct {
	EmployeeID ports.ClaimExtractor // required
	AuthType   ports.ClaimExtractor // optional; backends are probed in order when absent
}

// ProfileMapperOptions groups dependencies for ProfileMapper.
type ProfileMapperOptions struct {
	Connector *DirectoryConnector
	Roles     ports.RoleMapper
	Claims    ProfileClaims
	Logger    *slog.Logger
}

// ProfileMapper turns a verified SSO profile into a session seed. Every failure
// is a rejection: there is no partial or default identity.
type ProfileMapper struct {
	connector  *DirectoryConnector
	roles      ports.RoleMapper
	employeeID ports.ClaimExtractor
	authType   ports.ClaimExtractor
	logger     *slog.Logger
}

// NewProfileMapper constructs a ProfileMapper. Connector, Roles and the employee-id extractor are required.
func NewProfileMapper(opts ProfileMapperOptions) *ProfileMapper {
	if opts.Connector == nil || opts.Roles == nil || opts.Claims.EmployeeID == nil {
		panic("service: ProfileMapper requires a connector, role mapper and employee id extractor")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ProfileMapper{
		connector:  opts.Connector,
		roles:      opts.Roles,
		employeeID: opts.Claims.EmployeeID,
		authType:   opts.Claims.AuthType,
		logger:     logger.With("component", "profile_mapper"),
	}
}

func reject(reason string, cause error) error {
	if cause == nil {
		cause = ErrProfileRejected
	} else {
		cause = fmt.Errorf("%w: %w", ErrProfileRejected, cause)
	}
	return apperrors.Wrap(cause, apperrors.ErrCodeUnauthorized, reason)
}

// Map resolves the directory principal behind a profile and builds its seed.
func (m *ProfileMapper) Map(ctx context.Context, prof domainauth.Profile) (domainauth.SessionSeed, error) {
	seed, err := m.resolve(ctx, prof)
	if err != nil {
		m.logger.WarnContext(ctx, "sso profile rejected",
			"method", prof.Method, "reason", apperrors.PublicMessage(err, "rejected"), "error", err)
		return domainauth.SessionSeed{}, err
	}
	return seed, nil
}

func (m *ProfileMapper) resolve(ctx context.Context, prof domainauth.Profile) (domainauth.SessionSeed, error) {
	employeeID, ok := m.employeeID.Extract(prof.Attributes)
	if !ok || employeeID == "" {
		return domainauth.SessionSeed{}, reject("profile has no employee identifier", nil)
	}

	candidates, err := m.backends(prof)
	if err != nil {
		return domainauth.SessionSeed{}, err
	}

	var lastErr error
	for _, t := range candidates {
		svc, err := m.connector.Service(t)
		if err != nil {
			return domainauth.SessionSeed{}, reject("auth type is not available", err)
		}
		p, err := svc.LookupByEmployeeID(ctx, employeeID)
		if err != nil {
			lastErr = err
			if apperrors.IsNotFound(err) {
				continue
			}
			return domainauth.SessionSeed{}, reject("directory lookup failed", err)
		}
		seed, err := m.seed(ctx, svc, p, prof.Method)
		if err != nil {
			return domainauth.SessionSeed{}, reject("directory lookup failed", err)
		}
		seed.NameID = prof.NameID
		seed.SessionIndex = prof.SessionIndex
		seed.ExpiresAt = prof.NotOnOrAfter
		return seed, nil
	}
	return domainauth.SessionSeed{}, reject("no directory principal matches the profile", lastErr)
}

// backends returns the auth types to search: the claimed one, or every configured backend.
func (m *ProfileMapper) backends(prof domainauth.Profile) ([]domainauth.AuthType, error) {
	if m.authType != nil {
		if raw, ok := m.authType.Extract(prof.Attributes); ok && raw != "" {
			t, err := domainauth.ParseAuthType(raw)
			if err != nil {
				return nil, reject("profile carries an invalid auth type", err)
			}
			return []domainauth.AuthType{t}, nil
		}
	}
	configured := m.connector.Configured()
	if len(configured) == 0 {
		return nil, reject("no directory is configured", nil)
	}
	return configured, nil
}

// seed derives identity key and role for a resolved principal. The identity key
// comes from this principal's own DN; trees may mix OU and CN placement.
func (m *ProfileMapper) seed(ctx context.Context, svc *DirectoryService, p directory.Principal, method domainauth.AuthMethod) (domainauth.SessionSeed, error) {
	key, err := directory.ResolveDNKey(p.DN)
	if err != nil {
		return domainauth.SessionSeed{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "principal DN has no OU or CN parent")
	}
	groups, err := svc.MemberGroups(ctx, p.DN)
	if err != nil {
		return domainauth.SessionSeed{}, err
	}
	principal := p.Username
	if principal == "" {
		principal = p.Email
	}
	return domainauth.SessionSeed{
		Principal:     principal,
		Email:         p.Email,
		AuthType:      svc.dialect.AuthType(),
		AuthMethod:    method,
		Role:          m.roles.Map(groups),
		IdentityKey:   domainauth.IdentityKey(key.Type),
		IdentityValue: key.Value,
		DN:            p.DN,
	}, nil
}
