package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/adapters/authroles"
	"github.com/target/dirkeeper/internal/adapters/ldapdir"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
	"github.com/target/dirkeeper/internal/service"
)

// DirectoryDeps contains what BuildDirectories needs beyond the backend settings.
type DirectoryDeps struct {
	LDAP     config.DirectoryConfig
	AD       config.DirectoryConfig
	Roles    *authroles.GroupRoleMapper
	Observer ldapdir.Observer
	Logger   *slog.Logger
	// Dialer overrides the network dialer (tests).
	Dialer ldapdir.Dialer
}

// BuildDirectories creates one DirectoryService per configured backend and the
// connector that dispatches between them. Nothing is dialed here.
func BuildDirectories(deps DirectoryDeps) (*service.DirectoryConnector, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var opts service.DirectoryConnectorOptions
	if deps.LDAP.Configured() {
		dialect, err := ldapDialect(deps.LDAP)
		if err != nil {
			return nil, fmt.Errorf("ldap directory: %w", err)
		}
		opts.LDAP = newDirectoryService(deps, deps.LDAP, domainauth.AuthTypeLDAP, ldapdir.OpenLDAPErrors, dialect, logger)
	}
	if deps.AD.Configured() {
		dialect, err := adDialect(deps.AD)
		if err != nil {
			return nil, fmt.Errorf("ad directory: %w", err)
		}
		opts.AD = newDirectoryService(deps, deps.AD, domainauth.AuthTypeAD, ldapdir.ActiveDirectoryErrors, dialect, logger)
	}
	if opts.LDAP == nil && opts.AD == nil {
		return nil, errors.New("no directory backend configured")
	}
	return service.NewDirectoryConnector(opts), nil
}

func newDirectoryService(
	deps DirectoryDeps,
	cfg config.DirectoryConfig,
	authType domainauth.AuthType,
	errs ldapdir.ErrorTable,
	dialect service.Dialect,
	logger *slog.Logger,
) *service.DirectoryService {
	name := string(authType)
	adapter := ldapdir.New(ldapdir.Config{
		Name:               name,
		URL:                cfg.URL,
		BaseDN:             cfg.BaseDN,
		BindDN:             cfg.BindDN,
		BindPassword:       cfg.BindPassword,
		StartTLS:           cfg.StartTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		Timeout:            cfg.Timeout,
		Errors:             errs,
	}, ldapdir.Options{
		Dialer:   deps.Dialer,
		Logger:   logger.With("backend", name),
		Observer: deps.Observer,
	})

	var groups service.GroupClassifier
	if deps.Roles != nil {
		groups = deps.Roles
	}

	logger.Info("directory backend configured", "backend", name, "url", cfg.URL, "base_dn", cfg.BaseDN)
	return service.NewDirectoryService(service.DirectoryServiceOptions{
		Directory: adapter,
		Dialect:   dialect,
		Config: service.DirectoryServiceConfig{
			Groups:    groups,
			Logger:    logger.With("backend", name),
			SizeLimit: cfg.SizeLimit,
		},
	})
}

//nolint:ireturn // dialects are selected per backend.
func ldapDialect(cfg config.DirectoryConfig) (service.Dialect, error) {
	users, err := containerKey(cfg.UsersContainer)
	if err != nil {
		return nil, fmt.Errorf("USERS_CONTAINER: %w", err)
	}
	groups, err := containerKey(cfg.GroupsContainer)
	if err != nil {
		return nil, fmt.Errorf("GROUPS_CONTAINER: %w", err)
	}
	return service.NewLDAPDialect(service.LDAPDialectConfig{
		InactiveAttr:   cfg.InactiveAttr,
		InactiveValue:  cfg.InactiveValue,
		EmployeeIDAttr: cfg.EmployeeIDAttr,
		Users:          users,
		Groups:         groups,
	}), nil
}

//nolint:ireturn // dialects are selected per backend.
func adDialect(cfg config.DirectoryConfig) (service.Dialect, error) {
	users, err := containerKey(cfg.UsersContainer)
	if err != nil {
		return nil, fmt.Errorf("USERS_CONTAINER: %w", err)
	}
	groups, err := containerKey(cfg.GroupsContainer)
	if err != nil {
		return nil, fmt.Errorf("GROUPS_CONTAINER: %w", err)
	}
	return service.NewADDialect(service.ADDialectConfig{
		UPNSuffix:        cfg.UPNSuffix,
		LockoutThreshold: cfg.LockoutThreshold,
		Users:            users,
		Groups:           groups,
	}), nil
}

// containerKey parses a single RDN such as "OU=people" or "CN=Users". An empty
// value leaves the dialect default in place.
func containerKey(rdn string) (directory.DNKey, error) {
	rdn = strings.TrimSpace(rdn)
	if rdn == "" {
		return directory.DNKey{}, nil
	}
	if strings.Contains(rdn, ",") {
		return directory.DNKey{}, fmt.Errorf("%q must be a single OU= or CN= component", rdn)
	}
	// ResolveDNKey reads the parent of an entry, so give it a throwaway child.
	return directory.ResolveDNKey("cn=x," + rdn)
}
