package service

import (
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// DirectoryConnectorOptions groups the per-backend services.
type DirectoryConnectorOptions struct {
	LDAP *DirectoryService
	AD   *DirectoryService
}

// DirectoryConnector selects the backend for an auth-type tag. It holds no
// per-request state; adapters connect lazily on first bind.
type DirectoryConnector struct {
	services map[domainauth.AuthType]*DirectoryService
}

// NewDirectoryConnector constructs a connector. A nil service leaves that backend unconfigured.
func NewDirectoryConnector(opts DirectoryConnectorOptions) *DirectoryConnector {
	c := &DirectoryConnector{services: make(map[domainauth.AuthType]*DirectoryService, 2)}
	if opts.LDAP != nil {
		c.services[domainauth.AuthTypeLDAP] = opts.LDAP
	}
	if opts.AD != nil {
		c.services[domainauth.AuthTypeAD] = opts.AD
	}
	return c
}

// Service returns the DirectoryService for a tag. Anything other than "ldap" or
// "ad" is a validation error and no directory is contacted.
func (c *DirectoryConnector) Service(authType domainauth.AuthType) (*DirectoryService, error) {
	t, err := domainauth.ParseAuthType(string(authType))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid auth type (valid options: ldap, ad)")
	}
	svc, ok := c.services[t]
	if !ok {
		return nil, apperrors.Validationf("auth type %q is not configured", t)
	}
	return svc, nil
}

// Resolve returns the directory adapter for a tag.
func (c *DirectoryConnector) Resolve(authType domainauth.AuthType) (ports.Directory, error) {
	svc, err := c.Service(authType)
	if err != nil {
		return nil, err
	}
	return svc.dir, nil
}

// Configured lists the backends in probe order.
func (c *DirectoryConnector) Configured() []domainauth.AuthType {
	var out []domainauth.AuthType
	for _, t := range domainauth.AuthTypes() {
		if _, ok := c.services[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
