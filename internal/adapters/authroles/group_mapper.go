package authroles

import (
	"strings"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
	"github.com/target/dirkeeper/internal/ports"
)

// GroupRoleMapper grants admin to members of any privileged group. Groups may be
// given as DNs (CN=Domain Admins,CN=Users,...) or bare names; both sides are
// compared by group name, case-insensitively.
type GroupRoleMapper struct {
	admin map[string]struct{}
}

var _ ports.RoleMapper = (*GroupRoleMapper)(nil)

// NewGroupRoleMapper builds a mapper from the configured privileged group names.
func NewGroupRoleMapper(adminGroups []string) *GroupRoleMapper {
	m := &GroupRoleMapper{admin: make(map[string]struct{}, len(adminGroups))}
	for _, g := range adminGroups {
		if k := groupKey(g); k != "" {
			m.admin[k] = struct{}{}
		}
	}
	return m
}

// Map returns RoleAdmin on the first privileged membership, RoleUser otherwise.
// No memberships at all is the ordinary non-admin case.
func (m *GroupRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		if m.IsAdminGroup(g) {
			return domainauth.RoleAdmin
		}
	}
	return domainauth.RoleUser
}

// IsAdminGroup reports whether group (DN or name) is privileged.
func (m *GroupRoleMapper) IsAdminGroup(group string) bool {
	if m == nil {
		return false
	}
	_, ok := m.admin[groupKey(group)]
	return ok
}

// groupKey reduces a DN to its leading RDN value and lowercases it.
func groupKey(g string) string {
	g = strings.TrimSpace(g)
	if strings.Contains(g, "=") {
		g = directory.FirstRDNValue(g)
	}
	return strings.ToLower(strings.TrimSpace(g))
}
