package authroles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
)

func TestGroupRoleMapper_Map(t *testing.T) {
	m := NewGroupRoleMapper([]string{"Domain Admins", "CN=dirkeeper-admins,OU=Groups,DC=example,DC=com", " "})

	tests := []struct {
		name   string
		groups []string
		want   domainauth.Role
	}{
		{name: "admin by dn", groups: []string{"CN=Staff,OU=Groups,DC=example,DC=com", "CN=Domain Admins,CN=Users,DC=example,DC=com"}, want: domainauth.RoleAdmin},
		{name: "admin by name case-insensitive", groups: []string{"DIRKEEPER-ADMINS"}, want: domainauth.RoleAdmin},
		{name: "no admin membership", groups: []string{"CN=Staff,OU=Groups,DC=example,DC=com"}, want: domainauth.RoleUser},
		{name: "no memberships", groups: nil, want: domainauth.RoleUser},
		{name: "prefix is not a match", groups: []string{"CN=Domain Admins Backup,DC=example,DC=com"}, want: domainauth.RoleUser},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Map(tt.groups))
		})
	}
}

func TestGroupRoleMapper_Empty(t *testing.T) {
	m := NewGroupRoleMapper(nil)
	assert.Equal(t, domainauth.RoleUser, m.Map([]string{"Domain Admins"}))
	var nilMapper *GroupRoleMapper
	assert.False(t, nilMapper.IsAdminGroup("Domain Admins"))
}
