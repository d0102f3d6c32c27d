package service

import (
	"log/slog"
	"testing"

	"github.com/target/dirkeeper/internal/adapters/authroles"
	"github.com/target/dirkeeper/internal/mocks/dirfake"
)

const (
	ldapBase = "dc=example,dc=com"
	adBase   = "DC=corp,DC=example,DC=com"

	aliceDN = "CN=alice,OU=people," + ldapBase
	janeDN  = "CN=Jane Doe,CN=Users," + adBase
	markDN  = "CN=Mark Roe,OU=Sales," + adBase
)

var testAdminGroups = []string{"Domain Admins", "admins"}

// newLDAPFixture seeds an OpenLDAP-shaped tree:
//
//	ou=people: alice (E1001, password "alice-pw"), bob (locked)
//	ou=engineering: carol
//	ou=groups: admins {alice}, staff {alice, bob}, empty {placeholder}
func newLDAPFixture(t *testing.T) *dirfake.Directory {
	t.Helper()
	d := dirfake.New("ldap", ldapBase)
	for _, ou := range []string{"people", "groups", "engineering"} {
		d.Seed("OU="+ou+","+ldapBase, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {ou}}, "")
	}
	person := []string{"top", "person", "organizationalPerson", "inetOrgPerson"}
	d.Seed(aliceDN, map[string][]string{
		"objectClass": person, "cn": {"alice"}, "uid": {"alice"}, "sn": {"Anders"}, "givenName": {"Alice"},
		"mail": {"alice@example.com"}, "employeeNumber": {"E1001"},
	}, "alice-pw")
	d.Seed("CN=bob,OU=people,"+ldapBase, map[string][]string{
		"objectClass": person, "cn": {"bob"}, "uid": {"bob"}, "sn": {"Brown"},
		"pwdAccountLockedTime": {"000001010000Z"},
	}, "bob-pw")
	d.Seed("CN=carol,OU=engineering,"+ldapBase, map[string][]string{
		"objectClass": person, "cn": {"carol"}, "uid": {"carol"}, "sn": {"Cole"}, "employeeNumber": {"E1003"},
	}, "")
	group := []string{"top", "groupOfNames"}
	d.Seed("CN=admins,OU=groups,"+ldapBase, map[string][]string{
		"objectClass": group, "cn": {"admins"}, "member": {aliceDN},
	}, "")
	d.Seed("CN=staff,OU=groups,"+ldapBase, map[string][]string{
		"objectClass": group, "cn": {"staff"}, "member": {aliceDN, "CN=bob,OU=people," + ldapBase},
	}, "")
	d.Seed("CN=empty,OU=groups,"+ldapBase, map[string][]string{
		"objectClass": group, "cn": {"empty"}, "member": {""},
	}, "")
	return d
}

// newADFixture seeds an Active Directory-shaped tree:
//
//	CN=Users: jdoe (E2002, enabled), Domain Admins {jdoe}, Sales Team {jdoe, mroe}
//	OU=Sales: mroe (E2003, enabled, not an admin)
func newADFixture(t *testing.T) *dirfake.Directory {
	t.Helper()
	d := dirfake.New("ad", adBase)
	d.Seed("CN=Users,"+adBase, map[string][]string{"objectClass": {"top", "container"}, "cn": {"Users"}}, "")
	d.Seed("OU=Sales,"+adBase, map[string][]string{"objectClass": {"top", "organizationalUnit"}, "ou": {"Sales"}}, "")
	user := []string{"top", "person", "organizationalPerson", "user"}
	d.Seed(janeDN, map[string][]string{
		"objectClass": user, "objectCategory": {"person"}, "cn": {"Jane Doe"}, "sAMAccountName": {"jdoe"},
		"givenName": {"Jane"}, "sn": {"Doe"}, "mail": {"jane@corp.example.com"}, "employeeID": {"E2002"},
		"userAccountControl": {"512"},
	}, "jane-pw")
	d.Seed(markDN, map[string][]string{
		"objectClass": user, "objectCategory": {"person"}, "cn": {"Mark Roe"}, "sAMAccountName": {"mroe"},
		"sn": {"Roe"}, "employeeID": {"E2003"}, "userAccountControl": {"512"},
	}, "mark-pw")
	d.Seed("CN=Domain Admins,CN=Users,"+adBase, map[string][]string{
		"objectClass": {"top", "group"}, "cn": {"Domain Admins"}, "sAMAccountName": {"Domain Admins"},
		"groupType": {"-2147483646"}, "member": {janeDN},
	}, "")
	d.Seed("CN=Sales Team,CN=Users,"+adBase, map[string][]string{
		"objectClass": {"top", "group"}, "cn": {"Sales Team"}, "sAMAccountName": {"Sales Team"},
		"groupType": {"-2147483646"}, "member": {janeDN, markDN},
	}, "")
	return d
}

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

func newLDAPService(t *testing.T, d *dirfake.Directory) *DirectoryService {
	t.Helper()
	return NewDirectoryService(DirectoryServiceOptions{
		Directory: d,
		Dialect:   NewLDAPDialect(LDAPDialectConfig{}),
		Config:    DirectoryServiceConfig{Groups: authroles.NewGroupRoleMapper(testAdminGroups), Logger: testLogger()},
	})
}

func newADService(t *testing.T, d *dirfake.Directory) *DirectoryService {
	t.Helper()
	return NewDirectoryService(DirectoryServiceOptions{
		Directory: d,
		Dialect:   NewADDialect(ADDialectConfig{LockoutThreshold: 5}),
		Config:    DirectoryServiceConfig{Groups: authroles.NewGroupRoleMapper(testAdminGroups), Logger: testLogger()},
	})
}

// requireReleased fails when a test left the directory connection bound.
func requireReleased(t *testing.T, d *dirfake.Directory) {
	t.Helper()
	if d.Held() {
		t.Fatalf("directory connection still bound (binds=%d unbinds=%d)", d.Binds, d.Unbinds)
	}
	if d.Binds != d.Unbinds {
		t.Fatalf("bind/unbind mismatch: binds=%d unbinds=%d", d.Binds, d.Unbinds)
	}
}
