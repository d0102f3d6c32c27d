package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dirkeeper/internal/domain/directory"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/mocks"
	"github.com/target/dirkeeper/internal/ports"
	"go.uber.org/mock/gomock"
)

func strPtr(s string) *string { return &s }

func TestNewDirectoryService_Panics(t *testing.T) {
	assert.Panics(t, func() { NewDirectoryService(DirectoryServiceOptions{Dialect: NewLDAPDialect(LDAPDialectConfig{})}) })
	assert.Panics(t, func() { NewDirectoryService(DirectoryServiceOptions{Directory: newLDAPFixture(t)}) })
}

func TestDirectoryService_CreateUser_RoundTripInOrgUnit(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	created, err := svc.CreateUser(ctx, directory.CreateUserRequest{
		Username:  "dave",
		FirstName: "Dave",
		LastName:  "Dunn",
		Email:     "dave@example.com",
		OrgUnit:   "engineering",
		Password:  "dave-pw",
	})
	require.NoError(t, err)
	assert.True(t, directory.EqualDN("CN=dave,OU=engineering,"+ldapBase, created.DN))
	assert.Equal(t, "engineering", created.OrgUnit)
	assert.Equal(t, "Dave Dunn", created.DisplayName)
	assert.Equal(t, directory.AccountStatus{Enabled: true}, created.Status)

	got, err := svc.GetUser(ctx, "dave", "engineering")
	require.NoError(t, err)
	assert.Equal(t, created.DN, got.DN)

	_, err = svc.GetUser(ctx, "dave", "people")
	assert.True(t, apperrors.IsNotFound(err), "search is scoped to the OU")

	p, err := svc.Authenticate(ctx, "dave", "dave-pw")
	require.NoError(t, err)
	assert.Equal(t, "dave@example.com", p.Email)
	requireReleased(t, d)
}

func TestDirectoryService_CreateUser_DuplicateIsConflict(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)

	_, err := svc.CreateUser(context.Background(), directory.CreateUserRequest{Username: "alice", LastName: "Other", OrgUnit: "engineering"})
	require.Error(t, err)
	assert.True(t, apperrors.IsConflict(err))

	_, ok := d.Entry("CN=alice,OU=engineering," + ldapBase)
	assert.False(t, ok, "nothing is written on conflict")
	e, _ := d.Entry(aliceDN)
	assert.Equal(t, "Anders", e.Get("sn"), "existing entry is untouched")
	requireReleased(t, d)
}

func TestDirectoryService_CreateUser_DirectoryExistsIsConflict(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	d.FailOn("add", ports.ErrEntryAlreadyExists)

	_, err := svc.CreateUser(context.Background(), directory.CreateUserRequest{Username: "erin", LastName: "Eve"})
	assert.True(t, apperrors.IsConflict(err))
	requireReleased(t, d)
}

func TestDirectoryService_CreateUser_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   directory.CreateUserRequest
		field string
	}{
		{"empty username", directory.CreateUserRequest{LastName: "x"}, "username"},
		{"bad username", directory.CreateUserRequest{Username: "a b", LastName: "x"}, "username"},
		{"filter metacharacters", directory.CreateUserRequest{Username: "a*)(uid=*", LastName: "x"}, "username"},
		{"missing last name", directory.CreateUserRequest{Username: "ok"}, "last_name"},
		{"bad email", directory.CreateUserRequest{Username: "ok", LastName: "x", Email: "not-an-email"}, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newLDAPFixture(t)
			svc := newLDAPService(t, d)
			_, err := svc.CreateUser(context.Background(), tt.req)
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
			assert.Equal(t, tt.field, apperrors.GetField(err))
			assert.Equal(t, 0, d.Binds, "validation happens before any bind")
		})
	}
}

func TestDirectoryService_CreateUser_AD(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	u, err := svc.CreateUser(ctx, directory.CreateUserRequest{Username: "sjones", FirstName: "Sam", LastName: "Jones", OrgUnit: "Sales"})
	require.NoError(t, err)
	assert.True(t, directory.EqualDN("CN=Sam Jones,OU=Sales,"+adBase, u.DN))
	assert.Equal(t, "sjones", u.Username)
	assert.False(t, u.Status.Enabled, "accounts without a password are created disabled")

	e, ok := d.Entry(u.DN)
	require.True(t, ok)
	assert.Equal(t, "514", e.Get("userAccountControl"))
	assert.Equal(t, "sjones@corp.example.com", e.Get("userPrincipalName"))

	u2, err := svc.CreateUser(ctx, directory.CreateUserRequest{Username: "kli", LastName: "Li", Password: "Secret1!"})
	require.NoError(t, err)
	assert.True(t, directory.EqualDN("CN=Li,CN=Users,"+adBase, u2.DN))
	assert.True(t, u2.Status.Enabled)
	e2, _ := d.Entry(u2.DN)
	assert.Equal(t, "512", e2.Get("userAccountControl"))
	assert.NotEmpty(t, e2.Get("unicodePwd"))
	requireReleased(t, d)
}

func TestDirectoryService_Authenticate(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	p, err := svc.Authenticate(ctx, "alice", "alice-pw")
	require.NoError(t, err)
	assert.Equal(t, aliceDN, p.DN)
	assert.Equal(t, "alice", p.Username)

	_, err = svc.Authenticate(ctx, "alice", "wrong")
	assert.True(t, apperrors.IsUnauthorized(err))

	_, err = svc.Authenticate(ctx, "nobody", "x")
	assert.True(t, apperrors.IsUnauthorized(err), "unknown principals look like bad passwords")
	assert.Equal(t, "invalid credentials", apperrors.PublicMessage(err, ""))

	_, err = svc.Authenticate(ctx, "", "")
	assert.True(t, apperrors.IsValidation(err))
	requireReleased(t, d)
}

func TestDirectoryService_ReleasesBindOnFailure(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	d.FailOn("search", ports.ErrDirectoryUnavailable)
	_, err := svc.ListUsers(ctx, "")
	assert.True(t, apperrors.IsUnavailable(err))
	requireReleased(t, d)

	d.FailOn("bind", ports.ErrDirectoryUnavailable)
	_, err = svc.GetUser(ctx, "alice", "")
	assert.True(t, apperrors.IsUnavailable(err))
	requireReleased(t, d)

	d.FailOn("modify", ports.ErrInsufficientAccess)
	_, err = svc.UpdateUser(ctx, "alice", directory.UpdateUserRequest{Phone: strPtr("555")})
	assert.True(t, apperrors.IsInternal(err))
	assert.Equal(t, "directory operation failed", apperrors.PublicMessage(err, ""))
	requireReleased(t, d)

	// The next request gets the connection.
	_, err = svc.GetUser(ctx, "alice", "")
	require.NoError(t, err)
}

func TestDirectoryService_UnbindsOnEveryPath(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)
	conn := mocks.NewMockBoundConn(ctrl)
	svc := NewDirectoryService(DirectoryServiceOptions{Directory: dir, Dialect: NewLDAPDialect(LDAPDialectConfig{})})
	ctx := context.Background()

	dir.EXPECT().BaseDN().Return(ldapBase).AnyTimes()

	// Search failure.
	gomock.InOrder(
		dir.EXPECT().BindAdmin(gomock.Any()).Return(conn, nil),
		conn.EXPECT().Search(gomock.Any(), gomock.Any()).Return(nil, errors.New("socket closed")),
		conn.EXPECT().Unbind(),
	)
	_, err := svc.GetUser(ctx, "alice", "")
	assert.True(t, apperrors.IsInternal(err))

	// Rebind failure.
	gomock.InOrder(
		dir.EXPECT().BindAdmin(gomock.Any()).Return(conn, nil),
		conn.EXPECT().Search(gomock.Any(), gomock.Any()).Return([]directory.Entry{{DN: aliceDN, Attributes: map[string][]string{"uid": {"alice"}}}}, nil),
		conn.EXPECT().Rebind(gomock.Any(), aliceDN, "bad").Return(ports.ErrAuthenticationFailed),
		conn.EXPECT().Unbind(),
	)
	_, err = svc.Authenticate(ctx, "alice", "bad")
	assert.True(t, apperrors.IsUnauthorized(err))

	// Bind failure never unbinds; a rejected service account is not the caller's fault.
	dir.EXPECT().BindAdmin(gomock.Any()).Return(nil, ports.ErrAuthenticationFailed)
	_, err = svc.ListGroups(ctx, "")
	assert.True(t, apperrors.IsInternal(err))
}

func TestDirectoryService_LookupByEmployeeID(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	p, err := svc.LookupByEmployeeID(ctx, "E2003")
	require.NoError(t, err)
	assert.Equal(t, markDN, p.DN)
	assert.Equal(t, "mroe", p.Username)

	_, err = svc.LookupByEmployeeID(ctx, "E9999")
	assert.True(t, apperrors.IsNotFound(err))
	requireReleased(t, d)
}

func TestDirectoryService_MemberGroups(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	groups, err := svc.MemberGroups(ctx, janeDN)
	require.NoError(t, err)
	assert.Len(t, groups, 2)
	assert.Contains(t, groups, "CN=Domain Admins,CN=Users,"+adBase)

	none, err := svc.MemberGroups(ctx, "CN=Nobody,CN=Users,"+adBase)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDirectoryService_UpdateUser(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	u, err := svc.UpdateUser(ctx, "alice", directory.UpdateUserRequest{
		FirstName: strPtr("Alicia"),
		Email:     strPtr(""),
		Phone:     strPtr("555-0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", u.FirstName)
	assert.Equal(t, "Alicia Anders", u.DisplayName)
	assert.Equal(t, "555-0100", u.Phone)
	assert.Empty(t, u.Email, "empty string clears the attribute")

	_, err = svc.UpdateUser(ctx, "alice", directory.UpdateUserRequest{})
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.UpdateUser(ctx, "alice", directory.UpdateUserRequest{LastName: strPtr(" ")})
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.UpdateUser(ctx, "ghost", directory.UpdateUserRequest{Phone: strPtr("1")})
	assert.True(t, apperrors.IsNotFound(err))
	requireReleased(t, d)
}

func TestDirectoryService_DeleteUser(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	require.NoError(t, svc.DeleteUser(ctx, "carol"))
	_, err := svc.GetUser(ctx, "carol", "")
	assert.True(t, apperrors.IsNotFound(err))
	assert.True(t, apperrors.IsNotFound(svc.DeleteUser(ctx, "carol")))
	requireReleased(t, d)
}

func TestDirectoryService_ResetPassword(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	require.NoError(t, svc.ResetPassword(ctx, "alice", "new-pw"))
	_, err := svc.Authenticate(ctx, "alice", "new-pw")
	require.NoError(t, err)
	assert.True(t, apperrors.IsValidation(svc.ResetPassword(ctx, "alice", "")))

	ad := newADFixture(t)
	adSvc := newADService(t, ad)
	err = adSvc.ResetPassword(ctx, "jdoe", `has"quote`)
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 0, ad.Binds)
	require.NoError(t, adSvc.ResetPassword(ctx, "jdoe", "Str0ng!"))
	e, _ := ad.Entry(janeDN)
	assert.NotEmpty(t, e.Get("unicodePwd"))
	requireReleased(t, d)
	requireReleased(t, ad)
}

func TestDirectoryService_SetUserStatus_LDAP(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	steps := []struct {
		action directory.StatusAction
		want   directory.AccountStatus
	}{
		{directory.ActionLock, directory.AccountStatus{Enabled: true, Locked: true}},
		{directory.ActionLock, directory.AccountStatus{Enabled: true, Locked: true}},
		{directory.ActionDisable, directory.AccountStatus{Enabled: false, Locked: true}},
		{directory.ActionUnlock, directory.AccountStatus{Enabled: false, Locked: false}},
		{directory.ActionEnable, directory.AccountStatus{Enabled: true, Locked: false}},
		{directory.ActionEnable, directory.AccountStatus{Enabled: true, Locked: false}},
	}
	for _, st := range steps {
		u, err := svc.SetUserStatus(ctx, "alice", st.action)
		require.NoError(t, err, st.action)
		assert.Equal(t, st.want, u.Status, st.action)
	}

	_, err := svc.SetUserStatus(ctx, "alice", "freeze")
	assert.True(t, apperrors.IsValidation(err))
	requireReleased(t, d)
}

func TestDirectoryService_SetUserStatus_ADLockDisables(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	u, err := svc.SetUserStatus(ctx, "jdoe", directory.ActionLock)
	require.NoError(t, err)
	assert.False(t, u.Status.Enabled, "AD lock is expressed as ACCOUNTDISABLE")
	e, _ := d.Entry(janeDN)
	assert.Equal(t, "514", e.Get("userAccountControl"))

	// A real lockout from the domain policy.
	d.Seed(janeDN, map[string][]string{
		"objectClass": {"user"}, "objectCategory": {"person"}, "cn": {"Jane Doe"}, "sAMAccountName": {"jdoe"},
		"userAccountControl": {"514"}, "lockoutTime": {"133000000000000000"},
	}, "jane-pw")
	u, err = svc.GetUser(ctx, "jdoe", "")
	require.NoError(t, err)
	assert.Equal(t, directory.AccountStatus{Enabled: false, Locked: true}, u.Status)

	u, err = svc.SetUserStatus(ctx, "jdoe", directory.ActionUnlock)
	require.NoError(t, err)
	assert.Equal(t, directory.AccountStatus{Enabled: true, Locked: false}, u.Status)
	e, _ = d.Entry(janeDN)
	assert.Equal(t, "0", e.Get("lockoutTime"))
	assert.Equal(t, "512", e.Get("userAccountControl"))
	requireReleased(t, d)
}

func TestDirectoryService_ListGroupsByClass(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	admin, err := svc.ListGroups(ctx, directory.GroupAdmin)
	require.NoError(t, err)
	require.Len(t, admin, 1)
	assert.Equal(t, "admins", admin[0].Name)

	general, err := svc.ListGroups(ctx, directory.GroupGeneral)
	require.NoError(t, err)
	require.Len(t, general, 2)
	assert.Equal(t, "empty", general[0].Name)
	assert.Empty(t, general[0].Members, "placeholder is never reported as a member")
	assert.Equal(t, "staff", general[1].Name)

	all, err := svc.ListGroups(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDirectoryService_GroupScopeEnforced(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()
	adminsDN := "CN=admins,OU=groups," + ldapBase

	_, err := svc.AddMembers(ctx, "admins", directory.GroupGeneral, []string{"bob"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	e, _ := d.Entry(adminsDN)
	assert.Equal(t, []string{aliceDN}, e.Values("member"), "membership unchanged")

	_, err = svc.RemoveMembers(ctx, "admins", directory.GroupGeneral, []string{"alice"})
	assert.True(t, apperrors.IsValidation(err))
	assert.True(t, apperrors.IsValidation(svc.DeleteGroup(ctx, "admins", directory.GroupGeneral)))
	_, ok := d.Entry(adminsDN)
	assert.True(t, ok)

	_, err = svc.AddMembers(ctx, "staff", directory.GroupAdmin, []string{"carol"})
	assert.True(t, apperrors.IsValidation(err))

	g, err := svc.AddMembers(ctx, "admins", directory.GroupAdmin, []string{"bob"})
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)
	requireReleased(t, d)
}

func TestDirectoryService_MembersKeepPlaceholder(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()
	emptyDN := "CN=empty,OU=groups," + ldapBase
	bobDN := "CN=bob,OU=people," + ldapBase

	g, err := svc.AddMembers(ctx, "empty", directory.GroupGeneral, []string{"bob"})
	require.NoError(t, err)
	assert.Equal(t, []string{bobDN}, g.Members)
	e, _ := d.Entry(emptyDN)
	assert.Equal(t, []string{bobDN}, e.Values("member"), "placeholder replaced by the first member")

	g, err = svc.RemoveMembers(ctx, "empty", directory.GroupGeneral, []string{bobDN})
	require.NoError(t, err)
	assert.Empty(t, g.Members)
	e, _ = d.Entry(emptyDN)
	assert.Equal(t, []string{""}, e.Values("member"), "placeholder restored for the last removal")
	requireReleased(t, d)
}

func TestDirectoryService_AddMembers_SkipsAndRejects(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	g, err := svc.AddMembers(ctx, "staff", directory.GroupGeneral, []string{"alice", "ALICE"})
	require.NoError(t, err)
	assert.Len(t, g.Members, 2, "existing members are skipped")

	_, err = svc.AddMembers(ctx, "staff", directory.GroupGeneral, []string{"ghost"})
	assert.True(t, apperrors.IsNotFound(err))
	_, err = svc.AddMembers(ctx, "staff", directory.GroupGeneral, nil)
	assert.True(t, apperrors.IsValidation(err))
	_, err = svc.AddMembers(ctx, "nope", directory.GroupGeneral, []string{"alice"})
	assert.True(t, apperrors.IsNotFound(err))

	g, err = svc.RemoveMembers(ctx, "staff", directory.GroupGeneral, []string{"carol"})
	require.NoError(t, err)
	assert.Len(t, g.Members, 2, "non-members are skipped")
	requireReleased(t, d)
}

func TestDirectoryService_CreateAndDeleteGroup(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, directory.CreateGroupRequest{Name: "Support", Description: "Tier 1"})
	require.NoError(t, err)
	assert.Equal(t, directory.GroupGeneral, g.Class)
	assert.Equal(t, "global security", g.TypeLabel)
	assert.Empty(t, g.Members)

	_, err = svc.CreateGroup(ctx, directory.CreateGroupRequest{Name: "Support"})
	assert.True(t, apperrors.IsConflict(err))
	_, err = svc.CreateGroup(ctx, directory.CreateGroupRequest{Name: "x", Class: "root"})
	assert.True(t, apperrors.IsValidation(err))

	require.NoError(t, svc.DeleteGroup(ctx, "Support", directory.GroupGeneral))
	_, err = svc.GetGroup(ctx, "Support")
	assert.True(t, apperrors.IsNotFound(err))

	admins, err := svc.GetGroup(ctx, "Domain Admins")
	require.NoError(t, err)
	assert.Equal(t, directory.GroupAdmin, admins.Class)
	requireReleased(t, d)
}

func TestDirectoryService_CreateAdminGroup_AD(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	g, err := svc.CreateGroup(ctx, directory.CreateGroupRequest{Name: "Helpdesk Admins", Class: directory.GroupAdmin})
	require.NoError(t, err)
	assert.Equal(t, directory.GroupAdmin, g.Class)
	e, ok := d.Entry(g.DN)
	require.True(t, ok)
	assert.Equal(t, []string{"admin"}, e.Values("adminDescription"))

	admins, err := svc.ListGroups(ctx, directory.GroupAdmin)
	require.NoError(t, err)
	var names []string
	for _, a := range admins {
		names = append(names, a.Name)
	}
	assert.Equal(t, []string{"Domain Admins", "Helpdesk Admins"}, names)

	_, err = svc.AddMembers(ctx, "Helpdesk Admins", directory.GroupGeneral, []string{"mroe"})
	assert.True(t, apperrors.IsValidation(err), "general scope cannot touch the new admin group")
	assert.True(t, apperrors.IsValidation(svc.DeleteGroup(ctx, "Helpdesk Admins", directory.GroupGeneral)))
	require.NoError(t, svc.DeleteGroup(ctx, "Helpdesk Admins", directory.GroupAdmin))
	requireReleased(t, d)
}

func TestDirectoryService_LockGroup_AD(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()

	res, err := svc.LockGroup(ctx, "Sales Team", true)
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
	assert.Empty(t, res.Failed)
	for _, dn := range []string{janeDN, markDN} {
		e, _ := d.Entry(dn)
		assert.Equal(t, "514", e.Get("userAccountControl"), dn)
	}

	res, err = svc.LockGroup(ctx, "Sales Team", false)
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
	e, _ := d.Entry(markDN)
	assert.Equal(t, "512", e.Get("userAccountControl"))

	_, err = svc.LockGroup(ctx, "Domain Admins", true)
	assert.True(t, apperrors.IsValidation(err), "admin groups are out of scope for group lock")
	requireReleased(t, d)
}

func TestDirectoryService_LockGroup_SkipsNonPersonMembers(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	ctx := context.Background()
	computerDN := "CN=WS01,CN=Computers," + adBase
	nestedDN := "CN=Sales Interns,CN=Users," + adBase
	d.Seed(computerDN, map[string][]string{
		"objectClass": {"top", "person", "organizationalPerson", "user", "computer"}, "objectCategory": {"computer"},
		"cn": {"WS01"}, "userAccountControl": {"4096"},
	}, "")
	d.Seed(nestedDN, map[string][]string{
		"objectClass": {"top", "group"}, "cn": {"Sales Interns"}, "groupType": {"-2147483646"},
	}, "")
	d.Seed("CN=Floor 2,CN=Users,"+adBase, map[string][]string{
		"objectClass": {"top", "group"}, "cn": {"Floor 2"}, "sAMAccountName": {"Floor 2"},
		"groupType": {"-2147483646"}, "member": {janeDN, computerDN, nestedDN},
	}, "")

	res, err := svc.LockGroup(ctx, "Floor 2", true)
	require.NoError(t, err)
	assert.Equal(t, []string{janeDN}, res.Updated)
	assert.ElementsMatch(t, []string{computerDN, nestedDN}, res.Skipped)
	assert.Empty(t, res.Failed)
	e, _ := d.Entry(computerDN)
	assert.Equal(t, "4096", e.Get("userAccountControl"), "computer accounts are left alone")
	requireReleased(t, d)
}

func TestDirectoryService_LockGroup_PartialFailure(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)
	d.FailOn("modify", ports.ErrInsufficientAccess)

	res, err := svc.LockGroup(context.Background(), "Sales Team", true)
	require.Error(t, err)
	assert.True(t, apperrors.IsInternal(err))
	assert.ErrorIs(t, err, ports.ErrInsufficientAccess)
	assert.Equal(t, []string{janeDN}, res.Failed)
	assert.Equal(t, []string{markDN}, res.Updated, "remaining members are still processed")
	requireReleased(t, d)
}

func TestDirectoryService_OrgUnits(t *testing.T) {
	d := newLDAPFixture(t)
	svc := newLDAPService(t, d)
	ctx := context.Background()

	ou, err := svc.CreateOrgUnit(ctx, directory.CreateOrgUnitRequest{Name: "finance", Description: "Money"})
	require.NoError(t, err)
	assert.True(t, directory.EqualDN("OU=finance,"+ldapBase, ou.DN))

	_, err = svc.CreateOrgUnit(ctx, directory.CreateOrgUnitRequest{Name: "finance"})
	assert.True(t, apperrors.IsConflict(err))
	_, err = svc.CreateOrgUnit(ctx, directory.CreateOrgUnitRequest{Name: " "})
	assert.True(t, apperrors.IsValidation(err))

	units, err := svc.ListOrgUnits(ctx)
	require.NoError(t, err)
	var names []string
	for _, u := range units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"engineering", "finance", "groups", "people"}, names)

	assert.True(t, apperrors.IsValidation(svc.DeleteOrgUnit(ctx, "engineering")), "non-empty OU")
	require.NoError(t, svc.DeleteOrgUnit(ctx, "finance"))
	assert.True(t, apperrors.IsNotFound(svc.DeleteOrgUnit(ctx, "finance")))
	requireReleased(t, d)
}

func TestDirectoryService_UserGroups(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)

	groups, err := svc.UserGroups(context.Background(), "mroe")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Sales Team", groups[0].Name)
	requireReleased(t, d)
}

func TestDirectoryService_DomainInfo(t *testing.T) {
	d := newADFixture(t)
	svc := newADService(t, d)

	info := svc.DomainInfo()
	assert.Equal(t, directory.DomainInfo{Backend: "ad", BaseDN: adBase, Domain: "corp.example.com"}, info)
	assert.Equal(t, 0, d.Binds)
}
