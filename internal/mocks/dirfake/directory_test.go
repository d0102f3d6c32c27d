package dirfake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dirkeeper/internal/domain/directory"
	"github.com/target/dirkeeper/internal/ports"
)

const base = "dc=example,dc=com"

func seeded(t *testing.T) *Directory {
	t.Helper()
	d := New("ldap", base)
	d.Seed("ou=people,"+base, map[string][]string{"objectClass": {"organizationalUnit"}, "ou": {"people"}}, "")
	d.Seed("cn=alice,ou=people,"+base, map[string][]string{
		"objectClass": {"inetOrgPerson"}, "cn": {"alice"}, "uid": {"alice"}, "sn": {"Smith"}, "mail": {"alice@example.com"},
	}, "pw")
	d.Seed("cn=bob,ou=people,"+base, map[string][]string{
		"objectClass": {"inetOrgPerson"}, "cn": {"bob"}, "uid": {"bob"}, "sn": {"Jones"},
	}, "")
	return d
}

func TestSearch_Filters(t *testing.T) {
	d := seeded(t)
	ctx := context.Background()
	conn, err := d.BindAdmin(ctx)
	require.NoError(t, err)
	defer conn.Unbind()

	tests := []struct {
		filter string
		want   int
	}{
		{"(objectClass=inetOrgPerson)", 2},
		{"(&(objectClass=inetOrgPerson)(|(uid=ALICE)(cn=nobody)))", 1},
		{"(!(uid=alice))", 3},
		{"(mail=*)", 1},
		{"(sn=Sm*)", 1},
		{"(sn=*on*)", 1},
		{"(uid=zed)", 0},
	}
	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			got, err := conn.Search(ctx, directory.SearchRequest{BaseDN: base, Filter: tt.filter, Scope: directory.ScopeSub})
			require.NoError(t, err)
			assert.Len(t, got, tt.want)
		})
	}
}

func TestSearch_Scopes(t *testing.T) {
	d := seeded(t)
	ctx := context.Background()
	conn, err := d.BindAdmin(ctx)
	require.NoError(t, err)
	defer conn.Unbind()

	one, err := conn.Search(ctx, directory.SearchRequest{BaseDN: base, Scope: directory.ScopeOne})
	require.NoError(t, err)
	assert.Len(t, one, 1, "only ou=people sits directly under the base")

	baseOnly, err := conn.Search(ctx, directory.SearchRequest{BaseDN: "CN=Alice, OU=People," + base, Scope: directory.ScopeBase, Attributes: []string{"mail"}})
	require.NoError(t, err)
	require.Len(t, baseOnly, 1)
	assert.Equal(t, map[string][]string{"mail": {"alice@example.com"}}, baseOnly[0].Attributes)
}

func TestBind_HoldsSingleConnection(t *testing.T) {
	d := seeded(t)
	assert.Equal(t, 0, d.Dials, "no connection before first bind")

	conn, err := d.BindAdmin(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Held())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = d.BindAdmin(ctx)
	require.ErrorIs(t, err, ports.ErrDirectoryUnavailable)

	conn.Unbind()
	conn.Unbind()
	assert.False(t, d.Held())
	assert.Equal(t, 1, d.Dials)
	assert.Equal(t, d.Binds, d.Unbinds, "the timed-out bind never acquired")
}

func TestBind_Credentials(t *testing.T) {
	d := seeded(t)
	ctx := context.Background()

	_, err := d.Bind(ctx, "cn=alice,ou=people,"+base, "wrong")
	require.ErrorIs(t, err, ports.ErrAuthenticationFailed)
	assert.False(t, d.Held(), "failed bind releases the connection")

	_, err = d.Bind(ctx, "cn=bob,ou=people,"+base, "")
	require.ErrorIs(t, err, ports.ErrAuthenticationFailed, "empty credential is never accepted")

	conn, err := d.Bind(ctx, "cn=alice,ou=people,"+base, "pw")
	require.NoError(t, err)
	require.NoError(t, conn.Rebind(ctx, d.adminDN, d.adminPW))
	conn.Unbind()
}

func TestWrites(t *testing.T) {
	d := seeded(t)
	ctx := context.Background()
	conn, err := d.BindAdmin(ctx)
	require.NoError(t, err)
	defer conn.Unbind()

	dn := "cn=carol,ou=people," + base
	require.NoError(t, conn.Add(ctx, dn, map[string][]string{"objectClass": {"inetOrgPerson"}, "cn": {"carol"}, "empty": {}}))
	require.ErrorIs(t, conn.Add(ctx, dn, nil), ports.ErrEntryAlreadyExists)
	require.ErrorIs(t, conn.Add(ctx, "cn=x,ou=missing,"+base, nil), ports.ErrEntryNotFound)

	e, ok := d.Entry(dn)
	require.True(t, ok)
	assert.NotContains(t, e.Attributes, "empty")

	require.NoError(t, conn.Modify(ctx, dn, []directory.Change{
		directory.Replace("mail", "carol@example.com"),
		{Op: directory.ChangeAdd, Attribute: "description", Values: []string{"a", "b"}},
	}))
	require.NoError(t, conn.Modify(ctx, dn, []directory.Change{{Op: directory.ChangeDelete, Attribute: "description", Values: []string{"a"}}}))
	e, _ = d.Entry(dn)
	assert.Equal(t, []string{"b"}, e.Values("description"))

	err = conn.Modify(ctx, dn, []directory.Change{{Op: directory.ChangeDelete, Attribute: "description", Values: []string{"zzz"}}})
	require.ErrorIs(t, err, ports.ErrEntryNotFound)

	require.ErrorIs(t, conn.Delete(ctx, "ou=people,"+base), ports.ErrConstraintViolation, "non-leaf delete")
	require.NoError(t, conn.Delete(ctx, dn))
	_, ok = d.Entry(dn)
	assert.False(t, ok)
}

func TestFailOn(t *testing.T) {
	d := seeded(t)
	ctx := context.Background()
	boom := errors.New("boom")
	d.FailOn("search", boom)

	conn, err := d.BindAdmin(ctx)
	require.NoError(t, err)
	defer conn.Unbind()

	_, err = conn.Search(ctx, directory.SearchRequest{BaseDN: base})
	require.ErrorIs(t, err, boom)
	_, err = conn.Search(ctx, directory.SearchRequest{BaseDN: base})
	require.NoError(t, err, "failures fire once")
}
