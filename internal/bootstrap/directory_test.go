package bootstrap

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dirkeeper/config"
	"github.com/target/dirkeeper/internal/adapters/authroles"
	"github.com/target/dirkeeper/internal/adapters/ldapdir"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
)

func ldapConfig() config.DirectoryConfig {
	return config.DirectoryConfig{
		URL:          "ldap://openldap:389",
		BaseDN:       "dc=example,dc=com",
		BindDN:       "cn=admin,dc=example,dc=com",
		BindPassword: "secret",
		Timeout:      time.Second,
	}
}

func adConfig() config.DirectoryConfig {
	return config.DirectoryConfig{
		URL:          "ldaps://dc1.corp.example.com:636",
		BaseDN:       "DC=corp,DC=example,DC=com",
		BindDN:       "CN=svc,CN=Users,DC=corp,DC=example,DC=com",
		BindPassword: "secret",
	}
}

func refusingDialer(dialed *int) ldapdir.Dialer {
	return func(context.Context, ldapdir.Config) (ldapdir.Conn, error) {
		*dialed++
		return nil, assert.AnError
	}
}

func TestContainerKey(t *testing.T) {
	tests := []struct {
		in      string
		want    directory.DNKey
		wantErr bool
	}{
		{"", directory.DNKey{}, false},
		{"OU=people", directory.DNKey{Type: "OU", Value: "people"}, false},
		{" cn=Users ", directory.DNKey{Type: "CN", Value: "Users"}, false},
		{"OU=people,DC=example", directory.DNKey{}, true},
		{"uid=people", directory.DNKey{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := containerKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildDirectories(t *testing.T) {
	var dialed int
	roles := authroles.NewGroupRoleMapper([]string{"Domain Admins"})

	t.Run("none configured", func(t *testing.T) {
		_, err := BuildDirectories(DirectoryDeps{Roles: roles})
		assert.Error(t, err)
	})

	t.Run("both backends, nothing dialed", func(t *testing.T) {
		conn, err := BuildDirectories(DirectoryDeps{
			LDAP:   ldapConfig(),
			AD:     adConfig(),
			Roles:  roles,
			Dialer: refusingDialer(&dialed),
			Logger: slog.New(slog.DiscardHandler),
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []domainauth.AuthType{domainauth.AuthTypeLDAP, domainauth.AuthTypeAD}, conn.Configured())
		assert.Zero(t, dialed)

		dir, err := conn.Resolve(domainauth.AuthTypeAD)
		require.NoError(t, err)
		assert.Equal(t, "ad", dir.Name())
		assert.Equal(t, "DC=corp,DC=example,DC=com", dir.BaseDN())
	})

	t.Run("ldap only", func(t *testing.T) {
		conn, err := BuildDirectories(DirectoryDeps{LDAP: ldapConfig(), Roles: roles, Dialer: refusingDialer(&dialed)})
		require.NoError(t, err)
		_, err = conn.Service(domainauth.AuthTypeAD)
		assert.Error(t, err)
	})

	t.Run("bad container", func(t *testing.T) {
		cfg := ldapConfig()
		cfg.UsersContainer = "OU=people,DC=example"
		_, err := BuildDirectories(DirectoryDeps{LDAP: cfg, Roles: roles})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "USERS_CONTAINER")
	})
}

func TestBuildDirectories_BindFailureIsObserved(t *testing.T) {
	var dialed int
	obs := &opRecorder{}
	conn, err := BuildDirectories(DirectoryDeps{
		LDAP:     ldapConfig(),
		Roles:    authroles.NewGroupRoleMapper(nil),
		Observer: obs,
		Dialer:   refusingDialer(&dialed),
		Logger:   slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)

	dir, err := conn.Resolve(domainauth.AuthTypeLDAP)
	require.NoError(t, err)
	_, err = dir.BindAdmin(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, dialed)
	assert.NotEmpty(t, obs.backends)
	assert.Equal(t, "ldap", obs.backends[0])
}

type opRecorder struct {
	backends []string
}

func (o *opRecorder) ObserveOp(backend, _ string, _ error, _ time.Duration) {
	o.backends = append(o.backends, backend)
}
