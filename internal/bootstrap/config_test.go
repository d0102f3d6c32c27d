package bootstrap

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/dirkeeper/config"
)

func TestInitLogger_Level(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := initLogger(&buf, slog.LevelWarn)
	logger.Info("hidden")
	logger.Warn("shown", "backend", "ad")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
	assert.Contains(t, buf.String(), `"backend":"ad"`)
	assert.Same(t, logger, slog.Default())
	assert.False(t, slog.Default().Enabled(context.Background(), slog.LevelInfo))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("LDAP_URL", "ldap://openldap:389")
	t.Setenv("LDAP_BASE_DN", "dc=example,dc=com")
	t.Setenv("LDAP_BIND_DN", "cn=admin,dc=example,dc=com")
	t.Setenv("LDAP_BIND_PASSWORD", "secret")
	t.Setenv("SESSION_STORE", "redis")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.LDAP.Configured())
	assert.False(t, cfg.AD.Configured())
	assert.Equal(t, config.SessionStoreRedis, cfg.Sessions.Store)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("AD_URL", "https://dc1.corp.example.com")
	t.Setenv("AD_BASE_DN", "DC=corp,DC=example,DC=com")
	t.Setenv("AD_BIND_DN", "CN=svc,CN=Users,DC=corp,DC=example,DC=com")
	t.Setenv("AD_BIND_PASSWORD", "secret")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
