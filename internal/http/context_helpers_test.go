package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
)

func TestSessionFromContext(t *testing.T) {
	_, ok := SessionFromContext(context.Background())
	assert.False(t, ok)

	_, ok = SessionFromContext(SetSessionInContext(context.Background(), domainauth.Session{}))
	assert.False(t, ok, "a zero session is not a session")

	sess := domainauth.Session{ID: "abc", Role: domainauth.RoleAdmin, AuthType: domainauth.AuthTypeAD}
	got, ok := SessionFromContext(SetSessionInContext(context.Background(), sess))
	assert.True(t, ok)
	assert.Equal(t, sess, got)
}
