package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.SSOProvider  = (*MockSSOProvider)(nil)
	_ ports.SessionStore = (*MemorySessionStore)(nil)
	_ ports.RoleMapper   = (*StaticRoleMapper)(nil)
)

// MockSSOProvider simulates an IdP for tests with deterministic request ids.
type MockSSOProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error)
	CompleteFunc func(ctx context.Context, in ports.CompleteInput) (domainauth.Profile, error)
	LogoutFunc   func(ctx context.Context, in ports.LogoutInput) (string, error)

	// Deterministic values for predictable testing
	AuthURL     string
	LogoutBase  string
	StatePrefix string
	Profile     domainauth.Profile

	mu        sync.Mutex
	callCount int
	// Logouts records every logout request built.
	Logouts []ports.LogoutInput
}

// NewMockSSOProvider creates a MockSSOProvider with sensible defaults.
func NewMockSSOProvider() *MockSSOProvider {
	return &MockSSOProvider{
		AuthURL:     "https://mock-idp/sso",
		LogoutBase:  "https://mock-idp/slo",
		StatePrefix: "req",
		Profile: domainauth.Profile{
			Method:       domainauth.AuthMethodSAML,
			NameID:       "mock.user@example.com",
			SessionIndex: "idx-1",
			Attributes:   map[string][]string{"employeeID": {"E1001"}},
		},
	}
}

func (m *MockSSOProvider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}
	m.mu.Lock()
	m.callCount++
	n := m.callCount
	m.mu.Unlock()

	prefix := m.StatePrefix
	if prefix == "" {
		prefix = "req"
	}
	state := fmt.Sprintf("%s-%d", prefix, n)
	return ports.BeginResult{AuthURL: m.AuthURL + "?RelayState=" + in.RelayState, State: state}, nil
}

func (m *MockSSOProvider) Complete(ctx context.Context, in ports.CompleteInput) (domainauth.Profile, error) {
	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, in)
	}
	if in.Form.Get("SAMLResponse") == "" && in.Code == "" {
		return domainauth.Profile{}, errors.New("missing response")
	}
	prof := m.Profile
	if prof.NotOnOrAfter.IsZero() {
		prof.NotOnOrAfter = time.Now().Add(time.Hour)
	}
	return prof, nil
}

func (m *MockSSOProvider) LogoutURL(ctx context.Context, in ports.LogoutInput) (string, error) {
	m.mu.Lock()
	m.Logouts = append(m.Logouts, in)
	m.mu.Unlock()
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, in)
	}
	if m.LogoutBase == "" {
		return "", nil
	}
	return m.LogoutBase + "?RelayState=" + in.RelayState, nil
}

// MemorySessionStore is an in-memory session store for unit tests. Unlike the
// production store it never filters by expiry, so the caller's clock decides.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session
	// FailSave, when set, is returned by every Save.
	FailSave error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.FailSave != nil {
		return m.FailSave
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[sess.ID]; ok {
		return errors.New("session id already exists")
	}
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ports.ErrSessionNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return ports.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

// Len returns the number of stored records.
func (m *MemorySessionStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Has reports whether id is stored.
func (m *MemorySessionStore) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[id]
	return ok
}

// StaticRoleMapper grants admin when any group DN's first RDN value matches AdminGroup.
type StaticRoleMapper struct {
	AdminGroup string
}

func (m StaticRoleMapper) Map(groups []string) domainauth.Role {
	for _, g := range groups {
		name := g
		if rdn, _, ok := strings.Cut(g, ","); ok {
			name = rdn
		}
		if _, v, ok := strings.Cut(name, "="); ok {
			name = v
		}
		if m.AdminGroup != "" && strings.EqualFold(name, m.AdminGroup) {
			return domainauth.RoleAdmin
		}
	}
	return domainauth.RoleUser
}
