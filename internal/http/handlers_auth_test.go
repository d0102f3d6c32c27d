package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
	"github.com/target/dirkeeper/internal/service"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	selectFunc   func(ctx context.Context, currentID, authType string) (domainauth.Session, error)
	passwordFunc func(ctx context.Context, pendingID, username, password string) (domainauth.Session, error)
	beginFunc    func(ctx context.Context, relay string) (ports.BeginResult, error)
	completeFunc func(ctx context.Context, currentID string, in ports.CompleteInput) (domainauth.Session, error)
	logoutFunc   func(ctx context.Context, id string) (string, error)
	statusFunc   func(ctx context.Context, id string) (service.SessionStatus, error)
}

func (m *mockAuthService) SelectAuthType(ctx context.Context, currentID, authType string) (domainauth.Session, error) {
	if m.selectFunc != nil {
		return m.selectFunc(ctx, currentID, authType)
	}
	return pendingSession(domainauth.AuthType(authType)), nil
}

func (m *mockAuthService) PasswordLogin(ctx context.Context, pendingID, username, password string) (domainauth.Session, error) {
	if m.passwordFunc != nil {
		return m.passwordFunc(ctx, pendingID, username, password)
	}
	return activeSession(domainauth.RoleUser), nil
}

func (m *mockAuthService) SSOEnabled() bool { return m.beginFunc != nil }

func (m *mockAuthService) BeginSSO(ctx context.Context, relay string) (ports.BeginResult, error) {
	if m.beginFunc != nil {
		return m.beginFunc(ctx, relay)
	}
	return ports.BeginResult{}, apperrors.NotFound("single sign-on is not configured")
}

func (m *mockAuthService) CompleteSSO(ctx context.Context, currentID string, in ports.CompleteInput) (domainauth.Session, error) {
	if m.completeFunc != nil {
		return m.completeFunc(ctx, currentID, in)
	}
	return activeSession(domainauth.RoleUser), nil
}

func (m *mockAuthService) Logout(ctx context.Context, id string) (string, error) {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, id)
	}
	return "", nil
}

func (m *mockAuthService) Status(ctx context.Context, id string) (service.SessionStatus, error) {
	if m.statusFunc != nil {
		return m.statusFunc(ctx, id)
	}
	return service.SessionStatus{}, nil
}

func pendingSession(t domainauth.AuthType) domainauth.Session {
	return domainauth.Session{
		ID:        "pending-1",
		AuthType:  t,
		Stage:     domainauth.StagePending,
		CreatedAt: testNow,
		ExpiresAt: testNow.Add(10 * time.Minute),
	}
}

func activeSession(role domainauth.Role) domainauth.Session {
	return domainauth.Session{
		ID:         "sess-1",
		Principal:  "jdoe",
		AuthType:   domainauth.AuthTypeAD,
		AuthMethod: domainauth.AuthMethodPassword,
		Role:       role,
		Stage:      domainauth.StageActive,
		CreatedAt:  testNow,
		ExpiresAt:  testNow.Add(time.Hour),
	}
}

func newAuthHandlers(svc AuthServiceInterface) *AuthHandlers {
	return &AuthHandlers{Svc: svc, Cookies: Cookies{Now: func() time.Time { return testNow }}}
}

func responseCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	resp := w.Result()
	defer resp.Body.Close()
	return findCookie(resp, name)
}

func TestAuthHandlers_SelectAuthType(t *testing.T) {
	var gotCurrent, gotType string
	h := newAuthHandlers(&mockAuthService{
		selectFunc: func(_ context.Context, currentID, authType string) (domainauth.Session, error) {
			gotCurrent, gotType = currentID, authType
			return pendingSession(domainauth.AuthType(authType)), nil
		},
	})
	r := httptest.NewRequest(http.MethodPost, "/session/auth/select", strings.NewReader(`{"authType":"ad"}`))
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "old"})
	w := httptest.NewRecorder()
	h.SelectAuthType(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "old", gotCurrent)
	assert.Equal(t, "ad", gotType)
	assert.JSONEq(t, `{"auth_type":"ad","stage":"pending"}`, w.Body.String())

	c := responseCookie(w, SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, "pending-1", c.Value)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, 600, c.MaxAge)
	loggedIn := responseCookie(w, LoggedInCookieName)
	require.NotNil(t, loggedIn, "a pending session clears the logged_in flag")
	assert.Equal(t, -1, loggedIn.MaxAge)
}

func TestAuthHandlers_SelectAuthType_Invalid(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		selectFunc: func(context.Context, string, string) (domainauth.Session, error) {
			return domainauth.Session{}, apperrors.Validation("invalid auth type (valid options: ldap, ad)")
		},
	})
	w := httptest.NewRecorder()
	h.SelectAuthType(w, httptest.NewRequest(http.MethodPost, "/session/auth/select", strings.NewReader(`{"authType":"kerberos"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"bad_request","message":"invalid auth type (valid options: ldap, ad)"}`, w.Body.String())
	assert.Nil(t, responseCookie(w, SessionCookieName))
}

func TestAuthHandlers_Authenticate(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCookie bool
	}{
		{"success", nil, http.StatusOK, true},
		{"bad credentials", apperrors.Unauthorized("invalid username or password"), http.StatusUnauthorized, false},
		{"no pending session", apperrors.Unauthorized("select an authentication type first"), http.StatusUnauthorized, false},
		{"directory down", apperrors.Unavailable("directory unavailable"), http.StatusServiceUnavailable, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPending, gotUser, gotPass string
			h := newAuthHandlers(&mockAuthService{
				passwordFunc: func(_ context.Context, pendingID, username, password string) (domainauth.Session, error) {
					gotPending, gotUser, gotPass = pendingID, username, password
					if tt.err != nil {
						return domainauth.Session{}, tt.err
					}
					return activeSession(domainauth.RoleAdmin), nil
				},
			})
			r := httptest.NewRequest(http.MethodPost, "/session/authenticate",
				strings.NewReader(`{"username":"jdoe","password":"jane-pw"}`))
			r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "pending-1"})
			w := httptest.NewRecorder()
			h.Authenticate(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "pending-1", gotPending)
			assert.Equal(t, "jdoe", gotUser)
			assert.Equal(t, "jane-pw", gotPass)
			assert.NotContains(t, w.Body.String(), "jane-pw")
			if tt.wantCookie {
				assert.Contains(t, w.Body.String(), `"authenticated":true`)
				assert.Contains(t, w.Body.String(), `"role":"admin"`)
				require.NotNil(t, responseCookie(w, LoggedInCookieName))
				assert.Equal(t, "true", responseCookie(w, LoggedInCookieName).Value)
			} else {
				assert.Nil(t, responseCookie(w, SessionCookieName))
			}
		})
	}
}

func TestAuthHandlers_Authenticate_RequiresEnvelopeWithKey(t *testing.T) {
	called := false
	h := newAuthHandlers(&mockAuthService{
		passwordFunc: func(context.Context, string, string, string) (domainauth.Session, error) {
			called = true
			return activeSession(domainauth.RoleUser), nil
		},
	})
	h.Body = BodyDecoder{Codec: testCodec(t)}
	w := httptest.NewRecorder()
	h.Authenticate(w, httptest.NewRequest(http.MethodPost, "/session/authenticate",
		strings.NewReader(`{"username":"jdoe","password":"jane-pw"}`)))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, called)
}

func TestAuthHandlers_Logout(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		logoutFunc: func(_ context.Context, id string) (string, error) {
			assert.Equal(t, "sess-1", id)
			return "https://idp.example.com/slo?SAMLRequest=x", nil
		},
	})
	r := httptest.NewRequest(http.MethodPost, "/session/logout", nil)
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
	w := httptest.NewRecorder()
	h.Logout(w, r)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","redirect_to":"https://idp.example.com/slo?SAMLRequest=x"}`, w.Body.String())
	c := responseCookie(w, SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestAuthHandlers_Logout_PasswordSessionGoesHome(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthHandlers(&mockAuthService{}).Logout(w, httptest.NewRequest(http.MethodPost, "/session/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"success","redirect_to":"/"}`, w.Body.String())
}

func TestAuthHandlers_Status(t *testing.T) {
	t.Run("unknown session clears cookies", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/session/status", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "gone"})
		w := httptest.NewRecorder()
		newAuthHandlers(&mockAuthService{}).Status(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
		require.NotNil(t, responseCookie(w, SessionCookieName))
	})

	t.Run("active session", func(t *testing.T) {
		exp := testNow.Add(time.Hour)
		h := newAuthHandlers(&mockAuthService{
			statusFunc: func(context.Context, string) (service.SessionStatus, error) {
				return service.SessionStatus{
					Authenticated: true, Stage: domainauth.StageActive, AuthType: domainauth.AuthTypeLDAP,
					AuthMethod: domainauth.AuthMethodPassword, Principal: "alice", Role: domainauth.RoleUser, ExpiresAt: &exp,
				}, nil
			},
		})
		r := httptest.NewRequest(http.MethodGet, "/session/status", nil)
		r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess-1"})
		w := httptest.NewRecorder()
		h.Status(w, r)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"principal":"alice"`)
		assert.Nil(t, responseCookie(w, SessionCookieName))
	})
}

func TestAuthHandlers_SSOLogin(t *testing.T) {
	var gotRelay string
	h := newAuthHandlers(&mockAuthService{
		beginFunc: func(_ context.Context, relay string) (ports.BeginResult, error) {
			gotRelay = relay
			return ports.BeginResult{AuthURL: "https://idp.example.com/sso?SAMLRequest=abc", State: "id-123"}, nil
		},
	})
	w := httptest.NewRecorder()
	h.SSOLogin(w, httptest.NewRequest(http.MethodGet, "/saml/login?redirect_uri=//evil.example.com", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://idp.example.com/sso?SAMLRequest=abc", w.Header().Get("Location"))
	assert.Equal(t, "/", gotRelay)
	state := responseCookie(w, ssoStateCookie)
	require.NotNil(t, state)
	assert.Equal(t, "id-123", state.Value)
	assert.Nil(t, responseCookie(w, ssoNonceCookie), "empty nonce is not stored")
}

func TestAuthHandlers_SSOLogin_Disabled(t *testing.T) {
	w := httptest.NewRecorder()
	newAuthHandlers(&mockAuthService{}).SSOLogin(w, httptest.NewRequest(http.MethodGet, "/saml/login", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func samlCallbackRequest(relay string) *http.Request {
	form := url.Values{"SAMLResponse": {"PHNhbWxwOlJlc3BvbnNlLz4="}}
	if relay != "" {
		form.Set("RelayState", relay)
	}
	r := httptest.NewRequest(http.MethodPost, "/login/callback", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.AddCookie(&http.Cookie{Name: ssoStateCookie, Value: "id-123"})
	return r
}

func TestAuthHandlers_SSOCallback_SAMLSuccess(t *testing.T) {
	var got ports.CompleteInput
	h := newAuthHandlers(&mockAuthService{
		completeFunc: func(_ context.Context, _ string, in ports.CompleteInput) (domainauth.Session, error) {
			got = in
			s := activeSession(domainauth.RoleAdmin)
			s.AuthMethod = domainauth.AuthMethodSAML
			return s, nil
		},
	})
	w := httptest.NewRecorder()
	h.SSOCallback(w, samlCallbackRequest("/users"))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/users", w.Header().Get("Location"))
	assert.Equal(t, []string{"id-123"}, got.RequestIDs)
	assert.Equal(t, "PHNhbWxwOlJlc3BvbnNlLz4=", got.Form.Get("SAMLResponse"))
	require.NotNil(t, responseCookie(w, SessionCookieName))
	assert.Equal(t, "sess-1", responseCookie(w, SessionCookieName).Value)
	assert.Equal(t, -1, responseCookie(w, ssoStateCookie).MaxAge)
}

func TestAuthHandlers_SSOCallback_RejectionRedirectsToLogout(t *testing.T) {
	h := newAuthHandlers(&mockAuthService{
		completeFunc: func(context.Context, string, ports.CompleteInput) (domainauth.Session, error) {
			return domainauth.Session{}, &service.SSORejection{
				LogoutURL: "https://idp.example.com/slo",
				Err:       errors.New("employee id not found in any directory"),
			}
		},
	})
	r := samlCallbackRequest("")
	r.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "pending-1"})
	w := httptest.NewRecorder()
	h.SSOCallback(w, r)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://idp.example.com/slo", w.Header().Get("Location"))
	c := responseCookie(w, SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestAuthHandlers_SSOCallback_OIDC(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
	}{
		{"success", "?code=abc&state=st-1", http.StatusFound},
		{"missing code", "?state=st-1", http.StatusBadRequest},
		{"state mismatch", "?code=abc&state=forged", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got ports.CompleteInput
			h := newAuthHandlers(&mockAuthService{
				completeFunc: func(_ context.Context, _ string, in ports.CompleteInput) (domainauth.Session, error) {
					got = in
					return activeSession(domainauth.RoleUser), nil
				},
			})
			r := httptest.NewRequest(http.MethodGet, "/auth/callback"+tt.query, nil)
			r.AddCookie(&http.Cookie{Name: ssoStateCookie, Value: "st-1"})
			r.AddCookie(&http.Cookie{Name: ssoNonceCookie, Value: "n-1"})
			w := httptest.NewRecorder()
			h.SSOCallback(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusFound {
				assert.Equal(t, "abc", got.Code)
				assert.Equal(t, "n-1", got.Nonce)
				assert.Equal(t, "/", w.Header().Get("Location"))
			}
		})
	}
}
