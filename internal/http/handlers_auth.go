package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/ports"
	"github.com/target/dirkeeper/internal/service"
)

// AuthServiceInterface defines the interface for auth service operations.
type AuthServiceInterface interface {
	SelectAuthType(ctx context.Context, currentID, authType string) (domainauth.Session, error)
	PasswordLogin(ctx context.Context, pendingID, username, password string) (domainauth.Session, error)
	SSOEnabled() bool
	BeginSSO(ctx context.Context, relayState string) (ports.BeginResult, error)
	CompleteSSO(ctx context.Context, currentID string, in ports.CompleteInput) (domainauth.Session, error)
	Logout(ctx context.Context, id string) (string, error)
	Status(ctx context.Context, id string) (service.SessionStatus, error)
}

var _ AuthServiceInterface = (*service.AuthService)(nil)

// AuthHandlers provides HTTP handlers for session and single sign-on endpoints.
type AuthHandlers struct {
	Svc     AuthServiceInterface
	Cookies Cookies
	Body    BodyDecoder
	Logger  *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type selectAuthTypeRequest struct {
	AuthType string `json:"authType"`
}

// SelectAuthType records the backend for the following password login.
// POST /session/auth/select {"authType":"ldap"|"ad"}.
func (h *AuthHandlers) SelectAuthType(w http.ResponseWriter, r *http.Request) {
	var req selectAuthTypeRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	sess, err := h.Svc.SelectAuthType(r.Context(), sessionID(r), req.AuthType)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	h.Cookies.SetSession(w, r, sess)
	WriteJSON(w, http.StatusOK, map[string]any{"auth_type": sess.AuthType, "stage": sess.Stage})
}

type authenticateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Authenticate performs a password login against the selected backend.
// POST /session/authenticate.
func (h *AuthHandlers) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req authenticateRequest
	if !h.Body.DecodeSensitive(w, r, &req) {
		return
	}
	sess, err := h.Svc.PasswordLogin(r.Context(), sessionID(r), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	h.Cookies.SetSession(w, r, sess)
	WriteJSON(w, http.StatusOK, statusOf(sess))
}

// Logout destroys the session. SSO sessions are sent on to the identity
// provider's logout endpoint.
// POST /session/logout.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	redirect, err := h.Svc.Logout(r.Context(), sessionID(r))
	h.Cookies.ClearSession(w, r)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if redirect == "" {
		redirect = "/"
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success", "redirect_to": redirect})
}

// Status returns the current authentication status.
// GET /session/status.
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	st, err := h.Svc.Status(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	if id != "" && st.Stage == "" {
		h.Cookies.ClearSession(w, r)
	}
	WriteJSON(w, http.StatusOK, st)
}

func statusOf(s domainauth.Session) service.SessionStatus {
	exp := s.ExpiresAt
	return service.SessionStatus{
		Authenticated: s.Active(),
		Stage:         s.Stage,
		AuthType:      s.AuthType,
		AuthMethod:    s.AuthMethod,
		Principal:     s.Principal,
		Role:          s.Role,
		ExpiresAt:     &exp,
	}
}

// SSOLogin starts single sign-on and redirects to the identity provider.
// GET /saml/login?redirect_uri=<optional_redirect>.
func (h *AuthHandlers) SSOLogin(w http.ResponseWriter, r *http.Request) {
	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))
	res, err := h.Svc.BeginSSO(r.Context(), redirectURI)
	if err != nil {
		writeServiceError(w, r, h.logger(), err)
		return
	}
	h.Cookies.setSSO(w, r, res.State, res.Nonce, redirectURI)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// SSOCallback completes single sign-on. SAML posts the assertion form
// (POST /login/callback); OIDC returns a code (GET /auth/callback). Any failure
// clears the session cookies and redirects to the identity provider's logout.
func (h *AuthHandlers) SSOCallback(w http.ResponseWriter, r *http.Request) {
	in, relay, err := h.completeInput(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "bad_request", Err: err})
		return
	}
	sess, err := h.Svc.CompleteSSO(r.Context(), sessionID(r), in)
	h.Cookies.clearSSO(w, r)
	if err != nil {
		if rej, ok := service.IsSSORejection(err); ok {
			h.Cookies.ClearSession(w, r)
			http.Redirect(w, r, rej.LogoutURL, http.StatusFound)
			return
		}
		writeServiceError(w, r, h.logger(), err)
		return
	}
	h.Cookies.SetSession(w, r, sess)
	http.Redirect(w, r, safeRedirectPath(relay), http.StatusFound)
}

// completeInput gathers the provider response and the post-login target.
func (h *AuthHandlers) completeInput(r *http.Request) (ports.CompleteInput, string, error) {
	relay := cookieValue(r, postLoginCookie)
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return ports.CompleteInput{}, "", errors.New("malformed form body")
		}
		var ids []string
		if id := cookieValue(r, ssoStateCookie); id != "" {
			ids = []string{id}
		}
		if rs := r.PostForm.Get("RelayState"); rs != "" {
			relay = rs
		}
		return ports.CompleteInput{Form: cloneValues(r.PostForm), RequestIDs: ids}, relay, nil
	}

	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" {
		return ports.CompleteInput{}, "", errors.New("authorization code is required")
	}
	if state == "" || state != cookieValue(r, ssoStateCookie) {
		return ports.CompleteInput{}, "", errors.New("invalid or missing state parameter")
	}
	return ports.CompleteInput{Code: code, State: state, Nonce: cookieValue(r, ssoNonceCookie)}, relay, nil
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
