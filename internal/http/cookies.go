package httpx

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
)

// Cookie names.
const (
	SessionCookieName  = "session_id"
	LoggedInCookieName = "logged_in"
	ssoStateCookie     = "sso_state"
	ssoNonceCookie     = "sso_nonce"
	postLoginCookie    = "post_login_redirect"
)

// ssoCookieMaxAge bounds the round trip to the identity provider.
const ssoCookieMaxAge = 600

// Cookies writes and clears the application's cookies with shared attributes.
type Cookies struct {
	Domain string
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c Cookies) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func isSecureRequest(r *http.Request) bool {
	return r.TLS != nil || isForwardedHTTPS(r)
}

// isForwardedHTTPS reports whether a proxy terminated TLS. X-Forwarded-Proto
// may carry a comma-separated chain.
func isForwardedHTTPS(r *http.Request) bool {
	for _, proto := range strings.Split(r.Header.Get("X-Forwarded-Proto"), ",") {
		if strings.EqualFold(strings.TrimSpace(proto), "https") {
			return true
		}
	}
	return false
}

// sessionID returns the session cookie value or "".
func sessionID(r *http.Request) string {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SetSession writes the session cookie, and the logged_in flag for active sessions.
func (c Cookies) SetSession(w http.ResponseWriter, r *http.Request, s domainauth.Session) {
	maxAge := int(s.ExpiresAt.Sub(c.now()).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    s.ID,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
	if !s.Active() {
		c.clear(w, r, LoggedInCookieName)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     LoggedInCookieName,
		Value:    "true",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: false,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

// ClearSession expires both session cookies.
func (c Cookies) ClearSession(w http.ResponseWriter, r *http.Request) {
	c.clear(w, r, SessionCookieName)
	c.clear(w, r, LoggedInCookieName)
}

// setSSO stores the outstanding request state, the OIDC nonce and the post-login path.
func (c Cookies) setSSO(w http.ResponseWriter, r *http.Request, state, nonce, redirect string) {
	secure := isSecureRequest(r)
	// The SAML response arrives as a cross-site POST, which only carries
	// SameSite=None cookies; browsers accept those over TLS only.
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	for name, value := range map[string]string{ssoStateCookie: state, ssoNonceCookie: nonce, postLoginCookie: redirect} {
		if value == "" {
			continue
		}
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Domain:   c.Domain,
			HttpOnly: true,
			Secure:   secure,
			SameSite: sameSite,
			MaxAge:   ssoCookieMaxAge,
		})
	}
}

// setCSRF writes the double-submit token. Scripts must read it, so it is not HttpOnly.
func (c Cookies) setCSRF(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     DefaultCSRFCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		Secure:   isSecureRequest(r),
		SameSite: http.SameSiteStrictMode,
		MaxAge:   csrfMaxAge,
	})
}

func (c Cookies) clearSSO(w http.ResponseWriter, r *http.Request) {
	c.clear(w, r, ssoStateCookie)
	c.clear(w, r, ssoNonceCookie)
	c.clear(w, r, postLoginCookie)
}

// clear expires a cookie. It mirrors key attributes used when setting cookies
// to maximize compatibility across browsers during deletion.
func (c Cookies) clear(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: name != LoggedInCookieName,
		Secure:   isSecureRequest(r),
		MaxAge:   -1,
		Expires:  time.Unix(0, 0).UTC(),
		SameSite: http.SameSiteLaxMode,
	})
}

func cookieValue(r *http.Request, name string) string {
	if c, err := r.Cookie(name); err == nil {
		return strings.TrimSpace(c.Value)
	}
	return ""
}
