package httpx

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
)

// Double-submit CSRF names. Clients echo the csrf_token cookie in X-Csrf-Token.
const (
	DefaultCSRFCookieName = "csrf_token"
	DefaultCSRFHeaderName = "X-Csrf-Token"
)

const (
	csrfTokenBytes = 32
	csrfMaxAge     = 12 * 3600
)

var errCSRFFailed = errors.New("CSRF token validation failed")

// CSRFConfig configures CSRFProtection.
type CSRFConfig struct {
	Cookies Cookies
	// ExemptPaths skip validation. The SAML assertion consumer receives a
	// cross-site POST from the identity provider and is verified by signature.
	ExemptPaths []string
}

// CSRFProtection issues a token cookie on first contact, echoes it in the
// X-Csrf-Token response header, and requires the header to match the cookie
// on every unsafe method. A token minted on the current request never
// validates it.
func CSRFProtection(cfg CSRFConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := cookieValue(r, DefaultCSRFCookieName)
			fresh := token == ""
			if fresh {
				var err error
				if token, err = newCSRFToken(); err != nil {
					WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "internal", Err: errors.New(genericErrorMessage)})
					return
				}
				cfg.Cookies.setCSRF(w, r, token)
			}
			w.Header().Set(DefaultCSRFHeaderName, token)

			if isUnsafeMethod(r.Method) && !slices.Contains(cfg.ExemptPaths, r.URL.Path) {
				sent := r.Header.Get(DefaultCSRFHeaderName)
				if fresh || sent == "" || subtle.ConstantTimeCompare([]byte(sent), []byte(token)) != 1 {
					WriteError(w, ErrorParams{Code: http.StatusForbidden, ErrCode: "csrf_failed", Err: errCSRFFailed})
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	}
	return true
}

// newCSRFToken fails closed when the system RNG does.
func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
