package config

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// DirectoryConfig describes one directory backend. The same shape serves
// OpenLDAP (LDAP_ prefix) and Active Directory (AD_ prefix); a backend with an
// empty URL is not configured.
type DirectoryConfig struct {
	URL          string `env:"URL"`
	BaseDN       string `env:"BASE_DN"`
	BindDN       string `env:"BIND_DN"`
	BindPassword string `env:"BIND_PASSWORD"`

	StartTLS           bool          `env:"START_TLS"            envDefault:"false"`
	InsecureSkipVerify bool          `env:"INSECURE_SKIP_VERIFY" envDefault:"false"`
	Timeout            time.Duration `env:"TIMEOUT"              envDefault:"10s"`
	SizeLimit          int           `env:"SIZE_LIMIT"           envDefault:"0"`

	// UsersContainer and GroupsContainer are RDNs under the base DN, e.g. "OU=people".
	// Empty values use the backend defaults.
	UsersContainer  string `env:"USERS_CONTAINER"`
	GroupsContainer string `env:"GROUPS_CONTAINER"`

	// OpenLDAP only.
	EmployeeIDAttr string `env:"EMPLOYEE_ID_ATTR"`
	InactiveAttr   string `env:"INACTIVE_ATTR"`
	InactiveValue  string `env:"INACTIVE_VALUE"`

	// Active Directory only.
	UPNSuffix        string `env:"UPN_SUFFIX"`
	LockoutThreshold int    `env:"LOCKOUT_THRESHOLD" envDefault:"0"`
}

// Configured reports whether the backend has a URL.
func (d DirectoryConfig) Configured() bool { return d.URL != "" }

// Sanitize trims values and clamps the operation timeout.
func (d *DirectoryConfig) Sanitize() {
	d.URL = strings.TrimSpace(d.URL)
	d.BaseDN = strings.TrimSpace(d.BaseDN)
	d.BindDN = strings.TrimSpace(d.BindDN)
	d.UsersContainer = strings.TrimSpace(d.UsersContainer)
	d.GroupsContainer = strings.TrimSpace(d.GroupsContainer)
	if d.Timeout <= 0 {
		d.Timeout = 10 * time.Second
	}
	if d.SizeLimit < 0 {
		d.SizeLimit = 0
	}
}

// Validate checks a configured backend. An unconfigured backend is valid.
func (d DirectoryConfig) Validate() error {
	if !d.Configured() {
		return nil
	}
	var errs []error
	u, err := url.Parse(d.URL)
	if err != nil || (u.Scheme != "ldap" && u.Scheme != "ldaps") || u.Host == "" {
		errs = append(errs, errors.New("URL must be ldap://host[:port] or ldaps://host[:port]"))
	} else if d.StartTLS && u.Scheme == "ldaps" {
		errs = append(errs, errors.New("START_TLS cannot be combined with an ldaps URL"))
	}
	if d.BaseDN == "" {
		errs = append(errs, errors.New("BASE_DN is required"))
	}
	if d.BindDN == "" || d.BindPassword == "" {
		errs = append(errs, errors.New("BIND_DN and BIND_PASSWORD are required"))
	}
	return errors.Join(errs...)
}
