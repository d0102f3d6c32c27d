package ldapdir

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// DialTLS dials cfg.URL. ldaps:// URLs use TLS from the start; ldap:// URLs are
// upgraded with StartTLS when cfg.StartTLS is set.
func DialTLS(ctx context.Context, cfg Config) (Conn, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse directory url: %w", err)
	}
	tlsConfig := &tls.Config{
		ServerName:         u.Hostname(),
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for lab directories with self-signed certs
	}

	dialer := &net.Dialer{Timeout: cfg.Timeout}
	if dl, ok := ctx.Deadline(); ok {
		dialer.Deadline = dl
	}
	opts := []ldap.DialOpt{ldap.DialWithDialer(dialer)}
	if strings.EqualFold(u.Scheme, "ldaps") {
		opts = append(opts, ldap.DialWithTLSConfig(tlsConfig))
	}

	conn, err := ldap.DialURL(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Host, err)
	}
	if cfg.StartTLS && !strings.EqualFold(u.Scheme, "ldaps") {
		if err := conn.StartTLS(tlsConfig); err != nil {
			closeConn(conn)
			return nil, fmt.Errorf("starttls %s: %w", u.Host, err)
		}
	}
	return conn, nil
}
