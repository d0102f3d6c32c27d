// Package ldapdir implements the directory port on top of go-ldap. One Adapter
// owns one connection to one backend (OpenLDAP or Active Directory); the
// backend's dialect only shows up here as an error translation table.
package ldapdir

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/target/dirkeeper/internal/domain/directory"
	"github.com/target/dirkeeper/internal/ports"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout bounds every wait: acquiring the connection and each protocol operation.
const DefaultTimeout = 10 * time.Second

// Conn is the subset of *ldap.Conn the adapter uses.
type Conn interface {
	Bind(username, password string) error
	UnauthenticatedBind(username string) error
	Search(req *ldap.SearchRequest) (*ldap.SearchResult, error)
	Add(req *ldap.AddRequest) error
	Modify(req *ldap.ModifyRequest) error
	Del(req *ldap.DelRequest) error
	IsClosing() bool
	SetTimeout(d time.Duration)
}

// Dialer opens a new connection.
type Dialer func(ctx context.Context, cfg Config) (Conn, error)

// Observer receives one call per protocol operation.
type Observer interface {
	ObserveOp(backend, op string, err error, elapsed time.Duration)
}

// Config describes one directory backend.
type Config struct {
	// Name is the auth-type tag served ("ldap" or "ad").
	Name               string
	URL                string
	BaseDN             string
	BindDN             string
	BindPassword       string
	StartTLS           bool
	InsecureSkipVerify bool
	Timeout            time.Duration
	Errors             ErrorTable
}

// Options groups optional collaborators.
type Options struct {
	Dialer   Dialer
	Logger   *slog.Logger
	Observer Observer
}

// Adapter is a ports.Directory backed by a single lazily dialed connection.
// Bind takes exclusive ownership of the connection until Unbind.
type Adapter struct {
	cfg      Config
	dial     Dialer
	logger   *slog.Logger
	observer Observer

	sem   *semaphore.Weighted
	mu    sync.Mutex
	conn  Conn
	bound atomic.Bool
}

var _ ports.Directory = (*Adapter)(nil)

// New constructs an Adapter. No connection is made until the first Bind.
func New(cfg Config, opts Options) *Adapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Errors == nil {
		cfg.Errors = OpenLDAPErrors
	}
	if opts.Dialer == nil {
		opts.Dialer = DialTLS
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Adapter{
		cfg:      cfg,
		dial:     opts.Dialer,
		logger:   opts.Logger.With("component", "directory", "backend", cfg.Name),
		observer: opts.Observer,
		sem:      semaphore.NewWeighted(1),
	}
}

// Name returns the auth-type tag this adapter serves.
func (a *Adapter) Name() string { return a.cfg.Name }

// BaseDN returns the configured search root.
func (a *Adapter) BaseDN() string { return a.cfg.BaseDN }

// Bound reports whether an elevated bind is currently held.
func (a *Adapter) Bound() bool { return a.bound.Load() }

// Connected reports whether a live connection exists.
func (a *Adapter) Connected() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conn != nil && !a.conn.IsClosing()
}

// BindAdmin binds with the configured service account.
func (a *Adapter) BindAdmin(ctx context.Context) (ports.BoundConn, error) {
	return a.Bind(ctx, a.cfg.BindDN, a.cfg.BindPassword)
}

// Bind acquires the connection, dialing or redialing as needed, and authenticates
// as dn. The returned BoundConn must be released with Unbind.
//
// Client cancellation is ignored once a bind starts; only the configured
// timeout bounds the wait.
func (a *Adapter) Bind(ctx context.Context, dn, credential string) (ports.BoundConn, error) {
	if dn == "" || credential == "" {
		return nil, &Error{Kind: ports.ErrAuthenticationFailed, Reason: "empty credentials"}
	}
	ctx = context.WithoutCancel(ctx)

	waitCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()
	if err := a.sem.Acquire(waitCtx, 1); err != nil {
		return nil, &Error{Kind: ports.ErrDirectoryUnavailable, Reason: "connection busy", Cause: err}
	}

	c, err := a.connection(waitCtx)
	if err != nil {
		a.sem.Release(1)
		return nil, err
	}

	start := time.Now()
	err = c.Bind(dn, credential)
	a.observe("bind", err, start)
	if err != nil {
		a.release(c)
		return nil, a.cfg.Errors.Translate(err)
	}
	a.bound.Store(true)
	return &boundConn{a: a, c: c}, nil
}

// connection returns the live connection, dialing a new one if the previous
// one was lost. Callers hold the semaphore.
func (a *Adapter) connection(ctx context.Context) (Conn, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil && !a.conn.IsClosing() {
		return a.conn, nil
	}
	if a.conn != nil {
		a.logger.InfoContext(ctx, "directory connection lost, reconnecting")
		closeConn(a.conn)
		a.conn = nil
	}
	start := time.Now()
	c, err := a.dial(ctx, a.cfg)
	a.observe("dial", err, start)
	if err != nil {
		a.logger.WarnContext(ctx, "directory dial failed", "error", err)
		return nil, &Error{Kind: ports.ErrDirectoryUnavailable, Reason: "dial", Cause: err}
	}
	c.SetTimeout(a.cfg.Timeout)
	a.conn = c
	return c, nil
}

// release drops the elevated bind and frees the connection for the next caller.
// A connection that cannot be reset is closed so the next Bind redials.
func (a *Adapter) release(c Conn) {
	if err := c.UnauthenticatedBind(""); err != nil {
		a.logger.Warn("directory unbind failed, dropping connection", "error", err)
		a.mu.Lock()
		if a.conn == c {
			closeConn(c)
			a.conn = nil
		}
		a.mu.Unlock()
	}
	a.bound.Store(false)
	a.sem.Release(1)
}

// Close drops the live connection. It waits for any held bind to be released.
func (a *Adapter) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Timeout)
	defer cancel()
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("close directory %s: %w", a.cfg.Name, err)
	}
	defer a.sem.Release(1)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.conn != nil {
		closeConn(a.conn)
		a.conn = nil
	}
	return nil
}

func (a *Adapter) observe(op string, err error, start time.Time) {
	if a.observer != nil {
		a.observer.ObserveOp(a.cfg.Name, op, err, time.Since(start))
	}
}

// closeConn closes c regardless of which Close signature the client exposes.
func closeConn(c Conn) {
	switch cc := c.(type) {
	case interface{ Close() error }:
		_ = cc.Close()
	case interface{ Close() }:
		cc.Close()
	}
}

// boundConn is the exclusive handle returned by Bind.
type boundConn struct {
	a    *Adapter
	c    Conn
	once sync.Once
}

var _ ports.BoundConn = (*boundConn)(nil)

func (b *boundConn) Unbind() {
	b.once.Do(func() { b.a.release(b.c) })
}

func (b *boundConn) Rebind(_ context.Context, dn, credential string) error {
	if dn == "" || credential == "" {
		return &Error{Kind: ports.ErrAuthenticationFailed, Reason: "empty credentials"}
	}
	start := time.Now()
	err := b.c.Bind(dn, credential)
	b.a.observe("bind", err, start)
	return b.a.cfg.Errors.Translate(err)
}

func (b *boundConn) Search(_ context.Context, req directory.SearchRequest) ([]directory.Entry, error) {
	sr := ldap.NewSearchRequest(
		req.BaseDN,
		toLDAPScope(req.Scope),
		ldap.NeverDerefAliases,
		req.SizeLimit,
		int(b.a.cfg.Timeout/time.Second),
		false,
		req.Filter,
		req.Attributes,
		nil,
	)
	start := time.Now()
	res, err := b.c.Search(sr)
	b.a.observe("search", err, start)

	out := make([]directory.Entry, 0)
	if res != nil {
		for _, e := range res.Entries {
			out = append(out, toEntry(e))
		}
	}
	if err != nil {
		switch {
		case ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject):
			return out, nil
		case ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded):
			return out, nil
		}
		return nil, b.a.cfg.Errors.Translate(err)
	}
	return out, nil
}

func (b *boundConn) Add(_ context.Context, dn string, attrs map[string][]string) error {
	req := ldap.NewAddRequest(dn, nil)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if vals := attrs[k]; len(vals) > 0 {
			req.Attribute(k, vals)
		}
	}
	start := time.Now()
	err := b.c.Add(req)
	b.a.observe("add", err, start)
	return b.a.cfg.Errors.Translate(err)
}

func (b *boundConn) Modify(_ context.Context, dn string, changes []directory.Change) error {
	if len(changes) == 0 {
		return nil
	}
	req := ldap.NewModifyRequest(dn, nil)
	for _, ch := range changes {
		switch ch.Op {
		case directory.ChangeAdd:
			req.Add(ch.Attribute, ch.Values)
		case directory.ChangeReplace:
			req.Replace(ch.Attribute, ch.Values)
		case directory.ChangeDelete:
			req.Delete(ch.Attribute, ch.Values)
		default:
			return fmt.Errorf("unknown change op %q", ch.Op)
		}
	}
	start := time.Now()
	err := b.c.Modify(req)
	b.a.observe("modify", err, start)
	return b.a.cfg.Errors.Translate(err)
}

func (b *boundConn) Delete(_ context.Context, dn string) error {
	start := time.Now()
	err := b.c.Del(ldap.NewDelRequest(dn, nil))
	b.a.observe("delete", err, start)
	return b.a.cfg.Errors.Translate(err)
}

func toLDAPScope(s directory.Scope) int {
	switch s {
	case directory.ScopeBase:
		return ldap.ScopeBaseObject
	case directory.ScopeOne:
		return ldap.ScopeSingleLevel
	default:
		return ldap.ScopeWholeSubtree
	}
}

func toEntry(e *ldap.Entry) directory.Entry {
	attrs := make(map[string][]string, len(e.Attributes))
	for _, at := range e.Attributes {
		attrs[at.Name] = append([]string(nil), at.Values...)
	}
	return directory.Entry{DN: e.DN, Attributes: attrs}
}
