// Package dirfake provides an in-memory ports.Directory for service tests.
// Filters are compiled with go-ldap and evaluated against stored entries, so the
// same filter strings the services send to a real server work here.
package dirfake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	ber "github.com/go-asn1-ber/asn1-ber"
	"github.com/go-ldap/ldap/v3"
	"github.com/target/dirkeeper/internal/domain/directory"
	"github.com/target/dirkeeper/internal/ports"
)

// Directory is a single-connection in-memory directory. Like the real adapter,
// one bind is held at a time and Unbind releases it.
type Directory struct {
	name    string
	baseDN  string
	adminDN string
	adminPW string

	mu        sync.Mutex
	entries   map[string]directory.Entry
	passwords map[string]string
	failures  map[string]error

	conn      chan struct{}
	connected bool
	// Dials counts lazy connects; it stays zero until the first bind.
	Dials int
	// Binds and Unbinds count acquire/release pairs.
	Binds   int
	Unbinds int
}

var _ ports.Directory = (*Directory)(nil)

// New returns an empty directory with the base entry present.
func New(name, baseDN string) *Directory {
	d := &Directory{
		name:      name,
		baseDN:    baseDN,
		adminDN:   "cn=admin," + baseDN,
		adminPW:   "admin-secret",
		entries:   map[string]directory.Entry{},
		passwords: map[string]string{},
		failures:  map[string]error{},
		conn:      make(chan struct{}, 1),
	}
	d.entries[key(baseDN)] = directory.Entry{DN: baseDN, Attributes: map[string][]string{"objectClass": {"top", "domain"}}}
	return d
}

func (d *Directory) Name() string   { return d.name }
func (d *Directory) BaseDN() string { return d.baseDN }

// Close drops the simulated connection.
func (d *Directory) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = false
	return nil
}

// Seed stores an entry as-is. A non-empty password makes the entry bindable.
func (d *Directory) Seed(dn string, attrs map[string][]string, password string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[key(dn)] = directory.Entry{DN: dn, Attributes: cloneAttrs(attrs)}
	if password != "" {
		d.passwords[key(dn)] = password
	}
}

// Entry returns a stored entry.
func (d *Directory) Entry(dn string) (directory.Entry, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[key(dn)]
	if !ok {
		return directory.Entry{}, false
	}
	return directory.Entry{DN: e.DN, Attributes: cloneAttrs(e.Attributes)}, true
}

// FailOn makes the next call of op ("bind", "search", "add", "modify", "delete", "rebind") return err.
func (d *Directory) FailOn(op string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures[op] = err
}

// Held reports whether a bind is currently held.
func (d *Directory) Held() bool { return len(d.conn) == 1 }

func (d *Directory) takeFailure(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	err := d.failures[op]
	delete(d.failures, op)
	return err
}

func (d *Directory) BindAdmin(ctx context.Context) (ports.BoundConn, error) {
	return d.Bind(ctx, d.adminDN, d.adminPW)
}

func (d *Directory) Bind(ctx context.Context, dn, credential string) (ports.BoundConn, error) {
	select {
	case d.conn <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ports.ErrDirectoryUnavailable, ctx.Err())
	}
	d.mu.Lock()
	if !d.connected {
		d.connected = true
		d.Dials++
	}
	d.Binds++
	d.mu.Unlock()

	if err := d.takeFailure("bind"); err != nil {
		d.release()
		return nil, err
	}
	if err := d.checkCredential(dn, credential); err != nil {
		d.release()
		return nil, err
	}
	return &conn{d: d}, nil
}

func (d *Directory) checkCredential(dn, credential string) error {
	if dn == d.adminDN && credential == d.adminPW {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if pw, ok := d.passwords[key(dn)]; ok && credential != "" && pw == credential {
		return nil
	}
	return ports.ErrAuthenticationFailed
}

func (d *Directory) release() {
	d.mu.Lock()
	d.Unbinds++
	d.mu.Unlock()
	<-d.conn
}

type conn struct {
	d    *Directory
	once sync.Once
}

func (c *conn) Unbind() { c.once.Do(c.d.release) }

func (c *conn) Rebind(_ context.Context, dn, credential string) error {
	if err := c.d.takeFailure("rebind"); err != nil {
		return err
	}
	return c.d.checkCredential(dn, credential)
}

func (c *conn) Search(_ context.Context, req directory.SearchRequest) ([]directory.Entry, error) {
	if err := c.d.takeFailure("search"); err != nil {
		return nil, err
	}
	filter := req.Filter
	if filter == "" {
		filter = "(objectClass=*)"
	}
	packet, err := ldap.CompileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrConstraintViolation, err)
	}
	base := key(req.BaseDN)

	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	out := []directory.Entry{}
	for k, e := range c.d.entries {
		if !inScope(k, base, req.Scope) || !matches(packet, e) {
			continue
		}
		out = append(out, project(e, req.Attributes))
	}
	sort.Slice(out, func(i, j int) bool { return key(out[i].DN) < key(out[j].DN) })
	if req.SizeLimit > 0 && len(out) > req.SizeLimit {
		out = out[:req.SizeLimit]
	}
	return out, nil
}

func (c *conn) Add(_ context.Context, dn string, attrs map[string][]string) error {
	if err := c.d.takeFailure("add"); err != nil {
		return err
	}
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	k := key(dn)
	if _, ok := c.d.entries[k]; ok {
		return ports.ErrEntryAlreadyExists
	}
	if _, ok := c.d.entries[parentKey(k)]; !ok {
		return ports.ErrEntryNotFound
	}
	stored := map[string][]string{}
	for a, vals := range attrs {
		if len(vals) > 0 {
			stored[a] = append([]string(nil), vals...)
		}
	}
	// AD derives objectCategory from the most specific class.
	if containsFold(stored["objectClass"], "user") && len(stored["objectCategory"]) == 0 {
		stored["objectCategory"] = []string{"person"}
	}
	c.d.entries[k] = directory.Entry{DN: dn, Attributes: stored}
	if pw := firstValue(stored, "userPassword"); pw != "" {
		c.d.passwords[k] = pw
	}
	return nil
}

func (c *conn) Modify(_ context.Context, dn string, changes []directory.Change) error {
	if err := c.d.takeFailure("modify"); err != nil {
		return err
	}
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	k := key(dn)
	e, ok := c.d.entries[k]
	if !ok {
		return ports.ErrEntryNotFound
	}
	attrs := cloneAttrs(e.Attributes)
	for _, ch := range changes {
		name := attrName(attrs, ch.Attribute)
		switch ch.Op {
		case directory.ChangeAdd:
			for _, v := range ch.Values {
				if containsFold(attrs[name], v) {
					return ports.ErrEntryAlreadyExists
				}
				attrs[name] = append(attrs[name], v)
			}
		case directory.ChangeReplace:
			if len(ch.Values) == 0 {
				delete(attrs, name)
			} else {
				attrs[name] = append([]string(nil), ch.Values...)
			}
		case directory.ChangeDelete:
			cur, present := attrs[name]
			if !present {
				return ports.ErrEntryNotFound
			}
			if len(ch.Values) == 0 {
				delete(attrs, name)
				continue
			}
			kept := cur[:0:0]
			for _, v := range cur {
				if !containsFold(ch.Values, v) {
					kept = append(kept, v)
				}
			}
			if len(kept) == len(cur) {
				return ports.ErrEntryNotFound
			}
			if len(kept) == 0 {
				delete(attrs, name)
			} else {
				attrs[name] = kept
			}
		default:
			return fmt.Errorf("unknown change op %q", ch.Op)
		}
	}
	c.d.entries[k] = directory.Entry{DN: e.DN, Attributes: attrs}
	if pw := firstValue(attrs, "userPassword"); pw != "" {
		c.d.passwords[k] = pw
	}
	return nil
}

func (c *conn) Delete(_ context.Context, dn string) error {
	if err := c.d.takeFailure("delete"); err != nil {
		return err
	}
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	k := key(dn)
	if _, ok := c.d.entries[k]; !ok {
		return ports.ErrEntryNotFound
	}
	for other := range c.d.entries {
		if parentKey(other) == k {
			return ports.ErrConstraintViolation
		}
	}
	delete(c.d.entries, k)
	delete(c.d.passwords, k)
	return nil
}

// matches evaluates a compiled filter packet against an entry.
func matches(p *ber.Packet, e directory.Entry) bool {
	switch p.Tag {
	case ldap.FilterAnd:
		for _, child := range p.Children {
			if !matches(child, e) {
				return false
			}
		}
		return true
	case ldap.FilterOr:
		for _, child := range p.Children {
			if matches(child, e) {
				return true
			}
		}
		return false
	case ldap.FilterNot:
		return len(p.Children) == 1 && !matches(p.Children[0], e)
	case ldap.FilterPresent:
		attr := packetString(p)
		return strings.EqualFold(attr, "objectClass") || len(e.Values(attr)) > 0
	case ldap.FilterEqualityMatch, ldap.FilterApproxMatch:
		if len(p.Children) != 2 {
			return false
		}
		want := packetString(p.Children[1])
		for _, v := range e.Values(packetString(p.Children[0])) {
			if strings.EqualFold(v, want) || (strings.Contains(want, "=") && directory.EqualDN(v, want)) {
				return true
			}
		}
		return false
	case ldap.FilterSubstrings:
		if len(p.Children) != 2 {
			return false
		}
		for _, v := range e.Values(packetString(p.Children[0])) {
			if substringMatch(strings.ToLower(v), p.Children[1].Children) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func substringMatch(v string, parts []*ber.Packet) bool {
	pos := 0
	for _, part := range parts {
		s := strings.ToLower(packetString(part))
		switch part.Tag {
		case ldap.FilterSubstringsInitial:
			if !strings.HasPrefix(v, s) {
				return false
			}
			pos = len(s)
		case ldap.FilterSubstringsAny:
			i := strings.Index(v[pos:], s)
			if i < 0 {
				return false
			}
			pos += i + len(s)
		case ldap.FilterSubstringsFinal:
			if !strings.HasSuffix(v[pos:], s) {
				return false
			}
		}
	}
	return true
}

func packetString(p *ber.Packet) string {
	if s, ok := p.Value.(string); ok {
		return s
	}
	if p.Data != nil {
		return p.Data.String()
	}
	return ""
}

func project(e directory.Entry, attrs []string) directory.Entry {
	out := directory.Entry{DN: e.DN, Attributes: map[string][]string{}}
	if len(attrs) == 0 {
		out.Attributes = cloneAttrs(e.Attributes)
		return out
	}
	for _, a := range attrs {
		if vals := e.Values(a); len(vals) > 0 {
			out.Attributes[a] = append([]string(nil), vals...)
		}
	}
	return out
}

func inScope(k, base string, scope directory.Scope) bool {
	switch scope {
	case directory.ScopeBase:
		return k == base
	case directory.ScopeOne:
		return parentKey(k) == base
	default:
		return k == base || strings.HasSuffix(k, ","+base)
	}
}

// key normalizes a DN for map lookups.
func key(dn string) string {
	parts := splitRDNs(dn)
	for i, p := range parts {
		if t, v, ok := strings.Cut(p, "="); ok {
			p = strings.TrimSpace(t) + "=" + strings.TrimSpace(v)
		}
		parts[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return strings.Join(parts, ",")
}

func parentKey(k string) string {
	parts := splitRDNs(k)
	if len(parts) <= 1 {
		return ""
	}
	return strings.Join(parts[1:], ",")
}

// splitRDNs splits on unescaped commas.
func splitRDNs(dn string) []string {
	var parts []string
	start, escaped := 0, false
	for i, r := range dn {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, dn[start:i])
			start = i + 1
		}
	}
	return append(parts, dn[start:])
}

func attrName(attrs map[string][]string, name string) string {
	for k := range attrs {
		if strings.EqualFold(k, name) {
			return k
		}
	}
	return name
}

func firstValue(attrs map[string][]string, name string) string {
	if vals := attrs[attrName(attrs, name)]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

func containsFold(list []string, v string) bool {
	for _, x := range list {
		if strings.EqualFold(x, v) {
			return true
		}
	}
	return false
}

func cloneAttrs(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
