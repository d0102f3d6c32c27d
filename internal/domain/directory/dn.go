package directory

import (
	"errors"
	"regexp"
	"strings"
)

// DNKeyType is the RDN type of the container that holds an entry.
type DNKeyType string

const (
	DNKeyOU DNKeyType = "OU"
	DNKeyCN DNKeyType = "CN"
)

// DNKey is the container type/value pair of an entry's immediate parent.
type DNKey struct {
	Type  DNKeyType
	Value string
}

// ErrUnresolvableDN is returned when a DN has no OU or CN parent.
var ErrUnresolvableDN = errors.New("dn has no OU or CN parent")

// parentRDN matches the first RDN after the entry's own RDN. Escaped commas are
// skipped by the leading group.
var parentRDN = regexp.MustCompile(`^(?:[^,\\]|\\.)+,\s*(?i:(ou|cn))\s*=\s*((?:[^,\\]|\\.)+)`)

// ResolveDNKey extracts the immediate parent RDN of dn.
//
//	CN=Jane Doe,OU=Sales,DC=example,DC=com  -> {OU, Sales}
//	CN=Jane Doe,CN=Users,DC=example,DC=com  -> {CN, Users}
func ResolveDNKey(dn string) (DNKey, error) {
	m := parentRDN.FindStringSubmatch(strings.TrimSpace(dn))
	if m == nil {
		return DNKey{}, ErrUnresolvableDN
	}
	return DNKey{
		Type:  DNKeyType(strings.ToUpper(m[1])),
		Value: UnescapeRDNValue(strings.TrimSpace(m[2])),
	}, nil
}

// FirstRDNValue returns the value of the leftmost RDN ("Jane Doe" for CN=Jane Doe,...).
func FirstRDNValue(dn string) string {
	rdn := splitFirst(dn)
	if i := strings.IndexByte(rdn, '='); i >= 0 {
		return UnescapeRDNValue(strings.TrimSpace(rdn[i+1:]))
	}
	return ""
}

// splitFirst returns the leftmost RDN, honoring backslash escapes.
func splitFirst(dn string) string {
	if i := rdnSeparator(dn); i >= 0 {
		return dn[:i]
	}
	return dn
}

// rdnSeparator returns the index of the first unescaped comma in dn, or -1.
func rdnSeparator(dn string) int {
	escaped := false
	for i, r := range dn {
		switch {
		case escaped:
			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			return i
		}
	}
	return -1
}

// splitRDNs splits dn on unescaped commas.
func splitRDNs(dn string) []string {
	var rdns []string
	for {
		i := rdnSeparator(dn)
		if i < 0 {
			return append(rdns, dn)
		}
		rdns = append(rdns, dn[:i])
		dn = dn[i+1:]
	}
}

// EscapeRDNValue escapes a value for use inside an RDN (RFC 4514).
func EscapeRDNValue(v string) string {
	var b strings.Builder
	for i, r := range v {
		switch {
		case strings.ContainsRune(`,+"\<>;=`, r):
			b.WriteByte('\\')
			b.WriteRune(r)
		case i == 0 && (r == ' ' || r == '#'):
			b.WriteByte('\\')
			b.WriteRune(r)
		case i == len(v)-1 && r == ' ':
			b.WriteString(`\ `)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// UnescapeRDNValue reverses simple backslash escapes.
func UnescapeRDNValue(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	escaped := false
	for _, r := range v {
		if !escaped && r == '\\' {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

// JoinDN builds "<attr>=<escaped value>,<parent>".
func JoinDN(attr, value, parent string) string {
	rdn := attr + "=" + EscapeRDNValue(value)
	if parent == "" {
		return rdn
	}
	return rdn + "," + parent
}

// ContainerDN returns the DN of a key under base: OU=Sales,<base> or CN=Users,<base>.
func (k DNKey) ContainerDN(base string) string {
	return JoinDN(string(k.Type), k.Value, base)
}

// EqualDN compares two DNs ignoring case and whitespace around separators.
func EqualDN(a, b string) bool {
	return normalizeDN(a) == normalizeDN(b)
}

func normalizeDN(dn string) string {
	parts := splitRDNs(dn)
	for i, p := range parts {
		if k, v, ok := strings.Cut(p, "="); ok {
			p = strings.TrimSpace(k) + "=" + trimRDNValue(v)
		}
		parts[i] = strings.ToLower(p)
	}
	return strings.Join(parts, ",")
}

// trimRDNValue drops surrounding spaces but keeps an escaped trailing space.
func trimRDNValue(v string) string {
	v = strings.TrimLeft(v, " ")
	for strings.HasSuffix(v, " ") && !strings.HasSuffix(v, `\ `) {
		v = v[:len(v)-1]
	}
	return v
}

// DomainFromBaseDN turns DC=example,DC=com into example.com.
func DomainFromBaseDN(base string) string {
	var labels []string
	for _, p := range strings.Split(base, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if ok && strings.EqualFold(strings.TrimSpace(k), "dc") {
			labels = append(labels, strings.TrimSpace(v))
		}
	}
	return strings.Join(labels, ".")
}
