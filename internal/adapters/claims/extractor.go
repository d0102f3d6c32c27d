// Package claims extracts single values from SSO profile attributes using JMESPath.
package claims

import (
	"fmt"
	"strconv"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
	"github.com/target/dirkeeper/internal/ports"
)

// Extractor evaluates one JMESPath expression against a profile's attribute map.
// Attribute values are exposed as arrays, so `employeeNumber[0]` and
// `"urn:oid:2.16.840.1.113730.3.1.3" | [0]` both work.
type Extractor struct {
	expr string
}

var _ ports.ClaimExtractor = (*Extractor)(nil)

// New compiles expr once to reject malformed expressions at startup.
func New(expr string) (*Extractor, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("claim expression is required")
	}
	if _, err := jmespath.Compile(expr); err != nil {
		return nil, fmt.Errorf("compile claim expression %q: %w", expr, err)
	}
	return &Extractor{expr: expr}, nil
}

// ForAttribute builds an extractor returning the first value of a named attribute.
func ForAttribute(name string) (*Extractor, error) {
	return New(strconv.Quote(name) + "[0]")
}

// Expression returns the source expression.
func (e *Extractor) Expression() string { return e.expr }

// Extract returns the first non-empty string the expression yields.
func (e *Extractor) Extract(attrs map[string][]string) (string, bool) {
	if e == nil || len(attrs) == 0 {
		return "", false
	}
	data := make(map[string]any, len(attrs))
	for k, vals := range attrs {
		arr := make([]any, len(vals))
		for i, v := range vals {
			arr[i] = v
		}
		data[k] = arr
	}
	res, err := jmespath.Search(e.expr, data)
	if err != nil {
		return "", false
	}
	return firstString(res)
}

func firstString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		return t, t != ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case []any:
		for _, item := range t {
			if s, ok := firstString(item); ok {
				return s, true
			}
		}
	}
	return "", false
}
