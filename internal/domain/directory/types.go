// Package directory holds backend-neutral directory types: entries, change lists,
// principals, groups and organizational units.
package directory

import (
	"sort"
	"strings"
)

// Scope is the depth of a directory search.
type Scope int

const (
	ScopeBase Scope = iota
	ScopeOne
	ScopeSub
)

// Entry is a raw directory object.
type Entry struct {
	DN         string
	Attributes map[string][]string
}

// Get returns the first value of attr (case-insensitive) or "".
func (e Entry) Get(attr string) string {
	if v := e.Values(attr); len(v) > 0 {
		return v[0]
	}
	return ""
}

// Values returns all values of attr (case-insensitive).
func (e Entry) Values(attr string) []string {
	if v, ok := e.Attributes[attr]; ok {
		return v
	}
	for k, v := range e.Attributes {
		if strings.EqualFold(k, attr) {
			return v
		}
	}
	return nil
}

// SearchRequest describes a search against one base.
type SearchRequest struct {
	BaseDN     string
	Filter     string
	Scope      Scope
	Attributes []string
	SizeLimit  int
}

// ChangeOp is a modify operation type.
type ChangeOp string

const (
	ChangeAdd     ChangeOp = "add"
	ChangeReplace ChangeOp = "replace"
	ChangeDelete  ChangeOp = "delete"
)

// Change is one element of a modify change list.
type Change struct {
	Op        ChangeOp
	Attribute string
	Values    []string
}

// Replace builds a replace change.
func Replace(attr string, values ...string) Change {
	return Change{Op: ChangeReplace, Attribute: attr, Values: values}
}

// AccountStatus is the derived account state. Enabled and Locked are independent;
// see the account-control notes in status.go.
type AccountStatus struct {
	Enabled bool `json:"enabled"`
	Locked  bool `json:"locked"`
}

// User is a directory principal.
type User struct {
	DN            string        `json:"dn"`
	Username      string        `json:"username"`
	CommonName    string        `json:"cn"`
	FirstName     string        `json:"first_name,omitempty"`
	LastName      string        `json:"last_name,omitempty"`
	DisplayName   string        `json:"display_name,omitempty"`
	Email         string        `json:"email,omitempty"`
	Phone         string        `json:"phone,omitempty"`
	PostalAddress string        `json:"postal_address,omitempty"`
	EmployeeID    string        `json:"employee_id,omitempty"`
	OrgUnit       string        `json:"ou,omitempty"`
	Status        AccountStatus `json:"status"`
}

// CreateUserRequest carries the attributes of a new principal.
type CreateUserRequest struct {
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	PostalAddress string `json:"postal_address,omitempty"`
	EmployeeID    string `json:"employee_id,omitempty"`
	OrgUnit       string `json:"ou"`
	Password      string `json:"password,omitempty"`
}

// UpdateUserRequest carries optional attribute replacements. Nil means unchanged.
type UpdateUserRequest struct {
	FirstName     *string `json:"first_name,omitempty"`
	LastName      *string `json:"last_name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	PostalAddress *string `json:"postal_address,omitempty"`
}

// Empty reports whether no field is set.
func (r UpdateUserRequest) Empty() bool {
	return r.FirstName == nil && r.LastName == nil && r.Email == nil && r.Phone == nil && r.PostalAddress == nil
}

// StatusAction is an account-control request.
type StatusAction string

const (
	ActionEnable  StatusAction = "enable"
	ActionDisable StatusAction = "disable"
	ActionLock    StatusAction = "lock"
	ActionUnlock  StatusAction = "unlock"
)

// Valid reports whether a is one of the known actions.
func (a StatusAction) Valid() bool {
	switch a {
	case ActionEnable, ActionDisable, ActionLock, ActionUnlock:
		return true
	}
	return false
}

// GroupClass separates privileged groups from ordinary ones.
type GroupClass string

const (
	GroupAdmin   GroupClass = "admin"
	GroupGeneral GroupClass = "general"
)

// Group is a directory group.
type Group struct {
	DN          string     `json:"dn"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Class       GroupClass `json:"class"`
	// TypeLabel is the human label of a backend-native group type (AD groupType).
	TypeLabel string   `json:"type,omitempty"`
	Members   []string `json:"members"`
}

// CreateGroupRequest carries a new group.
type CreateGroupRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	OrgUnit     string     `json:"ou,omitempty"`
	Class       GroupClass `json:"class,omitempty"`
}

// OrgUnit is an organizational unit or container.
type OrgUnit struct {
	DN          string `json:"dn"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CreateOrgUnitRequest carries a new organizational unit.
type CreateOrgUnitRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// DomainInfo describes the backend a session is bound to.
type DomainInfo struct {
	Backend string `json:"backend"`
	BaseDN  string `json:"base_dn"`
	Domain  string `json:"domain"`
}

// Principal is the minimal identity used during login.
type Principal struct {
	DN       string
	Username string
	Email    string
}

// MergeMembers returns the union of existing and add without duplicates, comparing
// DNs case-insensitively and preserving the first spelling seen.
func MergeMembers(existing, add []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(add))
	out := make([]string, 0, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, m := range list {
			k := strings.ToLower(strings.TrimSpace(m))
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
