package service

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
)

// Dialect encodes one backend's schema: object classes, attribute names and the
// account-control quirk. DirectoryService holds the control flow; a Dialect only
// builds filters, entries and change lists.
type Dialect interface {
	AuthType() domainauth.AuthType

	// UserFilter matches a principal by account name or common name.
	UserFilter(username string) string
	// EmployeeFilter matches a principal by employee identifier.
	EmployeeFilter(employeeID string) string
	AllUsersFilter() string
	UserAttributes() []string
	User(e directory.Entry) directory.User
	// UsersContainer is where principals are created when no OU is given.
	UsersContainer() directory.DNKey
	NewUser(req directory.CreateUserRequest, parentDN string) (dn string, attrs map[string][]string, err error)
	UpdateUser(current directory.Entry, req directory.UpdateUserRequest) []directory.Change
	SetPassword(password string) ([]directory.Change, error)
	// Status returns the changes that apply action to the entry. An empty list
	// means the entry is already in the requested state.
	Status(current directory.Entry, action directory.StatusAction) []directory.Change

	GroupFilter(name string) string
	AllGroupsFilter() string
	MemberOfFilter(memberDN string) string
	GroupAttributes() []string
	Group(e directory.Entry, admin GroupClassifier) directory.Group
	GroupsContainer() directory.DNKey
	NewGroup(req directory.CreateGroupRequest, parentDN string) (dn string, attrs map[string][]string)
	// PlaceholderMember is the value kept in a group that must never be empty.
	PlaceholderMember() (string, bool)
}

// GroupClassifier reports whether a group name is privileged.
type GroupClassifier interface {
	IsAdminGroup(name string) bool
}

const (
	orgUnitFilter = "(objectClass=organizationalUnit)"
	memberAttr    = "member"
)

var orgUnitAttributes = []string{"ou", "description"}

func orgUnitFromEntry(e directory.Entry) directory.OrgUnit {
	name := e.Get("ou")
	if name == "" {
		name = directory.FirstRDNValue(e.DN)
	}
	return directory.OrgUnit{DN: e.DN, Name: name, Description: e.Get("description")}
}

func newOrgUnitEntry(req directory.CreateOrgUnitRequest, baseDN string) (string, map[string][]string) {
	attrs := map[string][]string{
		"objectClass": {"top", "organizationalUnit"},
		"ou":          {req.Name},
	}
	if req.Description != "" {
		attrs["description"] = []string{req.Description}
	}
	return directory.JoinDN("OU", req.Name, baseDN), attrs
}

// eq builds an escaped equality assertion.
func eq(attr, value string) string {
	return "(" + attr + "=" + ldap.EscapeFilter(value) + ")"
}

func and(parts ...string) string { return "(&" + strings.Join(parts, "") + ")" }

func or(parts ...string) string { return "(|" + strings.Join(parts, "") + ")" }

// set adds attr to attrs when value is non-empty.
func set(attrs map[string][]string, attr, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[attr] = []string{v}
	}
}

// replaceOrClear maps an optional field to a replace change. An empty value
// clears the attribute.
func replaceOrClear(changes []directory.Change, attr string, value *string) []directory.Change {
	if value == nil {
		return changes
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return append(changes, directory.Change{Op: directory.ChangeReplace, Attribute: attr})
	}
	return append(changes, directory.Replace(attr, v))
}

func displayName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}

// updatedDisplayName recomputes the display name when either name part changes.
func updatedDisplayName(current directory.Entry, req directory.UpdateUserRequest) (string, bool) {
	if req.FirstName == nil && req.LastName == nil {
		return "", false
	}
	first, last := current.Get("givenName"), current.Get("sn")
	if req.FirstName != nil {
		first = *req.FirstName
	}
	if req.LastName != nil {
		last = *req.LastName
	}
	return displayName(first, last), true
}

func orgUnitOf(dn string) string {
	if key, err := directory.ResolveDNKey(dn); err == nil {
		return key.Value
	}
	return ""
}

// members drops the placeholder value from a member list.
func members(e directory.Entry) []string {
	vals := e.Values(memberAttr)
	out := make([]string, 0, len(vals))
	for _, m := range vals {
		if strings.TrimSpace(m) != "" {
			out = append(out, m)
		}
	}
	return out
}

func isAdmin(c GroupClassifier, name string) bool {
	return c != nil && c.IsAdminGroup(name)
}
