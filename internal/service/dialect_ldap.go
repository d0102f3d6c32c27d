package service

import (
	"errors"
	"strings"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
)

// LDAPDialectConfig tunes the OpenLDAP schema mapping.
type LDAPDialectConfig struct {
	// InactiveAttr and InactiveValue mark a disabled account (default employeeType=inactive).
	InactiveAttr  string
	InactiveValue string
	// EmployeeIDAttr defaults to employeeNumber.
	EmployeeIDAttr string
	// Users and Groups are the default containers (OU=people, OU=groups).
	Users  directory.DNKey
	Groups directory.DNKey
}

type ldapDialect struct {
	cfg LDAPDialectConfig
}

// NewLDAPDialect returns the OpenLDAP (inetOrgPerson / groupOfNames) dialect.
func NewLDAPDialect(cfg LDAPDialectConfig) Dialect {
	if cfg.InactiveAttr == "" {
		cfg.InactiveAttr = "employeeType"
	}
	if cfg.InactiveValue == "" {
		cfg.InactiveValue = "inactive"
	}
	if cfg.EmployeeIDAttr == "" {
		cfg.EmployeeIDAttr = "employeeNumber"
	}
	if cfg.Users.Value == "" {
		cfg.Users = directory.DNKey{Type: directory.DNKeyOU, Value: "people"}
	}
	if cfg.Groups.Value == "" {
		cfg.Groups = directory.DNKey{Type: directory.DNKeyOU, Value: "groups"}
	}
	return &ldapDialect{cfg: cfg}
}

const (
	ldapPersonFilter = "(objectClass=inetOrgPerson)"
	ldapGroupFilter  = "(objectClass=groupOfNames)"
	ldapLockAttr     = "pwdAccountLockedTime"
	ldapAdminMarker  = "admin"
)

func (d *ldapDialect) AuthType() domainauth.AuthType { return domainauth.AuthTypeLDAP }

func (d *ldapDialect) UserFilter(username string) string {
	return and(ldapPersonFilter, or(eq("uid", username), eq("cn", username)))
}

func (d *ldapDialect) EmployeeFilter(employeeID string) string {
	return and(ldapPersonFilter, eq(d.cfg.EmployeeIDAttr, employeeID))
}

func (d *ldapDialect) AllUsersFilter() string { return ldapPersonFilter }

func (d *ldapDialect) UserAttributes() []string {
	return []string{
		"uid", "cn", "sn", "givenName", "displayName", "mail", "telephoneNumber",
		"postalAddress", d.cfg.EmployeeIDAttr, ldapLockAttr, d.cfg.InactiveAttr,
	}
}

func (d *ldapDialect) User(e directory.Entry) directory.User {
	username := e.Get("uid")
	if username == "" {
		username = e.Get("cn")
	}
	inactive := ""
	for _, v := range e.Values(d.cfg.InactiveAttr) {
		if strings.EqualFold(v, d.cfg.InactiveValue) {
			inactive = v
		}
	}
	return directory.User{
		DN:            e.DN,
		Username:      username,
		CommonName:    e.Get("cn"),
		FirstName:     e.Get("givenName"),
		LastName:      e.Get("sn"),
		DisplayName:   e.Get("displayName"),
		Email:         e.Get("mail"),
		Phone:         e.Get("telephoneNumber"),
		PostalAddress: e.Get("postalAddress"),
		EmployeeID:    e.Get(d.cfg.EmployeeIDAttr),
		OrgUnit:       orgUnitOf(e.DN),
		Status:        directory.OpenLDAPStatus(e.Get(ldapLockAttr), inactive, d.cfg.InactiveValue),
	}
}

func (d *ldapDialect) UsersContainer() directory.DNKey { return d.cfg.Users }

func (d *ldapDialect) NewUser(req directory.CreateUserRequest, parentDN string) (string, map[string][]string, error) {
	if req.LastName == "" {
		return "", nil, errors.New("last name is required")
	}
	attrs := map[string][]string{
		"objectClass": {"top", "person", "organizationalPerson", "inetOrgPerson"},
		"cn":          {req.Username},
		"uid":         {req.Username},
		"sn":          {req.LastName},
	}
	set(attrs, "givenName", req.FirstName)
	set(attrs, "displayName", displayName(req.FirstName, req.LastName))
	set(attrs, "mail", req.Email)
	set(attrs, "telephoneNumber", req.Phone)
	set(attrs, "postalAddress", req.PostalAddress)
	set(attrs, d.cfg.EmployeeIDAttr, req.EmployeeID)
	set(attrs, "ou", req.OrgUnit)
	if req.Password != "" {
		attrs["userPassword"] = []string{req.Password}
	}
	return directory.JoinDN("CN", req.Username, parentDN), attrs, nil
}

func (d *ldapDialect) UpdateUser(current directory.Entry, req directory.UpdateUserRequest) []directory.Change {
	var changes []directory.Change
	changes = replaceOrClear(changes, "givenName", req.FirstName)
	changes = replaceOrClear(changes, "sn", req.LastName)
	changes = replaceOrClear(changes, "mail", req.Email)
	changes = replaceOrClear(changes, "telephoneNumber", req.Phone)
	changes = replaceOrClear(changes, "postalAddress", req.PostalAddress)
	if name, ok := updatedDisplayName(current, req); ok {
		changes = replaceOrClear(changes, "displayName", &name)
	}
	return changes
}

func (d *ldapDialect) SetPassword(password string) ([]directory.Change, error) {
	return []directory.Change{directory.Replace("userPassword", password)}, nil
}

// Status maps actions onto the two independent OpenLDAP attributes.
func (d *ldapDialect) Status(current directory.Entry, action directory.StatusAction) []directory.Change {
	st := d.User(current).Status
	switch action {
	case directory.ActionLock:
		if !st.Locked {
			return []directory.Change{directory.Replace(ldapLockAttr, directory.OpenLDAPLockedTime)}
		}
	case directory.ActionUnlock:
		if st.Locked {
			return []directory.Change{{Op: directory.ChangeDelete, Attribute: ldapLockAttr}}
		}
	case directory.ActionDisable:
		if st.Enabled {
			return []directory.Change{{Op: directory.ChangeAdd, Attribute: d.cfg.InactiveAttr, Values: []string{d.cfg.InactiveValue}}}
		}
	case directory.ActionEnable:
		if !st.Enabled {
			var marked []string
			for _, v := range current.Values(d.cfg.InactiveAttr) {
				if strings.EqualFold(v, d.cfg.InactiveValue) {
					marked = append(marked, v)
				}
			}
			return []directory.Change{{Op: directory.ChangeDelete, Attribute: d.cfg.InactiveAttr, Values: marked}}
		}
	}
	return nil
}

func (d *ldapDialect) GroupFilter(name string) string {
	return and(ldapGroupFilter, eq("cn", name))
}

func (d *ldapDialect) AllGroupsFilter() string { return ldapGroupFilter }

func (d *ldapDialect) MemberOfFilter(memberDN string) string {
	return and(ldapGroupFilter, eq(memberAttr, memberDN))
}

func (d *ldapDialect) GroupAttributes() []string {
	return []string{"cn", "description", "businessCategory", memberAttr}
}

func (d *ldapDialect) Group(e directory.Entry, admin GroupClassifier) directory.Group {
	name := e.Get("cn")
	class := directory.GroupGeneral
	if isAdmin(admin, name) || strings.EqualFold(e.Get("businessCategory"), ldapAdminMarker) {
		class = directory.GroupAdmin
	}
	return directory.Group{
		DN:          e.DN,
		Name:        name,
		Description: e.Get("description"),
		Class:       class,
		Members:     members(e),
	}
}

func (d *ldapDialect) GroupsContainer() directory.DNKey { return d.cfg.Groups }

// NewGroup seeds groupOfNames with the empty DN since member is a required attribute.
func (d *ldapDialect) NewGroup(req directory.CreateGroupRequest, parentDN string) (string, map[string][]string) {
	attrs := map[string][]string{
		"objectClass": {"top", "groupOfNames"},
		"cn":          {req.Name},
		memberAttr:    {""},
	}
	set(attrs, "description", req.Description)
	if req.Class == directory.GroupAdmin {
		attrs["businessCategory"] = []string{ldapAdminMarker}
	}
	return directory.JoinDN("CN", req.Name, parentDN), attrs
}

func (d *ldapDialect) PlaceholderMember() (string, bool) { return "", true }
