package service

import (
	"fmt"
	"strings"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
	"golang.org/x/text/encoding/unicode"
)

// ADDialectConfig tunes the Active Directory schema mapping.
type ADDialectConfig struct {
	// UPNSuffix is appended to new accounts' userPrincipalName (defaults to the base DN's domain).
	UPNSuffix string
	// LockoutThreshold is the domain's bad-password threshold; zero trusts lockoutTime alone.
	LockoutThreshold int
	// Users and Groups are the default containers (both CN=Users).
	Users  directory.DNKey
	Groups directory.DNKey
}

type adDialect struct {
	cfg ADDialectConfig
}

// NewADDialect returns the Active Directory (user / group) dialect.
func NewADDialect(cfg ADDialectConfig) Dialect {
	if cfg.Users.Value == "" {
		cfg.Users = directory.DNKey{Type: directory.DNKeyCN, Value: "Users"}
	}
	if cfg.Groups.Value == "" {
		cfg.Groups = directory.DNKey{Type: directory.DNKeyCN, Value: "Users"}
	}
	return &adDialect{cfg: cfg}
}

const (
	adPersonFilter = "(&(objectClass=user)(objectCategory=person))"
	adGroupFilter  = "(objectClass=group)"
	adUAC          = "userAccountControl"
	adLockoutTime  = "lockoutTime"
	adBadPwdCount  = "badPwdCount"
	// adAdminAttr carries the admin marker on groups created as privileged.
	adAdminAttr = "adminDescription"
)

func (d *adDialect) AuthType() domainauth.AuthType { return domainauth.AuthTypeAD }

func (d *adDialect) UserFilter(username string) string {
	return and(adPersonFilter, or(eq("sAMAccountName", username), eq("cn", username)))
}

func (d *adDialect) EmployeeFilter(employeeID string) string {
	return and(adPersonFilter, eq("employeeID", employeeID))
}

func (d *adDialect) AllUsersFilter() string { return adPersonFilter }

func (d *adDialect) UserAttributes() []string {
	return []string{
		"sAMAccountName", "cn", "sn", "givenName", "displayName", "mail", "telephoneNumber",
		"postalAddress", "employeeID", adUAC, adLockoutTime, adBadPwdCount,
	}
}

func (d *adDialect) User(e directory.Entry) directory.User {
	return directory.User{
		DN:            e.DN,
		Username:      e.Get("sAMAccountName"),
		CommonName:    e.Get("cn"),
		FirstName:     e.Get("givenName"),
		LastName:      e.Get("sn"),
		DisplayName:   e.Get("displayName"),
		Email:         e.Get("mail"),
		Phone:         e.Get("telephoneNumber"),
		PostalAddress: e.Get("postalAddress"),
		EmployeeID:    e.Get("employeeID"),
		OrgUnit:       orgUnitOf(e.DN),
		Status:        directory.ADStatus(e.Get(adUAC), e.Get(adLockoutTime), e.Get(adBadPwdCount), d.cfg.LockoutThreshold),
	}
}

func (d *adDialect) UsersContainer() directory.DNKey { return d.cfg.Users }

// NewUser creates the account disabled unless a password is supplied; AD refuses
// to enable an account without one.
func (d *adDialect) NewUser(req directory.CreateUserRequest, parentDN string) (string, map[string][]string, error) {
	cn := displayName(req.FirstName, req.LastName)
	if cn == "" {
		cn = req.Username
	}
	attrs := map[string][]string{
		"objectClass":    {"top", "person", "organizationalPerson", "user"},
		"cn":             {cn},
		"sAMAccountName": {req.Username},
	}
	suffix := d.cfg.UPNSuffix
	if suffix == "" {
		suffix = directory.DomainFromBaseDN(parentDN)
	}
	if suffix != "" {
		attrs["userPrincipalName"] = []string{req.Username + "@" + suffix}
	}
	set(attrs, "givenName", req.FirstName)
	set(attrs, "sn", req.LastName)
	set(attrs, "displayName", cn)
	set(attrs, "mail", req.Email)
	set(attrs, "telephoneNumber", req.Phone)
	set(attrs, "postalAddress", req.PostalAddress)
	set(attrs, "employeeID", req.EmployeeID)

	uac := directory.UACDisabled
	if req.Password != "" {
		pwd, err := encodeADPassword(req.Password)
		if err != nil {
			return "", nil, err
		}
		attrs["unicodePwd"] = []string{pwd}
		uac = directory.UACEnabled
	}
	attrs[adUAC] = []string{fmt.Sprint(uac)}
	return directory.JoinDN("CN", cn, parentDN), attrs, nil
}

func (d *adDialect) UpdateUser(current directory.Entry, req directory.UpdateUserRequest) []directory.Change {
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

func (d *adDialect) SetPassword(password string) ([]directory.Change, error) {
	pwd, err := encodeADPassword(password)
	if err != nil {
		return nil, err
	}
	return []directory.Change{directory.Replace("unicodePwd", pwd)}, nil
}

// Status applies the userAccountControl quirk: AD has no writable lock flag, so
// lock sets ACCOUNTDISABLE and unlock clears lockoutTime and re-enables.
func (d *adDialect) Status(current directory.Entry, action directory.StatusAction) []directory.Change {
	uac := current.Get(adUAC)
	st := d.User(current).Status
	switch action {
	case directory.ActionEnable:
		if !st.Enabled {
			return []directory.Change{directory.Replace(adUAC, directory.ADSetDisabled(uac, false))}
		}
	case directory.ActionDisable, directory.ActionLock:
		if st.Enabled {
			return []directory.Change{directory.Replace(adUAC, directory.ADSetDisabled(uac, true))}
		}
	case directory.ActionUnlock:
		var changes []directory.Change
		if st.Locked {
			changes = append(changes, directory.Replace(adLockoutTime, "0"))
		}
		if !st.Enabled {
			changes = append(changes, directory.Replace(adUAC, directory.ADSetDisabled(uac, false)))
		}
		return changes
	}
	return nil
}

func (d *adDialect) GroupFilter(name string) string {
	return and(adGroupFilter, or(eq("cn", name), eq("sAMAccountName", name)))
}

func (d *adDialect) AllGroupsFilter() string { return adGroupFilter }

func (d *adDialect) MemberOfFilter(memberDN string) string {
	return and(adGroupFilter, eq(memberAttr, memberDN))
}

func (d *adDialect) GroupAttributes() []string {
	return []string{"cn", "sAMAccountName", "description", "groupType", adAdminAttr, memberAttr}
}

func (d *adDialect) Group(e directory.Entry, admin GroupClassifier) directory.Group {
	name := e.Get("cn")
	class := directory.GroupGeneral
	if isAdmin(admin, name) || isAdmin(admin, e.Get("sAMAccountName")) ||
		strings.EqualFold(e.Get(adAdminAttr), ldapAdminMarker) {
		class = directory.GroupAdmin
	}
	return directory.Group{
		DN:          e.DN,
		Name:        name,
		Description: e.Get("description"),
		Class:       class,
		TypeLabel:   directory.ADGroupTypeLabel(e.Get("groupType")),
		Members:     members(e),
	}
}

func (d *adDialect) GroupsContainer() directory.DNKey { return d.cfg.Groups }

func (d *adDialect) NewGroup(req directory.CreateGroupRequest, parentDN string) (string, map[string][]string) {
	attrs := map[string][]string{
		"objectClass":    {"top", "group"},
		"cn":             {req.Name},
		"sAMAccountName": {req.Name},
		"groupType":      {directory.ADGroupTypeValue()},
	}
	set(attrs, "description", req.Description)
	if req.Class == directory.GroupAdmin {
		attrs[adAdminAttr] = []string{ldapAdminMarker}
	}
	return directory.JoinDN("CN", req.Name, parentDN), attrs
}

func (d *adDialect) PlaceholderMember() (string, bool) { return "", false }

// encodeADPassword returns the quoted UTF-16LE form AD expects in unicodePwd.
func encodeADPassword(password string) (string, error) {
	if strings.ContainsRune(password, '"') {
		return "", fmt.Errorf("password must not contain a double quote")
	}
	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	out, err := enc.String(`"` + password + `"`)
	if err != nil {
		return "", fmt.Errorf("encode password: %w", err)
	}
	return out, nil
}
