package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/target/dirkeeper/internal/domain/directory"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/ports"
)

// DirectoryServiceConfig holds optional collaborators.
type DirectoryServiceConfig struct {
	Groups    GroupClassifier // privileged group names; nil classifies by schema only
	Logger    *slog.Logger
	SizeLimit int // 0 means unlimited
}

// DirectoryServiceOptions groups dependencies for DirectoryService.
type DirectoryServiceOptions struct {
	Directory ports.Directory
	Dialect   Dialect
	Config    DirectoryServiceConfig
}

// DirectoryService implements user, group and organizational-unit management for
// one backend. Every method binds as the service account, runs its operation
// sequence and unbinds on every return path.
type DirectoryService struct {
	dir     ports.Directory
	dialect Dialect
	groups  GroupClassifier
	logger  *slog.Logger
	limit   int
}

// NewDirectoryService constructs a DirectoryService. Directory and Dialect are required.
func NewDirectoryService(opts DirectoryServiceOptions) *DirectoryService {
	if opts.Directory == nil || opts.Dialect == nil {
		panic("service: DirectoryService requires a Directory and a Dialect")
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{
		dir:     opts.Directory,
		dialect: opts.Dialect,
		groups:  opts.Config.Groups,
		logger:  logger.With("backend", string(opts.Dialect.AuthType())),
		limit:   opts.Config.SizeLimit,
	}
}

// Backend returns the auth type this service serves.
func (s *DirectoryService) Backend() string { return string(s.dialect.AuthType()) }

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._@-]{0,63}$`)

// withAdmin runs fn on a connection bound as the service account. The bind is
// released before withAdmin returns, whatever fn does.
func (s *DirectoryService) withAdmin(ctx context.Context, fn func(conn ports.BoundConn) error) error {
	conn, err := s.dir.BindAdmin(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrAuthenticationFailed) {
			s.logger.ErrorContext(ctx, "service account bind rejected", "error", err)
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "directory operation failed")
		}
		return directoryError(err, "directory")
	}
	defer conn.Unbind()
	return fn(conn)
}

func (s *DirectoryService) search(ctx context.Context, conn ports.BoundConn, base, filter string, scope directory.Scope, attrs []string) ([]directory.Entry, error) {
	if base == "" {
		base = s.dir.BaseDN()
	}
	return conn.Search(ctx, directory.SearchRequest{
		BaseDN:     base,
		Filter:     filter,
		Scope:      scope,
		Attributes: attrs,
		SizeLimit:  s.limit,
	})
}

// scopeDN returns the search base for an optional OU name.
func (s *DirectoryService) scopeDN(ou string) string {
	if strings.TrimSpace(ou) == "" {
		return s.dir.BaseDN()
	}
	return directory.DNKey{Type: directory.DNKeyOU, Value: strings.TrimSpace(ou)}.ContainerDN(s.dir.BaseDN())
}

// readUser re-reads a principal by DN.
func (s *DirectoryService) readUser(ctx context.Context, conn ports.BoundConn, dn string) (directory.Entry, error) {
	return s.findOne(ctx, conn, dn, directory.ScopeBase, s.dialect.AllUsersFilter(), s.dialect.UserAttributes(), "user")
}

// findOne resolves a single entry by filter. Zero matches is NotFound; more than
// one is a Conflict because the natural key is ambiguous.
func (s *DirectoryService) findOne(ctx context.Context, conn ports.BoundConn, base string, scope directory.Scope, filter string, attrs []string, subject string) (directory.Entry, error) {
	entries, err := s.search(ctx, conn, base, filter, scope, attrs)
	if err != nil {
		return directory.Entry{}, directoryError(err, subject)
	}
	switch len(entries) {
	case 0:
		return directory.Entry{}, apperrors.NotFound(subject + " not found")
	case 1:
		return entries[0], nil
	default:
		return directory.Entry{}, apperrors.Conflictf("%s name is ambiguous", subject)
	}
}

func (s *DirectoryService) findUser(ctx context.Context, conn ports.BoundConn, username, ou string) (directory.Entry, error) {
	if strings.TrimSpace(username) == "" {
		return directory.Entry{}, apperrors.ValidationField("username", "username is required")
	}
	return s.findOne(ctx, conn, s.scopeDN(ou), directory.ScopeSub, s.dialect.UserFilter(strings.TrimSpace(username)), s.dialect.UserAttributes(), "user")
}

func (s *DirectoryService) findGroup(ctx context.Context, conn ports.BoundConn, name string) (directory.Group, error) {
	if strings.TrimSpace(name) == "" {
		return directory.Group{}, apperrors.ValidationField("name", "group name is required")
	}
	e, err := s.findOne(ctx, conn, "", directory.ScopeSub, s.dialect.GroupFilter(strings.TrimSpace(name)), s.dialect.GroupAttributes(), "group")
	if err != nil {
		return directory.Group{}, err
	}
	return s.dialect.Group(e, s.groups), nil
}

// Authenticate verifies a principal's password. Unknown principals and bad
// passwords are indistinguishable to the caller.
func (s *DirectoryService) Authenticate(ctx context.Context, username, password string) (directory.Principal, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return directory.Principal{}, apperrors.Validation("username and password are required")
	}
	var p directory.Principal
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			if apperrors.IsNotFound(err) || apperrors.IsConflict(err) {
				return apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid credentials")
			}
			return err
		}
		if err := conn.Rebind(ctx, e.DN, password); err != nil {
			return directoryError(err, "user")
		}
		u := s.dialect.User(e)
		p = directory.Principal{DN: e.DN, Username: u.Username, Email: u.Email}
		return nil
	})
	return p, err
}

// LookupByEmployeeID finds the principal carrying an employee identifier.
func (s *DirectoryService) LookupByEmployeeID(ctx context.Context, employeeID string) (directory.Principal, error) {
	if strings.TrimSpace(employeeID) == "" {
		return directory.Principal{}, apperrors.Validation("employee id is required")
	}
	var p directory.Principal
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findOne(ctx, conn, "", directory.ScopeSub, s.dialect.EmployeeFilter(strings.TrimSpace(employeeID)), s.dialect.UserAttributes(), "user")
		if err != nil {
			return err
		}
		u := s.dialect.User(e)
		p = directory.Principal{DN: e.DN, Username: u.Username, Email: u.Email}
		return nil
	})
	return p, err
}

// MemberGroups returns the DNs of every group that lists memberDN. No membership
// is an empty list, not an error.
func (s *DirectoryService) MemberGroups(ctx context.Context, memberDN string) ([]string, error) {
	out := []string{}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		entries, err := s.search(ctx, conn, "", s.dialect.MemberOfFilter(memberDN), directory.ScopeSub, []string{"cn"})
		if err != nil {
			return directoryError(err, "group")
		}
		for _, e := range entries {
			out = append(out, e.DN)
		}
		return nil
	})
	return out, err
}

// ListUsers returns principals, optionally scoped to one OU.
func (s *DirectoryService) ListUsers(ctx context.Context, ou string) ([]directory.User, error) {
	users := []directory.User{}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		entries, err := s.search(ctx, conn, s.scopeDN(ou), s.dialect.AllUsersFilter(), directory.ScopeSub, s.dialect.UserAttributes())
		if err != nil {
			return directoryError(err, "user")
		}
		for _, e := range entries {
			users = append(users, s.dialect.User(e))
		}
		return nil
	})
	sort.Slice(users, func(i, j int) bool { return strings.ToLower(users[i].Username) < strings.ToLower(users[j].Username) })
	return users, err
}

// GetUser resolves one principal by account or common name within an optional OU.
func (s *DirectoryService) GetUser(ctx context.Context, username, ou string) (directory.User, error) {
	var u directory.User
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, ou)
		if err != nil {
			return err
		}
		u = s.dialect.User(e)
		return nil
	})
	return u, err
}

func validateCreateUser(req directory.CreateUserRequest) error {
	if !usernamePattern.MatchString(req.Username) {
		return apperrors.ValidationField("username", "username must be 1-64 letters, digits, '.', '_', '@' or '-'")
	}
	if strings.TrimSpace(req.LastName) == "" {
		return apperrors.ValidationField("last_name", "last name is required")
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return apperrors.ValidationField("email", "email is invalid")
		}
	}
	return nil
}

// CreateUser adds a principal under OU=<ou> or the dialect's default container.
// An existing DN or unique attribute is a Conflict, never an overwrite.
func (s *DirectoryService) CreateUser(ctx context.Context, req directory.CreateUserRequest) (directory.User, error) {
	if err := validateCreateUser(req); err != nil {
		return directory.User{}, err
	}
	parent := s.dialect.UsersContainer().ContainerDN(s.dir.BaseDN())
	if strings.TrimSpace(req.OrgUnit) != "" {
		parent = s.scopeDN(req.OrgUnit)
	}
	dn, attrs, err := s.dialect.NewUser(req, parent)
	if err != nil {
		return directory.User{}, apperrors.Wrap(err, apperrors.ErrCodeValidation, err.Error())
	}
	var u directory.User
	err = s.withAdmin(ctx, func(conn ports.BoundConn) error {
		existing, err := s.search(ctx, conn, "", s.dialect.UserFilter(req.Username), directory.ScopeSub, []string{"cn"})
		if err != nil {
			return directoryError(err, "user")
		}
		if len(existing) > 0 {
			return apperrors.Conflict("user already exists")
		}
		if err := conn.Add(ctx, dn, attrs); err != nil {
			return directoryError(err, "user")
		}
		e, err := s.readUser(ctx, conn, dn)
		if err != nil {
			return err
		}
		u = s.dialect.User(e)
		return nil
	})
	if err == nil {
		s.logger.InfoContext(ctx, "user created", "dn", dn)
	}
	return u, err
}

// UpdateUser replaces the supplied attributes.
func (s *DirectoryService) UpdateUser(ctx context.Context, username string, req directory.UpdateUserRequest) (directory.User, error) {
	if req.Empty() {
		return directory.User{}, apperrors.Validation("no attributes to update")
	}
	if req.LastName != nil && strings.TrimSpace(*req.LastName) == "" {
		return directory.User{}, apperrors.ValidationField("last_name", "last name cannot be empty")
	}
	if req.Email != nil && *req.Email != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return directory.User{}, apperrors.ValidationField("email", "email is invalid")
		}
	}
	var u directory.User
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			return err
		}
		if err := conn.Modify(ctx, e.DN, s.dialect.UpdateUser(e, req)); err != nil {
			return directoryError(err, "user")
		}
		e, err = s.readUser(ctx, conn, e.DN)
		if err != nil {
			return err
		}
		u = s.dialect.User(e)
		return nil
	})
	return u, err
}

// DeleteUser removes a principal. Group memberships are left to the directory's
// referential integrity.
func (s *DirectoryService) DeleteUser(ctx context.Context, username string) error {
	return s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			return err
		}
		if err := conn.Delete(ctx, e.DN); err != nil {
			return directoryError(err, "user")
		}
		s.logger.InfoContext(ctx, "user deleted", "dn", e.DN)
		return nil
	})
}

// ResetPassword sets a new password as the service account.
func (s *DirectoryService) ResetPassword(ctx context.Context, username, password string) error {
	if password == "" {
		return apperrors.ValidationField("password", "password is required")
	}
	changes, err := s.dialect.SetPassword(password)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "password is not acceptable")
	}
	return s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			return err
		}
		return directoryError(conn.Modify(ctx, e.DN, changes), "user")
	})
}

// SetUserStatus applies enable, disable, lock or unlock.
func (s *DirectoryService) SetUserStatus(ctx context.Context, username string, action directory.StatusAction) (directory.User, error) {
	if !action.Valid() {
		return directory.User{}, apperrors.ValidationField("action", "action must be one of enable, disable, lock, unlock")
	}
	var u directory.User
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			return err
		}
		if changes := s.dialect.Status(e, action); len(changes) > 0 {
			if err := conn.Modify(ctx, e.DN, changes); err != nil {
				return directoryError(err, "user")
			}
			if e, err = s.readUser(ctx, conn, e.DN); err != nil {
				return err
			}
		}
		u = s.dialect.User(e)
		return nil
	})
	return u, err
}

// UserGroups lists the groups a principal belongs to.
func (s *DirectoryService) UserGroups(ctx context.Context, username string) ([]directory.Group, error) {
	groups := []directory.Group{}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findUser(ctx, conn, username, "")
		if err != nil {
			return err
		}
		entries, err := s.search(ctx, conn, "", s.dialect.MemberOfFilter(e.DN), directory.ScopeSub, s.dialect.GroupAttributes())
		if err != nil {
			return directoryError(err, "group")
		}
		for _, ge := range entries {
			groups = append(groups, s.dialect.Group(ge, s.groups))
		}
		return nil
	})
	return groups, err
}

// ListGroups returns groups of one class, or all groups when class is empty.
func (s *DirectoryService) ListGroups(ctx context.Context, class directory.GroupClass) ([]directory.Group, error) {
	groups := []directory.Group{}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		entries, err := s.search(ctx, conn, "", s.dialect.AllGroupsFilter(), directory.ScopeSub, s.dialect.GroupAttributes())
		if err != nil {
			return directoryError(err, "group")
		}
		for _, e := range entries {
			g := s.dialect.Group(e, s.groups)
			if class == "" || g.Class == class {
				groups = append(groups, g)
			}
		}
		return nil
	})
	sort.Slice(groups, func(i, j int) bool { return strings.ToLower(groups[i].Name) < strings.ToLower(groups[j].Name) })
	return groups, err
}

// GetGroup resolves one group by name.
func (s *DirectoryService) GetGroup(ctx context.Context, name string) (directory.Group, error) {
	var g directory.Group
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		var err error
		g, err = s.findGroup(ctx, conn, name)
		return err
	})
	return g, err
}

// CreateGroup adds a group under OU=<ou> or the dialect's default container.
func (s *DirectoryService) CreateGroup(ctx context.Context, req directory.CreateGroupRequest) (directory.Group, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return directory.Group{}, apperrors.ValidationField("name", "group name is required")
	}
	switch req.Class {
	case "":
		req.Class = directory.GroupGeneral
	case directory.GroupGeneral, directory.GroupAdmin:
	default:
		return directory.Group{}, apperrors.ValidationField("class", "class must be admin or general")
	}
	parent := s.dialect.GroupsContainer().ContainerDN(s.dir.BaseDN())
	if strings.TrimSpace(req.OrgUnit) != "" {
		parent = s.scopeDN(req.OrgUnit)
	}
	dn, attrs := s.dialect.NewGroup(req, parent)
	var g directory.Group
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		if err := conn.Add(ctx, dn, attrs); err != nil {
			return directoryError(err, "group")
		}
		var err error
		g, err = s.findGroup(ctx, conn, req.Name)
		return err
	})
	return g, err
}

// DeleteGroup removes a group of the given class.
func (s *DirectoryService) DeleteGroup(ctx context.Context, name string, class directory.GroupClass) error {
	return s.withAdmin(ctx, func(conn ports.BoundConn) error {
		g, err := s.findGroup(ctx, conn, name)
		if err != nil {
			return err
		}
		if err := checkClass(g, class); err != nil {
			return err
		}
		return directoryError(conn.Delete(ctx, g.DN), "group")
	})
}

// checkClass rejects operations whose scope does not match the group's class.
func checkClass(g directory.Group, class directory.GroupClass) error {
	if class == "" || g.Class == class {
		return nil
	}
	if g.Class == directory.GroupAdmin {
		return apperrors.Validationf("group %q is an admin group", g.Name)
	}
	return apperrors.Validationf("group %q is not an admin group", g.Name)
}

// resolveMembers maps usernames (or DNs under the base) to principal DNs.
func (s *DirectoryService) resolveMembers(ctx context.Context, conn ports.BoundConn, refs []string) ([]string, error) {
	if len(refs) == 0 {
		return nil, apperrors.ValidationField("members", "at least one member is required")
	}
	dns := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return nil, apperrors.ValidationField("members", "member names cannot be empty")
		}
		if strings.Contains(ref, "=") {
			e, err := s.findOne(ctx, conn, ref, directory.ScopeBase, s.dialect.AllUsersFilter(), []string{"cn"}, "member")
			if err != nil {
				return nil, err
			}
			dns = append(dns, e.DN)
			continue
		}
		e, err := s.findUser(ctx, conn, ref, "")
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NotFoundf("user %q not found", ref)
			}
			return nil, err
		}
		dns = append(dns, e.DN)
	}
	return dns, nil
}

// AddMembers adds principals to a group of the given class. Existing members are skipped.
func (s *DirectoryService) AddMembers(ctx context.Context, name string, class directory.GroupClass, refs []string) (directory.Group, error) {
	var g directory.Group
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		var err error
		if g, err = s.findGroup(ctx, conn, name); err != nil {
			return err
		}
		if err := checkClass(g, class); err != nil {
			return err
		}
		dns, err := s.resolveMembers(ctx, conn, refs)
		if err != nil {
			return err
		}
		var add []string
		for _, dn := range directory.MergeMembers(nil, dns) {
			if !containsDN(g.Members, dn) {
				add = append(add, dn)
			}
		}
		if len(add) == 0 {
			return nil
		}
		changes := []directory.Change{{Op: directory.ChangeAdd, Attribute: memberAttr, Values: add}}
		if placeholder, ok := s.dialect.PlaceholderMember(); ok && len(g.Members) == 0 {
			changes = append(changes, directory.Change{Op: directory.ChangeDelete, Attribute: memberAttr, Values: []string{placeholder}})
		}
		if err := conn.Modify(ctx, g.DN, changes); err != nil {
			return directoryError(err, "group")
		}
		g.Members = directory.MergeMembers(g.Members, add)
		return nil
	})
	return g, err
}

// RemoveMembers removes principals from a group of the given class. Non-members are skipped.
func (s *DirectoryService) RemoveMembers(ctx context.Context, name string, class directory.GroupClass, refs []string) (directory.Group, error) {
	var g directory.Group
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		var err error
		if g, err = s.findGroup(ctx, conn, name); err != nil {
			return err
		}
		if err := checkClass(g, class); err != nil {
			return err
		}
		dns, err := s.resolveMembers(ctx, conn, refs)
		if err != nil {
			return err
		}
		var del []string
		remaining := make([]string, 0, len(g.Members))
		for _, m := range g.Members {
			if containsDN(dns, m) {
				del = append(del, m)
			} else {
				remaining = append(remaining, m)
			}
		}
		if len(del) == 0 {
			return nil
		}
		var changes []directory.Change
		if placeholder, ok := s.dialect.PlaceholderMember(); ok && len(remaining) == 0 {
			changes = append(changes, directory.Change{Op: directory.ChangeAdd, Attribute: memberAttr, Values: []string{placeholder}})
		}
		changes = append(changes, directory.Change{Op: directory.ChangeDelete, Attribute: memberAttr, Values: del})
		if err := conn.Modify(ctx, g.DN, changes); err != nil {
			return directoryError(err, "group")
		}
		g.Members = remaining
		return nil
	})
	return g, err
}

// LockResult reports a group lock or unlock.
type LockResult struct {
	Group   string   `json:"group"`
	Updated []string `json:"updated"`
	// Skipped members are not person entries (nested groups, computers).
	Skipped []string `json:"skipped,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// LockGroup locks or unlocks every current member of a general group. Members are
// processed one by one; on AD a lock is a disable. Per-member failures are
// collected and returned together after all members are attempted.
func (s *DirectoryService) LockGroup(ctx context.Context, name string, lock bool) (LockResult, error) {
	action := directory.ActionUnlock
	if lock {
		action = directory.ActionLock
	}
	res := LockResult{Group: name, Updated: []string{}}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		g, err := s.findGroup(ctx, conn, name)
		if err != nil {
			return err
		}
		if err := checkClass(g, directory.GroupGeneral); err != nil {
			return err
		}
		res.Group = g.Name
		var errs []error
		for _, dn := range g.Members {
			err := s.applyStatus(ctx, conn, dn, action)
			if apperrors.IsNotFound(err) {
				res.Skipped = append(res.Skipped, dn)
				continue
			}
			if err != nil {
				res.Failed = append(res.Failed, dn)
				errs = append(errs, fmt.Errorf("%s: %w", dn, err))
				continue
			}
			res.Updated = append(res.Updated, dn)
		}
		if len(errs) > 0 {
			s.logger.WarnContext(ctx, "group lock incomplete", "group", g.DN, "action", action, "failed", len(errs))
			return apperrors.Wrap(errors.Join(errs...), apperrors.ErrCodeInternal, "some members could not be updated")
		}
		return nil
	})
	return res, err
}

func (s *DirectoryService) applyStatus(ctx context.Context, conn ports.BoundConn, dn string, action directory.StatusAction) error {
	e, err := s.readUser(ctx, conn, dn)
	if err != nil {
		return err
	}
	changes := s.dialect.Status(e, action)
	if len(changes) == 0 {
		return nil
	}
	return directoryError(conn.Modify(ctx, e.DN, changes), "user")
}

// ListOrgUnits returns every organizational unit under the base.
func (s *DirectoryService) ListOrgUnits(ctx context.Context) ([]directory.OrgUnit, error) {
	units := []directory.OrgUnit{}
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		entries, err := s.search(ctx, conn, "", orgUnitFilter, directory.ScopeSub, orgUnitAttributes)
		if err != nil {
			return directoryError(err, "organization")
		}
		for _, e := range entries {
			units = append(units, orgUnitFromEntry(e))
		}
		return nil
	})
	sort.Slice(units, func(i, j int) bool { return strings.ToLower(units[i].Name) < strings.ToLower(units[j].Name) })
	return units, err
}

// CreateOrgUnit adds OU=<name> directly under the base.
func (s *DirectoryService) CreateOrgUnit(ctx context.Context, req directory.CreateOrgUnitRequest) (directory.OrgUnit, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return directory.OrgUnit{}, apperrors.ValidationField("name", "organization name is required")
	}
	dn, attrs := newOrgUnitEntry(req, s.dir.BaseDN())
	err := s.withAdmin(ctx, func(conn ports.BoundConn) error {
		return directoryError(conn.Add(ctx, dn, attrs), "organization")
	})
	if err != nil {
		return directory.OrgUnit{}, err
	}
	return directory.OrgUnit{DN: dn, Name: req.Name, Description: req.Description}, nil
}

// DeleteOrgUnit removes an empty organizational unit. A non-empty unit is a
// constraint violation reported as a bad request.
func (s *DirectoryService) DeleteOrgUnit(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return apperrors.ValidationField("name", "organization name is required")
	}
	return s.withAdmin(ctx, func(conn ports.BoundConn) error {
		e, err := s.findOne(ctx, conn, "", directory.ScopeSub, and(orgUnitFilter, eq("ou", strings.TrimSpace(name))), orgUnitAttributes, "organization")
		if err != nil {
			return err
		}
		return directoryError(conn.Delete(ctx, e.DN), "organization")
	})
}

// DomainInfo describes the backend without touching the directory.
func (s *DirectoryService) DomainInfo() directory.DomainInfo {
	base := s.dir.BaseDN()
	return directory.DomainInfo{
		Backend: s.Backend(),
		BaseDN:  base,
		Domain:  directory.DomainFromBaseDN(base),
	}
}

func containsDN(list []string, dn string) bool {
	for _, m := range list {
		if directory.EqualDN(m, dn) {
			return true
		}
	}
	return false
}
