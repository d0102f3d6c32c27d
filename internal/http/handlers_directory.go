package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/target/dirkeeper/internal/domain/auth"
	"github.com/target/dirkeeper/internal/domain/directory"
	apperrors "github.com/target/dirkeeper/internal/errors"
	"github.com/target/dirkeeper/internal/service"
)

// DirectoryResolver returns the directory service for a session's backend.
type DirectoryResolver interface {
	Service(authType domainauth.AuthType) (*service.DirectoryService, error)
}

var _ DirectoryResolver = (*service.DirectoryConnector)(nil)

// dirBase resolves the backend of the calling session. Every directory handler
// embeds it; RequireSession must have run.
type dirBase struct {
	Dirs   DirectoryResolver
	Body   BodyDecoder
	Logger *slog.Logger
}

func (b dirBase) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

// service returns the DirectoryService for the request or writes the error.
func (b dirBase) service(w http.ResponseWriter, r *http.Request) (*service.DirectoryService, bool) {
	sess, ok := SessionFromContext(r.Context())
	if !ok {
		writeServiceError(w, r, b.logger(), apperrors.Unauthorized("authentication required"))
		return nil, false
	}
	svc, err := b.Dirs.Service(sess.AuthType)
	if err != nil {
		b.fail(w, r, err)
		return nil, false
	}
	return svc, true
}

func (b dirBase) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeServiceError(w, r, b.logger(), err)
}

// UserHandlers serves /api/users.
type UserHandlers struct{ dirBase }

// NewUserHandlers constructs UserHandlers.
func NewUserHandlers(dirs DirectoryResolver, body BodyDecoder) *UserHandlers {
	return &UserHandlers{dirBase{Dirs: dirs, Body: body, Logger: body.Logger}}
}

// List returns users, optionally limited to one organizational unit (?ou=).
func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	users, err := svc.ListUsers(r.Context(), r.URL.Query().Get("ou"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, users)
}

// Get returns one user.
func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	u, err := svc.GetUser(r.Context(), r.PathValue("username"), r.URL.Query().Get("ou"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Create adds a user. The body may carry an initial password.
func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateUserRequest
	if !h.Body.DecodeSensitive(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	u, err := svc.CreateUser(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, u)
}

// Update replaces the attributes present in the body.
func (h *UserHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req directory.UpdateUserRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	u, err := svc.UpdateUser(r.Context(), r.PathValue("username"), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Delete removes a user.
func (h *UserHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if err := svc.DeleteUser(r.Context(), r.PathValue("username")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type passwordRequest struct {
	Password string `json:"password"`
}

// ownsOrAdmin allows admins, and users whose session DN is the target's entry.
func (h *UserHandlers) ownsOrAdmin(w http.ResponseWriter, r *http.Request, svc *service.DirectoryService, username string) bool {
	sess, _ := SessionFromContext(r.Context())
	if sess.IsAdmin() {
		return true
	}
	if sess.DN != "" {
		u, err := svc.GetUser(r.Context(), username, "")
		if err != nil && !apperrors.IsNotFound(err) {
			h.fail(w, r, err)
			return false
		}
		if err == nil && directory.EqualDN(u.DN, sess.DN) {
			return true
		}
	}
	h.fail(w, r, apperrors.Forbidden("insufficient permissions"))
	return false
}

// ResetPassword sets a new password. Non-admin sessions may only reset their own.
func (h *UserHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if !h.Body.DecodeSensitive(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if !h.ownsOrAdmin(w, r, svc, r.PathValue("username")) {
		return
	}
	if err := svc.ResetPassword(r.Context(), r.PathValue("username"), req.Password); err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

type statusRequest struct {
	Action directory.StatusAction `json:"action"`
}

// SetStatus enables, disables, locks or unlocks a user.
func (h *UserHandlers) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	u, err := svc.SetUserStatus(r.Context(), r.PathValue("username"), req.Action)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, u)
}

// Groups lists the groups a user belongs to.
func (h *UserHandlers) Groups(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	groups, err := svc.UserGroups(r.Context(), r.PathValue("username"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

// GroupHandlers serves one class of groups: general groups on /api/groups and
// privileged groups on /api/admin-groups.
type GroupHandlers struct {
	dirBase
	Class directory.GroupClass
}

// NewGroupHandlers constructs GroupHandlers for a group class.
func NewGroupHandlers(class directory.GroupClass, dirs DirectoryResolver, body BodyDecoder) *GroupHandlers {
	return &GroupHandlers{dirBase: dirBase{Dirs: dirs, Body: body, Logger: body.Logger}, Class: class}
}

// List returns the groups of the handler's class.
func (h *GroupHandlers) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	groups, err := svc.ListGroups(r.Context(), h.Class)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, groups)
}

// Get returns one group. A group of the other class is reported as not found.
func (h *GroupHandlers) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	g, err := svc.GetGroup(r.Context(), r.PathValue("name"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if g.Class != h.Class {
		h.fail(w, r, apperrors.NotFoundf("group %q not found", r.PathValue("name")))
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

// Create adds a group of the handler's class.
func (h *GroupHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateGroupRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	req.Class = h.Class
	g, err := svc.CreateGroup(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, g)
}

// Delete removes a group.
func (h *GroupHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if err := svc.DeleteGroup(r.Context(), r.PathValue("name"), h.Class); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membersRequest struct {
	Members []string `json:"members"`
}

// AddMembers adds users, by username or DN, to a group.
func (h *GroupHandlers) AddMembers(w http.ResponseWriter, r *http.Request) {
	h.members(w, r, true)
}

// RemoveMembers removes users, by username or DN, from a group.
func (h *GroupHandlers) RemoveMembers(w http.ResponseWriter, r *http.Request) {
	h.members(w, r, false)
}

func (h *GroupHandlers) members(w http.ResponseWriter, r *http.Request, add bool) {
	var req membersRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	if len(req.Members) == 0 {
		h.fail(w, r, apperrors.ValidationField("members", "at least one member is required"))
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	var (
		g   directory.Group
		err error
	)
	if add {
		g, err = svc.AddMembers(r.Context(), r.PathValue("name"), h.Class, req.Members)
	} else {
		g, err = svc.RemoveMembers(r.Context(), r.PathValue("name"), h.Class, req.Members)
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, g)
}

type lockRequest struct {
	Lock *bool `json:"lock"`
}

// lockFailure is the body of a partially applied group lock.
type lockFailure struct {
	ErrorBody
	Result service.LockResult `json:"result"`
}

// Lock locks or unlocks every member of a general group.
func (h *GroupHandlers) Lock(w http.ResponseWriter, r *http.Request) {
	var req lockRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	if req.Lock == nil {
		h.fail(w, r, apperrors.ValidationField("lock", "lock is required"))
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	res, err := svc.LockGroup(r.Context(), r.PathValue("name"), *req.Lock)
	if err != nil {
		if len(res.Failed) == 0 {
			h.fail(w, r, err)
			return
		}
		h.logger().WarnContext(r.Context(), "group lock partially applied",
			"group", res.Group, "updated", len(res.Updated), "failed", len(res.Failed), "error", err)
		WriteJSON(w, http.StatusInternalServerError, lockFailure{
			ErrorBody: ErrorBody{Error: "internal", Message: apperrors.PublicMessage(err, genericErrorMessage)},
			Result:    res,
		})
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// OrgUnitHandlers serves /api/organizations.
type OrgUnitHandlers struct{ dirBase }

// NewOrgUnitHandlers constructs OrgUnitHandlers.
func NewOrgUnitHandlers(dirs DirectoryResolver, body BodyDecoder) *OrgUnitHandlers {
	return &OrgUnitHandlers{dirBase{Dirs: dirs, Body: body, Logger: body.Logger}}
}

// List returns the organizational units under the base DN.
func (h *OrgUnitHandlers) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	ous, err := svc.ListOrgUnits(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, ous)
}

// Create adds an organizational unit.
func (h *OrgUnitHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req directory.CreateOrgUnitRequest
	if !h.Body.Decode(w, r, &req) {
		return
	}
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	ou, err := svc.CreateOrgUnit(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	WriteJSON(w, http.StatusCreated, ou)
}

// Delete removes an empty organizational unit.
func (h *OrgUnitHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	if err := svc.DeleteOrgUnit(r.Context(), r.PathValue("name")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Domain returns the backend, base DN and DNS domain of the session's directory.
func (h *OrgUnitHandlers) Domain(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.service(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, svc.DomainInfo())
}
