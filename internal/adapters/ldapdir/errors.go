package ldapdir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-ldap/ldap/v3"
	"github.com/target/dirkeeper/internal/ports"
)

// Error is a translated directory failure. It matches its Kind sentinel with
// errors.Is and keeps the raw go-ldap error as its cause for logging.
type Error struct {
	Kind   error
	Reason string
	Code   uint16
	Cause  error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%v (%s)", e.Kind, e.Reason)
	}
	return e.Kind.Error()
}

// Is reports whether target is the error kind.
func (e *Error) Is(target error) bool { return target == e.Kind }

// Unwrap returns the raw directory error.
func (e *Error) Unwrap() error { return e.Cause }

// ErrorRule maps one native failure to an adapter-boundary error. Code zero
// matches any result code; an empty Contains matches any diagnostic message.
type ErrorRule struct {
	Code     uint16
	Contains string
	Kind     error
	Reason   string
}

// ErrorTable is an ordered rule list; the first match wins.
type ErrorTable []ErrorRule

// OpenLDAPErrors translates OpenLDAP result codes.
var OpenLDAPErrors = ErrorTable{ //nolint:gochecknoglobals // static lookup table
	{Code: ldap.LDAPResultInvalidCredentials, Kind: ports.ErrAuthenticationFailed, Reason: "invalid credentials"},
	{Code: ldap.LDAPResultInappropriateAuthentication, Kind: ports.ErrAuthenticationFailed, Reason: "inappropriate authentication"},
	{Code: ldap.LDAPResultEntryAlreadyExists, Kind: ports.ErrEntryAlreadyExists},
	{Code: ldap.LDAPResultAttributeOrValueExists, Kind: ports.ErrEntryAlreadyExists, Reason: "value exists"},
	{Code: ldap.LDAPResultNoSuchObject, Kind: ports.ErrEntryNotFound},
	{Code: ldap.LDAPResultNoSuchAttribute, Kind: ports.ErrEntryNotFound, Reason: "no such attribute"},
	{Code: ldap.LDAPResultConstraintViolation, Kind: ports.ErrConstraintViolation},
	{Code: ldap.LDAPResultObjectClassViolation, Kind: ports.ErrConstraintViolation, Reason: "object class violation"},
	{Code: ldap.LDAPResultInvalidAttributeSyntax, Kind: ports.ErrConstraintViolation, Reason: "invalid attribute syntax"},
	{Code: ldap.LDAPResultInvalidDNSyntax, Kind: ports.ErrConstraintViolation, Reason: "invalid dn syntax"},
	{Code: ldap.LDAPResultNamingViolation, Kind: ports.ErrConstraintViolation, Reason: "naming violation"},
	{Code: ldap.LDAPResultNotAllowedOnNonLeaf, Kind: ports.ErrConstraintViolation, Reason: "entry has children"},
	{Code: ldap.LDAPResultUnwillingToPerform, Kind: ports.ErrConstraintViolation, Reason: "unwilling to perform"},
	{Code: ldap.LDAPResultInsufficientAccessRights, Kind: ports.ErrInsufficientAccess},
	{Code: ldap.LDAPResultBusy, Kind: ports.ErrDirectoryUnavailable, Reason: "busy"},
	{Code: ldap.LDAPResultUnavailable, Kind: ports.ErrDirectoryUnavailable, Reason: "unavailable"},
}

// ActiveDirectoryErrors translates Active Directory failures. AD reports most
// bind failures as result 49 with a "data <hex>" sub-code in the diagnostic message.
var ActiveDirectoryErrors = ErrorTable{ //nolint:gochecknoglobals // static lookup table
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 525", Kind: ports.ErrAuthenticationFailed, Reason: "user not found"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 52e", Kind: ports.ErrAuthenticationFailed, Reason: "invalid credentials"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 530", Kind: ports.ErrAuthenticationFailed, Reason: "logon hours restriction"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 531", Kind: ports.ErrAuthenticationFailed, Reason: "workstation restriction"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 532", Kind: ports.ErrAuthenticationFailed, Reason: "password expired"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 533", Kind: ports.ErrAuthenticationFailed, Reason: "account disabled"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 701", Kind: ports.ErrAuthenticationFailed, Reason: "account expired"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 773", Kind: ports.ErrAuthenticationFailed, Reason: "password must be reset"},
	{Code: ldap.LDAPResultInvalidCredentials, Contains: "data 775", Kind: ports.ErrAuthenticationFailed, Reason: "account locked"},
	{Code: ldap.LDAPResultInvalidCredentials, Kind: ports.ErrAuthenticationFailed, Reason: "invalid credentials"},
	{Code: ldap.LDAPResultEntryAlreadyExists, Kind: ports.ErrEntryAlreadyExists},
	{Code: ldap.LDAPResultAttributeOrValueExists, Kind: ports.ErrEntryAlreadyExists, Reason: "value exists"},
	{Code: ldap.LDAPResultNoSuchObject, Kind: ports.ErrEntryNotFound},
	{Code: ldap.LDAPResultNoSuchAttribute, Kind: ports.ErrEntryNotFound, Reason: "no such attribute"},
	{Code: ldap.LDAPResultUnwillingToPerform, Contains: "0000052D", Kind: ports.ErrConstraintViolation, Reason: "password does not meet policy"},
	{Code: ldap.LDAPResultUnwillingToPerform, Contains: "00002077", Kind: ports.ErrConstraintViolation, Reason: "password change requires secure connection"},
	{Code: ldap.LDAPResultUnwillingToPerform, Kind: ports.ErrConstraintViolation, Reason: "unwilling to perform"},
	{Code: ldap.LDAPResultConstraintViolation, Contains: "0000052D", Kind: ports.ErrConstraintViolation, Reason: "password does not meet policy"},
	{Code: ldap.LDAPResultConstraintViolation, Kind: ports.ErrConstraintViolation},
	{Code: ldap.LDAPResultObjectClassViolation, Kind: ports.ErrConstraintViolation, Reason: "object class violation"},
	{Code: ldap.LDAPResultInvalidAttributeSyntax, Kind: ports.ErrConstraintViolation, Reason: "invalid attribute syntax"},
	{Code: ldap.LDAPResultInvalidDNSyntax, Kind: ports.ErrConstraintViolation, Reason: "invalid dn syntax"},
	{Code: ldap.LDAPResultNamingViolation, Kind: ports.ErrConstraintViolation, Reason: "naming violation"},
	{Code: ldap.LDAPResultNotAllowedOnNonLeaf, Kind: ports.ErrConstraintViolation, Reason: "entry has children"},
	{Code: ldap.LDAPResultInsufficientAccessRights, Kind: ports.ErrInsufficientAccess},
	{Code: ldap.LDAPResultBusy, Kind: ports.ErrDirectoryUnavailable, Reason: "busy"},
	{Code: ldap.LDAPResultUnavailable, Kind: ports.ErrDirectoryUnavailable, Reason: "unavailable"},
}

// Translate maps err through the table. Client-side go-ldap failures (network,
// timeouts, closed connections) always become ErrDirectoryUnavailable; anything
// the table does not know is returned wrapped but untranslated.
func (t ErrorTable) Translate(err error) error {
	if err == nil {
		return nil
	}
	var le *ldap.Error
	if !errors.As(err, &le) {
		return &Error{Kind: ports.ErrDirectoryUnavailable, Reason: "transport", Cause: err}
	}
	msg := ""
	if le.Err != nil {
		msg = le.Err.Error()
	}
	for _, r := range t {
		if r.Code != 0 && r.Code != le.ResultCode {
			continue
		}
		if r.Contains != "" && !strings.Contains(strings.ToLower(msg), strings.ToLower(r.Contains)) {
			continue
		}
		return &Error{Kind: r.Kind, Reason: r.Reason, Code: le.ResultCode, Cause: err}
	}
	if isClientSide(le.ResultCode) {
		return &Error{Kind: ports.ErrDirectoryUnavailable, Reason: "transport", Code: le.ResultCode, Cause: err}
	}
	return fmt.Errorf("directory result %d: %w", le.ResultCode, err)
}

// isClientSide reports go-ldap's locally generated codes (200 and up).
func isClientSide(code uint16) bool {
	return code >= ldap.ErrorNetwork
}
