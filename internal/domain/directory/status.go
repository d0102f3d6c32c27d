package directory

import (
	"strconv"
	"strings"
)

// Account control differs by backend and is intentionally not unified.
//
// OpenLDAP keeps two independent attributes: pwdAccountLockedTime (ppolicy lock)
// and an "inactive" marker attribute for disable.
//
// Active Directory packs account state into the userAccountControl bitmask. There is
// no writable lock flag: lockout is read from lockoutTime, and a manual "lock" is
// expressed by setting ACCOUNTDISABLE. Locking a group therefore means disabling
// every member one by one.

// userAccountControl flags used here.
const (
	UACAccountDisable     = 0x0002
	UACPasswdNotRequired  = 0x0020
	UACNormalAccount      = 0x0200
	UACDontExpirePassword = 0x10000

	// Whole values seen on AD user objects.
	UACEnabled          = UACNormalAccount                                              // 512
	UACEnabledNoExpiry  = UACNormalAccount | UACDontExpirePassword                      // 66048
	UACDisabled         = UACEnabled | UACAccountDisable                                // 514
	UACDisabledNoExpiry = UACEnabledNoExpiry | UACPasswdNotRequired | UACAccountDisable // 66082
)

// OpenLDAPLockedTime is the ppolicy value meaning "locked until an admin unlocks".
const OpenLDAPLockedTime = "000001010000Z"

// ParseUAC parses a userAccountControl value; invalid input yields 0, ok=false.
func ParseUAC(raw string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ADStatus derives account status from userAccountControl, lockoutTime and
// badPwdCount. threshold is the domain lockout threshold; zero disables the
// bad-password inference.
func ADStatus(uac, lockoutTime, badPwdCount string, threshold int) AccountStatus {
	v, _ := ParseUAC(uac)
	lt, _ := ParseUAC(lockoutTime)
	bad, _ := ParseUAC(badPwdCount)
	return AccountStatus{
		Enabled: v&UACAccountDisable == 0,
		Locked:  lt > 0 || (threshold > 0 && bad >= int64(threshold)),
	}
}

// ADSetDisabled returns uac with ACCOUNTDISABLE set or cleared, preserving other flags.
// A zero or unparsable input is treated as a normal account.
func ADSetDisabled(uac string, disabled bool) string {
	v, ok := ParseUAC(uac)
	if !ok || v == 0 {
		v = UACNormalAccount
	}
	if disabled {
		v |= UACAccountDisable
	} else {
		v &^= UACAccountDisable
	}
	return strconv.FormatInt(v, 10)
}

// OpenLDAPStatus derives account status from the lock attribute and inactive marker.
func OpenLDAPStatus(lockedTime string, inactiveValue, marker string) AccountStatus {
	return AccountStatus{
		Enabled: !strings.EqualFold(strings.TrimSpace(inactiveValue), marker) || marker == "",
		Locked:  strings.TrimSpace(lockedTime) != "",
	}
}

// AD groupType bits.
const (
	ADGroupGlobal      = 0x00000002
	ADGroupDomainLocal = 0x00000004
	ADGroupUniversal   = 0x00000008
	ADGroupSecurity    = -0x80000000 // 0x80000000 as a signed 32-bit value
)

// ADGroupTypeLabel maps a groupType bitmask to a human label.
func ADGroupTypeLabel(raw string) string {
	v, ok := ParseUAC(raw)
	if !ok {
		return "unknown"
	}
	scope := "global"
	switch {
	case v&ADGroupDomainLocal != 0:
		scope = "domain local"
	case v&ADGroupUniversal != 0:
		scope = "universal"
	}
	kind := "distribution"
	if int32(v)&int32(ADGroupSecurity) != 0 {
		kind = "security"
	}
	return scope + " " + kind
}

// ADGroupTypeValue returns the groupType for a global security group.
func ADGroupTypeValue() string {
	return strconv.FormatInt(int64(int32(ADGroupGlobal)|int32(ADGroupSecurity)), 10)
}
