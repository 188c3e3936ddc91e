// Package auth verifies caller credentials for the HTTP surface. It decides
// who is calling and what they may do; the scheduling engine only receives
// the resulting principal.
package auth

import (
	"errors"
	"slices"
)

// ErrInvalidCredentials is returned when a token or key does not verify.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Permission names a capability granted to a caller.
type Permission string

const (
	PermMeetingsRead  Permission = "meetings:read"
	PermMeetingsWrite Permission = "meetings:write"
	PermMeetingsForce Permission = "meetings:force"
	PermCalendarWrite Permission = "calendar:write"
	// PermCalendarAdmin allows managing every employee's calendar and acting
	// on meetings organised by others.
	PermCalendarAdmin Permission = "calendar:admin"
)

// Identity is a verified caller.
type Identity struct {
	Subject     string
	Permissions []Permission
}

// Has reports whether the identity was granted perm.
func (i Identity) Has(perm Permission) bool {
	return slices.Contains(i.Permissions, perm)
}

// IsAdmin reports whether the identity holds the administrative permission.
func (i Identity) IsAdmin() bool {
	return i.Has(PermCalendarAdmin)
}

func toPermissions(values []string) []Permission {
	out := make([]Permission, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		out = append(out, Permission(v))
	}
	return out
}
