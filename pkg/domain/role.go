package domain

import (
	"strings"

	dErrors "cityconnect/pkg/domain-errors"
)

// Role is the closed set of actor classes the portal authorizes against.
// Invariant: the value must be one of the declared constants.
//
// Usage: construct via ParseRole at trust boundaries; policy code switches
// exhaustively on Role and rejects anything else.
type Role string

const (
	RoleCitizen    Role = "citizen"
	RoleDepartment Role = "department"
	RoleAdmin      Role = "admin"
)

var validRoles = map[Role]bool{
	RoleCitizen:    true,
	RoleDepartment: true,
	RoleAdmin:      true,
}

// ParseRole constructs a Role from external input (token claims, CLI flags).
// Matching is case-insensitive and ignores surrounding whitespace.
//
// Errors: returns CodeValidation when the value is empty or unknown.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown role: "+s)
	}
	return r, nil
}

func (r Role) IsValid() bool {
	return validRoles[r]
}

func (r Role) String() string {
	return string(r)
}
