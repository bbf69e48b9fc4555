package domain

import (
	"strings"

	dErrors "cityconnect/pkg/domain-errors"
)

// Actor is the authenticated party behind a request.
//
// Invariants:
//   - Role is a valid Role
//   - SubjectID is non-empty
//   - Department is set iff Role == RoleDepartment
//
// An Actor is a value: it is resolved once per request and never mutated.
// Affiliation optionally records the department a citizen is registered
// with; it only matters when citizens are scoped by affiliation.
type Actor struct {
	Role        Role
	Department  string
	SubjectID   string
	Affiliation string
}

// NewActor validates the actor tuple produced by the identity collaborator.
func NewActor(role Role, department, subjectID string) (Actor, error) {
	department = strings.TrimSpace(department)
	subjectID = strings.TrimSpace(subjectID)

	if !role.IsValid() {
		return Actor{}, dErrors.New(dErrors.CodeValidation, "unknown role")
	}
	if subjectID == "" {
		return Actor{}, dErrors.New(dErrors.CodeValidation, "subject is required")
	}
	switch role {
	case RoleDepartment:
		if department == "" {
			return Actor{}, dErrors.New(dErrors.CodeValidation, "department is required for department officials")
		}
	case RoleCitizen, RoleAdmin:
		if department != "" {
			return Actor{}, dErrors.New(dErrors.CodeValidation, "department is only valid for department officials")
		}
	}
	return Actor{Role: role, Department: department, SubjectID: subjectID}, nil
}

// WithAffiliation returns a copy of a citizen actor carrying a home department.
func (a Actor) WithAffiliation(department string) Actor {
	if a.Role == RoleCitizen {
		a.Affiliation = strings.TrimSpace(department)
	}
	return a
}

// IsZero reports whether no actor was resolved.
func (a Actor) IsZero() bool {
	return a.SubjectID == "" && a.Role == ""
}
