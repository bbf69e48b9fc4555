package models

import (
	"strings"

	dErrors "cityconnect/pkg/domain-errors"
)

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusPending    Status = "Pending"
	StatusInProgress Status = "InProgress"
	StatusResolved   Status = "Resolved"
)

// ParseStatus accepts the canonical names and the spaced "In Progress" form.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.Join(strings.Fields(s), "")) {
	case "pending":
		return StatusPending, nil
	case "inprogress", "in_progress":
		return StatusInProgress, nil
	case "resolved":
		return StatusResolved, nil
	case "":
		return "", dErrors.New(dErrors.CodeValidation, "status is required")
	default:
		return "", dErrors.New(dErrors.CodeValidation, "status must be one of Pending, InProgress, Resolved")
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusResolved:
		return true
	}
	return false
}

// CanTransitionTo reports whether an authorized actor may move a complaint to next.
// Complaints carry no ordering: any valid state may follow any other.
func (s Status) CanTransitionTo(next Status) bool {
	return s.IsValid() && next.IsValid()
}

func (s Status) String() string {
	return string(s)
}
