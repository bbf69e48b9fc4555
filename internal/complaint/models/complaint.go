package models

import (
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// Complaint is a citizen-filed service request.
//
// Invariants:
//   - OwnerID is set at creation and never reassigned
//   - Status is always one of Pending, InProgress, Resolved
//   - Complaints are never deleted
type Complaint struct {
	ID                 string    `json:"id"`
	OwnerID            string    `json:"owner_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	Category           Category  `json:"category"`
	Location           string    `json:"location"`
	ImageRef           *string   `json:"image_ref,omitempty"`
	Status             Status    `json:"status"`
	AssignedDepartment *string   `json:"assigned_department,omitempty"`
	Remarks            *string   `json:"remarks,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Draft is the create payload after the caller's identity has been applied.
type Draft struct {
	OwnerID     string
	Title       string
	Description string
	Category    Category
	Location    string
	ImageRef    *string
}

// Patch holds the triage fields a department or admin may change.
// Nil fields are left untouched.
type Patch struct {
	Status             *Status
	AssignedDepartment *string
	Remarks            *string
}

func (p Patch) IsEmpty() bool {
	return p.Status == nil && p.AssignedDepartment == nil && p.Remarks == nil
}

// NewComplaint builds a Pending complaint from a draft.
func NewComplaint(id string, d Draft, now time.Time) (*Complaint, error) {
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	location := strings.TrimSpace(d.Location)
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "complaint id is required")
	case d.OwnerID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "complaint owner is required")
	case title == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	case len(title) > maxTitleLength:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title must be 200 characters or less")
	case description == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	case len(description) > maxDescriptionLength:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description must be 5000 characters or less")
	case location == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location is required")
	case !d.Category.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown complaint category")
	}

	var imageRef *string
	if d.ImageRef != nil && strings.TrimSpace(*d.ImageRef) != "" {
		ref := strings.TrimSpace(*d.ImageRef)
		imageRef = &ref
	}

	return &Complaint{
		ID:          id,
		OwnerID:     d.OwnerID,
		Title:       title,
		Description: description,
		Category:    d.Category,
		Location:    location,
		ImageRef:    imageRef,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CanApply checks a patch against the status machine without mutating.
func (c *Complaint) CanApply(p Patch) error {
	if p.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one of status, assigned_department, remarks is required")
	}
	if p.Status != nil && !c.Status.CanTransitionTo(*p.Status) {
		return dErrors.New(dErrors.CodeInvariantViolation, "invalid complaint status transition")
	}
	return nil
}

// ApplyPatch writes the non-nil patch fields. Call CanApply first.
// An empty assigned department or remark clears the field.
func (c *Complaint) ApplyPatch(p Patch, now time.Time) {
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.AssignedDepartment != nil {
		c.AssignedDepartment = clearable(*p.AssignedDepartment)
	}
	if p.Remarks != nil {
		c.Remarks = clearable(*p.Remarks)
	}
	c.UpdatedAt = now
}

func clearable(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
