package models

import (
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

// Category is the closed set of announcement kinds.
type Category string

const (
	CategoryEvent   Category = "Event"
	CategoryNotice  Category = "Notice"
	CategoryAlert   Category = "Alert"
	CategoryGeneral Category = "General"
)

// ParseCategory matches case-insensitively; an empty value defaults to General.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return CategoryGeneral, nil
	}
	for _, c := range []Category{CategoryEvent, CategoryNotice, CategoryAlert, CategoryGeneral} {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "category must be one of Event, Notice, Alert, General")
}

func (c Category) IsValid() bool {
	switch c {
	case CategoryEvent, CategoryNotice, CategoryAlert, CategoryGeneral:
		return true
	}
	return false
}

// Announcement is a public notice, either global or scoped to one department.
//
// Invariants:
//   - TargetDepartment nil means the announcement is global
//   - Announcements created or updated by a department target that department
type Announcement struct {
	ID               string    `json:"id"`
	CreatorID        string    `json:"creator_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         Category  `json:"category"`
	Date             time.Time `json:"date"`
	Location         *string   `json:"location,omitempty"`
	TargetDepartment *string   `json:"target_department"`
	IsActive         bool      `json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Draft is the create payload after policy has fixed the target department.
type Draft struct {
	CreatorID        string
	Title            string
	Description      string
	Category         Category
	Date             time.Time
	Location         *string
	TargetDepartment *string
}

// Patch holds the mutable announcement fields. Nil fields are left untouched.
// An empty TargetDepartment makes the announcement global; an empty Location clears it.
type Patch struct {
	Title            *string
	Description      *string
	Category         *Category
	Date             *time.Time
	Location         *string
	TargetDepartment *string
	IsActive         *bool
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Date == nil &&
		p.Location == nil && p.TargetDepartment == nil && p.IsActive == nil
}

// NewAnnouncement builds an active announcement from a draft.
func NewAnnouncement(id string, d Draft, now time.Time) (*Announcement, error) {
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	category := d.Category
	if category == "" {
		category = CategoryGeneral
	}
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "announcement id is required")
	case d.CreatorID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "announcement creator is required")
	case title == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	case description == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	case d.Date.IsZero():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "date is required")
	case !category.IsValid():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "unknown announcement category")
	}
	return &Announcement{
		ID:               id,
		CreatorID:        d.CreatorID,
		Title:            title,
		Description:      description,
		Category:         category,
		Date:             d.Date,
		Location:         optional(d.Location),
		TargetDepartment: optional(d.TargetDepartment),
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (a *Announcement) IsGlobal() bool {
	return a.TargetDepartment == nil
}

// TargetsDepartment reports whether the announcement is scoped to exactly dept.
func (a *Announcement) TargetsDepartment(dept string) bool {
	return a.TargetDepartment != nil && dept != "" && *a.TargetDepartment == dept
}

// CanApply validates a patch without mutating.
func (a *Announcement) CanApply(p Patch) error {
	if p.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title must not be empty")
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return dErrors.New(dErrors.CodeValidation, "description must not be empty")
	}
	if p.Category != nil && !p.Category.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "unknown announcement category")
	}
	if p.Date != nil && p.Date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "date must not be empty")
	}
	return nil
}

// ApplyPatch writes the non-nil patch fields. Call CanApply first.
func (a *Announcement) ApplyPatch(p Patch, now time.Time) {
	if p.Title != nil {
		a.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		a.Description = strings.TrimSpace(*p.Description)
	}
	if p.Category != nil {
		a.Category = *p.Category
	}
	if p.Date != nil {
		a.Date = *p.Date
	}
	if p.Location != nil {
		a.Location = optional(p.Location)
	}
	if p.TargetDepartment != nil {
		a.TargetDepartment = optional(p.TargetDepartment)
	}
	if p.IsActive != nil {
		a.ApplyActivity(*p.IsActive, now)
	}
	a.UpdatedAt = now
}

// ApplyActivity toggles visibility to non-admin readers.
func (a *Announcement) ApplyActivity(active bool, now time.Time) {
	a.IsActive = active
	a.UpdatedAt = now
}

func optional(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	if s == "" {
		return nil
	}
	return &s
}
