package models

import (
	"net/mail"
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

// SalaryNotSpecified is stored when a posting omits the salary.
const SalaryNotSpecified = "Not specified"

// Job is a municipal vacancy posted by an administrator.
//
// Invariants:
//   - Title, Description, Department, Location and ContactEmail are non-empty
//   - Salary is never empty; it defaults to SalaryNotSpecified
type Job struct {
	ID           string    `json:"id"`
	PostedBy     string    `json:"posted_by"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Department   string    `json:"department"`
	Location     string    `json:"location"`
	Salary       string    `json:"salary"`
	Requirements []string  `json:"requirements"`
	ContactEmail string    `json:"contact_email"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Draft is the create payload after policy has stamped the poster.
type Draft struct {
	PostedBy     string
	Title        string
	Description  string
	Department   string
	Location     string
	Salary       string
	Requirements []string
	ContactEmail string
	ContactPhone *string
}

// Patch holds the mutable job fields. Nil fields are left untouched; an
// empty ContactPhone clears it and an empty Salary resets it to the default.
type Patch struct {
	Title        *string
	Description  *string
	Department   *string
	Location     *string
	Salary       *string
	Requirements *[]string
	ContactEmail *string
	ContactPhone *string
	IsActive     *bool
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Department == nil && p.Location == nil &&
		p.Salary == nil && p.Requirements == nil && p.ContactEmail == nil && p.ContactPhone == nil &&
		p.IsActive == nil
}

// NewJob builds an active posting from a draft.
func NewJob(id string, d Draft, now time.Time) (*Job, error) {
	title := strings.TrimSpace(d.Title)
	description := strings.TrimSpace(d.Description)
	department := strings.TrimSpace(d.Department)
	location := strings.TrimSpace(d.Location)
	email := strings.TrimSpace(d.ContactEmail)
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job id is required")
	case d.PostedBy == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "job poster is required")
	case title == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	case description == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "description is required")
	case department == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "department is required")
	case location == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "location is required")
	case email == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact email is required")
	}
	if !validEmail(email) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact email is not a valid address")
	}
	return &Job{
		ID:           id,
		PostedBy:     d.PostedBy,
		Title:        title,
		Description:  description,
		Department:   department,
		Location:     location,
		Salary:       salaryOrDefault(d.Salary),
		Requirements: cleanRequirements(d.Requirements),
		ContactEmail: email,
		ContactPhone: optional(d.ContactPhone),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanApply validates a patch without mutating.
func (j *Job) CanApply(p Patch) error {
	if p.IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	required := []struct {
		name  string
		value *string
	}{
		{"title", p.Title},
		{"description", p.Description},
		{"department", p.Department},
		{"location", p.Location},
		{"contact email", p.ContactEmail},
	}
	for _, f := range required {
		if f.value != nil && strings.TrimSpace(*f.value) == "" {
			return dErrors.New(dErrors.CodeValidation, f.name+" must not be empty")
		}
	}
	if p.ContactEmail != nil && !validEmail(strings.TrimSpace(*p.ContactEmail)) {
		return dErrors.New(dErrors.CodeValidation, "contact email is not a valid address")
	}
	return nil
}

// ApplyPatch writes the non-nil patch fields. Call CanApply first.
func (j *Job) ApplyPatch(p Patch, now time.Time) {
	if p.Title != nil {
		j.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		j.Description = strings.TrimSpace(*p.Description)
	}
	if p.Department != nil {
		j.Department = strings.TrimSpace(*p.Department)
	}
	if p.Location != nil {
		j.Location = strings.TrimSpace(*p.Location)
	}
	if p.Salary != nil {
		j.Salary = salaryOrDefault(*p.Salary)
	}
	if p.Requirements != nil {
		j.Requirements = cleanRequirements(*p.Requirements)
	}
	if p.ContactEmail != nil {
		j.ContactEmail = strings.TrimSpace(*p.ContactEmail)
	}
	if p.ContactPhone != nil {
		j.ContactPhone = optional(p.ContactPhone)
	}
	if p.IsActive != nil {
		j.IsActive = *p.IsActive
	}
	j.UpdatedAt = now
}

func salaryOrDefault(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return SalaryNotSpecified
	}
	return s
}

// cleanRequirements trims entries and drops blanks. The result is never nil.
func cleanRequirements(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
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
