package handler

import (
	"strings"

	"cityconnect/internal/job/models"
	dErrors "cityconnect/pkg/domain-errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxRequirements      = 50
)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Department   string   `json:"department"`
	Location     string   `json:"location"`
	Salary       string   `json:"salary,omitempty"`
	Requirements []string `json:"requirements,omitempty"`
	ContactEmail string   `json:"contact_email"`
	ContactPhone *string  `json:"contact_phone,omitempty"`
}

func (r *CreateJobRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Department = strings.TrimSpace(r.Department)
	r.Location = strings.TrimSpace(r.Location)
	r.ContactEmail = strings.TrimSpace(r.ContactEmail)
}

// Validate implements httputil.Validatable.
func (r *CreateJobRequest) Validate() error {
	switch {
	case r.Title == "" || r.Description == "" || r.Department == "" || r.Location == "" || r.ContactEmail == "":
		return dErrors.New(dErrors.CodeValidation, "title, description, department, location and contact_email are required")
	case len(r.Title) > maxTitleLength:
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	case len(r.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description must be at most 5000 characters")
	case len(r.Requirements) > maxRequirements:
		return dErrors.New(dErrors.CodeValidation, "at most 50 requirements may be listed")
	}
	return nil
}

func (r *CreateJobRequest) ToDraft() models.Draft {
	return models.Draft{
		Title:        r.Title,
		Description:  r.Description,
		Department:   r.Department,
		Location:     r.Location,
		Salary:       r.Salary,
		Requirements: r.Requirements,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
	}
}

// UpdateJobRequest is the body of PATCH and PUT /jobs/{id}. Both verbs are partial.
type UpdateJobRequest struct {
	Title        *string   `json:"title,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Department   *string   `json:"department,omitempty"`
	Location     *string   `json:"location,omitempty"`
	Salary       *string   `json:"salary,omitempty"`
	Requirements *[]string `json:"requirements,omitempty"`
	ContactEmail *string   `json:"contact_email,omitempty"`
	ContactPhone *string   `json:"contact_phone,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// Validate implements httputil.Validatable.
func (r *UpdateJobRequest) Validate() error {
	if r.ToPatch().IsEmpty() {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if r.Title != nil && len(*r.Title) > maxTitleLength {
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 5000 characters")
	}
	if r.Requirements != nil && len(*r.Requirements) > maxRequirements {
		return dErrors.New(dErrors.CodeValidation, "at most 50 requirements may be listed")
	}
	return nil
}

func (r *UpdateJobRequest) ToPatch() models.Patch {
	return models.Patch{
		Title:        r.Title,
		Description:  r.Description,
		Department:   r.Department,
		Location:     r.Location,
		Salary:       r.Salary,
		Requirements: r.Requirements,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
		IsActive:     r.IsActive,
	}
}
