package handler

import (
	"net/http"
	"strings"

	"cityconnect/internal/complaint/models"
	"cityconnect/internal/complaint/service"
	dErrors "cityconnect/pkg/domain-errors"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxLocationLength    = 500
	maxRemarksLength     = 2000
)

// CreateComplaintRequest is the body of POST /complaints.
// The owner is always the caller and is not accepted from the body.
type CreateComplaintRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Location    string  `json:"location"`
	ImageRef    *string `json:"image_ref,omitempty"`

	category models.Category
}

func (r *CreateComplaintRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if r.ImageRef != nil {
		ref := strings.TrimSpace(*r.ImageRef)
		r.ImageRef = &ref
	}
}

// Validate implements httputil.Validatable.
func (r *CreateComplaintRequest) Validate() error {
	switch {
	case len(r.Title) > maxTitleLength:
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	case len(r.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description must be at most 5000 characters")
	case len(r.Location) > maxLocationLength:
		return dErrors.New(dErrors.CodeValidation, "location must be at most 500 characters")
	case r.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case r.Description == "":
		return dErrors.New(dErrors.CodeValidation, "description is required")
	case r.Location == "":
		return dErrors.New(dErrors.CodeValidation, "location is required")
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.category = category
	return nil
}

func (r *CreateComplaintRequest) ToDraft() models.Draft {
	return models.Draft{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.category,
		Location:    r.Location,
		ImageRef:    r.ImageRef,
	}
}

// UpdateComplaintRequest is the body of PATCH /complaints/{id}.
// An empty assigned_department or remarks clears the field.
type UpdateComplaintRequest struct {
	Status             *string `json:"status,omitempty"`
	AssignedDepartment *string `json:"assigned_department,omitempty"`
	Remarks            *string `json:"remarks,omitempty"`

	status *models.Status
}

// Validate implements httputil.Validatable.
func (r *UpdateComplaintRequest) Validate() error {
	if r.Status == nil && r.AssignedDepartment == nil && r.Remarks == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one of status, assigned_department, remarks is required")
	}
	if r.Remarks != nil && len(*r.Remarks) > maxRemarksLength {
		return dErrors.New(dErrors.CodeValidation, "remarks must be at most 2000 characters")
	}
	if r.Status != nil {
		status, err := models.ParseStatus(*r.Status)
		if err != nil {
			return err
		}
		r.status = &status
	}
	return nil
}

func (r *UpdateComplaintRequest) ToPatch() models.Patch {
	return models.Patch{
		Status:             r.status,
		AssignedDepartment: r.AssignedDepartment,
		Remarks:            r.Remarks,
	}
}

func parseListQuery(r *http.Request) (service.ListQuery, error) {
	var q service.ListQuery
	values := r.URL.Query()
	if v := values.Get("status"); v != "" {
		status, err := models.ParseStatus(v)
		if err != nil {
			return q, err
		}
		q.Status = &status
	}
	if v := values.Get("category"); v != "" {
		category, err := models.ParseCategory(v)
		if err != nil {
			return q, err
		}
		q.Category = &category
	}
	return q, nil
}
