package handler

import (
	"strings"
	"time"

	"cityconnect/internal/announcement/models"
	dErrors "cityconnect/pkg/domain-errors"
)

const (
	dateLayout           = "2006-01-02"
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// CreateAnnouncementRequest is the body of POST /announcements.
// target_department is ignored for department callers, who always publish to their own department.
type CreateAnnouncementRequest struct {
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Category         string  `json:"category"`
	Date             string  `json:"date"`
	Location         *string `json:"location,omitempty"`
	TargetDepartment *string `json:"target_department,omitempty"`

	category models.Category
	date     time.Time
}

func (r *CreateAnnouncementRequest) Normalize() {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Date = strings.TrimSpace(r.Date)
}

// Validate implements httputil.Validatable.
func (r *CreateAnnouncementRequest) Validate() error {
	switch {
	case len(r.Title) > maxTitleLength:
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	case len(r.Description) > maxDescriptionLength:
		return dErrors.New(dErrors.CodeValidation, "description must be at most 5000 characters")
	case r.Title == "":
		return dErrors.New(dErrors.CodeValidation, "title is required")
	case r.Description == "":
		return dErrors.New(dErrors.CodeValidation, "description is required")
	case r.Date == "":
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	category, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	r.category = category
	date, err := parseDate(r.Date)
	if err != nil {
		return err
	}
	r.date = date
	return nil
}

func (r *CreateAnnouncementRequest) ToDraft() models.Draft {
	return models.Draft{
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.category,
		Date:             r.date,
		Location:         r.Location,
		TargetDepartment: r.TargetDepartment,
	}
}

// UpdateAnnouncementRequest is the body of PATCH /announcements/{id}.
// An empty target_department makes the announcement global; an empty location clears it.
type UpdateAnnouncementRequest struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	Category         *string `json:"category,omitempty"`
	Date             *string `json:"date,omitempty"`
	Location         *string `json:"location,omitempty"`
	TargetDepartment *string `json:"target_department,omitempty"`
	IsActive         *bool   `json:"is_active,omitempty"`

	category *models.Category
	date     *time.Time
}

// Validate implements httputil.Validatable.
func (r *UpdateAnnouncementRequest) Validate() error {
	if r.Title == nil && r.Description == nil && r.Category == nil && r.Date == nil &&
		r.Location == nil && r.TargetDepartment == nil && r.IsActive == nil {
		return dErrors.New(dErrors.CodeValidation, "at least one field must be provided")
	}
	if r.Title != nil && len(*r.Title) > maxTitleLength {
		return dErrors.New(dErrors.CodeValidation, "title must be at most 200 characters")
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 5000 characters")
	}
	if r.Category != nil {
		category, err := models.ParseCategory(*r.Category)
		if err != nil {
			return err
		}
		r.category = &category
	}
	if r.Date != nil {
		date, err := parseDate(strings.TrimSpace(*r.Date))
		if err != nil {
			return err
		}
		r.date = &date
	}
	return nil
}

func (r *UpdateAnnouncementRequest) ToPatch() models.Patch {
	return models.Patch{
		Title:            r.Title,
		Description:      r.Description,
		Category:         r.category,
		Date:             r.date,
		Location:         r.Location,
		TargetDepartment: r.TargetDepartment,
		IsActive:         r.IsActive,
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, dErrors.New(dErrors.CodeValidation, "date must be YYYY-MM-DD or RFC 3339")
}
