package handler

import "cityconnect/internal/job/models"

// ListResponse is the body of GET /jobs.
type ListResponse struct {
	Jobs  []*models.Job `json:"jobs"`
	Total int           `json:"total"`
}
