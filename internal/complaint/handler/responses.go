package handler

import "cityconnect/internal/complaint/models"

// ListResponse is the body of GET /complaints.
type ListResponse struct {
	Complaints []*models.Complaint `json:"complaints"`
	Total      int                 `json:"total"`
}
