package handler

import "cityconnect/internal/announcement/models"

// ListResponse is the body of GET /announcements.
type ListResponse struct {
	Announcements []*models.Announcement `json:"announcements"`
	Total         int                    `json:"total"`
}
