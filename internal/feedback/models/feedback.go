package models

import (
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

const (
	MinRating           = 1
	MaxRating           = 5
	maxSuggestionLength = 2000
)

// Feedback is a citizen's rating of the portal with a free-text suggestion.
type Feedback struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Rating     int       `json:"rating"`
	Suggestion string    `json:"suggestion"`
	CreatedAt  time.Time `json:"created_at"`
}

// Draft is the submit payload after the caller's identity has been applied.
type Draft struct {
	OwnerID    string
	Rating     int
	Suggestion string
}

func NewFeedback(id string, d Draft, now time.Time) (*Feedback, error) {
	suggestion := strings.TrimSpace(d.Suggestion)
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "feedback id is required")
	case d.OwnerID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "feedback owner is required")
	case d.Rating < MinRating || d.Rating > MaxRating:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "rating must be between 1 and 5")
	case suggestion == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "suggestion is required")
	case len(suggestion) > maxSuggestionLength:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "suggestion must be 2000 characters or less")
	}
	return &Feedback{
		ID:         id,
		OwnerID:    d.OwnerID,
		Rating:     d.Rating,
		Suggestion: suggestion,
		CreatedAt:  now,
	}, nil
}

// Filter is a declarative feedback predicate. Nil fields match everything.
type Filter struct {
	OwnerID *string
}

func (f Filter) Matches(fb *Feedback) bool {
	if fb == nil {
		return false
	}
	return f.OwnerID == nil || fb.OwnerID == *f.OwnerID
}
