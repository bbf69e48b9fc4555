package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "cityconnect/pkg/domain-errors"
)

// NewID returns a fresh resource identifier.
func NewID() string {
	return uuid.NewString()
}

// ParseResourceID validates an identifier taken from a URL or payload.
// Resource identifiers are non-nil UUIDs in canonical form.
//
// Errors: returns CodeBadRequest for empty, malformed or nil identifiers.
func ParseResourceID(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid id format")
	}
	if parsed == uuid.Nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "id cannot be nil")
	}
	return parsed.String(), nil
}
