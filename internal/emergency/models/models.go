package models

import (
	"strings"
	"time"

	dErrors "cityconnect/pkg/domain-errors"
)

const (
	DefaultEmergencyType = "General Emergency"
	DefaultMessage       = "SOS Request"
	LocationNotProvided  = "Location not provided"
)

// Contact is a public emergency line.
type Contact struct {
	Name   string `json:"name"`
	Number string `json:"number"`
	Type   string `json:"type"`
}

var contacts = []Contact{
	{Name: "Police", Number: "100", Type: "Police"},
	{Name: "Fire Department", Number: "101", Type: "Fire"},
	{Name: "Ambulance", Number: "102", Type: "Medical"},
	{Name: "Emergency Helpline", Number: "108", Type: "General"},
}

// Contacts returns a copy of the emergency directory.
func Contacts() []Contact {
	return append([]Contact(nil), contacts...)
}

// SOSDraft is the caller's distress payload after policy has stamped the requester.
type SOSDraft struct {
	RequesterID   string
	Location      string
	EmergencyType string
	Message       string
}

// SOSRequest is a raised distress call. It is not stored; it is forwarded
// to the notification stream.
type SOSRequest struct {
	ID            string    `json:"id"`
	RequesterID   string    `json:"requester_id"`
	Location      string    `json:"location"`
	EmergencyType string    `json:"emergency_type"`
	Message       string    `json:"message"`
	RaisedAt      time.Time `json:"raised_at"`
}

// NewSOSRequest fills defaults for every optional field.
func NewSOSRequest(id string, d SOSDraft, now time.Time) (*SOSRequest, error) {
	switch {
	case id == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sos id is required")
	case d.RequesterID == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "sos requester is required")
	}
	return &SOSRequest{
		ID:            id,
		RequesterID:   d.RequesterID,
		Location:      orDefault(d.Location, LocationNotProvided),
		EmergencyType: orDefault(d.EmergencyType, DefaultEmergencyType),
		Message:       orDefault(d.Message, DefaultMessage),
		RaisedAt:      now,
	}, nil
}

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v == "" {
		return fallback
	}
	return v
}
