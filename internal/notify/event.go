// Package notify carries lifecycle notifications to the outbound collaborator
// (SMS, email and push fan-out live downstream of the event stream).
//
// Publishing is fire-and-forget: a failed publish is logged by the publisher
// and never fails the request that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// EventType names a lifecycle notification.
type EventType string

const (
	EventComplaintCreated        EventType = "complaint.created"
	EventComplaintUpdated        EventType = "complaint.updated"
	EventBillCreated             EventType = "bill.created"
	EventBillSettled             EventType = "bill.settled"
	EventAnnouncementCreated     EventType = "announcement.created"
	EventAnnouncementUpdated     EventType = "announcement.updated"
	EventAnnouncementDeactivated EventType = "announcement.deactivated"
	EventAnnouncementDeleted     EventType = "announcement.deleted"
	EventFeedbackSubmitted       EventType = "feedback.submitted"
	EventJobPosted               EventType = "job.posted"
	EventJobUpdated              EventType = "job.updated"
	EventJobDeleted              EventType = "job.deleted"
	EventSOSRaised               EventType = "sos.raised"
)

// AuditName is the snake_case form used as the audit log event name.
func (t EventType) AuditName() string {
	return strings.ReplaceAll(string(t), ".", "_")
}

// Event is one notification about a resource change.
type Event struct {
	Type       EventType         `json:"type"`
	ResourceID string            `json:"resource_id"`
	SubjectID  string            `json:"subject_id,omitempty"`
	Department string            `json:"department,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Encode renders the event as JSON for the wire.
func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire event.
func Decode(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

// Publisher delivers notification events. Implementations must not block the
// caller on delivery and must handle their own failures.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
