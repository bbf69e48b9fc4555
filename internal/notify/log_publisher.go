package notify

import (
	"context"
	"log/slog"
)

// LogPublisher writes events to the structured log. Used when no broker is configured.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	if p.logger == nil {
		return
	}
	p.logger.InfoContext(ctx, "notification event",
		"event_type", string(event.Type),
		"resource_id", event.ResourceID,
		"subject_id", event.SubjectID,
		"department", event.Department,
		"request_id", event.RequestID,
	)
}
