package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	emergencymetrics "cityconnect/internal/emergency/metrics"
	"cityconnect/internal/emergency/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/attrs"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/requestcontext"
)

// Service forwards SOS requests to the notification stream and serves the
// emergency contact directory. Nothing is persisted.
type Service struct {
	publisher     notify.Publisher
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *emergencymetrics.Metrics
	policyMetrics *policymetrics.Metrics
	tracer        trace.Tracer
	clock         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *emergencymetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicyMetrics(m *policymetrics.Metrics) Option {
	return func(s *Service) {
		s.policyMetrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithClock overrides the request time. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// New builds the service. A nil publisher drops SOS events.
func New(publisher notify.Publisher, kernel policy.Kernel, opts ...Option) *Service {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	s := &Service{
		publisher: publisher,
		kernel:    kernel,
		tracer:    otel.Tracer("cityconnect/emergency"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RaiseSOS attributes the request to the caller, fills defaults and publishes
// it. Publishing is fire-and-forget, so a raised SOS never fails on delivery.
func (s *Service) RaiseSOS(ctx context.Context, draft models.SOSDraft) (*models.SOSRequest, error) {
	ctx, span := s.tracer.Start(ctx, "emergency.RaiseSOS")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeSOS(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	sos, err := models.NewSOSRequest(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		span.SetStatus(codes.Error, dErrors.Message(err))
		return nil, err
	}
	span.SetAttributes(
		attribute.String("sos.id", sos.ID),
		attribute.String("sos.emergency_type", sos.EmergencyType),
	)

	attributes := []any{
		"resource_id", sos.ID,
		"actor_id", actor.SubjectID,
		"actor_role", string(actor.Role),
		"emergency_type", sos.EmergencyType,
		"location", sos.Location,
		"message", sos.Message,
	}
	if actor.Department != "" {
		attributes = append(attributes, "department", actor.Department)
	}
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		s.logger.WarnContext(ctx, notify.EventSOSRaised.AuditName(),
			append(attributes, "request_id", requestID, "event", notify.EventSOSRaised.AuditName(), "log_type", "audit")...)
	}
	s.publisher.Publish(ctx, notify.Event{
		Type:       notify.EventSOSRaised,
		ResourceID: sos.ID,
		SubjectID:  sos.RequesterID,
		Department: attrs.ExtractString(attributes, "department"),
		RequestID:  requestID,
		OccurredAt: sos.RaisedAt,
		Attributes: attrs.StringMap(attributes, "resource_id", "department"),
	})
	if s.metrics != nil {
		s.metrics.IncrementSOS()
	}
	return sos, nil
}

// Contacts returns the emergency directory.
func (s *Service) Contacts(ctx context.Context) ([]models.Contact, error) {
	if requestcontext.Actor(ctx).IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return models.Contacts(), nil
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

func (s *Service) denied(ctx context.Context, span trace.Span, err error) error {
	if d, ok := policy.DenialOf(err); ok {
		if s.policyMetrics != nil {
			s.policyMetrics.IncrementDenial(d.Resource, d.Action, string(d.Role))
		}
		if s.logger != nil {
			s.logger.WarnContext(ctx, "policy denied",
				"resource", d.Resource,
				"action", d.Action,
				"role", string(d.Role),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
	}
	span.SetStatus(codes.Error, dErrors.Message(err))
	return err
}
