package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	feedbackmetrics "cityconnect/internal/feedback/metrics"
	"cityconnect/internal/feedback/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/sentinel"
	"cityconnect/pkg/requestcontext"
)

// Store persists feedback. Feedback is append-only.
type Store interface {
	Create(ctx context.Context, fb *models.Feedback) error
	List(ctx context.Context, filter models.Filter) ([]*models.Feedback, error)
}

// Service records citizen feedback.
type Service struct {
	store         Store
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *feedbackmetrics.Metrics
	policyMetrics *policymetrics.Metrics
	publisher     notify.Publisher
	tracer        trace.Tracer
	clock         func() time.Time
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *feedbackmetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithPolicyMetrics(m *policymetrics.Metrics) Option {
	return func(s *Service) {
		s.policyMetrics = m
	}
}

func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store Store, kernel policy.Kernel, opts ...Option) *Service {
	s := &Service{
		store:  store,
		kernel: kernel,
		tracer: otel.Tracer("cityconnect/feedback"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit records feedback from the calling citizen.
func (s *Service) Submit(ctx context.Context, draft models.Draft) (*models.Feedback, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.Submit")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeFeedbackCreate(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	fb, err := models.NewFeedback(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			err = dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
		}
		return nil, s.fail(span, err)
	}
	if err := s.store.Create(ctx, fb); err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to save feedback"))
	}

	span.SetAttributes(attribute.String("feedback.id", fb.ID))
	requestID := requestcontext.RequestID(ctx)
	if s.logger != nil {
		s.logger.InfoContext(ctx, notify.EventFeedbackSubmitted.AuditName(),
			"resource_id", fb.ID,
			"subject_id", fb.OwnerID,
			"rating", fb.Rating,
			"request_id", requestID,
			"event", notify.EventFeedbackSubmitted.AuditName(),
			"log_type", "audit",
		)
	}
	if s.publisher != nil {
		s.publisher.Publish(ctx, notify.Event{
			Type:       notify.EventFeedbackSubmitted,
			ResourceID: fb.ID,
			SubjectID:  fb.OwnerID,
			RequestID:  requestID,
			OccurredAt: fb.CreatedAt,
			Attributes: map[string]string{"rating": strconv.Itoa(fb.Rating)},
		})
	}
	if s.metrics != nil {
		s.metrics.ObserveRating(fb.Rating)
	}
	return fb, nil
}

// List returns all feedback to admins and a citizen's own feedback to that citizen.
func (s *Service) List(ctx context.Context) ([]*models.Feedback, error) {
	ctx, span := s.tracer.Start(ctx, "feedback.List")
	defer span.End()

	filter, err := s.kernel.FeedbackFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to list feedback"))
	}
	return list, nil
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

func (s *Service) fail(span trace.Span, err error) error {
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		span.RecordError(err)
	}
	span.SetStatus(codes.Error, dErrors.Message(err))
	return err
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "feedback already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}
