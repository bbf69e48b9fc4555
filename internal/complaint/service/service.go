package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	complaintmetrics "cityconnect/internal/complaint/metrics"
	"cityconnect/internal/complaint/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/attrs"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/sentinel"
	"cityconnect/pkg/requestcontext"
)

// Store persists complaints. Execute runs validate and mutate atomically
// against the stored complaint and returns the saved result.
type Store interface {
	Create(ctx context.Context, c *models.Complaint) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Complaint, error)
	Execute(ctx context.Context, id string, validate func(*models.Complaint) error, mutate func(*models.Complaint)) (*models.Complaint, error)
}

// ListQuery narrows a complaint listing beyond what the caller may see.
type ListQuery struct {
	Status   *models.Status
	Category *models.Category
}

// Service runs the complaint lifecycle under the policy kernel.
type Service struct {
	store         Store
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *complaintmetrics.Metrics
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

func WithMetrics(m *complaintmetrics.Metrics) Option {
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

// WithClock overrides the request time. Intended for tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func New(store Store, kernel policy.Kernel, opts ...Option) *Service {
	s := &Service{
		store:  store,
		kernel: kernel,
		tracer: otel.Tracer("cityconnect/complaint"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create files a new complaint owned by the calling citizen.
func (s *Service) Create(ctx context.Context, draft models.Draft) (*models.Complaint, error) {
	ctx, span := s.tracer.Start(ctx, "complaint.Create")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeComplaintCreate(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}

	complaint, err := models.NewComplaint(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		return nil, s.fail(span, toValidation(err))
	}
	if err := s.store.Create(ctx, complaint); err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to save complaint"))
	}

	span.SetAttributes(attribute.String("complaint.id", complaint.ID))
	s.logAudit(ctx, notify.EventComplaintCreated,
		"resource_id", complaint.ID,
		"subject_id", complaint.OwnerID,
		"category", string(complaint.Category),
	)
	if s.metrics != nil {
		s.metrics.IncrementCreated(string(complaint.Category))
	}
	return complaint, nil
}

// List returns the complaints visible to the caller, newest first.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*models.Complaint, error) {
	ctx, span := s.tracer.Start(ctx, "complaint.List")
	defer span.End()

	filter, err := s.kernel.ComplaintFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	filter.Status = q.Status
	filter.Category = q.Category

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to list complaints"))
	}
	return list, nil
}

// Get returns one complaint. Complaints outside the caller's visibility are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*models.Complaint, error) {
	ctx, span := s.tracer.Start(ctx, "complaint.Get", trace.WithAttributes(attribute.String("complaint.id", id)))
	defer span.End()

	filter, err := s.kernel.ComplaintFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	complaint, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to load complaint"))
	}
	if !filter.Matches(complaint) {
		return nil, dErrors.New(dErrors.CodeNotFound, "complaint not found")
	}
	return complaint, nil
}

// Update applies a triage patch (status, assigned department, remarks).
func (s *Service) Update(ctx context.Context, id string, patch models.Patch) (*models.Complaint, error) {
	ctx, span := s.tracer.Start(ctx, "complaint.Update", trace.WithAttributes(attribute.String("complaint.id", id)))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	now := s.now(ctx)
	var previous models.Status
	updated, err := s.store.Execute(ctx, id,
		func(existing *models.Complaint) error {
			authorized, err := s.kernel.AuthorizeComplaintMutate(actor, existing, patch)
			if err != nil {
				return err
			}
			patch = authorized
			previous = existing.Status
			return existing.CanApply(patch)
		},
		func(existing *models.Complaint) {
			existing.ApplyPatch(patch, now)
		},
	)
	if err != nil {
		if _, ok := policy.DenialOf(err); ok {
			return nil, s.denied(ctx, span, err)
		}
		return nil, s.fail(span, translateStoreError(err, "failed to update complaint"))
	}

	auditAttrs := []any{
		"resource_id", updated.ID,
		"subject_id", updated.OwnerID,
		"actor_id", actor.SubjectID,
		"actor_role", string(actor.Role),
		"status", string(updated.Status),
		"previous_status", string(previous),
	}
	if updated.AssignedDepartment != nil {
		auditAttrs = append(auditAttrs, "department", *updated.AssignedDepartment)
	}
	s.logAudit(ctx, notify.EventComplaintUpdated, auditAttrs...)
	if s.metrics != nil {
		s.metrics.IncrementUpdated(string(updated.Status))
	}
	return updated, nil
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

// denied records a policy denial and passes the error through.
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

func (s *Service) logAudit(ctx context.Context, event notify.EventType, attributes ...any) {
	requestID := requestcontext.RequestID(ctx)
	if requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event.AuditName(), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event.AuditName(), args...)
	}
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, notify.Event{
		Type:       event,
		ResourceID: attrs.ExtractString(attributes, "resource_id"),
		SubjectID:  attrs.ExtractString(attributes, "subject_id"),
		Department: attrs.ExtractString(attributes, "department"),
		RequestID:  requestID,
		OccurredAt: s.now(ctx),
		Attributes: attrs.StringMap(attributes, "resource_id", "subject_id", "department", "request_id"),
	})
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "complaint not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "complaint already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return toValidation(err)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

// toValidation surfaces model invariant violations as caller validation errors.
func toValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return dErrors.New(dErrors.CodeValidation, dErrors.Message(err))
	}
	return err
}
