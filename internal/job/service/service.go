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

	jobmetrics "cityconnect/internal/job/metrics"
	"cityconnect/internal/job/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/attrs"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/sentinel"
	"cityconnect/pkg/requestcontext"
)

// Store persists job postings.
//
// Execute and Delete run validate against the current row and only write when
// it returns nil; validate errors are returned unchanged.
type Store interface {
	Create(ctx context.Context, j *models.Job) error
	FindByID(ctx context.Context, id string) (*models.Job, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Job, error)
	Execute(ctx context.Context, id string, validate func(*models.Job) error, mutate func(*models.Job)) (*models.Job, error)
	Delete(ctx context.Context, id string, validate func(*models.Job) error) error
}

// ListQuery narrows a listing by case-insensitive department and location substrings.
type ListQuery struct {
	Department string
	Location   string
}

const (
	changeUpdated = "updated"
	changeClosed  = "closed"
	changeDeleted = "deleted"
)

// Service manages municipal job postings under the policy kernel.
type Service struct {
	store         Store
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *jobmetrics.Metrics
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

func WithMetrics(m *jobmetrics.Metrics) Option {
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
		tracer: otel.Tracer("cityconnect/job"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create posts an active vacancy. Only admins may post.
func (s *Service) Create(ctx context.Context, draft models.Draft) (*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "job.Create")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeJobCreate(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}

	j, err := models.NewJob(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		return nil, s.fail(span, toValidation(err))
	}
	if err := s.store.Create(ctx, j); err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to save job"))
	}

	span.SetAttributes(attribute.String("job.id", j.ID))
	s.logAudit(ctx, notify.EventJobPosted, auditAttrs(j, actor)...)
	if s.metrics != nil {
		s.metrics.IncrementPosted()
	}
	return j, nil
}

// List returns the postings visible to the caller, newest first.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "job.List")
	defer span.End()

	filter, err := s.kernel.JobFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	filter.Department = q.Department
	filter.Location = q.Location

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to list jobs"))
	}
	return list, nil
}

// Get returns one posting. Closed postings are reported as not found to non-admins.
func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "job.Get", trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	filter, err := s.kernel.JobFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	j, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to load job"))
	}
	if !filter.Matches(j) {
		return nil, dErrors.New(dErrors.CodeNotFound, "job not found")
	}
	return j, nil
}

// Update applies a partial patch, including closing or reopening the posting.
func (s *Service) Update(ctx context.Context, id string, patch models.Patch) (*models.Job, error) {
	ctx, span := s.tracer.Start(ctx, "job.Update", trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	if patch.IsEmpty() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "at least one field must be provided"))
	}
	actor := requestcontext.Actor(ctx)
	now := s.now(ctx)
	updated, err := s.store.Execute(ctx, id,
		func(existing *models.Job) error {
			authorized, err := s.kernel.AuthorizeJobMutate(actor, existing, patch)
			if err != nil {
				return err
			}
			patch = authorized
			return existing.CanApply(patch)
		},
		func(existing *models.Job) {
			existing.ApplyPatch(patch, now)
		},
	)
	if err != nil {
		return nil, s.mutationError(ctx, span, err, "failed to update job")
	}

	s.logAudit(ctx, notify.EventJobUpdated, auditAttrs(updated, actor)...)
	if s.metrics != nil {
		change := changeUpdated
		if patch.IsActive != nil && !*patch.IsActive {
			change = changeClosed
		}
		s.metrics.IncrementChange(change)
	}
	return updated, nil
}

// Delete removes a posting permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "job.Delete", trace.WithAttributes(attribute.String("job.id", id)))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	var deleted *models.Job
	err := s.store.Delete(ctx, id, func(existing *models.Job) error {
		if err := s.kernel.AuthorizeJobDelete(actor, existing); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return s.mutationError(ctx, span, err, "failed to delete job")
	}

	s.logAudit(ctx, notify.EventJobDeleted, auditAttrs(deleted, actor)...)
	if s.metrics != nil {
		s.metrics.IncrementChange(changeDeleted)
	}
	return nil
}

func (s *Service) mutationError(ctx context.Context, span trace.Span, err error, msg string) error {
	if _, ok := policy.DenialOf(err); ok {
		return s.denied(ctx, span, err)
	}
	return s.fail(span, translateStoreError(err, msg))
}

func auditAttrs(j *models.Job, actor domain.Actor) []any {
	return []any{
		"resource_id", j.ID,
		"actor_id", actor.SubjectID,
		"actor_role", string(actor.Role),
		"department", j.Department,
		"title", j.Title,
		"is_active", j.IsActive,
	}
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
		Department: attrs.ExtractString(attributes, "department"),
		RequestID:  requestID,
		OccurredAt: s.now(ctx),
		Attributes: attrs.StringMap(attributes, "resource_id", "department", "request_id"),
	})
}

func translateStoreError(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "job not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "job already exists")
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
