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

	announcementmetrics "cityconnect/internal/announcement/metrics"
	"cityconnect/internal/announcement/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/attrs"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/sentinel"
	"cityconnect/pkg/requestcontext"
)

// Store persists announcements.
//
// Execute and Delete run validate against the current row and only write when
// it returns nil; validate errors are returned unchanged.
type Store interface {
	Create(ctx context.Context, a *models.Announcement) error
	FindByID(ctx context.Context, id string) (*models.Announcement, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Announcement, error)
	Execute(ctx context.Context, id string, validate func(*models.Announcement) error, mutate func(*models.Announcement)) (*models.Announcement, error)
	Delete(ctx context.Context, id string, validate func(*models.Announcement) error) error
}

// ListQuery narrows a listing beyond what the caller may see.
type ListQuery struct {
	Category *models.Category
}

const (
	audienceGlobal     = "global"
	audienceDepartment = "department"

	changeUpdated     = "updated"
	changeDeactivated = "deactivated"
	changeDeleted     = "deleted"
)

// Service publishes and manages announcements under the policy kernel.
type Service struct {
	store         Store
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *announcementmetrics.Metrics
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

func WithMetrics(m *announcementmetrics.Metrics) Option {
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
		tracer: otel.Tracer("cityconnect/announcement"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create publishes an active announcement. Departments always publish to
// their own department; admins choose the audience.
func (s *Service) Create(ctx context.Context, draft models.Draft) (*models.Announcement, error) {
	ctx, span := s.tracer.Start(ctx, "announcement.Create")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeAnnouncementCreate(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}

	a, err := models.NewAnnouncement(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		return nil, s.fail(span, toValidation(err))
	}
	if err := s.store.Create(ctx, a); err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to save announcement"))
	}

	span.SetAttributes(attribute.String("announcement.id", a.ID))
	s.logAudit(ctx, notify.EventAnnouncementCreated, auditAttrs(a, actor)...)
	if s.metrics != nil {
		s.metrics.IncrementPublished(audienceOf(a))
	}
	return a, nil
}

// List returns the announcements visible to the caller, newest date first.
func (s *Service) List(ctx context.Context, q ListQuery) ([]*models.Announcement, error) {
	ctx, span := s.tracer.Start(ctx, "announcement.List")
	defer span.End()

	filter, err := s.kernel.AnnouncementFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	filter.Category = q.Category

	list, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to list announcements"))
	}
	return list, nil
}

// Get returns one announcement. Announcements outside the caller's view are reported as not found.
func (s *Service) Get(ctx context.Context, id string) (*models.Announcement, error) {
	ctx, span := s.tracer.Start(ctx, "announcement.Get", trace.WithAttributes(attribute.String("announcement.id", id)))
	defer span.End()

	filter, err := s.kernel.AnnouncementFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "failed to load announcement"))
	}
	if !filter.Matches(a) {
		return nil, dErrors.New(dErrors.CodeNotFound, "announcement not found")
	}
	return a, nil
}

// Update applies a patch. A denied or invalid patch leaves the announcement unchanged.
func (s *Service) Update(ctx context.Context, id string, patch models.Patch) (*models.Announcement, error) {
	ctx, span := s.tracer.Start(ctx, "announcement.Update", trace.WithAttributes(attribute.String("announcement.id", id)))
	defer span.End()

	if patch.IsEmpty() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "at least one field must be provided"))
	}
	actor := requestcontext.Actor(ctx)
	now := s.now(ctx)
	updated, err := s.store.Execute(ctx, id,
		func(existing *models.Announcement) error {
			authorized, err := s.kernel.AuthorizeAnnouncementMutate(actor, existing, patch)
			if err != nil {
				return err
			}
			patch = authorized
			return existing.CanApply(patch)
		},
		func(existing *models.Announcement) {
			existing.ApplyPatch(patch, now)
		},
	)
	if err != nil {
		return nil, s.mutationError(ctx, span, err, "failed to update announcement")
	}

	s.logAudit(ctx, notify.EventAnnouncementUpdated, auditAttrs(updated, actor)...)
	if s.metrics != nil {
		s.metrics.IncrementChange(changeUpdated)
	}
	return updated, nil
}

// Deactivate hides an announcement from citizens without deleting it.
func (s *Service) Deactivate(ctx context.Context, id string) (*models.Announcement, error) {
	ctx, span := s.tracer.Start(ctx, "announcement.Deactivate", trace.WithAttributes(attribute.String("announcement.id", id)))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	now := s.now(ctx)
	inactive := false
	updated, err := s.store.Execute(ctx, id,
		func(existing *models.Announcement) error {
			_, err := s.kernel.AuthorizeAnnouncementMutate(actor, existing, models.Patch{IsActive: &inactive})
			return err
		},
		func(existing *models.Announcement) {
			existing.ApplyActivity(false, now)
		},
	)
	if err != nil {
		return nil, s.mutationError(ctx, span, err, "failed to deactivate announcement")
	}

	s.logAudit(ctx, notify.EventAnnouncementDeactivated, auditAttrs(updated, actor)...)
	if s.metrics != nil {
		s.metrics.IncrementChange(changeDeactivated)
	}
	return updated, nil
}

// Delete removes an announcement permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "announcement.Delete", trace.WithAttributes(attribute.String("announcement.id", id)))
	defer span.End()

	actor := requestcontext.Actor(ctx)
	var deleted *models.Announcement
	err := s.store.Delete(ctx, id, func(existing *models.Announcement) error {
		if err := s.kernel.AuthorizeAnnouncementDelete(actor, existing); err != nil {
			return err
		}
		deleted = existing
		return nil
	})
	if err != nil {
		return s.mutationError(ctx, span, err, "failed to delete announcement")
	}

	s.logAudit(ctx, notify.EventAnnouncementDeleted, auditAttrs(deleted, actor)...)
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

func auditAttrs(a *models.Announcement, actor domain.Actor) []any {
	out := []any{
		"resource_id", a.ID,
		"actor_id", actor.SubjectID,
		"actor_role", string(actor.Role),
		"category", string(a.Category),
		"title", a.Title,
	}
	if a.TargetDepartment != nil {
		out = append(out, "department", *a.TargetDepartment)
	}
	return out
}

func audienceOf(a *models.Announcement) string {
	if a.IsGlobal() {
		return audienceGlobal
	}
	return audienceDepartment
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
		return dErrors.New(dErrors.CodeNotFound, "announcement not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "announcement already exists")
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
