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

	billingmetrics "cityconnect/internal/billing/metrics"
	"cityconnect/internal/billing/models"
	"cityconnect/internal/notify"
	"cityconnect/internal/policy"
	policymetrics "cityconnect/internal/policy/metrics"
	"cityconnect/pkg/attrs"
	"cityconnect/pkg/domain"
	dErrors "cityconnect/pkg/domain-errors"
	"cityconnect/pkg/platform/sentinel"
	"cityconnect/pkg/requestcontext"
)

// Store persists bills and payments.
//
// Settle must flip the bill from Pending to Paid and record exactly one
// Success payment as a single atomic step, returning sentinel.ErrInvalidState
// when the bill is no longer Pending or not owned by ownerID.
type Store interface {
	CreateBill(ctx context.Context, b *models.Bill) error
	FindBill(ctx context.Context, id string) (*models.Bill, error)
	ListBills(ctx context.Context, filter models.BillFilter) ([]*models.Bill, error)
	Settle(ctx context.Context, billID, ownerID, paymentID string, now time.Time) (*models.Settlement, error)
	FindPayment(ctx context.Context, id string) (*models.Payment, error)
	ListPayments(ctx context.Context, filter models.PaymentFilter) ([]*models.Payment, error)
}

// BillQuery narrows a bill listing beyond what the caller may see.
type BillQuery struct {
	Status *models.BillStatus
}

// Service issues bills and settles them under the policy kernel.
type Service struct {
	store         Store
	kernel        policy.Kernel
	logger        *slog.Logger
	metrics       *billingmetrics.Metrics
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

func WithMetrics(m *billingmetrics.Metrics) Option {
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
		tracer: otel.Tracer("cityconnect/billing"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBill issues a Pending bill. Only admins may issue bills.
func (s *Service) CreateBill(ctx context.Context, draft models.BillDraft) (*models.Bill, error) {
	ctx, span := s.tracer.Start(ctx, "billing.CreateBill")
	defer span.End()

	actor := requestcontext.Actor(ctx)
	draft, err := s.kernel.AuthorizeBillCreate(actor, draft)
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}

	bill, err := models.NewBill(domain.NewID(), draft, s.now(ctx))
	if err != nil {
		return nil, s.fail(span, toValidation(err))
	}
	if err := s.store.CreateBill(ctx, bill); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, s.fail(span, dErrors.New(dErrors.CodeConflict, "bill number already exists"))
		}
		return nil, s.fail(span, translateStoreError(err, "bill", "failed to save bill"))
	}

	span.SetAttributes(attribute.String("bill.id", bill.ID))
	s.logAudit(ctx, notify.EventBillCreated,
		"resource_id", bill.ID,
		"subject_id", bill.OwnerID,
		"actor_id", actor.SubjectID,
		"bill_number", bill.BillNumber,
		"bill_type", string(bill.BillType),
		"amount", strconv.FormatInt(bill.Amount, 10),
	)
	if s.metrics != nil {
		s.metrics.IncrementBillCreated()
	}
	return bill, nil
}

// ListBills returns the caller's own bills, newest first.
func (s *Service) ListBills(ctx context.Context, q BillQuery) ([]*models.Bill, error) {
	ctx, span := s.tracer.Start(ctx, "billing.ListBills")
	defer span.End()

	filter, err := s.kernel.BillFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	filter.Status = q.Status

	bills, err := s.store.ListBills(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "bill", "failed to list bills"))
	}
	return bills, nil
}

// GetBill returns one of the caller's bills. Other bills are reported as not found.
func (s *Service) GetBill(ctx context.Context, id string) (*models.Bill, error) {
	ctx, span := s.tracer.Start(ctx, "billing.GetBill", trace.WithAttributes(attribute.String("bill.id", id)))
	defer span.End()

	filter, err := s.kernel.BillFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	bill, err := s.store.FindBill(ctx, id)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "bill", "failed to load bill"))
	}
	if !filter.Matches(bill) {
		return nil, dErrors.New(dErrors.CodeNotFound, "bill not found")
	}
	return bill, nil
}

// Settle pays a bill on behalf of its owner. The bill moves to Paid and exactly
// one Success payment is recorded; a bill that is already paid, including one
// paid by a concurrent request, yields Conflict.
func (s *Service) Settle(ctx context.Context, billID string) (settlement *models.Settlement, err error) {
	ctx, span := s.tracer.Start(ctx, "billing.Settle", trace.WithAttributes(attribute.String("bill.id", billID)))
	defer span.End()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveSettlement(settlementOutcome(err), start)
		}
	}()

	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	bill, err := s.store.FindBill(ctx, billID)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "bill", "failed to load bill"))
	}
	if err := s.kernel.AuthorizeSettle(actor, bill); err != nil {
		return nil, s.denied(ctx, span, err)
	}
	if err := bill.CanSettle(); err != nil {
		return nil, s.fail(span, dErrors.New(dErrors.CodeConflict, "bill is already paid"))
	}

	settlement, err = s.store.Settle(ctx, bill.ID, actor.SubjectID, domain.NewID(), s.now(ctx))
	if err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			return nil, s.fail(span, dErrors.New(dErrors.CodeConflict, "bill is already paid"))
		}
		return nil, s.fail(span, translateStoreError(err, "bill", "failed to settle bill"))
	}

	span.SetAttributes(attribute.String("payment.transaction_id", settlement.Payment.TransactionID))
	s.logAudit(ctx, notify.EventBillSettled,
		"resource_id", settlement.Bill.ID,
		"subject_id", settlement.Bill.OwnerID,
		"payment_id", settlement.Payment.ID,
		"transaction_id", settlement.Payment.TransactionID,
		"amount", strconv.FormatInt(settlement.Payment.Amount, 10),
	)
	if s.metrics != nil {
		s.metrics.AddSettledAmount(settlement.Payment.Amount)
	}
	return settlement, nil
}

// ListPayments returns the caller's payment history with bill details, newest first.
func (s *Service) ListPayments(ctx context.Context) ([]*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "billing.ListPayments")
	defer span.End()

	filter, err := s.kernel.PaymentFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	payments, err := s.store.ListPayments(ctx, filter)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "payment", "failed to list payments"))
	}
	return payments, nil
}

// GetPayment returns one of the caller's payments. Other payments are reported as not found.
func (s *Service) GetPayment(ctx context.Context, id string) (*models.Payment, error) {
	ctx, span := s.tracer.Start(ctx, "billing.GetPayment", trace.WithAttributes(attribute.String("payment.id", id)))
	defer span.End()

	filter, err := s.kernel.PaymentFilter(requestcontext.Actor(ctx))
	if err != nil {
		return nil, s.denied(ctx, span, err)
	}
	payment, err := s.store.FindPayment(ctx, id)
	if err != nil {
		return nil, s.fail(span, translateStoreError(err, "payment", "failed to load payment"))
	}
	if !filter.Matches(payment) {
		return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

func settlementOutcome(err error) string {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeConflict:
		return billingmetrics.OutcomeConflict
	case dErrors.CodeForbidden, dErrors.CodeUnauthorized:
		return billingmetrics.OutcomeForbidden
	case dErrors.CodeNotFound:
		return billingmetrics.OutcomeNotFound
	}
	if err == nil {
		return billingmetrics.OutcomeSuccess
	}
	return billingmetrics.OutcomeError
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
		RequestID:  requestID,
		OccurredAt: s.now(ctx),
		Attributes: attrs.StringMap(attributes, "resource_id", "subject_id", "request_id"),
	})
}

func translateStoreError(err error, resource, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, resource+" not found")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "request timed out")
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
