// Package middleware throttles API requests per authenticated actor using a
// sliding window, falling back to an in-process store when the shared one fails.
package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cityconnect/internal/ratelimit/metrics"
	"cityconnect/internal/ratelimit/models"
	"cityconnect/internal/ratelimit/store/bucket"
	"cityconnect/pkg/platform/httputil"
	"cityconnect/pkg/requestcontext"
)

// StatusHeader is set to "degraded" while the in-memory fallback serves decisions.
const StatusHeader = "X-RateLimit-Status"

// BucketStore is the sliding window backend.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*models.RateLimitResult, error)
}

// Limits holds per-window budgets for each endpoint class. A zero budget
// leaves that class unthrottled.
type Limits struct {
	Read   int
	Write  int
	Window time.Duration
}

func (l Limits) forClass(class models.EndpointClass) int {
	if class == models.ClassRead {
		return l.Read
	}
	return l.Write
}

type Middleware struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *CircuitBreaker
	limits   Limits
	logger   *slog.Logger
	metrics  *metrics.Metrics
	disabled bool
}

type Option func(*Middleware)

func WithMetrics(m *metrics.Metrics) Option {
	return func(mw *Middleware) {
		mw.metrics = m
	}
}

// WithFallback replaces the default in-memory fallback store.
func WithFallback(store BucketStore) Option {
	return func(mw *Middleware) {
		mw.fallback = store
	}
}

// WithDisabled turns the middleware into a pass-through. Driven by RATE_LIMIT_ENABLED.
func WithDisabled(disabled bool) Option {
	return func(mw *Middleware) {
		mw.disabled = disabled
	}
}

func New(primary BucketStore, limits Limits, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{
		primary:  primary,
		fallback: bucket.NewInMemoryBucketStore(),
		breaker:  newCircuitBreaker(),
		limits:   limits,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.limits.Window <= 0 || (m.limits.Read <= 0 && m.limits.Write <= 0) {
		m.disabled = true
	}
	if m.disabled && m.logger != nil {
		m.logger.Info("rate limiting disabled")
	}
	return m
}

// RateLimit throttles by actor role and subject, or by client IP when the
// request carries no actor.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.disabled {
				next.ServeHTTP(w, r)
				return
			}

			class := models.ClassForMethod(r.Method)
			limit := m.limits.forClass(class)
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := bucketKey(ctx, class)
			result, degraded, err := m.check(ctx, key, limit)
			if err != nil {
				m.logWarn(ctx, "rate limit check failed, allowing request", "error", err, "class", string(class))
				next.ServeHTTP(w, r)
				return
			}

			addRateLimitHeaders(w, result)
			if degraded {
				w.Header().Set(StatusHeader, "degraded")
			}
			if m.metrics != nil {
				m.metrics.RecordDecision(string(class), result.Allowed)
			}

			if !result.Allowed {
				m.logWarn(ctx, "rate limit exceeded", "class", string(class), "limit", result.Limit)
				writeRateLimitExceeded(w, result)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// check consults the primary store and routes to the fallback while the
// circuit is open. Before the circuit opens, store errors fail open.
func (m *Middleware) check(ctx context.Context, key string, limit int) (*models.RateLimitResult, bool, error) {
	result, err := m.primary.Allow(ctx, key, limit, m.limits.Window)
	if err == nil {
		m.breaker.RecordSuccess()
		open := m.breaker.IsOpen()
		m.setDegraded(open)
		return result, open, nil
	}

	if m.metrics != nil {
		m.metrics.IncrementStoreErrors()
	}
	if !m.breaker.RecordFailure() {
		return nil, false, err
	}
	m.setDegraded(true)
	result, fbErr := m.fallback.Allow(ctx, key, limit, m.limits.Window)
	if fbErr != nil {
		return nil, true, fbErr
	}
	return result, true, nil
}

func (m *Middleware) setDegraded(degraded bool) {
	if m.metrics != nil {
		m.metrics.SetDegraded(degraded)
	}
}

func (m *Middleware) logWarn(ctx context.Context, msg string, args ...any) {
	if m.logger == nil {
		return
	}
	args = append(args, "request_id", requestcontext.RequestID(ctx))
	m.logger.WarnContext(ctx, msg, args...)
}

func bucketKey(ctx context.Context, class models.EndpointClass) string {
	actor := requestcontext.Actor(ctx)
	if !actor.IsZero() {
		return models.BucketKey(class, string(actor.Role), actor.SubjectID)
	}
	return models.BucketKey(class, "ip", requestcontext.ClientIP(ctx))
}

func addRateLimitHeaders(w http.ResponseWriter, result *models.RateLimitResult) {
	if result == nil {
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeRateLimitExceeded(w http.ResponseWriter, result *models.RateLimitResult) {
	w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
	httputil.WriteJSON(w, http.StatusTooManyRequests, &models.RateLimitExceededResponse{
		Error:      "rate_limit_exceeded",
		Message:    "Too many requests. Please try again later.",
		RetryAfter: result.RetryAfter,
	})
}
