package ratelimit

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cmsportal/pkg/platform/httputil"
	"cmsportal/pkg/requestcontext"
)

// Store counts requests per key.
type Store interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (Result, error)
}

type Metrics interface {
	IncrementRateLimited(class string)
}

// Limiter applies per-class policies. Requests are keyed by device when the
// client presented a device cookie, otherwise by client address, and by the
// principal on admin routes.
type Limiter struct {
	store    Store
	policies map[Class]Policy
	logger   *slog.Logger
	metrics  Metrics
	disabled bool
}

type Option func(*Limiter)

func WithPolicy(class Class, p Policy) Option {
	return func(l *Limiter) {
		if p.Limit > 0 && p.Window > 0 {
			l.policies[class] = p
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func WithMetrics(m Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

// WithDisabled turns every check into a pass (local demos).
func WithDisabled(disabled bool) Option {
	return func(l *Limiter) { l.disabled = disabled }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: make(map[Class]Policy, len(DefaultPolicies)),
		logger:   slog.Default(),
	}
	for class, p := range DefaultPolicies {
		l.policies[class] = p
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type exceededResponse struct {
	Error      string `json:"error"`
	Message    string `json:"error_description"`
	RetryAfter int    `json:"retry_after"`
}

// Middleware enforces class on the wrapped routes. A store failure lets the
// request through.
func (l *Limiter) Middleware(class Class) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if l == nil || l.disabled {
			return next
		}
		policy, ok := l.policies[class]
		if !ok {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			result, err := l.store.Allow(ctx, bucketKey(class, subject(ctx)), policy.Limit, policy.Window)
			if err != nil {
				l.logger.ErrorContext(ctx, "rate limit check failed, allowing request",
					"class", class,
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				next.ServeHTTP(w, r)
				return
			}

			addHeaders(w, result)
			if !result.Allowed {
				if l.metrics != nil {
					l.metrics.IncrementRateLimited(string(class))
				}
				l.logger.WarnContext(ctx, "rate limit exceeded",
					"class", class,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", strconv.Itoa(result.RetryAfter))
				httputil.WriteJSON(w, http.StatusTooManyRequests, exceededResponse{
					Error:      "rate_limit_exceeded",
					Message:    "Too many requests. Please try again later.",
					RetryAfter: result.RetryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// subject picks the bucket owner. A device id minted on this request says
// nothing about the caller, so cookieless requests share their address bucket.
func subject(ctx context.Context) string {
	if p, ok := requestcontext.PrincipalFrom(ctx); ok && p.UserID != "" {
		return "user:" + p.UserID
	}
	if d := requestcontext.DeviceID(ctx); d != "" && !requestcontext.DeviceIssued(ctx) {
		return "device:" + d
	}
	return "ip:" + requestcontext.ClientIP(ctx)
}

func addHeaders(w http.ResponseWriter, result Result) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}
