// Package audit records consent lifecycle events after the consent service has
// accepted them. Recording is best effort: the backend is the system of record,
// so a failed emit is logged and counted but never reaches the citizen.
package audit

import (
	"context"
	"log/slog"

	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/platform/middleware/metadata"
	"cmsportal/pkg/requestcontext"
)

// Emitter persists or forwards an event.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics interface {
	IncrementAuditPublishFailures(sink string)
}

// Recorder stamps events with request metadata and hands them to an Emitter.
type Recorder struct {
	emitter Emitter
	logger  *slog.Logger
	metrics Metrics
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

func NewRecorder(emitter Emitter, opts ...Option) *Recorder {
	r := &Recorder{
		emitter: emitter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record fills request id, client ip, device and timestamp from ctx when the
// caller left them empty, then emits.
func (r *Recorder) Record(ctx context.Context, event audit.Event) {
	if r == nil || r.emitter == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Device == "" {
		event.Device = metadata.DeviceLabel(requestcontext.UserAgent(ctx))
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}

	if err := r.emitter.Emit(ctx, event); err != nil {
		r.logger.WarnContext(ctx, "failed to record audit event",
			"type", event.Type,
			"request_id", event.RequestID,
			"error", err,
		)
		if r.metrics != nil {
			r.metrics.IncrementAuditPublishFailures("store")
		}
	}
}
