package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cmsportal/pkg/platform/audit"
	"cmsportal/pkg/requestcontext"
)

type captureEmitter struct {
	events []audit.Event
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, e audit.Event) error {
	c.events = append(c.events, e)
	return c.err
}

type failureCounter struct{ n int }

func (f *failureCounter) IncrementAuditPublishFailures(string) { f.n++ }

func TestRecorder_StampsRequestMetadata(t *testing.T) {
	emitter := &captureEmitter{}
	rec := NewRecorder(emitter)

	now := time.Date(2026, 5, 4, 8, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)
	ctx = requestcontext.WithRequestID(ctx, "req-7")
	ctx = requestcontext.WithClientMetadata(ctx, "10.1.2.3", "", "")

	rec.Record(ctx, audit.Event{Type: audit.EventConsentGranted, UserID: "u-1"})

	require.Len(t, emitter.events, 1)
	got := emitter.events[0]
	assert.Equal(t, "req-7", got.RequestID)
	assert.Equal(t, "10.1.2.3", got.ClientIP)
	assert.Equal(t, "unknown", got.Device)
	assert.Equal(t, now, got.Timestamp)
}

func TestRecorder_KeepsExplicitFields(t *testing.T) {
	emitter := &captureEmitter{}
	rec := NewRecorder(emitter)

	ctx := requestcontext.WithRequestID(context.Background(), "from-ctx")
	rec.Record(ctx, audit.Event{Type: audit.EventConsentGranted, RequestID: "explicit", Device: "Firefox on Windows"})

	require.Len(t, emitter.events, 1)
	assert.Equal(t, "explicit", emitter.events[0].RequestID)
	assert.Equal(t, "Firefox on Windows", emitter.events[0].Device)
}

func TestRecorder_SwallowsEmitFailure(t *testing.T) {
	emitter := &captureEmitter{err: errors.New("db down")}
	counter := &failureCounter{}
	rec := NewRecorder(emitter, WithMetrics(counter))

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), audit.Event{Type: audit.EventConsentWithdrawn})
	})
	assert.Equal(t, 1, counter.n)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.Record(context.Background(), audit.Event{Type: audit.EventConsentInitiated})
	})
}
