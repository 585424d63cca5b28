package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "cmsportal/pkg/platform/audit"
	"cmsportal/pkg/platform/audit/store/memory"
)

type failingSink struct{}

func (failingSink) Append(context.Context, audit.Event) error {
	return errors.New("broker down")
}

type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Append(_ context.Context, e audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

type countingMetrics struct {
	failures map[string]int
}

func (m *countingMetrics) IncrementAuditPublishFailures(sink string) {
	m.failures[sink]++
}

func TestPublisher_SyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Type:   audit.EventConsentInitiated,
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventConsentInitiated, events[0].Type)
	assert.NotEmpty(t, events[0].ID)
}

func TestPublisher_AsyncMode(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(10))
	defer pub.Close()

	userID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Type:   audit.EventConsentGranted,
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		events, _ := pub.List(context.Background(), userID)
		return len(events) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(100))

	userID := uuid.NewString()
	for range 10 {
		err := pub.Emit(context.Background(), audit.Event{
			UserID: userID,
			Type:   audit.EventConsentWithdrawn,
		})
		require.NoError(t, err)
	}

	pub.Close()

	events, err := store.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 10, "all events should be drained on close")
}

func TestPublisher_EmitAfterClose(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore(), WithAsyncBuffer(1))
	pub.Close()
	pub.Close()

	err := pub.Emit(context.Background(), audit.Event{Type: audit.EventConsentGranted})
	assert.Error(t, err)
}

func TestPublisher_BufferFull_DropsEvent(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store, WithAsyncBuffer(1))
	defer pub.Close()

	userID := uuid.NewString()
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pub.Emit(context.Background(), audit.Event{
				UserID: userID,
				Type:   audit.EventConsentInitiated,
			})
			if err != nil {
				assert.ErrorIs(t, err, ErrBufferFull)
			}
		}()
	}
	wg.Wait()
}

func TestPublisher_SetsTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	pub := NewPublisher(store, WithClock(func() time.Time { return fixed }))
	defer pub.Close()

	userID := uuid.NewString()
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Type:   audit.EventConsentInitiated,
	}))

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, fixed, events[0].Timestamp)
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := uuid.NewString()
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{
		UserID:    userID,
		Type:      audit.EventConsentInitiated,
		Timestamp: customTime,
	}))

	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_SinkFailureIsCountedNotReturned(t *testing.T) {
	store := memory.NewInMemoryStore()
	metrics := &countingMetrics{failures: map[string]int{}}
	ok := &recordingSink{}
	pub := NewPublisher(store,
		WithSink("kafka", failingSink{}),
		WithSink("mirror", ok),
		WithMetrics(metrics),
	)
	defer pub.Close()

	userID := uuid.NewString()
	err := pub.Emit(context.Background(), audit.Event{
		UserID: userID,
		Type:   audit.EventConsentGranted,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.failures["kafka"])
	assert.Len(t, ok.events, 1)
	events, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestPublisher_MultipleEventsKeepOrder(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := NewPublisher(store)
	defer pub.Close()

	userID := uuid.NewString()
	types := []audit.EventType{
		audit.EventConsentInitiated,
		audit.EventConsentGranted,
		audit.EventConsentRenewalRequested,
	}
	for _, typ := range types {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{UserID: userID, Type: typ}))
	}

	result, err := pub.List(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, result, 3)
	for i, typ := range types {
		assert.Equal(t, typ, result[i].Type)
	}
}

func TestEventType_Category(t *testing.T) {
	assert.Equal(t, audit.CategoryCompliance, audit.EventConsentGranted.Category())
	assert.Equal(t, audit.CategoryCompliance, audit.EventConsentWithdrawn.Category())
	assert.Equal(t, audit.CategoryOperations, audit.EventCatalogChanged.Category())
	assert.Equal(t, audit.CategoryOperations, audit.EventType("unknown").Category())
}
