package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestBreaker(opts ...Option) (*Breaker, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithCooldown(time.Minute)}, opts...)
	return New("translate", opts...), clock
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(3))
	require.Equal(t, "translate", b.Name())

	for i := 0; i < 2; i++ {
		fallback, change := b.RecordFailure()
		assert.False(t, fallback)
		assert.False(t, change.Opened)
	}
	fallback, change := b.RecordFailure()
	assert.True(t, fallback)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow())
}

func TestBreakerSuccessResetsFailureStreak(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(2))

	b.RecordFailure()
	b.RecordSuccess()
	_, change := b.RecordFailure()

	assert.False(t, change.Opened, "streak restarts after a success")
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerProbeCycle(t *testing.T) {
	tests := []struct {
		name        string
		successes   int
		probeFails  bool
		wantClosed  bool
		wantAllowed bool
	}{
		{name: "single successful probe closes", successes: 1, wantClosed: true, wantAllowed: true},
		{name: "failed probe restarts cooldown", probeFails: true, wantClosed: false, wantAllowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock := newTestBreaker(WithFailureThreshold(1))
			b.RecordFailure()
			require.False(t, b.Allow())

			clock.advance(61 * time.Second)
			require.True(t, b.Allow(), "probe allowed once cooldown elapsed")

			if tt.probeFails {
				fallback, change := b.RecordFailure()
				assert.True(t, fallback)
				assert.False(t, change.Opened, "already open")
			}
			for i := 0; i < tt.successes; i++ {
				b.RecordSuccess()
			}

			assert.Equal(t, tt.wantClosed, !b.IsOpen())
			assert.Equal(t, tt.wantAllowed, b.Allow())
		})
	}
}

func TestBreakerNeedsSuccessThresholdToClose(t *testing.T) {
	b, clock := newTestBreaker(WithFailureThreshold(1), WithSuccessThreshold(2))
	b.RecordFailure()
	clock.advance(2 * time.Minute)

	primary, change := b.RecordSuccess()
	assert.False(t, primary)
	assert.False(t, change.Closed)

	primary, change = b.RecordSuccess()
	assert.True(t, primary)
	assert.True(t, change.Closed)
}

func TestBreakerReset(t *testing.T) {
	b, _ := newTestBreaker(WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()

	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}
