//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "cmsportal/pkg/platform/audit"
	"cmsportal/pkg/testutil/containers"
)

func TestPublisher_ProducesEvent(t *testing.T) {
	broker := containers.NewRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pub, err := New([]string{broker}, "cms.consent.audit.test")
	require.NoError(t, err)
	defer pub.Close()

	require.NoError(t, pub.EnsureTopic(ctx))
	// a second call must tolerate the existing topic
	require.NoError(t, pub.EnsureTopic(ctx))

	require.NoError(t, pub.Append(ctx, audit.Event{
		ID:         "evt-1",
		Type:       audit.EventConsentWithdrawn,
		Timestamp:  time.Now(),
		UserID:     "user-1",
		ArtifactID: "art-9",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics("cms.consent.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var got record
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, "consent_withdrawn", got.Type)
	assert.Equal(t, "compliance", got.Category)
	assert.Equal(t, "art-9", got.ArtifactID)
	assert.Equal(t, []byte("user-1"), records[0].Key)
}
