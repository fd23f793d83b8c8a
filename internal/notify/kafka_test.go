//go:build integration

package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"auditflow/pkg/testutil/containers"
)

func TestKafkaPublisherProducesJSON(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rp := containers.GetManager().GetRedpanda(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const topic = "audit.notifications.test"
	pub, err := NewKafkaPublisher(ctx, rp.Brokers, topic)
	require.NoError(t, err)
	defer pub.Close()
	require.NoError(t, pub.Ping(ctx))

	// Creating an existing topic again is tolerated.
	again, err := NewKafkaPublisher(ctx, rp.Brokers, topic)
	require.NoError(t, err)
	again.Close()

	occurred := time.Date(2026, 5, 3, 8, 0, 0, 0, time.UTC)
	require.NoError(t, pub.Publish(ctx, Event{
		Kind: KindReviewed, AuditID: 42, Recipient: "alice", Status: "VERIFIED", OccurredAt: occurred,
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.Empty(t, fetches.Errors())
	records := fetches.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "42", string(records[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, KindReviewed, got.Kind)
	assert.Equal(t, "alice", got.Recipient)
	assert.True(t, occurred.Equal(got.OccurredAt))
}
