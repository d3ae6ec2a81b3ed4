//go:build integration

package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"rnp-recruitment/pkg/testutil/containers"
)

func TestKafkaSinkPublishesEntries(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	rp := containers.NewRedpandaContainer(t)
	sink, err := NewKafkaSink(ctx, []string{rp.Broker}, "rnp.audit.test")
	require.NoError(t, err)
	defer sink.Close()

	// A second sink on the same topic must tolerate the existing topic.
	again, err := NewKafkaSink(ctx, []string{rp.Broker}, "rnp.audit.test")
	require.NoError(t, err)
	again.Close()

	entry := Entry{
		ID:        "log-1",
		Timestamp: time.Now().UTC().Truncate(time.Second),
		Action:    ActionNewApplication,
		User:      "System",
		Details:   "New application RNP-2026-1234",
	}
	require.NoError(t, sink.Publish(ctx, entry))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(rp.Broker),
		kgo.ConsumeTopics("rnp.audit.test"),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.NotEmpty(t, records)

	var got Entry
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	assert.Equal(t, string(ActionNewApplication), string(records[0].Key))
	assert.Equal(t, entry.Details, got.Details)
}
