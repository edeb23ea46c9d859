//go:build integration

package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"ahorro/internal/thrift/store/memory"
	id "ahorro/pkg/domain"
	"ahorro/pkg/testutil/containers"
)

func TestRelay_Redpanda(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker := containers.NewRedpandaContainer(t)
	topic := "ahorro.ledger-events.test"

	producer, err := NewKafkaClient(broker.Brokers, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, EnsureTopic(ctx, producer, topic, 1, 1))
	require.NoError(t, EnsureTopic(ctx, producer, topic, 1, 1), "second call tolerates an existing topic")

	s := memory.New()
	group := id.NewGroupID()
	seed(t, s, group, 3)

	relay := New(s, producer, WithTopic(topic), WithLogger(quietLogger()))
	n, err := relay.Flush(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []*kgo.Record
	for len(got) < 3 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) { got = append(got, r) })
	}
	for _, r := range got {
		assert.Equal(t, group.String(), string(r.Key))
	}
}
