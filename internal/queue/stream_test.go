package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreamClient(t *testing.T, mr *miniredis.Miniredis) rueidis.Client {
	t.Helper()

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{mr.Addr()},
		DisableCache: true,
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	return client
}

func receive(t *testing.T, q *StreamQueue) []Message {
	t.Helper()

	messages, err := q.Receive(context.Background(), 10, 50*time.Millisecond)
	require.NoError(t, err)

	return messages
}

func TestStreamQueue_PublishReceiveDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newStreamClient(t, mr)
	ctx := context.Background()

	q := NewStreamQueue(client, "orders:queue", "order-aggregators", "worker-1")
	require.NoError(t, q.EnsureGroup(ctx))

	require.NoError(t, q.Publish(ctx, []byte(`{"order_id":"ORD1"}`)))

	var messages []Message
	for i := 0; i < 3 && len(messages) == 0; i++ {
		messages = receive(t, q)
	}
	require.Len(t, messages, 1)
	assert.Equal(t, `{"order_id":"ORD1"}`, string(messages[0].Body))

	require.NoError(t, q.Delete(ctx, messages[0].Handle))

	// A restarted consumer finds no pending backlog after the ack.
	restarted := NewStreamQueue(client, "orders:queue", "order-aggregators", "worker-1")
	assert.Empty(t, receive(t, restarted))
}

func TestStreamQueue_EnsureGroupIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newStreamClient(t, mr)
	ctx := context.Background()

	q := NewStreamQueue(client, "orders:queue", "order-aggregators", "worker-1")
	require.NoError(t, q.EnsureGroup(ctx))
	require.NoError(t, q.EnsureGroup(ctx))
}

func TestStreamQueue_UnackedBacklogEntryDoesNotStarveNewMessages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := newStreamClient(t, mr)
	ctx := context.Background()

	q := NewStreamQueue(client, "orders:queue", "order-aggregators", "worker-1")
	require.NoError(t, q.EnsureGroup(ctx))

	require.NoError(t, q.Publish(ctx, []byte(`{"broken":`)))

	var delivered []Message
	for i := 0; i < 3 && len(delivered) == 0; i++ {
		delivered = receive(t, q)
	}
	require.Len(t, delivered, 1)
	poisoned := delivered[0].Handle

	// Restart with the entry still pending, then publish a fresh order.
	restarted := NewStreamQueue(client, "orders:queue", "order-aggregators", "worker-1")
	require.NoError(t, restarted.Publish(ctx, []byte(`{"order_id":"ORD2"}`)))

	var handles []string
	var bodies []string
	for i := 0; i < 6; i++ {
		for _, m := range receive(t, restarted) {
			handles = append(handles, m.Handle)
			bodies = append(bodies, string(m.Body))
		}
	}

	redeliveries := 0
	for _, h := range handles {
		if h == poisoned {
			redeliveries++
		}
	}
	assert.Equal(t, 1, redeliveries, "pending entry must be redelivered once, not on every poll")
	assert.Contains(t, bodies, `{"order_id":"ORD2"}`, "new messages must still be delivered")
}
