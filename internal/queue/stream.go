package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"
)

const payloadField = "payload"

// StreamQueue implements Consumer and Publisher over a Redis Stream with a
// consumer group. The stream entry ID doubles as the message handle.
type StreamQueue struct {
	client   rueidis.Client
	stream   string
	group    string
	consumer string

	// Cursor into this consumer's pending backlog. Messages left
	// unacknowledged by a previous run are drained first; the cursor
	// advances past every returned entry, so a message that stays
	// unacked is redelivered once per restart instead of on every poll.
	// Empty means the backlog is drained and reads continue with new
	// messages.
	backlogCursor string
}

// NewStreamQueue creates a stream-backed queue client. Group and consumer may
// be empty for publish-only use.
func NewStreamQueue(client rueidis.Client, stream, group, consumer string) *StreamQueue {
	return &StreamQueue{
		client:        client,
		stream:        stream,
		group:         group,
		consumer:      consumer,
		backlogCursor: "0",
	}
}

// EnsureGroup creates the consumer group and the stream if either is missing.
func (q *StreamQueue) EnsureGroup(ctx context.Context) error {
	cmd := q.client.B().XgroupCreate().Key(q.stream).Group(q.group).Id("0").Mkstream().Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		if strings.Contains(err.Error(), "BUSYGROUP") {
			return nil // group already exists
		}

		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	return nil
}

// Receive fetches up to max messages, long-polling up to wait for new ones.
func (q *StreamQueue) Receive(ctx context.Context, max int64, wait time.Duration) ([]Message, error) {
	var cmd rueidis.Completed
	if q.backlogCursor == "" {
		cmd = q.client.B().Xreadgroup().Group(q.group, q.consumer).
			Count(max).
			Block(wait.Milliseconds()).
			Streams().
			Key(q.stream).
			Id(">").
			Build()
	} else {
		cmd = q.client.B().Xreadgroup().Group(q.group, q.consumer).
			Count(max).
			Streams().
			Key(q.stream).
			Id(q.backlogCursor).
			Build()
	}

	result := q.client.Do(ctx, cmd)
	if err := result.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			q.backlogCursor = ""
			return nil, nil // long-poll timeout
		}

		return nil, fmt.Errorf("failed to read from stream: %w", err)
	}

	streams, err := result.AsXRead()
	if err != nil {
		return nil, fmt.Errorf("failed to decode stream entries: %w", err)
	}

	var messages []Message

	for _, entries := range streams {
		for _, entry := range entries {
			messages = append(messages, Message{
				Handle: entry.ID,
				Body:   []byte(entry.FieldValues[payloadField]),
			})
		}
	}

	if q.backlogCursor != "" {
		if len(messages) == 0 {
			q.backlogCursor = ""
		} else {
			q.backlogCursor = messages[len(messages)-1].Handle
		}
	}

	return messages, nil
}

// Delete acknowledges the message and removes it from the stream.
func (q *StreamQueue) Delete(ctx context.Context, handle string) error {
	ackCmd := q.client.B().Xack().Key(q.stream).Group(q.group).Id(handle).Build()
	if err := q.client.Do(ctx, ackCmd).Error(); err != nil {
		return fmt.Errorf("failed to ACK message %s: %w", handle, err)
	}

	delCmd := q.client.B().Xdel().Key(q.stream).Id(handle).Build()
	if err := q.client.Do(ctx, delCmd).Error(); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", handle, err)
	}

	return nil
}

// Publish appends an order payload to the stream.
func (q *StreamQueue) Publish(ctx context.Context, body []byte) error {
	cmd := q.client.B().Xadd().Key(q.stream).Id("*").
		FieldValue().FieldValue(payloadField, string(body)).
		Build()
	if err := q.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}
