// Package queue provides the order queue abstraction and its Redis Streams
// implementation.
package queue

import (
	"context"
	"time"
)

// Message is one queued order payload. Handle identifies the message for
// acknowledgement and deletion.
type Message struct {
	Handle string
	Body   []byte
}

// Consumer receives and deletes queue messages. Receive blocks up to wait for
// at most max messages; an empty result is not an error. A message that is
// never deleted stays pending and is redelivered by the queue's own policy.
type Consumer interface {
	Receive(ctx context.Context, max int64, wait time.Duration) ([]Message, error)
	Delete(ctx context.Context, handle string) error
}

// Publisher enqueues order payloads.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}
