package queue

import "context"

// Handler processes one delivered message. A nil return acknowledges
// the delivery; an error rejects it without requeue (redelivery is
// broker policy, not the handler's).
type Handler func(ctx context.Context, body []byte) error

// Gateway is the broker contract the relay depends on.
//
// Publish is a synchronous acknowledgement of hand-off to the broker,
// not of downstream processing. Consume blocks until ctx is cancelled
// or the underlying transport fails, invoking the handler once per
// delivered message.
type Gateway interface {
	Publish(ctx context.Context, queue string, body []byte) error
	Consume(ctx context.Context, queue string, handler Handler) error
	Close() error
}
