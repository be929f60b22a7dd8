package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrGatewayClosed is returned by operations on a closed gateway.
var ErrGatewayClosed = errors.New("queue gateway closed")

// InMemGateway implements Gateway over buffered channels. Deliveries
// are at-least-once only in the sense that callers may publish the
// same body twice; there is no redelivery machinery.
type InMemGateway struct {
	mu     sync.Mutex
	queues map[string]chan []byte
	buffer int
	closed bool
	done   chan struct{}
}

// NewInMemGateway creates an in-memory gateway. buffer bounds each
// queue's channel; a zero or negative value picks a small default.
func NewInMemGateway(buffer int) *InMemGateway {
	if buffer <= 0 {
		buffer = 64
	}
	return &InMemGateway{
		queues: make(map[string]chan []byte),
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

func (g *InMemGateway) channel(queue string) (chan []byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrGatewayClosed
	}
	ch, ok := g.queues[queue]
	if !ok {
		ch = make(chan []byte, g.buffer)
		g.queues[queue] = ch
	}
	return ch, nil
}

// Publish enqueues one message. Blocks if the queue buffer is full.
func (g *InMemGateway) Publish(ctx context.Context, queue string, body []byte) error {
	ch, err := g.channel(queue)
	if err != nil {
		return err
	}

	msg := make([]byte, len(body))
	copy(msg, body)

	select {
	case ch <- msg:
		return nil
	case <-g.done:
		return ErrGatewayClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers messages to the handler until ctx is cancelled or
// the gateway closes. Handler errors are swallowed: an in-memory
// queue has no redelivery, so a rejected message is simply gone.
func (g *InMemGateway) Consume(ctx context.Context, queue string, handler Handler) error {
	ch, err := g.channel(queue)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-g.done:
			return ErrGatewayClosed
		case body := <-ch:
			_ = handler(ctx, body)
		}
	}
}

// Depth returns the number of buffered messages in a queue. Test
// helper.
func (g *InMemGateway) Depth(queue string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.queues[queue]
	if !ok {
		return 0
	}
	return len(ch)
}

// Pop removes and returns one buffered message without a consumer.
// Test helper; returns false when the queue is empty.
func (g *InMemGateway) Pop(queue string) ([]byte, bool) {
	g.mu.Lock()
	ch, ok := g.queues[queue]
	g.mu.Unlock()
	if !ok {
		return nil, false
	}
	select {
	case body := <-ch:
		return body, true
	default:
		return nil, false
	}
}

// Close shuts the gateway down. Pending Publish and Consume calls
// return ErrGatewayClosed.
func (g *InMemGateway) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	close(g.done)
	return nil
}
