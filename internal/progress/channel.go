// Package progress carries build progress text from batch workers to a consumer.
//
// A Channel is ordered, unbounded, and never blocks a sender. Any number of
// workers may send; one consumer drains it, either by non-blocking polls
// (TryRecv, Drain) from a render loop or by blocking Recv from a CLI. Messages
// from a single sender arrive in send order; nothing orders messages across
// senders.
//
// Closing the channel signals that the consumer is gone. Senders observe
// ErrClosed and are expected to stop quietly.
package progress

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Send once the consumer has closed the channel.
var ErrClosed = errors.New("progress channel closed")

// Sender is the producer side of a Channel.
type Sender interface {
	Send(Message) error
}

// Channel is an unbounded multi-producer, single-consumer message queue.
type Channel struct {
	mu     sync.Mutex
	queue  []Message
	closed bool
	notify chan struct{}
}

// New returns an open, empty channel.
func New() *Channel {
	return &Channel{notify: make(chan struct{}, 1)}
}

// Send enqueues msg without blocking.
func (c *Channel) Send(msg Message) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.queue = append(c.queue, msg)
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}

// TryRecv pops the oldest message, if any.
func (c *Channel) TryRecv() (Message, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return Message{}, false
	}
	msg := c.queue[0]
	c.queue[0] = Message{}
	c.queue = c.queue[1:]
	return msg, true
}

// Drain pops every queued message in arrival order.
func (c *Channel) Drain() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	out := c.queue
	c.queue = nil
	return out
}

// Recv blocks until a message is available, ctx is done, or the channel is
// closed and empty.
func (c *Channel) Recv(ctx context.Context) (Message, error) {
	for {
		if msg, ok := c.TryRecv(); ok {
			return msg, nil
		}
		if c.Closed() {
			return Message{}, ErrClosed
		}
		select {
		case <-c.notify:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Close marks the consumer as gone. Queued messages stay readable.
func (c *Channel) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Len returns the number of queued messages.
func (c *Channel) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}
