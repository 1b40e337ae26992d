package channel

import (
	"time"

	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// Channel is §4.6's typed channel: a FIFO handoff between coroutines
// with optional buffering, built on rawChannel. Go's type system lets
// this be generic where spec.md's C channel carried an untyped
// data_size byte blob — SPEC_FULL.md's §3 mapping calls this out
// explicitly as the one deliberate divergence from the byte-oriented
// original, since wire compatibility across languages is not a goal
// for a Go library.
type Channel[T any] struct {
	raw *rawChannel
}

// Option configures a Channel at construction.
type Option func(*rawChannel)

// WithLoop attaches a reactor.Loop so Push/Pop calls with a
// non-negative timeout can actually time out. A Channel used only with
// negative (infinite) timeouts does not need one.
func WithLoop(loop *reactor.Loop) Option {
	return func(c *rawChannel) { c.loop = loop }
}

// WithDestructor registers a cleanup callback invoked on every item
// still buffered in storage when Close drains it.
func WithDestructor[T any](dtor func(T)) Option {
	return func(c *rawChannel) {
		c.dtor = func(v any) { dtor(v.(T)) }
	}
}

// WithReuse opts into §4.6's REUSE flag: Close wakes waiters and
// drains storage but leaves the channel open for further use,
// mirroring cat_channel.h's "close will never break the channel."
func WithReuse() Option {
	return func(c *rawChannel) { c.reuse = true }
}

// New creates a Channel with the given capacity (0 for an unbuffered
// rendezvous channel, a positive integer for a bounded buffer, or a
// negative integer for an unbounded one).
func New[T any](rt *coroutine.Runtime, capacity int, opts ...Option) *Channel[T] {
	raw := newRawChannel(rt, nil, capacity, nil, false)
	for _, opt := range opts {
		opt(raw)
	}
	return &Channel[T]{raw: raw}
}

// Push suspends the caller until data is accepted (directly by a
// waiting consumer, into storage, or after a wake-up proves a slot
// opened), timeout elapses (ETIMEDOUT), the channel closes (ECLOSED),
// or a third party cancels the wait (ECANCELED). timeout < 0 waits
// indefinitely.
func (c *Channel[T]) Push(data T, timeout time.Duration) error {
	return c.raw.push(data, timeout)
}

// Pop is Push's dual: it suspends until an item is available or one
// of Push's three failure modes applies.
func (c *Channel[T]) Pop(timeout time.Duration) (T, error) {
	v, err := c.raw.pop(timeout)
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Close wakes every waiter with ECLOSED and drains buffered storage
// through the destructor (if any). Under WithReuse, the channel
// remains open for further Push/Pop calls afterward; waiters parked
// before the Close still observe ECLOSED.
func (c *Channel[T]) Close() { c.raw.close() }

// Len reports the number of items currently buffered.
func (c *Channel[T]) Len() int { return c.raw.length() }

// Capacity reports the configured capacity (-1 == unbounded).
func (c *Channel[T]) Capacity() int { return c.raw.capacity }

func (c *Channel[T]) IsEmpty() bool      { return c.raw.isEmpty() }
func (c *Channel[T]) IsFull() bool       { return c.raw.isFull() }
func (c *Channel[T]) HasProducers() bool { return c.raw.hasProducers() }
func (c *Channel[T]) HasConsumers() bool { return c.raw.hasConsumers() }
func (c *Channel[T]) IsClosed() bool     { return c.raw.isClosed() }
