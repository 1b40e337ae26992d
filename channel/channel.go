// Package channel implements §4.6's coroutine synchronization
// primitives: a typed, capacity-bounded Channel, a WaitGroup, and a
// single-shot cross-thread Notifier, all built directly on
// coroutine.Runtime's suspend/resume jump protocol rather than native
// Go channels and goroutines — a channel.Channel's Push/Pop block by
// parking the calling coroutine (coroutine.Runtime.Yield) and are woken
// by whichever coroutine later completes the matching operation
// (coroutine.Runtime.Resume), exactly the way socket.Socket.awaitFD
// parks on a pending I/O op. Grounded on
// original_source/include/cat_channel.h's cat_channel_t shape: a
// storage queue plus two ordered wait lists (producers, consumers).
package channel

import (
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// waiter is one coroutine parked on a channel operation. A producer
// waiter carries the value it was trying to push, so a Pop that
// services an unbuffered (capacity-0) handoff can take it directly
// without a second rendezvous.
type waiter struct {
	co    *coroutine.Coroutine
	value any
}

// signal is the uniform Resume datum used to wake any channel waiter.
// retry means "no delivery happened, re-examine state" (used to nudge
// a blocked producer after a storage slot frees up); err is set on
// timeout/cancel/close; otherwise value is the delivered payload.
// Carrying the serviced waiter lets Select, which parks one coroutine
// across several channels' wait lists at once, identify which of its
// registered requests actually fired once its single Yield returns.
type signal struct {
	value any
	err   error
	from  *waiter
	retry bool
}

// rawChannel is the untyped engine behind Channel[T]: every field and
// method operates on boxed any values so the wait-list and select
// plumbing doesn't need to be duplicated per type parameter. Channel[T]
// is a thin generic facade over it.
type rawChannel struct {
	mu   sync.Mutex
	rt   *coroutine.Runtime
	loop *reactor.Loop // nil: no timer support, every wait must pass timeout < 0

	capacity int // -1 == unbounded, 0 == unbuffered (rendezvous only)
	dtor     func(any)
	reuse    bool

	storage   []any
	producers []*waiter
	consumers []*waiter

	closed bool
}

func newRawChannel(rt *coroutine.Runtime, loop *reactor.Loop, capacity int, dtor func(any), reuse bool) *rawChannel {
	return &rawChannel{
		rt:       rt,
		loop:     loop,
		capacity: capacity,
		dtor:     dtor,
		reuse:    reuse,
	}
}

// push implements §4.6's push(data, timeout): deliver to a waiting
// consumer directly, else buffer if capacity remains, else block.
func (c *rawChannel) push(data any, timeout time.Duration) error {
	caller := c.rt.Current()
	for {
		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return catcode.New(catcode.ECLOSED, "push on closed channel")
		}
		if len(c.consumers) > 0 {
			w := c.consumers[0]
			c.consumers = c.consumers[1:]
			c.mu.Unlock()
			_, err := c.rt.Resume(w.co, signal{value: data, from: w})
			return err
		}
		if c.capacity < 0 || len(c.storage) < c.capacity {
			c.storage = append(c.storage, data)
			c.mu.Unlock()
			return nil
		}

		self := &waiter{co: caller, value: data}
		c.producers = append(c.producers, self)
		c.mu.Unlock()

		sig, err := c.awaitWake(self, &c.producers, timeout)
		if err != nil {
			return err
		}
		if !sig.retry {
			// A pop took our value directly (unbuffered rendezvous) —
			// done.
			return nil
		}
		c.mu.Lock()
		stillFull := c.capacity >= 0 && len(c.storage) >= c.capacity
		c.mu.Unlock()
		if stillFull {
			return catcode.New(catcode.ECANCELED, "push canceled: still at capacity after wake")
		}
		// A slot opened; loop back and try to claim it.
	}
}

// pop implements §4.6's pop(timeout), the dual of push.
func (c *rawChannel) pop(timeout time.Duration) (any, error) {
	caller := c.rt.Current()
	for {
		c.mu.Lock()
		if len(c.storage) > 0 {
			v := c.storage[0]
			c.storage = c.storage[1:]
			var wake *waiter
			if len(c.producers) > 0 && (c.capacity < 0 || len(c.storage) < c.capacity) {
				// Just free the slot and nudge the head producer to
				// retry — it owns re-appending its own value, so two
				// racing wakes can never double-insert the same item.
				wake = c.producers[0]
				c.producers = c.producers[1:]
			}
			c.mu.Unlock()
			if wake != nil {
				_, _ = c.rt.Resume(wake.co, signal{from: wake, retry: true})
			}
			return v, nil
		}
		if len(c.producers) > 0 {
			// Unbuffered rendezvous: take the head producer's value
			// directly and wake it as delivered (not a retry), so push()
			// knows its value was taken rather than merely buffered.
			w := c.producers[0]
			c.producers = c.producers[1:]
			c.mu.Unlock()
			_, err := c.rt.Resume(w.co, signal{from: w})
			return w.value, err
		}
		if c.closed {
			c.mu.Unlock()
			return nil, catcode.New(catcode.ECLOSED, "pop on closed channel")
		}

		self := &waiter{co: caller}
		c.consumers = append(c.consumers, self)
		c.mu.Unlock()

		sig, err := c.awaitWake(self, &c.consumers, timeout)
		if err != nil {
			return nil, err
		}
		// sig is the delivered value from a direct push handoff.
		return sig.value, nil
	}
}

// awaitWake parks caller by yielding, removing self from list on any
// exit path (normal wake, timeout, or external cancel) so a stale
// waiter entry never lingers. The timeout/cancel wiring mirrors
// socket.Socket.awaitFD, minus the fd/reactor registration: channel
// operations have no I/O of their own to race, only a timer.
func (c *rawChannel) awaitWake(self *waiter, list *[]*waiter, timeout time.Duration) (signal, error) {
	var cancelTimer func()
	if timeout >= 0 {
		cancelTimer = c.scheduleTimeout(self, list, timeout)
	}

	result := c.rt.Yield(nil)

	if cancelTimer != nil {
		cancelTimer()
	}
	c.removeWaiter(list, self)

	sig, ok := result.(signal)
	if !ok {
		// Woken by a Resume call that isn't one of this package's own
		// servicers — i.e. a third party cancellation per §5's "any
		// blocked coroutine can be woken by another coroutine calling
		// resume on it" — must surface as ECANCELED, not a spurious
		// success.
		return signal{}, catcode.New(catcode.ECANCELED, "channel operation canceled by external resume")
	}
	if sig.err != nil {
		return signal{}, sig.err
	}
	return sig, nil
}

// scheduleTimeout arms a timer that, if it fires before the waiter is
// otherwise removed, wakes it with ETIMEDOUT. Mirrors
// socket.Socket.awaitFD's Sleep-racing-a-ready-event pattern, minus
// the fd side (a channel wait has nothing to register with the
// poller, only the clock).
func (c *rawChannel) scheduleTimeout(self *waiter, list *[]*waiter, timeout time.Duration) func() {
	if c.loop == nil {
		return nil
	}
	var once sync.Once
	_, _, cancel := c.loop.Sleep(timeout, func(err error) {
		if err != nil {
			return // canceled: the waiter was already serviced
		}
		once.Do(func() {
			if !c.takeWaiter(list, self) {
				return // already removed by a racing wake
			}
			_, _ = c.rt.Resume(self.co, signal{
				err:  catcode.New(catcode.ETIMEDOUT, "channel operation timed out"),
				from: self,
			})
		})
	})
	return cancel
}

// takeWaiter removes self from list iff it is still present, reporting
// whether it did so — guards the race between a timer firing and the
// waiter being serviced by a concurrent push/pop/close in the same
// tick.
func (c *rawChannel) takeWaiter(list *[]*waiter, self *waiter) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range *list {
		if w == self {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return true
		}
	}
	return false
}

func (c *rawChannel) removeWaiter(list *[]*waiter, self *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, w := range *list {
		if w == self {
			*list = append((*list)[:i], (*list)[i+1:]...)
			return
		}
	}
}

// close implements §4.6's close(): wake every waiter with ECLOSED,
// drain storage through the destructor, and either latch closed
// permanently or — under REUSE — reopen the channel for further use,
// per cat_channel.h's "close will never break the channel so we can
// reuse it" comment. Waiters parked *before* this call always fail
// with ECLOSED; REUSE only affects operations issued afterward.
func (c *rawChannel) close() {
	c.mu.Lock()
	producers := c.producers
	consumers := c.consumers
	storage := c.storage
	c.producers = nil
	c.consumers = nil
	c.storage = nil
	c.closed = !c.reuse
	c.mu.Unlock()

	for _, w := range producers {
		_, _ = c.rt.Resume(w.co, signal{err: catcode.New(catcode.ECLOSED, "channel closed"), from: w})
	}
	for _, w := range consumers {
		_, _ = c.rt.Resume(w.co, signal{err: catcode.New(catcode.ECLOSED, "channel closed"), from: w})
	}
	if c.dtor != nil {
		for _, v := range storage {
			c.dtor(v)
		}
	}
}

func (c *rawChannel) length() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.storage)
}

func (c *rawChannel) isEmpty() bool { return c.length() == 0 }

func (c *rawChannel) isFull() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capacity >= 0 && len(c.storage) >= c.capacity
}

func (c *rawChannel) hasProducers() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.producers) > 0
}

func (c *rawChannel) hasConsumers() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.consumers) > 0
}

func (c *rawChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// tryPush attempts an immediate, non-blocking push: delivering to a
// waiting consumer or buffering, never enqueuing the caller. Used by
// Select's fast path.
func (c *rawChannel) tryPush(data any) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	if len(c.consumers) > 0 {
		w := c.consumers[0]
		c.consumers = c.consumers[1:]
		c.mu.Unlock()
		_, _ = c.rt.Resume(w.co, signal{value: data, from: w})
		return true
	}
	if c.capacity < 0 || len(c.storage) < c.capacity {
		c.storage = append(c.storage, data)
		c.mu.Unlock()
		return true
	}
	c.mu.Unlock()
	return false
}

// tryPop is tryPush's dual.
func (c *rawChannel) tryPop() (any, bool) {
	c.mu.Lock()
	if len(c.storage) > 0 {
		v := c.storage[0]
		c.storage = c.storage[1:]
		var wake *waiter
		if len(c.producers) > 0 && (c.capacity < 0 || len(c.storage) < c.capacity) {
			wake = c.producers[0]
			c.producers = c.producers[1:]
		}
		c.mu.Unlock()
		if wake != nil {
			_, _ = c.rt.Resume(wake.co, signal{from: wake, retry: true})
		}
		return v, true
	}
	if len(c.producers) > 0 {
		w := c.producers[0]
		c.producers = c.producers[1:]
		c.mu.Unlock()
		_, _ = c.rt.Resume(w.co, signal{from: w})
		return w.value, true
	}
	c.mu.Unlock()
	return nil, false
}

// addPushWaiter parks self on the producer wait list for use by
// Select, which manages its own Yield/wake cycle across several
// channels at once rather than calling push directly.
func (c *rawChannel) addPushWaiter(self *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.producers = append(c.producers, self)
}

// addPopWaiter is addPushWaiter's consumer-side counterpart.
func (c *rawChannel) addPopWaiter(self *waiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consumers = append(c.consumers, self)
}

func (c *rawChannel) removePushWaiter(self *waiter) { c.removeWaiter(&c.producers, self) }
func (c *rawChannel) removePopWaiter(self *waiter)  { c.removeWaiter(&c.consumers, self) }

func (c *rawChannel) takePushWaiter(self *waiter) bool { return c.takeWaiter(&c.producers, self) }
func (c *rawChannel) takePopWaiter(self *waiter) bool  { return c.takeWaiter(&c.consumers, self) }
