package channel

import (
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// WaitGroup is §4.6's wait group: a counter plus at most one waiting
// coroutine. Unlike sync.WaitGroup, Add only ever increments (a
// negative delta is rejected outright) and is itself refused while a
// Wait is outstanding — Done is the only way to count down, matching
// the counting-semaphore shape spec.md describes rather than the
// arbitrary-delta one stdlib's WaitGroup allows.
type WaitGroup struct {
	mu      sync.Mutex
	rt      *coroutine.Runtime
	loop    *reactor.Loop
	counter int
	waiter  *waiter
}

// WaitGroupOption configures a WaitGroup at construction.
type WaitGroupOption func(*WaitGroup)

// WithWaitGroupLoop attaches a reactor.Loop so Wait calls with a
// non-negative timeout can actually time out.
func WithWaitGroupLoop(loop *reactor.Loop) WaitGroupOption {
	return func(wg *WaitGroup) { wg.loop = loop }
}

// NewWaitGroup creates a WaitGroup with counter 0.
func NewWaitGroup(rt *coroutine.Runtime, opts ...WaitGroupOption) *WaitGroup {
	wg := &WaitGroup{rt: rt}
	for _, opt := range opts {
		opt(wg)
	}
	return wg
}

// Add increments the counter by delta. delta must be non-negative, and
// Add must not be called while a coroutine is blocked in Wait (§4.6:
// "must not be called while someone is waiting").
func (wg *WaitGroup) Add(delta int) error {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	if delta < 0 {
		return catcode.New(catcode.EINVAL, "wait group Add delta must be non-negative")
	}
	if wg.waiter != nil {
		return catcode.New(catcode.EMISUSE, "wait group Add called while a coroutine is waiting")
	}
	wg.counter += delta
	return nil
}

// Done decrements the counter by one; when it reaches zero, the
// coroutine parked in Wait (if any) is woken.
func (wg *WaitGroup) Done() error {
	wg.mu.Lock()
	if wg.counter <= 0 {
		wg.mu.Unlock()
		return catcode.New(catcode.EMISUSE, "wait group Done called with a zero counter")
	}
	wg.counter--
	var w *waiter
	if wg.counter == 0 {
		w = wg.waiter
		wg.waiter = nil
	}
	wg.mu.Unlock()
	if w != nil {
		_, _ = wg.rt.Resume(w.co, signal{from: w})
	}
	return nil
}

// Wait blocks the caller until the counter reaches zero, returning
// immediately if it already is. Only one coroutine may Wait at a time
// (§4.6: "multiple concurrent waiters on the same group are an
// error").
func (wg *WaitGroup) Wait(timeout time.Duration) error {
	wg.mu.Lock()
	if wg.counter == 0 {
		wg.mu.Unlock()
		return nil
	}
	if wg.waiter != nil {
		wg.mu.Unlock()
		return catcode.New(catcode.EMISUSE, "another coroutine is already waiting on this wait group")
	}
	self := &waiter{co: wg.rt.Current()}
	wg.waiter = self
	wg.mu.Unlock()

	var cancelTimer func()
	if timeout >= 0 && wg.loop != nil {
		var once sync.Once
		_, _, cancel := wg.loop.Sleep(timeout, func(err error) {
			if err != nil {
				return
			}
			once.Do(func() {
				wg.mu.Lock()
				if wg.waiter != self {
					wg.mu.Unlock()
					return
				}
				wg.waiter = nil
				wg.mu.Unlock()
				_, _ = wg.rt.Resume(self.co, signal{
					err:  catcode.New(catcode.ETIMEDOUT, "wait group wait timed out"),
					from: self,
				})
			})
		})
		cancelTimer = cancel
	}

	result := wg.rt.Yield(nil)

	if cancelTimer != nil {
		cancelTimer()
	}
	wg.mu.Lock()
	if wg.waiter == self {
		wg.waiter = nil
	}
	wg.mu.Unlock()

	sig, ok := result.(signal)
	if !ok {
		return catcode.New(catcode.ECANCELED, "wait group wait canceled by external resume")
	}
	return sig.err
}

// Counter reports the current count.
func (wg *WaitGroup) Counter() int {
	wg.mu.Lock()
	defer wg.mu.Unlock()
	return wg.counter
}
