package channel

import (
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// Notifier is §4.6's async notifier: a single-shot, cross-thread
// wake-up handle. Notify is the one operation in this package safe to
// call from a goroutine that isn't running on the owning Runtime at
// all — it hands off through reactor.Loop.Submit (documented as
// callable from any goroutine), which replays onto the loop's own
// tick before the coroutine is actually resumed, exactly like
// reactor/adapters.go's other Loop-submitted callbacks.
type Notifier struct {
	mu       sync.Mutex
	rt       *coroutine.Runtime
	loop     *reactor.Loop
	notified bool
	fired    bool // latches true once Notify has been submitted, for single-shot semantics
	waiter   *waiter
	cleanup  func()
}

// NewNotifier creates a Notifier bound to loop, used to marshal
// Notify's cross-thread call onto the loop's own goroutine.
func NewNotifier(rt *coroutine.Runtime, loop *reactor.Loop) *Notifier {
	return &Notifier{rt: rt, loop: loop}
}

// OnClose registers a cleanup callback that fires exactly once, the
// first time this Notifier is closed out (either by a real Notify or
// by Wait timing out/being canceled without one ever arriving).
func (n *Notifier) OnClose(cleanup func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleanup = cleanup
}

// Notify marks the notifier fired and, if a coroutine is parked in
// Wait, arranges for it to be resumed on the loop's own goroutine.
// Safe to call from any goroutine, including ones with no Runtime of
// their own — this is the one operation in the package that is.
func (n *Notifier) Notify() {
	n.mu.Lock()
	if n.fired {
		n.mu.Unlock()
		return
	}
	n.fired = true
	n.mu.Unlock()

	_ = n.loop.Submit(reactor.Task{Runnable: func() {
		n.mu.Lock()
		n.notified = true
		w := n.waiter
		n.waiter = nil
		n.mu.Unlock()
		if w != nil {
			_, _ = n.rt.Resume(w.co, signal{from: w})
		}
	}})
}

// Wait blocks the caller until Notify fires or timeout elapses. Only
// one coroutine may Wait on a Notifier at a time.
func (n *Notifier) Wait(timeout time.Duration) error {
	n.mu.Lock()
	if n.notified {
		n.mu.Unlock()
		n.runCleanup()
		return nil
	}
	if n.waiter != nil {
		n.mu.Unlock()
		return catcode.New(catcode.EMISUSE, "another coroutine is already waiting on this notifier")
	}
	self := &waiter{co: n.rt.Current()}
	n.waiter = self
	n.mu.Unlock()

	var cancelTimer func()
	if timeout >= 0 {
		var once sync.Once
		_, _, cancel := n.loop.Sleep(timeout, func(err error) {
			if err != nil {
				return
			}
			once.Do(func() {
				n.mu.Lock()
				if n.waiter != self {
					n.mu.Unlock()
					return
				}
				n.waiter = nil
				n.mu.Unlock()
				_, _ = n.rt.Resume(self.co, signal{
					err:  catcode.New(catcode.ETIMEDOUT, "notifier wait timed out"),
					from: self,
				})
			})
		})
		cancelTimer = cancel
	}

	result := n.rt.Yield(nil)

	if cancelTimer != nil {
		cancelTimer()
	}
	n.mu.Lock()
	if n.waiter == self {
		n.waiter = nil
	}
	n.mu.Unlock()

	sig, ok := result.(signal)
	if !ok {
		n.runCleanup()
		return catcode.New(catcode.ECANCELED, "notifier wait canceled by external resume")
	}
	if sig.err != nil {
		n.runCleanup()
		return sig.err
	}
	n.runCleanup()
	return nil
}

func (n *Notifier) runCleanup() {
	n.mu.Lock()
	cleanup := n.cleanup
	n.cleanup = nil
	n.mu.Unlock()
	if cleanup != nil {
		cleanup()
	}
}

// Fired reports whether Notify has already been called.
func (n *Notifier) Fired() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.fired
}
