// Package coroutine implements the stackful-coroutine core of §4.1: a
// precise state machine plus a jump protocol that lets higher-level
// blocking primitives (reactor adapters, sockets, channels) yield the
// calling coroutine and be resumed when their operation completes.
//
// Go has no user-space stack switch, so each Coroutine is backed by its
// own goroutine parked on a pair of unbuffered channels — the same
// resume/yield rendezvous used by
// _examples/other_examples/5758fcf4_tcard-coro__coro.go.go, generalized
// from a single alive/dead flag into the full state machine, linkage,
// and round bookkeeping §4.1 specifies.
package coroutine

import (
	"fmt"
	"sync"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/reactor"
)

// Func is a coroutine's entry function. arg is the datum passed by
// whichever Resume call first started it; the return value becomes the
// datum delivered to the coroutine that observes its Finished
// transition.
type Func func(co *Coroutine, arg any) any

// Coroutine is a suspendable computation with its own goroutine-backed
// stack (§3 "Coroutine").
type Coroutine struct {
	mu sync.Mutex

	id        uint64
	state     State
	opcodes   Opcode
	round     uint64
	startTime float64 // reactor.Performance.Now(), ms since runtime origin

	manualClose bool

	previous *Coroutine // who resumed us, cleared on yield-back
	from     *Coroutine // who last yielded to us
	waiter   *Coroutine // set by WaitFor: only this coroutine may Resume us

	fn  Func
	rt  *Runtime
	err error // set if the entry function panicked

	resumeCh chan any // runtime -> coroutine goroutine: deliver resume datum
	yieldCh  chan any // coroutine goroutine -> runtime: deliver yield/finish datum

	started bool
}

// ID returns the coroutine's runtime-unique, monotonically assigned
// identifier.
func (c *Coroutine) ID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// State returns the coroutine's current lifecycle state.
func (c *Coroutine) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Round returns the global round this coroutine was last resumed at.
func (c *Coroutine) Round() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.round
}

// StartTime returns the coroutine's creation timestamp, in milliseconds
// from the owning Runtime's Performance origin.
func (c *Coroutine) StartTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startTime
}

// Previous returns the coroutine that most recently resumed this one,
// or nil.
func (c *Coroutine) Previous() *Coroutine {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.previous
}

// SetManualClose controls whether a Finished coroutine auto-closes
// (releases its goroutine/slot) as soon as its resumer observes the
// finish, per jump-protocol step 6. Must be called before the
// coroutine finishes.
func (c *Coroutine) SetManualClose(manual bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.manualClose = manual
}

// Err returns the recovered panic value (wrapped), if the entry
// function panicked instead of returning.
func (c *Coroutine) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// markStarted reports whether this is the coroutine's first resume (in
// which case its backing goroutine still needs to be spawned), flipping
// started to true as a side effect.
func (c *Coroutine) markStarted() (wasStarted bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	wasStarted = c.started
	c.started = true
	return wasStarted
}

// manualCloseFlag reports whether the coroutine was configured with
// SetManualClose(true).
func (c *Coroutine) manualCloseFlag() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.manualClose
}

func (c *Coroutine) String() string {
	return fmt.Sprintf("coroutine#%d(%s)", c.ID(), c.State())
}

// precheckResume validates a Resume(target) call per §4.1's five
// preconditions. Caller must hold no lock; c.mu is taken internally.
// Runtime.Resume releases rt.mu before calling this and takes it again
// in transferControl.
func (c *Coroutine) precheckResume(by *Coroutine) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case Init, Finished, Dead:
		return catcode.New(catcode.ESRCH, fmt.Sprintf("coroutine %d is not resumable (state %s)", c.id, c.state))
	case Running:
		return catcode.New(catcode.EBUSY, fmt.Sprintf("coroutine %d is already running", c.id))
	case Locked:
		return catcode.New(catcode.ELOCKED, fmt.Sprintf("coroutine %d is locked", c.id))
	}
	if c.previous != nil {
		return catcode.New(catcode.EBUSY, fmt.Sprintf("coroutine %d is already in progress", c.id))
	}
	if c.opcodes.Has(OpWait) && c.waiter != by {
		return catcode.New(catcode.EAGAIN, fmt.Sprintf("coroutine %d is waiting on a specific resumer", c.id))
	}
	return nil
}
