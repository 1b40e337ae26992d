package coroutine

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/catlog"
	"github.com/libcat/cat/reactor"
)

// Runtime holds the per-logical-runtime globals of §3: the main
// coroutine, an optional scheduler coroutine, the currently-running
// coroutine, and the active-coroutine tally used by WaitAll/dead-lock
// detection.
type Runtime struct {
	mu sync.Mutex

	main      *Coroutine
	scheduler *Coroutine
	current   *Coroutine

	count  int32 // active (non-scheduler, non-Locked) coroutines
	nextID uint64
	round  uint64

	perf *reactor.Performance
	log  catlog.Logger
}

// New creates a Runtime whose main coroutine is identified with the
// calling goroutine itself: Go has no way to "enter" a coroutine for
// the host flow, so Runtime.main's channel pair is blocked on directly
// by whichever call stack constructed the Runtime, the first time it
// calls Yield — it is otherwise indistinguishable from any other
// Coroutine to the jump protocol.
func New(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		perf: reactor.NewPerformance(),
		log:  catlog.Default(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.main = &Coroutine{
		id:       rt.allocID(),
		state:    Running,
		rt:       rt,
		resumeCh: make(chan any),
		yieldCh:  make(chan any),
		started:  true, // no backing goroutine to spawn; the caller *is* it
	}
	rt.current = rt.main
	return rt
}

// RuntimeOption configures a Runtime at construction, mirroring
// reactor's LoopOption functional-options pattern (see reactor/options.go).
type RuntimeOption func(*Runtime)

// WithLogger overrides the Runtime's structured logger (default:
// catlog.Default()).
func WithLogger(log catlog.Logger) RuntimeOption {
	return func(rt *Runtime) { rt.log = log }
}

func (rt *Runtime) allocID() uint64 {
	rt.nextID++
	return rt.nextID
}

// Main returns the runtime's main coroutine.
func (rt *Runtime) Main() *Coroutine {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.main
}

// Current returns the coroutine currently RUNNING on this runtime.
func (rt *Runtime) Current() *Coroutine {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.current
}

// Count returns the number of active coroutines: created, not yet
// Finished/Dead, and not Locked or the scheduler. Used by WaitAll to
// decide whether the scheduler still has work to drive.
func (rt *Runtime) Count() int32 {
	return atomic.LoadInt32(&rt.count)
}

// Round returns the jump-protocol round counter, bumped once per
// transferControl — every Resume/Yield handoff. A watchdog samples this
// alongside Current/Scheduler to detect a coroutine stuck RUNNING
// across several sampling intervals with no round advancing.
func (rt *Runtime) Round() uint64 {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.round
}

// Create allocates a new coroutine in state Ready, bound to fn but not
// yet started — the backing goroutine is spawned lazily on first
// Resume, matching the teacher example's "doesn't start right away"
// semantics.
func (rt *Runtime) Create(fn Func) *Coroutine {
	rt.mu.Lock()
	id := rt.allocID()
	startTime := rt.perf.Now()
	rt.mu.Unlock()

	co := &Coroutine{
		id:        id,
		state:     Ready,
		startTime: startTime,
		fn:        fn,
		rt:        rt,
		resumeCh:  make(chan any),
		yieldCh:   make(chan any),
	}

	atomic.AddInt32(&rt.count, 1)
	return co
}

// RegisterScheduler designates co as the runtime's scheduler coroutine
// (§4.1 "Scheduler"). At most one may be registered; registering
// decrements the active count since the scheduler is not user-visible
// work, and unlocks WaitAll's "resume the scheduler whenever all user
// coroutines are parked" behavior.
func (rt *Runtime) RegisterScheduler(co *Coroutine) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.scheduler != nil {
		return catcode.New(catcode.EMISUSE, "a scheduler coroutine is already registered")
	}
	rt.scheduler = co
	atomic.AddInt32(&rt.count, -1)
	return nil
}

// Scheduler returns the runtime's registered scheduler coroutine, or
// nil.
func (rt *Runtime) Scheduler() *Coroutine {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.scheduler
}

// Resume transfers control to target, passing datum, and blocks the
// calling coroutine until target yields or finishes. The physical
// rendezvous happens on target's own channel pair: the caller — main
// or any other coroutine's backing goroutine — sends datum into
// target.resumeCh and waits on target.yieldCh, exactly mirroring what
// a Yield call from inside target will later do to hand control back
// (see Yield).
func (rt *Runtime) Resume(target *Coroutine, datum any) (any, error) {
	rt.mu.Lock()
	caller := rt.current
	if target == rt.scheduler && target != caller {
		rt.mu.Unlock()
		return nil, catcode.New(catcode.EMISUSE, "cannot directly resume the scheduler coroutine")
	}
	rt.mu.Unlock()

	if err := target.precheckResume(caller); err != nil {
		return nil, err
	}

	rt.transferControl(caller, target)

	started := target.markStarted()
	if !started {
		rt.spawn(target)
	}

	// Step 5: the context swap, emulated by a rendezvous on target's
	// channel pair.
	target.resumeCh <- datum
	result := <-target.yieldCh

	finished := target.State() == Finished
	manualClose := target.manualCloseFlag()

	// When target finishes without an explicit Yield, nothing else
	// restores rt.current to caller (an explicit Yield does this itself,
	// via its own transferControl call, before ever reaching here) — do
	// it here so control is never left pointing at a dead coroutine.
	if finished {
		rt.mu.Lock()
		rt.current = caller
		rt.mu.Unlock()
	}

	// Step 6: auto-close on finish unless MANUAL_CLOSE.
	if finished && !manualClose {
		rt.closeCoroutine(target)
	}

	if resErr, ok := result.(error); ok && finished {
		return nil, resErr
	}
	return result, nil
}

// Yield suspends the calling coroutine and transfers control back to
// whoever resumed it (Current().Previous()), delivering datum. The
// physical rendezvous happens on the CALLER's own channel pair: the
// caller sends datum into its own yieldCh (unblocking whichever Resume
// call is waiting on it) and then blocks receiving from its own
// resumeCh until resumed again.
//
// If the coroutine has no previous (nobody resumed it), this is the
// dead-lock case of §4.1: a message is logged and the process panics.
func (rt *Runtime) Yield(datum any) any {
	rt.mu.Lock()
	caller := rt.current
	target := caller.Previous()
	rt.mu.Unlock()

	if target == nil {
		rt.log.Error("coroutine deadlock: %s has no previous to yield to", caller)
		panic(fmt.Sprintf("coroutine: deadlock — %s yielded with no previous coroutine to resume", caller))
	}

	rt.transferControl(caller, target)

	caller.yieldCh <- datum
	return <-caller.resumeCh
}

// transferControl performs the linkage/state/round bookkeeping shared
// by both jump directions (§4.1 jump-protocol steps 2-4): update
// previous/from linkage, swap the runtime's current pointer, mark the
// outgoing coroutine Waiting (unless it finished), mark the incoming
// coroutine Running with freshly reset opcodes and a bumped round.
func (rt *Runtime) transferControl(from, to *Coroutine) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	to.mu.Lock()
	yieldBack := from != nil && from.previous == to
	if yieldBack {
		from.previous = nil
	} else {
		to.previous = from
	}
	to.from = from
	to.mu.Unlock()

	if from != nil {
		from.mu.Lock()
		if from.state == Running {
			from.state = Waiting
		}
		from.mu.Unlock()
	}

	rt.round++

	to.mu.Lock()
	to.state = Running
	to.opcodes = 0
	to.waiter = nil
	to.round = rt.round
	to.mu.Unlock()

	rt.current = to
}

// spawn starts the goroutine backing a freshly-created coroutine. It
// blocks immediately on resumeCh, mirroring the teacher example's
// waitResume()-before-entry pattern, then runs fn, then delivers its
// result on yieldCh exactly once before exiting.
func (rt *Runtime) spawn(co *Coroutine) {
	go func() {
		arg := <-co.resumeCh

		result := func() (result any) {
			defer func() {
				if r := recover(); r != nil {
					co.mu.Lock()
					co.err = fmt.Errorf("coroutine panic: %v", r)
					co.mu.Unlock()
					result = co.err
				}
			}()
			return co.fn(co, arg)
		}()

		co.mu.Lock()
		co.state = Finished
		co.mu.Unlock()
		atomic.AddInt32(&rt.count, -1)

		co.yieldCh <- result
	}()
}

// closeCoroutine releases a Finished coroutine's resources, moving it
// to Dead.
func (rt *Runtime) closeCoroutine(co *Coroutine) {
	co.mu.Lock()
	defer co.mu.Unlock()
	co.state = Dead
}

// Close explicitly releases a Finished coroutine that was created with
// SetManualClose(true).
func (rt *Runtime) Close(co *Coroutine) error {
	co.mu.Lock()
	if co.state != Finished {
		co.mu.Unlock()
		return catcode.New(catcode.EMISUSE, fmt.Sprintf("coroutine %d is not finished", co.id))
	}
	co.mu.Unlock()
	rt.closeCoroutine(co)
	return nil
}

// Lock parks the calling coroutine: sets its state to Locked,
// decrements the active tally, and yields. The datum passed to Yield
// is whatever Unlock later supplies.
func (rt *Runtime) Lock() any {
	rt.mu.Lock()
	caller := rt.current
	rt.mu.Unlock()

	caller.mu.Lock()
	caller.state = Locked
	caller.mu.Unlock()
	atomic.AddInt32(&rt.count, -1)

	return rt.Yield(nil)
}

// Unlock resumes a Locked coroutine, validating its state first.
func (rt *Runtime) Unlock(target *Coroutine, datum any) (any, error) {
	if target.State() != Locked {
		return nil, catcode.New(catcode.EMISUSE, fmt.Sprintf("coroutine %d is not locked", target.ID()))
	}
	atomic.AddInt32(&rt.count, 1)
	target.mu.Lock()
	target.state = Waiting
	target.mu.Unlock()
	return rt.Resume(target, datum)
}

// WaitFor sets opcode WAIT on the calling coroutine and records who,
// such that only who's Resume call will pass this coroutine's
// precondition check (§4.1 "Waiting on another coroutine"), then
// yields.
func (rt *Runtime) WaitFor(who *Coroutine) any {
	rt.mu.Lock()
	caller := rt.current
	rt.mu.Unlock()

	caller.mu.Lock()
	caller.opcodes |= OpWait
	caller.waiter = who
	caller.mu.Unlock()

	return rt.Yield(nil)
}

// WaitAll resumes the scheduler coroutine repeatedly until Count drops
// to zero, implementing "the main flow may wait_all by resuming the
// scheduler whenever all user coroutines are parked" (§4.1). Returns
// EMISUSE if no scheduler is registered.
func (rt *Runtime) WaitAll() error {
	rt.mu.Lock()
	sched := rt.scheduler
	rt.mu.Unlock()
	if sched == nil {
		return catcode.New(catcode.EMISUSE, "no scheduler coroutine registered")
	}
	for rt.Count() > 0 {
		if s := sched.State(); s == Finished || s == Dead {
			return catcode.New(catcode.ESRCH, "scheduler coroutine exited while coroutines remained active")
		}
		if _, err := rt.resumeScheduler(nil); err != nil {
			return err
		}
	}
	return nil
}

// resumeScheduler is the one path allowed to target the scheduler
// coroutine directly, bypassing the public EMISUSE guard in Resume.
func (rt *Runtime) resumeScheduler(datum any) (any, error) {
	rt.mu.Lock()
	caller := rt.current
	sched := rt.scheduler
	rt.mu.Unlock()

	if err := sched.precheckResume(caller); err != nil {
		return nil, err
	}

	rt.transferControl(caller, sched)

	started := sched.markStarted()
	if !started {
		rt.spawn(sched)
	}

	sched.resumeCh <- datum
	result := <-sched.yieldCh

	finished := sched.State() == Finished
	if finished {
		rt.mu.Lock()
		rt.current = caller
		rt.mu.Unlock()
	}
	if finished && !sched.manualCloseFlag() {
		rt.closeCoroutine(sched)
	}
	if resErr, ok := result.(error); ok && finished {
		return nil, resErr
	}
	return result, nil
}
