package reactor

import (
	"sync/atomic"
)

// LoopState is the reactor's run state, gating whether a coroutine
// resume may happen directly from a reactor adapter (fast path,
// StateRunning) or must fall back to a queued wakeup. The watchdog
// package distinguishes "reactor idle in poll" from "coroutine stuck
// running" by comparing coroutine.Runtime.Current against its own
// scheduler coroutine, not by reading this state directly — but the
// state machine is what makes that distinction meaningful at the
// reactor level.
//
// State Machine:
//
//	StateAwake (0) → StateRunning (3)      [Run()]
//	StateRunning (3) → StateSleeping (2)   [poll() via CAS]
//	StateRunning (3) → StateTerminating (4) [Shutdown()]
//	StateSleeping (2) → StateRunning (3)   [poll() wake via CAS]
//	StateSleeping (2) → StateTerminating (4) [Shutdown()]
//	StateTerminating (4) → StateTerminated (1) [shutdown complete]
//	StateTerminated (1) → (terminal)
//
// State Transition Rules:
//   - Use TryTransition() (CAS) for temporary states (Running, Sleeping)
//   - Use Store() for irreversible states (Terminated)
//   - Using Store(Running) or Store(Sleeping) is a BUG (breaks CAS logic)
type LoopState uint64

const (
	// StateAwake indicates the loop has been created but Run has not
	// yet been called; no reactor adapter may resume a coroutine yet.
	StateAwake LoopState = 0
	// StateTerminated indicates Shutdown has fully completed: every
	// coroutine still awaiting a reactor adapter has been resumed
	// (ECANCELED or the adapter's own error) and no further work will
	// be dispatched.
	StateTerminated LoopState = 1
	// StateSleeping indicates the loop is blocked in poll() waiting on
	// I/O readiness, a timer deadline, or a wakeup signal — idle, not
	// stuck.
	StateSleeping LoopState = 2
	// StateRunning indicates the loop is actively executing a tick:
	// draining queued tasks, firing timers, and resuming coroutines
	// whose awaited reactor operation completed.
	StateRunning LoopState = 3
	// StateTerminating indicates Shutdown has been requested but
	// in-flight reactor adapters haven't all unwound yet.
	StateTerminating LoopState = 4
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateSleeping:
		return "Sleeping"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// FastState is the loop's run-state machine: a single atomic word,
// cache-line padded so CAS traffic from Submit (called from any
// goroutine awaiting a reactor adapter) doesn't false-share with the
// loop goroutine's own reads during a tick.
type FastState struct { // betteralign:ignore
	_ [64]byte      // cache line padding (before value) //nolint:unused
	v atomic.Uint64 // state value
	_ [56]byte      // pad to complete cache line (64 - 8 = 56) //nolint:unused
}

// NewFastState creates a new state machine in the Awake state.
func NewFastState() *FastState {
	s := &FastState{}
	s.v.Store(uint64(StateAwake))
	return s
}

// Load returns the current state atomically.
func (s *FastState) Load() LoopState {
	return LoopState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition
// validation — reserved for the irreversible StateTerminated.
func (s *FastState) Store(state LoopState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically move from one state to
// another. Returns true if the transition succeeded.
func (s *FastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// TransitionAny attempts to transition from any of several valid
// source states to the target, trying each via CAS in turn.
func (s *FastState) TransitionAny(validFrom []LoopState, to LoopState) bool {
	for _, from := range validFrom {
		if s.v.CompareAndSwap(uint64(from), uint64(to)) {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the loop has fully shut down.
func (s *FastState) IsTerminal() bool {
	return s.Load() == StateTerminated
}

// IsRunning reports whether the loop is currently running or sleeping
// — Run has been called and Shutdown hasn't completed.
func (s *FastState) IsRunning() bool {
	state := s.Load()
	return state == StateRunning || state == StateSleeping
}

// CanAcceptWork reports whether the loop can still accept new tasks
// (Submit/SubmitInternal) or reactor adapter registrations.
func (s *FastState) CanAcceptWork() bool {
	state := s.Load()
	return state == StateAwake || state == StateRunning || state == StateSleeping
}
