package reactor

import (
	"context"
	"errors"
	"time"
)

// ErrAdapterCanceled is returned by every §4.2 adapter when the waiting
// coroutine was resumed by a third party before the operation completed.
var ErrAdapterCanceled = errors.New("reactor: operation canceled")

// ErrAdapterTimedOut is returned by every §4.2 adapter when a positive
// timeout elapsed before the operation completed.
var ErrAdapterTimedOut = errors.New("reactor: operation timed out")

// Sleep registers a one-shot timer op-handle and returns it along with a
// cancel function. This is the basic building block §4.2 describes for
// every adapter: allocate a context (the opHandle), register with the
// reactor (ScheduleTimer), and let the coroutine package yield on the
// handle until Complete or Cancel fires.
//
// timeout < 0 means "forever" — Sleep returns a handle that never fires
// on its own; the caller is responsible for cancellation.
// timeout == 0 means "try now" — the handle is completed in the next tick
// without actually sleeping, matching the "zero timeout" policy of §4.2.
func (l *Loop) Sleep(timeout time.Duration, resume func(err error)) (handleID uint64, handle *opHandle, cancel func()) {
	handleID, handle = l.registry.NewOpHandle(resume)

	if timeout < 0 {
		return handleID, handle, func() { handle.Cancel(ErrAdapterCanceled) }
	}

	delay := timeout
	if delay < 0 {
		delay = 0
	}

	_ = l.ScheduleTimer(delay, func() {
		handle.Complete(nil)
	})

	return handleID, handle, func() { handle.Cancel(ErrAdapterCanceled) }
}

// EventWait runs one pass of the reactor: due timers, queued tasks and
// microtasks, then a poll of registered file descriptors. It returns
// ctx's error without running a pass if the context is already done.
// When Run is not driving the loop, the descriptor poll does not block,
// so EventWait returns after the pass whether or not any pending
// operation completed. It is the primitive `wait_all` is built from:
// resuming the scheduler coroutine and letting it call EventWait *is*
// one reactor pass.
func (l *Loop) EventWait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	l.tick()
	// tick's own poll step only runs under Run; without it, poll the
	// registered descriptors here so readiness callbacks still fire.
	if l.state.Load() == StateAwake && l.userIOFDCount.Load() > 0 {
		if _, err := l.poller.PollIO(0); err != nil {
			return err
		}
	}
	return nil
}

// EventDefer schedules cb to run on the next tick, after the current
// task's callbacks have all returned. Used for re-entrancy-safe cleanup,
// matching §4.2's `event_defer`.
func (l *Loop) EventDefer(cb func()) error {
	return l.SubmitInternal(Task{Runnable: cb})
}

// shutdownTask is one callback registered via
// RegisterRuntimeShutdownTask.
type shutdownTask struct {
	cb func()
}

// RegisterRuntimeShutdownTask registers cb to run exactly once before
// the loop stops, matching §4.2's `event_register_runtime_shutdown_task`.
func (l *Loop) RegisterRuntimeShutdownTask(cb func()) {
	l.shutdownTasksMu.Lock()
	l.shutdownTasks = append(l.shutdownTasks, shutdownTask{cb: cb})
	l.shutdownTasksMu.Unlock()
}

// runShutdownTasks invokes every registered shutdown task, in
// registration order, swallowing panics so one bad callback cannot
// prevent the others from running.
func (l *Loop) runShutdownTasks() {
	l.shutdownTasksMu.Lock()
	tasks := l.shutdownTasks
	l.shutdownTasks = nil
	l.shutdownTasksMu.Unlock()

	for _, t := range tasks {
		l.safeExecuteFn(t.cb)
	}
}
