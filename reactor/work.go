package reactor

import (
	"context"
	"runtime"
)

// WorkKind hints how a dispatched function should be routed/pooled, per
// §4.2's `work(kind, fn, timeout)`.
type WorkKind int

const (
	// WorkCPU is for CPU-bound work, bounded to a GOMAXPROCS-sized pool
	// so it can't oversubscribe the machine's cores.
	WorkCPU WorkKind = iota
	// WorkFastIO is for I/O expected to complete quickly (e.g. local
	// disk, DNS against a responsive resolver — see Resolve), bounded
	// to a larger pool than WorkCPU since it spends most of its time
	// blocked rather than spinning a core.
	WorkFastIO
	// WorkSlowIO is for I/O that may block for a long time (e.g. flock,
	// network filesystems) — bounded to a pool larger again than
	// WorkFastIO's, so a handful of stuck calls cannot starve fast I/O
	// or CPU work of their own, much smaller, slots. This is the
	// pool-sizing answer to §9's Windows flock/threadpool deadlock
	// note: size WorkSlowIO generously rather than sharing one pool.
	WorkSlowIO
)

// workPoolSize returns the slot count of the bounded pool backing kind.
func workPoolSize(kind WorkKind) int {
	cpus := runtime.GOMAXPROCS(0)
	switch kind {
	case WorkCPU:
		return cpus
	case WorkFastIO:
		return cpus * 4
	case WorkSlowIO:
		return cpus * 32
	default:
		return cpus
	}
}

// workSem returns the counting semaphore (a buffered channel used as
// one) gating concurrent in-flight calls of the given kind, creating
// it lazily on first use.
func (l *Loop) workSem(kind WorkKind) chan struct{} {
	l.workSemMu.Lock()
	defer l.workSemMu.Unlock()
	if l.workSems == nil {
		l.workSems = make(map[WorkKind]chan struct{})
	}
	sem, ok := l.workSems[kind]
	if !ok {
		sem = make(chan struct{}, workPoolSize(kind))
		l.workSems[kind] = sem
	}
	return sem
}

// workResult is the outcome of a dispatched function.
type workResult struct {
	value any
	err   error
}

// Work submits fn to the kind-routed pool (see WorkKind) and resumes
// the waiting coroutine via the returned op-handle when fn returns, or
// immediately if timeout elapses or the handle is canceled first —
// including while fn is still queued waiting for a free pool slot. The
// worker goroutine is not preempted on cancel/timeout — its result is
// simply discarded once it eventually runs, matching §4.2's documented
// behavior.
func (l *Loop) Work(ctx context.Context, kind WorkKind, fn func() (any, error), resume func(value any, err error)) (handleID uint64, handle *opHandle, cancel func()) {
	handleID, handle = l.registry.NewOpHandle(func(err error) {
		// err is nil on normal completion (see Complete below, which
		// always passes nil — the real result travels via resultCh
		// captured in the closure); non-nil err means Cancel fired.
	})

	resultCh := make(chan workResult, 1)
	sem := l.workSem(kind)

	l.workWg.Add(1)
	go func() {
		defer l.workWg.Done()

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-sem }()

		v, err := fn()
		resultCh <- workResult{value: v, err: err}
	}()

	go func() {
		select {
		case res := <-resultCh:
			_ = l.SubmitInternal(Task{Runnable: func() {
				if handle.State() != Pending {
					return
				}
				handle.Complete(res.err)
				resume(res.value, res.err)
			}})
		case <-ctx.Done():
			_ = l.SubmitInternal(Task{Runnable: func() {
				if handle.State() != Pending {
					return
				}
				handle.Cancel(ErrAdapterCanceled)
				resume(nil, ErrAdapterTimedOut)
			}})
		}
	}()

	return handleID, handle, func() { handle.Cancel(ErrAdapterCanceled) }
}
