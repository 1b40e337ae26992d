package channel

import (
	"sync"
	"time"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

type opKind int

const (
	opPush opKind = iota
	opPop
)

// Request is one leg of a Select call: a (channel, PUSH|POP, data)
// tuple per §4.6's select(requests[], timeout). Build one with
// PushRequest or PopRequest — the type parameter is captured at that
// point so Select itself can stay non-generic and operate on a slice
// of heterogeneous channels.
type Request struct {
	raw  *rawChannel
	op   opKind
	data any
}

// PushRequest builds a Request offering data for Push on ch.
func PushRequest[T any](ch *Channel[T], data T) Request {
	return Request{raw: ch.raw, op: opPush, data: data}
}

// PopRequest builds a Request attempting a Pop from ch.
func PopRequest[T any](ch *Channel[T]) Request {
	return Request{raw: ch.raw, op: opPop}
}

// Result reports which Request fired. Value is only meaningful for a
// POP request (the popped item, as any — the caller knows the
// concrete type from which Channel[T] it built that Request against).
type Result struct {
	Index int
	Value any
}

// Select implements §4.6's select(requests[], timeout): await the
// first of N operations across possibly-distinct channels to
// complete. Tries every request non-blockingly first (so an
// already-ready request never pays for a suspend), then — if none are
// ready — parks the calling coroutine on every request's wait list at
// once; whichever channel services one first wakes it, and the
// cleanup removes it from every other list before returning so no
// stale registration lingers. timeout < 0 waits indefinitely; a
// timeout requires at least one of the requests' channels to have
// been built with WithLoop.
func Select(rt *coroutine.Runtime, timeout time.Duration, requests ...Request) (Result, error) {
	if len(requests) == 0 {
		return Result{}, catcode.New(catcode.EINVAL, "select requires at least one request")
	}

	for i, r := range requests {
		switch r.op {
		case opPush:
			if r.raw.tryPush(r.data) {
				return Result{Index: i}, nil
			}
		case opPop:
			if v, ok := r.raw.tryPop(); ok {
				return Result{Index: i, Value: v}, nil
			}
		}
	}

	caller := rt.Current()
	waiters := make([]*waiter, len(requests))
	for i, r := range requests {
		w := &waiter{co: caller}
		if r.op == opPush {
			w.value = r.data
		}
		waiters[i] = w
		if r.op == opPush {
			r.raw.addPushWaiter(w)
		} else {
			r.raw.addPopWaiter(w)
		}
	}

	var cancelTimer func()
	if timeout >= 0 {
		var err error
		cancelTimer, err = scheduleSelectTimeout(rt, requests, waiters, timeout)
		if err != nil {
			deregisterAll(requests, waiters)
			return Result{}, err
		}
	}

	result := rt.Yield(nil)

	if cancelTimer != nil {
		cancelTimer()
	}
	deregisterAll(requests, waiters)

	sig, ok := result.(signal)
	if !ok {
		return Result{}, catcode.New(catcode.ECANCELED, "select canceled by external resume")
	}
	idx := indexOfWaiter(waiters, sig.from)
	if idx < 0 {
		return Result{}, catcode.New(catcode.EINVAL, "select could not identify which request fired")
	}
	if sig.err != nil {
		return Result{Index: idx}, sig.err
	}
	if requests[idx].op == opPush {
		return Result{Index: idx}, nil
	}
	return Result{Index: idx, Value: sig.value}, nil
}

func indexOfWaiter(waiters []*waiter, w *waiter) int {
	for i, candidate := range waiters {
		if candidate == w {
			return i
		}
	}
	return -1
}

func deregisterAll(requests []Request, waiters []*waiter) {
	for i, r := range requests {
		if r.op == opPush {
			r.raw.removePushWaiter(waiters[i])
		} else {
			r.raw.removePopWaiter(waiters[i])
		}
	}
}

// scheduleSelectTimeout arms one timer covering every leg of a Select
// call, borrowing the reactor.Loop from the first request that has
// one. Cooperative single-threaded scheduling means at most one of
// {timer, a servicing push/pop} can ever actually fire — the take on
// requests[0] is just the arbitrary single source of truth for
// "has anything happened yet", since a real service would have
// already removed the waiter from every request, requests[0]
// included.
func scheduleSelectTimeout(rt *coroutine.Runtime, requests []Request, waiters []*waiter, timeout time.Duration) (func(), error) {
	var loop *reactor.Loop
	for _, r := range requests {
		if r.raw.loop != nil {
			loop = r.raw.loop
			break
		}
	}
	if loop == nil {
		return nil, catcode.New(catcode.EMISUSE, "select with a timeout requires a channel built with WithLoop")
	}

	var once sync.Once
	_, _, cancel := loop.Sleep(timeout, func(err error) {
		if err != nil {
			return
		}
		once.Do(func() {
			if !requests[0].takeWaiterFor(waiters[0]) {
				return
			}
			for i := 1; i < len(requests); i++ {
				requests[i].takeWaiterFor(waiters[i])
			}
			_, _ = rt.Resume(waiters[0].co, signal{
				err:  catcode.New(catcode.ETIMEDOUT, "select timed out"),
				from: waiters[0],
			})
		})
	})
	return cancel, nil
}

// takeWaiterFor removes w from the wait list this Request enqueued it
// on, reporting whether it was still present.
func (r Request) takeWaiterFor(w *waiter) bool {
	if r.op == opPush {
		return r.raw.takePushWaiter(w)
	}
	return r.raw.takePopWaiter(w)
}
