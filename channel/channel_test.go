package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// newTestRuntime wires a coroutine.Runtime to a reactor.Loop the same
// way socket/tlspump's tests do: a scheduler coroutine repeatedly
// drives one reactor pass and yields, driven by WaitAll from main.
func newTestRuntime(t *testing.T) (*coroutine.Runtime, *reactor.Loop) {
	t.Helper()
	loop, err := reactor.New()
	require.NoError(t, err)

	rt := coroutine.New()
	sched := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		ctx := context.Background()
		for {
			_ = loop.EventWait(ctx)
			rt.Yield(nil)
		}
	})
	require.NoError(t, rt.RegisterScheduler(sched))

	return rt, loop
}

func TestBufferedFIFOOrder(t *testing.T) {
	rt := coroutine.New()
	ch := New[int](rt, 3)

	require.NoError(t, ch.Push(1, -1))
	require.NoError(t, ch.Push(2, -1))
	require.NoError(t, ch.Push(3, -1))
	require.True(t, ch.IsFull())

	v1, err := ch.Pop(-1)
	require.NoError(t, err)
	v2, err := ch.Pop(-1)
	require.NoError(t, err)
	v3, err := ch.Pop(-1)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, []int{v1, v2, v3})
	require.True(t, ch.IsEmpty())
}

func TestUnbufferedRendezvous(t *testing.T) {
	rt := coroutine.New()
	ch := New[string](rt, 0)

	var popped string
	var popErr error
	consumer := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		popped, popErr = ch.Pop(-1)
		return nil
	})
	_, err := rt.Resume(consumer, nil)
	require.NoError(t, err)
	require.True(t, ch.HasConsumers())

	require.NoError(t, ch.Push("hello", -1))
	require.NoError(t, popErr)
	require.Equal(t, "hello", popped)
	require.False(t, ch.HasConsumers())
}

// TestPipelineTenConsumers is §8's end-to-end scenario: an unbuffered
// channel, 10 consumers each popping once, main pushing 0..9 — every
// consumer must observe a distinct value.
func TestPipelineTenConsumers(t *testing.T) {
	rt := coroutine.New()
	ch := New[int](rt, 0)

	const n = 10
	results := make([]int, n)
	for i := 0; i < n; i++ {
		idx := i
		co := rt.Create(func(co *coroutine.Coroutine, arg any) any {
			v, err := ch.Pop(-1)
			require.NoError(t, err)
			results[idx] = v
			return nil
		})
		_, err := rt.Resume(co, nil)
		require.NoError(t, err)
	}
	require.True(t, ch.HasConsumers())

	for v := 0; v < n; v++ {
		require.NoError(t, ch.Push(v, -1))
	}

	seen := make(map[int]bool, n)
	for _, v := range results {
		require.False(t, seen[v], "value %d observed by more than one consumer", v)
		seen[v] = true
	}
	require.Len(t, seen, n)
}

// TestPushCanceledByExternalResume exercises §5's cancellation rule: a
// blocked producer resumed by a coroutine other than its own channel
// machinery (bypassing push/pop/close entirely) must observe
// ECANCELED, never a spurious success.
func TestPushCanceledByExternalResume(t *testing.T) {
	rt := coroutine.New()
	ch := New[int](rt, 1)
	require.NoError(t, ch.Push(1, -1))

	var pushErr error
	blocked := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		pushErr = ch.Push(2, -1)
		return nil
	})
	_, err := rt.Resume(blocked, nil)
	require.NoError(t, err)
	require.True(t, ch.HasProducers())

	_, err = rt.Resume(blocked, nil)
	require.NoError(t, err)
	require.Error(t, pushErr)
	require.True(t, catcode.Is(pushErr, catcode.ECANCELED))
}

func TestCloseWakesWaitersWithECLOSED(t *testing.T) {
	rt := coroutine.New()
	ch := New[int](rt, 0)

	var popErr error
	consumer := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		_, popErr = ch.Pop(-1)
		return nil
	})
	_, err := rt.Resume(consumer, nil)
	require.NoError(t, err)

	ch.Close()
	require.Error(t, popErr)
	require.True(t, catcode.Is(popErr, catcode.ECLOSED))

	_, err = ch.Pop(-1)
	require.True(t, catcode.Is(err, catcode.ECLOSED))
}

func TestCloseWithReuseStaysOpen(t *testing.T) {
	rt := coroutine.New()
	ch := New[int](rt, 1, WithReuse())
	require.NoError(t, ch.Push(1, -1))

	ch.Close()
	require.False(t, ch.IsClosed())

	require.NoError(t, ch.Push(2, -1))
	v, err := ch.Pop(-1)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestCloseDrainsStorageThroughDestructor(t *testing.T) {
	rt := coroutine.New()
	var drained []int
	ch := New[int](rt, 4, WithDestructor(func(v int) { drained = append(drained, v) }))
	require.NoError(t, ch.Push(10, -1))
	require.NoError(t, ch.Push(20, -1))

	ch.Close()
	require.Equal(t, []int{10, 20}, drained)
}

func TestPushTimeout(t *testing.T) {
	rt, loop := newTestRuntime(t)
	ch := New[int](rt, 1, WithLoop(loop))
	require.NoError(t, ch.Push(1, -1))
	require.NoError(t, rt.WaitAll()) // nothing active yet; just to confirm scheduler is wired

	var pushErr error
	blocked := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		pushErr = ch.Push(2, 10*time.Millisecond)
		return nil
	})

	_, err := rt.Resume(blocked, nil)
	require.NoError(t, err)

	require.NoError(t, rt.WaitAll())
	require.Error(t, pushErr)
	require.True(t, catcode.Is(pushErr, catcode.ETIMEDOUT))
}

func TestSelectPopFromReadyChannel(t *testing.T) {
	rt := coroutine.New()
	a := New[int](rt, 1)
	b := New[int](rt, 1)
	require.NoError(t, b.Push(7, -1))

	res, err := Select(rt, -1, PopRequest(a), PopRequest(b))
	require.NoError(t, err)
	require.Equal(t, 1, res.Index)
	require.Equal(t, 7, res.Value)
}

func TestSelectWaitsThenFiresOnWhicheverChannelPushes(t *testing.T) {
	rt := coroutine.New()
	a := New[int](rt, 0)
	b := New[int](rt, 0)

	var res Result
	var selErr error
	waiter := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		res, selErr = Select(rt, -1, PopRequest(a), PopRequest(b))
		return nil
	})
	_, err := rt.Resume(waiter, nil)
	require.NoError(t, err)

	require.NoError(t, b.Push(99, -1))
	require.NoError(t, selErr)
	require.Equal(t, 1, res.Index)
	require.Equal(t, 99, res.Value)
	require.False(t, a.HasConsumers())
}

func TestWaitGroupAddDoneWait(t *testing.T) {
	rt := coroutine.New()
	wg := NewWaitGroup(rt)
	require.NoError(t, wg.Add(2))

	var waitErr error
	waiter := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		waitErr = wg.Wait(-1)
		return nil
	})
	_, err := rt.Resume(waiter, nil)
	require.NoError(t, err)

	require.NoError(t, wg.Done())
	require.Nil(t, waitErr) // still waiting on the second Done; goroutine not resumed yet
	require.NoError(t, wg.Done())
	require.NoError(t, waitErr)
}

func TestWaitGroupAddWhileWaitingIsMisuse(t *testing.T) {
	rt := coroutine.New()
	wg := NewWaitGroup(rt)
	require.NoError(t, wg.Add(1))

	waiter := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		_ = wg.Wait(-1)
		return nil
	})
	_, err := rt.Resume(waiter, nil)
	require.NoError(t, err)

	err = wg.Add(1)
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

func TestNotifierNotifyThenWait(t *testing.T) {
	rt, loop := newTestRuntime(t)
	n := NewNotifier(rt, loop)

	var waitErr error
	waiter := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		waitErr = n.Wait(-1)
		return nil
	})
	n.Notify()
	_, err := rt.Resume(waiter, nil)
	require.NoError(t, err)
	require.NoError(t, rt.WaitAll())
	require.NoError(t, waitErr)
}

func TestNotifierWaitThenNotify(t *testing.T) {
	rt, loop := newTestRuntime(t)
	n := NewNotifier(rt, loop)

	var waitErr error
	waiter := rt.Create(func(co *coroutine.Coroutine, arg any) any {
		waitErr = n.Wait(-1)
		return nil
	})
	_, err := rt.Resume(waiter, nil)
	require.NoError(t, err)

	n.Notify()
	require.NoError(t, rt.WaitAll())
	require.NoError(t, waitErr)
}
