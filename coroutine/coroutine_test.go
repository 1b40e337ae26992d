package coroutine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/catcode"
)

func TestResumeYieldRoundTrip(t *testing.T) {
	rt := New()

	var seenArg any
	co := rt.Create(func(co *Coroutine, arg any) any {
		seenArg = arg
		back := rt.Yield("from coroutine")
		return back
	})

	require.Equal(t, Ready, co.State())

	out, err := rt.Resume(co, "hello")
	require.NoError(t, err)
	require.Equal(t, "from coroutine", out)
	require.Equal(t, "hello", seenArg)
	require.Equal(t, Waiting, co.State())

	out, err = rt.Resume(co, "goodbye")
	require.NoError(t, err)
	require.Equal(t, "goodbye", out)
	require.Equal(t, Dead, co.State())
}

func TestResumeRoundsStrictlyIncrease(t *testing.T) {
	rt := New()
	co := rt.Create(func(co *Coroutine, arg any) any {
		rt.Yield(nil)
		rt.Yield(nil)
		return nil
	})

	_, err := rt.Resume(co, nil)
	require.NoError(t, err)
	r1 := co.Round()

	_, err = rt.Resume(co, nil)
	require.NoError(t, err)
	r2 := co.Round()
	require.Greater(t, r2, r1)
}

func TestResumeFinishedIsESRCH(t *testing.T) {
	rt := New()
	co := rt.Create(func(co *Coroutine, arg any) any { return nil })

	_, err := rt.Resume(co, nil)
	require.NoError(t, err)
	require.Equal(t, Dead, co.State())

	_, err = rt.Resume(co, nil)
	require.True(t, catcode.Is(err, catcode.ESRCH))
}

// TestResumeAlreadyInProgressIsEBUSY exercises precheckResume's "already
// running"/"already in progress" guards: while a Resume(inner, ...)
// call is blocked waiting for inner to yield or finish, a concurrent
// precheck against inner must be rejected with EBUSY rather than racing
// the jump protocol.
func TestResumeAlreadyInProgressIsEBUSY(t *testing.T) {
	rt := New()

	innerEntered := make(chan struct{})
	releaseInner := make(chan struct{})

	inner := rt.Create(func(co *Coroutine, arg any) any {
		close(innerEntered)
		<-releaseInner
		return nil
	})

	resumeDone := make(chan struct{})
	go func() {
		defer close(resumeDone)
		_, err := rt.Resume(inner, nil)
		require.NoError(t, err)
	}()

	<-innerEntered // inner is now Running, inner.previous == rt.Main()

	err := inner.precheckResume(rt.Main())
	require.True(t, catcode.Is(err, catcode.EBUSY))

	close(releaseInner)
	<-resumeDone

	require.Equal(t, Dead, inner.State())
}

func TestLockUnlock(t *testing.T) {
	rt := New()
	unblock := make(chan *Coroutine, 1)

	co := rt.Create(func(co *Coroutine, arg any) any {
		unblock <- co
		result := rt.Lock()
		return result
	})

	_, err := rt.Resume(co, nil)
	require.NoError(t, err)
	require.Equal(t, Locked, co.State())

	target := <-unblock
	require.Equal(t, co, target)

	out, err := rt.Unlock(co, "unlocked")
	require.NoError(t, err)
	require.Equal(t, "unlocked", out)
}

func TestUnlockNotLockedIsEMISUSE(t *testing.T) {
	rt := New()
	co := rt.Create(func(co *Coroutine, arg any) any { return nil })

	_, err := rt.Unlock(co, nil)
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

// TestWaitForOnlyResumableByWaiter drives a target coroutine into
// WaitFor(waiter), then shows main (an unauthorized resumer) is
// rejected with EAGAIN while waiter itself succeeds.
func TestWaitForOnlyResumableByWaiter(t *testing.T) {
	rt := New()

	var target *Coroutine
	waiterResumed := make(chan any, 1)
	waiter := rt.Create(func(co *Coroutine, arg any) any {
		out, err := rt.Resume(target, "from waiter")
		waiterResumed <- out
		return err
	})

	target = rt.Create(func(co *Coroutine, arg any) any {
		back := rt.WaitFor(waiter)
		return back
	})

	_, err := rt.Resume(target, nil)
	require.NoError(t, err)
	require.Equal(t, Waiting, target.State())

	_, err = rt.Resume(target, "from main")
	require.True(t, catcode.Is(err, catcode.EAGAIN))
	require.Equal(t, Waiting, target.State())

	out, err := rt.Resume(waiter, nil)
	require.NoError(t, err)
	require.Nil(t, out) // waiter's own Resume(target, ...) returned no error
	require.Equal(t, "from waiter", <-waiterResumed)
	require.Equal(t, Dead, target.State())
	require.Equal(t, Dead, waiter.State())
}

func TestWaitAllNoSchedulerIsEMISUSE(t *testing.T) {
	rt := New()
	err := rt.WaitAll()
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

func TestRegisterSchedulerTwiceIsEMISUSE(t *testing.T) {
	rt := New()
	sched := rt.Create(func(co *Coroutine, arg any) any { return nil })
	require.NoError(t, rt.RegisterScheduler(sched))

	other := rt.Create(func(co *Coroutine, arg any) any { return nil })
	err := rt.RegisterScheduler(other)
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

func TestManualClose(t *testing.T) {
	rt := New()
	co := rt.Create(func(co *Coroutine, arg any) any { return nil })
	co.SetManualClose(true)

	_, err := rt.Resume(co, nil)
	require.NoError(t, err)
	require.Equal(t, Finished, co.State())

	require.NoError(t, rt.Close(co))
	require.Equal(t, Dead, co.State())
}

// TestWaitAllDrivesScheduler exercises the scheduler-loop contract: a
// worker coroutine parks itself with Yield, main's WaitAll resumes the
// scheduler because Count is still non-zero, the scheduler resumes the
// worker to completion, and WaitAll returns once Count reaches zero.
func TestWaitAllDrivesScheduler(t *testing.T) {
	rt := New()

	var ran bool
	var worker *Coroutine
	sched := rt.Create(func(co *Coroutine, arg any) any {
		for {
			_, _ = rt.Resume(worker, nil)
			rt.Yield(nil)
		}
	})
	require.NoError(t, rt.RegisterScheduler(sched))

	worker = rt.Create(func(co *Coroutine, arg any) any {
		rt.Yield(nil)
		ran = true
		return nil
	})

	_, err := rt.Resume(worker, nil)
	require.NoError(t, err)
	require.False(t, ran)

	require.NoError(t, rt.WaitAll())
	require.True(t, ran)
}
