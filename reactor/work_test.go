package reactor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// runTestLoop starts loop.Run in the background and returns a stop
// func that Shuts it down and waits for Run to return.
func runTestLoop(t *testing.T, loop *Loop) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	return func() {
		cancel()
		_ = loop.Shutdown(context.Background())
		<-done
	}
}

// TestWorkHonorsKindPoolSize exercises §4.2's kind-routed dispatch: it
// submits more concurrent WorkCPU calls than the GOMAXPROCS-sized pool
// has slots for, and asserts the pool never lets more than that many
// run at once.
func TestWorkHonorsKindPoolSize(t *testing.T) {
	loop, err := New()
	require.NoError(t, err)
	stop := runTestLoop(t, loop)
	defer stop()

	poolSize := workPoolSize(WorkCPU)
	overSubscribe := poolSize + 3

	var running, maxObserved atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(overSubscribe)

	for i := 0; i < overSubscribe; i++ {
		require.NoError(t, loop.Submit(Task{Runnable: func() {
			_, _, _ = loop.Work(context.Background(), WorkCPU, func() (any, error) {
				cur := running.Add(1)
				for {
					old := maxObserved.Load()
					if cur <= old || maxObserved.CompareAndSwap(old, cur) {
						break
					}
				}
				<-release
				running.Add(-1)
				return nil, nil
			}, func(any, error) {
				wg.Done()
			})
		}}))
	}

	require.Eventually(t, func() bool {
		return running.Load() == int32(poolSize)
	}, time.Second, time.Millisecond)

	require.Equal(t, int32(poolSize), maxObserved.Load())
	close(release)
	wg.Wait()
}

// TestWorkPoolSizesAreOrdered checks the documented pool-sizing
// relationship: CPU < FastIO < SlowIO, so a handful of stuck
// WorkSlowIO calls (e.g. a flock on a network filesystem, per §9's
// Windows deadlock note) can't starve the smaller CPU/FastIO pools.
func TestWorkPoolSizesAreOrdered(t *testing.T) {
	require.Less(t, workPoolSize(WorkCPU), workPoolSize(WorkFastIO))
	require.Less(t, workPoolSize(WorkFastIO), workPoolSize(WorkSlowIO))
}

// TestWorkResumesOnContextCancel exercises the timeout/cancel path:
// if ctx is canceled before a pool slot frees up, Work must resume the
// waiting coroutine with ErrAdapterTimedOut instead of blocking
// forever behind an oversubscribed pool.
func TestWorkResumesOnContextCancel(t *testing.T) {
	loop, err := New()
	require.NoError(t, err)
	stop := runTestLoop(t, loop)
	defer stop()

	poolSize := workPoolSize(WorkFastIO)
	block := make(chan struct{})
	defer close(block)

	// Saturate every slot in the WorkFastIO pool with a call that
	// blocks until the test ends.
	for i := 0; i < poolSize; i++ {
		require.NoError(t, loop.Submit(Task{Runnable: func() {
			_, _, _ = loop.Work(context.Background(), WorkFastIO, func() (any, error) {
				<-block
				return nil, nil
			}, func(any, error) {})
		}}))
	}
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	resumed := make(chan error, 1)
	require.NoError(t, loop.Submit(Task{Runnable: func() {
		_, _, _ = loop.Work(ctx, WorkFastIO, func() (any, error) {
			return nil, nil
		}, func(_ any, err error) {
			resumed <- err
		})
	}}))

	cancel()

	select {
	case err := <-resumed:
		require.ErrorIs(t, err, ErrAdapterTimedOut)
	case <-time.After(time.Second):
		t.Fatal("Work did not resume after context cancellation while queued for a pool slot")
	}
}
