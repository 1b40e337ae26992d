package watchdog

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/coroutine"
)

func TestWatchDogAlertsOnStalledRound(t *testing.T) {
	rt := coroutine.New()
	var alerts int32
	wd := New(rt)
	require.NoError(t, wd.Run(30*time.Millisecond, func(*WatchDog) {
		atomic.AddInt32(&alerts, 1)
	}))

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, wd.Stop())

	require.Greater(t, wd.AlertCount(), uint64(0))
	require.Greater(t, atomic.LoadInt32(&alerts), int32(0))

	stats := wd.StallStats()
	require.Greater(t, stats.Count, 0)
}

func TestWatchDogResetsWhenRoundAdvances(t *testing.T) {
	rt := coroutine.New()
	var alerts int32
	wd := New(rt)
	require.NoError(t, wd.Run(30*time.Millisecond, func(*WatchDog) {
		atomic.AddInt32(&alerts, 1)
	}))

	deadline := time.Now().Add(150 * time.Millisecond)
	for time.Now().Before(deadline) {
		co := rt.Create(func(co *coroutine.Coroutine, arg any) any { return nil })
		_, err := rt.Resume(co, nil)
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)
	}
	require.NoError(t, wd.Stop())

	require.Equal(t, uint64(0), wd.AlertCount())
	require.Equal(t, int32(0), atomic.LoadInt32(&alerts))
}

func TestWatchDogRunTwiceIsMisuse(t *testing.T) {
	rt := coroutine.New()
	wd := New(rt)
	require.NoError(t, wd.Run(50*time.Millisecond, func(*WatchDog) {}))
	defer wd.Stop()

	err := wd.Run(50*time.Millisecond, func(*WatchDog) {})
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

func TestWatchDogStopWithoutRunIsMisuse(t *testing.T) {
	wd := New(coroutine.New())
	err := wd.Stop()
	require.True(t, catcode.Is(err, catcode.EMISUSE))
}

func TestWatchDogQuantumReportsNotRunning(t *testing.T) {
	wd := New(coroutine.New())
	require.Equal(t, time.Duration(-1), wd.Quantum())
	require.False(t, wd.IsRunning())
}

func TestWatchDogWarningRateThrottlesAlerter(t *testing.T) {
	rt := coroutine.New()
	var alerts int32
	wd := New(rt, WithWarningRate(map[time.Duration]int{time.Hour: 1}))
	require.NoError(t, wd.Run(20*time.Millisecond, func(*WatchDog) {
		atomic.AddInt32(&alerts, 1)
	}))

	time.Sleep(150 * time.Millisecond)
	require.NoError(t, wd.Stop())

	// Many stalls were observed (round never advanced)...
	require.Greater(t, wd.AlertCount(), uint64(1))
	// ...but the rate limiter only let the alerter itself fire once.
	require.Equal(t, int32(1), atomic.LoadInt32(&alerts))
}

func TestWatchDogAlertStandardLogsWithoutPanicking(t *testing.T) {
	rt := coroutine.New()
	wd := New(rt)
	require.NoError(t, wd.Run(30*time.Millisecond, nil))
	time.Sleep(80 * time.Millisecond)
	require.NoError(t, wd.Stop())
}
