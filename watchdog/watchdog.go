// Package watchdog implements spec.md §4.1's "Starvation signal": a
// background goroutine samples a coroutine.Runtime's round counter and
// current/scheduler identity at regular intervals, grounded on
// original_source/src/cat_watch_dog.c's polling loop (a dedicated
// thread there, a goroutine here — Go has no use for a whole OS thread
// just to poll a clock). If the round hasn't advanced since the last
// sample and the runtime isn't simply idle on its own scheduler, the
// runtime is presumed blocked (a long syscall, or a coroutine that
// never yields) and an alerter fires.
package watchdog

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"

	"github.com/libcat/cat/catcode"
	"github.com/libcat/cat/catlog"
	"github.com/libcat/cat/coroutine"
	"github.com/libcat/cat/reactor"
)

// DefaultQuantum mirrors cat_watch_dog.h's CAT_WATCH_DOG_DEFAULT_QUANTUM.
const DefaultQuantum = 10 * time.Second

// Alerter is invoked every time the watchdog observes a stalled round.
// The default (AlertStandard) logs a warning; a caller with its own
// alerting/metrics pipeline can supply one instead.
type Alerter func(wd *WatchDog)

// Stall summarizes the watchdog's observed stall-duration distribution,
// read back from the p-square estimator reactor/psquare.go backs
// reactor.LatencyMetrics with — §4.1's starvation signal enriched with
// percentiles instead of only the raw alert count cat_watch_dog.h
// exposes.
type Stall struct {
	P50, P90, P95, P99, Max, Mean time.Duration
	Count                         int
}

// WatchDog polls a coroutine.Runtime for starvation. Only one Run may
// be outstanding per WatchDog at a time, mirroring cat_watch_dog_run's
// "only one watch-dog is allowed to run per process" restriction,
// scoped here to the instance rather than a process-wide global since
// nothing about the design requires a singleton in Go.
type WatchDog struct {
	rt      *coroutine.Runtime
	log     catlog.Logger
	limiter *catrate.Limiter

	mu         sync.Mutex
	running    bool
	quantum    time.Duration
	alertCount uint64
	alerter    Alerter
	stopCh     chan struct{}
	doneCh     chan struct{}
	stall      reactor.LatencyMetrics
}

// Option configures a WatchDog at construction.
type Option func(*WatchDog)

// WithLogger overrides the watchdog's structured logger (default:
// catlog.Default()), used by the standard alerter.
func WithLogger(log catlog.Logger) Option {
	return func(wd *WatchDog) { wd.log = log }
}

// WithWarningRate bounds how many times the alerter actually fires per
// window, independent of how often the underlying stall is observed —
// repurposing catrate.Limiter (the corpus's multi-window event rate
// limiter) so a runtime stuck for minutes doesn't flood logs with one
// warning per quantum/2. Without this option every observed stall
// alerts, matching the original's unthrottled behavior.
func WithWarningRate(rates map[time.Duration]int) Option {
	return func(wd *WatchDog) { wd.limiter = catrate.NewLimiter(rates) }
}

// New creates a WatchDog bound to rt.
func New(rt *coroutine.Runtime, opts ...Option) *WatchDog {
	wd := &WatchDog{rt: rt, log: catlog.Default()}
	for _, opt := range opts {
		opt(wd)
	}
	return wd
}

func alignQuantum(quantum time.Duration) time.Duration {
	if quantum <= 0 {
		return DefaultQuantum
	}
	return quantum
}

// Run starts polling at the given quantum (0 selects DefaultQuantum),
// sampling twice per quantum the way cat_watch_dog_loop waits
// quantum/2 between checks. alerter defaults to AlertStandard.
// Returns EMISUSE if this WatchDog is already running.
func (wd *WatchDog) Run(quantum time.Duration, alerter Alerter) error {
	wd.mu.Lock()
	if wd.running {
		wd.mu.Unlock()
		return catcode.New(catcode.EMISUSE, "only one watch-dog is allowed to run per WatchDog instance")
	}
	if alerter == nil {
		alerter = (*WatchDog).AlertStandard
	}
	wd.quantum = alignQuantum(quantum)
	wd.alertCount = 0
	wd.alerter = alerter
	wd.stopCh = make(chan struct{})
	wd.doneCh = make(chan struct{})
	wd.running = true
	quantum = wd.quantum
	stopCh := wd.stopCh
	doneCh := wd.doneCh
	wd.mu.Unlock()

	go wd.loop(quantum, stopCh, doneCh)
	return nil
}

func (wd *WatchDog) loop(quantum time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	ticker := time.NewTicker(quantum / 2)
	defer ticker.Stop()

	for {
		lastRound := wd.rt.Round()

		select {
		case <-stopCh:
			return
		case <-ticker.C:
		}

		if scheduler := wd.rt.Scheduler(); scheduler != nil && wd.rt.Current() == scheduler {
			// The runtime is idle on its own scheduler, not stuck in a
			// coroutine; this tick proves nothing either way.
			continue
		}

		if wd.rt.Round() == lastRound {
			n := atomic.AddUint64(&wd.alertCount, 1)
			wd.recordAndAlert(n)
		} else {
			atomic.StoreUint64(&wd.alertCount, 0)
		}
	}
}

func (wd *WatchDog) recordAndAlert(alertCount uint64) {
	stallDuration := wd.quantumValue() * time.Duration(alertCount)

	wd.mu.Lock()
	wd.stall.Record(stallDuration)
	wd.mu.Unlock()

	if wd.limiter != nil {
		if _, ok := wd.limiter.Allow(wd); !ok {
			return
		}
	}
	wd.alerter(wd)
}

func (wd *WatchDog) quantumValue() time.Duration {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	return wd.quantum
}

// Stop halts a running watchdog and waits for its goroutine to exit,
// mirroring cat_watch_dog_stop's thread-join. Returns EMISUSE if this
// WatchDog is not currently running.
func (wd *WatchDog) Stop() error {
	wd.mu.Lock()
	if !wd.running {
		wd.mu.Unlock()
		return catcode.New(catcode.EMISUSE, "watch-dog is not running")
	}
	stopCh := wd.stopCh
	doneCh := wd.doneCh
	wd.running = false
	wd.mu.Unlock()

	close(stopCh)
	<-doneCh
	return nil
}

// AlertStandard is the default Alerter: a structured warning naming
// how long the runtime has apparently been stalled, the Go analogue of
// cat_watch_dog_alert_standard's stderr fprintf.
func (wd *WatchDog) AlertStandard() {
	n := atomic.LoadUint64(&wd.alertCount)
	wd.log.Warn(
		"watch-dog: syscall blocking or CPU starvation may occur in process %d, it has been blocked for more than %s",
		os.Getpid(), wd.quantumValue()*time.Duration(n),
	)
}

// IsRunning reports whether this WatchDog currently has a poll
// goroutine active.
func (wd *WatchDog) IsRunning() bool {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	return wd.running
}

// Quantum returns the currently configured polling quantum, or -1 if
// the watchdog is not running (cat_watch_dog_get_quantum's -1 sentinel
// for "not running").
func (wd *WatchDog) Quantum() time.Duration {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	if !wd.running {
		return -1
	}
	return wd.quantum
}

// AlertCount returns the number of consecutive stalled samples observed
// since the round last advanced.
func (wd *WatchDog) AlertCount() uint64 {
	return atomic.LoadUint64(&wd.alertCount)
}

// StallStats samples the stall-duration distribution observed so far.
func (wd *WatchDog) StallStats() Stall {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	count := wd.stall.Sample()
	return Stall{
		P50:   wd.stall.P50,
		P90:   wd.stall.P90,
		P95:   wd.stall.P95,
		P99:   wd.stall.P99,
		Max:   wd.stall.Max,
		Mean:  wd.stall.Mean,
		Count: count,
	}
}
