package reactor

import (
	"sort"
	"sync"
	"time"
)

// LatencyMetrics tracks a stream of durations and estimates percentiles
// from them without retaining every observation. It backs the watchdog
// package's stall-duration distribution (§4.1's starvation signal
// enriched with P50/P90/P95/P99 instead of a bare alert count).
//
// For the first few observations (count < 5) percentiles are computed
// exactly by sorting a small ring buffer; once enough samples have
// arrived the P-Square streaming estimator (psquare.go) takes over so
// Record stays O(1) regardless of how long the process runs.
type LatencyMetrics struct {
	psquare *pSquareMultiQuantile

	mu sync.RWMutex

	// Ring buffer retained only to produce exact percentiles while the
	// P-Square estimator is still warming up (fewer than 5 samples).
	sampleIdx   int
	sampleCount int
	samples     [sampleSize]time.Duration

	// Cached percentiles, refreshed by Sample().
	P50 time.Duration
	P90 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration

	Mean time.Duration
	Sum  time.Duration
}

// sampleSize bounds the exact-percentile warm-up buffer; the P-Square
// estimator takes over well before this fills for any long-running
// watchdog.
const sampleSize = 1000

// Record adds one latency observation — a watchdog quantum's worth of
// stall — to the estimator. O(1).
func (l *LatencyMetrics) Record(duration time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(duration))

	if l.sampleCount >= sampleSize {
		old := l.samples[l.sampleIdx]
		l.Sum -= old
	}

	l.samples[l.sampleIdx] = duration
	l.Sum += duration
	l.sampleIdx++
	if l.sampleIdx >= sampleSize {
		l.sampleIdx = 0
	}
	if l.sampleCount < sampleSize {
		l.sampleCount++
	}
}

// Sample refreshes the cached percentile fields from whatever has been
// Recorded so far and returns how many observations fed them. Safe to
// call on a live estimator — e.g. watchdog.WatchDog.StallStats polls
// this while the watchdog goroutine keeps recording concurrently.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	count := l.sampleCount
	if count == 0 {
		return 0
	}

	if count < 5 || l.psquare == nil {
		sorted := make([]time.Duration, count)
		copy(sorted, l.samples[:count])
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i] < sorted[j]
		})

		l.P50 = sorted[percentileIndex(count, 50)]
		l.P90 = sorted[percentileIndex(count, 90)]
		l.P95 = sorted[percentileIndex(count, 95)]
		l.P99 = sorted[percentileIndex(count, 99)]
		l.Max = sorted[count-1]
		l.Mean = l.Sum / time.Duration(count)
		return count
	}

	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = l.Sum / time.Duration(count)
	return count
}

// percentileIndex computes the index for a given percentile (0-100)
// into a sorted slice of n samples.
func percentileIndex(n, p int) int {
	index := (p * n) / 100
	if index >= n {
		return n - 1
	}
	return index
}
