// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

import (
	"sync"
	"time"
)

// Performance is a monotonic clock origin shared by a coroutine.Runtime
// and its reactor.Loop: coroutine.Runtime stamps each coroutine's start
// time from it (coroutine.go's startTime field) so that elapsed
// scheduling latency can be computed independent of wall-clock
// adjustments, the same property time.Since already gives a single
// goroutine but that a Runtime needs to expose as a reusable origin
// shared across every coroutine it creates.
//
// Thread Safety: safe for concurrent use from multiple goroutines.
type Performance struct {
	origin time.Time
	mu     sync.RWMutex
}

// NewPerformance creates a Performance object with the current time as
// its monotonic origin. Construct exactly one per coroutine.Runtime;
// every coroutine created by that runtime shares the same origin so
// their Now() readings remain comparable.
func NewPerformance() *Performance {
	return &Performance{origin: time.Now()}
}

// Now returns milliseconds elapsed since the origin, using Go's
// monotonic clock reading under the hood so it stays accurate across
// system clock adjustments.
func (p *Performance) Now() float64 {
	p.mu.RLock()
	origin := p.origin
	p.mu.RUnlock()
	return float64(time.Since(origin).Nanoseconds()) / 1e6
}

// TimeOrigin returns the origin as a Unix timestamp in milliseconds,
// for logging a coroutine's absolute start time alongside its
// origin-relative Now() readings.
func (p *Performance) TimeOrigin() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return float64(p.origin.UnixNano()) / 1e6
}
