// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package reactor

// loopOptions holds the configuration New resolves LoopOption values
// into before constructing a Loop.
type loopOptions struct {
	strictMicrotaskOrdering bool
	fastPathMode            FastPathMode
}

// FastPathMode selects whether a Loop's direct-execution fast path
// (Loop.SetFastPathEnabled) is engaged automatically at construction.
type FastPathMode int

const (
	// FastPathAuto leaves the fast path disabled at construction; a
	// caller can still flip it on later via SetFastPathEnabled once it
	// knows no I/O FDs will be registered on this Loop.
	FastPathAuto FastPathMode = iota
	// FastPathAlways enables the fast path immediately in New, for a
	// Loop dedicated to coroutine scheduling that never registers a
	// socket FD and wants submit-to-resume latency from the first Run.
	FastPathAlways
	// FastPathNever disables the fast path unconditionally, useful when
	// diagnosing whether a regression is fast-path related.
	FastPathNever
)

// --- Loop Options ---

// LoopOption configures a Loop instance at construction.
type LoopOption interface {
	applyLoop(*loopOptions) error
}

// loopOptionImpl implements LoopOption.
type loopOptionImpl struct {
	applyLoopFunc func(*loopOptions) error
}

func (l *loopOptionImpl) applyLoop(opts *loopOptions) error {
	return l.applyLoopFunc(opts)
}

// WithStrictMicrotaskOrdering sets whether microtasks should be drained
// after each task execution for strict ordering.
// When enabled, microtasks are guaranteed to run after every task.
// When disabled (default), microtasks are drained in batches for better performance.
func WithStrictMicrotaskOrdering(enabled bool) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.strictMicrotaskOrdering = enabled
		return nil
	}}
}

// WithFastPathMode sets the fast path mode for Loop. See FastPathMode
// for the available modes.
func WithFastPathMode(mode FastPathMode) LoopOption {
	return &loopOptionImpl{func(opts *loopOptions) error {
		opts.fastPathMode = mode
		return nil
	}}
}

// resolveLoopOptions applies LoopOption instances to loopOptions.
func resolveLoopOptions(opts []LoopOption) (*loopOptions, error) {
	cfg := &loopOptions{
		fastPathMode: FastPathAuto, // default
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyLoop(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
