// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package corort

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// schedulerOptions holds configuration options for Scheduler creation.
type schedulerOptions struct {
	logger             *logiface.Logger[*stumpy.Event]
	reactorEventBuffer int
	stackCeilingBytes  int64
	clock              Clock
}

// --- Scheduler Options ---

// SchedulerOption configures a Scheduler instance.
type SchedulerOption interface {
	applyScheduler(*schedulerOptions) error
}

// schedulerOptionImpl implements SchedulerOption.
type schedulerOptionImpl struct {
	applySchedulerFunc func(*schedulerOptions) error
}

func (o *schedulerOptionImpl) applyScheduler(opts *schedulerOptions) error {
	return o.applySchedulerFunc(opts)
}

// WithLogger sets the structured logger used for coroutine lifecycle and
// reactor diagnostics. Defaults to the package-level logger configured via
// [SetStructuredLogger].
func WithLogger(logger *logiface.Logger[*stumpy.Event]) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.logger = logger
		return nil
	}}
}

// WithReactorEventBuffer sets the number of epoll events the reactor may
// report per Poll call. Values above maxReactorEvents are clamped.
func WithReactorEventBuffer(n int) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		if n > maxReactorEvents {
			n = maxReactorEvents
		}
		opts.reactorEventBuffer = n
		return nil
	}}
}

// WithStackCeiling sets the advisory per-coroutine stack-depth ceiling
// reported by [Scheduler.StackCeilingBytes] (see sizeof.go); nothing checks
// it, and it does not bound the actual Go goroutine stack, which the
// runtime grows on demand.
func WithStackCeiling(bytes int64) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.stackCeilingBytes = bytes
		return nil
	}}
}

// WithClock overrides the scheduler's time source — used by tests that
// need deterministic sleep/deadline ordering without real wall-clock waits.
func WithClock(clock Clock) SchedulerOption {
	return &schedulerOptionImpl{func(opts *schedulerOptions) error {
		opts.clock = clock
		return nil
	}}
}

// resolveSchedulerOptions applies SchedulerOption instances to schedulerOptions.
func resolveSchedulerOptions(opts []SchedulerOption) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		logger:             getGlobalLogger(),
		reactorEventBuffer: defaultReactorEvents,
		stackCeilingBytes:  defaultStackCeiling,
		clock:              systemClock{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}
