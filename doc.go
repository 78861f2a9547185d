// Package corort provides a single-threaded, stackful coroutine runtime with
// an epoll-driven I/O reactor.
//
// # Architecture
//
// The runtime is built around a [Scheduler] that owns a FIFO ready queue, a
// fd→coroutine wait map, and a sleep min-heap, and drives them from a single
// run loop ([Scheduler.Run]). Application code writes straight-line,
// blocking-looking logic inside a [Coroutine] entry function; calling one of
// the suspension methods ([Coroutine.Yield], [Coroutine.WaitFD],
// [Coroutine.SleepMS]) hands control back to the scheduler without ever
// spawning a second OS thread's worth of concurrent application logic.
//
// A [Coroutine] may also be given a deadline via [Coroutine.SetDeadline];
// the scheduler reaps it without running its entry further the next time
// it would otherwise be resumed, whether or not it has run yet.
//
// Each [Coroutine] is backed by one goroutine, but only one coroutine's
// goroutine is ever unblocked at a time: the scheduler and the running
// coroutine hand off control over a pair of unbuffered channels, so the
// runtime's observable behaviour (FIFO ordering, single blocking poll, no
// preemption) matches a classic shared-stack fiber implementation without
// manual stack-pointer manipulation. See DESIGN.md for the rationale.
//
// # Platform Support
//
// The I/O reactor ([Reactor]) uses epoll and is only implemented for Linux;
// other platforms build against a stub that reports [ErrReactorUnsupported].
//
// # Usage
//
//	sched, err := corort.NewScheduler()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sched.Spawn(func(co *corort.Coroutine, _ any) {
//	    fmt.Println("hello from a coroutine")
//	    co.SleepMS(10)
//	    fmt.Println("still here after sleeping")
//	}, nil)
//	if err := sched.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Error Handling
//
// Programmer contract violations (suspension calls made outside the owning
// coroutine's goroutine, duplicate waits on one fd) panic with a
// [ContractViolationError]. Terminal socket errors and reactor failures are
// returned as ordinary errors. A coroutine entry that panics is recovered at
// the trampoline, logged, and the coroutine is marked dead without
// corrupting scheduler state; see [PanicError].
package corort
