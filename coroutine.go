package corort

import (
	"fmt"
)

// Entry is a coroutine body. It receives the Coroutine it is running as
// (so it can call Yield/SleepMS/WaitFD/Cancel on itself) and the param
// passed to Spawn.
type Entry func(co *Coroutine, param any)

// IOEvents is a bitset of I/O readiness conditions a coroutine can wait
// on: readable, writable, or both.
type IOEvents uint8

const (
	IOEventRead IOEvents = 1 << iota
	IOEventWrite
)

// Coroutine is one cooperatively-scheduled unit of execution. Each
// Coroutine runs on its own goroutine, which rendezvous with the
// Scheduler over a pair of unbuffered channels, one per direction: the
// goroutine parks on resumeCh whenever the coroutine is not RUNNING and
// reports back on parkCh the instant it suspends, so the Scheduler's run
// loop never has two coroutine bodies executing concurrently, preserving
// single-threaded cooperative semantics without any shared-stack context
// switch.
type Coroutine struct {
	id    uint64
	entry Entry
	param any
	sched *Scheduler

	exec  ExecStatus
	queue QueueStatus

	// waitingFD is the file descriptor this coroutine is parked on when
	// queue == QueueWait, or -1 otherwise.
	waitingFD int
	waitingOn IOEvents

	// wakeAtUS is the absolute microsecond deadline for QueueSleep, or for
	// the optional timeout on a QueueWait registration.
	wakeAtUS int64
	// hasTimeout is set when wakeAtUS also acts as a wait timeout, so a
	// timed-out wait and an expired sleep share one sleep heap.
	hasTimeout bool

	// deadlineUS is the absolute microsecond deadline after which the
	// scheduler reaps this coroutine the next time it is popped from
	// ready. Zero means no deadline.
	deadlineUS int64

	dead    bool
	started bool

	// waitTimedOut is set by the scheduler when a QueueWait coroutine is
	// woken because its timeout fired rather than because its fd became
	// ready; consumed and cleared by WaitFD immediately after resuming.
	waitTimedOut bool

	resumeCh chan struct{}
	parkCh   chan struct{}

	// resultPanic carries a recovered panic value out of the trampoline
	// goroutine to the scheduler, which logs it and wraps it as PanicError.
	resultPanic any
}

// ID returns the coroutine's scheduler-assigned identifier.
func (c *Coroutine) ID() uint64 {
	return c.id
}

// Dead reports whether the coroutine has terminated: its entry function
// returned or panicked, it canceled itself, or the scheduler reaped it
// after its deadline expired.
func (c *Coroutine) Dead() bool {
	return c.dead
}

// Scheduler returns the Scheduler this coroutine belongs to, letting an
// entry function Spawn further coroutines (e.g. one per accepted
// connection) without needing its own reference threaded through param.
func (c *Coroutine) Scheduler() *Scheduler {
	return c.sched
}

// ExecStatus reports the coroutine's current execution status.
func (c *Coroutine) ExecStatus() ExecStatus {
	return c.exec
}

// QueueStatus reports which scheduler queue (if any) currently owns the
// coroutine.
func (c *Coroutine) QueueStatus() QueueStatus {
	return c.queue
}

// WaitingFD returns the file descriptor this coroutine is parked on and
// the events it is waiting for, valid only while QueueStatus() ==
// QueueWait.
func (c *Coroutine) WaitingFD() (fd int, events IOEvents) {
	return c.waitingFD, c.waitingOn
}

// assertRunning panics with a ContractViolationError if this coroutine is
// not the one currently executing on the scheduler. Every suspension
// method only makes sense called by a coroutine on its own behalf.
func (c *Coroutine) assertRunning() {
	if c.sched.current == nil {
		panicContractViolation(fmt.Errorf("%w: coroutine %d", ErrNoCurrentCoroutine, c.id))
	}
	if c.sched.current != c {
		panicContractViolation(fmt.Errorf("%w: coroutine %d", ErrNotSelf, c.id))
	}
	if c.exec != ExecRunning {
		panicContractViolation(fmt.Errorf("%w: coroutine %d is %s", ErrNotSelf, c.id, c.exec))
	}
}

// Yield suspends the calling coroutine and re-enqueues it at the back of
// the scheduler's ready queue, resuming only after every other currently
// ready coroutine has had a turn.
func (c *Coroutine) Yield() {
	c.assertRunning()
	c.sched.enqueueReady(c)
	c.suspend()
}

// SleepMS suspends the calling coroutine for at least ms milliseconds.
// ms <= 0 behaves as a Yield.
func (c *Coroutine) SleepMS(ms int64) {
	c.assertRunning()
	if ms <= 0 {
		c.sched.enqueueReady(c)
		c.suspend()
		return
	}
	c.wakeAtUS = c.sched.clock.NowUS() + ms*1000
	c.hasTimeout = false
	c.queue = QueueSleep
	c.sched.sleeps.push(c)
	c.suspend()
}

// WaitFD suspends the calling coroutine until fd becomes ready for the
// given events, or until timeoutMS elapses (timeoutMS <= 0 means no
// timeout). Waiting on an fd already claimed by another waiting coroutine
// is a contract violation and panics with a ContractViolationError
// wrapping ErrFDAlreadyWaited. Returns ErrFDOutOfRange for a negative fd,
// and whatever error the reactor reports if registration fails. On
// timeout, returns a deadline-expiry error so callers can distinguish
// "readable" from "gave up".
func (c *Coroutine) WaitFD(fd int, events IOEvents, timeoutMS int64) error {
	c.assertRunning()
	if fd < 0 {
		return fmt.Errorf("%w: fd %d", ErrFDOutOfRange, fd)
	}
	if _, exists := c.sched.waits[fd]; exists {
		panicContractViolation(fmt.Errorf("%w: fd %d", ErrFDAlreadyWaited, fd))
	}
	if err := c.sched.reactor.Register(fd, events); err != nil {
		return err
	}
	c.waitingFD = fd
	c.waitingOn = events
	c.queue = QueueWait
	c.sched.waits[fd] = c
	if timeoutMS > 0 {
		c.wakeAtUS = c.sched.clock.NowUS() + timeoutMS*1000
		c.hasTimeout = true
		c.sched.sleeps.push(c)
	} else {
		c.hasTimeout = false
	}
	c.suspend()
	c.waitingFD = -1

	timedOut := c.waitTimedOut
	c.waitTimedOut = false
	if timedOut {
		return fmt.Errorf("corort: wait on fd %d timed out", fd)
	}
	return nil
}

// SetDeadline marks this coroutine for reaping at the next scheduler turn
// that pops it from the ready queue and finds more than ms milliseconds
// have elapsed since this call. It is purely a marker, checked by the
// scheduler rather than enforced here. Unlike Yield/SleepMS/WaitFD/Cancel
// this is not a suspension and carries no self-only restriction, so a
// deadline can be set on a coroutine that has not started running yet by
// its spawner rather than by the coroutine itself.
func (c *Coroutine) SetDeadline(ms int64) {
	c.deadlineUS = c.sched.clock.NowUS() + ms*1000
}

// isExpired reports whether this coroutine's deadline, if any, has
// elapsed.
func (c *Coroutine) isExpired() bool {
	return c.deadlineUS != 0 && c.sched.clock.NowUS() > c.deadlineUS
}

// waitTimedOut is set by the scheduler's sleep-processing path when it
// wakes a QueueWait coroutine because its timeout fired rather than
// because the fd became ready.
//
// Kept as a plain field rather than a return channel since only the
// scheduler goroutine ever touches it, strictly between suspend and
// resume of this same coroutine.
func (c *Coroutine) setWaitTimedOut() {
	c.waitTimedOut = true
}

// Cancel marks the coroutine dead and terminates it immediately. Callable
// only by the coroutine on itself. Cancel never returns to its caller: it
// unwinds the entry function's call stack via a recovered sentinel panic,
// caught at the trampoline, so no code after the Cancel call ever runs
// and the coroutine's goroutine still exits cleanly rather than leaking
// parked on a channel forever.
func (c *Coroutine) Cancel() {
	c.assertRunning()
	c.dead = true
	c.exec = ExecSuspended
	c.queue = QueueHang
	panic(selfTerminate{})
}

// suspend hands control back to the scheduler and blocks until resumed.
// If the scheduler marks this coroutine dead while it is parked here (an
// expired coroutine is reaped the same way as a dead one, the next time
// it would otherwise run), suspend unwinds via the same sentinel panic
// Cancel uses instead of letting entry continue.
func (c *Coroutine) suspend() {
	c.exec = ExecSuspended
	c.parkCh <- struct{}{}
	<-c.resumeCh
	if c.dead {
		panic(selfTerminate{})
	}
	c.exec = ExecRunning
}

// selfTerminate is panicked by Cancel and by suspend (when woken into a
// dead coroutine) to unwind the entry function's stack and exit its
// goroutine cleanly. Recovered at the trampoline and never surfaced as a
// [PanicError]: it is the mechanism for a clean stop, not a crash.
type selfTerminate struct{}

// resume wakes the coroutine's goroutine (starting it on first use) and
// blocks until it next suspends or finishes. Called only from the
// scheduler's run loop, with sched.current set to c for the duration.
func (c *Coroutine) resume() {
	if !c.started {
		c.started = true
		go c.trampoline()
	}
	c.exec = ExecRunning
	c.resumeCh <- struct{}{}
	<-c.parkCh
}

// trampoline is the coroutine's goroutine body. It recovers any panic from
// entry and reports it via resultPanic as a [PanicError], so that an
// uncaught failure in one coroutine cannot corrupt scheduler state. A
// [selfTerminate] panic (Cancel, or a deadline expiring while parked in
// suspend) is a clean stop, not a crash, and is swallowed here without
// being recorded.
func (c *Coroutine) trampoline() {
	<-c.resumeCh
	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(selfTerminate); ok {
					return
				}
				c.resultPanic = &PanicError{CoroutineID: c.id, Value: r}
			}
		}()
		c.entry(c, c.param)
	}()
	c.dead = true
	c.exec = ExecSuspended
	c.queue = QueueHang
	c.parkCh <- struct{}{}
}

// Panic returns the error recovered from this coroutine's entry function
// if it terminated by panicking, or nil if it returned normally, was
// canceled, expired, or is still alive.
func (c *Coroutine) Panic() error {
	if err, ok := c.resultPanic.(error); ok {
		return err
	}
	return nil
}
