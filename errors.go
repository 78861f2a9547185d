// Package corort provides typed, wrapped errors for the scheduler and
// reactor's failure modes.
package corort

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrSchedulerRunning is returned when Run() is called on a scheduler
	// that is already running.
	ErrSchedulerRunning = errors.New("corort: scheduler is already running")

	// ErrReentrantRun is returned when Run() is called from within a
	// coroutine owned by the same scheduler.
	ErrReentrantRun = errors.New("corort: cannot call Run() from within a coroutine")

	// ErrNoCurrentCoroutine is the panic cause when a suspension method is
	// invoked without a running coroutine backing the call.
	ErrNoCurrentCoroutine = errors.New("corort: no running coroutine")

	// ErrNotSelf is the panic cause when a suspension method is called on
	// a Coroutine other than the one currently executing its own
	// goroutine.
	ErrNotSelf = errors.New("corort: suspension method called on a coroutine other than self")

	// ErrFDAlreadyWaited is the panic cause for a duplicate wait on one
	// file descriptor: at most one coroutine may wait on a given fd at a
	// time.
	ErrFDAlreadyWaited = errors.New("corort: file descriptor already has a waiting coroutine")

	// ErrFDOutOfRange is returned when a file descriptor is outside the
	// reactor's supported range.
	ErrFDOutOfRange = errors.New("corort: file descriptor out of range")

	// ErrReactorClosed is returned for operations attempted on a closed
	// Reactor.
	ErrReactorClosed = errors.New("corort: reactor is closed")

	// ErrReactorUnsupported is returned by the non-Linux Reactor stub.
	ErrReactorUnsupported = errors.New("corort: epoll reactor is only supported on linux")
)

// ContractViolationError wraps a detected programmer contract violation,
// such as a suspension method called from outside its owning coroutine.
// Panicking with this type rather than calling os.Exit lets the caller's
// own goroutine terminate loudly with a recoverable value identifying the
// violated contract.
type ContractViolationError struct {
	Cause error
}

// Error implements the error interface.
func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("corort: contract violation: %s", e.Cause)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *ContractViolationError) Unwrap() error {
	return e.Cause
}

func panicContractViolation(cause error) {
	panic(&ContractViolationError{Cause: cause})
}

// PanicError wraps a value recovered from a coroutine entry function that
// panicked instead of returning normally. The scheduler recovers at the
// trampoline, marks the coroutine dead, logs the value, and continues
// running the remaining population.
type PanicError struct {
	CoroutineID uint64
	Value       any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("corort: coroutine %d panicked: %v", e.CoroutineID, e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
