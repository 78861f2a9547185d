//go:build linux || darwin

package corort

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Non-blocking socket helpers for a Coroutine. Accept, Send, Recv and
// RecvTimeout suspend the calling coroutine on the fd's readiness before
// attempting their syscall, retrying on EAGAIN/EWOULDBLOCK/EINTR, so
// application code can write what reads as blocking socket I/O without
// ever stalling the scheduler. Socket never suspends, and Connect attempts
// its syscall before suspending; see its own doc comment for why.

func isRetryable(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EINTR)
}

// Socket creates a non-blocking TCP socket of the given address family
// (unix.AF_INET or unix.AF_INET6).
func (c *Coroutine) Socket(family int) (fd int, err error) {
	fd, err = unix.Socket(family, unix.SOCK_STREAM|unix.SOCK_NONBLOCK, 0)
	if err != nil {
		return -1, fmt.Errorf("corort: socket: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("corort: setsockopt SO_REUSEADDR: %w", err)
	}
	return fd, nil
}

// Accept suspends the calling coroutine until listenFD has a pending
// connection, then accepts and returns the new non-blocking client fd.
// It suspends first and attempts the syscall second on every iteration,
// since it can never assume listenFD is already readable.
func (c *Coroutine) Accept(listenFD int) (fd int, sa unix.Sockaddr, err error) {
	for {
		if werr := c.WaitFD(listenFD, IOEventRead, 0); werr != nil {
			return -1, nil, werr
		}
		fd, sa, err = unix.Accept(listenFD)
		if err == nil {
			if err := unix.SetNonblock(fd, true); err != nil {
				unix.Close(fd)
				return -1, nil, fmt.Errorf("corort: set accepted fd nonblocking: %w", err)
			}
			return fd, sa, nil
		}
		if !isRetryable(err) {
			return -1, nil, fmt.Errorf("corort: accept: %w", err)
		}
	}
}

// Connect suspends the calling coroutine until a non-blocking connect on
// fd completes (successfully or not). Unlike the other helpers this does
// not suspend before its first syscall: initiating connect(2) is itself
// the action that makes fd eventually write-ready, so there is nothing to
// wait for beforehand. It does not retry connect() itself after waiting —
// a second connect() call on a socket already mid-handshake returns
// EISCONN or EALREADY rather than 0 or a genuine error — so completion is
// instead checked by waiting once for write-readiness and reading
// SO_ERROR, the standard non-blocking-connect completion check.
func (c *Coroutine) Connect(fd int, sa unix.Sockaddr) error {
	err := unix.Connect(fd, sa)
	if err == nil {
		return nil
	}
	if !errors.Is(err, unix.EINPROGRESS) {
		return fmt.Errorf("corort: connect: %w", err)
	}
	if werr := c.WaitFD(fd, IOEventWrite, 0); werr != nil {
		return werr
	}
	errno, serr := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if serr != nil {
		return fmt.Errorf("corort: getsockopt SO_ERROR: %w", serr)
	}
	if errno != 0 {
		return fmt.Errorf("corort: connect: %w", unix.Errno(errno))
	}
	return nil
}

// Send writes buf to fd, suspending on write-readiness as needed, and
// returns once the entire buffer has been written or an unrecoverable
// error occurs. A zero or negative write with no error is treated as
// terminal rather than retried, so a misbehaving fd can never spin the
// loop forever.
func (c *Coroutine) Send(fd int, buf []byte) (n int, err error) {
	for n < len(buf) {
		if werr := c.WaitFD(fd, IOEventWrite, 0); werr != nil {
			return n, werr
		}
		wrote, werr := unix.Write(fd, buf[n:])
		if werr == nil {
			if wrote <= 0 {
				return n, fmt.Errorf("corort: send: write returned %d with no error", wrote)
			}
			n += wrote
			continue
		}
		if !isRetryable(werr) {
			return n, fmt.Errorf("corort: send: %w", werr)
		}
	}
	return n, nil
}

// Recv suspends until fd is readable, then performs one read into buf.
// A zero-length, nil-error result means the peer closed the connection.
func (c *Coroutine) Recv(fd int, buf []byte) (n int, err error) {
	for {
		if werr := c.WaitFD(fd, IOEventRead, 0); werr != nil {
			return 0, werr
		}
		n, err = unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if !isRetryable(err) {
			return 0, fmt.Errorf("corort: recv: %w", err)
		}
	}
}

// RecvTimeout behaves as Recv but gives up after timeout, returning a
// deadline-expiry error, for callers that need a bound on a single call
// rather than the whole coroutine's lifetime.
func (c *Coroutine) RecvTimeout(fd int, buf []byte, timeout time.Duration) (n int, err error) {
	for {
		if werr := c.WaitFD(fd, IOEventRead, (timeout + time.Millisecond - 1).Milliseconds()); werr != nil {
			return 0, werr
		}
		n, err = unix.Read(fd, buf)
		if err == nil {
			return n, nil
		}
		if !isRetryable(err) {
			return 0, fmt.Errorf("corort: recv: %w", err)
		}
	}
}
