//go:build linux

package corort

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// epollReactor is the linux Reactor: epoll_create1 at construction,
// epoll_ctl add/del per registration change, epoll_wait per Poll. Exactly
// one goroutine (the Scheduler's run loop) ever calls into it, so a plain
// map and a reusable event buffer suffice — no locking required.
type epollReactor struct {
	epfd     int
	eventBuf []unix.EpollEvent
	fds      map[int]IOEvents
	closed   bool
}

func newReactor(eventBufferSize int) (Reactor, error) {
	if eventBufferSize <= 0 {
		eventBufferSize = defaultReactorEvents
	}
	if eventBufferSize > maxReactorEvents {
		eventBufferSize = maxReactorEvents
	}
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("corort: epoll_create1: %w", err)
	}
	return &epollReactor{
		epfd:     epfd,
		eventBuf: make([]unix.EpollEvent, eventBufferSize),
		fds:      make(map[int]IOEvents),
	}, nil
}

func (r *epollReactor) Register(fd int, events IOEvents) error {
	if r.closed {
		return ErrReactorClosed
	}
	if _, exists := r.fds[fd]; exists {
		return fmt.Errorf("%w: fd %d", ErrFDAlreadyWaited, fd)
	}
	ev := &unix.EpollEvent{Events: eventsToEpoll(events), Fd: int32(fd)}
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_ADD, fd, ev); err != nil {
		return fmt.Errorf("corort: epoll_ctl add fd %d: %w", fd, err)
	}
	r.fds[fd] = events
	return nil
}

func (r *epollReactor) Unregister(fd int) error {
	if r.closed {
		return ErrReactorClosed
	}
	if _, exists := r.fds[fd]; !exists {
		return nil
	}
	delete(r.fds, fd)
	if err := unix.EpollCtl(r.epfd, unix.EPOLL_CTL_DEL, fd, nil); err != nil {
		return fmt.Errorf("corort: epoll_ctl del fd %d: %w", fd, err)
	}
	return nil
}

func (r *epollReactor) Poll(timeoutMS int64, dst []ReadyFD) ([]ReadyFD, error) {
	if r.closed {
		return dst, ErrReactorClosed
	}
	timeout := int(timeoutMS)
	if timeoutMS < 0 {
		timeout = -1
	}
	n, err := unix.EpollWait(r.epfd, r.eventBuf, timeout)
	if err != nil {
		if err == unix.EINTR {
			return dst, nil
		}
		return dst, fmt.Errorf("corort: epoll_wait: %w", err)
	}
	for i := 0; i < n; i++ {
		fd := int(r.eventBuf[i].Fd)
		dst = append(dst, ReadyFD{FD: fd, Events: epollToEvents(r.eventBuf[i].Events)})
	}
	return dst, nil
}

func (r *epollReactor) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.epfd)
}

func eventsToEpoll(events IOEvents) uint32 {
	var e uint32
	if events&IOEventRead != 0 {
		e |= unix.EPOLLIN
	}
	if events&IOEventWrite != 0 {
		e |= unix.EPOLLOUT
	}
	return e
}

func epollToEvents(epollEvents uint32) IOEvents {
	var e IOEvents
	if epollEvents&(unix.EPOLLIN|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		e |= IOEventRead
	}
	if epollEvents&(unix.EPOLLOUT|unix.EPOLLERR|unix.EPOLLHUP) != 0 {
		e |= IOEventWrite
	}
	return e
}
