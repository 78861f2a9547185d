//go:build !linux

package corort

// newReactor fails on every non-linux platform: the reactor is built
// directly on epoll, with no kqueue or IOCP backend.
func newReactor(eventBufferSize int) (Reactor, error) {
	return nil, ErrReactorUnsupported
}
