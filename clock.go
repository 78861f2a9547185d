package corort

import "time"

// Clock is the runtime's time source, abstracted so tests can control sleep
// and deadline ordering deterministically.
type Clock interface {
	// NowUS returns the current time as an absolute microsecond count.
	NowUS() int64
}

// systemClock is the default Clock, backed by the wall clock.
type systemClock struct{}

func (systemClock) NowUS() int64 {
	return time.Now().UnixMicro()
}
