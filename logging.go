// logging.go wires the scheduler into github.com/joeycumines/logiface, using
// github.com/joeycumines/stumpy as the default structured-logging backend,
// configurable at the package level or per-Scheduler via [WithLogger].

package corort

import (
	"sync"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

var (
	globalLoggerMu sync.RWMutex
	globalLogger   = newDefaultLogger()
)

// SetStructuredLogger sets the package-level default logger used by any
// [Scheduler] constructed without an explicit [WithLogger] option.
func SetStructuredLogger(logger *logiface.Logger[*stumpy.Event]) {
	globalLoggerMu.Lock()
	defer globalLoggerMu.Unlock()
	if logger == nil {
		logger = newDefaultLogger()
	}
	globalLogger = logger
}

func getGlobalLogger() *logiface.Logger[*stumpy.Event] {
	globalLoggerMu.RLock()
	defer globalLoggerMu.RUnlock()
	return globalLogger
}

// newDefaultLogger constructs a stumpy-backed logger at Informational
// level, matching logiface's own default.
func newDefaultLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy())
}

// NewSilentLogger returns a logger with logging disabled entirely, useful
// for tests that want deterministic output with no log noise.
func NewSilentLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy(), stumpy.L.WithLevel(logiface.LevelDisabled))
}
