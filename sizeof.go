package corort

// Tunable defaults and hard limits for Scheduler construction; see
// options_test.go for the clamping behaviour these back.
const (
	// defaultStackCeiling bounds the advisory per-coroutine stack depth a
	// [Coroutine] is expected to run within. Go's goroutine stacks grow on
	// demand rather than living in a fixed shared region, so this ceiling
	// is not enforced by the runtime itself; it is surfaced via
	// [Scheduler.StackCeilingBytes] for callers that want to assert it,
	// and exceeding it is not checked automatically.
	defaultStackCeiling = 1024 * 1024

	// defaultReactorEvents is the default number of epoll events the
	// reactor requests per Poll call. A large fixed buffer would cost
	// several MiB per Scheduler for no benefit at realistic fan-out, so
	// this defaults small and grows only if a caller opts in via
	// [WithReactorEventBuffer].
	defaultReactorEvents = 256

	// maxReactorEvents is the hard cap on events reported per Poll call.
	maxReactorEvents = 1 << 20
)
