package corort

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScheduler(t *testing.T, opts ...SchedulerOption) *Scheduler {
	t.Helper()
	opts = append([]SchedulerOption{WithLogger(NewSilentLogger())}, opts...)
	sched, err := NewScheduler(opts...)
	if err != nil {
		t.Skipf("reactor unavailable on this platform: %v", err)
	}
	t.Cleanup(func() { sched.Close() })
	return sched
}

// TestSchedulerSingleCoroutineToCompletion covers the first scenario from
// spec §8: a lone coroutine runs to completion and Run returns cleanly.
func TestSchedulerSingleCoroutineToCompletion(t *testing.T) {
	sched := newTestScheduler(t)

	var ran bool
	sched.Spawn(func(co *Coroutine, _ any) {
		ran = true
	}, nil)

	require.NoError(t, sched.Run())
	assert.True(t, ran)
}

// TestSchedulerTwoYieldersInterleave covers spec §8's second scenario:
// two coroutines that repeatedly Yield observe strict round-robin
// interleaving via the FIFO ready queue.
func TestSchedulerTwoYieldersInterleave(t *testing.T) {
	sched := newTestScheduler(t)

	var order []string
	sched.Spawn(func(co *Coroutine, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "a")
			co.Yield()
		}
	}, nil)
	sched.Spawn(func(co *Coroutine, _ any) {
		for i := 0; i < 3; i++ {
			order = append(order, "b")
			co.Yield()
		}
	}, nil)

	require.NoError(t, sched.Run())
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, order)
}

// TestSchedulerSleepOrdering covers spec §8's third scenario: coroutines
// sleeping for different durations wake in deadline order.
func TestSchedulerSleepOrdering(t *testing.T) {
	sched := newTestScheduler(t)

	var order []string
	sched.Spawn(func(co *Coroutine, _ any) {
		co.SleepMS(60)
		order = append(order, "slow")
	}, nil)
	sched.Spawn(func(co *Coroutine, _ any) {
		co.SleepMS(5)
		order = append(order, "fast")
	}, nil)

	require.NoError(t, sched.Run())
	assert.Equal(t, []string{"fast", "slow"}, order)
}

// TestSchedulerReentrantRunRejected covers the ErrReentrantRun guard: a
// coroutine calling Run on its own scheduler gets rejected rather than
// deadlocking or corrupting the run loop.
func TestSchedulerReentrantRunRejected(t *testing.T) {
	sched := newTestScheduler(t)

	var reentrantErr error
	sched.Spawn(func(co *Coroutine, _ any) {
		reentrantErr = sched.Run()
	}, nil)

	require.NoError(t, sched.Run())
	assert.ErrorIs(t, reentrantErr, ErrReentrantRun)

	// Run again after completion must succeed (the scheduler is reusable).
	sched.Spawn(func(co *Coroutine, _ any) {}, nil)
	require.NoError(t, sched.Run())
}

// TestCoroutinePanicDoesNotCorruptScheduler covers spec §7: an entry
// function that panics is recovered, marked dead, and does not prevent
// the rest of the population from completing.
func TestCoroutinePanicDoesNotCorruptScheduler(t *testing.T) {
	sched := newTestScheduler(t)

	var survivorRan bool
	sched.Spawn(func(co *Coroutine, _ any) {
		panic("boom")
	}, nil)
	sched.Spawn(func(co *Coroutine, _ any) {
		co.Yield()
		survivorRan = true
	}, nil)

	require.NoError(t, sched.Run())
	assert.True(t, survivorRan)
}

// TestCoroutineCancel covers spec §4.2's self_cancel: a coroutine that
// cancels itself never executes code after the call.
func TestCoroutineCancel(t *testing.T) {
	sched := newTestScheduler(t)

	var reachedAfterCancel bool
	sched.Spawn(func(co *Coroutine, _ any) {
		co.Cancel()
		reachedAfterCancel = true
	}, nil)

	require.NoError(t, sched.Run())
	assert.False(t, reachedAfterCancel)
}

// TestSchedulerCurrentID covers spec §6's current_id: it resolves to the
// running coroutine's id while a coroutine is executing, and fails with
// ErrNoCurrentCoroutine once the scheduler is idle again.
func TestSchedulerCurrentID(t *testing.T) {
	sched := newTestScheduler(t)

	var sawID uint64
	co := sched.Spawn(func(co *Coroutine, _ any) {
		id, err := sched.CurrentID()
		require.NoError(t, err)
		sawID = id
	}, nil)

	require.NoError(t, sched.Run())
	assert.Equal(t, co.ID(), sawID)

	_, err := sched.CurrentID()
	assert.ErrorIs(t, err, ErrNoCurrentCoroutine)
}

// TestCoroutineCancelDoesNotLeakGoroutine guards against a regression
// where Cancel parked its goroutine on resumeCh forever instead of
// unwinding: Cancel must terminate the coroutine's goroutine, not merely
// stop it from running further application code.
func TestCoroutineCancelDoesNotLeakGoroutine(t *testing.T) {
	sched := newTestScheduler(t)
	start := runtime.NumGoroutine()

	for i := 0; i < 10; i++ {
		sched.Spawn(func(co *Coroutine, _ any) {
			co.Yield()
			co.Cancel()
		}, nil)
	}

	require.NoError(t, sched.Run())

	runtime.GC()
	time.Sleep(10 * time.Millisecond)
	end := runtime.NumGoroutine()
	assert.LessOrEqual(t, end, start+1, "Cancel leaked a coroutine goroutine parked on resumeCh")
}

// TestSchedulerDeadlineExpiryReapsBeforeFirstRun covers spec §8's sixth
// scenario: a coroutine given a deadline shorter than its sleep is reaped
// the first time the scheduler would otherwise resume it, and its entry
// never executes at all.
func TestSchedulerDeadlineExpiryReapsBeforeFirstRun(t *testing.T) {
	clock := newManualClock(0)
	sched := newTestScheduler(t, WithClock(clock))

	var entryRan bool
	co := sched.Spawn(func(co *Coroutine, _ any) {
		entryRan = true
		co.SleepMS(100)
	}, nil)
	co.SetDeadline(10)

	// Simulate 15ms having elapsed before the scheduler gets a chance to
	// pop this coroutine from ready, so the deadline has already passed by
	// the time Run's first turn inspects it.
	clock.Advance(15_000)

	require.NoError(t, sched.Run())
	assert.False(t, entryRan)
	assert.True(t, co.Dead())
}

// TestSchedulerDeadlineExpiryReapsSleepingCoroutine covers the same
// invariant for a coroutine that has already started and suspended once:
// its deadline still reaps it without leaking its goroutine, even though
// it must be woken one additional time to unwind cleanly. Uses the real
// system clock since the coroutine must actually wake from its sleep
// (moved to ready by processSleeps) before the scheduler gets a chance to
// re-inspect its deadline.
func TestSchedulerDeadlineExpiryReapsSleepingCoroutine(t *testing.T) {
	sched := newTestScheduler(t)
	start := runtime.NumGoroutine()

	var resumedAfterSleep bool
	co := sched.Spawn(func(co *Coroutine, _ any) {
		co.SleepMS(60)
		resumedAfterSleep = true
	}, nil)
	sched.Spawn(func(*Coroutine, any) {
		co.SetDeadline(10)
	}, nil)

	require.NoError(t, sched.Run())
	assert.False(t, resumedAfterSleep)
	assert.True(t, co.Dead())

	runtime.GC()
	time.Sleep(10 * time.Millisecond)
	end := runtime.NumGoroutine()
	assert.LessOrEqual(t, end, start+1, "expired sleeping coroutine leaked its goroutine")
}
