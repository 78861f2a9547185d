package corort

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestResolveSchedulerOptionsDefaults covers the zero-value configuration a
// Scheduler gets when constructed with no options.
func TestResolveSchedulerOptionsDefaults(t *testing.T) {
	cfg, err := resolveSchedulerOptions(nil)
	require.NoError(t, err)
	assert.Equal(t, defaultReactorEvents, cfg.reactorEventBuffer)
	assert.Equal(t, int64(defaultStackCeiling), cfg.stackCeilingBytes)
	assert.IsType(t, systemClock{}, cfg.clock)
}

// TestWithReactorEventBufferClamped covers spec §4.4's 2^20 cap on reactor
// events per Poll call: requesting more than the cap silently clamps rather
// than erroring.
func TestWithReactorEventBufferClamped(t *testing.T) {
	cfg, err := resolveSchedulerOptions([]SchedulerOption{
		WithReactorEventBuffer(maxReactorEvents + 1),
	})
	require.NoError(t, err)
	assert.Equal(t, maxReactorEvents, cfg.reactorEventBuffer)
}

// TestWithStackCeilingOverride covers the advisory stack-depth ceiling
// surfaced via Scheduler.StackCeilingBytes.
func TestWithStackCeilingOverride(t *testing.T) {
	cfg, err := resolveSchedulerOptions([]SchedulerOption{
		WithStackCeiling(2048),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2048), cfg.stackCeilingBytes)
}

// TestNilSchedulerOptionSkipped covers the nil-option guard in
// resolveSchedulerOptions: a nil SchedulerOption (e.g. from a conditional
// that didn't apply) is skipped rather than panicking.
func TestNilSchedulerOptionSkipped(t *testing.T) {
	cfg, err := resolveSchedulerOptions([]SchedulerOption{nil, WithStackCeiling(4096)})
	require.NoError(t, err)
	assert.Equal(t, int64(4096), cfg.stackCeilingBytes)
}
