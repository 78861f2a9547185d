package corort

// manualClock is a Clock whose value is advanced explicitly, for tests
// that need deterministic sleep/deadline ordering without real
// wall-clock waits.
type manualClock struct {
	us int64
}

func newManualClock(startUS int64) *manualClock {
	return &manualClock{us: startUS}
}

func (c *manualClock) NowUS() int64 {
	return c.us
}

func (c *manualClock) Advance(us int64) {
	c.us += us
}
