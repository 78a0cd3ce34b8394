package core

import "time"

// Cadence tracks the absolute deadline of the next tick for a fixed period.
// Advancing never looks at the clock, so a late tick is followed by an
// immediate one instead of drifting.
type Cadence struct {
	period time.Duration
	next   time.Time
}

// NewCadence schedules the first tick one period after now.
func NewCadence(period time.Duration, now time.Time) *Cadence {
	c := &Cadence{}
	c.SetPeriod(period)
	c.next = now.Add(c.period)
	return c
}

// SetPeriod changes the tick period. Non-positive values select one
// millisecond.
func (c *Cadence) SetPeriod(period time.Duration) {
	if period <= 0 {
		period = time.Millisecond
	}
	c.period = period
}

// Period returns the configured period.
func (c *Cadence) Period() time.Duration { return c.period }

// Next returns the deadline of the upcoming tick.
func (c *Cadence) Next() time.Time { return c.next }

// Advance moves the deadline forward by exactly one period.
func (c *Cadence) Advance() time.Time {
	c.next = c.next.Add(c.period)
	return c.next
}

// Until returns how long to wait from now until the deadline, never negative.
func (c *Cadence) Until(now time.Time) time.Duration {
	if d := c.next.Sub(now); d > 0 {
		return d
	}
	return 0
}
