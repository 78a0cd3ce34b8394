package engine

import (
	"time"

	"mad-engine/internal/core"
)

// Waiter decides when the next tick fires.
type Waiter interface {
	// WaitForWorkOrQuit blocks until the next tick is due and reports
	// whether the engine should stop instead.
	WaitForWorkOrQuit() bool
}

// ConstantTickWaiter fires ticks at a fixed period. A late tick does not
// push back the schedule; the following ones fire immediately until the
// schedule has caught up.
type ConstantTickWaiter struct {
	cadence *core.Cadence
	quit    <-chan struct{}
	now     func() time.Time
}

// NewConstantTickWaiter schedules the first tick one period from now.
func NewConstantTickWaiter(period time.Duration, quit <-chan struct{}) *ConstantTickWaiter {
	return &ConstantTickWaiter{
		cadence: core.NewCadence(period, time.Now()),
		quit:    quit,
		now:     time.Now,
	}
}

// Next is the deadline of the upcoming tick.
func (w *ConstantTickWaiter) Next() time.Time { return w.cadence.Next() }

func (w *ConstantTickWaiter) WaitForWorkOrQuit() bool {
	select {
	case <-w.quit:
		return true
	default:
	}

	d := w.cadence.Until(w.now())
	w.cadence.Advance()
	if d <= 0 {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.quit:
		return true
	case <-timer.C:
		return false
	}
}

// TickLimitWaiter stops the engine once a tick count has been reached and
// otherwise defers to the wrapped waiter.
type TickLimitWaiter struct {
	Inner Waiter
	Limit uint64
	Ticks func() uint64
}

func (w *TickLimitWaiter) WaitForWorkOrQuit() bool {
	if w.Ticks() >= w.Limit {
		return true
	}
	return w.Inner.WaitForWorkOrQuit()
}
