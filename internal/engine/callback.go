package engine

import "sync/atomic"

// Callback lets a running model schedule work for future ticks. It is bound
// to one worker context and must only be used by the goroutine currently
// running that worker's phase.
type Callback[Op Operation] struct {
	tick    *atomic.Uint64
	plusOne *[]WorkItem[Op]
	future  *Producer[WorkItem[Op]]
}

// Schedule queues op for the next tick.
func (c *Callback[Op]) Schedule(op Op) { c.ScheduleIn(op, 1) }

// ScheduleIn queues op to run delay ticks from now. A delay of 0 is treated
// as 1. Delays greater than one go through the worker's active future buffer
// and are stamped one tick early, since the partitioner releases an item in
// the tick before it runs.
func (c *Callback[Op]) ScheduleIn(op Op, delay uint64) {
	now := c.tick.Load()
	if delay <= 1 {
		*c.plusOne = append(*c.plusOne, WorkItem[Op]{Tick: now + 1, Op: op})
		return
	}
	c.future.Push(WorkItem[Op]{Tick: now + delay - 1, Op: op})
}

// Tick is the tick the callback is scheduling from.
func (c *Callback[Op]) Tick() uint64 { return c.tick.Load() }
