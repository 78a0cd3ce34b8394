package engine

import "mad-engine/internal/record"

// ConstantWidthPartitioner routes every due item to the worker whose fixed
// range contains its index. It needs no sorting, but leaves workers idle
// when activity is clustered in a few ranges.
type ConstantWidthPartitioner[Op Operation, R record.Row] struct {
	ctx     *Context[Op, R]
	backlog []WorkItem[Op]
	due     []WorkItem[Op]
	dropped int
}

// NewConstantWidthPartitioner returns a partitioner over ctx.
func NewConstantWidthPartitioner[Op Operation, R record.Row](ctx *Context[Op, R]) *ConstantWidthPartitioner[Op, R] {
	return &ConstantWidthPartitioner[Op, R]{ctx: ctx}
}

// Backlog returns the items still waiting for their tick.
func (p *ConstantWidthPartitioner[Op, R]) Backlog() []WorkItem[Op] { return p.backlog }

// Dropped counts items whose index was outside every worker range.
func (p *ConstantWidthPartitioner[Op, R]) Dropped() int { return p.dropped }

// ConcurrentPartitionStep has nothing to do under this policy.
func (p *ConstantWidthPartitioner[Op, R]) ConcurrentPartitionStep() {}

func (p *ConstantWidthPartitioner[Op, R]) SingleThreadPartitionStep() int {
	for _, c := range p.ctx.Contexts {
		clear(c.WorkForThread)
		c.WorkForThread = c.WorkForThread[:0]
	}
	p.due = p.due[:0]
	for _, c := range p.ctx.Sources() {
		p.backlog = c.DrainFuture(p.backlog)
		p.due = c.DrainTickPlusOne(p.due)
	}

	cutoff := p.ctx.Tick() + 1
	kept := 0
	for _, item := range p.backlog {
		if item.Tick >= cutoff {
			p.backlog[kept] = item
			kept++
			continue
		}
		p.due = append(p.due, item)
	}
	clear(p.backlog[kept:])
	p.backlog = p.backlog[:kept]

	dispatched, dropped := 0, 0
	for _, item := range p.due {
		if p.route(item) {
			dispatched++
		} else {
			dropped++
		}
	}
	clear(p.due)

	if dropped > 0 {
		p.dropped += dropped
		p.ctx.Log.Debug().
			Int("dropped", dropped).
			Uint64("tick", p.ctx.Tick()).
			Log("work outside every worker range")
	}
	p.ctx.AddWork(dispatched)
	return dispatched
}

func (p *ConstantWidthPartitioner[Op, R]) route(item WorkItem[Op]) bool {
	for _, c := range p.ctx.Contexts {
		if c.PushIfInRange(item) {
			return true
		}
	}
	return false
}
