package engine

import (
	"runtime"

	"mad-engine/internal/record"
)

// AdaptiveWidthPartitioner sorts the due work by index and deals it out in
// equal-sized contiguous segments, so busy regions are spread over every
// worker regardless of where they are in the model.
type AdaptiveWidthPartitioner[Op Operation, R record.Row] struct {
	ctx *Context[Op, R]

	// totalSourceWork holds every collected item that is not due yet.
	totalSourceWork []WorkItem[Op]
	// workForNextTick stages the items that will run in the next tick.
	workForNextTick []WorkItem[Op]

	sorter indexSorter[Op]
}

// NewAdaptiveWidthPartitioner returns a partitioner over ctx.
func NewAdaptiveWidthPartitioner[Op Operation, R record.Row](ctx *Context[Op, R]) *AdaptiveWidthPartitioner[Op, R] {
	return &AdaptiveWidthPartitioner[Op, R]{
		ctx:    ctx,
		sorter: indexSorter[Op]{parts: min(ctx.WorkerCount, runtime.GOMAXPROCS(0))},
	}
}

// Backlog returns the items still waiting for their tick.
func (p *AdaptiveWidthPartitioner[Op, R]) Backlog() []WorkItem[Op] { return p.totalSourceWork }

// Staged returns the items collected for the next tick so far.
func (p *AdaptiveWidthPartitioner[Op, R]) Staged() []WorkItem[Op] { return p.workForNextTick }

func (p *AdaptiveWidthPartitioner[Op, R]) ConcurrentPartitionStep() {
	p.AccumulateWorkFromAllWorkers()
	cut := p.FindCutoffPoint(p.ctx.Tick() + 1)
	p.workForNextTick = append(p.workForNextTick, p.totalSourceWork[:cut]...)
	n := copy(p.totalSourceWork, p.totalSourceWork[cut:])
	clear(p.totalSourceWork[n:])
	p.totalSourceWork = p.totalSourceWork[:n]
}

func (p *AdaptiveWidthPartitioner[Op, R]) SingleThreadPartitionStep() int {
	p.AccumulateWorkForNextTick()
	n := len(p.workForNextTick)
	p.sorter.sort(p.workForNextTick)
	p.CaptureWorkForEachThread()

	clear(p.workForNextTick)
	p.workForNextTick = p.workForNextTick[:0]
	p.ctx.AddWork(n)
	return n
}

// AccumulateWorkFromAllWorkers drains the partitioner-owned future buffer of
// every worker and of the external source into the backlog.
func (p *AdaptiveWidthPartitioner[Op, R]) AccumulateWorkFromAllWorkers() {
	for _, c := range p.ctx.Sources() {
		p.totalSourceWork = c.DrainFuture(p.totalSourceWork)
	}
}

// AccumulateWorkForNextTick drains every WorkForTickPlusOne list into the
// staging list. Only valid once the workers have stopped.
func (p *AdaptiveWidthPartitioner[Op, R]) AccumulateWorkForNextTick() {
	for _, c := range p.ctx.Sources() {
		p.workForNextTick = c.DrainTickPlusOne(p.workForNextTick)
	}
}

// FindCutoffPoint reorders the backlog in place so every item with a tick
// before cutoff comes first, and returns how many there are.
func (p *AdaptiveWidthPartitioner[Op, R]) FindCutoffPoint(cutoff uint64) int {
	work := p.totalSourceWork
	due := 0
	for i := range work {
		if work[i].Tick < cutoff {
			work[due], work[i] = work[i], work[due]
			due++
		}
	}
	return due
}

// CaptureWorkForEachThread assigns the sorted staging list to the workers.
// Each worker gets a segment of n/W items, at least one, extended so that a
// run of equal indices is never split. The last worker takes the rest.
func (p *AdaptiveWidthPartitioner[Op, R]) CaptureWorkForEachThread() {
	work := p.workForNextTick
	workers := p.ctx.Contexts
	size := max(1, len(work)/len(workers))
	begin := 0
	for i, c := range workers {
		end := findSegmentEnd(work, begin, size, i == len(workers)-1)
		clear(c.WorkForThread)
		c.WorkForThread = append(c.WorkForThread[:0], work[begin:end]...)
		begin = end
	}
}

func findSegmentEnd[Op Operation](work []WorkItem[Op], begin, size int, last bool) int {
	n := len(work)
	if last || begin+size >= n {
		return n
	}
	end := begin + size
	for end < n && work[end].Op.Index() == work[end-1].Op.Index() {
		end++
	}
	return end
}
