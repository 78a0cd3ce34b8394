package engine

import (
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"mad-engine/internal/diag"
	"mad-engine/internal/record"
)

// WorkerContext is the state of one worker, or of the external work source.
//
// WorkForThread is written by the partitioner before the worker is started
// and only read while it runs. WorkForTickPlusOne is written by the owning
// worker while it runs and drained by the partitioner after the barrier. The
// future buffers are reached only through the handles of the current flip.
type WorkerContext[Op Operation, R record.Row] struct {
	ID         int
	RangeBegin int
	RangeEnd   int

	WorkForThread      []WorkItem[Op]
	WorkForTickPlusOne []WorkItem[Op]

	Log    *diag.Logger
	Record *record.Recorder[R]

	tick    *atomic.Uint64
	buffers BufferPair[WorkItem[Op]]
	future  Producer[WorkItem[Op]]
	backlog Consumer[WorkItem[Op]]
}

// NewWorkerContext returns a context covering [begin, end) that reads the
// current tick from tick.
func NewWorkerContext[Op Operation, R record.Row](id, begin, end int, tick *atomic.Uint64) *WorkerContext[Op, R] {
	c := &WorkerContext[Op, R]{ID: id, RangeBegin: begin, RangeEnd: end, tick: tick}
	c.Flip()
	return c
}

// Tick is the tick currently executing.
func (c *WorkerContext[Op, R]) Tick() uint64 { return c.tick.Load() }

// Flip hands the buffer the worker filled during this tick to the
// partitioner and gives the worker the drained one.
func (c *WorkerContext[Op, R]) Flip() {
	c.future, c.backlog = c.buffers.Flip()
}

// InRange reports whether index lies in [RangeBegin, RangeEnd).
func (c *WorkerContext[Op, R]) InRange(index int) bool {
	return index >= c.RangeBegin && index < c.RangeEnd
}

// PushIfInRange appends item to WorkForThread when its index is in range.
func (c *WorkerContext[Op, R]) PushIfInRange(item WorkItem[Op]) bool {
	if !c.InRange(item.Op.Index()) {
		return false
	}
	c.WorkForThread = append(c.WorkForThread, item)
	return true
}

// DrainFuture moves the partitioner-owned future buffer into dst.
func (c *WorkerContext[Op, R]) DrainFuture(dst []WorkItem[Op]) []WorkItem[Op] {
	return c.backlog.DrainInto(dst)
}

// DrainTickPlusOne moves WorkForTickPlusOne into dst.
func (c *WorkerContext[Op, R]) DrainTickPlusOne(dst []WorkItem[Op]) []WorkItem[Op] {
	dst = append(dst, c.WorkForTickPlusOne...)
	clear(c.WorkForTickPlusOne)
	c.WorkForTickPlusOne = c.WorkForTickPlusOne[:0]
	return dst
}

// Pending counts items queued by this context that the partitioner has not
// collected yet.
func (c *WorkerContext[Op, R]) Pending() int {
	return len(c.WorkForTickPlusOne) + c.future.Len() + c.backlog.Len()
}

// Callback returns a scheduling capability bound to this context.
func (c *WorkerContext[Op, R]) Callback() *Callback[Op] {
	return &Callback[Op]{tick: c.tick, plusOne: &c.WorkForTickPlusOne, future: &c.future}
}

// Sinks returns the log and record sinks of this context.
func (c *WorkerContext[Op, R]) Sinks() Sinks[R] {
	return Sinks[R]{Log: c.Log, Record: c.Record}
}

// Context is the state of one engine run.
type Context[Op Operation, R record.Row] struct {
	WorkerCount int
	Period      time.Duration
	Journal     *diag.Journal
	Book        *record.Book[R]

	// Log is the control goroutine's logger (id 0).
	Log *diag.Logger

	// Contexts are the worker contexts in range order.
	Contexts []*WorkerContext[Op, R]
	// External receives work injected from outside the pool.
	External *WorkerContext[Op, R]
	sources  []*WorkerContext[Op, R]

	tick          atomic.Uint64
	totalWork     atomic.Uint64
	partitionTime atomic.Int64

	quit     chan struct{}
	quitOnce sync.Once

	// partitionMu keeps injectors out of the partitioner's state while a
	// tick is in progress.
	partitionMu sync.Mutex
}

// NewContext returns a context for workerCount workers. Non-positive
// counts select one worker.
func NewContext[Op Operation, R record.Row](workerCount int, period time.Duration, journal *diag.Journal, book *record.Book[R]) *Context[Op, R] {
	if workerCount < 1 {
		workerCount = 1
	}
	if journal == nil {
		journal = diag.NewJournal(diag.ParseLevel(diag.LevelNone))
	}
	c := &Context[Op, R]{
		WorkerCount: workerCount,
		Period:      period,
		Journal:     journal,
		Book:        book,
		quit:        make(chan struct{}),
	}
	c.Log = journal.Logger(0)
	return c
}

// CreateContexts splits [0, modelSize) into WorkerCount contiguous ranges.
// Worker ids run from 1; the last worker also takes the remainder. The
// external source gets id WorkerCount+1 and the full range.
func (c *Context[Op, R]) CreateContexts(modelSize int) {
	segment := modelSize / c.WorkerCount
	c.Contexts = make([]*WorkerContext[Op, R], 0, c.WorkerCount)
	begin := 0
	for i := range c.WorkerCount {
		end := begin + segment
		if i == c.WorkerCount-1 {
			end = modelSize
		}
		c.Contexts = append(c.Contexts, c.newWorkerContext(i+1, begin, end))
		begin = end
	}
	c.External = c.newWorkerContext(c.WorkerCount+1, 0, modelSize)
	c.sources = append(slices.Clip(c.Contexts), c.External)
}

func (c *Context[Op, R]) newWorkerContext(id, begin, end int) *WorkerContext[Op, R] {
	wc := NewWorkerContext[Op, R](id, begin, end, &c.tick)
	wc.Log = c.Journal.Logger(id)
	if c.Book != nil {
		wc.Record = c.Book.Recorder(wc.Tick)
	}
	return wc
}

// Sources returns every context that produces work, the external source last.
func (c *Context[Op, R]) Sources() []*WorkerContext[Op, R] { return c.sources }

// Tick is the tick currently executing.
func (c *Context[Op, R]) Tick() uint64 { return c.tick.Load() }

func (c *Context[Op, R]) advance() { c.tick.Add(1) }

// AddWork accumulates the number of dispatched work items.
func (c *Context[Op, R]) AddWork(n int) {
	if n > 0 {
		c.totalWork.Add(uint64(n))
	}
}

// TotalWork is the number of work items dispatched so far.
func (c *Context[Op, R]) TotalWork() uint64 { return c.totalWork.Load() }

// PartitionTime is the time spent in single-thread partition steps that
// produced work.
func (c *Context[Op, R]) PartitionTime() time.Duration {
	return time.Duration(c.partitionTime.Load())
}

func (c *Context[Op, R]) addPartitionTime(d time.Duration) { c.partitionTime.Add(int64(d)) }

// Quit requests shutdown. It is safe to call more than once.
func (c *Context[Op, R]) Quit() {
	c.quitOnce.Do(func() { close(c.quit) })
}

// Done is closed once Quit was called.
func (c *Context[Op, R]) Done() <-chan struct{} { return c.quit }

// Quitting reports whether Quit was called.
func (c *Context[Op, R]) Quitting() bool {
	select {
	case <-c.quit:
		return true
	default:
		return false
	}
}
