package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/diag"
	"mad-engine/internal/record"
)

var (
	// ErrInitialize wraps every initialization failure returned by Run.
	ErrInitialize = errors.New("engine: initialization failed")
	// ErrStarted is returned by Run when the engine was already started.
	ErrStarted = errors.New("engine: already started")
	// ErrNotRunning is returned by Inject before the workers exist.
	ErrNotRunning = errors.New("engine: not running")
)

// Options are the optional hooks of an Engine.
type Options[Op Operation] struct {
	// Setup runs once after the carrier was allocated and before the
	// workers are created.
	Setup func() error
	// Inject enqueues the first wave of work. It runs under the
	// partitioning lock before the first tick.
	Inject func(cb *Callback[Op])
	// Header names the record columns written by the models.
	Header []string
	// Echo receives every journal line as it is logged.
	Echo io.Writer
	// Waiter replaces the fixed-period waiter. The engine still applies
	// Config.TickLimit on top of it.
	Waiter func(quit <-chan struct{}) Waiter
}

// Engine drives a model across a pool of workers, one tick at a time.
type Engine[Op Operation, R record.Row] struct {
	cfg      Config
	carrier  Carrier
	factory  ModelFactory[Op, R]
	modelCfg config.Map
	opts     Options[Op]

	ctx         *Context[Op, R]
	partitioner Partitioner
	waiter      Waiter
	workers     []*Worker[Op, R]
	external    Model[Op, R]
	externalCb  *Callback[Op]
	initialized atomic.Bool

	state    atomic.Int32
	started  atomic.Bool
	initDone chan struct{}
	stopped  chan struct{}
	stopCtx  func() bool

	mu       sync.Mutex
	begin    time.Time
	duration time.Duration
	err      error
}

// New prepares an engine. Nothing runs until Run is called.
func New[Op Operation, R record.Row](carrier Carrier, factory ModelFactory[Op, R], modelCfg config.Map, cfg Config, opts Options[Op]) *Engine[Op, R] {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkerCount()
	}
	var jopts []diag.Option
	if opts.Echo != nil {
		jopts = append(jopts, diag.WithEcho(opts.Echo))
	}
	journal := diag.NewJournal(diag.ParseLevel(cfg.LogLevel), jopts...)
	book := record.NewBook[R](opts.Header)

	e := &Engine[Op, R]{
		cfg:      cfg,
		carrier:  carrier,
		factory:  factory,
		modelCfg: modelCfg,
		opts:     opts,
		ctx:      NewContext[Op, R](cfg.Workers, cfg.Period, journal, book),
		initDone: make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	e.partitioner = NewPartitioner(cfg.Policy, e.ctx)
	return e
}

// Context exposes the run state, mostly for tests and diagnostics.
func (e *Engine[Op, R]) Context() *Context[Op, R] { return e.ctx }

// Journal is the run's log aggregator.
func (e *Engine[Op, R]) Journal() *diag.Journal { return e.ctx.Journal }

// Book is the run's record aggregator.
func (e *Engine[Op, R]) Book() *record.Book[R] { return e.ctx.Book }

// State reports the lifecycle position.
func (e *Engine[Op, R]) State() State { return State(e.state.Load()) }

func (e *Engine[Op, R]) setState(s State) { e.state.Store(int32(s)) }

// WorkerCount is the number of workers the engine runs.
func (e *Engine[Op, R]) WorkerCount() int { return e.ctx.WorkerCount }

// Iterations is the number of completed ticks.
func (e *Engine[Op, R]) Iterations() uint64 { return e.ctx.Tick() }

// TotalWork is the number of work items dispatched so far.
func (e *Engine[Op, R]) TotalWork() uint64 { return e.ctx.TotalWork() }

// Run starts the control goroutine and blocks until the engine is running.
// When initialization fails Run waits for the drain and returns an error
// wrapping ErrInitialize; no tick runs in that case. Cancelling ctx
// requests a quit.
func (e *Engine[Op, R]) Run(ctx context.Context) error {
	if !e.started.CompareAndSwap(false, true) {
		return ErrStarted
	}
	e.stopCtx = context.AfterFunc(ctx, e.Quit)
	go e.loop()

	<-e.initDone
	if !e.initialized.Load() {
		<-e.stopped
		return e.Err()
	}
	return nil
}

// Quit asks the engine to stop after the tick in progress.
func (e *Engine[Op, R]) Quit() { e.ctx.Quit() }

// WaitForQuit quits, waits until every worker has been joined and the
// output flushed, and returns the run statistics.
func (e *Engine[Op, R]) WaitForQuit() core.Stats {
	e.Quit()
	if e.started.Load() {
		<-e.stopped
	}
	return e.Stats()
}

// Done is closed once the engine has stopped.
func (e *Engine[Op, R]) Done() <-chan struct{} { return e.stopped }

// Err returns the sticky initialization or runtime error, if any.
func (e *Engine[Op, R]) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *Engine[Op, R]) fail(err error) {
	if err == nil {
		return
	}
	e.mu.Lock()
	e.err = errors.Join(e.err, err)
	e.mu.Unlock()
}

// Duration is the wall time since the run started, or the full run time
// once it stopped.
func (e *Engine[Op, R]) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.begin.IsZero() {
		return 0
	}
	if e.State() == StateStopped {
		return e.duration
	}
	return time.Since(e.begin)
}

// Stats summarises the run so far.
func (e *Engine[Op, R]) Stats() core.Stats {
	return core.Stats{
		Workers:       e.ctx.WorkerCount,
		Iterations:    e.ctx.Tick(),
		TotalWork:     e.ctx.TotalWork(),
		PartitionTime: e.ctx.PartitionTime(),
		Duration:      e.Duration(),
		Err:           e.Err(),
	}
}

// Inject runs fn with a callback on the external work source. It holds the
// partitioning lock, so fn runs between ticks.
func (e *Engine[Op, R]) Inject(fn func(cb *Callback[Op])) error {
	if !e.initialized.Load() || e.State() >= StateDraining {
		return ErrNotRunning
	}
	e.ctx.partitionMu.Lock()
	defer e.ctx.partitionMu.Unlock()
	fn(e.externalCb)
	return nil
}

// Inspect runs fn between ticks, while no worker is writing the model.
func (e *Engine[Op, R]) Inspect(fn func()) {
	e.ctx.partitionMu.Lock()
	defer e.ctx.partitionMu.Unlock()
	fn()
}

func (e *Engine[Op, R]) loop() {
	defer close(e.stopped)

	e.mu.Lock()
	e.begin = time.Now()
	e.mu.Unlock()

	e.setState(StateInitializing)
	if err := e.initialize(); err != nil {
		err = fmt.Errorf("%w: %w", ErrInitialize, err)
		e.ctx.Log.Err().Err(err).Log("engine initialization failed")
		e.fail(err)
		close(e.initDone)
		e.drain()
		return
	}
	e.initialized.Store(true)
	e.setState(StateRunning)
	close(e.initDone)

	if err := e.runTicks(); err != nil {
		e.ctx.Log.Err().Err(err).Uint64("tick", e.ctx.Tick()).Log("engine stopped unexpectedly")
		e.fail(err)
	}
	e.drain()
}

func (e *Engine[Op, R]) initialize() error {
	if err := e.carrier.Allocate(); err != nil {
		return fmt.Errorf("allocate model: %w", err)
	}
	size := e.carrier.ModelSize()
	if size <= 0 {
		return fmt.Errorf("model size %d", size)
	}
	if e.opts.Setup != nil {
		if err := e.opts.Setup(); err != nil {
			return fmt.Errorf("model setup: %w", err)
		}
	}
	if err := e.createWorkers(size); err != nil {
		return err
	}
	if err := e.initializeModel(); err != nil {
		return err
	}

	if e.opts.Waiter != nil {
		e.waiter = e.opts.Waiter(e.ctx.Done())
	} else {
		e.waiter = NewConstantTickWaiter(e.cfg.Period, e.ctx.Done())
	}
	if e.cfg.TickLimit > 0 {
		e.waiter = &TickLimitWaiter{Inner: e.waiter, Limit: e.cfg.TickLimit, Ticks: e.ctx.Tick}
	}

	if inject := e.opts.Inject; inject != nil {
		e.ctx.partitionMu.Lock()
		inject(e.externalCb)
		e.ctx.partitionMu.Unlock()
	}

	e.ctx.Log.Info().
		Int("workers", e.ctx.WorkerCount).
		Int("size", size).
		Str("policy", string(e.cfg.Policy)).
		Dur("period", e.cfg.Period).
		Log("engine initialized")
	return nil
}

// createWorkers assigns the index ranges and starts one goroutine per
// worker. The external source gets a model instance of its own, owned by
// the control goroutine.
func (e *Engine[Op, R]) createWorkers(size int) error {
	e.ctx.CreateContexts(size)
	for _, c := range e.ctx.Contexts {
		m, err := e.factory(c.ID, e.carrier, e.modelCfg)
		if err != nil {
			return fmt.Errorf("create model for worker %d: %w", c.ID, err)
		}
		e.workers = append(e.workers, NewWorker(c, m))
	}
	m, err := e.factory(e.ctx.External.ID, e.carrier, e.modelCfg)
	if err != nil {
		return fmt.Errorf("create model for external source: %w", err)
	}
	e.external = m
	e.externalCb = e.ctx.External.Callback()
	return nil
}

// initializeModel runs the first worker's Initialize hook, if its model has
// one, and waits for it.
func (e *Engine[Op, R]) initializeModel() error {
	w := e.workers[0]
	if _, ok := w.Model().(ModelInitializer[Op, R]); !ok {
		return nil
	}
	e.ctx.partitionMu.Lock()
	defer e.ctx.partitionMu.Unlock()
	if err := w.Scan(PhaseInitialize); err != nil {
		return err
	}
	if err := w.WaitForPreviousScan(); err != nil {
		return fmt.Errorf("model initialize: %w", err)
	}
	return nil
}

func (e *Engine[Op, R]) runTicks() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("engine: control loop panic: %v", r)
		}
	}()
	for !e.waiter.WaitForWorkOrQuit() {
		if err := e.runTick(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine[Op, R]) runTick() error {
	e.ctx.partitionMu.Lock()
	defer e.ctx.partitionMu.Unlock()

	tick := e.ctx.Tick()
	e.ctx.Log.Trace().Uint64("tick", tick).Log("starting workers")
	for _, w := range e.workers {
		if err := w.Scan(PhaseScan); err != nil {
			return err
		}
	}

	e.partitioner.ConcurrentPartitionStep()
	e.streamNewInput(tick)

	var errs []error
	for _, w := range e.workers {
		if err := w.WaitForPreviousScan(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	start := time.Now()
	if n := e.partitioner.SingleThreadPartitionStep(); n > 0 {
		elapsed := time.Since(start)
		e.ctx.addPartitionTime(elapsed)
		e.ctx.Log.Trace().Uint64("tick", tick).Int("work", n).Dur("partition", elapsed).Log("partitioned next tick")
	}

	for _, c := range e.ctx.Sources() {
		c.Flip()
	}
	e.ctx.advance()
	return nil
}

func (e *Engine[Op, R]) streamNewInput(tick uint64) {
	if s, ok := e.external.(InputStreamer[Op, R]); ok {
		s.StreamNewInput(e.ctx.External.Sinks(), tick, e.externalCb)
	}
}

func (e *Engine[Op, R]) drain() {
	e.setState(StateDraining)

	if e.initialized.Load() && len(e.workers) > 0 {
		w := e.workers[0]
		if err := w.Scan(PhaseFinalize); err != nil {
			e.fail(err)
		}
		if err := w.WaitForPreviousScan(); err != nil {
			e.ctx.Log.Err().Err(err).Log("finalize failed")
			e.fail(err)
		}
	}

	var g errgroup.Group
	for _, w := range e.workers {
		g.Go(w.Join)
	}
	if err := g.Wait(); err != nil {
		e.ctx.Log.Err().Err(err).Log("worker join reported an error")
		e.fail(err)
	}

	e.mu.Lock()
	e.duration = time.Since(e.begin)
	e.mu.Unlock()
	e.setState(StateStopped)

	stats := e.Stats()
	e.ctx.Log.Info().
		Uint64("iterations", stats.Iterations).
		Uint64("work", stats.TotalWork).
		Dur("partition", stats.PartitionTime).
		Dur("elapsed", stats.Duration).
		Log(stats.String())

	if err := e.ctx.Book.Flush(e.cfg.RecordFile); err != nil {
		e.ctx.Log.Err().Err(err).Str("path", e.cfg.RecordFile).Log("record flush failed")
		e.fail(err)
	}
	if err := e.ctx.Journal.Flush(e.cfg.LogFile); err != nil {
		e.fail(err)
	}
	if e.stopCtx != nil {
		e.stopCtx()
	}
}
