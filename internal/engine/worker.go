package engine

import (
	"errors"
	"fmt"
	"runtime/debug"

	"mad-engine/internal/record"
)

// ErrWorkerPanic wraps a panic recovered from a model running on a worker.
var ErrWorkerPanic = errors.New("engine: worker panic")

// Worker owns one goroutine running a model against its WorkerContext.
// Scan, WaitForPreviousScan and Join must only be called from the control
// goroutine.
type Worker[Op Operation, R record.Row] struct {
	ctx   *WorkerContext[Op, R]
	model Model[Op, R]

	start  chan Phase
	done   chan error
	exited chan struct{}

	pending bool
	joined  bool
}

// NewWorker starts the worker goroutine. It idles until the first Scan.
func NewWorker[Op Operation, R record.Row](ctx *WorkerContext[Op, R], model Model[Op, R]) *Worker[Op, R] {
	w := &Worker[Op, R]{
		ctx:    ctx,
		model:  model,
		start:  make(chan Phase, 1),
		done:   make(chan error, 1),
		exited: make(chan struct{}),
	}
	go w.run()
	return w
}

// Context returns the worker's context.
func (w *Worker[Op, R]) Context() *WorkerContext[Op, R] { return w.ctx }

// Model returns the model instance the worker runs.
func (w *Worker[Op, R]) Model() Model[Op, R] { return w.model }

// Scan waits for the previous phase and then starts phase without waiting
// for it. The error is the one returned by the previous phase, if that was
// not already collected.
func (w *Worker[Op, R]) Scan(phase Phase) error {
	err := w.WaitForPreviousScan()
	w.pending = true
	w.start <- phase
	return err
}

// WaitForPreviousScan blocks until the running phase has finished. It
// returns immediately when no phase is outstanding.
func (w *Worker[Op, R]) WaitForPreviousScan() error {
	if !w.pending {
		return nil
	}
	w.pending = false
	return <-w.done
}

// Join stops the worker goroutine and waits for it to exit.
func (w *Worker[Op, R]) Join() error {
	if w.joined {
		return nil
	}
	w.joined = true
	err := w.Scan(PhaseQuit)
	err = errors.Join(err, w.WaitForPreviousScan())
	<-w.exited
	return err
}

func (w *Worker[Op, R]) run() {
	defer close(w.exited)
	cb := w.ctx.Callback()
	sinks := w.ctx.Sinks()
	for phase := range w.start {
		w.done <- w.execute(phase, sinks, cb)
		if phase == PhaseQuit {
			return
		}
	}
}

func (w *Worker[Op, R]) execute(phase Phase, sinks Sinks[R], cb *Callback[Op]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: worker %d in %s: %v\n%s", ErrWorkerPanic, w.ctx.ID, phase, r, debug.Stack())
		}
	}()
	switch phase {
	case PhaseInitialize:
		if m, ok := w.model.(ModelInitializer[Op, R]); ok {
			m.Initialize(sinks, w.ctx.Tick(), cb)
		}
	case PhaseScan:
		w.model.Process(sinks, w.ctx.Tick(), w.ctx.WorkForThread, cb)
	case PhaseFinalize:
		if f, ok := w.model.(Finalizer[R]); ok {
			f.Finalize(sinks, w.ctx.Tick())
		}
	}
	return nil
}
