package engine

import (
	"mad-engine/internal/config"
	"mad-engine/internal/diag"
	"mad-engine/internal/record"
)

// Carrier wraps the shared model storage.
type Carrier interface {
	// Allocate prepares the storage. It runs once, before any worker starts.
	Allocate() error
	// ModelSize is the number of addressable indices.
	ModelSize() int
}

// Sinks are the per-worker diagnostic outputs handed to model hooks.
type Sinks[R record.Row] struct {
	Log    *diag.Logger
	Record *record.Recorder[R]
}

// Model is the per-worker model implementation. Process runs once per tick
// over the work assigned to this worker. It may write to the storage at any
// index in work without synchronisation.
type Model[Op Operation, R record.Row] interface {
	Process(s Sinks[R], tick uint64, work []WorkItem[Op], cb *Callback[Op])
}

// InputStreamer is implemented by models that bring in work from outside
// the worker pool. It is called once per tick on the control goroutine,
// against the external work source.
type InputStreamer[Op Operation, R record.Row] interface {
	StreamNewInput(s Sinks[R], tick uint64, cb *Callback[Op])
}

// ModelInitializer is implemented by models that set up shared state once
// the workers exist. Only the first worker's instance is called, before the
// first tick. Work it schedules runs in tick 1.
type ModelInitializer[Op Operation, R record.Row] interface {
	Initialize(s Sinks[R], tick uint64, cb *Callback[Op])
}

// Finalizer is implemented by models that need a hook at shutdown.
type Finalizer[R record.Row] interface {
	Finalize(s Sinks[R], tick uint64)
}

// ModelFactory builds the model instance for one worker.
type ModelFactory[Op Operation, R record.Row] func(workerID int, carrier Carrier, cfg config.Map) (Model[Op, R], error)
