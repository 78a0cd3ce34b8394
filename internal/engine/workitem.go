// Package engine runs index-addressable models one tick at a time across a
// fixed pool of worker goroutines.
//
// Every tick the control goroutine starts all workers, partitions the pending
// backlog in parallel with them, waits for the barrier, assigns the next
// tick's work as non-overlapping index segments and flips the future-work
// buffers. Models may write to the index of any work item they were handed
// without locking, because no index is ever assigned to two workers in the
// same tick.
package engine

// Operation is a model-defined unit of work that targets one model index.
type Operation interface {
	Index() int
}

// WorkItem pairs an operation with the tick it was scheduled for. Items are
// only ordered by Tick.
type WorkItem[Op Operation] struct {
	Tick uint64
	Op   Op
}

// Phase is the code a worker is asked to run.
type Phase int

const (
	// PhaseNone is the zero value and is never sent to a worker.
	PhaseNone Phase = iota
	PhaseInitialize
	PhaseScan
	PhaseFinalize
	PhaseQuit
)

func (p Phase) String() string {
	switch p {
	case PhaseNone:
		return "none"
	case PhaseInitialize:
		return "initialize"
	case PhaseScan:
		return "scan"
	case PhaseFinalize:
		return "finalize"
	case PhaseQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// State is the lifecycle position of an Engine.
type State int32

const (
	StateIdle State = iota
	StateInitializing
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
