package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"mad-engine/internal/config"
)

// Size describes the dimensions of a simulation grid.
type Size struct {
	W int
	H int
}

// Cells is the number of cells covered by the size.
func (s Size) Cells() int { return s.W * s.H }

// Stats summarises one engine run.
type Stats struct {
	Workers       int
	Iterations    uint64
	TotalWork     uint64
	PartitionTime time.Duration
	Duration      time.Duration
	Err           error
}

// PartitionRatio is the share of the run spent in the single-thread
// partition step.
func (s Stats) PartitionRatio() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.PartitionTime) / float64(s.Duration)
}

func (s Stats) String() string {
	return fmt.Sprintf("Iterations: %d Total Work: %d items Partition Time: %d/%d us = %g",
		s.Iterations, s.TotalWork, s.PartitionTime.Microseconds(), s.Duration.Microseconds(), s.PartitionRatio())
}

// Sim is the runnable facade over an engine and its model. The viewer and
// the headless runner only see this contract.
type Sim interface {
	Name() string
	Size() Size
	// Start runs the engine in the background. It returns once the engine
	// is running or failed to initialize.
	Start(ctx context.Context) error
	Quit()
	// Done is closed once the engine has stopped on its own or after Quit.
	Done() <-chan struct{}
	// Wait quits, blocks until the engine stopped and returns its stats.
	Wait() Stats
	Stats() Stats
	// Snapshot copies one byte per cell into dst, growing it as needed.
	Snapshot(dst []uint8) []uint8
}

// Commander is implemented by sims that accept text commands while they
// run, such as lines typed on the headless runner's stdin.
type Commander interface {
	Command(line string) error
}

// Factory constructs a Sim from a configuration map.
type Factory func(cfg config.Map) (Sim, error)

var sims = map[string]Factory{}

// Register adds a simulation factory under the provided name.
func Register(name string, f Factory) {
	if name == "" || f == nil {
		return
	}
	sims[name] = f
}

// Sims exposes the registry of available simulation factories.
func Sims() map[string]Factory {
	return sims
}

// Names lists the registered simulations in sorted order.
func Names() []string {
	names := make([]string, 0, len(sims))
	for n := range sims {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// New looks up name and builds the simulation.
func New(name string, cfg config.Map) (Sim, error) {
	f, ok := sims[name]
	if !ok {
		return nil, fmt.Errorf("unknown sim %q (available: %v)", name, Names())
	}
	return f(cfg)
}
