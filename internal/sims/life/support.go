package life

import (
	"fmt"

	"mad-engine/internal/core"
	"mad-engine/internal/engine"
)

// Node is one cell. Alive is read by neighbours during evaluation ticks and
// written only by the owning cell's propagation.
type Node struct {
	Alive         bool
	AliveNextTick bool
}

// Support owns the shared grid and the pattern helpers used to seed it.
type Support struct {
	core.Torus
	Nodes []Node

	seeded []int
}

// NewSupport returns an unallocated w*h grid.
func NewSupport(w, h int) *Support {
	return &Support{Torus: core.NewTorus(w, h)}
}

// Allocate creates the nodes. It must run before any other method that
// touches the grid.
func (s *Support) Allocate() error {
	if s.Len() <= 0 {
		return fmt.Errorf("life: empty grid %dx%d", s.W, s.H)
	}
	s.Nodes = make([]Node, s.Len())
	s.seeded = s.seeded[:0]
	return nil
}

func (s *Support) ModelSize() int { return s.Len() }

func (s *Support) Size() core.Size { return core.Size{W: s.W, H: s.H} }

// Snapshot writes 1 for every live cell and 0 otherwise.
func (s *Support) Snapshot(dst []uint8) []uint8 {
	dst = dst[:0]
	for _, n := range s.Nodes {
		if n.Alive {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// Alive reports the state of the cell at (x, y).
func (s *Support) Alive(x, y int) bool { return s.Nodes[s.Index(x, y)].Alive }

// Seed marks the cells alive and remembers them for SignalInitialCells.
func (s *Support) Seed(cells ...int) {
	for _, c := range cells {
		s.Nodes[c].Alive = true
	}
	s.seeded = append(s.seeded, cells...)
}

// Seeded lists the cells brought to life since Allocate.
func (s *Support) Seeded() []int { return s.seeded }

// MakeGlider seeds a glider whose top row is centred on center.
func (s *Support) MakeGlider(center int) {
	s.Seed(
		s.Offset(center, -1, 0),
		center,
		s.Offset(center, 1, 0),
		s.Offset(center, 1, 1),
		s.Offset(center, 0, 2),
	)
}

// MakeBlinker seeds a horizontal period-2 oscillator centred on center.
func (s *Support) MakeBlinker(center int) {
	s.Seed(s.Offset(center, -1, 0), center, s.Offset(center, 1, 0))
}

// RandomSoup brings one in oneIn cells to life.
func (s *Support) RandomSoup(seed int64, oneIn int) {
	s.Seed(core.NewRNG(seed).Indices(s.Len(), oneIn)...)
}

// Center is the index in the middle of the grid.
func (s *Support) Center() int { return s.Index(s.W/2, s.H/2) }

// SignalInitialCells asks every cell around a seeded one to evaluate in the
// next tick.
func (s *Support) SignalInitialCells(cb *engine.Callback[Operation]) {
	for _, c := range s.seeded {
		s.Neighborhood(c, func(_, idx int) {
			cb.Schedule(Operation{Cell: idx, Kind: Evaluate})
		})
	}
}
