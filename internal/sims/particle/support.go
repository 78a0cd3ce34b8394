package particle

import (
	"fmt"
	"sync/atomic"

	"mad-engine/internal/core"
	"mad-engine/internal/engine"
)

// Type is the kind of particle. It only changes how a particle is drawn.
type Type uint8

const (
	Neutron Type = iota
	Electron
	Fermion
	Gluon
	Photon
)

var typeNames = [...]string{"neutron", "electron", "fermion", "gluon", "photon"}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// ParseType maps a name to its Type.
func ParseType(name string) (Type, error) {
	for i, n := range typeNames {
		if n == name {
			return Type(i), nil
		}
	}
	return 0, fmt.Errorf("particle: unknown type %q", name)
}

// Particle describes one moving body. Horizontal and Vertical give the
// direction of travel; only their ratio matters. Speed runs from 0 to
// MaxSpeed, a particle at rest between moves for MaxSpeed+1-Speed ticks.
type Particle struct {
	Name       string
	Horizontal int
	Vertical   int
	Gradient   int
	Mass       int
	Speed      int
	Type       Type
}

// MaxSpeed is the speed at which a particle moves every other tick.
const MaxSpeed = 9

// Rest is the number of ticks a particle of speed stays on a cell before
// moving on. It is never less than one.
func Rest(speed int) uint64 {
	return uint64(max(1, MaxSpeed+1-speed))
}

// Node is one cell of the box.
type Node struct {
	Particle
	Occupied bool
}

// Support owns the box. Unlike the automata grids its edges are walls: a
// particle that reaches one bounces back.
type Support struct {
	core.Torus
	Nodes []Node

	placed   []int
	launched atomic.Int64
}

// NewSupport returns an unallocated w*h box.
func NewSupport(w, h int) *Support {
	return &Support{Torus: core.NewTorus(w, h)}
}

func (s *Support) Allocate() error {
	if s.W < 2 || s.H < 2 {
		return fmt.Errorf("particle: box %dx%d is too small", s.W, s.H)
	}
	s.Nodes = make([]Node, s.Len())
	s.placed = s.placed[:0]
	return nil
}

func (s *Support) ModelSize() int { return s.Len() }

func (s *Support) Size() core.Size { return core.Size{W: s.W, H: s.H} }

// Snapshot writes 0 for an empty cell and 1 plus the particle type for an
// occupied one.
func (s *Support) Snapshot(dst []uint8) []uint8 {
	dst = dst[:0]
	for _, n := range s.Nodes {
		if n.Occupied {
			dst = append(dst, 1+uint8(n.Type))
		} else {
			dst = append(dst, 0)
		}
	}
	return dst
}

// Place puts p at rest on (x, y) before the run. It reports false when the
// cell is outside the box or already taken.
func (s *Support) Place(x, y int, p Particle) bool {
	if x < 0 || y < 0 || x >= s.W || y >= s.H {
		return false
	}
	i := y*s.W + x
	if s.Nodes[i].Occupied {
		return false
	}
	s.Nodes[i] = Node{Particle: p, Occupied: true}
	s.placed = append(s.placed, i)
	return true
}

// Placed lists the cells filled by Place since Allocate.
func (s *Support) Placed() []int { return s.placed }

// Occupancy counts the cells holding a particle.
func (s *Support) Occupancy() int {
	n := 0
	for _, node := range s.Nodes {
		if node.Occupied {
			n++
		}
	}
	return n
}

// SignalInitialCells starts every placed particle moving in the next tick.
func (s *Support) SignalInitialCells(cb *engine.Callback[Operation]) {
	for _, c := range s.placed {
		cb.Schedule(Operation{Cell: c, Kind: Propagate, Particle: Particle{Name: s.Nodes[c].Name}})
	}
}

// Launched counts the particles dropped in while the run was going.
func (s *Support) Launched() int64 { return s.launched.Load() }

// Drop schedules p to land on cell in the next tick.
func (s *Support) Drop(cb *engine.Callback[Operation], cell int, p Particle) {
	s.launched.Add(1)
	cb.Schedule(Operation{Cell: cell, Kind: Land, Particle: p})
}

// next moves one step from cell along (h, v). gradient is the running
// Bresenham error; the updated value is returned along with the target
// cell and the direction after any wall bounce.
func (s *Support) next(cell, h, v, gradient int) (target, nh, nv, ngradient int) {
	dx, dy, ngradient := step(h, v, gradient)
	x, y := s.Coords(cell)

	x, nh = bounce(x+dx, s.W, h)
	y, nv = bounce(y+dy, s.H, v)
	return y*s.W + x, nh, nv, ngradient
}

// bounce folds pos back into [0, limit) off a perfectly elastic wall and
// reverses dir when it does.
func bounce(pos, limit, dir int) (int, int) {
	switch {
	case pos >= limit:
		return limit - (pos - limit) - 1, -dir
	case pos < 0:
		return -pos, -dir
	}
	return pos, dir
}

// step is one move of Bresenham's line algorithm along (h, v). The longer
// axis always advances; the shorter one advances when gradient is positive.
func step(h, v, gradient int) (dx, dy, next int) {
	sx, sy := 1, 1
	if h < 0 {
		sx = -1
	}
	if v < 0 {
		sy = -1
	}
	ah, av := abs(h), abs(v)
	wide := ah > av
	base, rise := av, ah
	if wide {
		base, rise = ah, av
	}

	if gradient > 0 {
		return sx, sy, gradient + rise - base
	}
	if wide {
		return sx, 0, gradient + rise
	}
	return 0, sy, gradient + rise
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
