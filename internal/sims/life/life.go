// Package life runs Conway's Game of Life on the engine. Only cells next to
// a change are evaluated: an Evaluate tick computes the next state of a cell
// and a Propagate tick one later commits it and wakes the neighbourhood.
package life

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"mad-engine/internal/config"
	"mad-engine/internal/engine"
)

// Kind is the operation a cell receives.
type Kind uint8

const (
	Evaluate Kind = iota
	Propagate
)

func (k Kind) String() string {
	if k == Propagate {
		return "propagate"
	}
	return "evaluate"
}

// Operation targets one cell.
type Operation struct {
	Cell int
	Kind Kind
}

func (o Operation) Index() int { return o.Cell }

// Header names the record columns.
var Header = []string{"Life-Event-Type", "Life-Index", "Life-Alive"}

// Record is written for every committed change.
type Record struct {
	Kind  Kind
	Cell  int
	Alive bool
}

func (r Record) Format() []string {
	alive := "0"
	if r.Alive {
		alive = "1"
	}
	return []string{strconv.Itoa(int(r.Kind)), strconv.Itoa(r.Cell), alive}
}

// rules maps a 3x3 bit pattern, centre at bit 4, to the next centre state.
var rules = func() (t [512]bool) {
	for p := range t {
		alive := p&0x10 != 0
		switch n := popcount(p &^ 0x10); {
		case n == 3:
			t[p] = true
		case n == 2:
			t[p] = alive
		}
	}
	return t
}()

func popcount(v int) int {
	n := 0
	for ; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Implementation is the per-worker Life model.
type Implementation struct {
	id      int
	support *Support
	local   []engine.WorkItem[Operation]
}

// NewImplementation returns the model for worker id over support.
func NewImplementation(id int, support *Support) *Implementation {
	return &Implementation{id: id, support: support}
}

// Factory builds an Implementation for the engine.
func Factory(id int, carrier engine.Carrier, _ config.Map) (engine.Model[Operation, Record], error) {
	s, ok := carrier.(*Support)
	if !ok {
		return nil, fmt.Errorf("life: carrier is %T, want *life.Support", carrier)
	}
	return NewImplementation(id, s), nil
}

func compareOp(a, b engine.WorkItem[Operation]) int {
	if n := cmp.Compare(a.Op.Cell, b.Op.Cell); n != 0 {
		return n
	}
	return cmp.Compare(a.Op.Kind, b.Op.Kind)
}

// Process runs each distinct operation once. Neighbours schedule the same
// evaluation many times over, so duplicates are the norm.
func (m *Implementation) Process(s engine.Sinks[Record], tick uint64, work []engine.WorkItem[Operation], cb *engine.Callback[Operation]) {
	if len(work) == 0 {
		return
	}
	m.local = append(m.local[:0], work...)
	slices.SortFunc(m.local, compareOp)
	m.local = slices.CompactFunc(m.local, func(a, b engine.WorkItem[Operation]) bool { return a.Op == b.Op })

	for _, item := range m.local {
		switch item.Op.Kind {
		case Evaluate:
			m.evaluate(s, item.Op.Cell, cb)
		case Propagate:
			m.propagate(s, item.Op.Cell, cb)
		}
	}
	clear(m.local)
}

func (m *Implementation) evaluate(s engine.Sinks[Record], cell int, cb *engine.Callback[Operation]) {
	nodes := m.support.Nodes
	pattern := 0
	m.support.Neighborhood(cell, func(bit, idx int) {
		if nodes[idx].Alive {
			pattern |= 1 << bit
		}
	})
	next := rules[pattern]
	n := &nodes[cell]
	if n.Alive == next {
		return
	}
	n.AliveNextTick = next
	s.Log.Trace().Int("cell", cell).Bool("alive", next).Log("evaluated")
	cb.Schedule(Operation{Cell: cell, Kind: Propagate})
}

func (m *Implementation) propagate(s engine.Sinks[Record], cell int, cb *engine.Callback[Operation]) {
	n := &m.support.Nodes[cell]
	n.Alive = n.AliveNextTick
	s.Record.Record(Record{Kind: Propagate, Cell: cell, Alive: n.Alive})
	m.support.Neighborhood(cell, func(_, idx int) {
		cb.Schedule(Operation{Cell: idx, Kind: Evaluate})
	})
}
