// Package briansbrain runs Brian's Brain on the engine. Like life it is
// event driven: cells are evaluated only after something around them
// changed, and the result is committed one tick later.
package briansbrain

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
)

// Cell states, also the snapshot values.
const (
	StateDead  uint8 = 0
	StateOn    uint8 = 1
	StateDying uint8 = 2
)

// Kind is the operation a cell receives.
type Kind uint8

const (
	Evaluate Kind = iota
	Commit
)

// Operation targets one cell.
type Operation struct {
	Cell int
	Kind Kind
}

func (o Operation) Index() int { return o.Cell }

// Header names the record columns.
var Header = []string{"Brain-Index", "Brain-State"}

// Record is written for every committed state.
type Record struct {
	Cell  int
	State uint8
}

func (r Record) Format() []string {
	return []string{strconv.Itoa(r.Cell), strconv.Itoa(int(r.State))}
}

// Brain holds the current states in a ByteGrid and the pending ones beside
// it. The grid is only written by commits and only read by evaluations.
type Brain struct {
	*core.ByteGrid
	next   []uint8
	w, h   int
	seeded []int
}

// New returns an unallocated w*h brain.
func New(w, h int) *Brain {
	return &Brain{w: w, h: h}
}

func (b *Brain) Allocate() error {
	if b.w <= 0 || b.h <= 0 {
		return fmt.Errorf("briansbrain: empty grid %dx%d", b.w, b.h)
	}
	b.ByteGrid = core.NewByteGrid(b.w, b.h)
	b.next = make([]uint8, b.Len())
	b.seeded = b.seeded[:0]
	return nil
}

func (b *Brain) ModelSize() int { return b.w * b.h }

func (b *Brain) Size() core.Size { return core.Size{W: b.w, H: b.h} }

// State returns the committed state at (x, y).
func (b *Brain) State(x, y int) uint8 { return b.Cells()[b.Index(x, y)] }

func (b *Brain) Snapshot(dst []uint8) []uint8 {
	if b.ByteGrid == nil {
		return dst[:0]
	}
	return append(dst[:0], b.Cells()...)
}

// Fire turns the cells on and remembers them for the first evaluation.
func (b *Brain) Fire(cells ...int) {
	for _, c := range cells {
		b.Cells()[c] = StateOn
		b.next[c] = StateOn
	}
	b.seeded = append(b.seeded, cells...)
}

// Reset fires one in eight cells, chosen from seed.
func (b *Brain) Reset(seed int64) {
	b.Fire(core.NewRNG(seed).Indices(b.Len(), 8)...)
}

// Pair fires two horizontally adjacent cells in the middle of the grid.
func (b *Brain) Pair() {
	c := b.Index(b.w/2, b.h/2)
	b.Fire(c, b.Offset(c, 1, 0))
}

// SignalInitialCells asks every cell around a fired one to evaluate.
func (b *Brain) SignalInitialCells(cb *engine.Callback[Operation]) {
	for _, c := range b.seeded {
		b.Neighborhood(c, func(_, idx int) {
			cb.Schedule(Operation{Cell: idx, Kind: Evaluate})
		})
	}
}

// nextState applies the rules to the cell at i.
func (b *Brain) nextState(i int) uint8 {
	cells := b.Cells()
	switch cells[i] {
	case StateOn:
		return StateDying
	case StateDying:
		return StateDead
	}
	on := 0
	b.Neighborhood(i, func(bit, idx int) {
		if bit != 4 && cells[idx] == StateOn {
			on++
		}
	})
	if on == 2 {
		return StateOn
	}
	return StateDead
}

// Model is the per-worker Brian's Brain implementation.
type Model struct {
	brain *Brain
	local []engine.WorkItem[Operation]
}

// Factory builds a Model for the engine.
func Factory(_ int, carrier engine.Carrier, _ config.Map) (engine.Model[Operation, Record], error) {
	b, ok := carrier.(*Brain)
	if !ok {
		return nil, fmt.Errorf("briansbrain: carrier is %T, want *briansbrain.Brain", carrier)
	}
	return &Model{brain: b}, nil
}

func (m *Model) Process(s engine.Sinks[Record], _ uint64, work []engine.WorkItem[Operation], cb *engine.Callback[Operation]) {
	m.local = append(m.local[:0], work...)
	slices.SortFunc(m.local, func(a, b engine.WorkItem[Operation]) int {
		if n := cmp.Compare(a.Op.Cell, b.Op.Cell); n != 0 {
			return n
		}
		return cmp.Compare(a.Op.Kind, b.Op.Kind)
	})
	m.local = slices.CompactFunc(m.local, func(a, b engine.WorkItem[Operation]) bool { return a.Op == b.Op })

	b := m.brain
	for _, item := range m.local {
		cell := item.Op.Cell
		switch item.Op.Kind {
		case Evaluate:
			if next := b.nextState(cell); next != b.Cells()[cell] {
				b.next[cell] = next
				cb.Schedule(Operation{Cell: cell, Kind: Commit})
			}
		case Commit:
			b.Cells()[cell] = b.next[cell]
			s.Record.Record(Record{Cell: cell, State: b.next[cell]})
			b.Neighborhood(cell, func(_, idx int) {
				cb.Schedule(Operation{Cell: idx, Kind: Evaluate})
			})
		}
	}
	clear(m.local)
}
