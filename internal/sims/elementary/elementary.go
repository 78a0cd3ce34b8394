// Package elementary draws a Wolfram elementary automaton as a space-time
// diagram: row y holds generation y, so every tick computes one row from
// the finished row above it.
package elementary

import (
	"fmt"
	"strconv"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
	"mad-engine/internal/initializer"
	"mad-engine/internal/runner"
)

// KeyRule selects the Wolfram code.
const KeyRule = "Model.Rule"

// Cell computes one cell from the three cells above it.
type Cell int

func (c Cell) Index() int { return int(c) }

// Header names the record columns.
var Header = []string{"Elementary-Row", "Elementary-Column"}

// Record is written for every live cell.
type Record struct{ X, Y int }

func (r Record) Format() []string { return []string{strconv.Itoa(r.Y), strconv.Itoa(r.X)} }

// Diagram is the space-time grid. Horizontal neighbours wrap; the last row
// ends the run of work.
type Diagram struct {
	core.Torus
	Rule  uint8
	cells []uint8
}

// NewDiagram returns an unallocated w*h diagram for rule.
func NewDiagram(w, h int, rule uint8) *Diagram {
	return &Diagram{Torus: core.NewTorus(w, h), Rule: rule}
}

func (d *Diagram) Allocate() error {
	d.cells = make([]uint8, d.Len())
	return nil
}

func (d *Diagram) ModelSize() int { return d.Len() }

func (d *Diagram) Size() core.Size { return core.Size{W: d.W, H: d.H} }

func (d *Diagram) Snapshot(dst []uint8) []uint8 { return append(dst[:0], d.cells...) }

// At returns the value of (x, y).
func (d *Diagram) At(x, y int) uint8 { return d.cells[d.Index(x, y)] }

// next applies the rule to the three cells above i.
func (d *Diagram) next(i int) uint8 {
	left := d.cells[d.Offset(i, -1, -1)]
	center := d.cells[d.Offset(i, 0, -1)]
	right := d.cells[d.Offset(i, 1, -1)]
	return (d.Rule >> (left<<2 | center<<1 | right)) & 1
}

// SignalSecondRow schedules every cell of row 1.
func (d *Diagram) SignalSecondRow(cb *engine.Callback[Cell]) {
	if d.H < 2 {
		return
	}
	for x := range d.W {
		cb.Schedule(Cell(d.Index(x, 1)))
	}
}

// Model fills cells and hands the work on to the row below.
type Model struct{ d *Diagram }

func (m Model) Process(s engine.Sinks[Record], _ uint64, work []engine.WorkItem[Cell], cb *engine.Callback[Cell]) {
	d := m.d
	for _, item := range work {
		i := int(item.Op)
		d.cells[i] = d.next(i)
		x, y := d.Coords(i)
		if d.cells[i] != 0 {
			s.Record.Record(Record{X: x, Y: y})
		}
		if y+1 < d.H {
			cb.Schedule(Cell(i + d.W))
		}
	}
}

// Factory builds a Model for the engine.
func Factory(_ int, carrier engine.Carrier, _ config.Map) (engine.Model[Cell, Record], error) {
	d, ok := carrier.(*Diagram)
	if !ok {
		return nil, fmt.Errorf("elementary: carrier is %T, want *elementary.Diagram", carrier)
	}
	return Model{d: d}, nil
}

// Initializers seed the top row. single is the default.
var Initializers = initializer.NewRegistry[Cell]("single")

func seeding(top func(d *Diagram, cfg config.Map)) initializer.Factory[Cell] {
	return func(carrier any, cfg config.Map) (initializer.Initializer[Cell], error) {
		d, ok := carrier.(*Diagram)
		if !ok {
			return nil, fmt.Errorf("elementary: carrier is %T, want *elementary.Diagram", carrier)
		}
		return initializer.Funcs[Cell]{
			Init: func() error {
				top(d, cfg)
				return nil
			},
			Inject: d.SignalSecondRow,
		}, nil
	}
}

// NewRunner builds an elementary run from cfg.
func NewRunner(cfg config.Map, opts ...runner.Option) (*runner.Runner[Cell, Record], error) {
	rule := cfg.Int(KeyRule, 110)
	if rule < 0 || rule > 255 {
		return nil, fmt.Errorf("elementary: rule %d out of range", rule)
	}
	d := NewDiagram(cfg.Int(config.KeyWidth, 256), cfg.Int(config.KeyHeight, 256), uint8(rule))
	return runner.New(runner.Spec[Cell, Record]{
		Name:         "elementary",
		Carrier:      d,
		Factory:      Factory,
		Initializers: Initializers,
		Header:       Header,
	}, cfg, opts...)
}

func init() {
	Initializers.Register("single", seeding(func(d *Diagram, _ config.Map) {
		d.cells[d.W/2] = 1
	}))
	Initializers.Register("random", seeding(func(d *Diagram, cfg config.Map) {
		for _, x := range core.NewRNG(cfg.Int64(config.KeySeed, 42)).Indices(d.W, 2) {
			d.cells[x] = 1
		}
	}))

	core.Register("elementary", func(cfg config.Map) (core.Sim, error) {
		r, err := NewRunner(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
