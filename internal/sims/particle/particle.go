// Package particle moves particles around a walled box. A particle rests on
// its cell for a number of ticks that shrinks with its speed, then a
// Propagate vacates the cell and a Land one tick later drops it on the next
// cell of its line. Landing on an occupied cell bounces the newcomer back as
// if the occupant were immovable.
package particle

import (
	"fmt"
	"strconv"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
)

// KeyEmitEvery makes the input stream drop a random particle into the box
// every that many ticks. Zero turns the emitter off.
const KeyEmitEvery = "Model.EmitEvery"

// Kind is the operation a cell receives.
type Kind uint8

const (
	Propagate Kind = iota
	Land
	Collide
)

func (k Kind) String() string {
	switch k {
	case Propagate:
		return "propagate"
	case Land:
		return "land"
	case Collide:
		return "collide"
	default:
		return "unknown"
	}
}

// Operation targets one cell. A Propagate only needs the cell; a Land
// carries the whole particle to its new cell.
type Operation struct {
	Cell int
	Kind Kind
	Particle
}

func (o Operation) Index() int { return o.Cell }

// Header names the record columns.
var Header = []string{
	"Particle-Name", "Particle-Event-Type", "Particle-Index",
	"horizontal-vector", "vertical-vector", "mass", "speed",
}

// Record is written when a particle leaves, lands on or bounces off a cell.
type Record struct {
	Kind Kind
	Cell int
	Particle
}

func (r Record) Format() []string {
	row := []string{r.Name, strconv.Itoa(int(r.Kind)), strconv.Itoa(r.Cell)}
	if r.Kind == Collide {
		return append(row, "N/A", "N/A", "N/A", "N/A")
	}
	return append(row,
		strconv.Itoa(r.Horizontal),
		strconv.Itoa(r.Vertical),
		strconv.Itoa(r.Mass),
		strconv.Itoa(r.Speed),
	)
}

// Implementation is the per-worker particle model. The instance owned by the
// external work source also runs the emitter.
type Implementation struct {
	id      int
	support *Support

	emitEvery uint64
	rng       *core.RNG
}

// Factory builds an Implementation for the engine.
func Factory(id int, carrier engine.Carrier, cfg config.Map) (engine.Model[Operation, Record], error) {
	s, ok := carrier.(*Support)
	if !ok {
		return nil, fmt.Errorf("particle: carrier is %T, want *particle.Support", carrier)
	}
	every := cfg.Int(KeyEmitEvery, 0)
	if every < 0 {
		return nil, fmt.Errorf("particle: %s must not be negative, got %d", KeyEmitEvery, every)
	}
	return &Implementation{
		id:        id,
		support:   s,
		emitEvery: uint64(every),
		rng:       core.NewRNG(cfg.Int64(config.KeySeed, 42) + int64(id)),
	}, nil
}

// Initialize records where every placed particle starts.
func (m *Implementation) Initialize(s engine.Sinks[Record], tick uint64, _ *engine.Callback[Operation]) {
	for _, c := range m.support.Placed() {
		s.Record.Record(Record{Kind: Land, Cell: c, Particle: m.support.Nodes[c].Particle})
	}
	s.Log.Debug().Int("particles", len(m.support.Placed())).Uint64("tick", tick).Log("particles placed")
}

func (m *Implementation) Process(s engine.Sinks[Record], tick uint64, work []engine.WorkItem[Operation], cb *engine.Callback[Operation]) {
	for _, item := range work {
		switch item.Op.Kind {
		case Propagate:
			m.propagate(s, item.Op.Cell, cb)
		case Land:
			m.land(s, item.Op, cb)
		}
	}
}

// propagate lifts the particle off cell and sends it to the next cell of
// its line.
func (m *Implementation) propagate(s engine.Sinks[Record], cell int, cb *engine.Callback[Operation]) {
	n := &m.support.Nodes[cell]
	if !n.Occupied {
		return
	}
	p := n.Particle
	target, h, v, g := m.support.next(cell, p.Horizontal, p.Vertical, p.Gradient)
	s.Record.Record(Record{Kind: Propagate, Cell: cell, Particle: p})
	s.Log.Trace().Str("name", p.Name).Int("from", cell).Int("to", target).Log("particle propagating")

	p.Horizontal, p.Vertical, p.Gradient = h, v, g
	cb.Schedule(Operation{Cell: target, Kind: Land, Particle: p})
	*n = Node{}
}

// land drops op's particle on its cell, or bounces it straight back when
// the cell is taken.
func (m *Implementation) land(s engine.Sinks[Record], op Operation, cb *engine.Callback[Operation]) {
	n := &m.support.Nodes[op.Cell]
	p := op.Particle
	if n.Occupied {
		p.Horizontal, p.Vertical = -p.Horizontal, -p.Vertical
		target, h, v, g := m.support.next(op.Cell, p.Horizontal, p.Vertical, p.Gradient)
		s.Record.Record(Record{Kind: Collide, Cell: op.Cell, Particle: p})
		s.Log.Trace().Str("name", p.Name).Str("occupant", n.Name).Int("cell", op.Cell).Log("particle collision")

		p.Horizontal, p.Vertical, p.Gradient = h, v, g
		cb.Schedule(Operation{Cell: target, Kind: Land, Particle: p})
		return
	}

	*n = Node{Particle: p, Occupied: true}
	s.Record.Record(Record{Kind: Land, Cell: op.Cell, Particle: p})
	s.Log.Trace().Str("name", p.Name).Int("cell", op.Cell).Log("particle landed")
	cb.ScheduleIn(Operation{Cell: op.Cell, Kind: Propagate, Particle: Particle{Name: p.Name}}, Rest(p.Speed))
}

// StreamNewInput drops a random particle into the box every emitEvery
// ticks. It runs on the control goroutine and never touches the nodes.
func (m *Implementation) StreamNewInput(s engine.Sinks[Record], tick uint64, cb *engine.Callback[Operation]) {
	if m.emitEvery == 0 || tick == 0 || tick%m.emitEvery != 0 {
		return
	}
	cell := m.rng.IntN(m.support.Len())
	p := RandomParticle(m.rng, fmt.Sprintf("p%d", m.support.Launched()+1))
	m.support.Drop(cb, cell, p)
	s.Log.Debug().Str("name", p.Name).Int("cell", cell).Uint64("tick", tick).Log("particle emitted")
}

// Finalize logs what is left in the box.
func (m *Implementation) Finalize(s engine.Sinks[Record], tick uint64) {
	s.Log.Info().
		Int("occupied", m.support.Occupancy()).
		Int64("launched", m.support.Launched()).
		Uint64("tick", tick).
		Log("particle model finalized")
}

// RandomParticle draws a particle with a random direction, speed and type.
func RandomParticle(rng *core.RNG, name string) Particle {
	p := Particle{
		Name:       name,
		Horizontal: rng.IntN(21) - 10,
		Vertical:   rng.IntN(21) - 10,
		Mass:       1 + rng.IntN(10),
		Speed:      rng.IntN(MaxSpeed + 1),
		Type:       Type(rng.IntN(len(typeNames))),
	}
	if p.Horizontal == 0 && p.Vertical == 0 {
		p.Horizontal = 1
	}
	return p
}

var (
	_ engine.InputStreamer[Operation, Record]    = (*Implementation)(nil)
	_ engine.Finalizer[Record]                   = (*Implementation)(nil)
	_ engine.ModelInitializer[Operation, Record] = (*Implementation)(nil)
)
