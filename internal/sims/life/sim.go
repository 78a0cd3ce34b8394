package life

import (
	"fmt"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
	"mad-engine/internal/initializer"
	"mad-engine/internal/runner"
)

// Initializers are the static seeding strategies. glider is the default.
var Initializers = initializer.NewRegistry[Operation]("glider")

// Pattern seeds the support and signals the seeded cells. It is the shape
// shared by the static initializers and the glider plugin.
type Pattern struct {
	Support *Support
	Place   func(s *Support)
}

func (p Pattern) Initialize() error {
	p.Place(p.Support)
	return nil
}

func (p Pattern) InjectSignal(cb *engine.Callback[Operation]) {
	p.Support.SignalInitialCells(cb)
}

// NewPattern wraps place as an initializer factory.
func NewPattern(place func(s *Support, cfg config.Map)) initializer.Factory[Operation] {
	return func(carrier any, cfg config.Map) (initializer.Initializer[Operation], error) {
		s, ok := carrier.(*Support)
		if !ok {
			return nil, fmt.Errorf("life: carrier is %T, want *life.Support", carrier)
		}
		return Pattern{Support: s, Place: func(s *Support) { place(s, cfg) }}, nil
	}
}

// Glider places a glider in the middle of the grid.
func Glider(s *Support, _ config.Map) { s.MakeGlider(s.Center()) }

// Blinker places a blinker in the middle of the grid.
func Blinker(s *Support, _ config.Map) { s.MakeBlinker(s.Center()) }

// Random fills a quarter of the grid from Model.Seed.
func Random(s *Support, cfg config.Map) { s.RandomSoup(cfg.Int64(config.KeySeed, 42), 4) }

// NewRunner builds a Life run from cfg.
func NewRunner(cfg config.Map, opts ...runner.Option) (*runner.Runner[Operation, Record], error) {
	s := NewSupport(cfg.Int(config.KeyWidth, 1000), cfg.Int(config.KeyHeight, 1000))
	return runner.New(runner.Spec[Operation, Record]{
		Name:         "life",
		Carrier:      s,
		Factory:      Factory,
		Initializers: Initializers,
		Header:       Header,
	}, cfg, opts...)
}

func init() {
	Initializers.Register("glider", NewPattern(Glider))
	Initializers.Register("blinker", NewPattern(Blinker))
	Initializers.Register("random", NewPattern(Random))

	core.Register("life", func(cfg config.Map) (core.Sim, error) {
		r, err := NewRunner(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}
