package briansbrain

import (
	"fmt"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
	"mad-engine/internal/initializer"
	"mad-engine/internal/runner"
)

// Initializers are the static seeding strategies. random is the default.
var Initializers = initializer.NewRegistry[Operation]("random")

func seeding(place func(b *Brain, cfg config.Map)) initializer.Factory[Operation] {
	return func(carrier any, cfg config.Map) (initializer.Initializer[Operation], error) {
		b, ok := carrier.(*Brain)
		if !ok {
			return nil, fmt.Errorf("briansbrain: carrier is %T, want *briansbrain.Brain", carrier)
		}
		return initializer.Funcs[Operation]{
			Init: func() error {
				place(b, cfg)
				return nil
			},
			Inject: b.SignalInitialCells,
		}, nil
	}
}

// NewRunner builds a Brian's Brain run from cfg.
func NewRunner(cfg config.Map, opts ...runner.Option) (*runner.Runner[Operation, Record], error) {
	b := New(cfg.Int(config.KeyWidth, 256), cfg.Int(config.KeyHeight, 256))
	return runner.New(runner.Spec[Operation, Record]{
		Name:         "briansbrain",
		Carrier:      b,
		Factory:      Factory,
		Initializers: Initializers,
		Header:       Header,
	}, cfg, opts...)
}

func init() {
	Initializers.Register("random", seeding(func(b *Brain, cfg config.Map) { b.Reset(cfg.Int64(config.KeySeed, 42)) }))
	Initializers.Register("pair", seeding(func(b *Brain, _ config.Map) { b.Pair() }))

	core.Register("briansbrain", func(cfg config.Map) (core.Sim, error) {
		r, err := NewRunner(cfg)
		if err != nil {
			return nil, err
		}
		return r, nil
	})
}

var _ engine.Carrier = (*Brain)(nil)
