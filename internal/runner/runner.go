// Package runner wires a model, its initializer and the engine into a
// core.Sim that the CLI and the viewer drive by name.
package runner

import (
	"context"
	"fmt"
	"io"

	"mad-engine/internal/config"
	"mad-engine/internal/core"
	"mad-engine/internal/engine"
	"mad-engine/internal/initializer"
	"mad-engine/internal/record"
)

// Carrier is the shared model storage of a sim as the runner sees it.
type Carrier interface {
	engine.Carrier
	Size() core.Size
	// Snapshot writes one byte per cell into dst, growing it as needed.
	Snapshot(dst []uint8) []uint8
}

// Spec describes one sim.
type Spec[Op engine.Operation, R record.Row] struct {
	Name         string
	Carrier      Carrier
	Factory      engine.ModelFactory[Op, R]
	Initializers *initializer.Registry[Op]
	// Header names the record columns after tick and time.
	Header []string
}

// Option customises a Runner.
type Option func(*options)

type options struct {
	echo io.Writer
}

// WithEcho copies every journal line to w as it is logged.
func WithEcho(w io.Writer) Option {
	return func(o *options) { o.echo = w }
}

// Runner is a core.Sim backed by an engine.Engine.
type Runner[Op engine.Operation, R record.Row] struct {
	spec   Spec[Op, R]
	cfg    config.Map
	seed   initializer.Initializer[Op] // closed once the run ends
	engine *engine.Engine[Op, R]
}

// New resolves the initializer selected by cfg and prepares the engine.
// Nothing runs until Start.
func New[Op engine.Operation, R record.Row](spec Spec[Op, R], cfg config.Map, opts ...Option) (*Runner[Op, R], error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	ecfg, err := engine.ConfigFromMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}
	it, err := initializer.Resolve(spec.Initializers, cfg, spec.Carrier)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", spec.Name, err)
	}

	r := &Runner[Op, R]{spec: spec, cfg: cfg, seed: it}
	r.engine = engine.New(spec.Carrier, spec.Factory, cfg, ecfg, engine.Options[Op]{
		Setup:  it.Initialize,
		Inject: it.InjectSignal,
		Header: spec.Header,
		Echo:   o.echo,
	})
	return r, nil
}

func (r *Runner[Op, R]) Name() string { return r.spec.Name }

func (r *Runner[Op, R]) Size() core.Size { return r.spec.Carrier.Size() }

// Carrier is the sim's model storage. Read it only between ticks or after
// the run stopped.
func (r *Runner[Op, R]) Carrier() Carrier { return r.spec.Carrier }

// Engine exposes the underlying engine.
func (r *Runner[Op, R]) Engine() *engine.Engine[Op, R] { return r.engine }

// Config is the configuration the runner was built from.
func (r *Runner[Op, R]) Config() config.Map { return r.cfg }

func (r *Runner[Op, R]) Start(ctx context.Context) error {
	if err := r.engine.Run(ctx); err != nil {
		_ = initializer.Close(r.seed)
		return fmt.Errorf("%s: %w", r.spec.Name, err)
	}
	return nil
}

func (r *Runner[Op, R]) Quit() { r.engine.Quit() }

// Done is closed once the engine has stopped.
func (r *Runner[Op, R]) Done() <-chan struct{} { return r.engine.Done() }

func (r *Runner[Op, R]) Wait() core.Stats {
	stats := r.engine.WaitForQuit()
	if err := initializer.Close(r.seed); err != nil && stats.Err == nil {
		stats.Err = err
	}
	return stats
}

func (r *Runner[Op, R]) Stats() core.Stats { return r.engine.Stats() }

// Snapshot copies the model between ticks.
func (r *Runner[Op, R]) Snapshot(dst []uint8) []uint8 {
	r.engine.Inspect(func() { dst = r.spec.Carrier.Snapshot(dst) })
	return dst
}

// Inject hands the external work source to fn between ticks.
func (r *Runner[Op, R]) Inject(fn func(cb *engine.Callback[Op])) error {
	return r.engine.Inject(fn)
}

var _ core.Sim = (*Runner[engine.Operation, record.Row])(nil)
