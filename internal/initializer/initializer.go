// Package initializer selects the strategy that seeds a model before its
// first tick, either from a static registry or from a Go plugin.
package initializer

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"mad-engine/internal/config"
	"mad-engine/internal/engine"
)

var (
	// ErrUnknown is returned for a name no initializer was registered for.
	ErrUnknown = errors.New("initializer: unknown")
	// ErrSymbol is returned when a plugin lacks a required symbol or it has
	// the wrong type.
	ErrSymbol = errors.New("initializer: bad plugin symbol")
)

// Initializer prepares the model state. Initialize runs once the carrier is
// allocated and before any worker exists; InjectSignal then enqueues the
// first wave of work.
type Initializer[Op engine.Operation] interface {
	Initialize() error
	InjectSignal(cb *engine.Callback[Op])
}

// Factory builds an initializer over a sim's carrier.
type Factory[Op engine.Operation] func(carrier any, cfg config.Map) (Initializer[Op], error)

// Funcs adapts a pair of functions to Initializer. Either may be nil.
type Funcs[Op engine.Operation] struct {
	Init   func() error
	Inject func(cb *engine.Callback[Op])
}

func (f Funcs[Op]) Initialize() error {
	if f.Init == nil {
		return nil
	}
	return f.Init()
}

func (f Funcs[Op]) InjectSignal(cb *engine.Callback[Op]) {
	if f.Inject != nil {
		f.Inject(cb)
	}
}

// Registry maps initializer names to factories for one operation type.
type Registry[Op engine.Operation] struct {
	def       string
	factories map[string]Factory[Op]
}

// NewRegistry returns an empty registry whose default selection is def.
func NewRegistry[Op engine.Operation](def string) *Registry[Op] {
	return &Registry[Op]{def: def, factories: map[string]Factory[Op]{}}
}

// Register adds a factory under name, replacing any previous one.
func (r *Registry[Op]) Register(name string, f Factory[Op]) {
	if name == "" || f == nil {
		return
	}
	r.factories[name] = f
}

// Default is the name used when the configuration names none.
func (r *Registry[Op]) Default() string { return r.def }

// Names lists the registered initializers in sorted order.
func (r *Registry[Op]) Names() []string {
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the factory registered under name.
func (r *Registry[Op]) Lookup(name string) (Factory[Op], error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %v)", ErrUnknown, name, r.Names())
	}
	return f, nil
}

// Resolve builds the initializer selected by cfg. A plugin path under
// Execution.InitializerLocation wins over the name in
// Execution.Initializer; with neither set the registry default is used.
func Resolve[Op engine.Operation](r *Registry[Op], cfg config.Map, carrier any) (Initializer[Op], error) {
	if path := cfg.String(config.KeyInitializerLocation, ""); path != "" {
		return Open[Op](path, carrier, cfg)
	}
	f, err := r.Lookup(cfg.String(config.KeyInitializer, r.def))
	if err != nil {
		return nil, err
	}
	return f(carrier, cfg)
}

// Close releases it when it holds resources, as plugin initializers do.
func Close[Op engine.Operation](it Initializer[Op]) error {
	if c, ok := it.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
