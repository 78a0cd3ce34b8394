package initializer

import (
	"fmt"
	"plugin"
	"sync"

	"mad-engine/internal/config"
	"mad-engine/internal/engine"
)

// Symbol names a plugin must export.
const (
	SymbolNew     = "NewInitializer"
	SymbolDestroy = "DestroyInitializer"
)

// Open loads the Go plugin at path and builds its initializer over carrier.
// The plugin exports NewInitializer as a
// func(carrier any, cfg config.Map) (Initializer[Op], error) and
// DestroyInitializer as a func(Initializer[Op]), either as functions or as
// package variables of those types. Closing the result calls
// DestroyInitializer once.
func Open[Op engine.Operation](path string, carrier any, cfg config.Map) (Initializer[Op], error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("initializer: load %s: %w", path, err)
	}
	create, err := lookup[func(any, config.Map) (Initializer[Op], error)](p, SymbolNew)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	destroy, err := lookup[func(Initializer[Op])](p, SymbolDestroy)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	it, err := create(carrier, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializer: %s: %w", path, err)
	}
	return &proxy[Op]{Initializer: it, destroy: destroy}, nil
}

func lookup[F any](p *plugin.Plugin, name string) (F, error) {
	var zero F
	sym, err := p.Lookup(name)
	if err != nil {
		return zero, fmt.Errorf("%w %s: %w", ErrSymbol, name, err)
	}
	switch fn := sym.(type) {
	case F:
		return fn, nil
	case *F:
		if fn != nil {
			return *fn, nil
		}
	}
	return zero, fmt.Errorf("%w %s: unexpected type %T", ErrSymbol, name, sym)
}

// proxy forwards to the plugin's initializer and destroys it on Close.
type proxy[Op engine.Operation] struct {
	Initializer[Op]
	destroy func(Initializer[Op])
	once    sync.Once
}

func (p *proxy[Op]) Close() error {
	p.once.Do(func() { p.destroy(p.Initializer) })
	return nil
}
