// Command lifeglider is a Life initializer built as a Go plugin:
//
//	go build -buildmode=plugin -o lifeglider.so ./cmd/plugins/lifeglider
//
// and selected with Execution.InitializerLocation=lifeglider.so. It places
// Model.Gliders gliders (default 4) on a diagonal.
package main

import (
	"fmt"

	"mad-engine/internal/config"
	"mad-engine/internal/initializer"
	"mad-engine/internal/sims/life"
)

// NewInitializer is looked up by the plugin loader.
func NewInitializer(carrier any, cfg config.Map) (initializer.Initializer[life.Operation], error) {
	s, ok := carrier.(*life.Support)
	if !ok {
		return nil, fmt.Errorf("lifeglider: carrier is %T, want *life.Support", carrier)
	}
	n := max(1, cfg.Int("Model.Gliders", 4))
	return life.Pattern{Support: s, Place: func(s *life.Support) { diagonal(s, n) }}, nil
}

// DestroyInitializer is looked up by the plugin loader.
func DestroyInitializer(initializer.Initializer[life.Operation]) {}

func diagonal(s *life.Support, n int) {
	step := min(s.W, s.H) / (n + 1)
	for i := 1; i <= n; i++ {
		s.MakeGlider(s.Index(i*step, i*step))
	}
}

func main() {}
