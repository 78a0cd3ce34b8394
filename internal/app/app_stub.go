//go:build !ebiten

package app

import (
	"errors"

	"mad-engine/internal/core"
)

// ErrNoViewer is returned by the headless build of the viewer.
var ErrNoViewer = errors.New("app: viewer not built, rebuild with -tags ebiten")

// Game stands in for the viewer when ebiten is not compiled in. It only
// keeps the sim so callers can still stop it.
type Game struct {
	sim core.Sim
}

// New wraps sim. The returned Game never draws.
func New(sim core.Sim, _ int) *Game { return &Game{sim: sim} }

// Update quits the sim and reports ErrNoViewer.
func (g *Game) Update() error {
	if g.sim != nil {
		g.sim.Quit()
	}
	return ErrNoViewer
}

func (g *Game) Draw(any) {}

func (g *Game) Layout(int, int) (int, int) { return 0, 0 }
