//go:build ebiten

package app

import (
	"fmt"

	"mad-engine/internal/core"
	"mad-engine/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// Game adapts a running core simulation to the ebiten.Game interface. The
// engine ticks on its own schedule; the game only samples snapshots.
type Game struct {
	sim     core.Sim
	painter *render.GridPainter
	cells   []uint8

	scale   int
	paused  bool
	showHUD bool
}

// New constructs a Game for the provided simulation. The simulation must
// already be started.
func New(sim core.Sim, scale int) *Game {
	size := sim.Size()
	return &Game{
		sim:     sim,
		painter: render.NewGridPainter(size.W, size.H, render.Palette(sim.Name())),
		scale:   max(1, scale),
		showHUD: true,
	}
}

// Update handles per-frame input and samples the simulation.
func (g *Game) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyQ) || inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.sim.Quit()
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyH) {
		g.showHUD = !g.showHUD
	}

	if !g.paused || g.cells == nil {
		g.cells = g.sim.Snapshot(g.cells)
	}
	return nil
}

// Draw renders the last sampled state.
func (g *Game) Draw(screen *ebiten.Image) {
	g.painter.Blit(screen, g.cells, g.scale)
	if !g.showHUD {
		return
	}
	st := g.sim.Stats()
	msg := fmt.Sprintf("%s  tick %d  work %d  workers %d", g.sim.Name(), st.Iterations, st.TotalWork, st.Workers)
	if g.paused {
		msg += "  [display paused]"
	}
	if st.Err != nil {
		msg += "\n" + st.Err.Error()
	}
	ebitenutil.DebugPrint(screen, msg)
}

// Layout returns the logical screen size.
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	s := g.sim.Size()
	return s.W * g.scale, s.H * g.scale
}
