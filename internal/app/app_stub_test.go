//go:build !ebiten

package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mad-engine/internal/core"
)

type quitSim struct {
	core.Sim
	quits int
}

func (s *quitSim) Quit() { s.quits++ }

func TestHeadlessGameQuitsSim(t *testing.T) {
	sim := &quitSim{}
	g := New(sim, 3)
	assert.ErrorIs(t, g.Update(), ErrNoViewer)
	assert.Equal(t, 1, sim.quits)
	w, h := g.Layout(640, 480)
	assert.Zero(t, w+h)
}
