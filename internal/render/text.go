package render

import (
	"bufio"
	"io"

	"mad-engine/internal/core"
)

// Glyphs maps snapshot values to characters; values past the end use the
// last one.
const Glyphs = ".#o"

var glyphs = map[string]string{
	"particle": ".nefgp",
}

// GlyphsFor returns the glyphs for sim, falling back to Glyphs.
func GlyphsFor(sim string) string {
	if g, ok := glyphs[sim]; ok {
		return g
	}
	return Glyphs
}

// Window selects the part of the grid printed by Text.
type Window struct {
	X, Y, W, H int
}

// Fit clips the window to size. A zero width or height selects the rest of
// the grid.
func (w Window) Fit(size core.Size) Window {
	w.X = min(max(w.X, 0), size.W)
	w.Y = min(max(w.Y, 0), size.H)
	if w.W <= 0 || w.X+w.W > size.W {
		w.W = size.W - w.X
	}
	if w.H <= 0 || w.Y+w.H > size.H {
		w.H = size.H - w.Y
	}
	return w
}

// Text writes the window of cells as one line per row.
func Text(dst io.Writer, cells []uint8, size core.Size, win Window, glyphs string) error {
	if glyphs == "" {
		glyphs = Glyphs
	}
	win = win.Fit(size)
	last := len(glyphs) - 1
	bw := bufio.NewWriter(dst)
	for y := win.Y; y < win.Y+win.H; y++ {
		row := cells[y*size.W:]
		for x := win.X; x < win.X+win.W; x++ {
			_ = bw.WriteByte(glyphs[min(int(row[x]), last)])
		}
		_ = bw.WriteByte('\n')
	}
	return bw.Flush()
}
