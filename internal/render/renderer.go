//go:build ebiten

package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
)

// GridPainter keeps one offscreen image per sim and repaints it from each
// snapshot before scaling it onto the screen.
type GridPainter struct {
	size    [2]int
	palette []color.RGBA
	pixels  []byte
	canvas  *ebiten.Image
	op      ebiten.DrawImageOptions
}

// NewGridPainter allocates a painter for a w*h grid coloured with palette.
func NewGridPainter(w, h int, palette []color.RGBA) *GridPainter {
	return &GridPainter{
		size:    [2]int{w, h},
		palette: palette,
		pixels:  make([]byte, 4*w*h),
		canvas:  ebiten.NewImage(w, h),
	}
}

// Blit draws cells onto dst, each cell scale pixels wide. Snapshots of the
// wrong length are ignored so a frame taken before allocation draws nothing.
func (gp *GridPainter) Blit(dst *ebiten.Image, cells []uint8, scale int) {
	if len(cells) != gp.size[0]*gp.size[1] {
		return
	}
	FillPaletteRGBA(gp.pixels, cells, gp.palette)
	gp.canvas.WritePixels(gp.pixels)

	gp.op.GeoM.Reset()
	gp.op.GeoM.Scale(float64(scale), float64(scale))
	dst.DrawImage(gp.canvas, &gp.op)
}

// Size is the grid size in cells.
func (gp *GridPainter) Size() (int, int) { return gp.size[0], gp.size[1] }
