// Package render turns sim snapshots into pixels for the viewer and into
// text for the terminal display.
package render

import "image/color"

// Palettes by sim name. Index is the snapshot value.
var palettes = map[string][]color.RGBA{
	"life":       Binary(color.White, color.Black),
	"elementary": Binary(color.RGBA{R: 0xf0, G: 0xc0, B: 0x40, A: 0xff}, color.Black),
	"briansbrain": {
		{A: 0xff},
		{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		{R: 0x30, G: 0x60, B: 0xd0, A: 0xff},
	},
	// empty, then one colour per particle type
	"particle": {
		{A: 0xff},
		{R: 0x80, G: 0x80, B: 0x80, A: 0xff},
		{R: 0x40, G: 0x90, B: 0xff, A: 0xff},
		{R: 0xe0, G: 0x40, B: 0x40, A: 0xff},
		{R: 0x40, G: 0xd0, B: 0x60, A: 0xff},
		{R: 0xff, G: 0xf0, B: 0x80, A: 0xff},
	},
}

// Palette returns the colours for sim, falling back to black and white.
func Palette(sim string) []color.RGBA {
	if p, ok := palettes[sim]; ok {
		return p
	}
	return palettes["life"]
}

// Binary builds a two-colour palette: off for 0 and on for everything else.
func Binary(on, off color.Color) []color.RGBA {
	return []color.RGBA{toRGBA(off), toRGBA(on)}
}

func toRGBA(c color.Color) color.RGBA {
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// FillPaletteRGBA converts cell values into RGBA pixels using a palette.
// Values past the end of the palette use its last colour. When the palette
// is empty the buffer is cleared to transparent black.
func FillPaletteRGBA(buf []byte, cells []uint8, palette []color.RGBA) {
	if len(palette) == 0 {
		clear(buf[:4*len(cells)])
		return
	}

	last := len(palette) - 1
	for i, c := range cells {
		col := palette[min(int(c), last)]
		base := i * 4
		buf[base+0] = col.R
		buf[base+1] = col.G
		buf[base+2] = col.B
		buf[base+3] = col.A
	}
}
