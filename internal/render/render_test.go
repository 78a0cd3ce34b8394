package render

import (
	"bytes"
	"image/color"
	"testing"

	"mad-engine/internal/core"
)

func TestBinaryPalette(t *testing.T) {
	buf := make([]byte, 12)
	FillPaletteRGBA(buf, []uint8{1, 0, 5}, Binary(color.White, color.Black))
	want := []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0xff}
	if !bytes.Equal(buf, want) {
		t.Fatalf("pixels = %v, want %v", buf, want)
	}
}

func TestFillPaletteRGBAClampsToLastColour(t *testing.T) {
	buf := make([]byte, 12)
	FillPaletteRGBA(buf, []uint8{0, 2, 9}, Palette("briansbrain"))
	if buf[4+2] != 0xd0 || buf[8+2] != 0xd0 {
		t.Fatalf("dying and out of range cells should be blue: %v", buf)
	}

	FillPaletteRGBA(buf, []uint8{1, 1, 1}, nil)
	if !bytes.Equal(buf, make([]byte, 12)) {
		t.Fatalf("empty palette should clear: %v", buf)
	}
}

func TestPaletteFallback(t *testing.T) {
	if len(Palette("unknown")) != 2 {
		t.Fatal("unknown sims should use the binary palette")
	}
}

func TestParticleGlyphsAndPalette(t *testing.T) {
	if got := GlyphsFor("particle"); len(got) != len(Palette("particle")) {
		t.Fatalf("particle has %d glyphs and %d colours", len(got), len(Palette("particle")))
	}
	if GlyphsFor("life") != Glyphs {
		t.Fatal("life should use the default glyphs")
	}
	var buf bytes.Buffer
	if err := Text(&buf, []uint8{0, 1, 5}, core.Size{W: 3, H: 1}, Window{}, GlyphsFor("particle")); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != ".np\n" {
		t.Fatalf("particle text = %q", got)
	}
}

func TestText(t *testing.T) {
	size := core.Size{W: 4, H: 3}
	cells := []uint8{
		0, 1, 0, 0,
		0, 2, 1, 0,
		7, 0, 0, 1,
	}
	var buf bytes.Buffer
	if err := Text(&buf, cells, size, Window{}, ""); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), ".#..\n.o#.\no..#\n"; got != want {
		t.Fatalf("text =\n%s\nwant\n%s", got, want)
	}

	buf.Reset()
	if err := Text(&buf, cells, size, Window{X: 1, Y: 1, W: 10, H: 1}, ".X"); err != nil {
		t.Fatal(err)
	}
	if got, want := buf.String(), "XX.\n"; got != want {
		t.Fatalf("windowed text = %q, want %q", got, want)
	}
}

func TestWindowFit(t *testing.T) {
	w := Window{X: -3, Y: 8, W: 0, H: 4}.Fit(core.Size{W: 10, H: 10})
	if w != (Window{X: 0, Y: 8, W: 10, H: 2}) {
		t.Fatalf("fit = %+v", w)
	}
}
