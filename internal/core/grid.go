package core

// Torus maps 2D coordinates onto a row-major index space with wrapping edges.
type Torus struct {
	W, H int
}

// NewTorus returns the geometry for a w*h grid.
func NewTorus(w, h int) Torus {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return Torus{W: w, H: h}
}

// Len is the number of cells.
func (g Torus) Len() int { return g.W * g.H }

// Index returns the linear index for coordinates (x, y) after wrapping.
func (g Torus) Index(x, y int) int {
	x, y = g.Wrap(x, y)
	return y*g.W + x
}

// Coords is the inverse of Index.
func (g Torus) Coords(i int) (int, int) { return i % g.W, i / g.W }

// Wrap applies toroidal wrapping to the provided coordinates.
func (g Torus) Wrap(x, y int) (int, int) {
	x = (x%g.W + g.W) % g.W
	y = (y%g.H + g.H) % g.H
	return x, y
}

// Offset returns the index dx, dy cells away from i.
func (g Torus) Offset(i, dx, dy int) int {
	x, y := g.Coords(i)
	return g.Index(x+dx, y+dy)
}

// Neighborhood calls fn for the 3x3 block centred on i, row by row, with bit
// numbering 8 (top left) down to 0 (bottom right). The centre has bit 4.
func (g Torus) Neighborhood(i int, fn func(bit, idx int)) {
	x, y := g.Coords(i)
	bit := 8
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			fn(bit, g.Index(x+dx, y+dy))
			bit--
		}
	}
}

// ByteGrid stores a 2D grid of byte-sized cell values in row-major order.
type ByteGrid struct {
	Torus
	data []uint8
}

// NewByteGrid allocates a grid with the given dimensions.
func NewByteGrid(w, h int) *ByteGrid {
	t := NewTorus(w, h)
	return &ByteGrid{Torus: t, data: make([]uint8, t.Len())}
}

// Cells exposes the backing slice so callers can read/write values directly.
func (g *ByteGrid) Cells() []uint8 { return g.data }

// Clear fills the grid with zeros.
func (g *ByteGrid) Clear() {
	clear(g.data)
}
