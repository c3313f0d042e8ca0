package wfc

// Grid converts between (x, y) positions and flattened cell indices.
type Grid struct {
	Width, Height int
	Periodic      bool // neighbors wrap around the edges
}

// Cells returns the number of cells in the grid.
func (g Grid) Cells() int {
	return g.Width * g.Height
}

// Index returns the flat index of (x, y).
func (g Grid) Index(x, y int) int {
	return y*g.Width + x
}

// Coords returns the (x, y) position of a flat index.
func (g Grid) Coords(i int) (x, y int) {
	return i % g.Width, i / g.Width
}

// InBounds reports whether (x, y) lies inside the grid.
func (g Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Neighbor returns the index of the cell one step from i in direction d.
// On a non-periodic grid ok is false when an n x n footprint placed at the
// neighbor would not fit inside the grid.
func (g Grid) Neighbor(i int, d Direction, n int) (j int, ok bool) {
	x, y := g.Coords(i)
	dx, dy := d.Delta()
	x, y = x+dx, y+dy

	if g.Periodic {
		x = (x%g.Width + g.Width) % g.Width
		y = (y%g.Height + g.Height) % g.Height
		return g.Index(x, y), true
	}
	if x < 0 || y < 0 || x+n > g.Width || y+n > g.Height {
		return 0, false
	}
	return g.Index(x, y), true
}

// Eligible reports whether an n x n footprint anchored at cell i fits in the
// grid. Every cell is eligible on a periodic grid.
func (g Grid) Eligible(i, n int) bool {
	if g.Periodic {
		return true
	}
	x, y := g.Coords(i)
	return x+n <= g.Width && y+n <= g.Height
}
