package voxel

import "errors"

// DefaultDimension is the grid edge length used when none is configured.
const DefaultDimension = 256

// ErrDimension reports a non-positive grid dimension.
var ErrDimension = errors.New("voxel: dimension must be positive")

// Grid is a dense dim³ volume of cells stored x-fastest.
type Grid struct {
	Dim   int
	Cells []Cell
}

func NewGrid(dim int) (*Grid, error) {
	if dim <= 0 {
		return nil, ErrDimension
	}
	return &Grid{Dim: dim, Cells: make([]Cell, dim*dim*dim)}, nil
}

func (g *Grid) InBounds(x, y, z int) bool {
	return x >= 0 && y >= 0 && z >= 0 && x < g.Dim && y < g.Dim && z < g.Dim
}

// Index returns the linear index of (x, y, z). The caller checks bounds.
func (g *Grid) Index(x, y, z int) int {
	return x + y*g.Dim + z*g.Dim*g.Dim
}

// At returns the cell at (x, y, z), or an empty cell outside the volume.
func (g *Grid) At(x, y, z int) Cell {
	if !g.InBounds(x, y, z) {
		return 0
	}
	return g.Cells[g.Index(x, y, z)]
}

// Set stores c at (x, y, z). Writes outside the volume are dropped.
func (g *Grid) Set(x, y, z int, c Cell) {
	if !g.InBounds(x, y, z) {
		return
	}
	g.Cells[g.Index(x, y, z)] = c
}

func (g *Grid) Material(x, y, z int) Material {
	return g.At(x, y, z).Material()
}

func (g *Grid) Clear() {
	for i := range g.Cells {
		g.Cells[i] = 0
	}
}

// Count returns how many cells hold material m.
func (g *Grid) Count(m Material) int {
	n := 0
	for _, c := range g.Cells {
		if c.Material() == m {
			n++
		}
	}
	return n
}

func (g *Grid) Clone() *Grid {
	c := &Grid{Dim: g.Dim, Cells: make([]Cell, len(g.Cells))}
	copy(c.Cells, g.Cells)
	return c
}

// Equal compares materials and flags of two grids.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.Dim != other.Dim || len(g.Cells) != len(other.Cells) {
		return false
	}
	for i := range g.Cells {
		if g.Cells[i] != other.Cells[i] {
			return false
		}
	}
	return true
}

// FillBox sets every cell in [min, max) to material m with a clear flag.
func (g *Grid) FillBox(min, max [3]int, m Material) {
	for z := min[2]; z < max[2]; z++ {
		for y := min[1]; y < max[1]; y++ {
			for x := min[0]; x < max[0]; x++ {
				g.Set(x, y, z, NewCell(m, 0))
			}
		}
	}
}
