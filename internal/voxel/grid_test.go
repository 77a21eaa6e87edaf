package voxel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		wantErr bool
	}{
		{"default", DefaultDimension, false},
		{"tiny", 1, false},
		{"zero", 0, true},
		{"negative", -4, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.dim)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDimension)
				return
			}
			require.NoError(t, err)
			assert.Len(t, g.Cells, tt.dim*tt.dim*tt.dim)
		})
	}
}

func TestGrid_SetAt(t *testing.T) {
	g, err := NewGrid(8)
	require.NoError(t, err)

	g.Set(1, 2, 3, NewCell(Sand, FlagBit))
	c := g.At(1, 2, 3)
	assert.Equal(t, Sand, c.Material())
	assert.Equal(t, FlagBit, c.Flag())
	assert.True(t, c.Occupied())
	assert.Equal(t, 1, g.Count(Sand))
}

func TestGrid_OutOfBounds(t *testing.T) {
	g, err := NewGrid(4)
	require.NoError(t, err)
	before := g.Clone()

	for _, p := range [][3]int{{-1, 0, 0}, {4, 0, 0}, {0, 4, 0}, {0, 0, 4}, {9, 9, 9}} {
		g.Set(p[0], p[1], p[2], NewCell(Stone, 0))
		assert.Equal(t, Cell(0), g.At(p[0], p[1], p[2]), "At(%v)", p)
	}
	assert.True(t, g.Equal(before), "out-of-range writes must not land in the grid")
}

func TestGrid_FillBoxAndClear(t *testing.T) {
	g, err := NewGrid(6)
	require.NoError(t, err)

	g.FillBox([3]int{0, 0, 0}, [3]int{6, 1, 6}, Stone)
	assert.Equal(t, 36, g.Count(Stone))

	g.Clear()
	assert.Equal(t, 6*6*6, g.Count(Empty))
}

func TestCell_Packing(t *testing.T) {
	c := NewCell(Water, FlagBit)
	assert.Equal(t, Water, c.Material())
	assert.True(t, c.UpdatedIn(FlagBit))
	assert.False(t, c.UpdatedIn(FlagInitial))

	// materials never bleed into the flag bit
	c = NewCell(Material(0xff), 0)
	assert.Equal(t, Cell(0), c.Flag())
}

func TestParseMaterial(t *testing.T) {
	m, err := ParseMaterial("sand")
	require.NoError(t, err)
	assert.Equal(t, Sand, m)

	_, err = ParseMaterial("lava")
	assert.Error(t, err)
}

func TestSlot_Miss(t *testing.T) {
	s := Miss(16, 50)
	assert.Equal(t, Slot{66, 66, 66}, s)
	assert.Greater(t, s.DistanceSq(15, 15, 15), float32(50*50))
}
