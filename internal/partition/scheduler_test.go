package partition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		spacing int
		maxVel  int
		wantErr error
	}{
		{"valid", 256, 4, 1, nil},
		{"valid wide", 64, 8, 2, nil},
		{"zero dim", 0, 4, 1, ErrDimension},
		{"odd spacing", 16, 5, 1, ErrSpacing},
		{"spacing too small for velocity", 16, 4, 2, ErrSpacingTooSmall},
		{"zero velocity", 16, 4, 0, ErrVelocity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.dim, tt.spacing, tt.maxVel)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestWorkgroupCount_RoundsUp(t *testing.T) {
	tests := []struct {
		dim, spacing, want int
	}{
		{8, 4, 2},
		{4, 4, 1},
		{6, 4, 2},
		{256, 4, 64},
		{255, 4, 64},
		{257, 4, 65},
	}
	for _, tt := range tests {
		s, err := New(tt.dim, tt.spacing, 1)
		require.NoError(t, err)
		assert.Equal(t, tt.want, s.WorkgroupCount(), "dim=%d spacing=%d", tt.dim, tt.spacing)
	}
}

func TestOffset(t *testing.T) {
	s, err := New(8, 4, 1)
	require.NoError(t, err)

	want := [Phases][3]int{
		{0, 0, 0}, {2, 0, 0}, {0, 2, 0}, {2, 2, 0},
		{0, 0, 2}, {2, 0, 2}, {0, 2, 2}, {2, 2, 2},
	}
	for p := 0; p < Phases; p++ {
		assert.Equal(t, want[p], s.Offset(p), "phase %d", p)
	}
	assert.Equal(t, [Phases]int{0, 1, 2, 3, 4, 5, 6, 7}, s.Order())
}

// dim=8, spacing=4: every phase dispatches 2x2x2 groups and no cell is
// addressed by two groups across all phases.
func TestPhases_TileVolumeExactlyOnce(t *testing.T) {
	s, err := New(8, 4, 1)
	require.NoError(t, err)
	require.Equal(t, 2, s.WorkgroupCount())

	hits := make(map[[3]int]int)
	for _, p := range s.Order() {
		groups := 0
		s.Groups(p, func(g [3]int) {
			groups++
			fp := s.Footprint(p, g)
			for z := fp.Min[2]; z < fp.Max[2]; z++ {
				for y := fp.Min[1]; y < fp.Max[1]; y++ {
					for x := fp.Min[0]; x < fp.Max[0]; x++ {
						hits[[3]int{x, y, z}]++
					}
				}
			}
		})
		assert.Equal(t, 8, groups, "phase %d", p)
	}

	assert.Len(t, hits, 8*8*8)
	for cell, n := range hits {
		if n != 1 {
			t.Errorf("cell %v addressed %d times, want 1", cell, n)
		}
	}
}

// Within one phase, write footprints of concurrently running groups are
// disjoint, and no group can write into or next to another group's cells.
func TestPhase_WriteFootprintsIsolated(t *testing.T) {
	configs := []struct{ dim, spacing, maxVel int }{
		{8, 4, 1},
		{32, 4, 1},
		{30, 6, 1},
		{64, 8, 2},
	}
	for _, c := range configs {
		s, err := New(c.dim, c.spacing, c.maxVel)
		require.NoError(t, err)

		for _, p := range s.Order() {
			var cells, writes []Box
			s.Groups(p, func(g [3]int) {
				cells = append(cells, s.Footprint(p, g))
				writes = append(writes, s.Footprint(p, g).Grow(s.MaxVelocity()))
			})
			for i := range writes {
				for j := range writes {
					if i == j {
						continue
					}
					if writes[i].Overlaps(writes[j]) {
						t.Fatalf("dim=%d spacing=%d phase %d: writes %v overlap %v",
							c.dim, c.spacing, p, writes[i], writes[j])
					}
					if writes[i].Touches(cells[j]) {
						t.Fatalf("dim=%d spacing=%d phase %d: writes %v reach group %v",
							c.dim, c.spacing, p, writes[i], cells[j])
					}
				}
			}
		}
	}
}

// dim=4, spacing=4 yields one coarse group per axis; the eight phases still
// cover every cell and nothing falls outside the volume.
func TestSingleGroupPerAxis(t *testing.T) {
	s, err := New(4, 4, 1)
	require.NoError(t, err)
	require.Equal(t, 1, s.WorkgroupCount())

	covered := 0
	for _, p := range s.Order() {
		s.Groups(p, func(g [3]int) {
			fp := s.Footprint(p, g)
			assert.Equal(t, fp, fp.Clip(4), "phase %d footprint leaves the grid", p)
			covered += 8
		})
	}
	assert.Equal(t, 64, covered)
}

// Rounded-up dispatch counts produce footprints past the grid edge; the
// clipped write footprint is what the kernel may touch.
func TestRoundedUpGroupsExceedGrid(t *testing.T) {
	s, err := New(6, 4, 1)
	require.NoError(t, err)

	fp := s.Footprint(1, [3]int{1, 0, 0})
	assert.Equal(t, [3]int{6, 0, 0}, fp.Min)
	assert.True(t, fp.Clip(6).Empty())
}

func TestSelector(t *testing.T) {
	assert.Equal(t, [3]int32{0, 0, 0}, Selector(0))
	assert.Equal(t, [3]int32{1, 0, 1}, Selector(5))
	assert.Equal(t, [3]int32{1, 1, 1}, Selector(7))
}
