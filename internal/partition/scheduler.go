// Package partition computes the eight-phase dispatch geometry used by the
// simulation kernel.
//
// Workgroups are laid out on a lattice with pitch S (the spacing). Each
// workgroup covers an S/2 cube of cells, and a phase p shifts the whole
// lattice by S/2 on every axis whose bit is set in p. The eight phases tile
// the volume exactly once. Inside one phase, neighbouring groups are S apart,
// so as long as S ≥ 2·maxVelocity + S/2 no particle can move into, or next
// to, a cell another concurrently running group may write.
package partition

import (
	"errors"
	"fmt"
)

// Phases is the number of dispatch phases per iteration.
const Phases = 8

var (
	ErrDimension       = errors.New("partition: dimension must be positive")
	ErrSpacing         = errors.New("partition: spacing must be an even number >= 2")
	ErrVelocity        = errors.New("partition: max velocity must be >= 1")
	ErrSpacingTooSmall = errors.New("partition: spacing < 2*maxVelocity + workgroup edge")
)

// Box is a half-open cell range [Min, Max).
type Box struct {
	Min, Max [3]int
}

// Overlaps reports whether two boxes share at least one cell.
func (b Box) Overlaps(o Box) bool {
	for a := 0; a < 3; a++ {
		if b.Max[a] <= o.Min[a] || o.Max[a] <= b.Min[a] {
			return false
		}
	}
	return true
}

// Touches reports whether two boxes overlap or are face/edge/corner adjacent.
func (b Box) Touches(o Box) bool {
	return b.Grow(1).Overlaps(o)
}

func (b Box) Grow(n int) Box {
	for a := 0; a < 3; a++ {
		b.Min[a] -= n
		b.Max[a] += n
	}
	return b
}

// Clip intersects the box with [0, dim)³.
func (b Box) Clip(dim int) Box {
	for a := 0; a < 3; a++ {
		b.Min[a] = max(b.Min[a], 0)
		b.Max[a] = min(b.Max[a], dim)
		if b.Max[a] < b.Min[a] {
			b.Max[a] = b.Min[a]
		}
	}
	return b
}

func (b Box) Empty() bool {
	return b.Max[0] <= b.Min[0] || b.Max[1] <= b.Min[1] || b.Max[2] <= b.Min[2]
}

// Scheduler holds the dispatch geometry for one grid/spacing pair.
type Scheduler struct {
	dim         int
	spacing     int
	maxVelocity int
	groups      int
}

func New(dimension, spacing, maxVelocity int) (*Scheduler, error) {
	if dimension <= 0 {
		return nil, ErrDimension
	}
	if spacing < 2 || spacing%2 != 0 {
		return nil, fmt.Errorf("%w: got %d", ErrSpacing, spacing)
	}
	if maxVelocity < 1 {
		return nil, ErrVelocity
	}
	if spacing < 2*maxVelocity+spacing/2 {
		return nil, fmt.Errorf("%w: spacing=%d maxVelocity=%d", ErrSpacingTooSmall, spacing, maxVelocity)
	}

	return &Scheduler{
		dim:         dimension,
		spacing:     spacing,
		maxVelocity: maxVelocity,
		// int division with ceiling rounding
		groups: (dimension-1)/spacing + 1,
	}, nil
}

func (s *Scheduler) Dimension() int   { return s.dim }
func (s *Scheduler) Spacing() int     { return s.spacing }
func (s *Scheduler) MaxVelocity() int { return s.maxVelocity }

// WorkgroupCount is the number of groups dispatched per axis in every phase.
func (s *Scheduler) WorkgroupCount() int { return s.groups }

// WorkgroupEdge is the edge length of the cell cube one group covers.
func (s *Scheduler) WorkgroupEdge() int { return s.spacing / 2 }

// Order returns the phases in dispatch order. The order is fixed.
func (s *Scheduler) Order() [Phases]int {
	return [Phases]int{0, 1, 2, 3, 4, 5, 6, 7}
}

// Selector is the per-axis parity code of phase p as sent to the kernel.
func Selector(p int) [3]int32 {
	return [3]int32{int32(p & 1), int32((p >> 1) & 1), int32((p >> 2) & 1)}
}

// Offset is the cell offset of phase p's lattice.
func (s *Scheduler) Offset(p int) [3]int {
	sel := Selector(p)
	half := s.spacing / 2
	return [3]int{int(sel[0]) * half, int(sel[1]) * half, int(sel[2]) * half}
}

// Origin is the first cell of group g in phase p.
func (s *Scheduler) Origin(p int, g [3]int) [3]int {
	off := s.Offset(p)
	return [3]int{g[0]*s.spacing + off[0], g[1]*s.spacing + off[1], g[2]*s.spacing + off[2]}
}

// Footprint is the unclipped cell box whose invocations belong to group g.
func (s *Scheduler) Footprint(p int, g [3]int) Box {
	o := s.Origin(p, g)
	e := s.WorkgroupEdge()
	return Box{Min: o, Max: [3]int{o[0] + e, o[1] + e, o[2] + e}}
}

// WriteFootprint is every cell group g may write: its footprint grown by
// the maximum particle displacement, clipped to the grid.
func (s *Scheduler) WriteFootprint(p int, g [3]int) Box {
	return s.Footprint(p, g).Grow(s.maxVelocity).Clip(s.dim)
}

// Groups calls fn for every group of phase p in x-fastest order.
func (s *Scheduler) Groups(p int, fn func(g [3]int)) {
	n := s.groups
	for z := 0; z < n; z++ {
		for y := 0; y < n; y++ {
			for x := 0; x < n; x++ {
				fn([3]int{x, y, z})
			}
		}
	}
}
