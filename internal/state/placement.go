package state

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/voxelsand/internal/voxel"
)

// Limits bound the placement controls.
type Limits struct {
	DistStep float32
	MinDist  float32
	MaxDist  float32
	MinSize  float32
	MaxSize  float32
}

func DefaultLimits() Limits {
	return Limits{DistStep: 0.05, MinDist: 0, MaxDist: 200, MinSize: 1, MaxSize: 50}
}

// IncreaseDistance moves the insertion target one step away and forces a
// retrace.
func (s *SharedState) IncreaseDistance(l Limits) {
	s.BlockDist = s.clampDist(s.BlockDist+l.DistStep, l)
	s.forceRetrace()
}

// DecreaseDistance moves the target one step closer, never nearer than the
// brush radius.
func (s *SharedState) DecreaseDistance(l Limits) {
	s.BlockDist = s.clampDist(s.BlockDist-l.DistStep, l)
	s.forceRetrace()
}

func (s *SharedState) clampDist(d float32, l Limits) float32 {
	lo := max(l.MinDist, s.BlockSize)
	return mgl32.Clamp(d, lo, max(lo, l.MaxDist))
}

func (s *SharedState) forceRetrace() {
	s.UpdateDist = true
	s.DistUpdated = false
}

// ScrollSize grows or shrinks the brush radius by delta.
func (s *SharedState) ScrollSize(delta float32, l Limits) {
	s.BlockSize = mgl32.Clamp(s.BlockSize+delta, l.MinSize, l.MaxSize)
}

func (s *SharedState) SelectType(m voxel.Material) {
	s.BlockType = m
}

// Retrace applies the retrace rule once per input tick: after the previous
// request reached the renderer, a new one is raised only while the view is
// changing.
func (s *SharedState) Retrace(facingChanged bool) {
	if !s.DistUpdated {
		return
	}
	if facingChanged || s.Velocity != (mgl32.Vec3{}) {
		s.UpdateDist = true
		s.DistUpdated = false
		return
	}
	s.UpdateDist = false
}
