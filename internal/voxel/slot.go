package voxel

// Slot is the block insertion target. The renderer writes it at most once
// per frame and the simulation kernel reads it on the next frame's dispatches;
// both happen on the simulation/render loop, so it needs no lock.
type Slot struct {
	X, Y, Z int32
}

// Miss is the target written when the facing ray leaves the volume before
// reaching anything: far enough outside that no cell is within blockSize.
func Miss(dim int, blockDist float32) Slot {
	v := int32(dim) + int32(blockDist)
	return Slot{X: v, Y: v, Z: v}
}

func (s *Slot) Store(x, y, z int32) {
	s.X, s.Y, s.Z = x, y, z
}

func (s Slot) Coords() [3]int32 { return [3]int32{s.X, s.Y, s.Z} }

// Equal reports whether the slot points at (x, y, z).
func (s Slot) Equal(x, y, z int) bool {
	return int(s.X) == x && int(s.Y) == y && int(s.Z) == z
}

// DistanceSq returns the squared distance from the slot to (x, y, z).
func (s Slot) DistanceSq(x, y, z int) float32 {
	dx := float32(x) - float32(s.X)
	dy := float32(y) - float32(s.Y)
	dz := float32(z) - float32(s.Z)
	return dx*dx + dy*dy + dz*dz
}
