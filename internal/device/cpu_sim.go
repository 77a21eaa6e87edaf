package device

import (
	"math"

	"github.com/san-kum/voxelsand/internal/voxel"
)

// simKernel is one DispatchSim call. Each workgroup is run by a single task,
// cell by cell; groups of one phase never write the same cell, so tasks
// share the grid without locks.
type simKernel struct {
	prog    *simProgram
	grid    *voxel.Grid
	slot    voxel.Slot
	u       SimUniforms
	edge    int
	spacing int
	groups  int
}

// lateral lists the four horizontal neighbours for a sign s; the hash picks
// the sign and whether the list is walked forwards or backwards.
func lateral(s int) [4][2]int {
	return [4][2]int{{-s, 0}, {s, 0}, {0, -s}, {0, s}}
}

func (k *simKernel) runGroups(start, end int) {
	n := k.groups
	for g := start; g < end; g++ {
		gx, gy, gz := g%n, (g/n)%n, g/(n*n)
		k.runGroup(gx, gy, gz)
	}
}

func (k *simKernel) origin(g int, axis int) int {
	return g*k.spacing + int(k.u.Partition[axis])*(k.spacing/2)
}

func (k *simKernel) runGroup(gx, gy, gz int) {
	ox, oy, oz := k.origin(gx, 0), k.origin(gy, 1), k.origin(gz, 2)

	// Bottom layers first so a particle that fell is already flagged when
	// its new row is visited.
	for y := oy; y < oy+k.edge; y++ {
		for z := oz; z < oz+k.edge; z++ {
			for x := ox; x < ox+k.edge; x++ {
				k.step(x, y, z)
			}
		}
	}

	if !k.u.PlaceBlock {
		return
	}
	for y := oy; y < oy+k.edge; y++ {
		for z := oz; z < oz+k.edge; z++ {
			for x := ox; x < ox+k.edge; x++ {
				k.place(x, y, z)
			}
		}
	}
}

// step applies one particle update at (x, y, z). Invocations outside the
// volume do nothing.
func (k *simKernel) step(x, y, z int) {
	g := k.grid
	if !g.InBounds(x, y, z) {
		return
	}
	c := g.Cells[g.Index(x, y, z)]
	if !c.Occupied() || c.UpdatedIn(k.u.CurrentFlag) {
		return
	}

	m := c.Material()
	h := cellHash(x, y, z, math.Float32bits(k.u.RNG))
	s := 1
	if h&1 != 0 {
		s = -1
	}
	reverse := h&2 != 0
	dirs := lateral(s)

	switch k.prog.behaviors[m] {
	case BehaviorStatic:
		k.stamp(x, y, z, m)
	case BehaviorPowder:
		if y > 0 && (k.move(x, y, z, x, y-1, z, m) || k.tryEach(x, y, z, -1, dirs, reverse, m)) {
			return
		}
		k.stamp(x, y, z, m)
	case BehaviorLiquid:
		if y > 0 && (k.move(x, y, z, x, y-1, z, m) || k.tryEach(x, y, z, -1, dirs, reverse, m)) {
			return
		}
		if k.tryEach(x, y, z, 0, dirs, reverse, m) {
			return
		}
		k.stamp(x, y, z, m)
	}
}

func (k *simKernel) tryEach(x, y, z, dy int, dirs [4][2]int, reverse bool, m voxel.Material) bool {
	for i := range dirs {
		d := dirs[i]
		if reverse {
			d = dirs[len(dirs)-1-i]
		}
		if k.move(x, y, z, x+d[0], y+dy, z+d[1], m) {
			return true
		}
	}
	return false
}

// move relocates a particle into an empty in-bounds target.
func (k *simKernel) move(x, y, z, tx, ty, tz int, m voxel.Material) bool {
	g := k.grid
	if !g.InBounds(tx, ty, tz) {
		return false
	}
	ti := g.Index(tx, ty, tz)
	if g.Cells[ti].Occupied() {
		return false
	}
	g.Cells[ti] = voxel.NewCell(m, k.u.CurrentFlag)
	g.Cells[g.Index(x, y, z)] = 0
	return true
}

func (k *simKernel) stamp(x, y, z int, m voxel.Material) {
	k.grid.Cells[k.grid.Index(x, y, z)] = voxel.NewCell(m, k.u.CurrentFlag)
}

func (k *simKernel) place(x, y, z int) {
	g := k.grid
	if !g.InBounds(x, y, z) {
		return
	}
	if k.slot.DistanceSq(x, y, z) >= k.u.BlockSize*k.u.BlockSize {
		return
	}
	i := g.Index(x, y, z)
	if k.u.BlockType == voxel.Empty {
		g.Cells[i] = 0
		return
	}
	if !g.Cells[i].Occupied() {
		g.Cells[i] = voxel.NewCell(k.u.BlockType, k.u.CurrentFlag)
	}
}

// cellHash mixes a cell position with the iteration's random value. The GLSL
// kernel uses the same function so both backends pick the same directions.
func cellHash(x, y, z int, seed uint32) uint32 {
	h := fmix32(seed ^ uint32(x)*0x9e3779b1)
	h = fmix32(h ^ uint32(y)*0x85ebca77)
	return fmix32(h ^ uint32(z)*0xc2b2ae3d)
}

func fmix32(h uint32) uint32 {
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16
	return h
}
