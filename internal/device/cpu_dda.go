package device

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/voxelsand/internal/voxel"
)

var inf = float32(math.Inf(1))

// ddaKernel is one DispatchRender call over the whole output frame.
type ddaKernel struct {
	prog   *ddaProgram
	grid   *voxel.Grid
	u      RenderUniforms
	out    *Frame
	target voxel.Slot

	right, up, forward mgl32.Vec3
	dim                float32
}

func newDDAKernel(prog *ddaProgram, grid *voxel.Grid, u RenderUniforms, out *Frame) *ddaKernel {
	return &ddaKernel{
		prog:    prog,
		grid:    grid,
		u:       u,
		out:     out,
		right:   u.CameraMat.Col(0),
		up:      u.CameraMat.Col(1),
		forward: u.CameraMat.Col(2),
		dim:     float32(grid.Dim),
	}
}

func (k *ddaKernel) runTileRows(start, end int) {
	w, h := k.out.Width, k.out.Height
	for py := start * RenderTile; py < end*RenderTile && py < h; py++ {
		for px := 0; px < w; px++ {
			k.out.Pix[py*w+px] = k.shade(px, py)
		}
	}
}

// ray returns the world direction through pixel (px, py); row 0 is the top
// of the image.
func (k *ddaKernel) ray(px, py int) mgl32.Vec3 {
	w, h := float32(k.out.Width), float32(k.out.Height)
	lx := (float32(px) - w/2) / h
	ly := (h/2 - float32(py)) / h
	return k.right.Mul(lx).Add(k.up.Mul(ly)).Add(k.forward).Normalize()
}

func (k *ddaKernel) shade(px, py int) color.RGBA {
	if px == k.out.Width/2 && py == k.out.Height/2 {
		return toRGBA(k.prog.crosshair)
	}

	origin := k.u.CameraPos
	dir := k.ray(px, py)
	tMin, tMax, entry, ok := k.clip(origin, dir)
	if !ok {
		return toRGBA(k.prog.void)
	}

	w := newWalker(origin, dir, tMin, entry, k.grid.Dim)
	for w.t < tMax-tMin && tMin+w.t < k.u.MaxDistance {
		if !k.grid.InBounds(w.pos[0], w.pos[1], w.pos[2]) {
			break
		}
		if k.target.Equal(w.pos[0], w.pos[1], w.pos[2]) {
			return toRGBA(k.prog.highlight)
		}
		if c := k.grid.At(w.pos[0], w.pos[1], w.pos[2]); c.Occupied() {
			return toRGBA(k.surface(c.Material(), origin, dir, tMin+w.t, w.axis))
		}
		w.advance()
	}
	return toRGBA(k.prog.background)
}

func (k *ddaKernel) surface(m voxel.Material, origin, dir mgl32.Vec3, t float32, axis int) [3]float32 {
	base := k.prog.highlight
	if k.prog.known[m] {
		base = k.prog.palette[m]
	}
	f := k.prog.faceShade[axis]
	if k.u.DrawLines && k.onEdge(origin.Add(dir.Mul(t)), axis) {
		f *= k.prog.lineShade
	}
	return [3]float32{base[0] * f, base[1] * f, base[2] * f}
}

// onEdge reports whether a hit point on a face perpendicular to axis lies
// within lineWidth of that face's border.
func (k *ddaKernel) onEdge(p mgl32.Vec3, axis int) bool {
	lw := k.prog.lineWidth
	for a := 0; a < 3; a++ {
		if a == axis {
			continue
		}
		fr := p[a] - float32(math.Floor(float64(p[a])))
		if fr < lw || fr > 1-lw {
			return true
		}
	}
	return false
}

// clip intersects the ray with [0, D]³. entry is the axis whose slab is
// crossed last on the way in.
func (k *ddaKernel) clip(origin, dir mgl32.Vec3) (tMin, tMax float32, entry int, ok bool) {
	tMin, tMax = float32(math.Inf(-1)), inf
	for a := 0; a < 3; a++ {
		if dir[a] == 0 {
			if origin[a] < 0 || origin[a] > k.dim {
				return 0, 0, 0, false
			}
			continue
		}
		inv := 1 / dir[a]
		t0, t1 := -origin[a]*inv, (k.dim-origin[a])*inv
		if t0 > t1 {
			t0, t1 = t1, t0
		}
		if t0 > tMin {
			tMin, entry = t0, a
		}
		tMax = min(tMax, t1)
	}
	if tMin > tMax || tMax < 0 {
		return 0, 0, 0, false
	}
	return max(tMin, 0), tMax, entry, true
}

// locate marches the facing ray up to BlockDist and returns the last empty
// cell before the first occupied one.
func (k *ddaKernel) locate() voxel.Slot {
	miss := voxel.Miss(k.grid.Dim, k.u.BlockDist)
	origin := k.u.CameraPos
	dir := k.forward.Normalize()
	tMin, tMax, entry, ok := k.clip(origin, dir)
	if !ok {
		return miss
	}

	last := miss
	w := newWalker(origin, dir, tMin, entry, k.grid.Dim)
	for w.t < tMax-tMin && tMin+w.t < k.u.BlockDist {
		if !k.grid.InBounds(w.pos[0], w.pos[1], w.pos[2]) {
			break
		}
		if k.grid.At(w.pos[0], w.pos[1], w.pos[2]).Occupied() {
			break
		}
		last = voxel.Slot{X: int32(w.pos[0]), Y: int32(w.pos[1]), Z: int32(w.pos[2])}
		w.advance()
	}
	return last
}

// walker steps a ray cell by cell, always crossing the nearest boundary.
type walker struct {
	pos, step [3]int
	side, dt  [3]float32
	t         float32
	axis      int
}

func newWalker(origin, dir mgl32.Vec3, tMin float32, entry, dim int) *walker {
	w := &walker{axis: entry}
	p := origin.Add(dir.Mul(tMin))
	for a := 0; a < 3; a++ {
		cell := int(math.Floor(float64(p[a])))
		w.pos[a] = min(max(cell, 0), dim-1)
		switch {
		case dir[a] > 0:
			w.step[a] = 1
			w.dt[a] = 1 / dir[a]
			w.side[a] = (float32(w.pos[a]+1) - p[a]) * w.dt[a]
		case dir[a] < 0:
			w.step[a] = -1
			w.dt[a] = -1 / dir[a]
			w.side[a] = (p[a] - float32(w.pos[a])) * w.dt[a]
		default:
			w.dt[a] = inf
			w.side[a] = inf
		}
	}
	return w
}

func (w *walker) advance() {
	a := 0
	if w.side[1] < w.side[a] {
		a = 1
	}
	if w.side[2] < w.side[a] {
		a = 2
	}
	w.t = w.side[a]
	w.side[a] += w.dt[a]
	w.pos[a] += w.step[a]
	w.axis = a
}
