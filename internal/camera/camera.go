// Package camera is the first-person viewer: a pose, its orthonormal basis,
// and a controller that moves the pose from sampled input.
package camera

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/voxelsand/internal/input"
)

// MaxPitch keeps the view off the poles where the basis degenerates.
const MaxPitch = math.Pi/2 - 0.01

var worldUp = mgl32.Vec3{0, 1, 0}

type Pose struct {
	Position   mgl32.Vec3
	Yaw, Pitch float32
}

// LookAt returns a pose at pos facing target.
func LookAt(pos, target mgl32.Vec3) Pose {
	d := target.Sub(pos).Normalize()
	return Pose{
		Position: pos,
		Yaw:      float32(math.Atan2(float64(d.X()), float64(d.Z()))),
		Pitch:    float32(math.Asin(float64(d.Y()))),
	}
}

// Start is the initial pose for a volume of edge dim: outside the far
// corner, looking at the centre.
func Start(dim int) Pose {
	c := float32(dim) / 2
	p := float32(dim + 30)
	return LookAt(mgl32.Vec3{p, p, p}, mgl32.Vec3{c, c, c})
}

// Facing is the unit view direction.
func (p Pose) Facing() mgl32.Vec3 {
	sy, cy := math.Sincos(float64(p.Yaw))
	sp, cp := math.Sincos(float64(p.Pitch))
	return mgl32.Vec3{float32(cp * sy), float32(sp), float32(cp * cy)}
}

// Basis returns the camera matrix with right, up and forward as columns.
func (p Pose) Basis() mgl32.Mat3 {
	f := p.Facing()
	r := f.Cross(worldUp).Normalize()
	u := r.Cross(f)
	return mgl32.Mat3FromCols(r, u, f)
}

type Controller struct {
	// Speed is in cells per second.
	Speed float32
	// Sensitivity is radians per unit of mouse movement.
	Sensitivity float32
}

// Advance applies one input sample over dt and returns the new pose and the
// velocity it moved with.
func (c Controller) Advance(p Pose, in input.Snapshot, dt time.Duration) (Pose, mgl32.Vec3) {
	p.Yaw -= in.MouseDelta.X() * c.Sensitivity
	p.Pitch -= in.MouseDelta.Y() * c.Sensitivity
	p.Pitch = mgl32.Clamp(p.Pitch, -MaxPitch, MaxPitch)
	p.Yaw = float32(math.Remainder(float64(p.Yaw), 2*math.Pi))

	sy, cy := math.Sincos(float64(p.Yaw))
	forward := mgl32.Vec3{float32(sy), 0, float32(cy)}
	right := forward.Cross(worldUp)

	var dir mgl32.Vec3
	axes := []struct {
		key input.Key
		v   mgl32.Vec3
	}{
		{input.KeyW, forward},
		{input.KeyS, forward.Mul(-1)},
		{input.KeyD, right},
		{input.KeyA, right.Mul(-1)},
		{input.KeySpace, worldUp},
		{input.KeyShift, worldUp.Mul(-1)},
	}
	for _, a := range axes {
		if in.Down(a.key) {
			dir = dir.Add(a.v)
		}
	}

	var vel mgl32.Vec3
	if dir.Len() > 0 {
		vel = dir.Normalize().Mul(c.Speed)
	}
	p.Position = p.Position.Add(vel.Mul(float32(dt.Seconds())))
	return p, vel
}
