// Package render turns the voxel volume into a color frame by ray marching
// it on the device, and retraces the block insertion target on request.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/camera"
	"github.com/san-kum/voxelsand/internal/device"
)

// DefaultMaxDistance bounds the ray march. It covers the diagonal of the
// default volume seen from outside.
const DefaultMaxDistance = 1000

var ErrNoProgram = errors.New("render: no ray marching program loaded")

// FrameError wraps a device failure during a render.
type FrameError struct {
	Frame   uint64
	Op      string
	Wrapped error
}

func (e *FrameError) Error() string {
	return fmt.Sprintf("render: frame %d: %s: %v", e.Frame, e.Op, e.Wrapped)
}

func (e *FrameError) Unwrap() error { return e.Wrapped }

// Params is the render snapshot for one frame.
type Params struct {
	Pose       camera.Pose
	BlockDist  float32
	BlockSize  float32
	PlaceBlock bool
	UpdateDist bool
	DrawLines  bool
}

type Renderer struct {
	backend     device.Backend
	program     *device.ProgramSlot
	log         logr.Logger
	dim         int
	resolution  [2]int
	maxDistance float32

	out    *device.Frame
	frames uint64
}

func New(b device.Backend, dim int, resolution [2]int, maxDistance float32, log logr.Logger) *Renderer {
	log = log.WithName("render")
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}
	return &Renderer{
		backend:     b,
		program:     device.NewProgramSlot(device.KernelRender, log),
		log:         log,
		dim:         dim,
		resolution:  resolution,
		maxDistance: maxDistance,
		out:         device.NewFrame(resolution[0], resolution[1]),
	}
}

// Load compiles the ray marching kernel from dir, or the embedded default
// when dir is empty.
func (r *Renderer) Load(dir string) error {
	src, err := device.ReadSource(r.backend, device.KernelRender, dir)
	if err != nil {
		r.program.Swap(device.InvalidProgram)
		return fmt.Errorf("render: read kernel: %w", err)
	}
	r.Reload(src)
	return nil
}

func (r *Renderer) Reload(source []byte) bool {
	return r.program.Swap(r.backend.Compile(device.KernelRender, source))
}

func (r *Renderer) Program() device.Program { return r.program.Active() }
func (r *Renderer) Resolution() [2]int      { return r.resolution }

// Uniforms builds the kernel inputs for p.
func (r *Renderer) Uniforms(p Params) device.RenderUniforms {
	return device.RenderUniforms{
		Resolution:  [2]int32{int32(r.resolution[0]), int32(r.resolution[1])},
		CameraPos:   p.Pose.Position,
		CameraMat:   p.Pose.Basis(),
		Dimension:   uint32(r.dim),
		BlockDist:   p.BlockDist,
		BlockSize:   p.BlockSize,
		PlaceBlock:  p.PlaceBlock,
		UpdateDist:  p.UpdateDist,
		DrawLines:   p.DrawLines,
		MaxDistance: r.maxDistance,
	}
}

// Frame renders one image. It must run after the simulation's last barrier
// of the frame. The returned frame is reused by the next call.
func (r *Renderer) Frame(ctx context.Context, p Params) (*device.Frame, error) {
	r.frames++
	if !r.program.Valid() {
		return nil, ErrNoProgram
	}

	if err := r.backend.DispatchRender(r.program.Active(), r.Uniforms(p)); err != nil {
		return nil, &FrameError{Frame: r.frames, Op: "dispatch", Wrapped: err}
	}
	if err := r.backend.Barrier(); err != nil {
		return nil, &FrameError{Frame: r.frames, Op: "barrier", Wrapped: err}
	}
	if err := r.backend.ReadFrame(r.out); err != nil {
		return nil, &FrameError{Frame: r.frames, Op: "read", Wrapped: err}
	}
	return r.out, nil
}

// FramebufferSize halves the render resolution for windows larger than
// limit in either dimension.
func FramebufferSize(width, height int, limit [2]int) [2]int {
	if width > limit[0] || height > limit[1] {
		return [2]int{max(width/2, 1), max(height/2, 1)}
	}
	return [2]int{width, height}
}
