// Package opengl runs the simulation and ray marching kernels as OpenGL 4.3
// compute shaders. It needs a current GL context on the calling thread, so
// frontends that own a window register it by importing this package.
package opengl

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/voxel"
)

//go:embed shaders/*.comp
var shaders embed.FS

const (
	gridUnit  = 1
	frameUnit = 0
	slotIndex = 0
)

func init() {
	device.Register("gl", func(opts device.Options) (device.Backend, error) {
		return NewBackend(opts), nil
	})
}

// Backend keeps the grid in a 3D R32UI image, the insertion target in a
// small storage buffer and the frame in an RGBA8 image.
type Backend struct {
	log       logr.Logger
	available bool
	timer     *Timer

	GridTex  uint32
	FrameTex uint32
	SlotSSBO uint32

	dim        int
	spacing    int
	resolution [2]int
	bound      bool
	programs   []uint32
}

func NewBackend(opts device.Options) *Backend {
	b := &Backend{log: opts.Log}
	if !opts.HasContext {
		return b
	}
	if err := gl.Init(); err != nil {
		b.log.Info("opengl unavailable", "error", err.Error())
		return b
	}

	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		b.log.Info("opengl compute needs 4.3", "version", fmt.Sprintf("%d.%d", major, minor))
		return b
	}

	var maxWorkGroupCount [3]int32
	var maxWorkGroupSize [3]int32
	gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_COUNT, 0, &maxWorkGroupCount[0])
	gl.GetIntegeri_v(gl.MAX_COMPUTE_WORK_GROUP_SIZE, 0, &maxWorkGroupSize[0])
	b.log.V(1).Info("opengl compute initialized",
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"maxWorkGroups", maxWorkGroupCount[0], "maxWorkGroupSize", maxWorkGroupSize[0])

	b.available = true
	b.timer = newTimer()
	return b
}

func (b *Backend) Name() string        { return "gl" }
func (b *Backend) Available() bool     { return b.available }
func (b *Backend) Timer() device.Timer { return b.timer }

func (b *Backend) SourceName(k device.Kernel) string { return k.String() + ".comp" }

func (b *Backend) DefaultSource(k device.Kernel) []byte {
	data, err := shaders.ReadFile("shaders/" + b.SourceName(k))
	if err != nil {
		return nil
	}
	return data
}

// Bind uploads the grid and allocates the device images. The host grid is
// the initial contents only; afterwards the volume lives on the device.
func (b *Backend) Bind(bind device.Binding) error {
	if bind.Grid == nil || bind.Slot == nil {
		return device.ErrNotBound
	}
	if bind.Resolution[0] <= 0 || bind.Resolution[1] <= 0 {
		return fmt.Errorf("%w: %dx%d", device.ErrResolution, bind.Resolution[0], bind.Resolution[1])
	}
	b.release()

	d := int32(bind.Grid.Dim)
	gl.GenTextures(1, &b.GridTex)
	gl.BindTexture(gl.TEXTURE_3D, b.GridTex)
	gl.TexStorage3D(gl.TEXTURE_3D, 1, gl.R32UI, d, d, d)
	gl.TexSubImage3D(gl.TEXTURE_3D, 0, 0, 0, 0, d, d, d, gl.RED_INTEGER, gl.UNSIGNED_INT, gl.Ptr(bind.Grid.Cells))
	gl.BindImageTexture(gridUnit, b.GridTex, 0, true, 0, gl.READ_WRITE, gl.R32UI)

	slot := [4]int32{bind.Slot.X, bind.Slot.Y, bind.Slot.Z, 0}
	gl.GenBuffers(1, &b.SlotSSBO)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.SlotSSBO)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, 16, gl.Ptr(&slot[0]), gl.DYNAMIC_COPY)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, slotIndex, b.SlotSSBO)

	b.allocFrame(bind.Resolution)

	b.dim = bind.Grid.Dim
	b.spacing = bind.Spacing
	b.bound = true
	return nil
}

func (b *Backend) allocFrame(res [2]int) {
	if b.FrameTex != 0 {
		gl.DeleteTextures(1, &b.FrameTex)
	}
	gl.GenTextures(1, &b.FrameTex)
	gl.BindTexture(gl.TEXTURE_2D, b.FrameTex)
	gl.TexStorage2D(gl.TEXTURE_2D, 1, gl.RGBA8, int32(res[0]), int32(res[1]))
	gl.BindImageTexture(frameUnit, b.FrameTex, 0, false, 0, gl.WRITE_ONLY, gl.RGBA8)
	b.resolution = res
}

// Compile builds kernel k against the bound geometry. Failures are logged
// and reported as InvalidProgram.
func (b *Backend) Compile(k device.Kernel, source []byte) device.Program {
	if !b.bound {
		b.log.Info("compile before bind", "kernel", k.String())
		return device.InvalidProgram
	}
	program, err := createComputeProgram(b.withDefines(source))
	if err != nil {
		b.log.V(1).Info("compile failed", "kernel", k.String(), "error", err.Error())
		return device.InvalidProgram
	}
	b.programs = append(b.programs, program)
	return device.Program(program)
}

// withDefines inserts the grid geometry right after the #version line.
func (b *Backend) withDefines(source []byte) string {
	defines := fmt.Sprintf("#define DIMENSION %d\n#define SPACING %d\n#define EDGE %d\n", b.dim, b.spacing, b.spacing/2)
	src := string(source)
	if i := bytes.IndexByte(source, '\n'); i >= 0 && strings.HasPrefix(src, "#version") {
		return src[:i+1] + defines + src[i+1:]
	}
	return defines + src
}

func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}

func glBool(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

func (b *Backend) DispatchSim(p device.Program, u device.SimUniforms, groups int) error {
	if !b.bound {
		return device.ErrNotBound
	}
	if p == device.InvalidProgram {
		return device.ErrInvalidProgram
	}
	program := uint32(p)
	gl.UseProgram(program)
	gl.Uniform1ui(uniform(program, "currentFlag"), uint32(u.CurrentFlag))
	gl.Uniform3i(uniform(program, "partition"), u.Partition[0], u.Partition[1], u.Partition[2])
	gl.Uniform1f(uniform(program, "rng"), u.RNG)
	gl.Uniform1ui(uniform(program, "blockType"), uint32(u.BlockType))
	gl.Uniform1f(uniform(program, "blockSize"), u.BlockSize)
	gl.Uniform1i(uniform(program, "placeBlock"), glBool(u.PlaceBlock))

	n := uint32(groups)
	gl.DispatchCompute(n, n, n)
	return checkError("dispatch sim")
}

func (b *Backend) DispatchRender(p device.Program, u device.RenderUniforms) error {
	if !b.bound {
		return device.ErrNotBound
	}
	if p == device.InvalidProgram {
		return device.ErrInvalidProgram
	}
	res := [2]int{int(u.Resolution[0]), int(u.Resolution[1])}
	if res != b.resolution {
		b.allocFrame(res)
	}

	program := uint32(p)
	gl.UseProgram(program)
	gl.Uniform2i(uniform(program, "resolution"), u.Resolution[0], u.Resolution[1])
	gl.Uniform3f(uniform(program, "cameraPos"), u.CameraPos[0], u.CameraPos[1], u.CameraPos[2])
	gl.UniformMatrix3fv(uniform(program, "cameraMat"), 1, false, &u.CameraMat[0])
	gl.Uniform1f(uniform(program, "blockDist"), u.BlockDist)
	gl.Uniform1f(uniform(program, "maxDistance"), u.MaxDistance)
	gl.Uniform1i(uniform(program, "drawLines"), glBool(u.DrawLines))

	// The target is traced by one invocation and made visible before any
	// pixel reads it.
	if u.UpdateDist && !u.PlaceBlock {
		gl.Uniform1i(uniform(program, "locate"), 1)
		gl.DispatchCompute(1, 1, 1)
		gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	}
	gl.Uniform1i(uniform(program, "locate"), 0)

	tiles := func(n int) uint32 { return uint32((n + device.RenderTile - 1) / device.RenderTile) }
	gl.DispatchCompute(tiles(res[0]), tiles(res[1]), 1)
	return checkError("dispatch render")
}

func (b *Backend) Barrier() error {
	gl.MemoryBarrier(gl.SHADER_IMAGE_ACCESS_BARRIER_BIT | gl.SHADER_STORAGE_BARRIER_BIT | gl.TEXTURE_UPDATE_BARRIER_BIT)
	return nil
}

func (b *Backend) ReadFrame(dst *device.Frame) error {
	if !b.bound {
		return device.ErrNotBound
	}
	w, h := b.resolution[0], b.resolution[1]
	if dst.Width != w || dst.Height != h || len(dst.Pix) != w*h {
		*dst = *device.NewFrame(w, h)
	}
	gl.BindTexture(gl.TEXTURE_2D, b.FrameTex)
	gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(&dst.Pix[0]))
	return checkError("read frame")
}

// ReadGrid copies the device volume back into g.
func (b *Backend) ReadGrid(g *voxel.Grid) error {
	if !b.bound || g.Dim != b.dim {
		return device.ErrNotBound
	}
	gl.BindTexture(gl.TEXTURE_3D, b.GridTex)
	gl.GetTexImage(gl.TEXTURE_3D, 0, gl.RED_INTEGER, gl.UNSIGNED_INT, gl.Ptr(g.Cells))
	return checkError("read grid")
}

// ReadSlot copies the device insertion target into s.
func (b *Backend) ReadSlot(s *voxel.Slot) error {
	if !b.bound {
		return device.ErrNotBound
	}
	var v [4]int32
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.SlotSSBO)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, 16, gl.Ptr(&v[0]))
	s.Store(v[0], v[1], v[2])
	return checkError("read slot")
}

func (b *Backend) release() {
	if b.GridTex != 0 {
		gl.DeleteTextures(1, &b.GridTex)
		b.GridTex = 0
	}
	if b.FrameTex != 0 {
		gl.DeleteTextures(1, &b.FrameTex)
		b.FrameTex = 0
	}
	if b.SlotSSBO != 0 {
		gl.DeleteBuffers(1, &b.SlotSSBO)
		b.SlotSSBO = 0
	}
	b.bound = false
}

func (b *Backend) Cleanup() {
	if !b.available {
		return
	}
	for _, p := range b.programs {
		gl.DeleteProgram(p)
	}
	b.programs = nil
	b.timer.release()
	b.release()
}

func checkError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("opengl: %s: error 0x%x", op, code)
	}
	return nil
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program")
	}
	return program, nil
}
