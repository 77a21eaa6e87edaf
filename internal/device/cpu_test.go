package device

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/voxelsand/internal/voxel"
)

type cpuFixture struct {
	b      *CPUBackend
	grid   *voxel.Grid
	slot   *voxel.Slot
	sim    Program
	dda    Program
	flag   *voxel.GenerationFlag
	groups int
}

func newCPUFixture(t *testing.T, dim, spacing, workers int) *cpuFixture {
	t.Helper()
	grid, err := voxel.NewGrid(dim)
	require.NoError(t, err)
	slot := voxel.Miss(dim, 10)

	b := NewCPUBackend(Options{Workers: workers, Log: logr.Discard()})
	t.Cleanup(b.Cleanup)
	require.NoError(t, b.Bind(Binding{Grid: grid, Slot: &slot, Spacing: spacing, Resolution: [2]int{64, 64}}))

	f := &cpuFixture{
		b:      b,
		grid:   grid,
		slot:   &slot,
		sim:    b.Compile(KernelSim, b.DefaultSource(KernelSim)),
		dda:    b.Compile(KernelRender, b.DefaultSource(KernelRender)),
		flag:   voxel.NewGenerationFlag(),
		groups: (dim-1)/spacing + 1,
	}
	require.NotEqual(t, InvalidProgram, f.sim)
	require.NotEqual(t, InvalidProgram, f.dda)
	return f
}

// iterate runs full simulation iterations the way the stepper does.
func (f *cpuFixture) iterate(t *testing.T, n int, u SimUniforms) {
	t.Helper()
	for i := 0; i < n; i++ {
		u.CurrentFlag = f.flag.Toggle()
		u.RNG = float32(i) * 0.37
		u.Dimension = uint32(f.grid.Dim)
		for p := 0; p < 8; p++ {
			u.Partition = [3]int32{int32(p & 1), int32(p>>1&1), int32(p>>2&1)}
			require.NoError(t, f.b.DispatchSim(f.sim, u, f.groups))
			require.NoError(t, f.b.Barrier())
		}
	}
}

func TestCPU_DispatchBeforeBind(t *testing.T) {
	b := NewCPUBackend(Options{Workers: 1, Log: logr.Discard()})
	defer b.Cleanup()

	p := b.Compile(KernelSim, b.DefaultSource(KernelSim))
	assert.ErrorIs(t, b.DispatchSim(p, SimUniforms{}, 1), ErrNotBound)
	assert.ErrorIs(t, b.ReadFrame(NewFrame(1, 1)), ErrNotBound)
}

func TestCPU_BindValidation(t *testing.T) {
	grid, _ := voxel.NewGrid(4)
	slot := voxel.Slot{}
	b := NewCPUBackend(Options{Workers: 1, Log: logr.Discard()})
	defer b.Cleanup()

	assert.ErrorIs(t, b.Bind(Binding{Slot: &slot, Resolution: [2]int{1, 1}}), ErrNotBound)
	assert.ErrorIs(t, b.Bind(Binding{Grid: grid, Slot: &slot, Resolution: [2]int{0, 4}}), ErrResolution)
}

func TestCPU_CompileRejectsBadSources(t *testing.T) {
	b := NewCPUBackend(Options{Workers: 1, Log: logr.Discard()})
	defer b.Cleanup()

	tests := []struct {
		name   string
		kernel Kernel
		src    string
	}{
		{"not yaml", KernelSim, "kernel: [particlesim"},
		{"wrong kernel", KernelSim, "kernel: dda\n"},
		{"unknown behavior", KernelSim, "kernel: particlesim\nmaterials:\n  - {name: goo, id: 4, behavior: gas}\n"},
		{"id out of range", KernelSim, "kernel: particlesim\nmaterials:\n  - {name: x, id: 128, behavior: static}\n"},
		{"duplicate id", KernelSim, "kernel: particlesim\nmaterials:\n  - {name: a, id: 1, behavior: static}\n  - {name: b, id: 1, behavior: liquid}\n"},
		{"short color", KernelRender, "kernel: dda\nvoid: [0, 0]\n"},
		{"unknown palette entry", KernelRender, "kernel: dda\nvoid: [0,0,0]\nbackground: [0,0,0]\nhighlight: [0,0,0]\ncrosshair: [0,0,0]\nface_shade: [1,1,1]\npalette:\n  lava: [1, 0, 0]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, InvalidProgram, b.Compile(tt.kernel, []byte(tt.src)))
		})
	}
}

func TestCPU_DispatchWrongProgramKind(t *testing.T) {
	f := newCPUFixture(t, 4, 4, 1)

	assert.ErrorIs(t, f.b.DispatchSim(f.dda, SimUniforms{}, 1), ErrInvalidProgram)
	assert.ErrorIs(t, f.b.DispatchRender(f.sim, RenderUniforms{Resolution: [2]int32{4, 4}}), ErrInvalidProgram)
	assert.ErrorIs(t, f.b.DispatchSim(InvalidProgram, SimUniforms{}, 1), ErrInvalidProgram)
}

func TestSimKernel_EmptyGridStaysEmpty(t *testing.T) {
	// dim 5 with spacing 4 rounds up to two groups per axis, so most
	// invocations of the second group fall outside the volume.
	f := newCPUFixture(t, 5, 4, 2)
	f.iterate(t, 3, SimUniforms{})
	assert.Equal(t, 0, f.grid.Count(voxel.Sand)+f.grid.Count(voxel.Stone)+f.grid.Count(voxel.Water))
	for _, c := range f.grid.Cells {
		assert.Equal(t, voxel.Cell(0), c)
	}
}

func TestSimKernel_OutOfRangeInvocationsTouchNothing(t *testing.T) {
	tests := []struct {
		dim    int
		groups int
	}{
		{dim: 4, groups: 1},
		{dim: 5, groups: 2},
		{dim: 6, groups: 2},
		{dim: 7, groups: 2},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("dim=%d", tt.dim), func(t *testing.T) {
			f := newCPUFixture(t, tt.dim, 4, 2)
			require.Equal(t, tt.groups, f.groups)
			d := tt.dim

			// A stone floor under packed sand with an empty top layer: no
			// in-range invocation can move anything.
			f.grid.FillBox([3]int{0, 0, 0}, [3]int{d, 1, d}, voxel.Stone)
			f.grid.FillBox([3]int{0, 1, 0}, [3]int{d, d - 1, d}, voxel.Sand)
			before := f.grid.Clone()

			f.iterate(t, 6, SimUniforms{})

			assert.Equal(t, d*(d-2)*d, f.grid.Count(voxel.Sand))
			assert.Equal(t, d*d, f.grid.Count(voxel.Stone))
			for z := 0; z < d; z++ {
				for y := 0; y < d; y++ {
					for x := 0; x < d; x++ {
						assert.Equal(t, before.Material(x, y, z), f.grid.Material(x, y, z), "cell %d,%d,%d", x, y, z)
						if f.grid.At(x, y, z).Occupied() {
							assert.Equal(t, f.flag.Value(), f.grid.At(x, y, z).Flag(), "cell %d,%d,%d", x, y, z)
						}
					}
				}
			}
		})
	}
}

func TestSimKernel_SandFallsOneCellPerIteration(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 4)
	f.grid.Set(3, 5, 3, voxel.NewCell(voxel.Sand, 0))

	f.iterate(t, 1, SimUniforms{})

	assert.Equal(t, voxel.Sand, f.grid.Material(3, 4, 3))
	assert.Equal(t, voxel.Empty, f.grid.Material(3, 5, 3))
	assert.Equal(t, voxel.Empty, f.grid.Material(3, 3, 3), "moved twice in one iteration")
	assert.Equal(t, f.flag.Value(), f.grid.At(3, 4, 3).Flag())

	f.iterate(t, 10, SimUniforms{})
	assert.Equal(t, voxel.Sand, f.grid.Material(3, 0, 3))
	assert.Equal(t, 1, f.grid.Count(voxel.Sand))
}

func TestSimKernel_SandRestsOnFloor(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.grid.FillBox([3]int{0, 0, 0}, [3]int{8, 1, 8}, voxel.Stone)
	f.grid.Set(3, 1, 3, voxel.NewCell(voxel.Sand, 0))

	f.iterate(t, 1, SimUniforms{})

	assert.Equal(t, voxel.Sand, f.grid.Material(3, 1, 3))
	assert.Equal(t, f.flag.Value(), f.grid.At(3, 1, 3).Flag())
	assert.Equal(t, f.flag.Value(), f.grid.At(0, 0, 0).Flag(), "static cells are stamped")
}

func TestSimKernel_SandSlidesOffPillar(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.grid.Set(3, 0, 3, voxel.NewCell(voxel.Stone, 0))
	f.grid.Set(3, 1, 3, voxel.NewCell(voxel.Sand, 0))

	f.iterate(t, 1, SimUniforms{})

	assert.Equal(t, voxel.Empty, f.grid.Material(3, 1, 3))
	landed := 0
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if f.grid.Material(3+d[0], 0, 3+d[1]) == voxel.Sand {
			landed++
		}
	}
	assert.Equal(t, 1, landed)
}

func TestSimKernel_WaterSpreadsOnFloor(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.grid.FillBox([3]int{0, 0, 0}, [3]int{8, 1, 8}, voxel.Stone)
	f.grid.Set(3, 1, 3, voxel.NewCell(voxel.Water, 0))

	f.iterate(t, 1, SimUniforms{})

	assert.Equal(t, voxel.Empty, f.grid.Material(3, 1, 3))
	assert.Equal(t, 1, f.grid.Count(voxel.Water))
	moved := 0
	for _, d := range [][2]int{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		if f.grid.Material(3+d[0], 1, 3+d[1]) == voxel.Water {
			moved++
		}
	}
	assert.Equal(t, 1, moved)
}

func TestSimKernel_ConservesParticles(t *testing.T) {
	f := newCPUFixture(t, 16, 4, 4)
	f.grid.FillBox([3]int{4, 8, 4}, [3]int{12, 12, 12}, voxel.Sand)
	f.grid.FillBox([3]int{0, 4, 0}, [3]int{4, 6, 16}, voxel.Water)

	f.iterate(t, 25, SimUniforms{})

	assert.Equal(t, 8*4*8, f.grid.Count(voxel.Sand))
	assert.Equal(t, 4*2*16, f.grid.Count(voxel.Water))
}

func TestSimKernel_WorkerCountDoesNotChangeResult(t *testing.T) {
	run := func(workers int) *voxel.Grid {
		f := newCPUFixture(t, 16, 4, workers)
		f.grid.FillBox([3]int{2, 6, 2}, [3]int{14, 14, 14}, voxel.Sand)
		f.grid.FillBox([3]int{0, 0, 0}, [3]int{16, 1, 16}, voxel.Stone)
		f.iterate(t, 12, SimUniforms{})
		return f.grid
	}
	assert.True(t, run(1).Equal(run(8)))
}

func TestSimKernel_PlaceAndErase(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.slot.Store(4, 4, 4)

	f.iterate(t, 1, SimUniforms{PlaceBlock: true, BlockType: voxel.Stone, BlockSize: 1.5})
	// centre, six face neighbours and twelve edge neighbours
	assert.Equal(t, 19, f.grid.Count(voxel.Stone))
	assert.Equal(t, voxel.Stone, f.grid.Material(4, 4, 4))
	assert.Equal(t, f.flag.Value(), f.grid.At(4, 4, 4).Flag())

	f.iterate(t, 1, SimUniforms{PlaceBlock: true, BlockType: voxel.Empty, BlockSize: 1.5})
	assert.Equal(t, 0, f.grid.Count(voxel.Stone))
}

func TestSimKernel_PlaceDoesNotOverwrite(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.grid.Set(4, 0, 4, voxel.NewCell(voxel.Stone, 0))
	f.slot.Store(4, 0, 4)

	f.iterate(t, 1, SimUniforms{PlaceBlock: true, BlockType: voxel.Water, BlockSize: 1})
	assert.Equal(t, voxel.Stone, f.grid.Material(4, 0, 4))
}

func TestSimKernel_PlaceMissTouchesNothing(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	*f.slot = voxel.Miss(8, 10)

	f.iterate(t, 1, SimUniforms{PlaceBlock: true, BlockType: voxel.Stone, BlockSize: 5})
	assert.Equal(t, 0, f.grid.Count(voxel.Stone))
}

// lookZ is a camera basis facing +z (or -z when back is set).
func lookZ(back bool) mgl32.Mat3 {
	if back {
		return mgl32.Mat3FromCols(mgl32.Vec3{-1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, -1})
	}
	return mgl32.Mat3FromCols(mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1})
}

func (f *cpuFixture) render(t *testing.T, u RenderUniforms) *Frame {
	t.Helper()
	if u.Resolution == [2]int32{} {
		u.Resolution = [2]int32{64, 64}
	}
	if u.MaxDistance == 0 {
		u.MaxDistance = 1000
	}
	u.Dimension = uint32(f.grid.Dim)
	require.NoError(t, f.b.DispatchRender(f.dda, u))
	require.NoError(t, f.b.Barrier())
	out := &Frame{}
	require.NoError(t, f.b.ReadFrame(out))
	return out
}

func assertColorNear(t *testing.T, want [3]float32, got color.RGBA) {
	t.Helper()
	w := toRGBA(want)
	assert.InDelta(t, w.R, got.R, 1)
	assert.InDelta(t, w.G, got.G, 1)
	assert.InDelta(t, w.B, got.B, 1)
}

func TestDDA_BackgroundVoidAndCrosshair(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	prog := f.b.program(f.dda).(*ddaProgram)

	inside := f.render(t, RenderUniforms{CameraPos: mgl32.Vec3{4, 4, -4}, CameraMat: lookZ(false)})
	assertColorNear(t, prog.background, inside.At(33, 32))
	assertColorNear(t, prog.crosshair, inside.At(32, 32))

	away := f.render(t, RenderUniforms{CameraPos: mgl32.Vec3{4, 4, -4}, CameraMat: lookZ(true)})
	assertColorNear(t, prog.void, away.At(33, 32))
}

func TestDDA_HitsWallWithFaceShade(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	prog := f.b.program(f.dda).(*ddaProgram)
	f.grid.FillBox([3]int{0, 0, 6}, [3]int{8, 8, 7}, voxel.Stone)

	out := f.render(t, RenderUniforms{CameraPos: mgl32.Vec3{4.5, 4.5, -3}, CameraMat: lookZ(false)})

	s := prog.faceShade[2]
	p := prog.palette[voxel.Stone]
	assertColorNear(t, [3]float32{p[0] * s, p[1] * s, p[2] * s}, out.At(33, 32))
}

func TestDDA_MaxDistanceStopsMarch(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	prog := f.b.program(f.dda).(*ddaProgram)
	f.grid.FillBox([3]int{0, 0, 6}, [3]int{8, 8, 7}, voxel.Stone)

	out := f.render(t, RenderUniforms{CameraPos: mgl32.Vec3{4.5, 4.5, -3}, CameraMat: lookZ(false), MaxDistance: 5})
	assertColorNear(t, prog.background, out.At(33, 32))
}

func TestDDA_Deterministic(t *testing.T) {
	f := newCPUFixture(t, 16, 4, 4)
	f.grid.FillBox([3]int{0, 0, 0}, [3]int{16, 2, 16}, voxel.Stone)
	f.grid.FillBox([3]int{4, 2, 4}, [3]int{10, 7, 9}, voxel.Sand)
	u := RenderUniforms{
		CameraPos: mgl32.Vec3{30, 30, 30},
		CameraMat: mgl32.Mat3FromCols(
			mgl32.Vec3{-0.7071, 0, 0.7071},
			mgl32.Vec3{-0.4082, 0.8165, -0.4082},
			mgl32.Vec3{-0.5774, -0.5774, -0.5774},
		),
		DrawLines: true,
	}

	first := f.render(t, u)
	second := f.render(t, u)
	assert.True(t, first.Equal(second))
}

func TestDDA_LocatesTarget(t *testing.T) {
	tests := []struct {
		name      string
		blockDist float32
		update    bool
		place     bool
		want      voxel.Slot
	}{
		{"before wall", 50, true, false, voxel.Slot{X: 4, Y: 4, Z: 5}},
		{"limited by distance", 5, true, false, voxel.Slot{X: 4, Y: 4, Z: 1}},
		{"no update keeps slot", 50, false, false, voxel.Slot{X: 1, Y: 2, Z: 3}},
		{"placing keeps slot", 50, true, true, voxel.Slot{X: 1, Y: 2, Z: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCPUFixture(t, 8, 4, 2)
			f.grid.FillBox([3]int{0, 0, 6}, [3]int{8, 8, 7}, voxel.Stone)
			f.slot.Store(1, 2, 3)

			f.render(t, RenderUniforms{
				CameraPos:  mgl32.Vec3{4.5, 4.5, -3},
				CameraMat:  lookZ(false),
				BlockDist:  tt.blockDist,
				UpdateDist: tt.update,
				PlaceBlock: tt.place,
			})
			assert.Equal(t, tt.want, *f.slot)
		})
	}
}

func TestDDA_LocateMissWritesSentinel(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	f.slot.Store(1, 2, 3)

	f.render(t, RenderUniforms{
		CameraPos:  mgl32.Vec3{4.5, 4.5, -3},
		CameraMat:  lookZ(true),
		BlockDist:  20,
		UpdateDist: true,
	})
	assert.Equal(t, voxel.Miss(8, 20), *f.slot)
}

func TestDDA_HighlightsTarget(t *testing.T) {
	f := newCPUFixture(t, 8, 4, 2)
	prog := f.b.program(f.dda).(*ddaProgram)
	f.grid.FillBox([3]int{0, 0, 6}, [3]int{8, 8, 7}, voxel.Stone)

	out := f.render(t, RenderUniforms{
		CameraPos:  mgl32.Vec3{4.5, 4.5, -3},
		CameraMat:  lookZ(false),
		BlockDist:  50,
		UpdateDist: true,
	})
	assertColorNear(t, prog.highlight, out.At(33, 32))
}

func TestCellHash_Spreads(t *testing.T) {
	seen := map[uint32]int{}
	for x := 0; x < 32; x++ {
		for z := 0; z < 32; z++ {
			seen[cellHash(x, 0, z, 12345)&3]++
		}
	}
	assert.Len(t, seen, 4)
	assert.Equal(t, cellHash(1, 2, 3, 9), cellHash(1, 2, 3, 9))
}
