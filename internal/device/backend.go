package device

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/voxel"
)

// Kernel identifies one of the two compute programs.
type Kernel int

const (
	KernelSim Kernel = iota
	KernelRender
)

func (k Kernel) String() string {
	switch k {
	case KernelSim:
		return "particlesim"
	case KernelRender:
		return "dda"
	default:
		return fmt.Sprintf("kernel(%d)", int(k))
	}
}

// Program is a compiled kernel handle.
type Program uint32

// InvalidProgram is returned by Compile when the source is unusable.
const InvalidProgram Program = 0

// RenderTile is the edge length of one render workgroup in pixels.
const RenderTile = 16

// SimUniforms are the per-dispatch inputs of the simulation kernel.
type SimUniforms struct {
	CurrentFlag voxel.Cell
	Partition   [3]int32
	RNG         float32
	BlockType   voxel.Material
	BlockSize   float32
	PlaceBlock  bool
	Dimension   uint32
}

// RenderUniforms are the per-dispatch inputs of the ray marching kernel.
type RenderUniforms struct {
	Resolution  [2]int32
	CameraPos   mgl32.Vec3
	CameraMat   mgl32.Mat3
	Dimension   uint32
	BlockDist   float32
	BlockSize   float32
	PlaceBlock  bool
	UpdateDist  bool
	DrawLines   bool
	MaxDistance float32
}

// Binding attaches a backend to the shared volume and fixes the dispatch
// geometry programs are compiled against.
type Binding struct {
	Grid       *voxel.Grid
	Slot       *voxel.Slot
	Spacing    int
	Resolution [2]int
}

type Backend interface {
	Name() string
	Available() bool
	Bind(b Binding) error
	// SourceName is the file name the backend expects kernel k under.
	SourceName(k Kernel) string
	DefaultSource(k Kernel) []byte
	Compile(k Kernel, source []byte) Program
	DispatchSim(p Program, u SimUniforms, groups int) error
	DispatchRender(p Program, u RenderUniforms) error
	Barrier() error
	ReadFrame(dst *Frame) error
	Timer() Timer
	Cleanup()
}

// Options configure backend construction.
type Options struct {
	Workers int
	Log     logr.Logger
	// HasContext is set by frontends that made a GL context current on the
	// calling thread. GPU backends report themselves unavailable without one.
	HasContext bool
}

// Factory builds a backend.
type Factory func(opts Options) (Backend, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		"cpu": func(opts Options) (Backend, error) { return NewCPUBackend(opts), nil },
	}
)

// Register makes a backend available to Open. Backends that need cgo
// register themselves from their own package's init.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Open builds the named backend. "auto" prefers the GPU when one is
// registered and available and falls back to the CPU.
func Open(name string, opts Options) (Backend, error) {
	if name == "auto" {
		return AutoSelectBackend(opts)
	}

	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownBackend, name, Names())
	}

	b, err := f(opts)
	if err != nil {
		return nil, err
	}
	if !b.Available() {
		b.Cleanup()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, name)
	}
	return b, nil
}

func AutoSelectBackend(opts Options) (Backend, error) {
	if gl, err := Open("gl", opts); err == nil {
		return gl, nil
	}
	return NewCPUBackend(opts), nil
}
