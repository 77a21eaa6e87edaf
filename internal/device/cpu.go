package device

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/voxel"
)

// CPUBackend runs kernels on a pond worker pool. A dispatch is split into
// chunks of workgroups; Barrier waits for every chunk submitted since the
// last barrier.
type CPUBackend struct {
	workers int
	pool    pond.Pool
	log     logr.Logger
	timer   *HostTimer

	mu       sync.Mutex
	pending  sync.WaitGroup
	programs []any

	grid    *voxel.Grid
	slot    *voxel.Slot
	spacing int
	out     *Frame
}

func NewCPUBackend(opts Options) *CPUBackend {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		workers: workers,
		pool:    pond.NewPool(workers),
		log:     opts.Log,
		timer:   NewHostTimer(),
	}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Timer() Timer    { return c.timer }

func (c *CPUBackend) Cleanup() {
	_ = c.Barrier()
	c.pool.StopAndWait()
}

func (c *CPUBackend) Bind(b Binding) error {
	if b.Grid == nil || b.Slot == nil {
		return ErrNotBound
	}
	if b.Resolution[0] <= 0 || b.Resolution[1] <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrResolution, b.Resolution[0], b.Resolution[1])
	}
	if err := c.Barrier(); err != nil {
		return err
	}
	c.grid = b.Grid
	c.slot = b.Slot
	c.spacing = b.Spacing
	c.out = NewFrame(b.Resolution[0], b.Resolution[1])
	return nil
}

func (c *CPUBackend) SourceName(k Kernel) string { return k.String() + ".yaml" }

func (c *CPUBackend) DefaultSource(k Kernel) []byte {
	data, err := cpuKernels.ReadFile("kernels/" + c.SourceName(k))
	if err != nil {
		return nil
	}
	return data
}

// Compile parses a kernel source. Programs live for the backend's lifetime;
// handles are indexes into the program table offset by one.
func (c *CPUBackend) Compile(k Kernel, source []byte) Program {
	var (
		prog any
		err  error
	)
	switch k {
	case KernelSim:
		prog, err = parseSimSource(source)
	case KernelRender:
		prog, err = parseDDASource(source)
	default:
		err = fmt.Errorf("unknown kernel %v", k)
	}
	if err != nil {
		c.log.V(1).Info("compile failed", "kernel", k.String(), "error", err.Error())
		return InvalidProgram
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs = append(c.programs, prog)
	return Program(len(c.programs))
}

func (c *CPUBackend) program(p Program) any {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p == InvalidProgram || int(p) > len(c.programs) {
		return nil
	}
	return c.programs[p-1]
}

func (c *CPUBackend) DispatchSim(p Program, u SimUniforms, groups int) error {
	if c.grid == nil {
		return ErrNotBound
	}
	prog, ok := c.program(p).(*simProgram)
	if !ok {
		return fmt.Errorf("%w: %d is not a %s program", ErrInvalidProgram, p, KernelSim)
	}

	k := &simKernel{
		prog:    prog,
		grid:    c.grid,
		slot:    *c.slot,
		u:       u,
		edge:    c.spacing / 2,
		spacing: c.spacing,
		groups:  groups,
	}
	c.submit(groups*groups*groups, k.runGroups)
	return nil
}

func (c *CPUBackend) DispatchRender(p Program, u RenderUniforms) error {
	if c.grid == nil {
		return ErrNotBound
	}
	prog, ok := c.program(p).(*ddaProgram)
	if !ok {
		return fmt.Errorf("%w: %d is not a %s program", ErrInvalidProgram, p, KernelRender)
	}
	if int(u.Resolution[0]) != c.out.Width || int(u.Resolution[1]) != c.out.Height {
		c.out = NewFrame(int(u.Resolution[0]), int(u.Resolution[1]))
	}

	k := newDDAKernel(prog, c.grid, u, c.out)

	// The facing ray is traced before any pixel is submitted, so every
	// pixel of this dispatch sees the same target.
	if u.UpdateDist && !u.PlaceBlock {
		*c.slot = k.locate()
	}
	k.target = *c.slot

	rows := (c.out.Height + RenderTile - 1) / RenderTile
	c.submit(rows, k.runTileRows)
	return nil
}

// submit splits n work items into contiguous chunks, one task per chunk.
func (c *CPUBackend) submit(n int, fn func(start, end int)) {
	if n <= 0 {
		return
	}
	chunks := c.workers * 4
	if chunks > n {
		chunks = n
	}
	size := (n + chunks - 1) / chunks

	for start := 0; start < n; start += size {
		s, e := start, min(start+size, n)
		c.pending.Add(1)
		c.pool.Submit(func() {
			defer c.pending.Done()
			fn(s, e)
		})
	}
}

func (c *CPUBackend) Barrier() error {
	c.pending.Wait()
	return nil
}

func (c *CPUBackend) ReadFrame(dst *Frame) error {
	if c.out == nil {
		return ErrNotBound
	}
	dst.CopyFrom(c.out)
	return nil
}
