// Package state holds the values the input loop produces and the
// simulation/render loop consumes, behind one mutex.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/san-kum/voxelsand/internal/camera"
	"github.com/san-kum/voxelsand/internal/voxel"
)

// SharedState is everything the two loops exchange. It is only touched
// through Shared.
type SharedState struct {
	Pose     camera.Pose
	Velocity mgl32.Vec3

	BlockType  voxel.Material
	BlockSize  float32
	BlockDist  float32
	PlaceBlock bool
	DrawLines  bool

	// UpdateDist asks the renderer to retrace the insertion target.
	// DistUpdated is set when a render snapshot has carried the request.
	UpdateDist  bool
	DistUpdated bool

	ReloadKernels bool
}

// SimSnapshot is what the simulation stepper reads once per frame.
type SimSnapshot struct {
	BlockType  voxel.Material
	BlockSize  float32
	PlaceBlock bool
}

// RenderSnapshot is what the renderer reads once per frame.
type RenderSnapshot struct {
	Pose       camera.Pose
	BlockDist  float32
	BlockSize  float32
	PlaceBlock bool
	UpdateDist bool
	DrawLines  bool
}

// Shared guards a SharedState. Critical sections only copy values; nothing
// blocking ever runs under the lock.
type Shared struct {
	mu     sync.Mutex
	s      SharedState
	closed atomic.Bool
}

func New(initial SharedState) *Shared {
	return &Shared{s: initial}
}

// Update runs fn with the lock held.
func (sh *Shared) Update(fn func(*SharedState)) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fn(&sh.s)
}

func (sh *Shared) SimSnapshot() SimSnapshot {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return SimSnapshot{
		BlockType:  sh.s.BlockType,
		BlockSize:  sh.s.BlockSize,
		PlaceBlock: sh.s.PlaceBlock,
	}
}

// RenderSnapshot copies the render inputs and marks the pending retrace
// request as delivered.
func (sh *Shared) RenderSnapshot() RenderSnapshot {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.s.DistUpdated = true
	return RenderSnapshot{
		Pose:       sh.s.Pose,
		BlockDist:  sh.s.BlockDist,
		BlockSize:  sh.s.BlockSize,
		PlaceBlock: sh.s.PlaceBlock,
		UpdateDist: sh.s.UpdateDist,
		DrawLines:  sh.s.DrawLines,
	}
}

// TakeReload reports and clears a pending kernel reload request.
func (sh *Shared) TakeReload() bool {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	r := sh.s.ReloadKernels
	sh.s.ReloadKernels = false
	return r
}

// Get returns a copy of the whole state.
func (sh *Shared) Get() SharedState {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.s
}

// Close asks both loops to stop at their next tick.
func (sh *Shared) Close()       { sh.closed.Store(true) }
func (sh *Shared) Closed() bool { return sh.closed.Load() }
