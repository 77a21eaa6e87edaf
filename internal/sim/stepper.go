// Package sim advances the particle simulation by whole iterations.
//
// An iteration flips the generation flag, draws one random value and then
// dispatches the simulation kernel once per partition phase, with a device
// barrier after each phase. Within a phase no two workgroups can touch the
// same cell, and the flag stops a particle that was moved into a later
// phase's region from moving again in the same iteration.
package sim

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/partition"
	"github.com/san-kum/voxelsand/internal/voxel"
)

// Params is the placement snapshot for one frame.
type Params struct {
	BlockType  voxel.Material
	BlockSize  float32
	PlaceBlock bool
}

type Stepper struct {
	backend device.Backend
	sched   *partition.Scheduler
	flag    *voxel.GenerationFlag
	rng     *rand.Rand
	program *device.ProgramSlot
	log     logr.Logger

	frames uint64
}

func New(b device.Backend, sched *partition.Scheduler, seed int64, log logr.Logger) *Stepper {
	log = log.WithName("sim")
	return &Stepper{
		backend: b,
		sched:   sched,
		flag:    voxel.NewGenerationFlag(),
		rng:     rand.New(rand.NewSource(seed)),
		program: device.NewProgramSlot(device.KernelSim, log),
		log:     log,
	}
}

// Load compiles the simulation kernel from dir, or the backend's embedded
// default when dir is empty. A failed compile keeps the previous program.
func (s *Stepper) Load(dir string) error {
	src, err := device.ReadSource(s.backend, device.KernelSim, dir)
	if err != nil {
		s.program.Swap(device.InvalidProgram)
		return fmt.Errorf("sim: read kernel: %w", err)
	}
	s.Reload(src)
	return nil
}

// Reload compiles source and swaps it in when it is valid.
func (s *Stepper) Reload(source []byte) bool {
	return s.program.Swap(s.backend.Compile(device.KernelSim, source))
}

func (s *Stepper) Program() device.Program { return s.program.Active() }
func (s *Stepper) Flag() voxel.Cell        { return s.flag.Value() }
func (s *Stepper) Iterations() uint64      { return s.flag.Iterations() }
func (s *Stepper) Frames() uint64          { return s.frames }

// Frame runs iterations full simulation iterations with the placement
// parameters fixed for the whole frame. Zero iterations dispatch nothing.
// A frame that has started always runs to completion; cancellation is
// observed by the caller between frames.
func (s *Stepper) Frame(ctx context.Context, p Params, iterations int) error {
	s.frames++
	if iterations <= 0 {
		return nil
	}
	if !s.program.Valid() {
		return ErrNoProgram
	}

	prog := s.program.Active()
	groups := s.sched.WorkgroupCount()
	u := device.SimUniforms{
		BlockType:  p.BlockType,
		BlockSize:  p.BlockSize,
		PlaceBlock: p.PlaceBlock,
		Dimension:  uint32(s.sched.Dimension()),
	}

	for i := 0; i < iterations; i++ {
		u.CurrentFlag = s.flag.Toggle()
		u.RNG = s.rng.Float32()

		for _, phase := range s.sched.Order() {
			u.Partition = partition.Selector(phase)
			if err := s.backend.DispatchSim(prog, u, groups); err != nil {
				return &SimulationError{Frame: s.frames, Iteration: i, Partition: phase, Op: "dispatch", Wrapped: err}
			}
			if err := s.backend.Barrier(); err != nil {
				return &SimulationError{Frame: s.frames, Iteration: i, Partition: phase, Op: "barrier", Wrapped: err}
			}
		}
	}
	return nil
}
