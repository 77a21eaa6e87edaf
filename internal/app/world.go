package app

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/san-kum/voxelsand/internal/camera"
	"github.com/san-kum/voxelsand/internal/config"
	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/partition"
	"github.com/san-kum/voxelsand/internal/render"
	"github.com/san-kum/voxelsand/internal/scene"
	"github.com/san-kum/voxelsand/internal/sim"
	"github.com/san-kum/voxelsand/internal/state"
	"github.com/san-kum/voxelsand/internal/voxel"
)

var ErrKernel = errors.New("app: kernel did not compile")

// World is the volume and everything bound to it on one backend.
type World struct {
	Grid     *voxel.Grid
	Slot     *voxel.Slot
	Sched    *partition.Scheduler
	Stepper  *sim.Stepper
	Renderer *render.Renderer
	State    *state.Shared
}

// NewWorld builds the configured scene, binds it to b and compiles both
// kernels. resolution is the render target size in pixels.
func NewWorld(cfg *config.Config, b device.Backend, resolution [2]int, log logr.Logger) (*World, error) {
	sched, err := partition.New(cfg.Dimension, cfg.Sim.Spacing, cfg.Sim.MaxVelocity)
	if err != nil {
		return nil, err
	}
	blockType, err := voxel.ParseMaterial(cfg.Placement.Type)
	if err != nil {
		return nil, err
	}

	grid, err := voxel.NewGrid(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	if err := scene.Build(grid, cfg.Scene, cfg.Sim.Seed); err != nil {
		return nil, err
	}
	log.V(1).Info("scene built", "scene", cfg.Scene, "dimension", cfg.Dimension,
		"stone", grid.Count(voxel.Stone), "sand", grid.Count(voxel.Sand), "water", grid.Count(voxel.Water))

	slot := voxel.Miss(cfg.Dimension, cfg.Placement.Distance)
	if err := b.Bind(device.Binding{Grid: grid, Slot: &slot, Spacing: cfg.Sim.Spacing, Resolution: resolution}); err != nil {
		return nil, fmt.Errorf("bind %s backend: %w", b.Name(), err)
	}

	w := &World{
		Grid:     grid,
		Slot:     &slot,
		Sched:    sched,
		Stepper:  sim.New(b, sched, cfg.Sim.Seed, log),
		Renderer: render.New(b, cfg.Dimension, resolution, cfg.Render.MaxDistance, log),
	}
	if err := w.Stepper.Load(cfg.KernelDir); err != nil {
		return nil, err
	}
	if w.Stepper.Program() == device.InvalidProgram {
		return nil, fmt.Errorf("%w: %s", ErrKernel, device.KernelSim)
	}
	if err := w.Renderer.Load(cfg.KernelDir); err != nil {
		return nil, err
	}
	if w.Renderer.Program() == device.InvalidProgram {
		return nil, fmt.Errorf("%w: %s", ErrKernel, device.KernelRender)
	}

	w.State = state.New(state.SharedState{
		Pose:       camera.Start(cfg.Dimension),
		BlockType:  blockType,
		BlockSize:  cfg.Placement.Size,
		BlockDist:  cfg.Placement.Distance,
		UpdateDist: true,
	})
	return w, nil
}

// LimitsFrom returns the placement limits in cfg.
func LimitsFrom(cfg *config.Config) state.Limits {
	return state.Limits{
		DistStep: cfg.Placement.DistStep,
		MinDist:  cfg.Placement.MinDist,
		MaxDist:  cfg.Placement.MaxDist,
		MinSize:  cfg.Placement.MinSize,
		MaxSize:  cfg.Placement.MaxSize,
	}
}

// OptionsFrom returns the loop settings in cfg.
func OptionsFrom(cfg *config.Config) Options {
	return Options{
		FPS:        cfg.FPS,
		InputRate:  cfg.InputRate,
		Iterations: cfg.Sim.Iterations,
		KernelDir:  cfg.KernelDir,
		Limits:     LimitsFrom(cfg),
		Controller: camera.Controller{Speed: cfg.Camera.Speed, Sensitivity: cfg.Camera.Sensitivity},
	}
}
