// Package app runs the two loops of a session: input sampling at a high
// fixed rate on its own goroutine, and simulate-render-present on the
// goroutine that calls Run.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/voxelsand/internal/camera"
	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/input"
	"github.com/san-kum/voxelsand/internal/pacing"
	"github.com/san-kum/voxelsand/internal/profile"
	"github.com/san-kum/voxelsand/internal/render"
	"github.com/san-kum/voxelsand/internal/sim"
	"github.com/san-kum/voxelsand/internal/state"
	"github.com/san-kum/voxelsand/internal/telemetry"
	"github.com/san-kum/voxelsand/internal/voxel"
)

// Presenter shows a finished frame. It is called on the Run goroutine.
type Presenter func(f *device.Frame) error

type Options struct {
	FPS        float64
	InputRate  float64
	Iterations int
	KernelDir  string
	Limits     state.Limits
	Controller camera.Controller

	// MaxFrames stops the loop after that many frames; zero runs until
	// closed.
	MaxFrames int
}

type Option func(*App)

func WithPresenter(p Presenter) Option        { return func(a *App) { a.present = p } }
func WithProfiler(p *profile.Profiler) Option { return func(a *App) { a.profile = p } }
func WithTracer(t trace.Tracer) Option        { return func(a *App) { a.tracer = t } }

type App struct {
	backend  device.Backend
	world    *World
	input    input.Source
	opts     Options
	log      logr.Logger
	present  Presenter
	profile  *profile.Profiler
	tracer   trace.Tracer
	typeKeys [4]input.Key

	frames uint64

	// owned by the input goroutine
	prevQ, prevR bool
}

func New(b device.Backend, w *World, src input.Source, opts Options, log logr.Logger, options ...Option) *App {
	a := &App{
		backend:  b,
		world:    w,
		input:    src,
		opts:     opts,
		log:      log.WithName("app"),
		present:  func(*device.Frame) error { return nil },
		tracer:   otel.Tracer(telemetry.ServiceName),
		typeKeys: [4]input.Key{input.Key1, input.Key2, input.Key3, input.Key4},
	}
	for _, o := range options {
		o(a)
	}
	if a.profile == nil {
		a.profile = profile.New(log)
	}
	return a
}

func (a *App) Frames() uint64             { return a.frames }
func (a *App) Profiler() *profile.Profiler { return a.profile }

// Run blocks until the session is closed, ctx is cancelled, MaxFrames is
// reached or a device error ends it. The input loop has stopped and the last
// frame has completed when Run returns, so the caller may release the
// backend.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.inputLoop(ctx)
	}()

	err := a.frameLoop(ctx)
	a.world.State.Close()
	wg.Wait()

	if canceled(ctx, err) {
		return nil
	}
	return err
}

// canceled reports whether err ends the session through ctx rather than a
// device failure. Both cancellation and an expired deadline count.
func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (a *App) frameLoop(ctx context.Context) error {
	pacer := pacing.New(a.opts.FPS)
	a.log.Info("frame loop started", "fps", a.opts.FPS, "iterations", a.opts.Iterations, "backend", a.backend.Name())
	for !a.world.State.Closed() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.Frame(ctx); err != nil {
			return err
		}
		a.profile.Frame(pacer.Tick())
		if a.opts.MaxFrames > 0 && a.frames >= uint64(a.opts.MaxFrames) {
			break
		}
	}
	a.log.Info("frame loop stopped", "frames", a.frames, "iterations", a.world.Stepper.Iterations())
	return nil
}

// Frame simulates, renders and presents one frame.
func (a *App) Frame(ctx context.Context) error {
	a.frames++
	ctx, span := a.tracer.Start(ctx, telemetry.SpanFrame,
		trace.WithAttributes(attribute.Int64("frame", int64(a.frames))))
	defer span.End()

	if a.world.State.TakeReload() {
		a.reload()
	}
	timer := a.backend.Timer()

	ss := a.world.State.SimSnapshot()
	simCtx, simSpan := a.tracer.Start(ctx, telemetry.SpanSimulate)
	timer.Begin(device.StageSim)
	err := a.world.Stepper.Frame(simCtx, sim.Params{
		BlockType:  ss.BlockType,
		BlockSize:  ss.BlockSize,
		PlaceBlock: ss.PlaceBlock,
	}, a.opts.Iterations)
	timer.End(device.StageSim)
	simSpan.End()
	if err != nil {
		return a.fail(ctx, span, device.StageSim, err)
	}

	rs := a.world.State.RenderSnapshot()
	renderCtx, renderSpan := a.tracer.Start(ctx, telemetry.SpanRender)
	timer.Begin(device.StageRender)
	frame, err := a.world.Renderer.Frame(renderCtx, render.Params{
		Pose:       rs.Pose,
		BlockDist:  rs.BlockDist,
		BlockSize:  rs.BlockSize,
		PlaceBlock: rs.PlaceBlock,
		UpdateDist: rs.UpdateDist,
		DrawLines:  rs.DrawLines,
	})
	timer.End(device.StageRender)
	renderSpan.End()
	if err != nil {
		return a.fail(ctx, span, device.StageRender, err)
	}

	timer.Begin(device.StagePresent)
	err = a.present(frame)
	timer.End(device.StagePresent)
	if err != nil {
		return a.fail(ctx, span, device.StagePresent, err)
	}

	a.profile.Observe(timer.Poll())
	return nil
}

func (a *App) fail(ctx context.Context, span trace.Span, stage device.Stage, err error) error {
	if canceled(ctx, err) {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, stage.String())
	a.profile.Failed(stage)
	a.log.Error(err, "frame failed", "frame", a.frames, "stage", stage.String())
	return err
}

// reload recompiles both kernels. A kernel that fails keeps running its
// previous program.
func (a *App) reload() {
	a.log.Info("reloading kernels", "dir", a.opts.KernelDir)
	if err := a.world.Stepper.Load(a.opts.KernelDir); err != nil {
		a.log.Error(err, "reload", "kernel", device.KernelSim.String())
	}
	if err := a.world.Renderer.Load(a.opts.KernelDir); err != nil {
		a.log.Error(err, "reload", "kernel", device.KernelRender.String())
	}
}

func (a *App) inputLoop(ctx context.Context) {
	pacer := pacing.New(a.opts.InputRate)
	dt := pacer.Period()
	for !a.world.State.Closed() && ctx.Err() == nil {
		a.handleInput(a.input.Sample(), dt)
		dt = pacer.Tick()
	}
}

// handleInput applies one input sample to the shared state.
func (a *App) handleInput(in input.Snapshot, dt time.Duration) {
	if in.Closed || in.Down(input.KeyEscape) {
		a.world.State.Close()
		return
	}

	q, r := in.Down(input.KeyQ), in.Down(input.KeyR)
	a.world.State.Update(func(s *state.SharedState) {
		pose, vel := a.opts.Controller.Advance(s.Pose, in, dt)
		facingChanged := pose.Facing() != s.Pose.Facing()
		s.Pose, s.Velocity = pose, vel
		s.Retrace(facingChanged)

		if in.Down(input.KeyEqual) {
			s.IncreaseDistance(a.opts.Limits)
		}
		if in.Down(input.KeyMinus) {
			s.DecreaseDistance(a.opts.Limits)
		}
		for i, k := range a.typeKeys {
			if in.Down(k) {
				s.SelectType(voxel.Material(i))
				break
			}
		}
		s.PlaceBlock = in.MouseLeft

		if q && !a.prevQ {
			s.DrawLines = !s.DrawLines
		}
		if r && !a.prevR {
			s.ReloadKernels = true
		}
		if in.Scroll != 0 {
			s.ScrollSize(in.Scroll, a.opts.Limits)
		}
	})
	a.prevQ, a.prevR = q, r
}
