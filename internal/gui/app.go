// Package gui is the window frontend: raylib owns the window, the GL
// context and the keyboard, and shows each rendered frame as a texture.
package gui

import (
	"context"
	"runtime"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/voxelsand/internal/app"
	"github.com/san-kum/voxelsand/internal/config"
	"github.com/san-kum/voxelsand/internal/device"
	_ "github.com/san-kum/voxelsand/internal/device/opengl" // registers "gl"
	"github.com/san-kum/voxelsand/internal/input"
	"github.com/san-kum/voxelsand/internal/profile"
	"github.com/san-kum/voxelsand/internal/render"
)

// initWindow opens the window with the configured size and title. Esc is
// handled as an input key rather than by raylib.
func initWindow(cfg config.WindowConfig) {
	rl.SetTraceLogLevel(rl.LogWarning)
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), cfg.Title)
	rl.SetExitKey(0)
	rl.DisableCursor()
}

// Run opens the window and blocks until it is closed. The frame loop runs on
// this goroutine, locked to its OS thread so the GL context stays current.
func Run(ctx context.Context, cfg *config.Config, prof *profile.Profiler, tracer trace.Tracer, log logr.Logger) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	initWindow(cfg.Window)
	defer rl.CloseWindow()

	res := render.FramebufferSize(rl.GetScreenWidth(), rl.GetScreenHeight(),
		[2]int{cfg.Window.HalfResWidth, cfg.Window.HalfResHeight})

	backend, err := device.Open(cfg.Backend, device.Options{Workers: cfg.Workers, Log: log, HasContext: true})
	if err != nil {
		return err
	}
	defer backend.Cleanup()
	log.Info("window open", "backend", backend.Name(), "resolution", res,
		"screen", [2]int{rl.GetScreenWidth(), rl.GetScreenHeight()})

	world, err := app.NewWorld(cfg, backend, res, log)
	if err != nil {
		return err
	}

	v := newView(res, world.State, prof)
	defer v.unload()

	a := app.New(backend, world, v.queue, app.OptionsFrom(cfg), log,
		app.WithPresenter(v.present),
		app.WithProfiler(prof),
		app.WithTracer(tracer),
	)
	return a.Run(ctx)
}

// keymap binds raylib keys to input keys.
var keymap = [input.NumKeys]int32{
	input.KeyW:      rl.KeyW,
	input.KeyA:      rl.KeyA,
	input.KeyS:      rl.KeyS,
	input.KeyD:      rl.KeyD,
	input.KeySpace:  rl.KeySpace,
	input.KeyShift:  rl.KeyLeftShift,
	input.KeyEqual:  rl.KeyEqual,
	input.KeyMinus:  rl.KeyMinus,
	input.Key1:      rl.KeyOne,
	input.Key2:      rl.KeyTwo,
	input.Key3:      rl.KeyThree,
	input.Key4:      rl.KeyFour,
	input.KeyQ:      rl.KeyQ,
	input.KeyR:      rl.KeyR,
	input.KeyEscape: rl.KeyEscape,
}

// pollInput copies raylib's input state into q. raylib only updates it in
// EndDrawing, so this runs right after each present and the input loop
// samples q at its own rate.
func pollInput(q *input.Queue) {
	for k, rk := range keymap {
		if rl.IsKeyDown(rk) {
			q.Press(input.Key(k))
		} else {
			q.Release(input.Key(k))
		}
	}
	d := rl.GetMouseDelta()
	if d.X != 0 || d.Y != 0 {
		q.MoveMouse(d.X, d.Y)
	}
	if w := rl.GetMouseWheelMove(); w != 0 {
		q.Scroll(w)
	}
	q.SetMouseLeft(rl.IsMouseButtonDown(rl.MouseButtonLeft))
	if rl.WindowShouldClose() {
		q.Close()
	}
}
