package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/input"
	"github.com/san-kum/voxelsand/internal/profile"
	"github.com/san-kum/voxelsand/internal/state"
)

var (
	ColText    = rl.NewColor(220, 220, 220, 255)
	ColTextDim = rl.NewColor(120, 120, 120, 255)
	ColPanel   = rl.NewColor(0, 0, 0, 140)
)

// view owns the texture frames are uploaded to and the input latch.
type view struct {
	tex    rl.Texture2D
	res    [2]int
	queue  *input.Queue
	shared *state.Shared
	prof   *profile.Profiler
}

func newView(res [2]int, shared *state.Shared, prof *profile.Profiler) *view {
	img := rl.GenImageColor(res[0], res[1], rl.Black)
	defer rl.UnloadImage(img)
	return &view{
		tex:    rl.LoadTextureFromImage(img),
		res:    res,
		queue:  input.NewQueue(),
		shared: shared,
		prof:   prof,
	}
}

func (v *view) unload() { rl.UnloadTexture(v.tex) }

// present uploads f, scales it to the window and draws the HUD on top.
func (v *view) present(f *device.Frame) error {
	if f.Width != v.res[0] || f.Height != v.res[1] {
		return fmt.Errorf("gui: frame is %dx%d, texture is %dx%d", f.Width, f.Height, v.res[0], v.res[1])
	}
	rl.UpdateTexture(v.tex, f.Pix)

	rl.BeginDrawing()
	rl.ClearBackground(rl.Black)
	src := rl.NewRectangle(0, 0, float32(v.res[0]), float32(v.res[1]))
	dst := rl.NewRectangle(0, 0, float32(rl.GetScreenWidth()), float32(rl.GetScreenHeight()))
	rl.DrawTexturePro(v.tex, src, dst, rl.NewVector2(0, 0), 0, rl.White)
	v.drawHUD()
	rl.EndDrawing()

	pollInput(v.queue)
	return nil
}

func (v *view) drawHUD() {
	s := v.shared.Get()
	r := v.prof.Last()

	rl.DrawRectangle(10, 10, 300, 96, ColPanel)
	rl.DrawText(fmt.Sprintf("%s  size %.0f  dist %.1f", s.BlockType, s.BlockSize, s.BlockDist), 20, 20, 16, ColText)
	rl.DrawText(fmt.Sprintf("%d fps  cpu %.0f%%", r.FPS, r.CPUPercent), 20, 42, 16, ColText)
	rl.DrawText(fmt.Sprintf("sim %v  render %v", r.Sim, r.Render), 20, 64, 14, ColTextDim)

	mode := "view"
	if s.PlaceBlock {
		mode = "placing"
	}
	if s.DrawLines {
		mode += "  lines"
	}
	rl.DrawText(mode, 20, 84, 14, ColTextDim)

	h := int32(rl.GetScreenHeight())
	rl.DrawText("[WASD] MOVE  [1-4] TYPE  [+/-] DIST  [WHEEL] SIZE  [Q] LINES  [R] RELOAD  [ESC] QUIT", 10, h-24, 14, ColTextDim)
}
