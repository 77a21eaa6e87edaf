// Package tui is the terminal frontend. Frames are drawn with half blocks
// and key presses are turned into held or tapped input keys.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/voxelsand/internal/app"
	"github.com/san-kum/voxelsand/internal/config"
	"github.com/san-kum/voxelsand/internal/device"
	"github.com/san-kum/voxelsand/internal/input"
	"github.com/san-kum/voxelsand/internal/profile"
	"github.com/san-kum/voxelsand/internal/state"
)

var (
	white = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim   = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	cyan  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	red   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// holdFor is how long a movement key stays down after a press. Terminal
// autorepeat re-presses before it runs out.
const holdFor = 150 * time.Millisecond

// lookStep is the mouse movement one arrow key press stands for.
const lookStep = 20

// held keys move the camera while down; everything else is tapped.
var held = map[string]input.Key{
	"w": input.KeyW, "a": input.KeyA, "s": input.KeyS, "d": input.KeyD,
	" ": input.KeySpace, "c": input.KeyShift,
}

var tapped = map[string]input.Key{
	"=": input.KeyEqual, "+": input.KeyEqual, "-": input.KeyMinus,
	"1": input.Key1, "2": input.Key2, "3": input.Key3, "4": input.Key4,
	"q": input.KeyQ, "r": input.KeyR,
}

type (
	frameMsg   struct{ view string }
	releaseMsg struct {
		key input.Key
		gen int
	}
	doneMsg struct{ err error }
)

type model struct {
	queue   *input.Queue
	shared  *state.Shared
	prof    *profile.Profiler
	canvas  string
	holdGen [input.NumKeys]int
	placing bool
	err     error
}

func newModel(q *input.Queue, shared *state.Shared, prof *profile.Profiler) model {
	return model{queue: q, shared: shared, prof: prof}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.canvas = msg.view
	case releaseMsg:
		if m.holdGen[msg.key] == msg.gen {
			m.queue.Release(msg.key)
		}
	case doneMsg:
		m.err = msg.err
		return m, tea.Quit
	case tea.MouseMsg:
		m.mouse(msg)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "esc":
		m.queue.Close()
		return m, tea.Quit
	case "left":
		m.queue.MoveMouse(-lookStep, 0)
	case "right":
		m.queue.MoveMouse(lookStep, 0)
	case "up":
		m.queue.MoveMouse(0, -lookStep)
	case "down":
		m.queue.MoveMouse(0, lookStep)
	case "[":
		m.queue.Scroll(-1)
	case "]":
		m.queue.Scroll(1)
	case "p":
		m.placing = !m.placing
		m.queue.SetMouseLeft(m.placing)
	}

	if k, ok := tapped[key]; ok {
		m.queue.Tap(k)
	}
	if k, ok := held[key]; ok {
		m.holdGen[k]++
		m.queue.Press(k)
		gen := m.holdGen[k]
		return m, tea.Tick(holdFor, func(time.Time) tea.Msg { return releaseMsg{key: k, gen: gen} })
	}
	return m, nil
}

func (m *model) mouse(msg tea.MouseMsg) {
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.queue.Scroll(1)
	case msg.Button == tea.MouseButtonWheelDown:
		m.queue.Scroll(-1)
	case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
		m.queue.SetMouseLeft(true)
	case msg.Action == tea.MouseActionRelease:
		m.queue.SetMouseLeft(m.placing)
	}
}

func (m model) View() string {
	if m.err != nil {
		return red.Render("error: "+m.err.Error()) + "\n"
	}
	s := m.shared.Get()
	r := m.prof.Last()

	mode := "view"
	if s.PlaceBlock {
		mode = "placing"
	}
	status := fmt.Sprintf("%s  %s %.0f  %s %.1f  %s",
		cyan.Render(s.BlockType.String()), dim.Render("size"), s.BlockSize, dim.Render("dist"), s.BlockDist, white.Render(mode))
	perf := dim.Render(fmt.Sprintf("%d fps  sim %v  render %v", r.FPS, r.Sim, r.Render))
	keys := dim.Render("wasd/space/c move  arrows look  1-4 type  =/- dist  [/] size  p place  q lines  r reload  esc quit")
	return m.canvas + "\n" + status + "  " + perf + "\n" + keys
}

// Run starts the session in the terminal and blocks until it is closed.
func Run(ctx context.Context, cfg *config.Config, prof *profile.Profiler, tracer trace.Tracer, log logr.Logger) error {
	backend, err := device.Open(cfg.Backend, device.Options{Workers: cfg.Workers, Log: log})
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	world, err := app.NewWorld(cfg, backend, [2]int{cfg.Terminal.Width, cfg.Terminal.Height}, log)
	if err != nil {
		return err
	}

	q := input.NewQueue()
	p := tea.NewProgram(newModel(q, world.State, prof), tea.WithAltScreen(), tea.WithMouseCellMotion())
	canvas := NewCanvas()

	a := app.New(backend, world, q, app.OptionsFrom(cfg), log,
		app.WithProfiler(prof),
		app.WithTracer(tracer),
		app.WithPresenter(func(f *device.Frame) error {
			p.Send(frameMsg{view: canvas.Render(f)})
			return nil
		}),
	)

	done := make(chan error, 1)
	go func() {
		err := a.Run(ctx)
		p.Send(doneMsg{err: err})
		done <- err
	}()

	final, err := p.Run()
	q.Close()
	appErr := <-done
	if err != nil {
		return err
	}
	if m, ok := final.(model); ok && m.err != nil {
		return m.err
	}
	return appErr
}
