package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDimension   = 256
	DefaultSpacing     = 4
	DefaultMaxVelocity = 1
	DefaultIterations  = 1
	DefaultFPS         = 60
	DefaultInputRate   = 500
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultBlockDist   = 30
	DefaultBlockSize   = 5
	DefaultMaxDistance = 1000
	DefaultSpeed       = 40
	DefaultSensitivity = 0.003
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Dimension int             `yaml:"dimension"`
	Backend   string          `yaml:"backend"`
	Workers   int             `yaml:"workers"`
	KernelDir string          `yaml:"kernel_dir"`
	Scene     string          `yaml:"scene"`
	Sim       SimConfig       `yaml:"sim"`
	FPS       float64         `yaml:"fps"`
	InputRate float64         `yaml:"input_rate"`
	Window    WindowConfig    `yaml:"window"`
	Terminal  TerminalConfig  `yaml:"terminal"`
	Render    RenderConfig    `yaml:"render"`
	Placement PlacementConfig `yaml:"placement"`
	Camera    CameraConfig    `yaml:"camera"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Trace     TraceConfig     `yaml:"trace"`
	Verbosity int             `yaml:"verbosity"`
}

type SimConfig struct {
	Spacing     int   `yaml:"spacing"`
	MaxVelocity int   `yaml:"max_velocity"`
	Iterations  int   `yaml:"iterations"`
	Seed        int64 `yaml:"seed"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`

	// Render at half resolution when the window exceeds this size.
	HalfResWidth  int `yaml:"half_res_width"`
	HalfResHeight int `yaml:"half_res_height"`
}

// TerminalConfig sizes the terminal frontend's render target in pixels.
// Two pixel rows share one character cell.
type TerminalConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type RenderConfig struct {
	MaxDistance float32 `yaml:"max_distance"`
}

type PlacementConfig struct {
	Type     string  `yaml:"type"`
	Distance float32 `yaml:"distance"`
	DistStep float32 `yaml:"dist_step"`
	MinDist  float32 `yaml:"min_dist"`
	MaxDist  float32 `yaml:"max_dist"`
	Size     float32 `yaml:"size"`
	MinSize  float32 `yaml:"min_size"`
	MaxSize  float32 `yaml:"max_size"`
}

type CameraConfig struct {
	Speed       float32 `yaml:"speed"`
	Sensitivity float32 `yaml:"sensitivity"`
}

type MetricsConfig struct {
	// Listen is the address of the /metrics endpoint; empty disables it.
	Listen string `yaml:"listen"`
}

type TraceConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

func DefaultConfig() *Config {
	return &Config{
		Dimension: DefaultDimension,
		Backend:   "auto",
		Scene:     "empty",
		Sim: SimConfig{
			Spacing:     DefaultSpacing,
			MaxVelocity: DefaultMaxVelocity,
			Iterations:  DefaultIterations,
			Seed:        1,
		},
		FPS:       DefaultFPS,
		InputRate: DefaultInputRate,
		Window: WindowConfig{
			Width:         DefaultWidth,
			Height:        DefaultHeight,
			Title:         "Voxel Particle Simulator",
			HalfResWidth:  1920,
			HalfResHeight: 1080,
		},
		Terminal: TerminalConfig{Width: 96, Height: 56},
		Render:   RenderConfig{MaxDistance: DefaultMaxDistance},
		Placement: PlacementConfig{
			Type:     "sand",
			Distance: DefaultBlockDist,
			DistStep: 0.05,
			MinDist:  0,
			MaxDist:  200,
			Size:     DefaultBlockSize,
			MinSize:  1,
			MaxSize:  50,
		},
		Camera: CameraConfig{
			Speed:       DefaultSpeed,
			Sensitivity: DefaultSensitivity,
		},
		Trace: TraceConfig{Endpoint: "localhost:4318"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks ranges that do not depend on other packages. The
// partition geometry is validated where the scheduler is built.
func (c *Config) Validate() error {
	checks := []struct {
		ok   bool
		what string
	}{
		{c.Dimension > 0, fmt.Sprintf("dimension %d", c.Dimension)},
		{c.Sim.Iterations >= 0, fmt.Sprintf("sim.iterations %d", c.Sim.Iterations)},
		{c.FPS >= 0, fmt.Sprintf("fps %g", c.FPS)},
		{c.InputRate > 0, fmt.Sprintf("input_rate %g", c.InputRate)},
		{c.Window.Width > 0 && c.Window.Height > 0, fmt.Sprintf("window %dx%d", c.Window.Width, c.Window.Height)},
		{c.Terminal.Width > 0 && c.Terminal.Height > 0, fmt.Sprintf("terminal %dx%d", c.Terminal.Width, c.Terminal.Height)},
		{c.Placement.MinSize > 0 && c.Placement.MinSize <= c.Placement.MaxSize,
			fmt.Sprintf("placement size range [%g, %g]", c.Placement.MinSize, c.Placement.MaxSize)},
		{c.Placement.MinDist <= c.Placement.MaxDist,
			fmt.Sprintf("placement distance range [%g, %g]", c.Placement.MinDist, c.Placement.MaxDist)},
		{c.Placement.DistStep > 0, fmt.Sprintf("placement.dist_step %g", c.Placement.DistStep)},
	}
	for _, ch := range checks {
		if !ch.ok {
			return fmt.Errorf("%w: %s", ErrInvalid, ch.what)
		}
	}
	return nil
}
