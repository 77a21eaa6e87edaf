package device

import (
	"embed"
	"errors"
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/voxelsand/internal/voxel"
)

//go:embed kernels/*.yaml
var cpuKernels embed.FS

// Behavior is how a material moves in the simulation kernel.
type Behavior int

const (
	BehaviorNone Behavior = iota
	BehaviorStatic
	BehaviorPowder
	BehaviorLiquid
)

var behaviorNames = map[string]Behavior{
	"static": BehaviorStatic,
	"powder": BehaviorPowder,
	"liquid": BehaviorLiquid,
}

var (
	errKernelName = errors.New("kernel name mismatch")
	errMaterialID = errors.New("material id out of range")
	errDuplicate  = errors.New("duplicate material id")
	errBehavior   = errors.New("unknown behavior")
	errColor      = errors.New("color needs three components in [0, 1]")
)

type simSource struct {
	Kernel    string `yaml:"kernel"`
	Materials []struct {
		Name     string `yaml:"name"`
		ID       int    `yaml:"id"`
		Behavior string `yaml:"behavior"`
	} `yaml:"materials"`
}

type ddaSource struct {
	Kernel     string               `yaml:"kernel"`
	Void       []float32            `yaml:"void"`
	Background []float32            `yaml:"background"`
	Highlight  []float32            `yaml:"highlight"`
	Crosshair  []float32            `yaml:"crosshair"`
	FaceShade  []float32            `yaml:"face_shade"`
	LineWidth  float32              `yaml:"line_width"`
	LineShade  float32              `yaml:"line_shade"`
	Palette    map[string][]float32 `yaml:"palette"`
}

// simProgram is a compiled simulation kernel: a behavior per material code.
type simProgram struct {
	behaviors [voxel.MaxMaterial + 1]Behavior
}

type ddaProgram struct {
	void, background, highlight, crosshair [3]float32
	faceShade                              [3]float32
	lineWidth, lineShade                   float32
	palette                                [voxel.MaxMaterial + 1][3]float32
	known                                  [voxel.MaxMaterial + 1]bool
}

func parseSimSource(data []byte) (*simProgram, error) {
	var src simSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, err
	}
	if src.Kernel != KernelSim.String() {
		return nil, fmt.Errorf("%w: %q", errKernelName, src.Kernel)
	}

	p := &simProgram{}
	for _, m := range src.Materials {
		if m.ID < 1 || m.ID > int(voxel.MaxMaterial) {
			return nil, fmt.Errorf("%w: %s=%d", errMaterialID, m.Name, m.ID)
		}
		if p.behaviors[m.ID] != BehaviorNone {
			return nil, fmt.Errorf("%w: %d", errDuplicate, m.ID)
		}
		b, ok := behaviorNames[m.Behavior]
		if !ok {
			return nil, fmt.Errorf("%w: %q", errBehavior, m.Behavior)
		}
		p.behaviors[m.ID] = b
	}
	return p, nil
}

func parseDDASource(data []byte) (*ddaProgram, error) {
	var src ddaSource
	if err := yaml.Unmarshal(data, &src); err != nil {
		return nil, err
	}
	if src.Kernel != KernelRender.String() {
		return nil, fmt.Errorf("%w: %q", errKernelName, src.Kernel)
	}

	p := &ddaProgram{lineWidth: src.LineWidth, lineShade: src.LineShade}
	var err error
	fields := []struct {
		dst *[3]float32
		src []float32
	}{
		{&p.void, src.Void},
		{&p.background, src.Background},
		{&p.highlight, src.Highlight},
		{&p.crosshair, src.Crosshair},
		{&p.faceShade, src.FaceShade},
	}
	for _, f := range fields {
		if *f.dst, err = rgb(f.src); err != nil {
			return nil, err
		}
	}

	for name, c := range src.Palette {
		m, err := voxel.ParseMaterial(name)
		if err != nil {
			return nil, err
		}
		if p.palette[m], err = rgb(c); err != nil {
			return nil, fmt.Errorf("palette %s: %w", name, err)
		}
		p.known[m] = true
	}
	return p, nil
}

func rgb(v []float32) ([3]float32, error) {
	if len(v) != 3 {
		return [3]float32{}, errColor
	}
	for _, c := range v {
		if c < 0 || c > 1 {
			return [3]float32{}, errColor
		}
	}
	return [3]float32{v[0], v[1], v[2]}, nil
}

func toRGBA(c [3]float32) color.RGBA {
	return color.RGBA{R: unorm(c[0]), G: unorm(c[1]), B: unorm(c[2]), A: 255}
}

func unorm(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
