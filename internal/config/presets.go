package config

import "sort"

// Presets are keyed by scene and then by size.
var Presets = map[string]map[string]*Config{
	"empty": {
		"default": {Dimension: 256, Scene: "empty"},
		"small":   {Dimension: 128, Scene: "empty"},
		"tiny":    {Dimension: 32, Scene: "empty", FPS: 30},
	},
	"terrain": {
		"default": {Dimension: 256, Scene: "terrain"},
		"small":   {Dimension: 128, Scene: "terrain"},
		"tiny":    {Dimension: 48, Scene: "terrain", FPS: 30},
	},
	"beach": {
		"default": {Dimension: 256, Scene: "beach", Sim: SimConfig{Iterations: 2}},
		"small":   {Dimension: 96, Scene: "beach", Sim: SimConfig{Iterations: 2}},
	},
	"sandpile": {
		"default": {Dimension: 128, Scene: "sandpile"},
		"tiny":    {Dimension: 32, Scene: "sandpile", FPS: 30},
	},
	"pool": {
		"default": {Dimension: 128, Scene: "pool"},
		"small":   {Dimension: 64, Scene: "pool"},
	},
}

// GetPreset returns the named preset laid over the defaults, or nil.
func GetPreset(scene, size string) *Config {
	sizes, ok := Presets[scene]
	if !ok {
		return nil
	}
	p, ok := sizes[size]
	if !ok {
		return nil
	}
	return Overlay(DefaultConfig(), p)
}

func ListPresets(scene string) []string {
	sizes, ok := Presets[scene]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(sizes))
	for name := range sizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListScenes() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Overlay copies the non-zero preset fields onto base.
func Overlay(base, p *Config) *Config {
	out := *base
	if p.Dimension != 0 {
		out.Dimension = p.Dimension
	}
	if p.Scene != "" {
		out.Scene = p.Scene
	}
	if p.FPS != 0 {
		out.FPS = p.FPS
	}
	if p.Sim.Iterations != 0 {
		out.Sim.Iterations = p.Sim.Iterations
	}
	if p.Sim.Spacing != 0 {
		out.Sim.Spacing = p.Sim.Spacing
	}
	if p.Placement.Distance != 0 {
		out.Placement.Distance = p.Placement.Distance
	}
	return &out
}
