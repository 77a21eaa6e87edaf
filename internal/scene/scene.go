// Package scene fills a fresh volume with a starting layout.
package scene

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aquilax/go-perlin"

	"github.com/san-kum/voxelsand/internal/voxel"
)

var ErrUnknownScene = errors.New("scene: unknown scene")

// Builder fills g; seed drives any noise it uses.
type Builder func(g *voxel.Grid, seed int64)

var builders = map[string]Builder{
	"empty":    func(*voxel.Grid, int64) {},
	"floor":    floor,
	"terrain":  terrain,
	"beach":    beach,
	"sandpile": sandpile,
	"pool":     pool,
}

func Names() []string {
	names := make([]string, 0, len(builders))
	for n := range builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build clears g and fills it with the named scene.
func Build(g *voxel.Grid, name string, seed int64) error {
	b, ok := builders[name]
	if !ok {
		return fmt.Errorf("%w: %q (have %v)", ErrUnknownScene, name, Names())
	}
	g.Clear()
	b(g, seed)
	return nil
}

func floor(g *voxel.Grid, _ int64) {
	d := g.Dim
	g.FillBox([3]int{0, 0, 0}, [3]int{d, 1, d}, voxel.Stone)
}

// heightmap returns a column height per (x, z) in [lo, hi).
func heightmap(d int, seed int64, lo, hi float64) []int {
	const (
		alpha  = 2.0
		beta   = 2.0
		octave = int32(3)
	)
	noise := perlin.NewPerlin(alpha, beta, octave, seed)
	scale := 4.0 / float64(d)

	h := make([]int, d*d)
	for z := 0; z < d; z++ {
		for x := 0; x < d; x++ {
			n := (noise.Noise2D(float64(x)*scale, float64(z)*scale) + 1) / 2
			n = min(max(n, 0), 1)
			h[x+z*d] = int(lo + n*(hi-lo))
		}
	}
	return h
}

// terrain is stone hills under a thin layer of sand.
func terrain(g *voxel.Grid, seed int64) {
	d := g.Dim
	hm := heightmap(d, seed, 1, float64(d)/4)
	for z := 0; z < d; z++ {
		for x := 0; x < d; x++ {
			top := hm[x+z*d]
			g.FillBox([3]int{x, 0, z}, [3]int{x + 1, top, z + 1}, voxel.Stone)
			g.FillBox([3]int{x, top, z}, [3]int{x + 1, top + 2, z + 1}, voxel.Sand)
		}
	}
}

// beach slopes sand from one side into a body of water.
func beach(g *voxel.Grid, seed int64) {
	d := g.Dim
	hm := heightmap(d, seed, 0, float64(d)/16)
	sea := max(d/8, 2)
	for z := 0; z < d; z++ {
		for x := 0; x < d; x++ {
			slope := x / 4
			top := min(hm[x+z*d]+slope+1, d)
			g.FillBox([3]int{x, 0, z}, [3]int{x + 1, 1, z + 1}, voxel.Stone)
			g.FillBox([3]int{x, 1, z}, [3]int{x + 1, top, z + 1}, voxel.Sand)
			if top < sea {
				g.FillBox([3]int{x, top, z}, [3]int{x + 1, sea, z + 1}, voxel.Water)
			}
		}
	}
}

// sandpile is a block of sand held above a stone floor.
func sandpile(g *voxel.Grid, seed int64) {
	floor(g, seed)
	d := g.Dim
	lo, hi := d*3/8, d*5/8
	g.FillBox([3]int{lo, d / 2, lo}, [3]int{hi, d*3/4 + 1, hi}, voxel.Sand)
}

// pool is a stone basin with a column of water above it.
func pool(g *voxel.Grid, seed int64) {
	floor(g, seed)
	d := g.Dim
	lo, hi := d/4, d*3/4
	wall := max(d/8, 2)
	g.FillBox([3]int{lo - 1, 1, lo - 1}, [3]int{hi + 1, wall, hi + 1}, voxel.Stone)
	g.FillBox([3]int{lo, 1, lo}, [3]int{hi, wall, hi}, voxel.Empty)
	g.FillBox([3]int{d * 3 / 8, d / 2, d * 3 / 8}, [3]int{d * 5 / 8, d*5/8 + 1, d * 5 / 8}, voxel.Water)
}
