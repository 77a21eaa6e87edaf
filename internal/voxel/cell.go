package voxel

import "fmt"

// Cell is one voxel: material code in the low seven bits, generation flag in bit 7.
type Cell uint32

// Material is a cell's occupancy/type code.
type Material uint32

const (
	Empty Material = iota
	Stone
	Sand
	Water
)

const (
	// MaterialMask selects the material bits of a cell.
	MaterialMask Cell = 0x7f
	// FlagBit is the generation flag bit.
	FlagBit Cell = 0x80
	// MaxMaterial is the largest encodable material code.
	MaxMaterial Material = Material(MaterialMask)
)

var materialNames = map[Material]string{
	Empty: "empty",
	Stone: "stone",
	Sand:  "sand",
	Water: "water",
}

func (m Material) String() string {
	if name, ok := materialNames[m]; ok {
		return name
	}
	return fmt.Sprintf("material(%d)", uint32(m))
}

// ParseMaterial maps a material name back to its code.
func ParseMaterial(name string) (Material, error) {
	for m, n := range materialNames {
		if n == name {
			return m, nil
		}
	}
	return Empty, fmt.Errorf("voxel: unknown material %q", name)
}

// NewCell packs a material and a generation flag value (0 or FlagBit).
func NewCell(m Material, flag Cell) Cell {
	return Cell(m)&MaterialMask | flag&FlagBit
}

func (c Cell) Material() Material { return Material(c & MaterialMask) }
func (c Cell) Flag() Cell         { return c & FlagBit }
func (c Cell) Occupied() bool     { return c&MaterialMask != 0 }

// UpdatedIn reports whether the cell already carries the given iteration flag.
func (c Cell) UpdatedIn(currentFlag Cell) bool {
	return c.Flag() == currentFlag&FlagBit
}
