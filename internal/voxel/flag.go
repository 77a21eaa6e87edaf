package voxel

// FlagInitial is the generation flag value of a fresh process.
const FlagInitial Cell = 0

// GenerationFlag distinguishes cells already updated in the running
// iteration from those still pending. Cells store the value they were last
// updated under; flipping the flag once per iteration makes every cell
// "not yet updated" again without touching the grid.
type GenerationFlag struct {
	value      Cell
	iterations uint64
}

func NewGenerationFlag() *GenerationFlag {
	return &GenerationFlag{value: FlagInitial}
}

// Toggle flips the flag and returns the new current value.
func (f *GenerationFlag) Toggle() Cell {
	f.value ^= FlagBit
	f.iterations++
	return f.value
}

func (f *GenerationFlag) Value() Cell        { return f.value }
func (f *GenerationFlag) Iterations() uint64 { return f.iterations }
