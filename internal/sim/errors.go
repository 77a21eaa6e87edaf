package sim

import (
	"errors"
	"fmt"
)

var (
	// ErrNoProgram indicates no simulation kernel has ever compiled.
	ErrNoProgram = errors.New("sim: no simulation program loaded")
)

// SimulationError wraps a device failure with the position in the frame
// where it happened. The frame is abandoned; the next frame starts fresh.
type SimulationError struct {
	Frame     uint64
	Iteration int
	Partition int
	Op        string
	Wrapped   error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("sim: frame %d iteration %d partition %d: %s: %v",
		e.Frame, e.Iteration, e.Partition, e.Op, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
