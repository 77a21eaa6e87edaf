package device

import "errors"

var (
	// ErrNotBound indicates a dispatch before Bind.
	ErrNotBound = errors.New("device: backend has no bound grid")

	// ErrInvalidProgram indicates a dispatch with no usable program.
	ErrInvalidProgram = errors.New("device: invalid program")

	// ErrUnknownBackend indicates a backend name nobody registered.
	ErrUnknownBackend = errors.New("device: unknown backend")

	// ErrUnavailable indicates a registered backend that cannot run here.
	ErrUnavailable = errors.New("device: backend not available")

	// ErrResolution indicates a non-positive output size.
	ErrResolution = errors.New("device: output resolution must be positive")
)
