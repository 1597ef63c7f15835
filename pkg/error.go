package pkg

import "errors"

// Bring-up errors shared by every layer.
//
// Lower layers wrap these with context; callers should match with
// [errors.Is] rather than comparing messages.
var (
	// ErrTimeout indicates a polled register never reached the expected
	// value within the retry budget. Hardware error status bits are not
	// distinguished from a plain timeout.
	ErrTimeout = errors.New("poll budget exhausted")

	// ErrNoDevice indicates the required hardware is not present.
	ErrNoDevice = errors.New("device not present")

	// ErrInvalidState indicates the operation is not allowed in the
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid state")

	// ErrInvalidParameter indicates an invalid parameter was provided.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrNoResources indicates a fixed-capacity table is full.
	ErrNoResources = errors.New("no resources available")

	// ErrNotRunning indicates the subsystem has not been initialized.
	ErrNotRunning = errors.New("not running")

	// ErrOutOfRange indicates an address or index outside its valid range.
	ErrOutOfRange = errors.New("out of range")
)
