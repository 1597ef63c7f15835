package xhci

import "fmt"

// State is the controller lifecycle state.
//
// Uninitialized moves to Initialized once Init succeeds. Start moves
// Initialized or Stopped to Running, and Stop moves Running to Stopped.
// Nothing returns a controller to Uninitialized.
type State uint8

// Lifecycle states.
const (
	StateUninitialized State = iota
	StateInitialized
	StateRunning
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// canStart reports whether Start is allowed from s.
func (s State) canStart() bool {
	return s == StateInitialized || s == StateStopped
}
