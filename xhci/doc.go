// Package xhci drives the lifecycle of an XHCI host controller found on an
// enumerated PCIe bus.
//
// A [Controller] moves through four states:
//
//	Uninitialized --Init--> Initialized --Start--> Running
//	                                      <--Start-- Stopped <--Stop--
//
// Init locates the first function with class serial-bus, subclass USB and
// the XHCI programming interface, enables memory decode and bus mastering,
// maps BAR0, records the capability parameters and runs the halt, reset
// and ready handshake. Start and Stop toggle the run bit and wait for the
// halted status bit to follow. Every handshake is bounded by the poll
// budget from [platform.Config]; a handshake that never completes fails
// with an error wrapping [pkg.ErrTimeout] and leaves the state unchanged.
//
// Ring and context setup are not implemented. [Controller.SetupRings]
// reports [pkg.ErrNotSupported].
package xhci
