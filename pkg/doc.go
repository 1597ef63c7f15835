// Package pkg provides shared utilities for the softxhci bring-up core.
//
// This package contains common functionality used by the register,
// PCIe, XHCI and manager layers, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - A [github.com/go-logr/logr] view of the same logger
//   - Sentinel error values
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with a component tag:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentPCIe, "function found", "addr", "00:02.0")
//
// Code written against logr obtains a logger with [Logr].
//
// # Errors
//
// Layer failures wrap the sentinel values defined here:
//
//	if errors.Is(err, pkg.ErrTimeout) {
//	    // controller never reached the expected state
//	}
package pkg
