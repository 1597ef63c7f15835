//go:build !profile

package prof

import "io"

// Enabled reports whether profile capture is compiled in.
const Enabled = false

// StartCPU does nothing without the "profile" build tag.
func StartCPU(string) error { return nil }

// StartCPUWriter does nothing without the "profile" build tag.
func StartCPUWriter(io.Writer) error { return nil }

// StopCPU does nothing without the "profile" build tag.
func StopCPU() {}

// CPUActive always reports false without the "profile" build tag.
func CPUActive() bool { return false }

// Write does nothing without the "profile" build tag.
func Write(Profile, string) error { return nil }

// WriteTo does nothing without the "profile" build tag.
func WriteTo(Profile, io.Writer) error { return nil }

// SetBlockProfileRate does nothing without the "profile" build tag.
func SetBlockProfileRate(int) {}

// SetMutexProfileFraction does nothing without the "profile" build tag.
func SetMutexProfileFraction(int) {}
