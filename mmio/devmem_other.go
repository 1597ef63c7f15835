//go:build !linux

package mmio

import (
	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// DevMem is unavailable on this platform.
type DevMem struct{}

// OpenDevMem always fails on this platform.
func OpenDevMem(base, size uint64) (*DevMem, error) {
	return nil, errors.Wrapf(pkg.ErrNotSupported, "physical window %#x+%#x", base, size)
}

// Close is a no-op.
func (d *DevMem) Close() error { return nil }

// Read32 implements [Bus].
func (d *DevMem) Read32(uint64) uint32 { return AllOnes }

// Write32 implements [Bus].
func (d *DevMem) Write32(uint64, uint32) {}
