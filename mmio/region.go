package mmio

import (
	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// Region is a validated window of register space on a [Bus].
//
// All access is by byte offset from the window base and is bounds-checked:
// out-of-range reads return the all-ones value of their width and
// out-of-range writes are dropped. A Region is the only way the PCIe and
// XHCI layers touch registers.
type Region struct {
	bus  Bus
	base uint64
	size uint64
}

// NewRegion validates and returns a register window of size bytes at base.
//
// The base must be 4-byte aligned, size must be non-zero, and the window
// must not wrap the 64-bit address space.
func NewRegion(bus Bus, base, size uint64) (*Region, error) {
	if bus == nil {
		return nil, errors.Wrap(pkg.ErrInvalidParameter, "nil bus")
	}
	if size == 0 {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "empty region at %#x", base)
	}
	if base&3 != 0 {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "unaligned region base %#x", base)
	}
	if base+size < base {
		return nil, errors.Wrapf(pkg.ErrOutOfRange, "region %#x+%#x wraps", base, size)
	}
	return &Region{bus: bus, base: base, size: size}, nil
}

// Base returns the absolute address of offset 0.
func (r *Region) Base() uint64 { return r.base }

// Size returns the window length in bytes.
func (r *Region) Size() uint64 { return r.size }

// Contains reports whether width bytes at off lie inside the window.
func (r *Region) Contains(off, width uint64) bool {
	return width <= r.size && off <= r.size-width
}

// Read8 reads the byte at off from its enclosing 32-bit word.
func (r *Region) Read8(off uint64) uint8 {
	if !r.Contains(off, 1) || !r.Contains(off&^3, 4) {
		return 0xFF
	}
	word := r.bus.Read32(r.base + off&^3)
	return uint8(word >> ((off & 3) * 8))
}

// Read16 reads the halfword at off from its enclosing 32-bit word.
// Offsets that straddle a word boundary read as 0xFFFF.
func (r *Region) Read16(off uint64) uint16 {
	if off&1 != 0 || !r.Contains(off, 2) || !r.Contains(off&^3, 4) {
		return 0xFFFF
	}
	word := r.bus.Read32(r.base + off&^3)
	return uint16(word >> ((off & 2) * 8))
}

// Read32 reads the 32-bit register at off.
func (r *Region) Read32(off uint64) uint32 {
	if !r.Contains(off, 4) {
		return AllOnes
	}
	return r.bus.Read32(r.base + off)
}

// Read64 reads the 64-bit register at off, low word first.
func (r *Region) Read64(off uint64) uint64 {
	if !r.Contains(off, 8) {
		return 0xFFFFFFFFFFFFFFFF
	}
	return Read64(r.bus, r.base+off)
}

// Write32 writes the 32-bit register at off.
func (r *Region) Write32(off uint64, value uint32) {
	if !r.Contains(off, 4) {
		return
	}
	r.bus.Write32(r.base+off, value)
}

// Write64 writes the 64-bit register at off, low word first.
func (r *Region) Write64(off uint64, value uint64) {
	if !r.Contains(off, 8) {
		return
	}
	Write64(r.bus, r.base+off, value)
}

// Modify32 performs a read-modify-write of the register at off, clearing
// the clear bits and then setting the set bits.
func (r *Region) Modify32(off uint64, clear, set uint32) {
	if !r.Contains(off, 4) {
		return
	}
	v := r.bus.Read32(r.base + off)
	r.bus.Write32(r.base+off, v&^clear|set)
}

// Probe reports whether the register at off is likely backed by hardware.
// See [Probe].
func (r *Region) Probe(off uint64) bool {
	if !r.Contains(off, 4) {
		return false
	}
	return Probe(r.bus, r.base+off)
}

// Sub returns the nested window of size bytes at off.
func (r *Region) Sub(off, size uint64) (*Region, error) {
	if size == 0 || !r.Contains(off, size) {
		return nil, errors.Wrapf(pkg.ErrOutOfRange,
			"sub-region %#x+%#x outside %#x+%#x", off, size, r.base, r.size)
	}
	return NewRegion(r.bus, r.base+off, size)
}
