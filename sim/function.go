package sim

import (
	"sync"

	"github.com/ardnew/softxhci/mmio"
)

// Configuration header offsets modelled by a Function.
const (
	cfgVendorID   = 0x00
	cfgCommand    = 0x04
	cfgClassRev   = 0x08
	cfgHeaderType = 0x0C // header type is byte 2 of this word
	cfgBAR0       = 0x10
	cfgBAR5       = 0x24

	headerMultiFunction = 0x80
	headerBridge        = 0x01
)

// ConfigSpaceSize is the size of the conventional configuration header.
const ConfigSpaceSize = 256

// Function is the configuration space image of one PCI function.
//
// Identity and class registers are read-only. The command register and
// BARs are writable; writes to a BAR honor its size mask the way hardware
// does during BAR sizing.
type Function struct {
	mu      sync.Mutex
	words   [ConfigSpaceSize / 4]uint32
	barMask [6]uint32

	reads, writes int
}

// NewFunction returns a type 0 function with the given identity and class.
func NewFunction(vendor, device uint16, class, subclass, progIF uint8) *Function {
	f := &Function{}
	f.words[cfgVendorID/4] = uint32(device)<<16 | uint32(vendor)
	f.words[cfgClassRev/4] = uint32(class)<<24 | uint32(subclass)<<16 | uint32(progIF)<<8
	for i := range f.barMask {
		f.barMask[i] = mmio.AllOnes
	}
	return f
}

// NewBridge returns a type 1 function with the given identity, classed as
// a PCI-to-PCI bridge.
func NewBridge(vendor, device uint16) *Function {
	f := NewFunction(vendor, device, 0x06, 0x04, 0x00)
	f.words[cfgHeaderType/4] |= headerBridge << 16
	return f
}

// SetRevision sets the revision ID byte.
func (f *Function) SetRevision(rev uint8) *Function {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words[cfgClassRev/4] = f.words[cfgClassRev/4]&^0xFF | uint32(rev)
	return f
}

// SetMultiFunction sets or clears the multi-function header bit.
func (f *Function) SetMultiFunction(multi bool) *Function {
	f.mu.Lock()
	defer f.mu.Unlock()
	if multi {
		f.words[cfgHeaderType/4] |= headerMultiFunction << 16
	} else {
		f.words[cfgHeaderType/4] &^= headerMultiFunction << 16
	}
	return f
}

// SetBAR sets the raw value of BAR i. A memory BAR of size bytes is sized
// with SetBARSize.
func (f *Function) SetBAR(i int, value uint32) *Function {
	if i < 0 || i >= len(f.barMask) {
		return f
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words[cfgBAR0/4+i] = value
	return f
}

// SetBARSize limits the writable address bits of BAR i to a window of
// size bytes. The size must be a power of two.
func (f *Function) SetBARSize(i int, size uint32) *Function {
	if i < 0 || i >= len(f.barMask) || size == 0 {
		return f
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.barMask[i] = ^(size - 1)
	return f
}

// Command returns the command register.
func (f *Function) Command() uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint16(f.words[cfgCommand/4])
}

// Accesses returns the number of configuration reads and writes performed.
func (f *Function) Accesses() (reads, writes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads, f.writes
}

// Read32 returns the configuration word containing off.
func (f *Function) Read32(off uint64) uint32 {
	if off >= ConfigSpaceSize {
		return mmio.AllOnes
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.words[off/4]
}

// Write32 writes the configuration word containing off, ignoring
// read-only registers.
func (f *Function) Write32(off uint64, value uint32) {
	if off >= ConfigSpaceSize {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes++

	switch w := off &^ 3; {
	case w == cfgVendorID, w == cfgClassRev:
	case w == cfgCommand:
		// status bits are write-one-to-clear; model only the command half
		f.words[w/4] = f.words[w/4]&0xFFFF0000 | value&0xFFFF
	case w == cfgHeaderType:
		// cache line size and latency timer
		f.words[w/4] = f.words[w/4]&0xFFFF0000 | value&0xFFFF
	case w >= cfgBAR0 && w <= cfgBAR5:
		i := (w - cfgBAR0) / 4
		if i > 0 && f.words[w/4-1]&0x7 == 0x4 {
			// upper half of a 64-bit memory BAR
			f.words[w/4] = value
			break
		}
		low := uint32(0xF)
		if f.words[w/4]&0x1 != 0 {
			low = 0x3
		}
		f.words[w/4] = value&f.barMask[i]&^low | f.words[w/4]&low
	default:
		f.words[w/4] = value
	}
}
