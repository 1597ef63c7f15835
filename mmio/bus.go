package mmio

// AllOnes is the value a 32-bit read returns from an address with nothing
// behind it. Reads that cannot be satisfied return it as a sentinel.
const AllOnes = 0xFFFFFFFF

// Bus performs single 32-bit register accesses at absolute physical
// addresses.
//
// Implementations must not fault: an access to an address with nothing
// behind it reads as [AllOnes] and ignores writes.
type Bus interface {
	Read32(addr uint64) uint32
	Write32(addr uint64, value uint32)
}

// Read64 composes a 64-bit value from two 32-bit reads at addr and addr+4,
// low word first.
func Read64(b Bus, addr uint64) uint64 {
	lo := b.Read32(addr)
	hi := b.Read32(addr + 4)
	return uint64(hi)<<32 | uint64(lo)
}

// Write64 writes a 64-bit value as two 32-bit writes at addr and addr+4,
// low word first.
func Write64(b Bus, addr uint64, value uint64) {
	b.Write32(addr, uint32(value))
	b.Write32(addr+4, uint32(value>>32))
}

// Probe performs a trial read at addr and reports whether the address is
// likely mapped. A read of [AllOnes] is reported as unmapped; registers
// that legitimately read as all-ones are misreported.
func Probe(b Bus, addr uint64) bool {
	return b.Read32(addr) != AllOnes
}

// BusFunc adapts a pair of functions to the [Bus] interface.
type BusFunc struct {
	ReadFunc  func(addr uint64) uint32
	WriteFunc func(addr uint64, value uint32)
}

// Read32 calls ReadFunc, or returns AllOnes if it is nil.
func (f BusFunc) Read32(addr uint64) uint32 {
	if f.ReadFunc == nil {
		return AllOnes
	}
	return f.ReadFunc(addr)
}

// Write32 calls WriteFunc if it is non-nil.
func (f BusFunc) Write32(addr uint64, value uint32) {
	if f.WriteFunc != nil {
		f.WriteFunc(addr, value)
	}
}
