package mmio

import (
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// Memory is a sparse simulated physical address space.
//
// Only explicitly mapped ranges hold state; reads elsewhere return
// [AllOnes] and writes elsewhere are dropped, the way an unpopulated bus
// behaves. Words are stored at 4-byte aligned addresses and reset to zero
// when mapped.
type Memory struct {
	mu     sync.Mutex
	ranges []span
	words  map[uint64]uint32
}

type span struct {
	base, size uint64
}

func (s span) contains(addr uint64) bool {
	return addr >= s.base && addr-s.base < s.size
}

// NewMemory returns an empty address space with nothing mapped.
func NewMemory() *Memory {
	return &Memory{words: make(map[uint64]uint32)}
}

// Map backs size bytes at base with zero-initialized storage.
func (m *Memory) Map(base, size uint64) error {
	if size == 0 || base&3 != 0 {
		return errors.Wrapf(pkg.ErrInvalidParameter, "map %#x+%#x", base, size)
	}
	if base+size < base {
		return errors.Wrapf(pkg.ErrOutOfRange, "map %#x+%#x wraps", base, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.ranges {
		if base < s.base+s.size && s.base < base+size {
			return errors.Wrapf(pkg.ErrInvalidParameter,
				"map %#x+%#x overlaps %#x+%#x", base, size, s.base, s.size)
		}
	}
	m.ranges = append(m.ranges, span{base: base, size: size})
	return nil
}

// Mapped reports whether addr lies inside a mapped range.
func (m *Memory) Mapped(addr uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mappedLocked(addr)
}

func (m *Memory) mappedLocked(addr uint64) bool {
	for _, s := range m.ranges {
		if s.contains(addr) {
			return true
		}
	}
	return false
}

// Read32 implements [Bus].
func (m *Memory) Read32(addr uint64) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mappedLocked(addr) {
		return AllOnes
	}
	return m.words[addr&^3]
}

// Write32 implements [Bus].
func (m *Memory) Write32(addr uint64, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.mappedLocked(addr) {
		return
	}
	m.words[addr&^3] = value
}
