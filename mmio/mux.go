package mmio

import (
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// Mux routes absolute addresses to devices attached at fixed windows.
//
// An attached device sees offsets relative to its window base. Addresses
// outside every window read as [AllOnes] and ignore writes.
type Mux struct {
	mu      sync.RWMutex
	windows []window
}

type window struct {
	span
	dev Bus
}

// Attach places dev behind the window of size bytes at base.
func (m *Mux) Attach(base, size uint64, dev Bus) error {
	if dev == nil || size == 0 {
		return errors.Wrapf(pkg.ErrInvalidParameter, "attach %#x+%#x", base, size)
	}
	if base+size < base {
		return errors.Wrapf(pkg.ErrOutOfRange, "attach %#x+%#x wraps", base, size)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.windows {
		if base < w.base+w.size && w.base < base+size {
			return errors.Wrapf(pkg.ErrInvalidParameter,
				"window %#x+%#x overlaps %#x+%#x", base, size, w.base, w.size)
		}
	}
	m.windows = append(m.windows, window{span: span{base: base, size: size}, dev: dev})
	return nil
}

// Detach removes the window starting at base. It reports whether a window
// was removed.
func (m *Mux) Detach(base uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, w := range m.windows {
		if w.base == base {
			m.windows = append(m.windows[:i], m.windows[i+1:]...)
			return true
		}
	}
	return false
}

func (m *Mux) route(addr uint64) (Bus, uint64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, w := range m.windows {
		if w.contains(addr) {
			return w.dev, addr - w.base, true
		}
	}
	return nil, 0, false
}

// Read32 implements [Bus].
func (m *Mux) Read32(addr uint64) uint32 {
	dev, off, ok := m.route(addr)
	if !ok {
		return AllOnes
	}
	return dev.Read32(off)
}

// Write32 implements [Bus].
func (m *Mux) Write32(addr uint64, value uint32) {
	dev, off, ok := m.route(addr)
	if !ok {
		return
	}
	dev.Write32(off, value)
}
