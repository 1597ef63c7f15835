package mmio

import (
	"errors"
	"testing"

	"github.com/ardnew/softxhci/pkg"
)

// =============================================================================
// Bus Helpers
// =============================================================================

func TestReadWrite64(t *testing.T) {
	mem := NewMemory()
	if err := mem.Map(0x1000, 0x100); err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	Write64(mem, 0x1010, 0x1122334455667788)

	if got := mem.Read32(0x1010); got != 0x55667788 {
		t.Errorf("low word = %#x, want 0x55667788", got)
	}
	if got := mem.Read32(0x1014); got != 0x11223344 {
		t.Errorf("high word = %#x, want 0x11223344", got)
	}
	if got := Read64(mem, 0x1010); got != 0x1122334455667788 {
		t.Errorf("Read64() = %#x, want 0x1122334455667788", got)
	}
}

func TestReadWrite64Order(t *testing.T) {
	var order []uint64
	bus := BusFunc{
		ReadFunc: func(addr uint64) uint32 {
			order = append(order, addr)
			return 0
		},
		WriteFunc: func(addr uint64, _ uint32) {
			order = append(order, addr)
		},
	}

	Read64(bus, 0x100)
	Write64(bus, 0x200, 0)

	want := []uint64{0x100, 0x104, 0x200, 0x204}
	if len(order) != len(want) {
		t.Fatalf("accesses = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("access %d = %#x, want %#x", i, order[i], want[i])
		}
	}
}

func TestProbe(t *testing.T) {
	mem := NewMemory()
	if err := mem.Map(0x2000, 0x10); err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	mem.Write32(0x2004, AllOnes)

	tests := []struct {
		name string
		addr uint64
		want bool
	}{
		{"mapped zero", 0x2000, true},
		{"mapped all-ones", 0x2004, false},
		{"unmapped", 0x3000, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Probe(mem, tt.addr); got != tt.want {
				t.Errorf("Probe(%#x) = %v, want %v", tt.addr, got, tt.want)
			}
		})
	}
}

func TestBusFuncNil(t *testing.T) {
	var f BusFunc
	if got := f.Read32(0); got != AllOnes {
		t.Errorf("Read32() = %#x, want AllOnes", got)
	}
	f.Write32(0, 1)
}

// =============================================================================
// Region
// =============================================================================

func TestNewRegion(t *testing.T) {
	mem := NewMemory()

	tests := []struct {
		name    string
		bus     Bus
		base    uint64
		size    uint64
		wantErr error
	}{
		{"valid", mem, 0x1000, 0x100, nil},
		{"nil bus", nil, 0x1000, 0x100, pkg.ErrInvalidParameter},
		{"empty", mem, 0x1000, 0, pkg.ErrInvalidParameter},
		{"unaligned", mem, 0x1002, 0x100, pkg.ErrInvalidParameter},
		{"wraps", mem, 0xFFFFFFFFFFFFF000, 0x2000, pkg.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRegion(tt.bus, tt.base, tt.size)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NewRegion() error = %v", err)
				}
				if r.Base() != tt.base || r.Size() != tt.size {
					t.Errorf("region = %#x+%#x, want %#x+%#x", r.Base(), r.Size(), tt.base, tt.size)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRegion() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func newTestRegion(t *testing.T) (*Memory, *Region) {
	t.Helper()
	mem := NewMemory()
	if err := mem.Map(0x4000, 0x100); err != nil {
		t.Fatalf("Map() error = %v", err)
	}
	r, err := NewRegion(mem, 0x4000, 0x20)
	if err != nil {
		t.Fatalf("NewRegion() error = %v", err)
	}
	return mem, r
}

func TestRegionNarrowReads(t *testing.T) {
	mem, r := newTestRegion(t)
	mem.Write32(0x4000, 0x01000020) // version 0x0100, length 0x20

	tests := []struct {
		name string
		read func() uint32
		want uint32
	}{
		{"byte 0", func() uint32 { return uint32(r.Read8(0)) }, 0x20},
		{"byte 3", func() uint32 { return uint32(r.Read8(3)) }, 0x01},
		{"half 0", func() uint32 { return uint32(r.Read16(0)) }, 0x0020},
		{"half 2", func() uint32 { return uint32(r.Read16(2)) }, 0x0100},
		{"half straddle", func() uint32 { return uint32(r.Read16(1)) }, 0xFFFF},
		{"word", func() uint32 { return r.Read32(0) }, 0x01000020},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.read(); got != tt.want {
				t.Errorf("read = %#x, want %#x", got, tt.want)
			}
		})
	}
}

func TestRegionBounds(t *testing.T) {
	mem, r := newTestRegion(t)
	mem.Write32(0x4020, 0xCAFEF00D) // just past the window

	if got := r.Read32(0x20); got != AllOnes {
		t.Errorf("Read32(end) = %#x, want AllOnes", got)
	}
	if got := r.Read8(0x20); got != 0xFF {
		t.Errorf("Read8(end) = %#x, want 0xFF", got)
	}
	if got := r.Read16(0x20); got != 0xFFFF {
		t.Errorf("Read16(end) = %#x, want 0xFFFF", got)
	}
	if got := r.Read64(0x1C); got != 0xFFFFFFFFFFFFFFFF {
		t.Errorf("Read64(straddle) = %#x, want all-ones", got)
	}

	r.Write32(0x20, 0)
	r.Write64(0x1C, 0)
	if got := mem.Read32(0x4020); got != 0xCAFEF00D {
		t.Errorf("out-of-range write reached memory: %#x", got)
	}
	if r.Probe(0x20) {
		t.Error("Probe(end) = true, want false")
	}
}

func TestRegionModify(t *testing.T) {
	mem, r := newTestRegion(t)
	mem.Write32(0x4008, 0x000000F1)

	r.Modify32(0x08, 0x01, 0x06)
	if got := mem.Read32(0x4008); got != 0xF6 {
		t.Errorf("Modify32() = %#x, want 0xF6", got)
	}
}

func TestRegionSub(t *testing.T) {
	mem, r := newTestRegion(t)

	sub, err := r.Sub(0x10, 0x10)
	if err != nil {
		t.Fatalf("Sub() error = %v", err)
	}
	sub.Write32(0x4, 0x1234)
	if got := mem.Read32(0x4014); got != 0x1234 {
		t.Errorf("sub write = %#x, want 0x1234", got)
	}

	if _, err := r.Sub(0x10, 0x20); !errors.Is(err, pkg.ErrOutOfRange) {
		t.Errorf("Sub(overflow) error = %v, want ErrOutOfRange", err)
	}
	if _, err := r.Sub(0, 0); !errors.Is(err, pkg.ErrOutOfRange) {
		t.Errorf("Sub(empty) error = %v, want ErrOutOfRange", err)
	}
}

// =============================================================================
// Memory and Mux
// =============================================================================

func TestMemoryMap(t *testing.T) {
	mem := NewMemory()
	if err := mem.Map(0x1000, 0x1000); err != nil {
		t.Fatalf("Map() error = %v", err)
	}

	tests := []struct {
		name string
		base uint64
		size uint64
	}{
		{"overlap", 0x1800, 0x1000},
		{"empty", 0x3000, 0},
		{"unaligned", 0x3001, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := mem.Map(tt.base, tt.size); !errors.Is(err, pkg.ErrInvalidParameter) {
				t.Errorf("Map() error = %v, want ErrInvalidParameter", err)
			}
		})
	}

	if !mem.Mapped(0x1FFC) || mem.Mapped(0x2000) {
		t.Error("Mapped() boundary mismatch")
	}
	mem.Write32(0x2000, 7)
	if got := mem.Read32(0x2000); got != AllOnes {
		t.Errorf("unmapped read = %#x, want AllOnes", got)
	}
}

func TestMux(t *testing.T) {
	var m Mux
	a, b := NewMemory(), NewMemory()
	_ = a.Map(0, 0x100)
	_ = b.Map(0, 0x100)

	if err := m.Attach(0x10000, 0x100, a); err != nil {
		t.Fatalf("Attach(a) error = %v", err)
	}
	if err := m.Attach(0x20000, 0x100, b); err != nil {
		t.Fatalf("Attach(b) error = %v", err)
	}
	if err := m.Attach(0x10080, 0x100, b); !errors.Is(err, pkg.ErrInvalidParameter) {
		t.Errorf("Attach(overlap) error = %v, want ErrInvalidParameter", err)
	}

	m.Write32(0x10004, 0xA)
	m.Write32(0x20004, 0xB)
	if got := a.Read32(4); got != 0xA {
		t.Errorf("device a offset 4 = %#x, want 0xA", got)
	}
	if got := b.Read32(4); got != 0xB {
		t.Errorf("device b offset 4 = %#x, want 0xB", got)
	}
	if got := m.Read32(0x30000); got != AllOnes {
		t.Errorf("unrouted read = %#x, want AllOnes", got)
	}

	if !m.Detach(0x10000) {
		t.Fatal("Detach() = false")
	}
	if got := m.Read32(0x10004); got != AllOnes {
		t.Errorf("detached read = %#x, want AllOnes", got)
	}
}
