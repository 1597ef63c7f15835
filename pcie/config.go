package pcie

import "fmt"

// Configuration header register offsets.
const (
	RegVendorID   = 0x00
	RegDeviceID   = 0x02
	RegCommand    = 0x04
	RegStatus     = 0x06
	RegRevision   = 0x08
	RegProgIF     = 0x09
	RegSubclass   = 0x0A
	RegClass      = 0x0B
	RegHeaderType = 0x0E
	RegBAR0       = 0x10
)

// Command register bits.
const (
	CommandIO        = 1 << 0
	CommandMemory    = 1 << 1
	CommandBusMaster = 1 << 2
)

// Header type bits.
const (
	HeaderMultiFunction = 0x80
	HeaderTypeMask      = 0x7F
)

// Class codes used by the bring-up core.
const (
	ClassBridge    = 0x06
	ClassSerialBus = 0x0C
	SubclassUSB    = 0x03
	ProgIFXHCI     = 0x30
)

// Vendor ID values that mean no function responded.
const (
	VendorNone    = 0xFFFF
	VendorInvalid = 0x0000
)

// Topology limits.
const (
	MaxDevices   = 32 // device table capacity
	NumBARs      = 6
	MaxSlot      = 32
	MaxFunction  = 8
	ConfigSize   = 0x100
	configShift  = 12
	slotShift    = 15
	busShift     = 20
	offsetMask   = 0xFFF
	functionMask = 0x7
)

// Address is the bus/device/function triple of one PCI function.
type Address struct {
	Bus      uint8
	Device   uint8
	Function uint8
}

// String returns the address in bb:dd.f form.
func (a Address) String() string {
	return fmt.Sprintf("%02x:%02x.%x", a.Bus, a.Device, a.Function)
}

// Valid reports whether the device and function numbers are in range.
// Bus limits depend on the access strategy.
func (a Address) Valid() bool {
	return a.Device < MaxSlot && a.Function < MaxFunction
}

// ConfigOffset returns the configuration address of register off, laid
// out as bus<<20 | device<<15 | function<<12 | offset. Both the memory
// mapped window and the controller index register use this layout.
func (a Address) ConfigOffset(off uint8) uint64 {
	return uint64(a.Bus)<<busShift |
		uint64(a.Device)<<slotShift |
		uint64(a.Function&functionMask)<<configShift |
		uint64(off)&offsetMask
}

// BAR is a raw base address register value.
type BAR uint32

// IsMem reports whether the BAR decodes memory space.
func (b BAR) IsMem() bool { return b&0x1 == 0 }

// IsIO reports whether the BAR decodes I/O space.
func (b BAR) IsIO() bool { return b&0x1 != 0 }

// Is64 reports whether the BAR is the low half of a 64-bit memory BAR.
func (b BAR) Is64() bool { return b.IsMem() && (b>>1)&0x3 == 0x2 }

// Prefetchable reports whether the memory BAR is prefetchable.
func (b BAR) Prefetchable() bool { return b.IsMem() && b&0x8 != 0 }

// Addr returns the address bits of the BAR.
func (b BAR) Addr() uint32 {
	if b.IsIO() {
		return uint32(b &^ 0x3)
	}
	return uint32(b &^ 0xF)
}

// String returns a description of the BAR.
func (b BAR) String() string {
	if b == 0 {
		return "{}"
	}
	if b.IsIO() {
		return fmt.Sprintf("{i/o: 0x%08x}", b.Addr())
	}
	loc := "32-bit "
	switch (b >> 1) & 0x3 {
	case 1:
		loc = "< 1M "
	case 2:
		loc = "64-bit "
	case 3:
		loc = "unknown "
	}
	if b.Prefetchable() {
		loc += "prefetchable "
	}
	return fmt.Sprintf("{mem: %s0x%08x}", loc, b.Addr())
}
