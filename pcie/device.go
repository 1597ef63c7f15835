package pcie

import (
	"fmt"

	"github.com/siderolabs/go-pcidb/pkg/pcidb"
)

// Device is one function discovered during a bus scan.
//
// The identity and class fields are captured once at scan time. Live
// register state is read through the owning [Bus] accessors, which address
// the function by its stored [Address].
type Device struct {
	Address

	VendorID uint16
	DeviceID uint16

	// ClassCode is the 16-bit class and subclass pair read from offset
	// 0x0A: class in the high byte, subclass in the low byte.
	ClassCode uint16
	Subclass  uint8
	ProgIF    uint8

	Revision   uint8
	HeaderType uint8

	BARs [NumBARs]uint32
}

// Class returns the base class byte.
func (d *Device) Class() uint8 { return uint8(d.ClassCode >> 8) }

// MultiFunction reports whether the function's header marks the device
// as multi-function.
func (d *Device) MultiFunction() bool { return d.HeaderType&HeaderMultiFunction != 0 }

// IsUSB reports whether the function is a USB host controller of any
// programming interface.
func (d *Device) IsUSB() bool {
	return d.Class() == ClassSerialBus && d.Subclass == SubclassUSB
}

// IsXHCI reports whether the function is an XHCI host controller.
func (d *Device) IsXHCI() bool { return d.IsUSB() && d.ProgIF == ProgIFXHCI }

// BAR returns BAR i, or zero when i is out of range.
func (d *Device) BAR(i int) BAR {
	if i < 0 || i >= NumBARs {
		return 0
	}
	return BAR(d.BARs[i])
}

// MemBase returns the memory address decoded by BAR i. A 64-bit BAR takes
// its high dword from BAR i+1. It reports false for I/O BARs and for a
// 64-bit BAR with no room for its high half.
func (d *Device) MemBase(i int) (uint64, bool) {
	b := d.BAR(i)
	if i < 0 || i >= NumBARs || !b.IsMem() {
		return 0, false
	}
	base := uint64(b.Addr())
	if b.Is64() {
		if i+1 >= NumBARs {
			return 0, false
		}
		base |= uint64(d.BARs[i+1]) << 32
	}
	return base, true
}

// VendorName returns the vendor name from the PCI ID database, or an
// empty string if the vendor is unknown.
func (d *Device) VendorName() string {
	name, _ := pcidb.LookupVendor(d.VendorID)
	return name
}

// ProductName returns the product name from the PCI ID database, or an
// empty string if the product is unknown.
func (d *Device) ProductName() string {
	name, _ := pcidb.LookupProduct(d.VendorID, d.DeviceID)
	return name
}

// Describe returns a short human-readable classification.
func (d *Device) Describe() string {
	switch {
	case d.IsXHCI():
		return "USB 3.0 XHCI Controller"
	case d.IsUSB():
		return "USB Controller (other)"
	case d.Class() == ClassBridge:
		return "PCI Bridge"
	default:
		return "Other PCIe device"
	}
}

// String returns the address, identity and class of the function.
func (d *Device) String() string {
	return fmt.Sprintf("%s %04x:%04x class %04x prog-if %02x",
		d.Address, d.VendorID, d.DeviceID, d.ClassCode, d.ProgIF)
}
