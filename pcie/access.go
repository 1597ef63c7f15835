package pcie

import (
	"context"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/platform"
)

// ConfigAccessor is a configuration space access strategy.
//
// Read32 and Write32 address the aligned configuration word containing
// off. Addresses outside the accessor's reach read as all-ones and ignore
// writes; accessors never fail at the register level.
type ConfigAccessor interface {
	// Setup brings up the root complex. It reports present=false with a
	// nil error when the platform has no PCIe hardware.
	Setup(ctx context.Context) (present bool, err error)

	Read32(a Address, off uint8) uint32
	Write32(a Address, off uint8, value uint32)

	// Policy describes how a bus scan should walk this accessor.
	Policy() ScanPolicy
}

// ScanPolicy describes the walk a bus scan performs.
type ScanPolicy struct {
	// Buses is the number of buses scanned, starting at bus 0.
	Buses int

	// FirstDevice is the first device number scanned on bus 0. Devices
	// below it are reserved for the root complex.
	FirstDevice uint8

	// ZeroAbsent treats a vendor ID of 0x0000 as absent in addition to
	// 0xFFFF.
	ZeroAbsent bool
}

// Absent reports whether a vendor ID read means no function responded.
func (p ScanPolicy) Absent(vendor uint16) bool {
	return vendor == VendorNone || (p.ZeroAbsent && vendor == VendorInvalid)
}

// reachable reports whether a is inside the policy's walk.
func (p ScanPolicy) reachable(a Address) bool {
	return a.Valid() && int(a.Bus) < p.Buses
}

// NewAccessor returns the accessor selected by cfg.Variant over bus.
func NewAccessor(bus mmio.Bus, cfg platform.Config) (ConfigAccessor, error) {
	switch cfg.Variant {
	case platform.VariantSafe:
		return NewSafeAccess(bus, cfg)
	case platform.VariantDirect:
		return NewDirectAccess(bus, cfg)
	default:
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "access variant %s", cfg.Variant)
	}
}

func read16(acc ConfigAccessor, a Address, off uint8) uint16 {
	if off&1 != 0 {
		return 0xFFFF
	}
	return uint16(acc.Read32(a, off&^3) >> ((off & 3) * 8))
}

func read8(acc ConfigAccessor, a Address, off uint8) uint8 {
	return uint8(acc.Read32(a, off&^3) >> ((off & 3) * 8))
}
