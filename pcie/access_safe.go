package pcie

import (
	"context"
	"fmt"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/platform"
)

// busWindow is the configuration window size of one bus.
const busWindow = 1 << busShift

// SafeAccess reaches configuration space through the memory-mapped
// configuration window.
//
// Setup does not train the link. It reads the root complex identity at
// 00:00.0 and reports the fabric absent, without error, when that read
// returns 0x0000 or 0xFFFF. Device 0 of bus 0 is reserved for the root
// complex; every bus the window covers is scanned.
type SafeAccess struct {
	ecam  *mmio.Region
	buses int
}

// NewSafeAccess returns a memory-mapped accessor for the window described
// by cfg.
func NewSafeAccess(bus mmio.Bus, cfg platform.Config) (*SafeAccess, error) {
	ecam, err := mmio.NewRegion(bus, cfg.ECAMBase, cfg.ECAMSize)
	if err != nil {
		return nil, errors.Wrap(err, "configuration window")
	}
	buses := int(cfg.ECAMSize / busWindow)
	if buses == 0 {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter,
			"configuration window %#x smaller than one bus", cfg.ECAMSize)
	}
	return &SafeAccess{ecam: ecam, buses: min(buses, 256)}, nil
}

// Setup implements [ConfigAccessor].
func (s *SafeAccess) Setup(context.Context) (bool, error) {
	root := Address{}
	id := s.Read32(root, RegVendorID)
	vendor, device := uint16(id), uint16(id>>16)

	if s.Policy().Absent(vendor) {
		pkg.LogInfo(pkg.ComponentPCIe, "root complex absent",
			"window", fmt.Sprintf("%#x", s.ecam.Base()),
			"id", fmt.Sprintf("%#08x", id))
		return false, nil
	}

	pkg.LogDebug(pkg.ComponentPCIe, "root complex present",
		"vendor", fmt.Sprintf("%#04x", vendor),
		"device", fmt.Sprintf("%#04x", device))
	return true, nil
}

// Read32 implements [ConfigAccessor].
func (s *SafeAccess) Read32(a Address, off uint8) uint32 {
	if !s.Policy().reachable(a) {
		return mmio.AllOnes
	}
	return s.ecam.Read32(a.ConfigOffset(off &^ 3))
}

// Write32 implements [ConfigAccessor].
func (s *SafeAccess) Write32(a Address, off uint8, value uint32) {
	if !s.Policy().reachable(a) {
		return
	}
	s.ecam.Write32(a.ConfigOffset(off&^3), value)
}

// Policy implements [ConfigAccessor].
func (s *SafeAccess) Policy() ScanPolicy {
	return ScanPolicy{Buses: s.buses, FirstDevice: 1, ZeroAbsent: true}
}
