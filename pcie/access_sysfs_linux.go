//go:build linux

package pcie

import (
	"context"

	"github.com/efficientgo/core/errors"
	"github.com/go-logr/logr"
	"github.com/prometheus/procfs/sysfs"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// SysfsAccess serves configuration reads from the Linux PCI inventory in
// sysfs. It is read-only and sees identity, class and revision only; BARs
// read as zero and writes are dropped.
type SysfsAccess struct {
	log logr.Logger
	fs  sysfs.FS

	functions map[Address]*[ConfigSize / 4]uint32
	buses     int
}

// NewSysfsAccess returns an accessor over the default sysfs mount.
func NewSysfsAccess(log logr.Logger) (*SysfsAccess, error) {
	fs, err := sysfs.NewDefaultFS()
	if err != nil {
		return nil, errors.Wrap(err, "open sysfs")
	}
	return &SysfsAccess{log: log, fs: fs}, nil
}

// NewSysfsAccessWithMount returns an accessor over the sysfs mounted at
// mountPoint.
func NewSysfsAccessWithMount(log logr.Logger, mountPoint string) (*SysfsAccess, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.Wrapf(err, "open sysfs at %s", mountPoint)
	}
	return &SysfsAccess{log: log, fs: fs}, nil
}

// Setup implements [ConfigAccessor]. It snapshots the inventory.
func (s *SysfsAccess) Setup(context.Context) (bool, error) {
	devices, err := s.fs.PciDevices()
	if err != nil {
		return false, errors.Wrap(err, "read pci devices")
	}

	s.functions = make(map[Address]*[ConfigSize / 4]uint32)
	s.buses = 0
	for _, device := range devices {
		loc := device.Location
		if loc.Segment != 0 || loc.Bus > 0xFF || loc.Device >= MaxSlot || loc.Function >= MaxFunction {
			s.log.V(3).Info("Skipping device outside segment 0", "device", device.Name())
			continue
		}

		a := Address{Bus: uint8(loc.Bus), Device: uint8(loc.Device), Function: uint8(loc.Function)}
		words := new([ConfigSize / 4]uint32)
		words[RegVendorID/4] = device.Device<<16 | device.Vendor&0xFFFF
		words[RegRevision/4] = device.Class<<8 | device.Revision&0xFF
		s.functions[a] = words
		s.buses = max(s.buses, int(a.Bus)+1)

		s.log.V(1).Info("Found pci device", "device", device.Name(), "address", a.String())
	}

	// sysfs lists functions individually; mark function 0 of every device
	// with siblings as multi-function so a scan reaches them
	for a := range s.functions {
		if a.Function == 0 {
			continue
		}
		if f0, ok := s.functions[Address{Bus: a.Bus, Device: a.Device}]; ok {
			f0[RegHeaderType/4] |= HeaderMultiFunction << 16
		}
	}

	pkg.LogDebug(pkg.ComponentPCIe, "sysfs inventory", "functions", len(s.functions))
	return len(s.functions) > 0, nil
}

// Read32 implements [ConfigAccessor].
func (s *SysfsAccess) Read32(a Address, off uint8) uint32 {
	words, ok := s.functions[a]
	if !ok || !s.Policy().reachable(a) {
		return mmio.AllOnes
	}
	return words[off/4]
}

// Write32 implements [ConfigAccessor]. Writes are dropped.
func (s *SysfsAccess) Write32(a Address, off uint8, _ uint32) {
	s.log.V(2).Info("Dropping configuration write", "address", a.String(), "offset", off)
}

// Policy implements [ConfigAccessor].
func (s *SysfsAccess) Policy() ScanPolicy {
	return ScanPolicy{Buses: s.buses, ZeroAbsent: true}
}
