// Package pcie enumerates PCIe configuration space.
//
// A [Bus] brings up the root complex through a [ConfigAccessor] and scans
// every reachable bus/device/function triple into a fixed-capacity device
// table. Three access strategies are provided:
//
//   - [SafeAccess]: the memory-mapped configuration window. An absent root
//     complex is a valid, empty system. This is the default.
//   - [DirectAccess]: the BCM2711 controller's index/data register pair,
//     after waiting for link-up. A link that never trains fails Init.
//   - [SysfsAccess]: a read-only view of the Linux PCI inventory, for
//     hosted diagnostics.
//
// Discovered functions are plain [Device] records. Live configuration
// registers are read through the owning Bus, which re-addresses the
// function on every access:
//
//	bus := pcie.NewBus(access)
//	if err := bus.Init(ctx); err != nil {
//	    return err
//	}
//	if dev := bus.FindByClass(0x0C00, pcie.SubclassUSB); dev != nil {
//	    cmd := bus.ReadConfig16(dev, pcie.RegCommand)
//	    bus.WriteConfig32(dev, pcie.RegCommand, uint32(cmd)|pcie.CommandMemory)
//	}
//
// Reads that cannot be satisfied return all-ones of their width and
// writes that cannot be delivered are dropped.
package pcie
