// Package hal defines the boundary between the USB device manager and the
// hardware layers underneath it.
//
// The manager never touches registers. It drives two collaborators:
//
//   - [Fabric]: the PCIe enumeration layer, brought up first.
//   - [Controller]: the host controller lifecycle, which depends on the
//     fabric's device table.
//
// Both are satisfied by the concrete bring-up packages:
//
//	bus := pcie.NewBus(access)       // hal.Fabric
//	hc := xhci.New(bus, mem, cfg)    // hal.Controller
//	mgr := host.New(bus, hc, sink)
//
// The package also carries the protocol-level vocabulary shared by the
// manager and its device records: connection [Speed], [TransferType],
// per-speed packet limits and the 8-byte [SetupPacket].
package hal
