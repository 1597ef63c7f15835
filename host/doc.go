// Package host is the top of the USB bring-up stack.
//
// A [Manager] owns a PCIe fabric and an XHCI host controller, expressed
// as the [hal.Fabric] and [hal.Controller] interfaces, and brings them up
// in order: fabric, controller, controller start. Bring-up stops at the
// first layer that fails and leaves the later layers untouched.
//
// # Device Table
//
// The manager keeps a fixed table of [MaxDevices] device records. No
// transfer rings exist yet, so [Manager.EnumerateDevice] fabricates
// placeholder records marked [Device.Synthetic] instead of talking to a
// device, and the transfer methods of [Device] report
// [pkg.ErrNotSupported].
//
// # Diagnostics
//
// [Manager.Status] returns a snapshot of all layers. [Manager.PrintInfo]
// writes a text dump to a [TextSink] and [Manager.DrawStatus] renders a
// status panel on a [Canvas].
//
// # Example
//
//	cfg := platform.RPi4()
//	mem, _ := mmio.OpenDevMem()
//	access, _ := pcie.NewAccessor(mem, cfg)
//	bus := pcie.NewBus(access)
//
//	m := host.New(bus, xhci.New(bus, mem, cfg), host.WriterSink(os.Stdout))
//	if err := m.Init(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer m.Shutdown(ctx)
//	m.PrintInfo()
package host
