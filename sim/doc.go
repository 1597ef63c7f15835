// Package sim provides simulated hardware for exercising the bring-up core
// without a board.
//
// A [Board] is an [github.com/ardnew/softxhci/mmio.Bus] that models the
// BCM2711 PCIe controller, its configuration windows, and attached XHCI
// controllers. Configuration space is populated with [Function] images and
// controllers with [XHCI] register models:
//
//	board, _ := sim.NewBoard(platform.RPi4())
//	_ = board.AddFunction(0, 0, 0, sim.NewBridge(0x14E4, 0x2711))
//	_ = board.AddFunction(1, 0, 0, sim.NewFunction(0x1106, 0x3483, 0x0C, 0x03, 0x30).
//	    SetBAR(0, 0x60000000))
//	_ = board.AttachXHCI(0x60000000, sim.NewXHCI(4, 32))
//
// Fault switches on the models make individual register handshakes never
// complete, for exercising timeout paths.
package sim
