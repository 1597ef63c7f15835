// Package mmio provides memory-mapped register access.
//
// A [Bus] performs single 32-bit loads and stores at absolute physical
// addresses. 64-bit registers are composed from two 32-bit accesses, low
// word first ([Read64], [Write64]). [Probe] is a heuristic presence test:
// an all-ones read is taken to mean nothing is mapped at the address.
//
// Drivers never use a Bus directly. They construct a [Region] once from a
// validated base and size and address registers by offset:
//
//	regs, err := mmio.NewRegion(bus, 0xFD500000, 0x10000)
//	if err != nil {
//	    return err
//	}
//	status := regs.Read32(0x4068)
//
// # Bus Implementations
//
//   - [Physical]: direct loads and stores, for bare metal
//   - [DevMem]: a /dev/mem mapping, for hosted Linux
//   - [Memory]: sparse simulated memory with explicit mapped ranges
//   - [Mux]: routes address windows to attached devices
package mmio
