package mmio

import (
	"sync/atomic"
	"unsafe"
)

// Physical accesses registers by dereferencing absolute physical
// addresses. It is only meaningful when running without an MMU mapping in
// the way, such as on bare metal with identity-mapped device memory.
//
// Physical performs no validation. Wrap it in a [Region] before use.
type Physical struct{}

// Read32 implements [Bus].
func (Physical) Read32(addr uint64) uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(uintptr(addr))))
}

// Write32 implements [Bus].
func (Physical) Write32(addr uint64, value uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), value)
}
