//go:build linux

package mmio

import (
	"os"
	"sync/atomic"
	"syscall"
	"unsafe"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
)

// DevMemPath is the physical memory device opened by [OpenDevMem].
var DevMemPath = "/dev/mem"

// DevMem is a [Bus] backed by a shared mapping of a physical address
// window through /dev/mem. Addresses are absolute; accesses outside the
// mapped window read as [AllOnes] and ignore writes.
type DevMem struct {
	base uint64
	size uint64
	mem  []byte
	file *os.File
}

// OpenDevMem maps size bytes of physical memory starting at base. The base
// is rounded down to a page boundary for the mapping.
func OpenDevMem(base, size uint64) (*DevMem, error) {
	if size == 0 {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "empty window at %#x", base)
	}

	f, err := os.OpenFile(DevMemPath, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", DevMemPath)
	}

	page := uint64(os.Getpagesize())
	start := base &^ (page - 1)
	length := (base - start + size + page - 1) &^ (page - 1)

	mem, err := syscall.Mmap(int(f.Fd()), int64(start), int(length),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "mmap %#x+%#x", start, length)
	}

	pkg.LogDebug(pkg.ComponentMMIO, "mapped physical window",
		"base", base, "size", size, "page_base", start)

	return &DevMem{base: start, size: length, mem: mem, file: f}, nil
}

// Close unmaps the window and closes the device.
func (d *DevMem) Close() error {
	if d.mem == nil {
		return nil
	}
	err := syscall.Munmap(d.mem)
	d.mem = nil
	if cerr := d.file.Close(); err == nil {
		err = cerr
	}
	return err
}

func (d *DevMem) word(addr uint64) *uint32 {
	if d.mem == nil || addr&3 != 0 || addr < d.base || addr-d.base > d.size-4 {
		return nil
	}
	return (*uint32)(unsafe.Pointer(&d.mem[addr-d.base]))
}

// Read32 implements [Bus].
func (d *DevMem) Read32(addr uint64) uint32 {
	p := d.word(addr)
	if p == nil {
		return AllOnes
	}
	return atomic.LoadUint32(p)
}

// Write32 implements [Bus].
func (d *DevMem) Write32(addr uint64, value uint32) {
	p := d.word(addr)
	if p == nil {
		return
	}
	atomic.StoreUint32(p, value)
}
