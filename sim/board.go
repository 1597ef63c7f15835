package sim

import (
	"fmt"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/platform"
)

// Topology limits of the simulated fabric.
const (
	MaxBus      = 2
	MaxDevice   = 32
	MaxFunction = 8
)

// Board is a simulated BCM2711 PCIe subsystem.
//
// It implements [mmio.Bus] over absolute physical addresses and places
// three kinds of device on its address map: the PCIe controller registers
// (link training and the indexed configuration access pair), the
// memory-mapped configuration window, and any number of XHCI register
// windows. Every address outside those windows reads as all-ones.
type Board struct {
	mux mmio.Mux
	cfg platform.Config

	mu        sync.Mutex
	functions [MaxBus][MaxDevice][MaxFunction]*Function

	// LinkDelay is the number of status reads after the controller is
	// enabled before the link reports up.
	LinkDelay int

	// LinkNeverUp keeps the link down regardless of enablement.
	LinkNeverUp bool

	ctrl        uint32
	index       uint32
	statusReads int
	regs        map[uint64]uint32

	accesses int
}

// NewBoard returns a board with the controller and configuration windows
// placed where cfg says and no functions attached.
func NewBoard(cfg platform.Config) (*Board, error) {
	b := &Board{cfg: cfg, regs: make(map[uint64]uint32)}

	if err := b.mux.Attach(cfg.PCIeBase, cfg.PCIeSize, mmio.BusFunc{
		ReadFunc:  b.readController,
		WriteFunc: b.writeController,
	}); err != nil {
		return nil, errors.Wrap(err, "attach controller")
	}
	if cfg.ECAMSize > 0 {
		if err := b.mux.Attach(cfg.ECAMBase, cfg.ECAMSize, mmio.BusFunc{
			ReadFunc:  b.readECAM,
			WriteFunc: b.writeECAM,
		}); err != nil {
			return nil, errors.Wrap(err, "attach configuration window")
		}
	}

	pkg.LogDebug(pkg.ComponentSim, "board created",
		"controller", fmt.Sprintf("%#x", cfg.PCIeBase),
		"ecam", fmt.Sprintf("%#x", cfg.ECAMBase))
	return b, nil
}

// AddFunction places f at the given configuration address.
func (b *Board) AddFunction(bus, dev, fn uint8, f *Function) error {
	if int(bus) >= MaxBus || int(dev) >= MaxDevice || int(fn) >= MaxFunction || f == nil {
		return errors.Wrapf(pkg.ErrInvalidParameter, "function %02x:%02x.%d", bus, dev, fn)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.functions[bus][dev][fn] = f
	return nil
}

// AttachXHCI places a controller model's register window at base.
func (b *Board) AttachXHCI(base uint64, x *XHCI) error {
	return b.mux.Attach(base, XHCIWindowSize, x)
}

// Attach places an arbitrary device window on the address map.
func (b *Board) Attach(base, size uint64, dev mmio.Bus) error {
	return b.mux.Attach(base, size, dev)
}

// Accesses returns the number of bus reads and writes performed.
func (b *Board) Accesses() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accesses
}

// LinkEnabled reports whether the controller enable bit has been written.
func (b *Board) LinkEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl&platform.PCIeCtrlEnable != 0
}

// Read32 implements [mmio.Bus].
func (b *Board) Read32(addr uint64) uint32 {
	b.mu.Lock()
	b.accesses++
	b.mu.Unlock()
	return b.mux.Read32(addr)
}

// Write32 implements [mmio.Bus].
func (b *Board) Write32(addr uint64, value uint32) {
	b.mu.Lock()
	b.accesses++
	b.mu.Unlock()
	b.mux.Write32(addr, value)
}

func (b *Board) function(bus, dev, fn uint32) *Function {
	if bus >= MaxBus || dev >= MaxDevice || fn >= MaxFunction {
		return nil
	}
	return b.functions[bus][dev][fn]
}

// decode splits a configuration address laid out as
// bus<<20 | device<<15 | function<<12 | offset.
func decode(a uint64) (bus, dev, fn uint32, off uint64) {
	return uint32(a>>20) & 0xFF, uint32(a>>15) & 0x1F, uint32(a>>12) & 0x7, a & 0xFFF
}

func (b *Board) configRead(a uint64) uint32 {
	bus, dev, fn, off := decode(a)
	b.mu.Lock()
	f := b.function(bus, dev, fn)
	b.mu.Unlock()
	if f == nil {
		return mmio.AllOnes
	}
	return f.Read32(off &^ 3)
}

func (b *Board) configWrite(a uint64, value uint32) {
	bus, dev, fn, off := decode(a)
	b.mu.Lock()
	f := b.function(bus, dev, fn)
	b.mu.Unlock()
	if f != nil {
		f.Write32(off&^3, value)
	}
}

func (b *Board) readController(off uint64) uint32 {
	if off == platform.RegExtCfgData {
		b.mu.Lock()
		index := b.index
		b.mu.Unlock()
		return b.configRead(uint64(index))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch off {
	case platform.RegPCIeCtrl:
		return b.ctrl
	case platform.RegPCIeStatus:
		if b.ctrl&platform.PCIeCtrlEnable == 0 || b.LinkNeverUp {
			return 0
		}
		b.statusReads++
		if b.statusReads > b.LinkDelay {
			return platform.PCIeStatusLinkUp
		}
		return 0
	case platform.RegExtCfgIndex:
		return b.index
	}
	return b.regs[off&^3]
}

func (b *Board) writeController(off uint64, value uint32) {
	if off == platform.RegExtCfgData {
		b.mu.Lock()
		index := b.index
		b.mu.Unlock()
		b.configWrite(uint64(index), value)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch off {
	case platform.RegPCIeCtrl:
		if value&platform.PCIeCtrlEnable == 0 {
			b.statusReads = 0
		}
		b.ctrl = value
	case platform.RegPCIeStatus:
	case platform.RegExtCfgIndex:
		b.index = value
	default:
		b.regs[off&^3] = value
	}
}

func (b *Board) readECAM(off uint64) uint32 {
	return b.configRead(off)
}

func (b *Board) writeECAM(off uint64, value uint32) {
	b.configWrite(off, value)
}
