package sim

import (
	"sync"
)

// XHCI capability register offsets.
const (
	capLength     = 0x00 // CAPLENGTH (byte 0), HCIVERSION (bytes 2-3)
	capHCSParams1 = 0x04
	capHCSParams2 = 0x08
	capHCSParams3 = 0x0C
	capHCCParams1 = 0x10
	capDBOff      = 0x14
	capRTSOff     = 0x18
)

// XHCI operational register offsets, relative to CAPLENGTH.
const (
	opUSBCmd   = 0x00
	opUSBSts   = 0x04
	opPageSize = 0x08
	opDNCtrl   = 0x14
	opCRCRLo   = 0x18
	opCRCRHi   = 0x1C
	opDCBAAPLo = 0x30
	opDCBAAPHi = 0x34
	opConfig   = 0x38
)

// Register bits.
const (
	cmdRun   = 1 << 0
	cmdReset = 1 << 1

	stsHalted    = 1 << 0
	stsHostError = 1 << 2
	stsEvent     = 1 << 3
	stsPortChg   = 1 << 4
	stsNotReady  = 1 << 11

	hccContextSize = 1 << 2
)

// XHCIWindowSize is the register window a model occupies on the board.
const XHCIWindowSize = 0x10000

// XHCI models the register interface of an XHCI host controller.
//
// The model starts halted. Clearing the run bit halts it, setting the run
// bit runs it, and a reset self-clears and holds controller-not-ready for
// NotReadyReads status reads. The fault switches make individual
// handshakes never complete.
type XHCI struct {
	mu sync.Mutex

	// Capability parameters.
	CapLength     uint8
	Version       uint16
	MaxSlots      uint8
	MaxIntrs      uint16
	MaxPorts      uint8
	ScratchpadHi  uint8 // Max Scratchpad Bufs Hi, 5 bits
	ScratchpadLo  uint8 // Max Scratchpad Bufs Lo, 5 bits
	HCSParams3    uint32
	ContextSize64 bool
	DBOff         uint32
	RTSOff        uint32

	// NotReadyReads is the number of status reads after a reset during
	// which controller-not-ready stays set.
	NotReadyReads int

	// Fault switches.
	NeverHalts    bool // clearing run never sets halted
	NeverRuns     bool // setting run never clears halted
	ResetStuck    bool // the reset bit never self-clears
	NotReadyStuck bool // controller-not-ready never clears

	usbcmd   uint32
	usbsts   uint32
	dnctrl   uint32
	config   uint32
	crcr     uint64
	dcbaap   uint64
	notReady int

	accesses int
	resets   int
}

// NewXHCI returns a halted controller with the given root hub port and
// device slot counts and conventional defaults for everything else.
func NewXHCI(ports, slots uint8) *XHCI {
	return &XHCI{
		CapLength:     0x20,
		Version:       0x0100,
		MaxSlots:      slots,
		MaxIntrs:      1,
		MaxPorts:      ports,
		DBOff:         0x800,
		RTSOff:        0x600,
		NotReadyReads: 2,
		usbsts:        stsHalted,
	}
}

func (x *XHCI) opBase() uint64 { return uint64(x.CapLength) }

// Read32 returns the register at window offset off.
func (x *XHCI) Read32(off uint64) uint32 {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.accesses++

	switch off {
	case capLength:
		return uint32(x.Version)<<16 | uint32(x.CapLength)
	case capHCSParams1:
		return uint32(x.MaxPorts)<<24 | uint32(x.MaxIntrs&0x7FF)<<8 | uint32(x.MaxSlots)
	case capHCSParams2:
		return uint32(x.ScratchpadLo&0x1F)<<27 | uint32(x.ScratchpadHi&0x1F)<<21
	case capHCSParams3:
		return x.HCSParams3
	case capHCCParams1:
		if x.ContextSize64 {
			return hccContextSize
		}
		return 0
	case capDBOff:
		return x.DBOff
	case capRTSOff:
		return x.RTSOff
	}

	if off < x.opBase() {
		return 0
	}
	switch off - x.opBase() {
	case opUSBCmd:
		return x.usbcmd
	case opUSBSts:
		sts := x.usbsts
		if x.NotReadyStuck || x.notReady > 0 {
			sts |= stsNotReady
		}
		if x.notReady > 0 {
			x.notReady--
		}
		return sts
	case opPageSize:
		return 1 // 4 KiB
	case opDNCtrl:
		return x.dnctrl
	case opCRCRLo:
		return uint32(x.crcr)
	case opCRCRHi:
		return uint32(x.crcr >> 32)
	case opDCBAAPLo:
		return uint32(x.dcbaap)
	case opDCBAAPHi:
		return uint32(x.dcbaap >> 32)
	case opConfig:
		return x.config
	}
	return 0
}

// Write32 writes the register at window offset off.
func (x *XHCI) Write32(off uint64, value uint32) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.accesses++

	if off < x.opBase() {
		return
	}
	switch off - x.opBase() {
	case opUSBCmd:
		x.command(value)
	case opUSBSts:
		x.usbsts &^= value & (stsHostError | stsEvent | stsPortChg)
	case opDNCtrl:
		x.dnctrl = value
	case opCRCRLo:
		x.crcr = x.crcr&^0xFFFFFFFF | uint64(value)
	case opCRCRHi:
		x.crcr = x.crcr&0xFFFFFFFF | uint64(value)<<32
	case opDCBAAPLo:
		x.dcbaap = x.dcbaap&^0xFFFFFFFF | uint64(value)
	case opDCBAAPHi:
		x.dcbaap = x.dcbaap&0xFFFFFFFF | uint64(value)<<32
	case opConfig:
		x.config = value
	}
}

func (x *XHCI) command(value uint32) {
	if value&cmdReset != 0 {
		x.resets++
		if x.ResetStuck {
			x.usbcmd = value
			return
		}
		x.usbcmd = 0
		x.usbsts = stsHalted
		x.dnctrl = 0
		x.config = 0
		x.crcr = 0
		x.dcbaap = 0
		x.notReady = x.NotReadyReads
		return
	}

	x.usbcmd = value
	if value&cmdRun != 0 {
		if !x.NeverRuns {
			x.usbsts &^= stsHalted
		}
	} else if !x.NeverHalts {
		x.usbsts |= stsHalted
	}
}

// ForceRunning puts the controller in the running state, as firmware that
// handed over a live controller would.
func (x *XHCI) ForceRunning() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.usbcmd |= cmdRun
	x.usbsts &^= stsHalted
}

// Running reports whether the controller is executing its schedule.
func (x *XHCI) Running() bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.usbsts&stsHalted == 0
}

// Command returns the USBCMD register.
func (x *XHCI) Command() uint32 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.usbcmd
}

// Config returns the CONFIG register.
func (x *XHCI) Config() uint32 {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.config
}

// Resets returns the number of reset commands received.
func (x *XHCI) Resets() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.resets
}

// Accesses returns the number of register reads and writes performed.
func (x *XHCI) Accesses() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.accesses
}
