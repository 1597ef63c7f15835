package xhci

// Capability register offsets, relative to the MMIO base.
const (
	CapLength     = 0x00 // byte
	CapHCIVersion = 0x02 // halfword
	CapHCSParams1 = 0x04
	CapHCSParams2 = 0x08
	CapHCSParams3 = 0x0C
	CapHCCParams1 = 0x10
	CapDBOff      = 0x14
	CapRTSOff     = 0x18
)

// Operational register offsets, relative to MMIO base + CAPLENGTH.
const (
	OpUSBCmd   = 0x00
	OpUSBSts   = 0x04
	OpPageSize = 0x08
	OpDNCtrl   = 0x14
	OpCRCR     = 0x18 // 64-bit
	OpDCBAAP   = 0x30 // 64-bit
	OpConfig   = 0x38
)

// USBCMD bits.
const (
	CmdRun                   = 1 << 0
	CmdReset                 = 1 << 1
	CmdInterruptEnable       = 1 << 2
	CmdHostSystemErrorEnable = 1 << 3
)

// USBSTS bits.
const (
	StsHalted              = 1 << 0
	StsHostSystemError     = 1 << 2
	StsEventInterrupt      = 1 << 3
	StsPortChangeDetect    = 1 << 4
	StsNotReady            = 1 << 11
	StsHostControllerError = 1 << 12
)

// HCCPARAMS1 bits.
const (
	HCCContextSize = 1 << 2 // 64-byte contexts
)

// CONFIG fields.
const (
	ConfigMaxSlotsMask = 0xFF
)

// hcsParams1 decodes HCSPARAMS1.
func hcsParams1(v uint32) (slots uint8, intrs uint16, ports uint8) {
	return uint8(v), uint16(v>>8) & 0x7FF, uint8(v >> 24)
}

// scratchpadBufs decodes the scratchpad buffer count from HCSPARAMS2: the
// high five bits live in 25:21 and the low five bits in 31:27.
func scratchpadBufs(v uint32) uint16 {
	hi := uint16(v>>21) & 0x1F
	lo := uint16(v>>27) & 0x1F
	return hi<<5 | lo
}

// contextSize decodes the device context size in bytes from HCCPARAMS1.
func contextSize(v uint32) int {
	if v&HCCContextSize != 0 {
		return 64
	}
	return 32
}
