package platform

import (
	"fmt"
	"strings"
	"time"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/pkg/retry"
)

// BCM2711 PCIe controller window on the Raspberry Pi 4.
const (
	BCM2711PCIeBase = 0xFD500000
	BCM2711PCIeSize = 0x10000

	// BCM2711ECAMBase is the CPU address of the outbound PCIe window used
	// for memory-mapped configuration access.
	BCM2711ECAMBase = 0x600000000
	BCM2711ECAMSize = 0x200000 // buses 0 and 1
)

// BCM2711 controller register offsets, relative to the controller base.
const (
	RegRCVendorSpecific1 = 0x188C
	RegRCPriv1IDVal3     = 0x043C
	RegMemWin0Lo         = 0x400C
	RegMemWin0Hi         = 0x4010
	RegRCBar1ConfigLo    = 0x402C
	RegRCBar2ConfigLo    = 0x4034
	RegRCBar2ConfigHi    = 0x4038
	RegRCBar3ConfigLo    = 0x403C
	RegMSIBarConfigLo    = 0x4044
	RegMSIBarConfigHi    = 0x4048
	RegMSIDataConfig     = 0x404C
	RegPCIeCtrl          = 0x4064 // write 1 to enable the controller
	RegPCIeStatus        = 0x4068 // bit 0: link up
	RegRevision          = 0x406C
	RegMemWin0BaseLimit  = 0x4070
	RegMemWin0BaseHi     = 0x4080
	RegMemWin0LimitHi    = 0x4084
	RegHardDebug         = 0x4204
	RegMSIIntr2Clr       = 0x4508
	RegMSIIntr2MaskSet   = 0x4510
	RegMSIIntr2MaskClr   = 0x4514
	RegExtCfgData        = 0x8000
	RegExtCfgIndex       = 0x9000
)

// Controller register bits.
const (
	PCIeCtrlEnable   = 1 << 0
	PCIeStatusLinkUp = 1 << 0
)

// DefaultXHCIWindow is the size of the XHCI register window mapped from
// BAR0.
const DefaultXHCIWindow = 0x10000

// Variant selects the PCIe configuration access strategy.
type Variant uint8

// Configuration access variants.
const (
	// VariantSafe reads configuration space through the ECAM window and
	// treats an absent bridge as a valid, empty system.
	VariantSafe Variant = iota

	// VariantDirect drives the controller's index/data register pair and
	// waits for link-up; a link that never trains is an error.
	VariantDirect
)

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantSafe:
		return "safe"
	case VariantDirect:
		return "direct"
	default:
		return fmt.Sprintf("Variant(%d)", v)
	}
}

// ParseVariant returns the variant named s.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "safe":
		return VariantSafe, nil
	case "direct":
		return VariantDirect, nil
	default:
		return 0, errors.Wrapf(pkg.ErrInvalidParameter, "unknown access variant %q", s)
	}
}

// Config holds the platform constants the bring-up core depends on.
type Config struct {
	// PCIeBase and PCIeSize locate the PCIe controller registers.
	PCIeBase uint64
	PCIeSize uint64

	// ECAMBase and ECAMSize locate the memory-mapped configuration window.
	ECAMBase uint64
	ECAMSize uint64

	// XHCIWindow is the number of bytes mapped from the XHCI BAR.
	XHCIWindow uint64

	// Variant selects the configuration access strategy.
	Variant Variant

	// Poll limits applied to every register handshake.
	PollAttempts int
	PollInterval time.Duration
	PollTimeout  time.Duration
}

// RPi4 returns the Raspberry Pi 4 defaults.
func RPi4() Config {
	return Config{
		PCIeBase:     BCM2711PCIeBase,
		PCIeSize:     BCM2711PCIeSize,
		ECAMBase:     BCM2711ECAMBase,
		ECAMSize:     BCM2711ECAMSize,
		XHCIWindow:   DefaultXHCIWindow,
		Variant:      VariantSafe,
		PollAttempts: retry.DefaultAttempts,
		PollInterval: retry.DefaultInterval,
	}
}

// Budget returns the poll budget described by the configuration.
func (c Config) Budget() retry.Budget {
	return retry.Budget{
		Attempts: c.PollAttempts,
		Interval: c.PollInterval,
		Timeout:  c.PollTimeout,
	}
}

// Validate checks the configuration for values no platform can use.
func (c Config) Validate() error {
	if c.PCIeSize < RegExtCfgIndex+4 {
		return errors.Wrapf(pkg.ErrInvalidParameter,
			"controller window %#x too small", c.PCIeSize)
	}
	if c.Variant == VariantSafe && c.ECAMSize < 1<<20 {
		return errors.Wrapf(pkg.ErrInvalidParameter,
			"ECAM window %#x smaller than one bus", c.ECAMSize)
	}
	if c.XHCIWindow == 0 {
		return errors.Wrap(pkg.ErrInvalidParameter, "empty XHCI window")
	}
	if c.Variant > VariantDirect {
		return errors.Wrapf(pkg.ErrInvalidParameter, "access variant %s", c.Variant)
	}
	if !c.Budget().Valid() {
		return errors.Wrapf(pkg.ErrInvalidParameter, "poll budget %+v", c.Budget())
	}
	return nil
}
