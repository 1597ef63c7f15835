package xhci

import (
	"context"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pcie"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/pkg/retry"
	"github.com/ardnew/softxhci/platform"
)

// Fabric is the view of an enumerated PCIe bus the controller needs to
// locate and enable its function. [*pcie.Bus] implements it.
type Fabric interface {
	DeviceCount() int
	Device(i int) *pcie.Device
	ReadConfig32(d *pcie.Device, off uint8) uint32
	WriteConfig32(d *pcie.Device, off uint8, value uint32)
}

// Info is the capability snapshot taken by Init.
type Info struct {
	// Function is the PCIe function the controller was found at.
	Function pcie.Device

	// MMIOBase is the physical address decoded from BAR0. Capability
	// registers start here and operational registers start CapLength
	// bytes later.
	MMIOBase  uint64
	CapLength uint8

	HCIVersion        uint16
	MaxSlots          uint8
	MaxInterrupters   uint16
	MaxPorts          uint8
	MaxScratchpadBufs uint16

	// ContextSize is the device context size in bytes, 32 or 64.
	ContextSize int

	// RuntimeOffset and DoorbellOffset locate the runtime and doorbell
	// register arrays relative to MMIOBase. Nothing programs them yet.
	RuntimeOffset  uint32
	DoorbellOffset uint32
}

// OperationalBase returns the physical address of the operational
// registers.
func (i Info) OperationalBase() uint64 { return i.MMIOBase + uint64(i.CapLength) }

// Controller drives one XHCI host controller through its lifecycle.
//
// Every register sequence runs under the controller mutex, so a reset can
// never interleave with a start or stop on the same controller.
type Controller struct {
	mu sync.Mutex

	fabric Fabric
	bus    mmio.Bus
	window uint64
	budget retry.Budget

	state State
	info  Info
	op    *mmio.Region
}

// New returns an uninitialized controller that will locate its function
// on fabric and access registers through bus, using the register window
// size and poll budget from cfg.
func New(fabric Fabric, bus mmio.Bus, cfg platform.Config) *Controller {
	return &Controller{
		fabric: fabric,
		bus:    bus,
		window: cfg.XHCIWindow,
		budget: cfg.Budget(),
	}
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Initialized reports whether Init has succeeded.
func (c *Controller) Initialized() bool {
	return c.State() != StateUninitialized
}

// Info returns the capability snapshot. It reports false before Init
// succeeds.
func (c *Controller) Info() (Info, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUninitialized {
		return Info{}, false
	}
	return c.info, true
}

// NumPorts returns the root hub port count, or 0 before Init succeeds.
func (c *Controller) NumPorts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateUninitialized {
		return 0
	}
	return int(c.info.MaxPorts)
}

// Init locates the XHCI function, enables it, reads its capabilities,
// resets it and programs the enabled slot count. Calling Init on an
// initialized controller does nothing.
func (c *Controller) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateUninitialized {
		return nil
	}
	if c.fabric == nil || c.bus == nil {
		return errors.Wrap(pkg.ErrInvalidParameter, "controller has no fabric or bus")
	}

	dev := c.find()
	if dev == nil {
		pkg.LogWarn(pkg.ComponentXHCI, "no XHCI function found")
		return errors.Wrap(pkg.ErrNoDevice, "no XHCI function")
	}

	bar := dev.BAR(0)
	if bar.IsIO() {
		pkg.LogWarn(pkg.ComponentXHCI, "BAR0 is an I/O BAR", "address", dev.Address, "bar", bar)
		return errors.Wrapf(pkg.ErrNotSupported, "%s: I/O BAR0 %s", dev.Address, bar)
	}
	base, ok := dev.MemBase(0)
	if !ok {
		return errors.Wrapf(pkg.ErrNotSupported, "%s: BAR0 %s", dev.Address, bar)
	}
	if base == 0 {
		return errors.Wrapf(pkg.ErrNoResources, "%s: BAR0 unassigned", dev.Address)
	}

	cmd := c.fabric.ReadConfig32(dev, pcie.RegCommand)
	c.fabric.WriteConfig32(dev, pcie.RegCommand, cmd&0xFFFF|pcie.CommandMemory|pcie.CommandBusMaster)

	capRegs, err := mmio.NewRegion(c.bus, base, c.window)
	if err != nil {
		return errors.Wrapf(err, "%s: map registers at %#x", dev.Address, base)
	}
	if !capRegs.Probe(CapLength) {
		pkg.LogWarn(pkg.ComponentXHCI, "registers not responding", "base", base)
		return errors.Wrapf(pkg.ErrNoDevice, "%s: no registers at %#x", dev.Address, base)
	}

	info := Info{
		Function:   *dev,
		MMIOBase:   base,
		CapLength:  capRegs.Read8(CapLength),
		HCIVersion: capRegs.Read16(CapHCIVersion),
	}
	if uint64(info.CapLength) < CapRTSOff+4 || uint64(info.CapLength)&0x3 != 0 {
		return errors.Wrapf(pkg.ErrNotSupported, "capability length %#x", info.CapLength)
	}
	opRegs, err := capRegs.Sub(uint64(info.CapLength), c.window-uint64(info.CapLength))
	if err != nil {
		return errors.Wrap(err, "operational registers")
	}

	info.MaxSlots, info.MaxInterrupters, info.MaxPorts = hcsParams1(capRegs.Read32(CapHCSParams1))
	info.MaxScratchpadBufs = scratchpadBufs(capRegs.Read32(CapHCSParams2))
	info.ContextSize = contextSize(capRegs.Read32(CapHCCParams1))
	info.DoorbellOffset = capRegs.Read32(CapDBOff) &^ 0x3
	info.RuntimeOffset = capRegs.Read32(CapRTSOff) &^ 0x1F

	pkg.LogDebug(pkg.ComponentXHCI, "capabilities",
		"address", dev.Address,
		"base", base,
		"version", info.HCIVersion,
		"slots", info.MaxSlots,
		"interrupters", info.MaxInterrupters,
		"ports", info.MaxPorts,
		"scratchpad", info.MaxScratchpadBufs,
		"context", info.ContextSize)

	if err := reset(ctx, opRegs, c.budget); err != nil {
		pkg.LogWarn(pkg.ComponentXHCI, "reset failed", "error", err)
		return err
	}

	// Scratchpad buffers are counted but not allocated.
	opRegs.Modify32(OpConfig, ConfigMaxSlotsMask, uint32(info.MaxSlots))

	c.op, c.info = opRegs, info
	c.state = StateInitialized
	pkg.LogInfo(pkg.ComponentXHCI, "controller initialized",
		"address", dev.Address, "base", base, "ports", info.MaxPorts)
	return nil
}

// find returns the first enumerated XHCI function.
func (c *Controller) find() *pcie.Device {
	for i := range c.fabric.DeviceCount() {
		if d := c.fabric.Device(i); d != nil && d.IsXHCI() {
			return d
		}
	}
	return nil
}

// reset halts the controller, issues a host controller reset and waits
// for it to become ready.
func reset(ctx context.Context, op *mmio.Region, budget retry.Budget) error {
	op.Modify32(OpUSBCmd, CmdRun, 0)
	if err := retry.Until(ctx, budget, func() bool {
		return op.Read32(OpUSBSts)&StsHalted != 0
	}); err != nil {
		return errors.Wrap(err, "halt")
	}

	op.Modify32(OpUSBCmd, 0, CmdReset)
	if err := retry.Until(ctx, budget, func() bool {
		return op.Read32(OpUSBCmd)&CmdReset == 0
	}); err != nil {
		return errors.Wrap(err, "reset")
	}

	if err := retry.Until(ctx, budget, func() bool {
		return op.Read32(OpUSBSts)&StsNotReady == 0
	}); err != nil {
		return errors.Wrap(err, "controller not ready")
	}

	pkg.LogDebug(pkg.ComponentXHCI, "controller reset")
	return nil
}

// Start sets the controller running with interrupts enabled. It requires
// an initialized or stopped controller and does not touch any register
// otherwise. On timeout the state is unchanged.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.canStart() {
		return errors.Wrapf(pkg.ErrInvalidState, "start while %s", c.state)
	}

	c.op.Modify32(OpUSBCmd, 0, CmdRun|CmdInterruptEnable)
	if err := retry.Until(ctx, c.budget, func() bool {
		return c.op.Read32(OpUSBSts)&StsHalted == 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentXHCI, "controller did not start", "error", err)
		return errors.Wrap(err, "start")
	}

	c.state = StateRunning
	pkg.LogInfo(pkg.ComponentXHCI, "controller running")
	return nil
}

// Stop halts a running controller. It requires a running controller. On
// timeout the state stays Running even though the hardware may be left
// partially halted.
func (c *Controller) Stop(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning {
		return errors.Wrapf(pkg.ErrInvalidState, "stop while %s", c.state)
	}

	c.op.Modify32(OpUSBCmd, CmdRun, 0)
	if err := retry.Until(ctx, c.budget, func() bool {
		return c.op.Read32(OpUSBSts)&StsHalted != 0
	}); err != nil {
		pkg.LogWarn(pkg.ComponentXHCI, "controller did not halt", "error", err)
		return errors.Wrap(err, "stop")
	}

	c.state = StateStopped
	pkg.LogInfo(pkg.ComponentXHCI, "controller stopped")
	return nil
}

// Status returns the USBSTS register, or the all-ones sentinel before
// Init succeeds.
func (c *Controller) Status() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.op == nil {
		return mmio.AllOnes
	}
	return c.op.Read32(OpUSBSts)
}

// SetupRings would allocate the device context base address array, the
// command ring and the primary event ring. There is no DMA-safe allocator
// to back them, so it always fails.
func (c *Controller) SetupRings(context.Context) error {
	return errors.Wrap(pkg.ErrNotSupported, "command and event rings")
}
