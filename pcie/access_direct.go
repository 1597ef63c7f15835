package pcie

import (
	"context"
	"fmt"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/pkg/retry"
	"github.com/ardnew/softxhci/platform"
)

// DirectAccess reaches configuration space through the BCM2711
// controller's index/data register pair.
//
// Setup enables the controller and waits for the link to train. A link
// that never comes up is an error. Only bus 0 is scanned, starting at
// device 0.
type DirectAccess struct {
	regs   *mmio.Region
	budget retry.Budget
}

// NewDirectAccess returns a direct accessor for the controller described
// by cfg.
func NewDirectAccess(bus mmio.Bus, cfg platform.Config) (*DirectAccess, error) {
	regs, err := mmio.NewRegion(bus, cfg.PCIeBase, cfg.PCIeSize)
	if err != nil {
		return nil, errors.Wrap(err, "controller window")
	}
	return &DirectAccess{regs: regs, budget: cfg.Budget()}, nil
}

// Setup implements [ConfigAccessor].
func (d *DirectAccess) Setup(ctx context.Context) (bool, error) {
	d.regs.Write32(platform.RegPCIeCtrl, platform.PCIeCtrlEnable)

	err := retry.Until(ctx, d.budget, func() bool {
		return d.regs.Read32(platform.RegPCIeStatus)&platform.PCIeStatusLinkUp != 0
	})
	if err != nil {
		pkg.LogWarn(pkg.ComponentPCIe, "link never came up",
			"base", fmt.Sprintf("%#x", d.regs.Base()), "error", err)
		return false, errors.Wrap(err, "pcie link up")
	}

	pkg.LogDebug(pkg.ComponentPCIe, "link up", "base", fmt.Sprintf("%#x", d.regs.Base()))
	return true, nil
}

// Read32 implements [ConfigAccessor].
func (d *DirectAccess) Read32(a Address, off uint8) uint32 {
	if !d.Policy().reachable(a) {
		return mmio.AllOnes
	}
	d.regs.Write32(platform.RegExtCfgIndex, uint32(a.ConfigOffset(off&^3)))
	return d.regs.Read32(platform.RegExtCfgData)
}

// Write32 implements [ConfigAccessor].
func (d *DirectAccess) Write32(a Address, off uint8, value uint32) {
	if !d.Policy().reachable(a) {
		return
	}
	d.regs.Write32(platform.RegExtCfgIndex, uint32(a.ConfigOffset(off&^3)))
	d.regs.Write32(platform.RegExtCfgData, value)
}

// Policy implements [ConfigAccessor].
func (d *DirectAccess) Policy() ScanPolicy {
	return ScanPolicy{Buses: 1}
}
