package platform

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/efficientgo/core/errors"
	"github.com/platinasystems/fdt"

	"github.com/ardnew/softxhci/pkg"
)

// CompatibleBCM2711PCIe identifies the BCM2711 PCIe controller node.
const CompatibleBCM2711PCIe = "brcm,bcm2711-pcie"

const (
	fdtMagic      = 0xd00dfeed
	fdtHeaderSize = 40
)

// Default cell counts when a bus node does not declare its own.
const (
	defaultAddressCells = 2
	defaultSizeCells    = 1
)

// FromDeviceTree returns base with the PCIe controller window, and the
// outbound window used for configuration access, taken from the flattened
// device tree blob.
//
// The controller's reg and ranges properties are translated to CPU
// addresses through the ranges of every enclosing bus node.
func FromDeviceTree(blob []byte, base Config) (Config, error) {
	t, err := parseTree(blob)
	if err != nil {
		return base, err
	}

	var node *fdt.Node
	t.EachProperty("compatible", CompatibleBCM2711PCIe, func(n *fdt.Node, _, _ string) {
		if node == nil {
			node = n
		}
	})
	if node == nil {
		return base, errors.Wrapf(pkg.ErrNoDevice, "no %q node", CompatibleBCM2711PCIe)
	}

	path := pathTo(t.RootNode, node)
	if len(path) < 2 {
		return base, errors.Wrapf(pkg.ErrInvalidParameter, "controller node %q at root", node.Name)
	}
	ancestors := path[:len(path)-1]
	parentAC, parentSC := cells(ancestors[len(ancestors)-1])

	reg := decodeCells(node.Properties["reg"], parentAC+parentSC)
	if len(reg) == 0 {
		return base, errors.Wrapf(pkg.ErrInvalidParameter, "node %q has no reg", node.Name)
	}
	busAddr := join(reg[0][:parentAC])
	size := join(reg[0][parentAC:])

	cpuAddr, ok := translate(ancestors, busAddr)
	if !ok {
		return base, errors.Wrapf(pkg.ErrOutOfRange,
			"node %q reg %#x not translatable", node.Name, busAddr)
	}

	cfg := base
	cfg.PCIeBase = cpuAddr
	cfg.PCIeSize = size

	nodeAC, nodeSC := cells(node)
	if ranges := decodeCells(node.Properties["ranges"], nodeAC+parentAC+nodeSC); len(ranges) > 0 {
		parentAddr := join(ranges[0][nodeAC : nodeAC+parentAC])
		if ecam, ok := translate(ancestors, parentAddr); ok {
			cfg.ECAMBase = ecam
		} else {
			pkg.LogWarn(pkg.ComponentPlatform, "outbound window not translatable",
				"node", node.Name, "addr", fmt.Sprintf("%#x", parentAddr))
		}
	}

	pkg.LogInfo(pkg.ComponentPlatform, "controller from device tree",
		"node", node.Name,
		"base", fmt.Sprintf("%#x", cfg.PCIeBase),
		"size", fmt.Sprintf("%#x", cfg.PCIeSize),
		"ecam", fmt.Sprintf("%#x", cfg.ECAMBase))

	return cfg, nil
}

// FromDeviceTreeFile is like [FromDeviceTree] but reads the blob from a
// file.
func FromDeviceTreeFile(name string, base Config) (Config, error) {
	b, err := os.ReadFile(name)
	if err != nil {
		return base, errors.Wrapf(err, "read device tree")
	}
	return FromDeviceTree(b, base)
}

// parseTree validates the blob header and parses it. Malformed blobs that
// pass the header checks are reported as errors rather than panics.
func parseTree(blob []byte) (t *fdt.Tree, err error) {
	if len(blob) < fdtHeaderSize {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "device tree blob of %d bytes", len(blob))
	}
	if magic := binary.BigEndian.Uint32(blob); magic != fdtMagic {
		return nil, errors.Wrapf(pkg.ErrInvalidParameter, "device tree magic %#x", magic)
	}
	total := binary.BigEndian.Uint32(blob[4:])
	offStruct := binary.BigEndian.Uint32(blob[8:])
	offStrings := binary.BigEndian.Uint32(blob[12:])
	if int64(total) > int64(len(blob)) || offStruct >= total || offStrings >= total {
		return nil, errors.Wrapf(pkg.ErrOutOfRange,
			"device tree layout total=%#x struct=%#x strings=%#x", total, offStruct, offStrings)
	}

	defer func() {
		if r := recover(); r != nil {
			t, err = nil, errors.Wrapf(pkg.ErrInvalidParameter, "malformed device tree: %v", r)
		}
	}()

	t = &fdt.Tree{Debug: false, IsLittleEndian: false}
	t.Parse(blob[:total])
	if t.RootNode == nil {
		return nil, errors.Wrap(pkg.ErrInvalidParameter, "device tree has no balanced root node")
	}
	return t, nil
}

// pathTo returns the nodes from root down to target, inclusive.
func pathTo(root, target *fdt.Node) []*fdt.Node {
	if root == target {
		return []*fdt.Node{root}
	}
	for _, c := range root.Children {
		if p := pathTo(c, target); p != nil {
			return append([]*fdt.Node{root}, p...)
		}
	}
	return nil
}

// cells returns the #address-cells and #size-cells a bus node declares for
// its children.
func cells(n *fdt.Node) (addr, size int) {
	addr, size = defaultAddressCells, defaultSizeCells
	if v, ok := n.Properties["#address-cells"]; ok && len(v) == 4 {
		addr = int(binary.BigEndian.Uint32(v))
	}
	if v, ok := n.Properties["#size-cells"]; ok && len(v) == 4 {
		size = int(binary.BigEndian.Uint32(v))
	}
	return addr, size
}

// decodeCells splits a property value into entries of width cells each.
func decodeCells(b []byte, width int) [][]uint32 {
	if width <= 0 || len(b) < 4*width {
		return nil
	}
	entries := make([][]uint32, 0, len(b)/(4*width))
	for len(b) >= 4*width {
		e := make([]uint32, width)
		for i := range e {
			e[i] = binary.BigEndian.Uint32(b[4*i:])
		}
		entries = append(entries, e)
		b = b[4*width:]
	}
	return entries
}

// join combines up to the two least significant cells into one value. PCI
// addresses carry a leading flags cell, which is dropped.
func join(c []uint32) uint64 {
	var v uint64
	if len(c) > 2 {
		c = c[len(c)-2:]
	}
	for _, x := range c {
		v = v<<32 | uint64(x)
	}
	return v
}

// translate maps a bus address of a child of the last ancestor up to a CPU
// address. A bus with no ranges property is treated as identity mapped.
func translate(ancestors []*fdt.Node, addr uint64) (uint64, bool) {
	for i := len(ancestors) - 1; i > 0; i-- {
		bus, up := ancestors[i], ancestors[i-1]
		raw, ok := bus.Properties["ranges"]
		if !ok || len(raw) == 0 {
			continue
		}

		childAC, childSC := cells(bus)
		parentAC, _ := cells(up)
		found := false
		for _, e := range decodeCells(raw, childAC+parentAC+childSC) {
			child := join(e[:childAC])
			parent := join(e[childAC : childAC+parentAC])
			size := join(e[childAC+parentAC:])
			if addr >= child && addr-child < size {
				addr = parent + (addr - child)
				found = true
				break
			}
		}
		if !found {
			return 0, false
		}
	}
	return addr, true
}
