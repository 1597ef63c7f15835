package pcie

import (
	"context"
	"fmt"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/pkg"
)

// Bus owns the device table built by scanning configuration space through
// a [ConfigAccessor].
//
// The table has a fixed capacity of [MaxDevices]; functions discovered
// after it fills are dropped silently. Only the first DeviceCount entries
// are valid.
type Bus struct {
	mu sync.RWMutex

	access      ConfigAccessor
	devices     [MaxDevices]Device
	count       int
	initialized bool
	present     bool
}

// NewBus returns an uninitialized bus over access.
func NewBus(access ConfigAccessor) *Bus {
	return &Bus{access: access}
}

// Init brings up the root complex and scans configuration space. It is
// idempotent: once it has succeeded, later calls return nil without
// rescanning.
//
// A fabric reported absent by the accessor is not an error; the bus is
// initialized with no devices. Init fails only when the accessor's setup
// fails, such as a link that never trains.
func (b *Bus) Init(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}
	return b.initLocked(ctx)
}

// Rescan discards the device table and repeats bring-up and scan.
func (b *Bus) Rescan(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.initialized = false
	return b.initLocked(ctx)
}

func (b *Bus) initLocked(ctx context.Context) error {
	if b.access == nil {
		return errors.Wrap(pkg.ErrInvalidParameter, "nil configuration accessor")
	}

	b.count = 0
	b.present = false

	present, err := b.access.Setup(ctx)
	if err != nil {
		return errors.Wrap(err, "pcie bring-up")
	}

	if present {
		b.present = true
		b.scanLocked()
	}

	b.initialized = true
	pkg.LogInfo(pkg.ComponentPCIe, "pcie initialized",
		"present", present, "devices", b.count)
	return nil
}

func (b *Bus) scanLocked() {
	policy := b.access.Policy()
	for bus := 0; bus < policy.Buses; bus++ {
		first := uint8(0)
		if bus == 0 {
			first = policy.FirstDevice
		}
		for dev := first; dev < MaxSlot; dev++ {
			if !b.scanSlotLocked(policy, uint8(bus), dev) {
				pkg.LogWarn(pkg.ComponentPCIe, "device table full", "capacity", MaxDevices)
				return
			}
		}
	}
}

// scanSlotLocked probes every function of one device. It returns false
// once the table is full.
func (b *Bus) scanSlotLocked(policy ScanPolicy, bus, dev uint8) bool {
	for fn := uint8(0); fn < MaxFunction; fn++ {
		a := Address{Bus: bus, Device: dev, Function: fn}
		vendor := read16(b.access, a, RegVendorID)

		if policy.Absent(vendor) {
			if fn == 0 {
				// no function 0 means no device
				return true
			}
			continue
		}

		if b.count >= MaxDevices {
			return false
		}
		d := &b.devices[b.count]
		b.probeLocked(d, a, vendor)
		b.count++

		pkg.LogDebug(pkg.ComponentPCIe, "function found",
			"addr", a.String(),
			"id", fmt.Sprintf("%04x:%04x", d.VendorID, d.DeviceID),
			"class", fmt.Sprintf("%04x", d.ClassCode),
			"prog_if", fmt.Sprintf("%02x", d.ProgIF))

		if fn == 0 && !d.MultiFunction() {
			return true
		}
	}
	return true
}

func (b *Bus) probeLocked(d *Device, a Address, vendor uint16) {
	*d = Device{
		Address:    a,
		VendorID:   vendor,
		DeviceID:   read16(b.access, a, RegDeviceID),
		ClassCode:  read16(b.access, a, RegSubclass),
		Subclass:   read8(b.access, a, RegSubclass),
		ProgIF:     read8(b.access, a, RegProgIF),
		Revision:   read8(b.access, a, RegRevision),
		HeaderType: read8(b.access, a, RegHeaderType),
	}
	for i := range d.BARs {
		d.BARs[i] = b.access.Read32(a, RegBAR0+uint8(i)*4)
	}
}

// Initialized reports whether Init has succeeded.
func (b *Bus) Initialized() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.initialized
}

// Present reports whether the last bring-up found a root complex.
func (b *Bus) Present() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.present
}

// DeviceCount returns the number of valid entries in the device table.
func (b *Bus) DeviceCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Device returns entry i of the device table, or nil outside
// [0, DeviceCount).
//
// The pointer refers into the table itself and stays valid for the life of
// the Bus. A later [Bus.Rescan] overwrites the entry in place, so callers
// that need a stable snapshot should copy the value or use [Bus.Devices].
func (b *Bus) Device(i int) *Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if i < 0 || i >= b.count {
		return nil
	}
	return &b.devices[i]
}

// Devices returns a copy of the valid entries of the device table.
func (b *Bus) Devices() []Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Device, b.count)
	copy(out, b.devices[:b.count])
	return out
}

// FindByClass returns the first device, in scan order, whose base class
// equals the high byte of classCode and whose subclass equals subclass.
// It returns nil when none match.
func (b *Bus) FindByClass(classCode uint16, subclass uint8) *Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 0; i < b.count; i++ {
		d := &b.devices[i]
		if d.ClassCode>>8 == classCode>>8 && d.Subclass == subclass {
			return d
		}
	}
	return nil
}

// FindByVendor returns the first device, in scan order, with the given
// vendor and device IDs. It returns nil when none match.
func (b *Bus) FindByVendor(vendorID, deviceID uint16) *Device {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 0; i < b.count; i++ {
		d := &b.devices[i]
		if d.VendorID == vendorID && d.DeviceID == deviceID {
			return d
		}
	}
	return nil
}

// ReadConfig32 reads the live configuration word at off of d. A nil
// device reads as 0xFFFFFFFF.
func (b *Bus) ReadConfig32(d *Device, off uint8) uint32 {
	if d == nil || b.access == nil {
		return mmio.AllOnes
	}
	return b.access.Read32(d.Address, off)
}

// ReadConfig16 reads the live configuration halfword at off of d. A nil
// device or misaligned offset reads as 0xFFFF.
func (b *Bus) ReadConfig16(d *Device, off uint8) uint16 {
	if d == nil || b.access == nil {
		return 0xFFFF
	}
	return read16(b.access, d.Address, off)
}

// ReadConfig8 reads the live configuration byte at off of d. A nil device
// reads as 0xFF.
func (b *Bus) ReadConfig8(d *Device, off uint8) uint8 {
	if d == nil || b.access == nil {
		return 0xFF
	}
	return read8(b.access, d.Address, off)
}

// WriteConfig32 writes the configuration word at off of d. It does
// nothing for a nil device.
func (b *Bus) WriteConfig32(d *Device, off uint8, value uint32) {
	if d == nil || b.access == nil {
		return
	}
	b.access.Write32(d.Address, off, value)
}

// ReadBAR re-reads BAR i of d from live configuration space.
func (b *Bus) ReadBAR(d *Device, i int) BAR {
	if i < 0 || i >= NumBARs {
		return BAR(mmio.AllOnes)
	}
	return BAR(b.ReadConfig32(d, RegBAR0+uint8(i)*4))
}
