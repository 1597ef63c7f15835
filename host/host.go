package host

import (
	"context"
	"sync"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// Manager owns the USB subsystem: it brings up the PCIe fabric and the
// host controller in order and keeps a fixed-capacity table of devices.
type Manager struct {
	fabric hal.Fabric
	ctrl   hal.Controller
	sink   TextSink

	initialized bool

	// devices[:count] are valid; entries past count are stale.
	devices [MaxDevices]Device
	count   int

	mutex sync.Mutex
}

// New creates a manager over the given fabric and controller. Diagnostic
// text from PrintInfo goes to sink, which may be nil.
func New(fabric hal.Fabric, ctrl hal.Controller, sink TextSink) *Manager {
	return &Manager{
		fabric: fabric,
		ctrl:   ctrl,
		sink:   sink,
	}
}

// resetLocked clears the device table.
func (m *Manager) resetLocked() {
	m.count = 0
	for i := range m.devices {
		m.devices[i].reset()
	}
}

// Init resets the device table, initializes the fabric, initializes the
// controller and starts it. It stops at the first layer that fails and
// leaves later layers untouched. Calling Init on an initialized manager
// does nothing.
func (m *Manager) Init(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.initialized {
		return nil
	}
	if m.fabric == nil || m.ctrl == nil {
		return errors.Wrap(pkg.ErrInvalidParameter, "manager has no fabric or controller")
	}

	m.resetLocked()

	if err := m.fabric.Init(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentManager, "PCIe init failed", "error", err)
		return errors.Wrap(err, "pcie")
	}
	pkg.LogDebug(pkg.ComponentManager, "PCIe devices detected", "count", m.fabric.DeviceCount())

	if err := m.ctrl.Init(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentManager, "host controller init failed", "error", err)
		return errors.Wrap(err, "xhci")
	}
	if !m.ctrl.Initialized() {
		return errors.Wrap(pkg.ErrNoDevice, "xhci")
	}

	if err := m.ctrl.Start(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentManager, "host controller start failed", "error", err)
		return errors.Wrap(err, "xhci start")
	}

	m.initialized = true
	pkg.LogInfo(pkg.ComponentManager, "USB manager initialized", "ports", m.ctrl.NumPorts())
	return nil
}

// Shutdown stops the controller, clears the device table and marks the
// manager uninitialized. It always succeeds; shutting down an
// uninitialized manager does nothing.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return nil
	}

	if err := m.ctrl.Stop(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentManager, "host controller stop failed", "error", err)
	}

	m.resetLocked()
	m.initialized = false
	pkg.LogInfo(pkg.ComponentManager, "USB manager shut down")
	return nil
}

// Initialized reports whether Init has succeeded since the last Shutdown.
func (m *Manager) Initialized() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.initialized
}

// Start initializes the manager and performs an initial scan.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.Init(ctx); err != nil {
		return err
	}
	_, err := m.ScanDevices()
	return err
}

// Update is the periodic service hook. Connection events, transfer
// completion and interrupts are not serviced yet, so it does nothing.
func (m *Manager) Update(context.Context) {}

// ScanDevices clears the device table and returns the number of root hub
// ports. Port status is not inspected, so the table is left empty;
// populate it with EnumerateDevice.
func (m *Manager) ScanDevices() (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return 0, errors.Wrap(pkg.ErrNotRunning, "scan")
	}

	ports := m.ctrl.NumPorts()
	m.count = 0
	pkg.LogDebug(pkg.ComponentManager, "scan", "ports", ports)
	return ports, nil
}

// EnumerateDevice appends a placeholder record for a device on port.
//
// No bus transaction takes place: the record is assigned the next
// sequential address and assumed to be a configured high-speed device
// with a 64-byte endpoint 0. It is marked [Device.Synthetic].
func (m *Manager) EnumerateDevice(port uint8) (*Device, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return nil, errors.Wrap(pkg.ErrNotRunning, "enumerate")
	}
	if m.count >= MaxDevices {
		pkg.LogWarn(pkg.ComponentManager, "device table full", "port", port)
		return nil, errors.Wrapf(pkg.ErrNoResources, "device table full (%d)", MaxDevices)
	}

	addr, err := nextAddress(m.count)
	if err != nil {
		return nil, err
	}

	dev := &m.devices[m.count]
	*dev = Device{
		address:            addr,
		port:               port,
		speed:              hal.SpeedHigh,
		state:              DeviceStateConfigured,
		configurationValue: 1,
		maxPacketSize0:     DefaultMaxPacketSize0,
		synthetic:          true,
	}
	m.count++

	pkg.LogInfo(pkg.ComponentManager, "placeholder device enumerated",
		"port", port, "address", dev.address)
	return dev, nil
}

// nextAddress returns the address assigned to the device enumerated after
// count others.
func nextAddress(count int) (hal.DeviceAddress, error) {
	if count < 0 || count >= int(hal.MaxDeviceAddress) {
		return 0, errors.Wrapf(pkg.ErrOutOfRange, "no device address after %d", count)
	}
	addr := hal.DeviceAddress(count + 1)
	if !addr.Valid() {
		return 0, errors.Wrapf(pkg.ErrOutOfRange, "device address %d", addr)
	}
	return addr, nil
}

// owns reports whether d is one of the valid table entries.
func (m *Manager) owns(d *Device) bool {
	for i := range m.count {
		if &m.devices[i] == d {
			return true
		}
	}
	return false
}

// ResetDevice returns a device record to the default state at address 0.
// No reset is signalled on the bus.
func (m *Manager) ResetDevice(d *Device) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return errors.Wrap(pkg.ErrNotRunning, "reset device")
	}
	if d == nil || !m.owns(d) {
		return errors.Wrap(pkg.ErrInvalidParameter, "reset device")
	}

	d.state = DeviceStateDefault
	d.address = 0
	d.configurationValue = 0
	return nil
}

// ConfigureDevice records configuration value as selected and marks the
// device configured. No SET_CONFIGURATION request is sent.
func (m *Manager) ConfigureDevice(d *Device, value uint8) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.initialized {
		return errors.Wrap(pkg.ErrNotRunning, "configure device")
	}
	if d == nil || !m.owns(d) {
		return errors.Wrap(pkg.ErrInvalidParameter, "configure device")
	}

	d.configurationValue = value
	d.state = DeviceStateConfigured
	return nil
}

// DeviceCount returns the number of valid devices, or 0 when the manager
// is not initialized.
func (m *Manager) DeviceCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.initialized {
		return 0
	}
	return m.count
}

// Device returns device i, or nil outside [0, DeviceCount()).
func (m *Manager) Device(i int) *Device {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.initialized || i < 0 || i >= m.count {
		return nil
	}
	return &m.devices[i]
}

// FindByClass returns the first device whose descriptor has the given
// device class, or nil.
func (m *Manager) FindByClass(class uint8) *Device {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.initialized {
		return nil
	}
	for i := range m.count {
		if m.devices[i].descriptor.DeviceClass == class {
			return &m.devices[i]
		}
	}
	return nil
}

// FindByVendorProduct returns the first device with the given vendor and
// product IDs, or nil.
func (m *Manager) FindByVendorProduct(vendorID, productID uint16) *Device {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if !m.initialized {
		return nil
	}
	for i := range m.count {
		desc := &m.devices[i].descriptor
		if desc.VendorID == vendorID && desc.ProductID == productID {
			return &m.devices[i]
		}
	}
	return nil
}
