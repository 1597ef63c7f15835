package host

import (
	"context"
	"fmt"

	"github.com/efficientgo/core/errors"

	"github.com/ardnew/softxhci/host/hal"
	"github.com/ardnew/softxhci/pkg"
)

// Device is one entry of the manager's device table.
//
// Records live inside the [Manager] and are mutated only through its
// methods. A pointer obtained from the manager stays valid for the life of
// the manager but may be overwritten by a later scan or enumeration.
type Device struct {
	address hal.DeviceAddress
	port    uint8
	speed   hal.Speed
	state   DeviceState

	descriptor DeviceDescriptor
	config     *ConfigurationDescriptor

	configurationValue uint8
	maxPacketSize0     uint16

	synthetic bool
}

// reset returns the record to its detached defaults.
func (d *Device) reset() {
	*d = Device{}
}

// Address returns the device address, or 0 if none is assigned.
func (d *Device) Address() hal.DeviceAddress {
	return d.address
}

// Port returns the root hub port the device was enumerated on.
func (d *Device) Port() uint8 {
	return d.port
}

// Speed returns the device speed.
func (d *Device) Speed() hal.Speed {
	return d.speed
}

// State returns the device state.
func (d *Device) State() DeviceState {
	return d.state
}

// VendorID returns the device vendor ID.
func (d *Device) VendorID() uint16 {
	return d.descriptor.VendorID
}

// ProductID returns the device product ID.
func (d *Device) ProductID() uint16 {
	return d.descriptor.ProductID
}

// DeviceClass returns the device class.
func (d *Device) DeviceClass() uint8 {
	return d.descriptor.DeviceClass
}

// Descriptor returns the device descriptor.
func (d *Device) Descriptor() DeviceDescriptor {
	return d.descriptor
}

// Configuration returns the configuration descriptor, or nil if none has
// been read.
func (d *Device) Configuration() *ConfigurationDescriptor {
	return d.config
}

// ConfigurationValue returns the current configuration value, or 0 when
// unconfigured.
func (d *Device) ConfigurationValue() uint8 {
	return d.configurationValue
}

// MaxPacketSize0 returns the maximum packet size of endpoint 0.
func (d *Device) MaxPacketSize0() uint16 {
	return d.maxPacketSize0
}

// Synthetic reports whether the record was fabricated by placeholder
// enumeration rather than read from a device. Synthetic records carry no
// descriptor data.
func (d *Device) Synthetic() bool {
	return d.synthetic
}

// ControlTransfer performs a control transfer on endpoint 0. The setup
// stage is encoded and data must hold setup.Length bytes, but no transfer
// ring exists yet, so a well-formed request always fails with
// [pkg.ErrNotSupported].
func (d *Device) ControlTransfer(_ context.Context, setup *hal.SetupPacket, data []byte) (int, error) {
	if setup == nil {
		return 0, pkg.ErrInvalidParameter
	}
	if len(data) < int(setup.Length) {
		return 0, errors.Wrapf(pkg.ErrInvalidParameter,
			"control transfer data stage %d < %d bytes", len(data), setup.Length)
	}

	var raw [hal.SetupPacketSize]byte
	setup.MarshalTo(raw[:])
	pkg.LogDebug(pkg.ComponentManager, "control transfer",
		"address", d.address, "setup", fmt.Sprintf("%x", raw))

	return 0, errors.Wrapf(pkg.ErrNotSupported, "control transfer to address %d", d.address)
}

// BulkTransfer performs a bulk transfer on the given endpoint. No transfer
// ring exists yet, so it always fails.
func (d *Device) BulkTransfer(_ context.Context, endpoint uint8, _ []byte) (int, error) {
	return 0, errors.Wrapf(pkg.ErrNotSupported, "bulk transfer to %d.%#02x", d.address, endpoint)
}

// InterruptTransfer performs an interrupt transfer on the given endpoint.
// No transfer ring exists yet, so it always fails.
func (d *Device) InterruptTransfer(_ context.Context, endpoint uint8, _ []byte) (int, error) {
	return 0, errors.Wrapf(pkg.ErrNotSupported, "interrupt transfer to %d.%#02x", d.address, endpoint)
}
