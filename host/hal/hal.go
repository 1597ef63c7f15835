package hal

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softxhci/pcie"
)

// Speed represents the USB connection speed.
type Speed uint8

// USB speed constants.
const (
	SpeedUnknown   Speed = iota // Not connected or unknown
	SpeedLow                    // Low Speed (1.5 Mbit/s)
	SpeedFull                   // Full Speed (12 Mbit/s)
	SpeedHigh                   // High Speed (480 Mbit/s)
	SpeedSuper                  // SuperSpeed (5 Gbit/s)
	SpeedSuperPlus              // SuperSpeed+ (10 Gbit/s)
)

// String returns a human-readable speed name.
func (s Speed) String() string {
	switch s {
	case SpeedLow:
		return "Low Speed (1.5 Mbps)"
	case SpeedFull:
		return "Full Speed (12 Mbps)"
	case SpeedHigh:
		return "High Speed (480 Mbps)"
	case SpeedSuper:
		return "Super Speed (5 Gbps)"
	case SpeedSuperPlus:
		return "Super Speed+ (10 Gbps)"
	default:
		return "Unknown"
	}
}

// TransferType indicates the type of USB transfer.
type TransferType uint8

// Transfer type constants, matching the endpoint attributes encoding.
const (
	TransferControl     TransferType = 0
	TransferIsochronous TransferType = 1
	TransferBulk        TransferType = 2
	TransferInterrupt   TransferType = 3
)

// String returns the transfer type name.
func (t TransferType) String() string {
	switch t {
	case TransferControl:
		return "control"
	case TransferIsochronous:
		return "isochronous"
	case TransferBulk:
		return "bulk"
	case TransferInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("TransferType(%d)", t)
	}
}

// MaxPacketSize returns the largest packet an endpoint of type t may use at
// speed s, or 0 when the combination is not allowed.
func MaxPacketSize(s Speed, t TransferType) uint16 {
	switch s {
	case SpeedLow:
		if t == TransferControl || t == TransferInterrupt {
			return 8
		}
	case SpeedFull:
		switch t {
		case TransferControl, TransferBulk, TransferInterrupt:
			return 64
		case TransferIsochronous:
			return 1023
		}
	case SpeedHigh:
		switch t {
		case TransferControl:
			return 64
		case TransferBulk:
			return 512
		case TransferIsochronous, TransferInterrupt:
			return 1024
		}
	case SpeedSuper, SpeedSuperPlus:
		return 1024
	}
	return 0
}

// SetupPacket represents a USB SETUP packet.
type SetupPacket struct {
	RequestType uint8  // Request characteristics
	Request     uint8  // Specific request
	Value       uint16 // Request-specific value
	Index       uint16 // Request-specific index
	Length      uint16 // Number of bytes to transfer
}

// SetupPacketSize is the size of a USB SETUP packet in bytes.
const SetupPacketSize = 8

// MarshalTo writes the setup packet to buf.
// Returns the number of bytes written (8), or 0 if buf is too small.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	buf[0] = s.RequestType
	buf[1] = s.Request
	binary.LittleEndian.PutUint16(buf[2:], s.Value)
	binary.LittleEndian.PutUint16(buf[4:], s.Index)
	binary.LittleEndian.PutUint16(buf[6:], s.Length)
	return SetupPacketSize
}

// DeviceAddress represents a USB device address. Zero is the default
// address of a device that has not been assigned one.
type DeviceAddress uint8

// MaxDeviceAddress is the highest assignable USB device address.
const MaxDeviceAddress DeviceAddress = 127

// Valid reports whether a is an assigned address.
func (a DeviceAddress) Valid() bool { return a > 0 && a <= MaxDeviceAddress }

// Fabric is the PCIe layer the device manager brings up first.
//
// Init must be idempotent and must treat an absent root complex as an
// empty but valid bus. [*pcie.Bus] implements Fabric.
type Fabric interface {
	// Init brings up the root complex and scans configuration space.
	Init(ctx context.Context) error

	// DeviceCount returns the number of discovered functions.
	DeviceCount() int

	// Device returns discovered function i, or nil outside
	// [0, DeviceCount()).
	Device(i int) *pcie.Device
}

// Controller is the host controller lifecycle the device manager drives
// after the fabric is up. [*xhci.Controller] implements Controller.
type Controller interface {
	// Init locates and resets the controller. It must be idempotent.
	Init(ctx context.Context) error

	// Start sets the controller running.
	Start(ctx context.Context) error

	// Stop halts a running controller.
	Stop(ctx context.Context) error

	// Initialized reports whether Init has succeeded.
	Initialized() bool

	// NumPorts returns the number of root hub ports, or 0 before Init
	// succeeds.
	NumPorts() int
}
