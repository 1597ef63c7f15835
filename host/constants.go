package host

import (
	"encoding/binary"
	"fmt"
)

// MaxDevices is the capacity of the manager's device table.
const MaxDevices = 16

// DefaultMaxPacketSize0 is the endpoint 0 packet size assumed for
// placeholder devices.
const DefaultMaxPacketSize0 = 64

// Device states as seen from the host.
const (
	DeviceStateDetached DeviceState = iota
	DeviceStateAttached
	DeviceStatePowered
	DeviceStateDefault
	DeviceStateAddress
	DeviceStateConfigured
	DeviceStateSuspended
)

// DeviceState represents USB device state (from host perspective).
type DeviceState uint8

// String returns a human-readable state description.
func (s DeviceState) String() string {
	switch s {
	case DeviceStateDetached:
		return "Detached"
	case DeviceStateAttached:
		return "Attached"
	case DeviceStatePowered:
		return "Powered"
	case DeviceStateDefault:
		return "Default"
	case DeviceStateAddress:
		return "Address"
	case DeviceStateConfigured:
		return "Configured"
	case DeviceStateSuspended:
		return "Suspended"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Descriptor types.
const (
	DescriptorTypeDevice                      = 0x01
	DescriptorTypeConfiguration               = 0x02
	DescriptorTypeString                      = 0x03
	DescriptorTypeInterface                   = 0x04
	DescriptorTypeEndpoint                    = 0x05
	DescriptorTypeDeviceQualifier             = 0x06
	DescriptorTypeOtherSpeedConfig            = 0x07
	DescriptorTypeInterfacePower              = 0x08
	DescriptorTypeOTG                         = 0x09
	DescriptorTypeDebug                       = 0x0A
	DescriptorTypeInterfaceAssociation        = 0x0B
	DescriptorTypeBOS                         = 0x0F
	DescriptorTypeDeviceCapability            = 0x10
	DescriptorTypeSuperSpeedHub               = 0x2A
	DescriptorTypeSuperSpeedEndpointCompanion = 0x30
)

// ValidDescriptorType reports whether t is a standard descriptor type.
func ValidDescriptorType(t uint8) bool {
	switch t {
	case DescriptorTypeDevice,
		DescriptorTypeConfiguration,
		DescriptorTypeString,
		DescriptorTypeInterface,
		DescriptorTypeEndpoint,
		DescriptorTypeDeviceQualifier,
		DescriptorTypeOtherSpeedConfig,
		DescriptorTypeInterfacePower,
		DescriptorTypeOTG,
		DescriptorTypeDebug,
		DescriptorTypeInterfaceAssociation,
		DescriptorTypeBOS,
		DescriptorTypeDeviceCapability,
		DescriptorTypeSuperSpeedHub,
		DescriptorTypeSuperSpeedEndpointCompanion:
		return true
	default:
		return false
	}
}

// Device class codes.
const (
	ClassPerInterface       = 0x00
	ClassAudio              = 0x01
	ClassCDC                = 0x02
	ClassHID                = 0x03
	ClassPhysical           = 0x05
	ClassImage              = 0x06
	ClassPrinter            = 0x07
	ClassMassStorage        = 0x08
	ClassHub                = 0x09
	ClassCDCData            = 0x0A
	ClassSmartCard          = 0x0B
	ClassContentSecurity    = 0x0D
	ClassVideo              = 0x0E
	ClassPersonalHealthcare = 0x0F
	ClassAudioVideo         = 0x10
	ClassBillboard          = 0x11
	ClassTypeCBridge        = 0x12
	ClassDiagnostic         = 0xDC
	ClassWireless           = 0xE0
	ClassMiscellaneous      = 0xEF
	ClassApplication        = 0xFE
	ClassVendor             = 0xFF
)

var classNames = [...]string{
	ClassPerInterface:       "Use Interface Descriptors",
	ClassAudio:              "Audio",
	ClassCDC:                "Communications and CDC Control",
	ClassHID:                "HID",
	0x04:                    "Reserved",
	ClassPhysical:           "Physical",
	ClassImage:              "Image",
	ClassPrinter:            "Printer",
	ClassMassStorage:        "Mass Storage",
	ClassHub:                "Hub",
	ClassCDCData:            "CDC Data",
	ClassSmartCard:          "Smart Card",
	0x0C:                    "Reserved",
	ClassContentSecurity:    "Content Security",
	ClassVideo:              "Video",
	ClassPersonalHealthcare: "Personal Healthcare",
	ClassAudioVideo:         "Audio/Video Devices",
	ClassBillboard:          "Billboard Device",
	ClassTypeCBridge:        "USB Type-C Bridge",
}

// ClassName returns the name of a device class code.
func ClassName(class uint8) string {
	if int(class) < len(classNames) {
		return classNames[class]
	}
	switch class {
	case ClassDiagnostic:
		return "Diagnostic Device"
	case ClassWireless:
		return "Wireless Controller"
	case ClassMiscellaneous:
		return "Miscellaneous"
	case ClassApplication:
		return "Application Specific"
	case ClassVendor:
		return "Vendor Specific"
	default:
		return "Reserved"
	}
}

// DeviceDescriptor represents a USB device descriptor.
type DeviceDescriptor struct {
	Length            uint8
	DescriptorType    uint8
	USBVersion        uint16
	DeviceClass       uint8
	DeviceSubClass    uint8
	DeviceProtocol    uint8
	MaxPacketSize0    uint8
	VendorID          uint16
	ProductID         uint16
	DeviceVersion     uint16
	ManufacturerIndex uint8
	ProductIndex      uint8
	SerialNumberIndex uint8
	NumConfigurations uint8
}

// DeviceDescriptorSize is the size of a device descriptor.
const DeviceDescriptorSize = 18

// ParseDeviceDescriptor parses device descriptor from data.
func ParseDeviceDescriptor(data []byte, out *DeviceDescriptor) bool {
	if len(data) < DeviceDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.USBVersion = binary.LittleEndian.Uint16(data[2:])
	out.DeviceClass = data[4]
	out.DeviceSubClass = data[5]
	out.DeviceProtocol = data[6]
	out.MaxPacketSize0 = data[7]
	out.VendorID = binary.LittleEndian.Uint16(data[8:])
	out.ProductID = binary.LittleEndian.Uint16(data[10:])
	out.DeviceVersion = binary.LittleEndian.Uint16(data[12:])
	out.ManufacturerIndex = data[14]
	out.ProductIndex = data[15]
	out.SerialNumberIndex = data[16]
	out.NumConfigurations = data[17]
	return true
}

// Valid reports whether the descriptor has the device descriptor length
// and type and offers at least one configuration.
func (d *DeviceDescriptor) Valid() bool {
	return d.Length == DeviceDescriptorSize &&
		d.DescriptorType == DescriptorTypeDevice &&
		d.NumConfigurations > 0
}

// ConfigurationDescriptor represents a USB configuration descriptor.
type ConfigurationDescriptor struct {
	Length             uint8
	DescriptorType     uint8
	TotalLength        uint16
	NumInterfaces      uint8
	ConfigurationValue uint8
	ConfigurationIndex uint8
	Attributes         uint8
	MaxPower           uint8
}

// ConfigurationDescriptorSize is the size of a configuration descriptor header.
const ConfigurationDescriptorSize = 9

// ParseConfigurationDescriptor parses configuration descriptor from data.
func ParseConfigurationDescriptor(data []byte, out *ConfigurationDescriptor) bool {
	if len(data) < ConfigurationDescriptorSize {
		return false
	}
	out.Length = data[0]
	out.DescriptorType = data[1]
	out.TotalLength = binary.LittleEndian.Uint16(data[2:])
	out.NumInterfaces = data[4]
	out.ConfigurationValue = data[5]
	out.ConfigurationIndex = data[6]
	out.Attributes = data[7]
	out.MaxPower = data[8]
	return true
}

// Valid reports whether the descriptor has the configuration descriptor
// length and type, at least one interface, and a total length that covers
// its own header.
func (c *ConfigurationDescriptor) Valid() bool {
	return c.Length == ConfigurationDescriptorSize &&
		c.DescriptorType == DescriptorTypeConfiguration &&
		c.NumInterfaces > 0 &&
		c.TotalLength >= ConfigurationDescriptorSize
}
