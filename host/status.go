package host

import (
	"fmt"
	"io"
	"strconv"

	"github.com/ardnew/softxhci/pcie"
)

// Status is a snapshot of the USB subsystem.
type Status struct {
	Initialized     bool
	XHCIInitialized bool
	PCIeDeviceCount int
	USBDeviceCount  int
	PortCount       int
}

// Status returns a snapshot of the manager, the controller and the
// fabric. The PCIe count and controller state are reported even when the
// manager itself failed to initialize.
func (m *Manager) Status() Status {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	var s Status
	s.Initialized = m.initialized
	if m.initialized {
		s.USBDeviceCount = m.count
	}
	if m.fabric != nil {
		s.PCIeDeviceCount = m.fabric.DeviceCount()
	}
	if m.ctrl != nil && m.ctrl.Initialized() {
		s.XHCIInitialized = true
		s.PortCount = m.ctrl.NumPorts()
	}
	return s
}

// TextSink receives diagnostic text.
type TextSink interface {
	WriteText(s string)
}

// TextSinkFunc adapts a function to [TextSink].
type TextSinkFunc func(s string)

// WriteText calls f(s).
func (f TextSinkFunc) WriteText(s string) { f(s) }

// WriterSink returns a TextSink that writes to w and ignores write errors.
func WriterSink(w io.Writer) TextSink {
	return TextSinkFunc(func(s string) { _, _ = io.WriteString(w, s) })
}

// maxListed is the number of PCIe functions PrintInfo lists.
const maxListed = 10

// bucket renders a count as 0 through 4, or "5+".
func bucket(n int) string {
	switch {
	case n <= 0:
		return "0"
	case n >= 5:
		return "5+"
	default:
		return strconv.Itoa(n)
	}
}

// describe returns the one-line PrintInfo description of a PCIe function.
func describe(d *pcie.Device) string {
	var kind string
	switch {
	case d.IsXHCI():
		kind = "USB 3.0 XHCI Controller"
	case d.IsUSB():
		kind = "USB Controller (other)"
	default:
		kind = "Other PCIe device"
	}
	s := fmt.Sprintf("%s [%04x:%04x]", kind, d.VendorID, d.DeviceID)
	if name := d.VendorName(); name != "" {
		s += " " + name
	}
	return s
}

// PrintInfo writes a human-readable status dump to the manager's text
// sink. Counts are bucketed into 0 through 4 and "5+". Nothing is written
// when the manager has no sink.
func (m *Manager) PrintInfo() {
	if m.sink == nil {
		return
	}
	st := m.Status()
	w := m.sink.WriteText

	w("=== USB System Information ===\n")
	if !st.Initialized {
		w("USB Manager: Not initialized\n")
		return
	}
	w("USB Manager: Initialized\n")

	if st.XHCIInitialized {
		w("XHCI Controller: Initialized\n")
	} else {
		w("XHCI Controller: Not found/initialized\n")
	}

	w("PCIe devices found: " + bucket(st.PCIeDeviceCount) + "\n")
	w("USB ports available: " + bucket(st.PortCount) + "\n")
	w("USB devices connected: " + bucket(st.USBDeviceCount) + "\n")

	if st.PCIeDeviceCount > 0 {
		w("\n=== PCIe Devices ===\n")
		for i := range min(st.PCIeDeviceCount, maxListed) {
			d := m.fabric.Device(i)
			if d == nil {
				continue
			}
			w("Device " + strconv.Itoa(i) + ": " + describe(d) + "\n")
		}
	}

	w("\n========================\n")
}

// Canvas is the framebuffer drawing surface. Attributes are palette
// indices.
type Canvas interface {
	DrawString(x, y int, s string, attr uint8)
	DrawStringSized(x, y int, s string, attr uint8, size int)
	DrawRect(x1, y1, x2, y2 int, attr uint8, fill bool)
	DrawRoundedRect(x1, y1, x2, y2, radius int, fillAttr uint8, fill bool, borderAttr uint8, border int)
}

// Status panel geometry and palette.
const (
	PanelWidth   = 320
	PanelPadding = 10
	PanelRadius  = 8
	LineHeight   = 15
	TextSize     = 12

	AttrPanel  = 0x11
	AttrBorder = 0x77
	AttrText   = 0x0F
	AttrError  = 0x0C
)

// DrawStatus renders the subsystem status as a panel with its top-left
// corner at (x, y).
func (m *Manager) DrawStatus(c Canvas, x, y int) {
	if c == nil {
		return
	}
	st := m.Status()

	usb, usbAttr := "USB: initialized", uint8(AttrText)
	if !st.Initialized {
		usb, usbAttr = "USB: not available", AttrError
	}
	xhci, xhciAttr := "XHCI: initialized", uint8(AttrText)
	if !st.XHCIInitialized {
		xhci, xhciAttr = "XHCI: not found", AttrError
	}

	lines := []struct {
		text string
		attr uint8
	}{
		{usb, usbAttr},
		{xhci, xhciAttr},
		{"PCIe devices detected: " + bucket(st.PCIeDeviceCount), AttrText},
		{"USB ports: " + bucket(st.PortCount), AttrText},
		{"USB devices: " + bucket(st.USBDeviceCount), AttrText},
	}

	top := y + PanelPadding + LineHeight + PanelPadding
	height := top - y + len(lines)*LineHeight + PanelPadding
	c.DrawRoundedRect(x, y, x+PanelWidth, y+height, PanelRadius, AttrPanel, true, AttrBorder, 2)
	c.DrawString(x+PanelPadding, y+PanelPadding, "USB / PCIe", AttrText)
	c.DrawRect(x+PanelPadding, top-PanelPadding/2, x+PanelWidth-PanelPadding, top-PanelPadding/2+1, AttrBorder, true)

	for i, l := range lines {
		c.DrawStringSized(x+PanelPadding, top+i*LineHeight, l.text, l.attr, TextSize)
	}
}
