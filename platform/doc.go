// Package platform describes the board the bring-up core runs on.
//
// [Config] carries every platform constant: the PCIe controller register
// window, the memory-mapped configuration window, the XHCI register window
// size, the configuration access [Variant] and the poll budget applied to
// register handshakes. [RPi4] returns the Raspberry Pi 4 (BCM2711)
// defaults; [FromDeviceTree] overrides the controller addresses from a
// flattened device tree.
//
//	cfg, err := platform.FromDeviceTreeFile("/boot/bcm2711-rpi-4-b.dtb", platform.RPi4())
//	if err != nil {
//	    cfg = platform.RPi4()
//	}
package platform
