package sim

import (
	"testing"

	"github.com/ardnew/softxhci/mmio"
	"github.com/ardnew/softxhci/platform"
)

func newTestBoard(t *testing.T) *Board {
	t.Helper()
	b, err := NewBoard(platform.RPi4())
	if err != nil {
		t.Fatalf("NewBoard() error = %v", err)
	}
	return b
}

func cfgAddr(bus, dev, fn, off uint32) uint32 {
	return bus<<20 | dev<<15 | fn<<12 | off
}

// =============================================================================
// Function
// =============================================================================

func TestFunctionIdentity(t *testing.T) {
	f := NewFunction(0x1234, 0x5678, 0x0C, 0x03, 0x30).SetRevision(0x01)

	tests := []struct {
		name string
		off  uint64
		want uint32
	}{
		{"id", 0x00, 0x56781234},
		{"class", 0x08, 0x0C033001},
		{"header", 0x0C, 0x00000000},
		{"beyond", ConfigSpaceSize, mmio.AllOnes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.Read32(tt.off); got != tt.want {
				t.Errorf("Read32(%#x) = %#x, want %#x", tt.off, got, tt.want)
			}
		})
	}

	f.Write32(0x00, 0)
	f.Write32(0x08, 0)
	if got := f.Read32(0x00); got != 0x56781234 {
		t.Errorf("identity overwritten: %#x", got)
	}
}

func TestFunctionHeaderType(t *testing.T) {
	f := NewFunction(1, 2, 0, 0, 0).SetMultiFunction(true)
	if got := f.Read32(0x0C) >> 16 & 0xFF; got != 0x80 {
		t.Errorf("header type = %#x, want 0x80", got)
	}
	f.SetMultiFunction(false)
	if got := f.Read32(0x0C) >> 16 & 0xFF; got != 0x00 {
		t.Errorf("header type = %#x, want 0", got)
	}

	br := NewBridge(0x14E4, 0x2711)
	if got := br.Read32(0x0C) >> 16 & 0xFF; got != 0x01 {
		t.Errorf("bridge header type = %#x, want 0x01", got)
	}
}

func TestFunctionCommand(t *testing.T) {
	f := NewFunction(1, 2, 0, 0, 0)
	f.Write32(0x04, 0xFFFF0006)
	if got := f.Command(); got != 0x0006 {
		t.Errorf("Command() = %#x, want 0x0006", got)
	}
	if got := f.Read32(0x04) >> 16; got != 0 {
		t.Errorf("status = %#x, want 0", got)
	}
	if r, w := f.Accesses(); r != 1 || w != 1 {
		t.Errorf("Accesses() = %d, %d, want 1, 1", r, w)
	}
}

func TestFunctionBARSizing(t *testing.T) {
	f := NewFunction(1, 2, 0, 0, 0).
		SetBAR(0, 0x60000004). // 64-bit memory
		SetBARSize(0, 0x10000).
		SetBAR(2, 0x0000E001). // I/O
		SetBARSize(2, 0x100)

	f.Write32(0x10, mmio.AllOnes)
	if got := f.Read32(0x10); got != 0xFFFF0004 {
		t.Errorf("BAR0 sized = %#x, want 0xFFFF0004", got)
	}
	f.Write32(0x14, 0x1)
	if got := f.Read32(0x14); got != 0x1 {
		t.Errorf("BAR1 upper = %#x, want 0x1", got)
	}
	f.Write32(0x18, mmio.AllOnes)
	if got := f.Read32(0x18); got != 0xFFFFFF01 {
		t.Errorf("BAR2 sized = %#x, want 0xFFFFFF01", got)
	}
}

// =============================================================================
// Board
// =============================================================================

func TestBoardUnmapped(t *testing.T) {
	b := newTestBoard(t)

	if got := b.Read32(0x1000); got != mmio.AllOnes {
		t.Errorf("unmapped read = %#x, want AllOnes", got)
	}
	cfg := platform.RPi4()
	if got := b.Read32(cfg.ECAMBase); got != mmio.AllOnes {
		t.Errorf("empty bridge read = %#x, want AllOnes", got)
	}
}

func TestBoardLinkTraining(t *testing.T) {
	b := newTestBoard(t)
	b.LinkDelay = 2
	cfg := platform.RPi4()
	status := cfg.PCIeBase + platform.RegPCIeStatus

	if got := b.Read32(status); got != 0 {
		t.Errorf("status before enable = %#x, want 0", got)
	}

	b.Write32(cfg.PCIeBase+platform.RegPCIeCtrl, platform.PCIeCtrlEnable)
	if !b.LinkEnabled() {
		t.Fatal("LinkEnabled() = false after enable")
	}

	want := []uint32{0, 0, 1, 1}
	for i, w := range want {
		if got := b.Read32(status); got != w {
			t.Errorf("status read %d = %#x, want %#x", i, got, w)
		}
	}
}

func TestBoardLinkNeverUp(t *testing.T) {
	b := newTestBoard(t)
	b.LinkNeverUp = true
	cfg := platform.RPi4()

	b.Write32(cfg.PCIeBase+platform.RegPCIeCtrl, platform.PCIeCtrlEnable)
	for range 10 {
		if got := b.Read32(cfg.PCIeBase + platform.RegPCIeStatus); got != 0 {
			t.Fatalf("status = %#x, want 0", got)
		}
	}
}

func TestBoardConfigAccess(t *testing.T) {
	b := newTestBoard(t)
	cfg := platform.RPi4()
	f := NewFunction(0x1234, 0x5678, 0x0C, 0x03, 0x30)
	if err := b.AddFunction(1, 2, 3, f); err != nil {
		t.Fatalf("AddFunction() error = %v", err)
	}

	// indexed pair
	b.Write32(cfg.PCIeBase+platform.RegExtCfgIndex, cfgAddr(1, 2, 3, 0))
	if got := b.Read32(cfg.PCIeBase + platform.RegExtCfgData); got != 0x56781234 {
		t.Errorf("indexed read = %#x, want 0x56781234", got)
	}
	b.Write32(cfg.PCIeBase+platform.RegExtCfgIndex, cfgAddr(1, 2, 3, 0x04))
	b.Write32(cfg.PCIeBase+platform.RegExtCfgData, 0x6)
	if got := f.Command(); got != 0x6 {
		t.Errorf("indexed write: Command() = %#x, want 0x6", got)
	}

	// memory-mapped window
	if got := b.Read32(cfg.ECAMBase + uint64(cfgAddr(1, 2, 3, 0x08))); got != 0x0C033000 {
		t.Errorf("ECAM read = %#x, want 0x0C033000", got)
	}
	if got := b.Read32(cfg.ECAMBase + uint64(cfgAddr(1, 2, 4, 0))); got != mmio.AllOnes {
		t.Errorf("absent function = %#x, want AllOnes", got)
	}
}

func TestBoardAddFunctionRange(t *testing.T) {
	b := newTestBoard(t)
	f := NewFunction(1, 2, 0, 0, 0)

	tests := []struct {
		name         string
		bus, dev, fn uint8
	}{
		{"bus", MaxBus, 0, 0},
		{"device", 0, MaxDevice, 0},
		{"function", 0, 0, MaxFunction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.AddFunction(tt.bus, tt.dev, tt.fn, f); err == nil {
				t.Error("AddFunction() error = nil")
			}
		})
	}
	if err := b.AddFunction(0, 0, 0, nil); err == nil {
		t.Error("AddFunction(nil) error = nil")
	}
}

func TestBoardAccesses(t *testing.T) {
	b := newTestBoard(t)
	b.Read32(0)
	b.Write32(0, 0)
	if got := b.Accesses(); got != 2 {
		t.Errorf("Accesses() = %d, want 2", got)
	}
}

// =============================================================================
// XHCI
// =============================================================================

func TestXHCICapabilities(t *testing.T) {
	x := NewXHCI(4, 32)
	x.MaxIntrs = 8
	x.ScratchpadHi = 0x1
	x.ScratchpadLo = 0x3
	x.ContextSize64 = true

	tests := []struct {
		name string
		off  uint64
		want uint32
	}{
		{"caplength", 0x00, 0x01000020},
		{"hcsparams1", 0x04, 0x04000820},
		{"hcsparams2", 0x08, 0x3<<27 | 0x1<<21},
		{"hccparams1", 0x10, 0x4},
		{"dboff", 0x14, 0x800},
		{"rtsoff", 0x18, 0x600},
		{"pagesize", 0x28, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := x.Read32(tt.off); got != tt.want {
				t.Errorf("Read32(%#x) = %#x, want %#x", tt.off, got, tt.want)
			}
		})
	}
}

func TestXHCIRunStop(t *testing.T) {
	x := NewXHCI(4, 32)
	const cmd, sts = 0x20, 0x24

	if x.Read32(sts)&stsHalted == 0 {
		t.Fatal("new controller not halted")
	}

	x.Write32(cmd, cmdRun|0x4)
	if !x.Running() || x.Read32(sts)&stsHalted != 0 {
		t.Error("controller not running after run")
	}

	x.Write32(cmd, 0x4)
	if x.Running() {
		t.Error("controller running after stop")
	}
}

func TestXHCIReset(t *testing.T) {
	x := NewXHCI(4, 32)
	x.NotReadyReads = 2
	const cmd, sts, cfg = 0x20, 0x24, 0x58

	x.Write32(cfg, 32)
	x.Write32(cmd, cmdReset)

	if got := x.Read32(cmd); got&cmdReset != 0 {
		t.Errorf("USBCMD = %#x, reset did not self-clear", got)
	}
	if x.Config() != 0 {
		t.Errorf("Config() = %d after reset, want 0", x.Config())
	}
	want := []bool{true, true, false}
	for i, w := range want {
		if got := x.Read32(sts)&stsNotReady != 0; got != w {
			t.Errorf("status read %d not-ready = %v, want %v", i, got, w)
		}
	}
	if x.Resets() != 1 {
		t.Errorf("Resets() = %d, want 1", x.Resets())
	}
}

func TestXHCIFaults(t *testing.T) {
	const cmd, sts = 0x20, 0x24

	t.Run("never halts", func(t *testing.T) {
		x := NewXHCI(4, 32)
		x.NeverHalts = true
		x.ForceRunning()
		x.Write32(cmd, 0)
		if !x.Running() {
			t.Error("controller halted")
		}
	})

	t.Run("never runs", func(t *testing.T) {
		x := NewXHCI(4, 32)
		x.NeverRuns = true
		x.Write32(cmd, cmdRun)
		if x.Running() {
			t.Error("controller running")
		}
	})

	t.Run("reset stuck", func(t *testing.T) {
		x := NewXHCI(4, 32)
		x.ResetStuck = true
		x.Write32(cmd, cmdReset)
		if x.Read32(cmd)&cmdReset == 0 {
			t.Error("reset bit cleared")
		}
	})

	t.Run("not ready stuck", func(t *testing.T) {
		x := NewXHCI(4, 32)
		x.NotReadyStuck = true
		for range 5 {
			if x.Read32(sts)&stsNotReady == 0 {
				t.Fatal("not-ready cleared")
			}
		}
	})
}

func TestBoardXHCIWindow(t *testing.T) {
	b := newTestBoard(t)
	x := NewXHCI(4, 32)
	if err := b.AttachXHCI(0x60000000, x); err != nil {
		t.Fatalf("AttachXHCI() error = %v", err)
	}

	if got := b.Read32(0x60000000) & 0xFF; got != 0x20 {
		t.Errorf("CAPLENGTH via board = %#x, want 0x20", got)
	}
	if x.Accesses() != 1 {
		t.Errorf("Accesses() = %d, want 1", x.Accesses())
	}
}
