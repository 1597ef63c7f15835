package host_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/ardnew/softxhci/host"
	"github.com/ardnew/softxhci/pcie"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/platform"
	"github.com/ardnew/softxhci/sim"
	"github.com/ardnew/softxhci/xhci"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const xhciBase = 0x60000000

func TestHost(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Host Suite")
}

var _ = BeforeSuite(func() {
	prev := pkg.DefaultLogger
	pkg.SetLogger(slog.New(slog.NewTextHandler(GinkgoWriter, &slog.HandlerOptions{Level: slog.LevelDebug})))
	DeferCleanup(func() { pkg.SetLogger(prev) })
})

// stack is a manager wired to a simulated board through the real PCIe
// and XHCI layers.
type stack struct {
	board *sim.Board
	hc    *sim.XHCI
	bus   *pcie.Bus
	ctrl  *xhci.Controller
	mgr   *host.Manager
	out   *textSink
}

// textSink collects PrintInfo text.
type textSink struct {
	text string
}

func (s *textSink) WriteText(t string) { s.text += t }

func testConfig() platform.Config {
	cfg := platform.RPi4()
	cfg.PollAttempts = 5
	cfg.PollInterval = 0
	return cfg
}

// newStack builds a board with the root complex at 00:00.0 when bridge is
// set, and an XHCI controller at 00:02.0 decoding xhciBase when hc is
// non-nil.
func newStack(bridge bool, hc *sim.XHCI) *stack {
	GinkgoHelper()
	cfg := testConfig()

	board, err := sim.NewBoard(cfg)
	Expect(err).NotTo(HaveOccurred())

	if bridge {
		Expect(board.AddFunction(0, 0, 0, sim.NewBridge(0x14E4, 0x2711))).To(Succeed())
	}
	if hc != nil {
		fn := sim.NewFunction(0x1106, 0x3483, pcie.ClassSerialBus, pcie.SubclassUSB, pcie.ProgIFXHCI).
			SetBAR(0, xhciBase)
		Expect(board.AddFunction(0, 2, 0, fn)).To(Succeed())
		Expect(board.AttachXHCI(xhciBase, hc)).To(Succeed())
	}

	access, err := pcie.NewAccessor(board, cfg)
	Expect(err).NotTo(HaveOccurred())

	s := &stack{board: board, hc: hc, bus: pcie.NewBus(access), out: &textSink{}}
	s.ctrl = xhci.New(s.bus, board, cfg)
	s.mgr = host.New(s.bus, s.ctrl, s.out)
	return s
}

func (s *stack) shutdown(ctx context.Context) {
	GinkgoHelper()
	Expect(s.mgr.Shutdown(ctx)).To(Succeed())
}
