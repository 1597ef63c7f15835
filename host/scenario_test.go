package host_test

import (
	"github.com/ardnew/softxhci/host"
	"github.com/ardnew/softxhci/pcie"
	"github.com/ardnew/softxhci/pkg"
	"github.com/ardnew/softxhci/sim"
	"github.com/ardnew/softxhci/xhci"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Manager bring-up", func() {
	Context("on a board without PCIe", func() {
		It("initializes the fabric empty and fails to find a controller", func(ctx SpecContext) {
			s := newStack(false, nil)

			By("initializing the fabric on its own")
			Expect(s.bus.Init(ctx)).To(Succeed())
			Expect(s.bus.Present()).To(BeFalse())
			Expect(s.bus.DeviceCount()).To(BeZero())

			By("initializing the controller on its own")
			Expect(s.ctrl.Init(ctx)).To(MatchError(pkg.ErrNoDevice))
			Expect(s.ctrl.State()).To(Equal(xhci.StateUninitialized))

			By("initializing the manager")
			Expect(s.mgr.Init(ctx)).To(MatchError(pkg.ErrNoDevice))
			Expect(s.mgr.Initialized()).To(BeFalse())
			Expect(s.mgr.Status()).To(Equal(host.Status{}))

			s.mgr.PrintInfo()
			Expect(s.out.text).To(Equal("=== USB System Information ===\nUSB Manager: Not initialized\n"))

			s.shutdown(ctx)
		})
	})

	Context("with an XHCI controller at device 2", func() {
		var s *stack

		BeforeEach(func() {
			s = newStack(true, sim.NewXHCI(4, 32))
		})

		It("finds the controller on the fabric", func(ctx SpecContext) {
			Expect(s.bus.Init(ctx)).To(Succeed())

			d := s.bus.FindByClass(uint16(pcie.ClassSerialBus)<<8, pcie.SubclassUSB)
			Expect(d).NotTo(BeNil())
			Expect(d.Address).To(Equal(pcie.Address{Bus: 0, Device: 2, Function: 0}))
			Expect(d.IsXHCI()).To(BeTrue())
		})

		It("brings up the subsystem", func(ctx SpecContext) {
			Expect(s.mgr.Init(ctx)).To(Succeed())
			Expect(s.mgr.Initialized()).To(BeTrue())

			info, ok := s.ctrl.Info()
			Expect(ok).To(BeTrue())
			Expect(info.MMIOBase).To(Equal(uint64(xhciBase)))
			Expect(info.MaxPorts).To(Equal(uint8(4)))
			Expect(info.MaxSlots).To(Equal(uint8(32)))
			Expect(s.ctrl.State()).To(Equal(xhci.StateRunning))
			Expect(s.hc.Running()).To(BeTrue())
			Expect(s.hc.Config() & 0xFF).To(Equal(uint32(32)))

			Expect(s.mgr.Status()).To(Equal(host.Status{
				Initialized:     true,
				XHCIInitialized: true,
				PCIeDeviceCount: 1,
				PortCount:       4,
			}))

			s.mgr.PrintInfo()
			Expect(s.out.text).To(ContainSubstring("USB Manager: Initialized\n"))
			Expect(s.out.text).To(ContainSubstring("XHCI Controller: Initialized\n"))
			Expect(s.out.text).To(ContainSubstring("PCIe devices found: 1\n"))
			Expect(s.out.text).To(ContainSubstring("USB ports available: 4\n"))
			Expect(s.out.text).To(ContainSubstring("Device 0: USB 3.0 XHCI Controller [1106:3483]"))

			s.shutdown(ctx)
		})

		It("survives a stop and start cycle", func(ctx SpecContext) {
			Expect(s.mgr.Start(ctx)).To(Succeed())

			By("shutting down")
			s.shutdown(ctx)
			Expect(s.mgr.Initialized()).To(BeFalse())
			Expect(s.ctrl.State()).To(Equal(xhci.StateStopped))
			Expect(s.hc.Running()).To(BeFalse())

			By("bringing it back up")
			Expect(s.mgr.Init(ctx)).To(Succeed())
			Expect(s.ctrl.State()).To(Equal(xhci.StateRunning))
			Expect(s.hc.Running()).To(BeTrue())
			Expect(s.hc.Resets()).To(Equal(1))
		})

		It("fills the device table to capacity", func(ctx SpecContext) {
			Expect(s.mgr.Init(ctx)).To(Succeed())

			for i := range host.MaxDevices {
				d, err := s.mgr.EnumerateDevice(uint8(i%4 + 1))
				Expect(err).NotTo(HaveOccurred())
				Expect(d.Address()).To(BeEquivalentTo(i + 1))
			}
			_, err := s.mgr.EnumerateDevice(1)
			Expect(err).To(MatchError(pkg.ErrNoResources))
			Expect(s.mgr.DeviceCount()).To(Equal(host.MaxDevices))

			ports, err := s.mgr.ScanDevices()
			Expect(err).NotTo(HaveOccurred())
			Expect(ports).To(Equal(4))
			Expect(s.mgr.DeviceCount()).To(BeZero())
		})
	})

	Context("with a controller that never leaves halt", func() {
		It("reports the start failure and still shuts down", func(ctx SpecContext) {
			hc := sim.NewXHCI(2, 8)
			hc.NeverRuns = true
			s := newStack(true, hc)

			Expect(s.mgr.Init(ctx)).To(MatchError(pkg.ErrTimeout))
			Expect(s.mgr.Initialized()).To(BeFalse())
			Expect(s.ctrl.State()).To(Equal(xhci.StateInitialized))

			st := s.mgr.Status()
			Expect(st.Initialized).To(BeFalse())
			Expect(st.XHCIInitialized).To(BeTrue())
			Expect(st.PortCount).To(Equal(2))

			s.shutdown(ctx)
		})
	})
})
