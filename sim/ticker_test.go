package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Ticking Component", func() {
	var (
		engine *SerialEngine
		ticker *countingTicker
		tc     *TickingComponent
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		ticker = &countingTicker{progressIn: 3}
		tc = NewTickingComponent("TC", engine, ticker)
	})

	It("should tick until no progress is made", func() {
		tc.NotifyRecv()

		Expect(engine.Run()).To(Succeed())

		Expect(ticker.ticks).To(Equal(4))
		Expect(engine.CurrentTime()).To(Equal(Cycle(4)))
	})

	It("should not schedule twice for the same cycle", func() {
		tc.TickLater()
		tc.TickLater()
		tc.NotifyRecv()

		Expect(engine.queue.Len()).To(Equal(1))
	})

	It("should tick in the current cycle when asked", func() {
		tc.TickNow()

		Expect(engine.queue.Peek().Time()).To(Equal(Cycle(0)))
	})

	It("should schedule secondary ticks into the secondary queue", func() {
		stc := NewSecondaryTickingComponent("STC", engine, ticker)

		stc.TickLater()

		Expect(engine.secondaryQueue.Len()).To(Equal(1))
		Expect(engine.queue.Len()).To(Equal(0))
	})

	It("should panic on invalid names", func() {
		Expect(func() {
			NewTickingComponent("Bad Name", engine, ticker)
		}).To(Panic())
	})
})

var _ = Describe("Freq", func() {
	It("should convert between cycles and seconds", func() {
		f := 1 * GHz

		Expect(f.Period()).To(BeNumerically("~", 1e-9, 1e-15))
		Expect(f.Seconds(2000)).To(BeNumerically("~", 2e-6, 1e-12))
		Expect(f.Cycles(3e-9)).To(Equal(Cycle(3)))
	})

	It("should panic on zero frequency", func() {
		Expect(func() { Freq(0).Period() }).To(Panic())
	})
})
