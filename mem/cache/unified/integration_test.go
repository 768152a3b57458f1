package unified

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/config"
	"github.com/sarchlab/unicache/mem/idealmemcontroller"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
)

var _ = Describe("Cache with ideal memory", func() {
	var (
		engine  *sim.SerialEngine
		memCtrl *idealmemcontroller.Comp
		c       *Comp
	)

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
		memCtrl = idealmemcontroller.MakeBuilder().
			WithEngine(engine).
			WithLatency(20).
			WithNewStorage(1 << 20).
			Build("Memory")
		c = MakeBuilder().
			WithEngine(engine).
			WithConfig(config.MustNew(config.DefaultParams(config.Production))).
			WithLowModule(memCtrl).
			Build("Cache")
		memCtrl.SetUpperNotifier(c)
	})

	It("should serve two loads of one block with a single read", func() {
		line := make([]byte, 64)
		for i := range line {
			line[i] = byte(i)
		}
		Expect(memCtrl.Storage.Write(0x1000, line)).To(Succeed())

		p0 := packet.Packet{
			Address:   0x1008,
			Data:      make([]byte, 64),
			Type:      packet.DataLoad,
			PortID:    0,
			Valid:     true,
			Cacheable: true,
		}
		p1 := p0.Clone()
		p1.Address = 0x1010
		p1.PortID = 3

		Expect(c.Send(p0)).To(Succeed())
		Expect(c.Send(p1)).To(Succeed())

		Expect(engine.Run()).To(Succeed())

		r0, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		r1, ok := c.Retrieve()
		Expect(ok).To(BeTrue())

		Expect(r0.Data).To(Equal(line))
		Expect(r1.Data).To(Equal(line))
		Expect(memCtrl.NumServed()).To(Equal(uint64(1)))
		Expect(c.Stats().Misses).To(Equal(uint64(1)))
		Expect(c.Stats().Merges).To(Equal(uint64(1)))
	})

	It("should write dirty lines back on flush", func() {
		data := make([]byte, 64)
		data[4] = 0xee

		st := packet.Packet{
			Address:   0x2000,
			Data:      data,
			Type:      packet.DataRFO,
			ByteMask:  1 << 4,
			Valid:     true,
			IsWrite:   true,
			Cacheable: true,
		}

		Expect(c.Send(st)).To(Succeed())
		Expect(engine.Run()).To(Succeed())

		_, ok := c.Retrieve()
		Expect(ok).To(BeTrue())

		c.Flush()
		Expect(engine.Run()).To(Succeed())
		Expect(c.IsFlushed()).To(BeTrue())

		stored, err := memCtrl.Storage.Read(0x2000, 64)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored[4]).To(Equal(byte(0xee)))
	})
})
