package unified

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/unicache/config"
	"github.com/sarchlab/unicache/mem/mem"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
	"github.com/sarchlab/unicache/sim/queueing"
)

func smallParams() config.Params {
	return config.Params{
		Mode:                config.Simulation,
		CacheSizeBytes:      64,
		Associativity:       2,
		InputQueueSize:      4,
		WritebackBufferSize: 2,
		MissBufferSize:      2,
		ReturnQueueSize:     4,
		MaxNumInputPorts:    4,
		CPUDataBits:         32,
		CPUInstBits:         32,
		FetchWidthBits:      128,
	}
}

func load(port uint32, addr uint64) packet.Packet {
	return packet.Packet{
		Address:   addr,
		Data:      make([]byte, 4),
		Type:      packet.DataLoad,
		PortID:    port,
		Valid:     true,
		Cacheable: true,
	}
}

func store(port uint32, addr uint64, data []byte, mask uint64) packet.Packet {
	return packet.Packet{
		Address:   addr,
		Data:      data,
		Type:      packet.DataRFO,
		ByteMask:  mask,
		PortID:    port,
		Valid:     true,
		IsWrite:   true,
		Cacheable: true,
	}
}

var _ = Describe("Unified Cache", func() {
	var (
		mockCtrl  *gomock.Controller
		lowModule *MockLowModule
		engine    *sim.SerialEngine
		c         *Comp

		rejectWrites bool
		sent         []mem.Msg
		bottomRsps   []mem.Msg
	)

	lastRead := func() *mem.ReadReq {
		for i := len(sent) - 1; i >= 0; i-- {
			if r, ok := sent[i].(*mem.ReadReq); ok {
				return r
			}
		}

		return nil
	}

	writes := func() []*mem.WriteReq {
		var ws []*mem.WriteReq
		for _, m := range sent {
			if w, ok := m.(*mem.WriteReq); ok {
				ws = append(ws, w)
			}
		}

		return ws
	}

	serveRead := func(req *mem.ReadReq, data []byte) {
		bottomRsps = append(bottomRsps, mem.DataReadyRspBuilder{}.
			WithRspTo(req.ID).
			WithData(data).
			Build())
	}

	ackWrite := func(req *mem.WriteReq) {
		bottomRsps = append(bottomRsps, mem.WriteDoneRspBuilder{}.
			WithRspTo(req.ID).
			Build())
	}

	// completeMiss sends a packet that misses, serves its fill and returns
	// the response.
	completeMiss := func(pkt packet.Packet, data []byte) packet.Packet {
		prev := lastRead()

		Expect(c.Send(pkt)).To(Succeed())
		c.Tick()
		c.Tick()

		read := lastRead()
		Expect(read).NotTo(BeNil())
		Expect(read).NotTo(BeIdenticalTo(prev))

		serveRead(read, data)
		c.Tick()

		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())

		return rsp
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		lowModule = NewMockLowModule(mockCtrl)
		engine = sim.NewSerialEngine()

		rejectWrites = false
		sent = nil
		bottomRsps = nil

		lowModule.EXPECT().Name().Return("Memory").AnyTimes()
		lowModule.EXPECT().CanAccept().Return(true).AnyTimes()
		lowModule.EXPECT().
			Send(gomock.Any()).
			DoAndReturn(func(m mem.Msg) error {
				if _, ok := m.(*mem.WriteReq); ok && rejectWrites {
					return queueing.ErrCapacityExceeded
				}

				sent = append(sent, m)

				return nil
			}).
			AnyTimes()
		lowModule.EXPECT().
			Retrieve().
			DoAndReturn(func() (mem.Msg, bool) {
				if len(bottomRsps) == 0 {
					return nil, false
				}

				m := bottomRsps[0]
				bottomRsps = bottomRsps[1:]

				return m, true
			}).
			AnyTimes()

		c = MakeBuilder().
			WithEngine(engine).
			WithConfig(config.MustNew(smallParams())).
			WithLowModule(lowModule).
			Build("Cache")
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("sending", func() {
		It("should reject packets without the valid bit", func() {
			pkt := load(0, 0x10)
			pkt.Valid = false

			err := c.Send(pkt)

			Expect(errors.Is(err, packet.ErrMalformedPacket)).To(BeTrue())
		})

		It("should reject malformed packets", func() {
			pkt := load(0, 0x10)
			pkt.Type = 0b0111

			err := c.Send(pkt)

			Expect(errors.Is(err, packet.ErrMalformedPacket)).To(BeTrue())
		})

		It("should reject packets for ports that do not exist", func() {
			err := c.Send(load(4, 0x10))

			Expect(errors.Is(err, packet.ErrMalformedPacket)).To(BeTrue())
		})

		It("should push back when the input queue is full", func() {
			for i := 0; i < 4; i++ {
				Expect(c.Send(load(0, uint64(i*4)))).To(Succeed())
			}

			Expect(c.CanSend(0)).To(BeFalse())
			Expect(c.CanSend(1)).To(BeTrue())

			err := c.Send(load(0, 0x40))
			Expect(errors.Is(err, queueing.ErrCapacityExceeded)).To(BeTrue())
			Expect(c.Stats().Accepted).To(Equal(uint64(4)))
		})
	})

	It("should fetch a missing line and respond with its data", func() {
		Expect(c.Send(load(0, 0x10))).To(Succeed())

		c.Tick()
		Expect(c.NumInflightMisses()).To(Equal(1))
		Expect(sent).To(BeEmpty())

		c.Tick()
		Expect(sent).To(HaveLen(1))

		read := sent[0].(*mem.ReadReq)
		Expect(read.Address).To(Equal(uint64(0x10)))
		Expect(read.AccessByteSize).To(Equal(uint64(4)))

		serveRead(read, []byte{1, 2, 3, 4})
		c.Tick()

		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(rsp.Valid).To(BeTrue())
		Expect(rsp.Address).To(Equal(uint64(0x10)))
		Expect(rsp.Type).To(Equal(packet.DataLoad))
		Expect(rsp.Data).To(Equal([]byte{1, 2, 3, 4}))

		stats := c.Stats()
		Expect(stats.Misses).To(Equal(uint64(1)))
		Expect(stats.Fills).To(Equal(uint64(1)))
		Expect(stats.Responses).To(Equal(uint64(1)))
		Expect(c.NumInflightMisses()).To(Equal(0))
	})

	It("should hit on a resident line", func() {
		completeMiss(load(0, 0x10), []byte{1, 2, 3, 4})

		Expect(c.Send(load(1, 0x12))).To(Succeed())
		c.Tick()

		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(rsp.PortID).To(Equal(uint32(1)))
		Expect(rsp.Data).To(Equal([]byte{1, 2, 3, 4}))
		Expect(c.Stats().Hits).To(Equal(uint64(1)))
		Expect(sent).To(HaveLen(1))
	})

	It("should merge misses to the same line", func() {
		Expect(c.Send(load(0, 0x10))).To(Succeed())
		Expect(c.Send(load(1, 0x11))).To(Succeed())

		c.Tick()
		Expect(c.Stats().BankConflicts).To(Equal(uint64(1)))

		c.Tick()
		Expect(sent).To(HaveLen(1))
		Expect(c.Stats().Merges).To(Equal(uint64(1)))
		Expect(c.NumInflightMisses()).To(Equal(1))

		serveRead(sent[0].(*mem.ReadReq), []byte{5, 6, 7, 8})
		c.Tick()

		first, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		second, ok := c.Retrieve()
		Expect(ok).To(BeTrue())

		Expect(first.PortID).To(Equal(uint32(0)))
		Expect(second.PortID).To(Equal(uint32(1)))
		Expect(first.Data).To(Equal(second.Data))
	})

	It("should stall when the mshr is full and recover", func() {
		Expect(c.Send(load(0, 0x00))).To(Succeed())
		Expect(c.Send(load(1, 0x04))).To(Succeed())
		Expect(c.Send(load(2, 0x08))).To(Succeed())

		c.Tick()
		Expect(c.NumInflightMisses()).To(Equal(2))
		Expect(c.Stats().StallMSHRFull).To(Equal(uint64(1)))

		c.Tick()
		Expect(sent).To(HaveLen(2))

		serveRead(sent[0].(*mem.ReadReq), []byte{1, 1, 1, 1})
		c.Tick()
		Expect(c.NumInflightMisses()).To(Equal(2))

		c.Tick()
		Expect(sent).To(HaveLen(3))
		Expect(sent[2].(*mem.ReadReq).Address).To(Equal(uint64(0x08)))
	})

	It("should apply writes to resident lines and write dirty victims back", func() {
		completeMiss(load(0, 0x00), []byte{1, 2, 3, 4})

		Expect(c.Send(store(0, 0x01, []byte{0, 0xaa, 0xbb, 0}, 0b1))).
			To(Succeed())
		c.Tick()

		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(rsp.IsWrite).To(BeTrue())
		Expect(rsp.ByteMask).To(Equal(uint64(0b1)))
		Expect(rsp.Data).To(Equal([]byte{1, 0xaa, 3, 4}))

		completeMiss(load(0, 0x20), []byte{2, 2, 2, 2})
		Expect(writes()).To(BeEmpty())

		completeMiss(load(0, 0x40), []byte{3, 3, 3, 3})

		Expect(writes()).To(HaveLen(1))
		w := writes()[0]
		Expect(w.Address).To(Equal(uint64(0x00)))
		Expect(w.Data).To(Equal([]byte{1, 0xaa, 3, 4}))
		Expect(w.DirtyMask).To(Equal([]bool{true, true, true, true}))

		stats := c.Stats()
		Expect(stats.Evictions).To(Equal(uint64(1)))
		Expect(stats.Writebacks).To(Equal(uint64(1)))
	})

	It("should not fetch a line until its write back has left", func() {
		completeMiss(load(0, 0x00), []byte{1, 2, 3, 4})
		Expect(c.Send(store(0, 0x00, []byte{9, 0, 0, 0}, 0b1))).To(Succeed())
		c.Tick()
		_, _ = c.Retrieve()

		completeMiss(load(0, 0x20), []byte{2, 2, 2, 2})

		rejectWrites = true
		completeMiss(load(0, 0x40), []byte{3, 3, 3, 3})
		Expect(writes()).To(BeEmpty())

		numSent := len(sent)
		Expect(c.Send(load(1, 0x00))).To(Succeed())
		c.Tick()
		c.Tick()
		Expect(sent).To(HaveLen(numSent))

		rejectWrites = false
		c.Tick()

		Expect(sent).To(HaveLen(numSent + 2))
		Expect(sent[numSent].(*mem.WriteReq).Address).To(Equal(uint64(0x00)))
		Expect(sent[numSent+1].(*mem.ReadReq).Address).To(Equal(uint64(0x00)))
	})

	It("should apply merged writes in arrival order", func() {
		Expect(c.Send(store(0, 0x10, []byte{0xa, 0, 0, 0}, 0b1))).To(Succeed())
		Expect(c.Send(load(1, 0x10))).To(Succeed())
		Expect(c.Send(store(2, 0x10, []byte{0xb, 0xc, 0, 0}, 0b11))).
			To(Succeed())

		for i := 0; i < 4; i++ {
			c.Tick()
		}

		Expect(c.Stats().Merges).To(Equal(uint64(2)))

		serveRead(lastRead(), []byte{1, 2, 3, 4})
		c.Tick()

		r0, _ := c.Retrieve()
		r1, _ := c.Retrieve()
		r2, _ := c.Retrieve()

		Expect(r0.Data).To(Equal([]byte{0xa, 2, 3, 4}))
		Expect(r1.Data).To(Equal([]byte{0xa, 2, 3, 4}))
		Expect(r2.Data).To(Equal([]byte{0xb, 0xc, 3, 4}))

		Expect(c.Send(load(3, 0x10))).To(Succeed())
		c.Tick()

		hit, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(hit.Data).To(Equal([]byte{0xb, 0xc, 3, 4}))
	})

	It("should not keep non-cacheable lines", func() {
		pkt := load(0, 0x10)
		pkt.Cacheable = false

		rsp := completeMiss(pkt, []byte{1, 2, 3, 4})
		Expect(rsp.Cacheable).To(BeFalse())

		completeMiss(pkt, []byte{1, 2, 3, 4})

		Expect(c.Stats().Misses).To(Equal(uint64(2)))
		Expect(c.Stats().Hits).To(Equal(uint64(0)))
	})

	It("should write non-cacheable write misses around the cache", func() {
		pkt := store(0, 0x11, []byte{0, 5, 6, 0}, 0b11)
		pkt.Cacheable = false

		Expect(c.Send(pkt)).To(Succeed())
		c.Tick()

		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(rsp.Data).To(Equal([]byte{0, 5, 6, 0}))

		c.Tick()

		Expect(writes()).To(HaveLen(1))
		Expect(writes()[0].Address).To(Equal(uint64(0x10)))
		Expect(writes()[0].DirtyMask).To(Equal([]bool{false, true, true, false}))
		Expect(c.Stats().WriteArounds).To(Equal(uint64(1)))
		Expect(c.NumInflightMisses()).To(Equal(0))
	})

	It("should write a whole line for a writeback without mask", func() {
		completeMiss(load(0, 0x10), []byte{1, 2, 3, 4})

		pkt := store(0, 0x10, []byte{9, 8, 7, 6}, 0)
		pkt.Type = packet.DataWriteback

		Expect(c.Send(pkt)).To(Succeed())
		c.Tick()

		rsp, _ := c.Retrieve()
		Expect(rsp.Data).To(Equal([]byte{9, 8, 7, 6}))
	})

	It("should stall when the return queue is full", func() {
		completeMiss(load(0, 0x10), []byte{1, 2, 3, 4})

		for i := 0; i < 4; i++ {
			Expect(c.Send(load(uint32(i), 0x10))).To(Succeed())
		}

		for i := 0; i < 4; i++ {
			c.Tick()
		}

		Expect(c.Stats().Hits).To(Equal(uint64(4)))

		Expect(c.Send(load(0, 0x10))).To(Succeed())
		c.Tick()
		Expect(c.Stats().StallReturnQueueFull).To(Equal(uint64(1)))

		_, ok := c.Retrieve()
		Expect(ok).To(BeTrue())

		c.Tick()
		Expect(c.Stats().Hits).To(Equal(uint64(5)))
	})

	It("should flush dirty lines", func() {
		completeMiss(load(0, 0x10), []byte{1, 2, 3, 4})
		Expect(c.Send(store(0, 0x10, []byte{7, 0, 0, 0}, 0b1))).To(Succeed())
		c.Tick()
		_, _ = c.Retrieve()

		c.Flush()
		Expect(c.IsFlushed()).To(BeFalse())

		c.Tick()
		c.Tick()
		c.Tick()

		Expect(writes()).To(HaveLen(1))
		Expect(writes()[0].Data).To(Equal([]byte{7, 2, 3, 4}))
		Expect(c.IsFlushed()).To(BeFalse())

		ackWrite(writes()[0])
		c.Tick()

		Expect(c.IsFlushed()).To(BeTrue())
		Expect(c.Stats().Flushes).To(Equal(uint64(1)))

		Expect(c.Send(load(0, 0x10))).To(Succeed())
		c.Tick()
		rsp, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(rsp.Data).To(Equal([]byte{7, 2, 3, 4}))
	})

	It("should hold new packets during a flush", func() {
		c.Flush()
		Expect(c.Send(load(0, 0x10))).To(Succeed())

		c.Tick()
		Expect(c.NumInflightMisses()).To(Equal(0))

		c.Tick()
		Expect(c.IsFlushed()).To(BeTrue())
		Expect(c.NumInflightMisses()).To(Equal(1))
	})

	It("should invoke hooks in order", func() {
		var positions []*sim.HookPos
		c.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		completeMiss(load(0, 0x10), []byte{1, 2, 3, 4})

		Expect(positions).To(Equal([]*sim.HookPos{
			HookPosAccept, HookPosMiss, HookPosFill, HookPosRespond,
		}))
	})

	It("should list its buffers", func() {
		Expect(c.Buffers()).To(HaveLen(4 + 2))
	})
})

var _ = Describe("Return queue", func() {
	It("should reject the 17th response until one is taken", func() {
		mockCtrl := gomock.NewController(GinkgoT())
		defer mockCtrl.Finish()

		c := MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithLowModule(NewMockLowModule(mockCtrl)).
			Build("Cache")

		for i := 0; i < 16; i++ {
			Expect(c.returnQueue.Push(load(0, uint64(i*64)))).To(Succeed())
		}

		err := c.returnQueue.Push(load(0, 0x4000))
		Expect(errors.Is(err, queueing.ErrCapacityExceeded)).To(BeTrue())

		_, ok := c.Retrieve()
		Expect(ok).To(BeTrue())
		Expect(c.returnQueue.Push(load(0, 0x4000))).To(Succeed())
	})
})
