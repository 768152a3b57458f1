package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/mem/cache/unified"
	"github.com/sarchlab/unicache/packet"
	"github.com/sarchlab/unicache/sim"
)

type testDomain struct {
	*sim.HookableBase
	name string
}

func (d *testDomain) Name() string {
	return d.name
}

func newTestDomain() *testDomain {
	return &testDomain{
		HookableBase: sim.NewHookableBase(),
		name:         "Cache",
	}
}

func newTestTransaction(id string) *unified.Transaction {
	return &unified.Transaction{
		ID: id,
		Packet: packet.Packet{
			Address:   0x40,
			Type:      packet.DataLoad,
			PortID:    2,
			Valid:     true,
			Cacheable: true,
		},
	}
}

func fire(
	d *testDomain,
	pos *sim.HookPos,
	now sim.Cycle,
	item, detail interface{},
) {
	d.InvokeHook(sim.HookCtx{
		Domain: d,
		Pos:    pos,
		Now:    now,
		Item:   item,
		Detail: detail,
	})
}

// runMissWithStalls replays the events of a miss that stalled twice.
func runMissWithStalls(d *testDomain, trans *unified.Transaction) {
	fire(d, unified.HookPosAccept, 10, trans, nil)
	fire(d, unified.HookPosStall, 11, trans, unified.StallMSHRFull)
	fire(d, unified.HookPosStall, 12, trans, unified.StallMSHRFull)
	fire(d, unified.HookPosMiss, 13, trans, nil)
	fire(d, unified.HookPosFill, 25, unified.Fill{LineAddress: 0x40}, nil)
	fire(d, unified.HookPosRespond, 30, trans, trans.Packet)
}

var _ = Describe("Trace hook", func() {
	var domain *testDomain

	BeforeEach(func() {
		domain = newTestDomain()
	})

	It("should not attach the same tracer twice", func() {
		tracer := NewStepCountTracer(AllTasks)
		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})

	It("should count steps", func() {
		tracer := NewStepCountTracer(AllTasks)
		CollectTrace(domain, tracer)

		runMissWithStalls(domain, newTestTransaction("t1"))

		Expect(tracer.GetStepNames()).To(Equal([]string{StepStall, StepMiss}))
		Expect(tracer.GetStepCount(StepStall)).To(Equal(uint64(2)))
		Expect(tracer.GetTaskCount(StepStall)).To(Equal(uint64(1)))
		Expect(tracer.GetTaskCount(StepMiss)).To(Equal(uint64(1)))
		Expect(tracer.GetTaskCount(StepHit)).To(Equal(uint64(0)))
	})

	It("should ignore filtered tasks", func() {
		tracer := NewStepCountTracer(KindIs("other"))
		CollectTrace(domain, tracer)

		runMissWithStalls(domain, newTestTransaction("t1"))

		Expect(tracer.GetStepNames()).To(BeEmpty())
	})

	It("should measure the latency of tasks", func() {
		tracer := NewAverageTimeTracer(AllTasks)
		CollectTrace(domain, tracer)

		runMissWithStalls(domain, newTestTransaction("t1"))

		t2 := newTestTransaction("t2")
		fire(domain, unified.HookPosAccept, 40, t2, nil)
		fire(domain, unified.HookPosHit, 40, t2, nil)
		fire(domain, unified.HookPosRespond, 40, t2, t2.Packet)

		Expect(tracer.TotalCount()).To(Equal(uint64(2)))
		Expect(tracer.AverageTime()).To(BeNumerically("~", 10.0))
		Expect(tracer.MaxTime()).To(Equal(sim.Cycle(20)))
	})
})
