package arbitration

import (
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/unicache/sim/queueing"
)

var _ = Describe("RoundRobin", func() {
	var (
		arbiter *RoundRobin[int]
		buffers []*queueing.Buffer[int]
	)

	BeforeEach(func() {
		arbiter = NewRoundRobin[int]()
		buffers = nil

		for i := 0; i < 4; i++ {
			buf := queueing.NewBuffer[int](fmt.Sprintf("Port[%d]", i), 4)
			buffers = append(buffers, buf)
			arbiter.AddBuffer(buf)
		}
	})

	It("should return nothing if all buffers are empty", func() {
		Expect(arbiter.Arbitrate()).To(BeEmpty())
	})

	It("should rotate the first buffer", func() {
		for _, b := range buffers {
			Expect(b.Push(1)).To(Succeed())
		}

		Expect(arbiter.Arbitrate()[0]).To(BeIdenticalTo(buffers[0]))
		Expect(arbiter.Arbitrate()[0]).To(BeIdenticalTo(buffers[1]))
		Expect(arbiter.Arbitrate()[0]).To(BeIdenticalTo(buffers[2]))
		Expect(arbiter.Arbitrate()[0]).To(BeIdenticalTo(buffers[3]))
		Expect(arbiter.Arbitrate()[0]).To(BeIdenticalTo(buffers[0]))
	})

	It("should skip empty buffers", func() {
		Expect(buffers[1].Push(1)).To(Succeed())
		Expect(buffers[3].Push(1)).To(Succeed())

		order := arbiter.Arbitrate()

		Expect(order).To(HaveLen(2))
		Expect(order[0]).To(BeIdenticalTo(buffers[1]))
		Expect(order[1]).To(BeIdenticalTo(buffers[3]))
	})

	It("should serve every busy buffer first within n rounds", func() {
		for _, b := range buffers {
			Expect(b.Push(1)).To(Succeed())
		}

		servedFirst := map[*queueing.Buffer[int]]bool{}
		for i := 0; i < len(buffers); i++ {
			servedFirst[arbiter.Arbitrate()[0]] = true
		}

		Expect(servedFirst).To(HaveLen(len(buffers)))
	})
})
