package queueing

import (
	"github.com/sarchlab/unicache/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Buffer", func() {
	var (
		buf *Buffer[int]
	)

	BeforeEach(func() {
		buf = NewBuffer[int]("Buf", 2)
	})

	It("should allow push and pop", func() {
		Expect(buf.Name()).To(Equal("Buf"))
		Expect(buf.Capacity()).To(Equal(2))
		Expect(buf.CanPush()).To(BeTrue())

		Expect(buf.Push(1)).To(Succeed())
		Expect(buf.CanPush()).To(BeTrue())
		Expect(buf.Size()).To(Equal(1))

		Expect(buf.Push(2)).To(Succeed())
		Expect(buf.CanPush()).To(BeFalse())
		Expect(buf.Size()).To(Equal(2))

		err := buf.Push(3)
		Expect(err).To(MatchError(ErrCapacityExceeded))
		Expect(err.Error()).To(ContainSubstring("Buf"))
		Expect(buf.Size()).To(Equal(2))

		head, ok := buf.Peek()
		Expect(ok).To(BeTrue())
		Expect(head).To(Equal(1))

		e, ok := buf.Pop()
		Expect(ok).To(BeTrue())
		Expect(e).To(Equal(1))
		Expect(buf.Size()).To(Equal(1))

		e, _ = buf.Pop()
		Expect(e).To(Equal(2))

		_, ok = buf.Pop()
		Expect(ok).To(BeFalse())
		_, ok = buf.Peek()
		Expect(ok).To(BeFalse())
	})

	It("should accept again once an element is popped", func() {
		Expect(buf.Push(1)).To(Succeed())
		Expect(buf.Push(2)).To(Succeed())
		Expect(buf.Push(3)).NotTo(Succeed())

		buf.Pop()

		Expect(buf.Push(3)).To(Succeed())
		Expect(buf.Elements()).To(Equal([]int{2, 3}))
	})

	It("should clear", func() {
		Expect(buf.Push(2)).To(Succeed())

		buf.Clear()

		Expect(buf.Size()).To(Equal(0))
	})

	It("should invoke hooks on push and pop", func() {
		positions := []*sim.HookPos{}
		buf.AcceptHook(sim.HookFunc(func(ctx sim.HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		Expect(buf.Push(5)).To(Succeed())
		buf.Pop()

		Expect(positions).To(Equal(
			[]*sim.HookPos{HookPosBufPush, HookPosBufPop}))
	})

	It("should panic on a non-positive capacity", func() {
		Expect(func() { NewBuffer[int]("Zero", 0) }).To(Panic())
	})
})
