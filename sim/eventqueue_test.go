package sim

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("EventQueueImpl", func() {
	var (
		queue   *EventQueueImpl
		handler *recordingHandler
	)

	BeforeEach(func() {
		queue = NewEventQueue()
		handler = &recordingHandler{}
	})

	It("should pop in time order", func() {
		queue.Push(NewEventBase(5, handler))
		queue.Push(NewEventBase(2, handler))
		queue.Push(NewEventBase(9, handler))

		Expect(queue.Len()).To(Equal(3))
		Expect(queue.Peek().Time()).To(Equal(Cycle(2)))
		Expect(queue.Pop().Time()).To(Equal(Cycle(2)))
		Expect(queue.Pop().Time()).To(Equal(Cycle(5)))
		Expect(queue.Pop().Time()).To(Equal(Cycle(9)))
		Expect(queue.Len()).To(Equal(0))
	})

	It("should keep insertion order for events at the same cycle", func() {
		evt1 := NewEventBase(3, handler)
		evt2 := NewEventBase(3, handler)
		evt3 := NewEventBase(3, handler)

		queue.Push(evt1)
		queue.Push(evt2)
		queue.Push(evt3)

		Expect(queue.Pop()).To(BeIdenticalTo(evt1))
		Expect(queue.Pop()).To(BeIdenticalTo(evt2))
		Expect(queue.Pop()).To(BeIdenticalTo(evt3))
	})
})
