package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("SerialEngine", func() {
	var (
		engine *SerialEngine
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
	})

	It("should run events in time order", func() {
		handler := &recordingHandler{}
		handler.onEvent = func(e Event) {
			if e.Time() == 2 {
				engine.Schedule(NewEventBase(3, handler))
			}
		}

		engine.Schedule(NewEventBase(4, handler))
		engine.Schedule(NewEventBase(2, handler))

		Expect(engine.Run()).To(Succeed())

		times := []Cycle{}
		for _, e := range handler.handled {
			times = append(times, e.Time())
		}
		Expect(times).To(Equal([]Cycle{2, 3, 4}))
		Expect(engine.CurrentTime()).To(Equal(Cycle(4)))
	})

	It("should panic when scheduling an event in the past", func() {
		handler := &recordingHandler{}
		engine.Schedule(NewEventBase(5, handler))
		Expect(engine.Run()).To(Succeed())

		Expect(func() {
			engine.Schedule(NewEventBase(1, handler))
		}).To(Panic())
	})

	It("should stop at the limit when running until a cycle", func() {
		handler := &recordingHandler{}
		engine.Schedule(NewEventBase(1, handler))
		engine.Schedule(NewEventBase(10, handler))

		Expect(engine.RunUntil(5)).To(Succeed())
		Expect(handler.handled).To(HaveLen(1))

		Expect(engine.Run()).To(Succeed())
		Expect(handler.handled).To(HaveLen(2))
	})

	It("should report handler errors", func() {
		engine.Schedule(NewEventBase(1, failingHandler{}))

		err := engine.Run()

		Expect(err).To(MatchError(ContainSubstring("boom")))
	})

	It("should invoke hooks around events", func() {
		positions := []*HookPos{}
		engine.AcceptHook(HookFunc(func(ctx HookCtx) {
			positions = append(positions, ctx.Pos)
		}))
		engine.Schedule(NewEventBase(1, &recordingHandler{}))

		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal(
			[]*HookPos{HookPosBeforeEvent, HookPosAfterEvent}))
	})

	It("should call simulation end handlers", func() {
		endHandler := &endRecorder{}
		engine.RegisterSimulationEndHandler(endHandler)
		engine.Schedule(NewEventBase(7, &recordingHandler{}))
		Expect(engine.Run()).To(Succeed())

		engine.Finished()

		Expect(endHandler.endedAt).To(Equal(Cycle(7)))
	})
})

type failingHandler struct{}

func (failingHandler) Handle(_ Event) error {
	return errors.New("boom")
}

type endRecorder struct {
	endedAt Cycle
}

func (r *endRecorder) Handle(now Cycle) {
	r.endedAt = now
}
