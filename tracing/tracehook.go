package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/unicache/mem/cache/unified"
	"github.com/sarchlab/unicache/sim"
)

// NamedHookable represent something both have a name and can be hooked
type NamedHookable interface {
	sim.Named
	sim.Hookable
	Hooks() []sim.Hook
}

// Step names reported by the trace hook.
const (
	StepHit   = "hit"
	StepMiss  = "miss"
	StepMerge = "merge"
	StepStall = "stall"
)

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer, where: domain.Name()}
	domain.AcceptHook(&h)
}

// A traceHook converts the hook events of a cache into tasks.
type traceHook struct {
	t     Tracer
	where string
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	trans, ok := ctx.Item.(*unified.Transaction)
	if !ok {
		return
	}

	switch ctx.Pos {
	case unified.HookPosAccept:
		h.t.StartTask(Task{
			ID:        trans.ID,
			Kind:      "req_in",
			What:      trans.Packet.Type.String(),
			Where:     h.where,
			StartTime: ctx.Now,
			Detail:    trans,
		})
	case unified.HookPosHit:
		h.step(ctx, trans, StepHit)
	case unified.HookPosMiss:
		h.step(ctx, trans, StepMiss)
	case unified.HookPosMerge:
		h.step(ctx, trans, StepMerge)
	case unified.HookPosStall:
		h.step(ctx, trans, StepStall)
		h.milestone(ctx, trans)
	case unified.HookPosRespond:
		h.t.EndTask(Task{
			ID:      trans.ID,
			EndTime: ctx.Now,
			Detail:  trans,
		})
	}
}

func (h *traceHook) step(ctx sim.HookCtx, trans *unified.Transaction, what string) {
	h.t.StepTask(Task{
		ID:    trans.ID,
		Steps: []TaskStep{{Time: ctx.Now, What: what}},
	})
}

func (h *traceHook) milestone(ctx sim.HookCtx, trans *unified.Transaction) {
	mt, ok := h.t.(MilestoneTracer)
	if !ok {
		return
	}

	reason, _ := ctx.Detail.(unified.StallReason)

	mt.AddMilestone(Milestone{
		TaskID:           trans.ID,
		BlockingCategory: StepStall,
		BlockingReason:   reason.String(),
		BlockingLocation: h.where,
		Time:             ctx.Now,
	})
}
