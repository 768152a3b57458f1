package cmd

import (
	"github.com/sarchlab/unicache/mem/acceptancetests/memaccessagent"
	"github.com/sarchlab/unicache/monitoring"
	"github.com/sarchlab/unicache/sim"
)

// progressTracker mirrors the agent's issued and answered requests into a
// monitor progress bar after every event.
type progressTracker struct {
	monitor *monitoring.Monitor
	bar     *monitoring.ProgressBar
	agent   *memaccessagent.MemAccessAgent
	total   int
}

func newProgressTracker(
	m *monitoring.Monitor,
	agent *memaccessagent.MemAccessAgent,
	total int,
) *progressTracker {
	return &progressTracker{
		monitor: m,
		bar:     m.CreateProgressBar("Accesses", uint64(total)),
		agent:   agent,
		total:   total,
	}
}

func (t *progressTracker) Func(ctx sim.HookCtx) {
	if ctx.Pos != sim.HookPosAfterEvent {
		return
	}

	pending := t.agent.NumPending()
	issued := t.total - t.agent.ReadLeft - t.agent.WriteLeft

	t.bar.Update(uint64(issued-pending), uint64(pending))
}

func (t *progressTracker) complete() {
	t.monitor.CompleteProgressBar(t.bar)
}
