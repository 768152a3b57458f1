// Package tracing turns the hook events of the unified cache into tasks and
// collects statistics, logs and database records from them.
package tracing

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// A MilestoneTracer also wants to know when tasks are blocked.
type MilestoneTracer interface {
	Tracer
	AddMilestone(milestone Milestone)
}
