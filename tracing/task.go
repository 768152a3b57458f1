package tracing

import "github.com/sarchlab/unicache/sim"

// A TaskStep represents a milestone in the processing of task
type TaskStep struct {
	Time sim.Cycle `json:"time"`
	What string    `json:"what"`
}

// A Task is the processing of one request by the cache, from the cycle it is
// accepted to the cycle its response is queued.
type Task struct {
	ID        string      `json:"id"`
	ParentID  string      `json:"parent_id"`
	Kind      string      `json:"kind"`
	What      string      `json:"what"`
	Where     string      `json:"where"`
	StartTime sim.Cycle   `json:"start_time"`
	EndTime   sim.Cycle   `json:"end_time"`
	Steps     []TaskStep  `json:"steps"`
	Detail    interface{} `json:"-"`
}

// TaskFilter is a function that can filter interesting tasks. If this function
// returns true, the task is considered useful.
type TaskFilter func(t Task) bool

// AllTasks accepts every task.
func AllTasks(Task) bool { return true }

// KindIs returns a filter that accepts the tasks of one kind.
func KindIs(kind string) TaskFilter {
	return func(t Task) bool { return t.Kind == kind }
}

// Milestone represents a point in time where a task is blocked
type Milestone struct {
	TaskID           string    `json:"task_id"`
	BlockingCategory string    `json:"blocking_category"`
	BlockingReason   string    `json:"blocking_reason"`
	BlockingLocation string    `json:"blocking_location"`
	Time             sim.Cycle `json:"time"`
}
