package tracing

import (
	"strings"
	"sync"

	"github.com/sarchlab/unicache/datarecording"
	"github.com/sarchlab/unicache/mem/cache/unified"
	"github.com/sarchlab/unicache/sim"
	"github.com/tebeka/atexit"
)

// Tables written by the DBTracer.
const (
	TaskTableName      = "trace"
	MilestoneTableName = "trace_milestones"
)

// TaskTableEntry is one row of the trace table.
type TaskTableEntry struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Location  string
	Address   int64
	PortID    int
	StartTime int64
	EndTime   int64
	Steps     string
}

// MilestoneTableEntry is one row of the milestone table.
type MilestoneTableEntry struct {
	TaskID   string
	Category string
	Reason   string
	Location string
	Time     int64
}

// DBTracer is a tracer that can store tasks into a database.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder

	startTime, endTime sim.Cycle
	lastTime           sim.Cycle

	tracingTasks map[string]*Task
	terminated   bool
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(dataRecorder datarecording.DataRecorder) *DBTracer {
	dataRecorder.CreateTable(TaskTableName, TaskTableEntry{})
	dataRecorder.CreateTable(MilestoneTableName, MilestoneTableEntry{})

	t := &DBTracer{
		backend:      dataRecorder,
		tracingTasks: make(map[string]*Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits the tasks recorded to the ones that overlap with
// [startTime, endTime]. An endTime of 0 means no upper bound.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.Cycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	t.lastTime = task.StartTime

	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = &task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Where == "" {
		panic("task location must be set")
	}
}

// StepTask records a step of a task.
func (t *DBTracer) StepTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	originalTask.Steps = append(originalTask.Steps, task.Steps...)
}

// AddMilestone records a blocking point of a task.
func (t *DBTracer) AddMilestone(milestone Milestone) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.tracingTasks[milestone.TaskID]; !ok {
		return
	}

	t.backend.InsertData(MilestoneTableName, MilestoneTableEntry{
		TaskID:   milestone.TaskID,
		Category: milestone.BlockingCategory,
		Reason:   milestone.BlockingReason,
		Location: milestone.BlockingLocation,
		Time:     int64(milestone.Time),
	})
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastTime = task.EndTime

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	if task.EndTime < t.startTime {
		return
	}

	originalTask.EndTime = task.EndTime
	t.write(originalTask)
}

// Terminate writes the unfinished tasks, ending at the last cycle seen, and
// flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.terminated {
		return
	}

	t.terminated = true

	for _, task := range t.tracingTasks {
		task.EndTime = t.lastTime
		t.write(task)
	}

	t.tracingTasks = make(map[string]*Task)
	t.backend.Flush()
}

func (t *DBTracer) write(task *Task) {
	entry := TaskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Where,
		StartTime: int64(task.StartTime),
		EndTime:   int64(task.EndTime),
		Steps:     joinSteps(task.Steps),
	}

	if trans, ok := task.Detail.(*unified.Transaction); ok {
		entry.Address = int64(trans.Packet.Address)
		entry.PortID = int(trans.Packet.PortID)
	}

	t.backend.InsertData(TaskTableName, entry)
}

func joinSteps(steps []TaskStep) string {
	names := make([]string, 0, len(steps))
	for _, s := range steps {
		if len(names) > 0 && names[len(names)-1] == s.What {
			continue
		}

		names = append(names, s.What)
	}

	return strings.Join(names, ",")
}
