package sweep

import (
	"sync"
	"time"
)

// TaskKind distinguishes deletion batches from sync runs.
type TaskKind string

const (
	TaskDelete TaskKind = "delete"
	TaskSync   TaskKind = "sync"
)

// DefaultTaskTTL is how long a completed task stays visible before the
// tracker drops it.
const DefaultTaskTTL = 5 * time.Second

// TaskState is the mutable state of one tracked operation. Mutations
// happen inside ProgressTracker.Update under the tracker's lock.
type TaskState struct {
	ID             string
	Kind           TaskKind
	Name           string
	Status         string
	Progress       int // 0..100
	TotalFiles     int
	ProcessedFiles int
	TotalBytes     int64
	ProcessedBytes int64
	StartedAt      time.Time
}

// TaskSnapshot is a read-only copy of a task's state at one instant.
type TaskSnapshot struct {
	TaskState
	Done bool
}

// ProgressTracker is an in-memory registry of running long operations.
// It is safe for concurrent use: one scan worker, several sync workers,
// and a UI poller may touch it at once. Completed tasks expire on their
// own after a short TTL.
type ProgressTracker struct {
	mu    sync.Mutex
	tasks map[string]*trackedTask
	ttl   time.Duration
}

type trackedTask struct {
	state TaskState
	done  bool
}

// NewProgressTracker creates a tracker with the default completion TTL.
func NewProgressTracker() *ProgressTracker {
	return NewProgressTrackerWithTTL(DefaultTaskTTL)
}

// NewProgressTrackerWithTTL creates a tracker whose completed tasks are
// dropped after ttl. Tests use a short ttl.
func NewProgressTrackerWithTTL(ttl time.Duration) *ProgressTracker {
	return &ProgressTracker{tasks: make(map[string]*trackedTask), ttl: ttl}
}

// Create registers a new task.
func (t *ProgressTracker) Create(id string, kind TaskKind, name string, startedAt time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks[id] = &trackedTask{
		state: TaskState{
			ID:        id,
			Kind:      kind,
			Name:      name,
			Status:    "starting",
			StartedAt: startedAt,
		},
	}
}

// Update mutates a task's state under the tracker lock. Unknown or
// already-completed task IDs are ignored.
func (t *ProgressTracker) Update(id string, fn func(*TaskState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok || task.done {
		return
	}
	fn(&task.state)
}

// Complete marks a task finished and schedules its removal after the
// tracker's TTL.
func (t *ProgressTracker) Complete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	task, ok := t.tasks[id]
	if !ok {
		return
	}
	task.done = true
	task.state.Progress = 100
	time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.tasks, id)
	})
}

// List returns snapshot copies of all tracked tasks. Callers never see a
// live reference, so a concurrent update cannot tear a read.
func (t *ProgressTracker) List() []TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TaskSnapshot, 0, len(t.tasks))
	for _, task := range t.tasks {
		out = append(out, TaskSnapshot{TaskState: task.state, Done: task.done})
	}
	return out
}

// Clear drops every task immediately.
func (t *ProgressTracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tasks = make(map[string]*trackedTask)
}
