package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskStatus defines the possible states of a maintenance task.
type TaskStatus string

const (
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// Task is a snapshot or journal rewrite started with ?async=true.
type Task struct {
	mu         sync.RWMutex
	id         string
	kind       string
	status     TaskStatus
	err        string
	startedAt  time.Time
	finishedAt time.Time
}

// TaskView is the JSON form of a Task.
type TaskView struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	Status     TaskStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

func (t *Task) View() TaskView {
	t.mu.RLock()
	defer t.mu.RUnlock()

	v := TaskView{ID: t.id, Kind: t.kind, Status: t.status, Error: t.err, StartedAt: t.startedAt}
	if !t.finishedAt.IsZero() {
		finished := t.finishedAt
		v.FinishedAt = &finished
	}
	return v
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finishedAt = time.Now()
	if err != nil {
		t.status = TaskStatusFailed
		t.err = err.Error()
		return
	}
	t.status = TaskStatusCompleted
}

// TaskManager tracks asynchronous maintenance tasks.
type TaskManager struct {
	mu    sync.RWMutex
	tasks map[string]*Task
	wg    sync.WaitGroup
}

func NewTaskManager() *TaskManager {
	return &TaskManager{tasks: make(map[string]*Task)}
}

// Run starts fn in its own goroutine and returns the task tracking it.
func (tm *TaskManager) Run(kind string, fn func() error) *Task {
	task := &Task{
		id:        uuid.NewString(),
		kind:      kind,
		status:    TaskStatusRunning,
		startedAt: time.Now(),
	}

	tm.mu.Lock()
	tm.tasks[task.id] = task
	tm.mu.Unlock()

	tm.wg.Add(1)
	go func() {
		defer tm.wg.Done()
		task.finish(fn())
	}()
	return task
}

func (tm *TaskManager) GetTask(id string) (*Task, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	task, found := tm.tasks[id]
	return task, found
}

// Wait blocks until every started task has finished.
func (tm *TaskManager) Wait() {
	tm.wg.Wait()
}
