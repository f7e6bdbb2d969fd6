// Package task spawns programs resolved from application namespaces.
//
// Two spawners are provided. Scheduler runs registered in-process programs
// as goroutines and is what the hosted boot uses by default. ExecSpawner
// starts the object file as an operating system process. Both are
// fire-and-forget: Spawn returns as soon as the task has been started and
// the caller does not manage its lifetime afterwards.
package task

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/id"
)

// State is the task lifecycle state
type State int

const (
	StateRunning State = iota
	StateExited
	StateFailed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Task is a handle to a spawned task.
type Task struct {
	id        id.TaskID
	name      string
	path      string
	ns        *namespace.Namespace
	startedAt time.Time
	done      chan struct{}

	mu    sync.Mutex
	state State // Protected by mu
	err   error // Protected by mu
	pid   int   // Protected by mu; 0 for in-process tasks
}

func newTask(name, path string, ns *namespace.Namespace) *Task {
	return &Task{
		id:        id.NewTaskID(),
		name:      name,
		path:      path,
		ns:        ns,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		state:     StateRunning,
	}
}

// ID returns the unique task ID
func (t *Task) ID() id.TaskID { return t.id }

// Name returns the task name
func (t *Task) Name() string { return t.name }

// Path returns the absolute path of the program object
func (t *Task) Path() string { return t.path }

// Namespace returns the namespace the task runs in
func (t *Task) Namespace() *namespace.Namespace { return t.ns }

// Done is closed when the task has finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// State returns the current state
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the error the task finished with, if any.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Wait blocks until the task finishes or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) setPID(pid int) {
	t.mu.Lock()
	t.pid = pid
	t.mu.Unlock()
}

func (t *Task) finish(err error) {
	t.mu.Lock()
	t.err = err
	if err != nil {
		t.state = StateFailed
	} else {
		t.state = StateExited
	}
	t.mu.Unlock()
	close(t.done)
}

// Info is a serializable snapshot of a task
type Info struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	Namespace string    `json:"namespace"`
	State     string    `json:"state"`
	PID       int       `json:"pid,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
}

// Info returns a snapshot of the task
func (t *Task) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	info := Info{
		ID:        t.id.String(),
		Name:      t.name,
		Path:      t.path,
		Namespace: t.ns.ID().String(),
		State:     t.state.String(),
		PID:       t.pid,
		StartedAt: t.startedAt,
	}
	if t.err != nil {
		info.Error = t.err.Error()
	}
	return info
}

// table tracks spawned tasks for listing
type table struct {
	mu    sync.RWMutex
	tasks map[id.TaskID]*Task // Protected by mu
}

func newTable() *table {
	return &table{tasks: make(map[id.TaskID]*Task)}
}

func (tb *table) add(t *Task) {
	tb.mu.Lock()
	tb.tasks[t.id] = t
	tb.mu.Unlock()
}

func (tb *table) get(taskID id.TaskID) (*Task, bool) {
	tb.mu.RLock()
	defer tb.mu.RUnlock()
	t, ok := tb.tasks[taskID]
	return t, ok
}

// list returns snapshots in start order
func (tb *table) list() []Info {
	tb.mu.RLock()
	out := make([]Info, 0, len(tb.tasks))
	for _, t := range tb.tasks {
		out = append(out, t.Info())
	}
	tb.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
