package task

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

// Environment passed to processes started by ExecSpawner.
const (
	EnvNamespace    = "GFXBOOT_NAMESPACE"
	EnvNamespaceDir = "GFXBOOT_NAMESPACE_DIR"
	EnvTaskName     = "GFXBOOT_TASK_NAME"
)

// ExecSpawner starts program objects as operating system processes.
type ExecSpawner struct {
	args    []string
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tasks   *table

	mu     sync.Mutex
	procs  map[id.TaskID]*os.Process // Protected by mu
	closed bool                      // Protected by mu
	wg     sync.WaitGroup
}

// NewExecSpawner creates a spawner that runs each object with args.
func NewExecSpawner(logger *logging.Logger, args ...string) *ExecSpawner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ExecSpawner{
		args:   args,
		logger: logger.Named("exec"),
		tasks:  newTable(),
		procs:  make(map[id.TaskID]*os.Process),
	}
}

// WithMetrics adds metrics tracking to the spawner
func (e *ExecSpawner) WithMetrics(metrics *monitoring.Metrics) *ExecSpawner {
	e.metrics = metrics
	return e
}

// Spawn starts the object at path. The process is not tied to ctx.
func (e *ExecSpawner) Spawn(ctx context.Context, path string, ns *namespace.Namespace, name string) (*Task, error) {
	t, err := e.spawn(ctx, path, ns, name)
	e.metrics.RecordSpawn(err)
	if err != nil {
		e.logger.Warn("spawn rejected", zap.String("name", name), zap.String("path", path), zap.Error(err))
		return nil, err
	}

	e.logger.Info("started process",
		zap.String("task", t.ID().String()),
		zap.String("name", name),
		zap.String("path", path),
		zap.Int("pid", t.Info().PID),
	)
	return t, nil
}

func (e *ExecSpawner) spawn(ctx context.Context, path string, ns *namespace.Namespace, name string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, kerr.Wrap(kerr.SpawnFailure, module, err, "spawn of %q canceled", name)
	}
	if ns == nil {
		return nil, kerr.New(kerr.SpawnFailure, module, "no namespace for %q", path)
	}
	if _, ok := ns.ObjectAt(path); !ok {
		return nil, kerr.New(kerr.SpawnFailure, module, "%q is not in namespace %s", path, ns.ID())
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, kerr.New(kerr.SpawnFailure, module, "spawner is shut down")
	}

	cmd := exec.Command(path, e.args...)
	cmd.Dir = ns.Dir()
	cmd.Env = append(os.Environ(),
		EnvNamespace+"="+ns.ID().String(),
		EnvNamespaceDir+"="+ns.Dir(),
		EnvTaskName+"="+name,
	)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, kerr.Wrap(kerr.SpawnFailure, module, err, "failed to start %q", path)
	}

	t := newTask(name, path, ns)
	t.setPID(cmd.Process.Pid)
	e.procs[t.id] = cmd.Process
	e.tasks.add(t)
	e.wg.Add(1)
	e.metrics.IncTasksRunning()

	go e.wait(t, cmd)
	return t, nil
}

func (e *ExecSpawner) wait(t *Task, cmd *exec.Cmd) {
	defer e.wg.Done()

	err := cmd.Wait()
	if err != nil {
		err = fmt.Errorf("process %d: %w", cmd.Process.Pid, err)
	}
	t.finish(err)

	e.mu.Lock()
	delete(e.procs, t.id)
	e.mu.Unlock()
	e.metrics.DecTasksRunning()

	e.logger.Info("process exited", zap.String("task", t.ID().String()), zap.String("name", t.Name()), zap.Error(err))
}

// Get returns a task by ID
func (e *ExecSpawner) Get(taskID id.TaskID) (*Task, bool) {
	return e.tasks.get(taskID)
}

// List returns snapshots of all processes started so far
func (e *ExecSpawner) List() []Info {
	return e.tasks.list()
}

// Shutdown stops accepting spawns, interrupts running processes and waits
// for them to exit or for ctx to be done.
func (e *ExecSpawner) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	for _, p := range e.procs {
		_ = p.Signal(os.Interrupt)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		e.mu.Lock()
		for _, p := range e.procs {
			_ = p.Kill()
		}
		e.mu.Unlock()
		return fmt.Errorf("exec shutdown: %w", ctx.Err())
	}
}
