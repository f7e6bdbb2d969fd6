package task

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/id"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "task"

// Program is the entry point of an in-process task. It should return when
// ctx is done.
type Program func(ctx context.Context, t *Task) error

// Config holds scheduler admission limits
type Config struct {
	// MaxTasks bounds the number of running tasks. Zero means no bound.
	MaxTasks int

	// SpawnRate is the sustained number of spawns per second. Zero or less
	// disables rate limiting.
	SpawnRate float64

	// SpawnBurst is the number of spawns allowed at once.
	SpawnBurst int
}

// Scheduler runs registered programs as goroutines.
type Scheduler struct {
	cfg     Config
	limiter *rate.Limiter
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tasks   *table

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	programs map[string]Program // Protected by mu
	running  int                // Protected by mu
	closed   bool               // Protected by mu
}

// NewScheduler creates a scheduler with the given limits
func NewScheduler(cfg Config, logger *logging.Logger) *Scheduler {
	if logger == nil {
		logger = logging.NewNop()
	}

	limit := rate.Inf
	if cfg.SpawnRate > 0 {
		limit = rate.Limit(cfg.SpawnRate)
	}
	burst := cfg.SpawnBurst
	if burst < 1 {
		burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cfg:      cfg,
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger.Named("scheduler"),
		tasks:    newTable(),
		ctx:      ctx,
		cancel:   cancel,
		programs: make(map[string]Program),
	}
}

// WithMetrics adds metrics tracking to the scheduler
func (s *Scheduler) WithMetrics(metrics *monitoring.Metrics) *Scheduler {
	s.metrics = metrics
	return s
}

// Register binds a program to a crate name. Objects named "<name>" or
// "<name>-<version>" run prog.
func (s *Scheduler) Register(name string, prog Program) {
	s.mu.Lock()
	s.programs[name] = prog
	s.mu.Unlock()
}

// Spawn starts the program for the object at path in ns. The task outlives
// ctx; ctx only bounds admission.
func (s *Scheduler) Spawn(ctx context.Context, path string, ns *namespace.Namespace, name string) (*Task, error) {
	t, err := s.spawn(ctx, path, ns, name)
	s.metrics.RecordSpawn(err)
	if err != nil {
		s.logger.Warn("spawn rejected", zap.String("name", name), zap.String("path", path), zap.Error(err))
		return nil, err
	}

	s.logger.Info("spawned task",
		zap.String("task", t.ID().String()),
		zap.String("name", name),
		zap.String("path", path),
		zap.String("namespace", ns.ID().String()),
	)
	return t, nil
}

func (s *Scheduler) spawn(ctx context.Context, path string, ns *namespace.Namespace, name string) (*Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, kerr.Wrap(kerr.SpawnFailure, module, err, "spawn of %q canceled", name)
	}
	if ns == nil {
		return nil, kerr.New(kerr.SpawnFailure, module, "no namespace for %q", path)
	}
	obj, ok := ns.ObjectAt(path)
	if !ok {
		return nil, kerr.New(kerr.SpawnFailure, module, "%q is not in namespace %s", path, ns.ID())
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, kerr.New(kerr.SpawnFailure, module, "scheduler is shut down")
	}
	prog, ok := s.programFor(obj.Name)
	if !ok {
		s.mu.Unlock()
		return nil, kerr.New(kerr.SpawnFailure, module, "no program for object %q", obj.Name)
	}
	if s.cfg.MaxTasks > 0 && s.running >= s.cfg.MaxTasks {
		s.mu.Unlock()
		return nil, kerr.New(kerr.SpawnFailure, module, "task limit of %d reached", s.cfg.MaxTasks)
	}
	if !s.limiter.Allow() {
		s.mu.Unlock()
		return nil, kerr.New(kerr.SpawnFailure, module, "spawn rate exceeded")
	}
	t := newTask(name, path, ns)
	s.running++
	s.wg.Add(1)
	s.mu.Unlock()

	s.tasks.add(t)
	s.metrics.IncTasksRunning()
	go s.run(t, prog)
	return t, nil
}

// programFor picks the longest registered name that obj is named after.
// Caller must hold s.mu.
func (s *Scheduler) programFor(obj string) (Program, bool) {
	var (
		best    string
		bestLen = -1
	)
	for name := range s.programs {
		if obj != name && !strings.HasPrefix(obj, name+"-") {
			continue
		}
		if len(name) > bestLen {
			best, bestLen = name, len(name)
		}
	}
	if bestLen < 0 {
		return nil, false
	}
	return s.programs[best], true
}

func (s *Scheduler) run(t *Task, prog Program) {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
		t.finish(err)

		s.mu.Lock()
		s.running--
		s.mu.Unlock()
		s.metrics.DecTasksRunning()
		s.wg.Done()

		if err != nil {
			s.logger.Error("task failed", zap.String("task", t.ID().String()), zap.String("name", t.Name()), zap.Error(err))
		} else {
			s.logger.Info("task exited", zap.String("task", t.ID().String()), zap.String("name", t.Name()))
		}
	}()

	err = prog(s.ctx, t)
}

// Get returns a task by ID
func (s *Scheduler) Get(taskID id.TaskID) (*Task, bool) {
	return s.tasks.get(taskID)
}

// List returns snapshots of all tasks spawned so far
func (s *Scheduler) List() []Info {
	return s.tasks.list()
}

// Running returns the number of running tasks
func (s *Scheduler) Running() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Shutdown stops accepting spawns, cancels running tasks and waits for them
// to return or for ctx to be done.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler shutdown: %w", ctx.Err())
	}
}
