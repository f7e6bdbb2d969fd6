package boot

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/bootinfo"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/task"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "boot"

// Step names used for logs and metrics
const (
	StepDescriptor = "descriptor"
	StepAcquire    = "acquire"
	StepInitialize = "initialize"
	StepNamespace  = "namespace"
	StepResolve    = "resolve"
	StepSpawn      = "spawn"
)

const (
	DefaultPrefix   = "window_manager-"
	DefaultTaskName = "window_manager"
)

// Acquirer maps the boot framebuffer
type Acquirer interface {
	Acquire(desc bootinfo.GraphicsDescriptor) (*framebuffer.Framebuffer, error)
}

// Registry publishes the display resources
type Registry interface {
	Initialize(fb *framebuffer.Framebuffer, keys, mouse *event.Queue) error
}

// Loader creates application namespaces and resolves objects in them
type Loader interface {
	CreateApplicationNamespace(ctx context.Context) (*namespace.Namespace, error)
	ResolveByPrefix(ns *namespace.Namespace, prefix string) (namespace.Object, *namespace.Namespace, bool)
}

// Spawner starts a program object in a namespace
type Spawner interface {
	Spawn(ctx context.Context, path string, ns *namespace.Namespace, name string) (*task.Task, error)
}

// Components are the collaborators of the sequencer
type Components struct {
	Source   bootinfo.Source
	Acquirer Acquirer
	Registry Registry
	Loader   Loader
	Spawner  Spawner
}

// Options configures the first application
type Options struct {
	// Prefix selects the first application object by name prefix.
	Prefix string

	// TaskName is the name given to the spawned task.
	TaskName string
}

// Phase is the overall boot progress
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// Status is a snapshot of the last boot attempt
type Status struct {
	BootID     string    `json:"boot_id,omitempty"`
	Phase      Phase     `json:"phase"`
	Step       string    `json:"step,omitempty"`
	Error      string    `json:"error,omitempty"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	TaskID     string    `json:"task_id,omitempty"`
	StartedAt  time.Time `json:"started_at,omitempty"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// Sequencer runs the boot steps in order.
type Sequencer struct {
	c       Components
	opts    Options
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	mu     sync.Mutex
	status Status // Protected by mu
}

// NewSequencer creates a sequencer
func NewSequencer(c Components, opts Options, logger *logging.Logger) *Sequencer {
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.TaskName == "" {
		opts.TaskName = DefaultTaskName
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Sequencer{
		c:      c,
		opts:   opts,
		logger: logger.Named(module),
		status: Status{Phase: PhasePending},
	}
}

// WithMetrics adds metrics tracking to the sequencer
func (s *Sequencer) WithMetrics(metrics *monitoring.Metrics) *Sequencer {
	s.metrics = metrics
	return s
}

// WithTracer reports a span per boot attempt and per step
func (s *Sequencer) WithTracer(tracer *tracing.Tracer) *Sequencer {
	s.tracer = tracer
	return s
}

// Start acquires the framebuffer, initializes the window registry with it
// and the given queues, and spawns the first application. It returns as
// soon as the application has been spawned.
//
// A failure before the registry is initialized leaves no state behind: a
// framebuffer mapped by this attempt is released when Initialize rejects it.
// A failure after Initialize (namespace, resolve or spawn) is not rolled
// back. The registry stays Ready and keeps the mapped framebuffer, since an
// initialized registry never returns to Uninitialized, and no task is
// spawned. The outcome is the same on every failing attempt.
func (s *Sequencer) Start(ctx context.Context, keys, mouse *event.Queue) (*task.Task, error) {
	bootID := uuid.NewString()
	s.setStatus(Status{BootID: bootID, Phase: PhaseRunning, StartedAt: time.Now()})

	span, ctx := s.tracer.StartSpan(tracing.WithTraceID(ctx, tracing.TraceID(bootID)), "boot")
	t, err := s.start(ctx, s.logger.With(zap.String("boot_id", bootID)), keys, mouse)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()

	s.mu.Lock()
	s.status.FinishedAt = time.Now()
	if err != nil {
		s.status.Phase = PhaseFailed
		s.status.Error = err.Error()
		s.status.ErrorKind = kerr.KindOf(err).String()
	} else {
		s.status.Phase = PhaseSucceeded
		s.status.TaskID = t.ID().String()
	}
	s.mu.Unlock()

	return t, err
}

// Status returns a snapshot of the last boot attempt
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Sequencer) setStatus(st Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *Sequencer) start(ctx context.Context, log *logging.Logger, keys, mouse *event.Queue) (*task.Task, error) {
	log.Info("starting graphics bootstrap", zap.String("prefix", s.opts.Prefix))

	var desc bootinfo.GraphicsDescriptor
	err := s.step(ctx, log, StepDescriptor, func(ctx context.Context) (err error) {
		desc, err = s.c.Source.Descriptor(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read graphics descriptor: %w", err)
	}

	var fb *framebuffer.Framebuffer
	err = s.step(ctx, log, StepAcquire, func(context.Context) (err error) {
		fb, err = s.c.Acquirer.Acquire(desc)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to acquire framebuffer: %w", err)
	}

	err = s.step(ctx, log, StepInitialize, func(context.Context) error {
		return s.c.Registry.Initialize(fb, keys, mouse)
	})
	if err != nil {
		if rerr := fb.Release(); rerr != nil {
			log.Warn("failed to release framebuffer", zap.Error(rerr))
		}
		return nil, fmt.Errorf("failed to initialize window registry: %w", err)
	}

	var ns *namespace.Namespace
	err = s.step(ctx, log, StepNamespace, func(ctx context.Context) (err error) {
		ns, err = s.c.Loader.CreateApplicationNamespace(ctx)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application namespace: %w", err)
	}

	var obj namespace.Object
	err = s.step(ctx, log, StepResolve, func(context.Context) error {
		found, from, ok := s.c.Loader.ResolveByPrefix(ns, s.opts.Prefix)
		if !ok {
			return kerr.New(kerr.ApplicationNotFound, module, "no object starting with %q in namespace %s", s.opts.Prefix, ns.ID())
		}
		obj = found
		log.Debug("resolved first application", zap.String("object", obj.Name), zap.String("namespace", from.Name()))
		return nil
	})
	if err != nil {
		return nil, err
	}

	path := obj.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(ns.Dir(), path)
	}

	var t *task.Task
	err = s.step(ctx, log, StepSpawn, func(ctx context.Context) (err error) {
		t, err = s.c.Spawner.Spawn(ctx, path, ns, s.opts.TaskName)
		if err != nil && kerr.KindOf(err) == kerr.Unknown {
			err = kerr.Wrap(kerr.SpawnFailure, module, err, "failed to spawn %q", path)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	log.Info("started first application",
		zap.String("task", t.ID().String()),
		zap.String("object", obj.Name),
		zap.String("path", path),
	)
	return t, nil
}

func (s *Sequencer) step(ctx context.Context, log *logging.Logger, name string, fn func(ctx context.Context) error) error {
	s.mu.Lock()
	s.status.Step = name
	s.mu.Unlock()

	span, ctx := s.tracer.StartSpan(ctx, name)
	timer := monitoring.NewTimer(s.metrics, name)
	err := fn(ctx)
	timer.Stop(err)
	if err != nil {
		span.SetError(err)
	}
	span.Finish()

	if err != nil {
		log.Error("boot step failed", zap.String("step", name), zap.Error(err))
		return err
	}
	log.Debug("boot step done", zap.String("step", name))
	return nil
}
