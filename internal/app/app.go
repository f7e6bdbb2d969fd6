package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/apps/windowmanager"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/boot"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/bootinfo"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/task"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/physmem"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/server"
)

const shutdownTimeout = 5 * time.Second

// spawner is what the app needs from a task spawner
type spawner interface {
	boot.Spawner
	List() []task.Info
	Shutdown(ctx context.Context) error
}

// App is the assembled bootstrap
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *monitoring.Metrics
	tracer  *tracing.Tracer

	registry  *window.Registry
	keys      *event.Queue
	mouse     *event.Queue
	spawner   spawner
	wm        *windowmanager.WindowManager
	sequencer *boot.Sequencer
	server    *server.Server
}

// New assembles the bootstrap over the process-wide window registry
func New(cfg *config.Config, logger *logging.Logger) (*App, error) {
	return newApp(cfg, logger, window.Default())
}

func newApp(cfg *config.Config, logger *logging.Logger, registry *window.Registry) (*App, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	metrics := monitoring.NewMetrics()

	loader, err := namespace.NewLoader(namespace.Config{
		Dir:        cfg.Apps.Dir,
		KernelDir:  cfg.Apps.KernelDir,
		Pattern:    cfg.Apps.Pattern,
		Suffix:     cfg.Apps.Suffix,
		RequireELF: cfg.Apps.RequireELF,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	registry.WithLogger(logger).WithMetrics(metrics)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		tracer:   tracing.New("gfxboot", logger),
		registry: registry,
		keys:     event.NewQueue("keyboard", cfg.Input.QueueCapacity).WithMetrics(metrics),
		mouse:    event.NewQueue("mouse", cfg.Input.QueueCapacity).WithMetrics(metrics),
	}

	if cfg.Apps.Exec {
		a.spawner = task.NewExecSpawner(logger).WithMetrics(metrics)
	} else {
		sched := task.NewScheduler(task.Config{
			MaxTasks:   cfg.Scheduler.MaxTasks,
			SpawnRate:  cfg.Scheduler.SpawnRate,
			SpawnBurst: cfg.Scheduler.SpawnBurst,
		}, logger).WithMetrics(metrics)
		a.wm = windowmanager.New(registry, logger)
		sched.Register(windowmanager.Name, a.wm.Run)
		a.spawner = sched
	}

	a.sequencer = boot.NewSequencer(boot.Components{
		Source:   descriptorSource(cfg.Graphics),
		Acquirer: framebuffer.NewAcquirer(mapper(cfg.Memory, logger), logger).WithMetrics(metrics),
		Registry: registry,
		Loader:   loader,
		Spawner:  a.spawner,
	}, boot.Options{
		Prefix:   cfg.Apps.Prefix,
		TaskName: cfg.Apps.TaskName,
	}, logger).WithMetrics(metrics).WithTracer(a.tracer)

	if cfg.Server.Enabled {
		a.server = server.New(cfg, server.Sources{
			Registry: registry,
			Tasks:    a.spawner,
			Boot:     a.sequencer,
		}, logger, metrics, a.tracer)
	}

	return a, nil
}

func descriptorSource(cfg config.GraphicsConfig) bootinfo.Source {
	if cfg.BootInfoPath != "" {
		return bootinfo.File{Path: cfg.BootInfoPath}
	}
	return bootinfo.Static{
		Width:           cfg.Width,
		Height:          cfg.Height,
		PhysicalAddress: cfg.PhysAddr,
	}
}

func mapper(cfg config.MemoryConfig, logger *logging.Logger) physmem.Mapper {
	if cfg.Emulate {
		logger.Info("Using emulated physical memory")
		return physmem.NewEmulated()
	}
	logger.Info("Mapping physical memory", zap.String("device", cfg.Device))
	return physmem.NewDevMem(cfg.Device)
}

// Registry returns the window registry the app boots into
func (a *App) Registry() *window.Registry { return a.registry }

// Sequencer returns the boot sequencer
func (a *App) Sequencer() *boot.Sequencer { return a.sequencer }

// Queues returns the keyboard and mouse event queues
func (a *App) Queues() (keys, mouse *event.Queue) { return a.keys, a.mouse }

// Metrics returns the metrics collector
func (a *App) Metrics() *monitoring.Metrics { return a.metrics }

// Run boots the graphics subsystem and serves diagnostics until ctx is
// done. A boot failure is logged and leaves the process headless.
func (a *App) Run(ctx context.Context) error {
	defer a.tracer.Close()

	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			if err := a.server.Run(gctx); err != nil {
				return fmt.Errorf("diagnostics server: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		if _, err := a.sequencer.Start(gctx, a.keys, a.mouse); err != nil {
			a.logger.Error("Graphics bootstrap failed, continuing without a display", zap.Error(err))
		}

		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := a.spawner.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("Tasks did not stop in time", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}
