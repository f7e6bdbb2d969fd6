package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/app"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
)

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}

	// Flags override environment
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	bindFlags(fs, cfg)
	_ = fs.Parse(os.Args[1:])

	logger := newLogger(cfg.Logging, os.Stderr)
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting graphics bootstrap",
		zap.Uint32("width", cfg.Graphics.Width),
		zap.Uint32("height", cfg.Graphics.Height),
		zap.String("bootinfo", cfg.Graphics.BootInfoPath),
		zap.String("apps_dir", cfg.Apps.Dir),
		zap.Bool("emulate", cfg.Memory.Emulate),
	)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to assemble bootstrap", zap.Error(err))
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil {
		logger.Error("Bootstrap stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Shut down gracefully")
}

// newLogger builds the configured logger, falling back to the default
// production logger when the configuration is rejected.
func newLogger(cfg config.LogConfig, stderr io.Writer) *logging.Logger {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Level,
		Development: cfg.Development,
	})
	if err != nil {
		fmt.Fprintf(stderr, "invalid logging configuration, using defaults: %v\n", err)
		return logging.NewDefault()
	}
	return logger
}

// bindFlags registers flags defaulting to the loaded configuration, so only
// flags given on the command line change it.
func bindFlags(fs *flag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.Graphics.BootInfoPath, "bootinfo", cfg.Graphics.BootInfoPath, "YAML or TOML graphics descriptor file")
	fs.Func("width", "framebuffer width in pixels", uintSetter32(&cfg.Graphics.Width))
	fs.Func("height", "framebuffer height in pixels", uintSetter32(&cfg.Graphics.Height))
	fs.Uint64Var(&cfg.Graphics.PhysAddr, "paddr", cfg.Graphics.PhysAddr, "framebuffer physical address (0 = no framebuffer)")

	fs.BoolVar(&cfg.Memory.Emulate, "emulate", cfg.Memory.Emulate, "back the framebuffer with anonymous memory instead of the memory device")
	fs.StringVar(&cfg.Memory.Device, "mem", cfg.Memory.Device, "physical memory device")

	fs.StringVar(&cfg.Apps.Dir, "apps", cfg.Apps.Dir, "application directory")
	fs.StringVar(&cfg.Apps.KernelDir, "kernel-apps", cfg.Apps.KernelDir, "kernel object directory searched after the application directory")
	fs.StringVar(&cfg.Apps.Prefix, "first-app", cfg.Apps.Prefix, "name prefix of the first application object")
	fs.BoolVar(&cfg.Apps.Exec, "exec", cfg.Apps.Exec, "run the first application as an operating system process")

	fs.BoolVar(&cfg.Server.Enabled, "diag", cfg.Server.Enabled, "serve diagnostics over HTTP")
	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "diagnostics host")
	fs.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "diagnostics port")

	fs.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development mode (console logs)")
}

func uintSetter32(dst *uint32) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		if err != nil {
			return err
		}
		*dst = uint32(v)
		return nil
	}
}
