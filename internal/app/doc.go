// Package app assembles the graphics bootstrap from configuration.
//
// It picks the physical memory mapper, the graphics descriptor source and
// the task spawner, wires them into a boot sequencer over the process-wide
// window registry, and runs the boot next to the diagnostics server.
//
// A failed boot is logged and the process keeps running headless; only the
// diagnostics server failing or the context ending stops Run.
//
// Example Usage:
//
//	a, err := app.New(cfg, logger)
//	if err != nil {
//	    logger.Fatal("setup failed", zap.Error(err))
//	}
//	err = a.Run(ctx)
package app
