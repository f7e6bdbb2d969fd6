// Package logging provides structured logging using uber/zap.
//
// Two modes are supported:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Boot components take a *Logger and derive a named child from it, so every
// line carries the component ("framebuffer", "window", "loader", ...):
//
//	logger, err := logging.New(logging.DefaultConfig())
//	acq := framebuffer.NewAcquirer(mapper, logger)
//	logger.Info("mapped framebuffer", zap.Uint64("paddr", addr))
package logging
