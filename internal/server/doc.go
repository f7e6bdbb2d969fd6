// Package server provides the diagnostics HTTP server.
//
// Routes:
//   - GET /         service name and version
//   - GET /health   liveness, registry state and boot phase
//   - GET /display  geometry through a shared registry lookup; 503 until ready
//   - GET /tasks    spawned tasks
//   - GET /boot     last boot attempt
//   - GET /metrics  Prometheus exposition
//
// Middleware stack: recovery, tracing, request metrics, CORS, per-IP rate
// limiting.
//
// Example Usage:
//
//	srv := server.New(cfg, server.Sources{Registry: reg, Tasks: sched, Boot: seq}, logger, metrics, tracer)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Error("diagnostics server failed", zap.Error(err))
//	}
package server
