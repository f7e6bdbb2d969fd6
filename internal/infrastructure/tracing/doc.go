/*
Package tracing provides lightweight spans for the boot sequence and the
diagnostics server.

# Overview

A trace groups the spans of one boot attempt (the trace ID is the boot ID)
or one diagnostics request. Finished spans are handed to a buffered
collector and logged with zap, so a slow or failing boot step can be found
in the logs together with its parent boot span.

# Usage

	tracer := tracing.New("gfxboot", logger)
	defer tracer.Close()

	// HTTP middleware
	router.Use(tracing.HTTPMiddleware(tracer))

	// Manual span creation
	span, ctx := tracer.StartSpan(ctx, "acquire")
	defer span.Finish()
	span.SetTag("paddr", "0xFD000000")

# Trace Format

Traces use HTTP headers for propagation:
  - X-Trace-ID: Unique identifier for the entire request flow
  - X-Span-ID: Identifier for the current operation

# Performance

  - Buffered span collection (256 spans); spans are dropped when full
  - Async span processing
  - A nil *Tracer still propagates IDs but reports nothing
*/
package tracing
