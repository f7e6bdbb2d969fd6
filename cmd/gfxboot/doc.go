// Package main is the entry point of the hosted graphics bootstrap.
//
// It acquires the boot framebuffer, publishes it in the window registry with
// the keyboard and mouse event queues, and launches the window manager from
// the application directory. Diagnostics are served over HTTP.
//
// Configuration:
//   - Environment variables (see internal/infrastructure/config)
//   - CLI flags (override env vars)
//
// Usage:
//
//	# Emulated framebuffer, in-process window manager
//	./gfxboot -paddr 0xFD000000 -width 1024 -height 768 -apps ./apps
//
//	# Real video memory from a descriptor file, first application as a process
//	./gfxboot -emulate=false -bootinfo /boot/graphics.yaml -exec
//
// Signals:
//   - SIGINT, SIGTERM: Graceful shutdown
package main
