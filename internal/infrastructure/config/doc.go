// Package config provides 12-factor configuration for the graphics bootstrap.
//
// Configuration is loaded from environment variables with defaults; CLI flags
// in cmd/gfxboot override individual values.
//
// Configuration Sections:
//   - Graphics: boot graphics descriptor (file or explicit geometry/address)
//   - Memory: physical memory device, or emulated video memory
//   - Apps: application directory, object pattern, first application prefix
//   - Scheduler: task admission limits
//   - Input: event queue capacity
//   - Server, RateLimit: diagnostics HTTP surface
//   - Logging: log level and output format
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("first app prefix %q\n", cfg.Apps.Prefix)
package config
