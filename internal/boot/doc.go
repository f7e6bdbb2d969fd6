// Package boot runs the graphics bootstrap sequence.
//
// The sequencer acquires the boot framebuffer, publishes it together with
// the keyboard and mouse event queues in the window registry, and launches
// the first application (the window manager) in a fresh application
// namespace. It stops at the first failing step and never retries.
//
//	seq := boot.NewSequencer(boot.Components{...}, boot.Options{}, logger)
//	t, err := seq.Start(ctx, keys, mouse)
package boot
