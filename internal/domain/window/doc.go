// Package window implements the window protocol registry: the single
// process-wide hand-off point between the graphics bootstrap, the window
// manager and window clients.
//
// The registry holds one entry (framebuffer, keyboard queue, mouse queue)
// and moves through three states:
//
//	Uninitialized --Initialize--> Ready --ClaimExclusive--> Claimed
//
// Exactly one ClaimExclusive ever succeeds; that caller is the window
// manager and owns pixel writes and consumption of the raw input queues.
// LookupShared never changes state and returns the very same handles from
// both Ready and Claimed, so clients can read display geometry at any time.
//
// Example Usage:
//
//	reg := window.Default()
//	if err := reg.Initialize(fb, keys, mouse); err != nil { ... }
//
//	// window manager task
//	entry, err := reg.ClaimExclusive()
//
//	// window client task
//	entry, err := reg.LookupShared()
//	w, h := entry.Geometry()
package window
