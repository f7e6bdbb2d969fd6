// Package framebuffer acquires the boot-time linear framebuffer.
//
// The Acquirer validates the graphics descriptor handed over by the boot
// firmware and maps the described physical range through a physmem.Mapper.
// The resulting Framebuffer aliases video memory directly: a Set is visible
// on screen with no further copy.
package framebuffer
