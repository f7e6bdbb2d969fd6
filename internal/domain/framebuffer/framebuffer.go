package framebuffer

import (
	"sync"
	"unsafe"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/physmem"
)

// PixelSize is the size of an AlphaPixel in bytes.
const PixelSize = 4

// AlphaPixel is a 32-bit ARGB pixel as laid out in video memory.
type AlphaPixel uint32

// RGBA builds a pixel from its components.
func RGBA(r, g, b, a uint8) AlphaPixel {
	return AlphaPixel(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

// Components returns the red, green, blue and alpha channels.
func (p AlphaPixel) Components() (r, g, b, a uint8) {
	return uint8(p >> 16), uint8(p >> 8), uint8(p), uint8(p >> 24)
}

// Framebuffer is a pixel buffer backed by a mapped video memory region.
// Its dimensions never change after creation.
type Framebuffer struct {
	width  int
	height int
	region physmem.Region
	pixels []AlphaPixel
}

// newFramebuffer overlays a width x height pixel grid on region, which must
// be exactly width*height*PixelSize bytes.
func newFramebuffer(width, height int, region physmem.Region) *Framebuffer {
	b := region.Bytes()
	var pixels []AlphaPixel
	if len(b) > 0 {
		pixels = unsafe.Slice((*AlphaPixel)(unsafe.Pointer(unsafe.SliceData(b))), len(b)/PixelSize)
	}
	return &Framebuffer{
		width:  width,
		height: height,
		region: region,
		pixels: pixels,
	}
}

// Width returns the width in pixels.
func (fb *Framebuffer) Width() int { return fb.width }

// Height returns the height in pixels.
func (fb *Framebuffer) Height() int { return fb.height }

// Size returns the size of the backing region in bytes.
func (fb *Framebuffer) Size() int { return fb.width * fb.height * PixelSize }

// PhysAddr returns the physical address of the backing region.
func (fb *Framebuffer) PhysAddr() uint64 { return fb.region.PhysAddr() }

// Get returns the pixel at (x, y). ok is false for coordinates outside the
// buffer.
func (fb *Framebuffer) Get(x, y int) (p AlphaPixel, ok bool) {
	i, ok := fb.index(x, y)
	if !ok {
		return 0, false
	}
	return fb.pixels[i], true
}

// Set writes the pixel at (x, y). Out of range writes are ignored and
// reported as false.
func (fb *Framebuffer) Set(x, y int, p AlphaPixel) bool {
	i, ok := fb.index(x, y)
	if !ok {
		return false
	}
	fb.pixels[i] = p
	return true
}

// Fill sets every pixel to p.
func (fb *Framebuffer) Fill(p AlphaPixel) {
	for i := range fb.pixels {
		fb.pixels[i] = p
	}
}

// Pixels returns the row-major pixel slice aliasing video memory.
func (fb *Framebuffer) Pixels() []AlphaPixel {
	return fb.pixels
}

// Release unmaps the backing region. The framebuffer must not be used
// afterwards.
func (fb *Framebuffer) Release() error {
	fb.pixels = nil
	return fb.region.Unmap()
}

func (fb *Framebuffer) index(x, y int) (int, bool) {
	if x < 0 || y < 0 || x >= fb.width || y >= fb.height || fb.pixels == nil {
		return 0, false
	}
	return y*fb.width + x, true
}

// Shared is a reference-counted-style handle to a framebuffer guarded by a
// mutex. Every copy of the pointer refers to the same video memory.
type Shared struct {
	mu sync.Mutex
	fb *Framebuffer
}

// NewShared wraps fb for shared ownership.
func NewShared(fb *Framebuffer) *Shared {
	return &Shared{fb: fb}
}

// Width returns the width in pixels. Geometry is immutable so no lock is taken.
func (s *Shared) Width() int { return s.fb.width }

// Height returns the height in pixels.
func (s *Shared) Height() int { return s.fb.height }

// With runs fn while holding the framebuffer lock.
func (s *Shared) With(fn func(fb *Framebuffer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.fb)
}
