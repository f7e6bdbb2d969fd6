package framebuffer

import (
	"fmt"
	"math"
	"math/bits"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/bootinfo"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/physmem"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "framebuffer"

// Acquirer turns the boot graphics descriptor into a mapped framebuffer.
type Acquirer struct {
	mapper  physmem.Mapper
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewAcquirer creates an acquirer mapping video memory through mapper.
func NewAcquirer(mapper physmem.Mapper, logger *logging.Logger) *Acquirer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Acquirer{
		mapper: mapper,
		logger: logger.Named(module),
	}
}

// WithMetrics adds metrics tracking to the acquirer
func (a *Acquirer) WithMetrics(metrics *monitoring.Metrics) *Acquirer {
	a.metrics = metrics
	return a
}

// Acquire validates desc and maps its physical range as device memory.
// It runs once per boot; a failure is permanent for this boot attempt.
func (a *Acquirer) Acquire(desc bootinfo.GraphicsDescriptor) (*Framebuffer, error) {
	a.logger.Info("Using graphical framebuffer",
		zap.Uint32("width", desc.Width),
		zap.Uint32("height", desc.Height),
		zap.String("paddr", hex(desc.PhysicalAddress)),
	)

	if desc.PhysicalAddress == 0 {
		return nil, kerr.New(kerr.HardwareAbsent, module, "failed to get graphic mode information")
	}
	if !physmem.IsValidPhysical(desc.PhysicalAddress) || desc.PhysicalAddress%PixelSize != 0 {
		return nil, kerr.New(kerr.InvalidAddress, module, "graphic mode physical address %s was invalid", hex(desc.PhysicalAddress))
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, kerr.New(kerr.InvalidGeometry, module, "framebuffer dimensions %dx%d are empty", desc.Width, desc.Height)
	}

	hi, pixels := bits.Mul64(uint64(desc.Width), uint64(desc.Height))
	if hi != 0 || pixels > math.MaxUint64/PixelSize {
		return nil, kerr.New(kerr.InvalidGeometry, module, "framebuffer of %dx%d overflows its byte size", desc.Width, desc.Height)
	}
	size := pixels * PixelSize
	if size > math.MaxInt {
		return nil, kerr.New(kerr.InvalidGeometry, module, "framebuffer of %dx%d does not fit the address space", desc.Width, desc.Height)
	}
	if !physmem.IsValidRange(desc.PhysicalAddress, size) {
		return nil, kerr.New(kerr.InvalidAddress, module, "framebuffer at %s with %d bytes exceeds physical memory", hex(desc.PhysicalAddress), size)
	}

	region, err := a.mapper.MapDevice(desc.PhysicalAddress, size)
	if err != nil {
		return nil, kerr.Wrap(kerr.MappingFailure, module, err, "failed to map framebuffer")
	}
	if n := len(region.Bytes()); uint64(n) != size {
		_ = region.Unmap()
		return nil, kerr.New(kerr.MappingFailure, module, "mapper returned %d bytes, want %d", n, size)
	}

	fb := newFramebuffer(int(desc.Width), int(desc.Height), region)
	a.metrics.SetFramebufferBytes(fb.Size())
	a.logger.Debug("mapped framebuffer", zap.Int("bytes", fb.Size()))

	return fb, nil
}

func hex(v uint64) string {
	return fmt.Sprintf("%#X", v)
}
