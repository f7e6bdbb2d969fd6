//go:build unix

package physmem

import (
	"os"

	"golang.org/x/sys/unix"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

// DevMem maps physical memory through a memory device such as /dev/mem.
type DevMem struct {
	Path string

	tracker tracker
}

// NewDevMem returns a mapper over the given device path.
func NewDevMem(path string) *DevMem {
	return &DevMem{Path: path}
}

// MapDevice maps [physAddr, physAddr+size) shared and read-write.
func (d *DevMem) MapDevice(physAddr, size uint64) (Region, error) {
	if !IsValidRange(physAddr, size) {
		return nil, kerr.New(kerr.InvalidAddress, module, "range %#x+%#x is not a valid physical range", physAddr, size)
	}
	if err := d.tracker.reserve(physAddr, size); err != nil {
		return nil, err
	}

	region, err := d.mmap(physAddr, size)
	if err != nil {
		d.tracker.release(physAddr)
		return nil, err
	}
	return region, nil
}

func (d *DevMem) mmap(physAddr, size uint64) (*mapping, error) {
	f, err := os.OpenFile(d.Path, os.O_RDWR|os.O_SYNC, 0)
	if err != nil {
		return nil, kerr.Wrap(kerr.MappingFailure, module, err, "open %s", d.Path)
	}
	// the mapping outlives the descriptor
	defer f.Close()

	start, length := pageSpan(physAddr, size)
	raw, err := unix.Mmap(int(f.Fd()), int64(start), int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, kerr.Wrap(kerr.MappingFailure, module, err, "mmap %s at %#x", d.Path, start)
	}

	off := physAddr - start
	return &mapping{
		phys:    physAddr,
		raw:     raw,
		data:    raw[off : off+size : off+size],
		unmapFn: unix.Munmap,
		owner:   &d.tracker,
	}, nil
}

// Emulated backs physical ranges with anonymous memory.
type Emulated struct {
	tracker tracker
}

// NewEmulated returns an emulated mapper.
func NewEmulated() *Emulated {
	return &Emulated{}
}

// MapDevice maps zeroed anonymous memory standing in for [physAddr, physAddr+size).
func (e *Emulated) MapDevice(physAddr, size uint64) (Region, error) {
	if !IsValidRange(physAddr, size) {
		return nil, kerr.New(kerr.InvalidAddress, module, "range %#x+%#x is not a valid physical range", physAddr, size)
	}
	if err := e.tracker.reserve(physAddr, size); err != nil {
		return nil, err
	}

	start, length := pageSpan(physAddr, size)
	raw, err := unix.Mmap(-1, 0, int(length), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		e.tracker.release(physAddr)
		return nil, kerr.Wrap(kerr.MappingFailure, module, err, "anonymous mmap of %d bytes", length)
	}

	off := physAddr - start
	return &mapping{
		phys:    physAddr,
		raw:     raw,
		data:    raw[off : off+size : off+size],
		unmapFn: unix.Munmap,
		owner:   &e.tracker,
	}, nil
}
