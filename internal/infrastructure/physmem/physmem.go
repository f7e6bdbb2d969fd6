// Package physmem maps physical memory ranges into the address space.
//
// Two mappers are provided. DevMem maps real device memory through
// /dev/mem and is what a graphics bootstrap on bare hardware uses. Emulated
// backs the range with anonymous memory, for hosts without a linear
// framebuffer and for tests. Both refuse to map a physical range that
// overlaps one they already mapped: device memory is mapped exactly once.
package physmem

import (
	"fmt"
	"sort"
	"sync"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "physmem"

const (
	// PageShift is log2(PageSize).
	PageShift = 12

	// PageSize is the mapping granularity.
	PageSize = 1 << PageShift

	// PhysicalAddressBits is the width of a physical address on amd64.
	PhysicalAddressBits = 52

	// MaxPhysicalAddress is the highest representable physical address.
	MaxPhysicalAddress = 1<<PhysicalAddressBits - 1
)

// Region is a mapped, device-backed, read-write view of a physical range.
type Region interface {
	// Bytes returns the mapped range. It is invalid after Unmap.
	Bytes() []byte

	// PhysAddr returns the physical start address of the range.
	PhysAddr() uint64

	// Unmap releases the mapping.
	Unmap() error
}

// Mapper maps physical ranges.
type Mapper interface {
	MapDevice(physAddr, size uint64) (Region, error)
}

// IsValidPhysical reports whether addr can be represented as a physical
// address on this platform.
func IsValidPhysical(addr uint64) bool {
	return addr <= MaxPhysicalAddress
}

// IsValidRange reports whether [addr, addr+size) lies within the physical
// address space.
func IsValidRange(addr, size uint64) bool {
	if !IsValidPhysical(addr) || size == 0 {
		return false
	}
	end := addr + size - 1
	return end >= addr && IsValidPhysical(end)
}

// pageSpan returns the page aligned start and length covering [addr, addr+size).
func pageSpan(addr, size uint64) (start, length uint64) {
	start = addr &^ (PageSize - 1)
	end := (addr + size + PageSize - 1) &^ (PageSize - 1)
	return start, end - start
}

type span struct {
	start, end uint64
}

// tracker records which physical ranges are currently mapped.
type tracker struct {
	mu    sync.Mutex
	spans []span // sorted by start
}

func (t *tracker) reserve(addr, size uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := span{start: addr, end: addr + size}
	i := sort.Search(len(t.spans), func(i int) bool { return t.spans[i].end > s.start })
	if i < len(t.spans) && t.spans[i].start < s.end {
		return kerr.New(kerr.MappingFailure, module,
			"physical range [%#x, %#x) overlaps mapped range [%#x, %#x)", s.start, s.end, t.spans[i].start, t.spans[i].end)
	}

	t.spans = append(t.spans, span{})
	copy(t.spans[i+1:], t.spans[i:])
	t.spans[i] = s
	return nil
}

func (t *tracker) release(addr uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, s := range t.spans {
		if s.start == addr {
			t.spans = append(t.spans[:i], t.spans[i+1:]...)
			return
		}
	}
}

// mapping is the Region returned by both mappers.
type mapping struct {
	phys    uint64
	raw     []byte // whole pages as returned by mmap
	data    []byte // the requested range inside raw
	unmapFn func([]byte) error
	owner   *tracker

	once sync.Once
	err  error
}

func (m *mapping) Bytes() []byte    { return m.data }
func (m *mapping) PhysAddr() uint64 { return m.phys }

func (m *mapping) Unmap() error {
	m.once.Do(func() {
		if err := m.unmapFn(m.raw); err != nil {
			m.err = fmt.Errorf("munmap %#x: %w", m.phys, err)
			return
		}
		m.data, m.raw = nil, nil
		m.owner.release(m.phys)
	})
	return m.err
}
