// Package testutil provides testing utilities shared by package tests.
package testutil

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/bootinfo"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/physmem"
)

// HeapMapper is a physmem.Mapper backed by ordinary heap memory.
type HeapMapper struct {
	mu     sync.Mutex
	Mapped []uint64 // physical addresses currently mapped
}

type heapRegion struct {
	owner *HeapMapper
	phys  uint64
	buf   []byte
}

func (r *heapRegion) Bytes() []byte    { return r.buf }
func (r *heapRegion) PhysAddr() uint64 { return r.phys }

func (r *heapRegion) Unmap() error {
	r.buf = nil
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	for i, p := range r.owner.Mapped {
		if p == r.phys {
			r.owner.Mapped = append(r.owner.Mapped[:i], r.owner.Mapped[i+1:]...)
			break
		}
	}
	return nil
}

// MapDevice implements physmem.Mapper.
func (m *HeapMapper) MapDevice(physAddr, size uint64) (physmem.Region, error) {
	m.mu.Lock()
	m.Mapped = append(m.Mapped, physAddr)
	m.mu.Unlock()
	return &heapRegion{owner: m, phys: physAddr, buf: make([]byte, size)}, nil
}

// MappedCount returns the number of live mappings.
func (m *HeapMapper) MappedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Mapped)
}

// NewFramebuffer acquires a heap-backed framebuffer of the given geometry.
func NewFramebuffer(t *testing.T, width, height uint32) *framebuffer.Framebuffer {
	t.Helper()

	fb, err := framebuffer.NewAcquirer(&HeapMapper{}, nil).Acquire(bootinfo.GraphicsDescriptor{
		Width:           width,
		Height:          height,
		PhysicalAddress: 0xFD000000,
	})
	require.NoError(t, err)
	return fb
}

// NewQueues returns a keyboard and a mouse queue.
func NewQueues(capacity int) (keys, mouse *event.Queue) {
	return event.NewQueue("keyboard", capacity), event.NewQueue("mouse", capacity)
}

// WriteObject writes a minimal ELF relocatable object at dir/name.
func WriteObject(t *testing.T, dir, name string) string {
	t.Helper()

	// e_ident + e_type/e_machine of a 64-bit little endian ET_REL x86-64 object
	header := make([]byte, 64)
	copy(header, []byte{0x7f, 'E', 'L', 'F', 2, 1, 1})
	binary.LittleEndian.PutUint16(header[16:], 1)
	binary.LittleEndian.PutUint16(header[18:], 0x3e)
	binary.LittleEndian.PutUint32(header[20:], 1)

	return WriteFile(t, dir, name, header)
}

// WriteFile writes data at dir/name, creating parent directories.
func WriteFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}
