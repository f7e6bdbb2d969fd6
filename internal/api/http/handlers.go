// Package http provides the diagnostics HTTP handlers.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/boot"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/task"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

// Version is reported by the root endpoint
const Version = "0.1.0"

// DisplayRegistry is the read side of the window registry
type DisplayRegistry interface {
	State() window.State
	LookupShared() (window.Entry, error)
}

// TaskLister lists spawned tasks
type TaskLister interface {
	List() []task.Info
}

// BootReporter reports the last boot attempt
type BootReporter interface {
	Status() boot.Status
}

// Handlers contains the diagnostics HTTP handlers
type Handlers struct {
	registry DisplayRegistry
	tasks    TaskLister
	boot     BootReporter
}

// NewHandlers creates a new handlers instance. tasks and boot may be nil.
func NewHandlers(registry DisplayRegistry, tasks TaskLister, boot BootReporter) *Handlers {
	return &Handlers{registry: registry, tasks: tasks, boot: boot}
}

// Root handles the root endpoint
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "gfxboot",
		"version": Version,
	})
}

// Health reports liveness. A failed boot leaves the process running
// headless, which is still healthy.
func (h *Handlers) Health(c *gin.Context) {
	resp := gin.H{
		"status":   "healthy",
		"registry": h.registry.State().String(),
	}
	if h.boot != nil {
		resp["boot"] = h.boot.Status().Phase
	}
	if h.tasks != nil {
		resp["tasks"] = len(h.tasks.List())
	}
	c.JSON(http.StatusOK, resp)
}

// Display reports the shared view of the display resources
func (h *Handlers) Display(c *gin.Context) {
	entry, err := h.registry.LookupShared()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, kerr.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"state": h.registry.State().String(),
			"error": err.Error(),
		})
		return
	}

	var (
		physAddr uint64
		size     int
	)
	entry.Framebuffer.With(func(fb *framebuffer.Framebuffer) {
		physAddr = fb.PhysAddr()
		size = fb.Size()
	})
	width, height := entry.Geometry()

	c.JSON(http.StatusOK, gin.H{
		"state":      h.registry.State().String(),
		"width":      width,
		"height":     height,
		"pixel_size": framebuffer.PixelSize,
		"bytes":      size,
		"paddr":      physAddr,
		"queues": gin.H{
			entry.Keys.Name():  gin.H{"pending": entry.Keys.Len(), "capacity": entry.Keys.Cap()},
			entry.Mouse.Name(): gin.H{"pending": entry.Mouse.Len(), "capacity": entry.Mouse.Cap()},
		},
	})
}

// ListTasks lists spawned tasks
func (h *Handlers) ListTasks(c *gin.Context) {
	tasks := []task.Info{}
	if h.tasks != nil {
		tasks = h.tasks.List()
	}
	c.JSON(http.StatusOK, gin.H{
		"tasks": tasks,
		"count": len(tasks),
	})
}

// Boot reports the last boot attempt
func (h *Handlers) Boot(c *gin.Context) {
	if h.boot == nil {
		c.JSON(http.StatusOK, boot.Status{Phase: boot.PhasePending})
		return
	}
	c.JSON(http.StatusOK, h.boot.Status())
}
