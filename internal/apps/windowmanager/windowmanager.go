// Package windowmanager is the first application launched by the boot
// sequence. It takes the display resources out of the window registry and
// owns them until it is stopped.
package windowmanager

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/task"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
)

// Name is the crate name the program is registered under.
const Name = "window_manager"

// DefaultBackground is the desktop color
var DefaultBackground = framebuffer.RGBA(0x30, 0x30, 0x40, 0xFF)

// Stats counts the input consumed by the window manager
type Stats struct {
	KeyEvents   uint64 `json:"key_events"`
	MouseEvents uint64 `json:"mouse_events"`
	CursorX     int    `json:"cursor_x"`
	CursorY     int    `json:"cursor_y"`
}

// WindowManager holds the exclusive side of the window registry.
type WindowManager struct {
	registry   *window.Registry
	background framebuffer.AlphaPixel
	logger     *logging.Logger

	keys    atomic.Uint64
	mouse   atomic.Uint64
	cursorX atomic.Int64
	cursorY atomic.Int64
	claimed chan struct{}
}

// New creates a window manager over reg
func New(reg *window.Registry, logger *logging.Logger) *WindowManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WindowManager{
		registry:   reg,
		background: DefaultBackground,
		logger:     logger.Named(Name),
		claimed:    make(chan struct{}),
	}
}

// WithBackground sets the color the framebuffer is cleared to
func (wm *WindowManager) WithBackground(p framebuffer.AlphaPixel) *WindowManager {
	wm.background = p
	return wm
}

// Claimed is closed once the registry has been claimed.
func (wm *WindowManager) Claimed() <-chan struct{} { return wm.claimed }

// Run claims the registry, clears the screen and consumes input until ctx
// is done. It matches task.Program.
func (wm *WindowManager) Run(ctx context.Context, t *task.Task) error {
	entry, err := wm.registry.ClaimExclusive()
	if err != nil {
		return fmt.Errorf("window manager: %w", err)
	}

	width, height := entry.Geometry()
	entry.Framebuffer.With(func(fb *framebuffer.Framebuffer) {
		fb.Fill(wm.background)
	})
	wm.cursorX.Store(int64(width / 2))
	wm.cursorY.Store(int64(height / 2))
	close(wm.claimed)

	fields := []zap.Field{zap.Int("width", width), zap.Int("height", height)}
	if t != nil {
		fields = append(fields, zap.String("task", t.ID().String()), zap.String("namespace", t.Namespace().ID().String()))
	}
	wm.logger.Info("claimed display", fields...)

	for {
		select {
		case <-ctx.Done():
			wm.logger.Info("window manager stopping", zap.Uint64("key_events", wm.keys.Load()), zap.Uint64("mouse_events", wm.mouse.Load()))
			return nil
		case ev := <-entry.Keys.C():
			wm.handle(ev, width, height)
		case ev := <-entry.Mouse.C():
			wm.handle(ev, width, height)
		}
	}
}

func (wm *WindowManager) handle(ev event.Event, width, height int) {
	switch ev.Kind {
	case event.KindKey:
		wm.keys.Add(1)
	case event.KindMouse:
		wm.mouse.Add(1)
		wm.cursorX.Store(clamp(wm.cursorX.Load()+int64(ev.Mouse.DX), int64(width)-1))
		wm.cursorY.Store(clamp(wm.cursorY.Load()-int64(ev.Mouse.DY), int64(height)-1))
	}
}

// Stats returns a snapshot of the consumed input
func (wm *WindowManager) Stats() Stats {
	return Stats{
		KeyEvents:   wm.keys.Load(),
		MouseEvents: wm.mouse.Load(),
		CursorX:     int(wm.cursorX.Load()),
		CursorY:     int(wm.cursorY.Load()),
	}
}

func clamp(v, hi int64) int64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}
