package windowmanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
	tu "github.com/GriffinCanCode/AgentOS/gfxboot/internal/testutil"
)

func readyRegistry(t *testing.T) (*window.Registry, *event.Queue, *event.Queue) {
	t.Helper()
	reg := window.NewRegistry(nil)
	keys, mouse := tu.NewQueues(16)
	require.NoError(t, reg.Initialize(tu.NewFramebuffer(t, 64, 48), keys, mouse))
	return reg, keys, mouse
}

func TestRunClaimsAndClears(t *testing.T) {
	reg, keys, mouse := readyRegistry(t)
	bg := framebuffer.RGBA(1, 2, 3, 0xFF)
	wm := New(reg, nil).WithBackground(bg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- wm.Run(ctx, nil) }()

	select {
	case <-wm.Claimed():
	case <-time.After(5 * time.Second):
		t.Fatal("registry not claimed")
	}
	assert.Equal(t, window.StateClaimed, reg.State())

	entry, err := reg.LookupShared()
	require.NoError(t, err)
	entry.Framebuffer.With(func(fb *framebuffer.Framebuffer) {
		for _, p := range fb.Pixels() {
			require.Equal(t, bg, p)
		}
	})
	assert.Equal(t, 32, wm.Stats().CursorX)
	assert.Equal(t, 24, wm.Stats().CursorY)

	require.True(t, keys.Push(event.Keyboard(event.KeyEvent{Keycode: 30, Action: event.Pressed})))
	require.True(t, mouse.Push(event.Mouse(event.MouseEvent{DX: 1000, DY: 1000})))

	assert.Eventually(t, func() bool {
		s := wm.Stats()
		return s.KeyEvents == 1 && s.MouseEvents == 1
	}, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, 63, wm.Stats().CursorX)
	assert.Equal(t, 0, wm.Stats().CursorY)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("window manager did not stop")
	}
}

func TestRunFailsWhenNotReady(t *testing.T) {
	wm := New(window.NewRegistry(nil), nil)

	err := wm.Run(context.Background(), nil)
	assert.ErrorIs(t, err, kerr.ErrNotReady)
}

func TestSecondWindowManagerIsRejected(t *testing.T) {
	reg, _, _ := readyRegistry(t)
	_, err := reg.ClaimExclusive()
	require.NoError(t, err)

	err = New(reg, nil).Run(context.Background(), nil)
	assert.ErrorIs(t, err, kerr.ErrAlreadyClaimed)
}
