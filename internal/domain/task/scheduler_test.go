package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/namespace"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

func appNamespace(names ...string) *namespace.Namespace {
	objects := make([]namespace.Object, 0, len(names))
	for _, n := range names {
		objects = append(objects, namespace.Object{Name: n, Path: "/apps/" + n + ".o"})
	}
	return namespace.New("application", "/apps", objects, nil)
}

func blockUntilDone(ctx context.Context, _ *Task) error {
	<-ctx.Done()
	return nil
}

func shutdown(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}

func TestSchedulerSpawnRunsProgram(t *testing.T) {
	s := NewScheduler(Config{}, nil)
	defer shutdown(t, s)

	ns := appNamespace("window_manager-0.1.0")
	ran := make(chan *Task, 1)
	s.Register("window_manager", func(ctx context.Context, tk *Task) error {
		ran <- tk
		return nil
	})

	tk, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)
	assert.Equal(t, "window_manager", tk.Name())
	assert.Equal(t, "/apps/window_manager-0.1.0.o", tk.Path())
	assert.Same(t, ns, tk.Namespace())

	select {
	case got := <-ran:
		assert.Same(t, tk, got)
	case <-time.After(5 * time.Second):
		t.Fatal("program did not run")
	}

	require.NoError(t, tk.Wait(context.Background()))
	assert.Equal(t, StateExited, tk.State())

	got, ok := s.Get(tk.ID())
	require.True(t, ok)
	assert.Same(t, tk, got)
}

func TestSchedulerProgramSelection(t *testing.T) {
	tests := []struct {
		object string
		want   string
		found  bool
	}{
		{"window_manager-0.1.0", "window_manager", true},
		{"window_manager", "window_manager", true},
		{"window-2.0.0", "window", true},
		{"window_managerx-1.0.0", "", false},
		{"shell-0.1.0", "", false},
	}

	s := NewScheduler(Config{}, nil)
	for _, name := range []string{"window", "window_manager"} {
		name := name
		s.Register(name, func(ctx context.Context, tk *Task) error {
			return errors.New(name)
		})
	}

	for _, tt := range tests {
		t.Run(tt.object, func(t *testing.T) {
			prog, ok := s.programFor(tt.object)
			require.Equal(t, tt.found, ok)
			if ok {
				assert.EqualError(t, prog(context.Background(), nil), tt.want)
			}
		})
	}
}

func TestSchedulerRejections(t *testing.T) {
	ns := appNamespace("window_manager-0.1.0", "shell-0.2.0")

	t.Run("path outside namespace", func(t *testing.T) {
		s := NewScheduler(Config{}, nil)
		defer shutdown(t, s)
		s.Register("window_manager", blockUntilDone)

		_, err := s.Spawn(context.Background(), "/elsewhere/window_manager-0.1.0.o", ns, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
	})

	t.Run("nil namespace", func(t *testing.T) {
		s := NewScheduler(Config{}, nil)
		defer shutdown(t, s)

		_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", nil, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
	})

	t.Run("no program", func(t *testing.T) {
		s := NewScheduler(Config{}, nil)
		defer shutdown(t, s)
		s.Register("window_manager", blockUntilDone)

		_, err := s.Spawn(context.Background(), "/apps/shell-0.2.0.o", ns, "shell")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
	})

	t.Run("canceled context", func(t *testing.T) {
		s := NewScheduler(Config{}, nil)
		defer shutdown(t, s)
		s.Register("window_manager", blockUntilDone)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := s.Spawn(ctx, "/apps/window_manager-0.1.0.o", ns, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("task limit", func(t *testing.T) {
		s := NewScheduler(Config{MaxTasks: 1}, nil)
		defer shutdown(t, s)
		s.Register("window_manager", blockUntilDone)

		_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
		require.NoError(t, err)
		_, err = s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
		assert.Equal(t, 1, s.Running())
	})

	t.Run("spawn rate", func(t *testing.T) {
		s := NewScheduler(Config{SpawnRate: 0.001, SpawnBurst: 1}, nil)
		defer shutdown(t, s)
		s.Register("window_manager", blockUntilDone)

		_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
		require.NoError(t, err)
		_, err = s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
	})

	t.Run("after shutdown", func(t *testing.T) {
		s := NewScheduler(Config{}, nil)
		s.Register("window_manager", blockUntilDone)
		shutdown(t, s)

		_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
		assert.ErrorIs(t, err, kerr.ErrSpawnFailure)
	})
}

func TestSchedulerTaskFailure(t *testing.T) {
	s := NewScheduler(Config{}, nil)
	defer shutdown(t, s)
	ns := appNamespace("window_manager-0.1.0", "shell-0.2.0")

	boom := errors.New("boom")
	s.Register("window_manager", func(ctx context.Context, tk *Task) error { return boom })
	s.Register("shell", func(ctx context.Context, tk *Task) error { panic("bad state") })

	tk, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)
	assert.ErrorIs(t, tk.Wait(context.Background()), boom)
	assert.Equal(t, StateFailed, tk.State())

	tk, err = s.Spawn(context.Background(), "/apps/shell-0.2.0.o", ns, "shell")
	require.NoError(t, err)
	assert.ErrorContains(t, tk.Wait(context.Background()), "panicked")
	assert.Equal(t, StateFailed, tk.State())
	assert.Contains(t, mustInfo(t, s, tk).Error, "panicked")
}

func mustInfo(t *testing.T, s *Scheduler, tk *Task) Info {
	t.Helper()
	for _, info := range s.List() {
		if info.ID == tk.ID().String() {
			return info
		}
	}
	t.Fatalf("task %s not listed", tk.ID())
	return Info{}
}

func TestSchedulerShutdownCancelsTasks(t *testing.T) {
	s := NewScheduler(Config{}, nil)
	ns := appNamespace("window_manager-0.1.0")
	s.Register("window_manager", blockUntilDone)

	tk, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)
	assert.Equal(t, StateRunning, tk.State())

	shutdown(t, s)

	select {
	case <-tk.Done():
	default:
		t.Fatal("task still running after shutdown")
	}
	assert.Equal(t, StateExited, tk.State())
	assert.Zero(t, s.Running())
}

func TestSchedulerShutdownTimeout(t *testing.T) {
	s := NewScheduler(Config{}, nil)
	ns := appNamespace("window_manager-0.1.0")
	release := make(chan struct{})
	defer close(release)
	s.Register("window_manager", func(ctx context.Context, tk *Task) error {
		<-release
		return nil
	})

	_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Shutdown(ctx), context.DeadlineExceeded)
}

func TestSchedulerList(t *testing.T) {
	s := NewScheduler(Config{}, nil)
	defer shutdown(t, s)
	ns := appNamespace("window_manager-0.1.0", "shell-0.2.0")
	s.Register("window_manager", blockUntilDone)
	s.Register("shell", blockUntilDone)

	first, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)
	second, err := s.Spawn(context.Background(), "/apps/shell-0.2.0.o", ns, "shell")
	require.NoError(t, err)

	infos := s.List()
	require.Len(t, infos, 2)
	ids := []string{infos[0].ID, infos[1].ID}
	assert.ElementsMatch(t, []string{first.ID().String(), second.ID().String()}, ids)
	for _, info := range infos {
		assert.Equal(t, "running", info.State)
		assert.Equal(t, ns.ID().String(), info.Namespace)
		assert.Empty(t, info.Error)
	}
}

func TestSchedulerMetrics(t *testing.T) {
	m := monitoring.NewMetrics()
	s := NewScheduler(Config{MaxTasks: 1}, nil).WithMetrics(m)
	defer shutdown(t, s)
	ns := appNamespace("window_manager-0.1.0")
	s.Register("window_manager", blockUntilDone)

	_, err := s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.NoError(t, err)
	_, err = s.Spawn(context.Background(), "/apps/window_manager-0.1.0.o", ns, "window_manager")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSpawned.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSpawned.WithLabelValues(kerr.SpawnFailure.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksRunning))
}
