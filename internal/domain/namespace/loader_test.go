package namespace

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/GriffinCanCode/AgentOS/gfxboot/internal/testutil"
)

func newLoader(t *testing.T, cfg Config) *Loader {
	t.Helper()
	if cfg.Suffix == "" {
		cfg.Suffix = ".o"
	}
	l, err := NewLoader(cfg, nil)
	require.NoError(t, err)
	return l
}

func TestNewLoaderValidation(t *testing.T) {
	_, err := NewLoader(Config{}, nil)
	assert.Error(t, err)

	_, err = NewLoader(Config{Dir: "/apps", Pattern: "[unterminated"}, nil)
	assert.Error(t, err)

	l, err := NewLoader(Config{Dir: "/apps"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "**/*", l.cfg.Pattern)
}

func TestCreateApplicationNamespaceScansDirectory(t *testing.T) {
	dir := t.TempDir()
	tu.WriteObject(t, dir, "window_manager-0.1.0.o")
	tu.WriteObject(t, dir, "nested/shell-0.2.0.o")
	tu.WriteFile(t, dir, "README.txt", []byte("not an object"))

	l := newLoader(t, Config{Dir: dir, Pattern: "**/*.o", RequireELF: true})

	ns, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"shell-0.2.0", "window_manager-0.1.0"}, names(ns.Objects()))
	abs, _ := filepath.Abs(dir)
	assert.Equal(t, abs, ns.Dir())
	for _, o := range ns.Objects() {
		assert.True(t, filepath.IsAbs(o.Path), o.Path)
	}
	assert.Nil(t, ns.Parent())
}

func TestRequireELFSkipsOtherContent(t *testing.T) {
	dir := t.TempDir()
	tu.WriteObject(t, dir, "window_manager-0.1.0.o")
	tu.WriteFile(t, dir, "window_manager-0.0.9.o", []byte("#!/bin/sh\necho hi\n"))

	strict := newLoader(t, Config{Dir: dir, RequireELF: true})
	ns, err := strict.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"window_manager-0.1.0"}, names(ns.Objects()))

	lax := newLoader(t, Config{Dir: dir})
	ns, err = lax.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"window_manager-0.0.9", "window_manager-0.1.0"}, names(ns.Objects()))
}

func TestNamespacesAreIsolated(t *testing.T) {
	dir := t.TempDir()
	tu.WriteObject(t, dir, "window_manager-0.1.0.o")
	l := newLoader(t, Config{Dir: dir})

	first, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)

	tu.WriteObject(t, dir, "shell-0.2.0.o")
	second, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 1, first.Len())
	assert.Equal(t, 2, second.Len())
}

func TestResolveByPrefix(t *testing.T) {
	dir := t.TempDir()
	tu.WriteObject(t, dir, "window_manager-0.2.0.o")
	tu.WriteObject(t, dir, "window_manager-0.1.0.o")
	l := newLoader(t, Config{Dir: dir})

	ns, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)

	obj, found, ok := l.ResolveByPrefix(ns, "window_manager-")
	require.True(t, ok)
	assert.Equal(t, "window_manager-0.1.0", obj.Name)
	assert.Same(t, ns, found)

	_, found, ok = l.ResolveByPrefix(ns, "shell-")
	assert.False(t, ok)
	assert.Nil(t, found)
}

func TestResolveFallsBackToKernelNamespace(t *testing.T) {
	appDir, kernelDir := t.TempDir(), t.TempDir()
	tu.WriteObject(t, appDir, "shell-0.2.0.o")
	tu.WriteObject(t, kernelDir, "window_manager-0.1.0.o")
	tu.WriteObject(t, kernelDir, "shell-0.1.0.o")

	l := newLoader(t, Config{Dir: appDir, KernelDir: kernelDir})

	a, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)
	b, err := l.CreateApplicationNamespace(context.Background())
	require.NoError(t, err)
	require.NotNil(t, a.Parent())
	assert.Same(t, a.Parent(), b.Parent(), "the kernel namespace is shared")

	obj, found, ok := l.ResolveByPrefix(a, "window_manager-")
	require.True(t, ok)
	assert.Equal(t, "window_manager-0.1.0", obj.Name)
	assert.Same(t, a.Parent(), found)

	// the application namespace shadows the kernel one
	obj, found, ok = l.ResolveByPrefix(a, "shell-")
	require.True(t, ok)
	assert.Equal(t, "shell-0.2.0", obj.Name)
	assert.Same(t, a, found)
}

func TestCreateApplicationNamespaceMissingDir(t *testing.T) {
	l := newLoader(t, Config{Dir: filepath.Join(t.TempDir(), "absent")})

	_, err := l.CreateApplicationNamespace(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCreateApplicationNamespaceCanceled(t *testing.T) {
	dir := t.TempDir()
	tu.WriteObject(t, dir, "window_manager-0.1.0.o")
	l := newLoader(t, Config{Dir: dir})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.CreateApplicationNamespace(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
