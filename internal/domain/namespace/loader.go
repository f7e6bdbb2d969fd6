package namespace

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charlievieth/fastwalk"
	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
)

const module = "loader"

const elfMIME = "application/x-elf"

// Config controls how application directories are scanned.
type Config struct {
	// Dir is the application directory.
	Dir string

	// KernelDir, when set, is scanned once into the parent namespace of
	// every application namespace.
	KernelDir string

	// Pattern is a doublestar pattern matched against slash separated
	// paths relative to the scanned directory.
	Pattern string

	// Suffix is trimmed from file names to form object names.
	Suffix string

	// RequireELF skips files whose content is not an ELF image.
	RequireELF bool
}

// Loader creates application namespaces and resolves objects in them.
type Loader struct {
	cfg    Config
	logger *logging.Logger

	kernelOnce sync.Once
	kernelNS   *Namespace
	kernelErr  error
}

// NewLoader validates cfg and creates a loader.
func NewLoader(cfg Config, logger *logging.Logger) (*Loader, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("application directory is required")
	}
	if cfg.Pattern == "" {
		cfg.Pattern = "**/*"
	}
	if !doublestar.ValidatePattern(cfg.Pattern) {
		return nil, fmt.Errorf("invalid object pattern %q", cfg.Pattern)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Loader{cfg: cfg, logger: logger.Named(module)}, nil
}

// CreateApplicationNamespace scans the application directory into a new,
// independent namespace.
func (l *Loader) CreateApplicationNamespace(ctx context.Context) (*Namespace, error) {
	parent, err := l.kernelNamespace(ctx)
	if err != nil {
		return nil, err
	}

	dir, objects, err := l.scan(ctx, l.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create application namespace: %w", err)
	}

	ns := New("application", dir, objects, parent)
	l.logger.Info("created application namespace",
		zap.String("namespace", ns.ID().String()),
		zap.String("dir", dir),
		zap.Int("objects", ns.Len()),
	)
	return ns, nil
}

// ResolveByPrefix finds the object whose name starts with prefix, searching
// ns first and then its ancestors. It returns the object and the namespace
// it was found in. Within a namespace the lexicographically smallest
// matching name wins.
func (l *Loader) ResolveByPrefix(ns *Namespace, prefix string) (Object, *Namespace, bool) {
	for cur := ns; cur != nil; cur = cur.parent {
		if obj, ok := cur.ObjectStartingWith(prefix); ok {
			l.logger.Debug("resolved object",
				zap.String("prefix", prefix),
				zap.String("object", obj.Name),
				zap.String("namespace", cur.ID().String()),
			)
			return obj, cur, true
		}
	}
	return Object{}, nil, false
}

func (l *Loader) kernelNamespace(ctx context.Context) (*Namespace, error) {
	if l.cfg.KernelDir == "" {
		return nil, nil
	}
	l.kernelOnce.Do(func() {
		dir, objects, err := l.scan(ctx, l.cfg.KernelDir)
		if err != nil {
			l.kernelErr = fmt.Errorf("failed to create kernel namespace: %w", err)
			return
		}
		l.kernelNS = New("kernel", dir, objects, nil)
	})
	return l.kernelNS, l.kernelErr
}

// scan walks dir and returns its absolute form with the matching objects.
func (l *Loader) scan(ctx context.Context, dir string) (string, []Object, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}

	var (
		mu      sync.Mutex
		objects []Object
	)
	conf := fastwalk.Config{Follow: false}
	err = fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			// an unreadable root is fatal, anything below it is skipped
			if p == root {
				return err
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		if ok, _ := doublestar.Match(l.cfg.Pattern, filepath.ToSlash(rel)); !ok {
			return nil
		}
		if l.cfg.RequireELF && !isELF(p) {
			l.logger.Debug("skipping non-ELF file", zap.String("path", p))
			return nil
		}

		obj := Object{
			Name: strings.TrimSuffix(filepath.Base(p), l.cfg.Suffix),
			Path: p,
		}
		mu.Lock()
		objects = append(objects, obj)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return root, objects, nil
}

func isELF(path string) bool {
	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return false
	}
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(elfMIME) {
			return true
		}
	}
	return false
}
