package window

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/event"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/framebuffer"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

const module = "window"

// ErrNilResource is returned by Initialize when a handle is missing.
var ErrNilResource = errors.New("window: framebuffer and both event queues are required")

// State is the registry lifecycle state
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClaimed
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReady:
		return "ready"
	case StateClaimed:
		return "claimed"
	default:
		return "unknown"
	}
}

// Entry is the set of display resources handed out by the registry.
// Copies share the underlying framebuffer and queues.
type Entry struct {
	Framebuffer *framebuffer.Shared
	Keys        *event.Queue
	Mouse       *event.Queue
}

// Geometry returns the display width and height in pixels
func (e Entry) Geometry() (width, height int) {
	return e.Framebuffer.Width(), e.Framebuffer.Height()
}

// Registry is the lock-protected optional display resource slot.
type Registry struct {
	mu      sync.Mutex
	entry   *Entry // Protected by mu; nil until Initialize
	claimed bool   // Protected by mu

	logger  *logging.Logger
	metrics *monitoring.Metrics
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(nil)
	})
	return defaultRegistry
}

// NewRegistry creates an uninitialized registry
func NewRegistry(logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Registry{logger: logger.Named(module)}
}

// WithLogger replaces the registry logger
func (r *Registry) WithLogger(logger *logging.Logger) *Registry {
	r.logger = logger.Named(module)
	return r
}

// WithMetrics adds metrics tracking to the registry
func (r *Registry) WithMetrics(metrics *monitoring.Metrics) *Registry {
	r.metrics = metrics
	return r
}

// Initialize stores the display resources, moving the registry from
// Uninitialized to Ready. It succeeds at most once per registry; later calls
// fail with AlreadyInitialized and leave the stored entry untouched, whatever
// their arguments.
func (r *Registry) Initialize(fb *framebuffer.Framebuffer, keys, mouse *event.Queue) error {
	r.mu.Lock()
	var err error
	switch {
	case r.entry != nil:
		err = kerr.New(kerr.AlreadyInitialized, module, "registry already holds a %dx%d framebuffer", r.entry.Framebuffer.Width(), r.entry.Framebuffer.Height())
	case fb == nil || keys == nil || mouse == nil:
		err = ErrNilResource
	default:
		r.entry = &Entry{
			Framebuffer: framebuffer.NewShared(fb),
			Keys:        keys,
			Mouse:       mouse,
		}
	}
	r.mu.Unlock()

	r.metrics.RecordRegistryOp("initialize", err)
	if err != nil {
		r.logger.Warn("rejected initialization", zap.Error(err))
		return err
	}

	r.logger.Info("window registry ready",
		zap.Int("width", fb.Width()),
		zap.Int("height", fb.Height()),
		zap.String("keyboard_queue", keys.Name()),
		zap.String("mouse_queue", mouse.Name()),
	)
	return nil
}

// ClaimExclusive hands the entry to its sole owner, moving the registry from
// Ready to Claimed. It fails with NotReady before Initialize and with
// AlreadyClaimed once any caller has claimed.
func (r *Registry) ClaimExclusive() (Entry, error) {
	r.mu.Lock()
	var (
		entry Entry
		err   error
	)
	switch {
	case r.entry == nil:
		err = kerr.New(kerr.NotReady, module, "window registry is not initialized")
	case r.claimed:
		err = kerr.New(kerr.AlreadyClaimed, module, "window registry was already claimed")
	default:
		r.claimed = true
		entry = *r.entry
	}
	r.mu.Unlock()

	r.metrics.RecordRegistryOp("claim", err)
	if err != nil {
		return Entry{}, err
	}

	r.logger.Info("window manager claimed display")
	return entry, nil
}

// LookupShared returns the entry without changing state. It is valid in
// Ready and Claimed and fails with NotReady before Initialize.
func (r *Registry) LookupShared() (Entry, error) {
	r.mu.Lock()
	e := r.entry
	r.mu.Unlock()

	if e == nil {
		err := kerr.New(kerr.NotReady, module, "window registry is not initialized")
		r.metrics.RecordRegistryOp("lookup", err)
		return Entry{}, err
	}

	r.metrics.RecordRegistryOp("lookup", nil)
	return *e, nil
}

// State reports the current lifecycle state. It is meant for diagnostics;
// the answer may be stale by the time it is used.
func (r *Registry) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch {
	case r.entry == nil:
		return StateUninitialized
	case r.claimed:
		return StateClaimed
	default:
		return StateReady
	}
}
