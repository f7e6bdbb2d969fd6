package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/shared/kerr"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, so components can be built without instrumentation.
type Metrics struct {
	registry *prometheus.Registry

	// Boot sequencer
	BootSteps        *prometheus.CounterVec
	BootStepDuration *prometheus.HistogramVec

	// Window registry
	RegistryOps *prometheus.CounterVec

	// Framebuffer
	FramebufferBytes prometheus.Gauge

	// Scheduler
	TasksSpawned *prometheus.CounterVec
	TasksRunning prometheus.Gauge

	// Input queues
	InputEvents *prometheus.CounterVec

	// Diagnostics HTTP
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a metrics collector with its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		BootSteps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxboot_boot_steps_total",
				Help: "Bootstrap sequencer steps by outcome",
			},
			[]string{"step", "result"},
		),
		BootStepDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gfxboot_boot_step_duration_seconds",
				Help:    "Bootstrap sequencer step duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"step"},
		),

		RegistryOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxboot_window_registry_operations_total",
				Help: "Window registry operations by outcome",
			},
			[]string{"op", "result"},
		),

		FramebufferBytes: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gfxboot_framebuffer_mapped_bytes",
				Help: "Size of the mapped framebuffer in bytes",
			},
		),

		TasksSpawned: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxboot_tasks_spawned_total",
				Help: "Spawn requests by outcome",
			},
			[]string{"result"},
		),
		TasksRunning: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gfxboot_tasks_running",
				Help: "Number of tasks currently running",
			},
		),

		InputEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxboot_input_events_total",
				Help: "Input events offered to the event queues",
			},
			[]string{"queue", "outcome"},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gfxboot_http_requests_total",
				Help: "Total number of diagnostics HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gfxboot_http_request_duration_seconds",
				Help:    "Diagnostics HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
	}
}

// Registry returns the underlying Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the exposition handler for this collector
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordBootStep records the outcome of a sequencer step
func (m *Metrics) RecordBootStep(step string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	m.BootSteps.WithLabelValues(step, resultLabel(err)).Inc()
	m.BootStepDuration.WithLabelValues(step).Observe(duration.Seconds())
}

// RecordRegistryOp records a window registry operation
func (m *Metrics) RecordRegistryOp(op string, err error) {
	if m == nil {
		return
	}
	m.RegistryOps.WithLabelValues(op, resultLabel(err)).Inc()
}

// SetFramebufferBytes sets the mapped framebuffer size
func (m *Metrics) SetFramebufferBytes(n int) {
	if m == nil {
		return
	}
	m.FramebufferBytes.Set(float64(n))
}

// RecordSpawn records a spawn request
func (m *Metrics) RecordSpawn(err error) {
	if m == nil {
		return
	}
	m.TasksSpawned.WithLabelValues(resultLabel(err)).Inc()
}

// IncTasksRunning increments the running task gauge
func (m *Metrics) IncTasksRunning() {
	if m == nil {
		return
	}
	m.TasksRunning.Inc()
}

// DecTasksRunning decrements the running task gauge
func (m *Metrics) DecTasksRunning() {
	if m == nil {
		return
	}
	m.TasksRunning.Dec()
}

// RecordInputEvent records an event offered to a queue
func (m *Metrics) RecordInputEvent(queue string, accepted bool) {
	if m == nil {
		return
	}
	outcome := "accepted"
	if !accepted {
		outcome = "dropped"
	}
	m.InputEvents.WithLabelValues(queue, outcome).Inc()
}

// RecordHTTPRequest records a diagnostics HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// resultLabel maps an error to a low-cardinality label value
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return kerr.KindOf(err).String()
}
