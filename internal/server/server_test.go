package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/boot"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/task"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/domain/window"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/config"
	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/monitoring"
	tu "github.com/GriffinCanCode/AgentOS/gfxboot/internal/testutil"
)

type fixedBoot boot.Status

func (f fixedBoot) Status() boot.Status { return boot.Status(f) }

func testConfig() *config.Config {
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Logging.Development = true
	cfg.RateLimit.Enabled = false
	return cfg
}

func get(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var body map[string]interface{}
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func TestDisplayLifecycle(t *testing.T) {
	reg := window.NewRegistry(nil)
	srv := New(testConfig(), Sources{Registry: reg}, nil, nil, nil)

	w, body := get(t, srv.Handler(), "/display")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "uninitialized", body["state"])

	keys, mouse := tu.NewQueues(8)
	require.NoError(t, reg.Initialize(tu.NewFramebuffer(t, 320, 200), keys, mouse))

	w, body = get(t, srv.Handler(), "/display")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", body["state"])
	assert.Equal(t, 320.0, body["width"])
	assert.Equal(t, 200.0, body["height"])
	assert.Equal(t, float64(320*200*4), body["bytes"])
	assert.Equal(t, float64(0xFD000000), body["paddr"])

	// a shared lookup never claims
	assert.Equal(t, window.StateReady, reg.State())

	_, err := reg.ClaimExclusive()
	require.NoError(t, err)
	w, body = get(t, srv.Handler(), "/display")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "claimed", body["state"])
}

func TestHealthAndBoot(t *testing.T) {
	reg := window.NewRegistry(nil)
	status := fixedBoot{Phase: boot.PhaseFailed, Step: boot.StepAcquire, ErrorKind: "hardware absent"}
	sched := task.NewScheduler(task.Config{}, nil)
	srv := New(testConfig(), Sources{Registry: reg, Tasks: sched, Boot: status}, nil, nil, nil)

	w, body := get(t, srv.Handler(), "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "uninitialized", body["registry"])
	assert.Equal(t, "failed", body["boot"])
	assert.Equal(t, 0.0, body["tasks"])

	w, body = get(t, srv.Handler(), "/boot")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "failed", body["phase"])
	assert.Equal(t, "acquire", body["step"])
	assert.Equal(t, "hardware absent", body["error_kind"])

	w, body = get(t, srv.Handler(), "/tasks")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, body["count"])
	assert.Empty(t, body["tasks"])
}

func TestMetricsEndpoint(t *testing.T) {
	metrics := monitoring.NewMetrics()
	reg := window.NewRegistry(nil).WithMetrics(metrics)
	srv := New(testConfig(), Sources{Registry: reg}, nil, metrics, nil)

	get(t, srv.Handler(), "/display")
	w, _ := get(t, srv.Handler(), "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "gfxboot_window_registry_operations_total")
	assert.Contains(t, w.Body.String(), `gfxboot_http_requests_total{method="GET",path="/display",status="503"} 1`)
}

func TestNoMetricsRoute(t *testing.T) {
	srv := New(testConfig(), Sources{Registry: window.NewRegistry(nil)}, nil, nil, nil)

	w, _ := get(t, srv.Handler(), "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1, Enabled: true}
	srv := New(cfg, Sources{Registry: window.NewRegistry(nil)}, nil, nil, nil)

	w, _ := get(t, srv.Handler(), "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = get(t, srv.Handler(), "/health")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestServeStopsOnCancel(t *testing.T) {
	srv := New(testConfig(), Sources{Registry: window.NewRegistry(nil)}, nil, nil, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/health")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
