package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/AgentOS/gfxboot/internal/infrastructure/logging"
)

func observedTracer() (*Tracer, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return New("gfxboot", logging.Wrap(zap.New(core))), logs
}

func TestSpansShareTrace(t *testing.T) {
	tracer, logs := observedTracer()

	ctx := WithTraceID(context.Background(), "boot-1")
	root, ctx := tracer.StartSpan(ctx, "boot")
	child, childCtx := tracer.StartSpan(ctx, "acquire")

	assert.Equal(t, TraceID("boot-1"), root.TraceID)
	assert.Equal(t, TraceID("boot-1"), child.TraceID)
	assert.Equal(t, root.SpanID, child.ParentID)
	assert.Empty(t, root.ParentID)
	assert.Equal(t, child.SpanID, GetSpanID(childCtx))

	child.SetError(errors.New("mapping failure"))
	child.Finish()
	root.Finish()
	tracer.Close()

	require.Equal(t, 2, logs.Len())
	entries := logs.All()
	assert.Equal(t, "span completed with error", entries[0].Message)
	assert.Equal(t, "acquire", entries[0].ContextMap()["operation"])
	assert.Equal(t, "span completed", entries[1].Message)
	assert.Equal(t, "boot-1", entries[1].ContextMap()["trace_id"])
}

func TestNewTraceWithoutContext(t *testing.T) {
	tracer, _ := observedTracer()
	defer tracer.Close()

	span, ctx := tracer.StartSpan(context.Background(), "boot")
	assert.NotEmpty(t, span.TraceID)
	assert.Equal(t, span.TraceID, GetTraceID(ctx))
}

func TestNilTracer(t *testing.T) {
	var tracer *Tracer

	span, ctx := tracer.StartSpan(context.Background(), "boot")
	span.SetTag("step", "acquire")
	span.Finish()
	tracer.Close()

	assert.Equal(t, span.SpanID, GetSpanID(ctx))
	assert.Empty(t, span.Service)
}

func TestFinishAfterClose(t *testing.T) {
	tracer, logs := observedTracer()
	span, _ := tracer.StartSpan(context.Background(), "late")
	tracer.Close()

	assert.NotPanics(t, span.Finish)
	assert.Zero(t, logs.Len())
}

func TestFinishRacingClose(t *testing.T) {
	tracer, _ := observedTracer()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			span, _ := tracer.StartSpan(context.Background(), "step")
			span.Finish()
		}()
	}
	tracer.Close()
	wg.Wait()

	// a second close returns once the collector has drained
	tracer.Close()
}

func TestHTTPMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tracer, logs := observedTracer()

	router := gin.New()
	router.Use(HTTPMiddleware(tracer))
	router.GET("/display", func(c *gin.Context) {
		assert.Equal(t, TraceID("abc"), GetTraceID(c.Request.Context()))
		c.Status(http.StatusServiceUnavailable)
	})

	req := httptest.NewRequest(http.MethodGet, "/display", nil)
	req.Header.Set(HeaderTraceID, "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	tracer.Close()

	assert.Equal(t, "abc", w.Header().Get(HeaderTraceID))
	assert.NotEmpty(t, w.Header().Get(HeaderSpanID))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/display", fields["operation"])
	assert.Equal(t, "503", fields["http.status"])
}
