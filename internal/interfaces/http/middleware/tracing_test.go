package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer installs a recording tracer provider for the test
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func newTracedRouter(cfg TracingConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(cfg), SpanEnricher())
	router.GET("/api/v1/documents/:name", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"name": c.Param("name")})
	})
	router.GET("/api/v1/printers/:printer/jobs/:jobId", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "JOB_NOT_FOUND"})
	})
	return router
}

func spanAttributes(span sdktrace.ReadOnlySpan) map[attribute.Key]string {
	attrs := map[attribute.Key]string{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value.Emit()
	}
	return attrs
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)
	router := newTracedRouter(TracingConfig{Enabled: false, ServiceName: "printdesk"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/documents/1f2e3d4c_report.pdf", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_Enabled(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantAttr   attribute.Key
		wantValue  string
		wantCode   codes.Code
	}{
		{
			name:       "document lookup",
			path:       "/api/v1/documents/1f2e3d4c_report.pdf",
			wantStatus: http.StatusOK,
			wantAttr:   "printdesk.document",
			wantValue:  "1f2e3d4c_report.pdf",
			wantCode:   codes.Unset,
		},
		{
			name:       "missing job is an error span",
			path:       "/api/v1/printers/Office/jobs/99",
			wantStatus: http.StatusNotFound,
			wantAttr:   "printdesk.job_id",
			wantValue:  "99",
			wantCode:   codes.Error,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := setupTestTracer(t)
			router := newTracedRouter(TracingConfig{Enabled: true, ServiceName: "printdesk"})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.Header.Set(RequestIDHeader, "req-123")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			spans := sr.Ended()
			require.Len(t, spans, 1)

			attrs := spanAttributes(spans[0])
			assert.Equal(t, "req-123", attrs[RequestIDKey])
			assert.Equal(t, tt.wantValue, attrs[tt.wantAttr])
			assert.Equal(t, tt.wantCode, spans[0].Status().Code)
		})
	}
}
