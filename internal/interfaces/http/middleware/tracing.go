package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Route parameters copied onto the request span
var spanRouteParams = map[string]attribute.Key{
	"name":  attribute.Key("printdesk.document"),
	"jobId": attribute.Key("printdesk.job_id"),
}

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig returns the otelgin middleware, which starts a span
// named after the route pattern for every request. Register SpanEnricher
// after it.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanEnricher adds the request id and the document or job route parameter
// to the request span once the handler has run, and marks 4xx and 5xx
// responses as errors. It must run inside the span, so after
// TracingWithConfig and RequestID.
func SpanEnricher() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		if id := GetRequestID(c); id != "" {
			span.SetAttributes(attribute.String(RequestIDKey, id))
		}
		for _, p := range c.Params {
			if key, ok := spanRouteParams[p.Key]; ok {
				span.SetAttributes(key.String(p.Value))
			}
		}

		status := c.Writer.Status()
		if status >= http.StatusBadRequest {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}
