package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *SystemHandler, target string) *httptest.ResponseRecorder {
	t.Helper()
	engine := gin.New()
	SystemRoutes(h).RegisterRoutes(&engine.RouterGroup)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestSystemHandler_Health(t *testing.T) {
	h := NewSystemHandler("printdesk", "1.2.3")

	w := serveHealth(t, h, "/health")

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope[HealthResponse](t, w)
	assert.True(t, env.Success)
	assert.Equal(t, "ok", env.Data.Status)
	assert.Equal(t, "printdesk", env.Data.Name)
	assert.Equal(t, "1.2.3", env.Data.Version)
	assert.NotEmpty(t, env.Data.GoVersion)
	assert.Empty(t, env.Data.Checks)
}

func TestSystemHandler_HealthChecks(t *testing.T) {
	t.Run("all checks pass", func(t *testing.T) {
		h := NewSystemHandler("printdesk", "dev").
			AddCheck("database", func(ctx context.Context) error { return nil }).
			AddCheck("spooler", func(ctx context.Context) error { return nil })

		w := serveHealth(t, h, "/health")

		require.Equal(t, http.StatusOK, w.Code)
		env := decodeEnvelope[HealthResponse](t, w)
		assert.Equal(t, map[string]string{"database": "ok", "spooler": "ok"}, env.Data.Checks)
	})

	t.Run("failing check degrades", func(t *testing.T) {
		h := NewSystemHandler("printdesk", "dev").
			AddCheck("database", func(ctx context.Context) error { return nil }).
			AddCheck("spooler", func(ctx context.Context) error { return errors.New("lpstat: not found") })

		w := serveHealth(t, h, "/health")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		env := decodeEnvelope[HealthResponse](t, w)
		assert.False(t, env.Success)
		assert.Equal(t, "degraded", env.Data.Status)
		assert.Equal(t, "ok", env.Data.Checks["database"])
		assert.Equal(t, "lpstat: not found", env.Data.Checks["spooler"])
	})

	t.Run("checks receive a deadline", func(t *testing.T) {
		var hasDeadline bool
		h := NewSystemHandler("printdesk", "dev").
			AddCheck("database", func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			})

		serveHealth(t, h, "/health")

		assert.True(t, hasDeadline)
	})
}
