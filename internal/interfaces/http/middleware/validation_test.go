package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPrintRequest struct {
	Filename string  `json:"filename" binding:"required"`
	Side     *string `json:"side" binding:"omitempty,oneof=simplex duplex"`
	Copies   *int    `json:"copies" binding:"omitempty,min=1"`
}

func newValidationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/test", func(c *gin.Context) {
		var req testPrintRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSuccessResponse(nil))
	})
	return router
}

func postJSON(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/test", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSetupValidator(t *testing.T) {
	SetupValidator()

	v, ok := binding.Validator.Engine().(*validator.Validate)
	assert.True(t, ok)
	assert.NotNil(t, v)
}

func TestHandleValidationError(t *testing.T) {
	router := newValidationRouter()

	t.Run("lists invalid fields by json name", func(t *testing.T) {
		w := postJSON(router, `{"side": "triplex", "copies": 0}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)

		fields := map[string]string{}
		for _, d := range resp.Error.Details {
			fields[d.Field] = d.Message
		}
		assert.Equal(t, "This field is required", fields["filename"])
		assert.Equal(t, "Must be one of: simplex duplex", fields["side"])
		assert.Equal(t, "Must be at least 1", fields["copies"])
	})

	t.Run("malformed json is a bad request", func(t *testing.T) {
		w := postJSON(router, `{"filename": `)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), dto.ErrCodeBadRequest)
	})

	t.Run("valid request passes", func(t *testing.T) {
		w := postJSON(router, `{"filename": "a.pdf", "side": "duplex", "copies": 2}`)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
