package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
)

// BodyLimit returns a middleware that limits request body size. Uploads
// without a Content-Length are cut off by MaxBytesReader while streaming.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeRequestTooLarge,
				"Request body exceeds maximum allowed size",
				GetRequestID(c),
			))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
