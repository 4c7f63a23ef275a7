package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
	"github.com/printdesk/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindError reports a failed ShouldBind call
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
			"Request body exceeds maximum allowed size")
		return
	}
	middleware.HandleValidationError(c, err)
}

// HandleError converts an error into a response. Domain errors keep their
// code and message; anything else becomes a generic 500 so internals are
// not leaked to the client.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		statusCode := dto.GetHTTPStatus(domainErr.Code)
		message := domainErr.Message
		if statusCode >= http.StatusInternalServerError && domainErr.Cause != nil {
			message = domainErr.Error()
		}
		h.Error(c, statusCode, domainErr.Code, message)
		return
	}

	h.InternalError(c, "An unexpected error occurred")
}
