package dto

import (
	"net/http"

	"github.com/printdesk/backend/internal/domain/printing"
)

// Error codes raised by the HTTP layer itself. Domain errors keep the code
// they were created with.
const (
	// ErrCodeInternal is used for errors that carry no domain code
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeValidation is used when request binding fails validation
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ERR_ROUTE_NOT_FOUND"
)

// Render error codes reported by renderer implementations
const (
	CodeRenderFailed  = "RENDER_FAILED"
	CodeRenderTimeout = "RENDER_TIMEOUT"
	CodeBinaryMissing = "BINARY_NOT_FOUND"
	CodeStorageFailed = "STORAGE_FAILED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRouteNotFound:   http.StatusNotFound,

	// Caller input errors -> 400 Bad Request
	printing.CodeInvalidRange:   http.StatusBadRequest,
	printing.CodePageOutOfRange: http.StatusBadRequest,
	printing.CodeInvalidOptions: http.StatusBadRequest,
	"INVALID_INPUT":             http.StatusBadRequest,

	// Lookups -> 404 Not Found
	"NOT_FOUND":              http.StatusNotFound,
	printing.CodeJobNotFound: http.StatusNotFound,

	"ALREADY_EXISTS": http.StatusConflict,
	"INVALID_STATE":  http.StatusUnprocessableEntity,

	// Processing failures -> 500
	printing.CodePageWriteFailed:  http.StatusInternalServerError,
	printing.CodeConversionFailed: http.StatusInternalServerError,
	CodeRenderFailed:              http.StatusInternalServerError,
	CodeBinaryMissing:             http.StatusInternalServerError,
	CodeStorageFailed:             http.StatusInternalServerError,

	// Environment errors a caller may retry
	CodeRenderTimeout:               http.StatusGatewayTimeout,
	printing.CodePrinterUnavailable: http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
