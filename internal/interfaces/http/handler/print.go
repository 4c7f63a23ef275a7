package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	printingapp "github.com/printdesk/backend/internal/application/printing"
	"github.com/printdesk/backend/internal/interfaces/http/dto"
)

// IdempotencyKeyHeader lets clients retry POST /print without printing twice
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

// PrintHandler handles document, printer and job endpoints
type PrintHandler struct {
	BaseHandler
	printService *printingapp.PrintService
}

// NewPrintHandler creates a new PrintHandler
func NewPrintHandler(printService *printingapp.PrintService) *PrintHandler {
	return &PrintHandler{
		printService: printService,
	}
}

// =============================================================================
// Document Endpoints
// =============================================================================

// UploadDocument stores a multipart upload under the "file" field, converts
// it to PDF and registers it
func (h *PrintHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge,
				"Upload exceeds maximum allowed size")
			return
		}
		h.BadRequest(c, "A file is required in the \"file\" form field")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		h.BadRequest(c, "Uploaded file could not be read")
		return
	}
	defer f.Close()

	result, err := h.printService.Upload(c.Request.Context(), fileHeader.Filename, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, result)
}

// GetDocument returns the registry entry of an uploaded document
func (h *PrintHandler) GetDocument(c *gin.Context) {
	result, err := h.printService.GetDocument(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// ListDocuments returns recently uploaded documents
func (h *PrintHandler) ListDocuments(c *gin.Context) {
	var req printingapp.ListDocumentsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.printService.ListDocuments(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// =============================================================================
// Print Endpoints
// =============================================================================

// Print submits an uploaded document. The response carries a null jobId
// when the spooler job could not be correlated, which is not an error.
func (h *PrintHandler) Print(c *gin.Context) {
	var req printingapp.PrintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}

	result, err := h.printService.Print(c.Request.Context(), req, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header("Idempotent-Replayed", "true")
	}
	h.Success(c, result)
}

// =============================================================================
// Printer Endpoints
// =============================================================================

// ListPrinters returns the printers known to the spooler
func (h *PrintHandler) ListPrinters(c *gin.Context) {
	result, err := h.printService.ListPrinters(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetDefaultPrinter returns the default printer
func (h *PrintHandler) GetDefaultPrinter(c *gin.Context) {
	result, err := h.printService.GetDefaultPrinter(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// SetDefaultPrinter changes the default printer
func (h *PrintHandler) SetDefaultPrinter(c *gin.Context) {
	var req printingapp.SetDefaultPrinterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.printService.SetDefaultPrinter(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// =============================================================================
// Job Endpoints
// =============================================================================

// ListJobs returns spooler jobs of one printer, or of all printers with
// ?all=true
func (h *PrintHandler) ListJobs(c *gin.Context) {
	var req printingapp.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.printService.ListJobs(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// GetJob returns a single spooler job
func (h *PrintHandler) GetJob(c *gin.Context) {
	jobID, err := strconv.Atoi(c.Param("jobId"))
	if err != nil || jobID < 0 {
		h.BadRequest(c, "Job ID must be a non-negative integer")
		return
	}

	var req printingapp.GetJobRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.printService.GetJob(c.Request.Context(), req.Printer, jobID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}
