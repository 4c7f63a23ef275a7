package printing

import (
	"fmt"

	"github.com/printdesk/backend/internal/domain/shared"
)

// Error codes of the printing context
const (
	CodeInvalidRange       = "INVALID_RANGE"
	CodePageOutOfRange     = "PAGE_OUT_OF_RANGE"
	CodePageWriteFailed    = "PAGE_WRITE_FAILED"
	CodeConversionFailed   = "CONVERSION_FAILED"
	CodePrinterUnavailable = "PRINTER_UNAVAILABLE"
	CodeJobNotFound        = "JOB_NOT_FOUND"
	CodeInvalidOptions     = "INVALID_OPTIONS"
)

// Sentinels for errors.Is matching. Concrete errors carry their own message
// and cause but compare equal by code.
var (
	ErrInvalidRange       = shared.NewDomainError(CodeInvalidRange, "Invalid page range")
	ErrPageOutOfRange     = shared.NewDomainError(CodePageOutOfRange, "Page out of range")
	ErrPageWrite          = shared.NewDomainError(CodePageWriteFailed, "Failed to write pages")
	ErrConversion         = shared.NewDomainError(CodeConversionFailed, "Failed to convert document")
	ErrPrinterUnavailable = shared.NewDomainError(CodePrinterUnavailable, "Printer unavailable")
	ErrJobNotFound        = shared.NewDomainError(CodeJobNotFound, "Print job not found")
	ErrInvalidOptions     = shared.NewDomainError(CodeInvalidOptions, "Invalid print options")
)

// NewInvalidRangeError reports a malformed page-range token
func NewInvalidRangeError(token string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidRange, fmt.Sprintf("invalid page range %q", token))
}

// NewPageOutOfRangeError reports a page index outside [1, pageCount]
func NewPageOutOfRangeError(page, pageCount int) *shared.DomainError {
	return shared.NewDomainError(CodePageOutOfRange,
		fmt.Sprintf("page %d is out of range 1-%d", page, pageCount))
}

// NewPageWriteError reports a failure to materialize a page subset
func NewPageWriteError(message string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodePageWriteFailed, message, cause)
}

// NewConversionError reports a failure to convert a document to PDF
func NewConversionError(message string, cause error) *shared.DomainError {
	return shared.WrapDomainError(CodeConversionFailed, message, cause)
}

// NewPrinterUnavailableError reports a printer that cannot be opened or queried
func NewPrinterUnavailableError(printer string, cause error) *shared.DomainError {
	msg := "default printer unavailable"
	if printer != "" {
		msg = fmt.Sprintf("printer %q unavailable", printer)
	}
	return shared.WrapDomainError(CodePrinterUnavailable, msg, cause)
}

// NewJobNotFoundError reports a job id unknown to the printer's queue
func NewJobNotFoundError(printer string, jobID int) *shared.DomainError {
	return shared.NewDomainError(CodeJobNotFound,
		fmt.Sprintf("job %d not found on printer %q", jobID, printer))
}

// NewInvalidOptionsError reports an options record that fails validation
func NewInvalidOptionsError(message string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidOptions, message)
}
