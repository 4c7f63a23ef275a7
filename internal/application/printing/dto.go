package printing

import (
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
)

// =============================================================================
// Document DTOs
// =============================================================================

// DocumentResponse describes an ingested document
type DocumentResponse struct {
	ID             string    `json:"id"`
	OriginFilename string    `json:"originFilename"`
	NewFilename    string    `json:"newFilename"`
	SourceFilename string    `json:"sourceFilename,omitempty"`
	Size           string    `json:"size"`
	SizeBytes      int64     `json:"sizeBytes"`
	Pages          int       `json:"pages"`
	Extension      string    `json:"extension"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ListDocumentsRequest represents a request to list recent documents
type ListDocumentsRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// =============================================================================
// Print DTOs
// =============================================================================

// PrintOptionsDTO is the wire form of printing.PrintOptions. Every field is
// optional; null and absent both mean "not given".
type PrintOptionsDTO struct {
	Printer    *string `json:"printer" binding:"omitempty,min=1"`
	Pages      *string `json:"pages"`
	Monochrome *bool   `json:"monochrome"`
	Side       *string `json:"side" binding:"omitempty,oneof=simplex duplex"`
	PaperSize  *string `json:"paperSize" binding:"omitempty,min=1,max=32"`
	Copies     *int    `json:"copies" binding:"omitempty,min=1,max=999"`
}

// ToDomain converts the DTO into domain options. A nil DTO yields nil.
func (o *PrintOptionsDTO) ToDomain() *printing.PrintOptions {
	if o == nil {
		return nil
	}
	opts := &printing.PrintOptions{
		Printer:    o.Printer,
		Pages:      o.Pages,
		Monochrome: o.Monochrome,
		PaperSize:  o.PaperSize,
		Copies:     o.Copies,
	}
	if o.Side != nil {
		side := printing.Side(*o.Side)
		opts.Side = &side
	}
	return opts
}

// PrintRequest represents a request to print an uploaded document
type PrintRequest struct {
	Filename string           `json:"filename" binding:"required"`
	Options  *PrintOptionsDTO `json:"options"`
}

// PrintResponse is the outcome of a print submission. JobID is null when
// the spooler job could not be correlated in the poll window.
type PrintResponse struct {
	JobID    *int   `json:"jobId"`
	State    string `json:"state"`
	Document string `json:"document"`
	Printer  string `json:"printer"`
	Pages    []int  `json:"pages,omitempty"`
	Padded   bool   `json:"padded,omitempty"`
	Replayed bool   `json:"replayed,omitempty"`
}

// =============================================================================
// Printer and Job DTOs
// =============================================================================

// PrinterResponse names a single printer
type PrinterResponse struct {
	Printer string `json:"printer"`
}

// SetDefaultPrinterRequest represents a request to change the default printer
type SetDefaultPrinterRequest struct {
	Printer string `json:"printer" binding:"required"`
}

// PrintersResponse lists the printers known to the spooler
type PrintersResponse struct {
	Printers []string `json:"printers"`
	Default  string   `json:"default,omitempty"`
}

// ListJobsRequest represents a request to list spooler jobs
type ListJobsRequest struct {
	Printer string `form:"printer"`
	All     bool   `form:"all"`
}

// PrinterJobsResponse is the queue of one printer. Error is set when the
// printer could not be queried during an all-printer listing.
type PrinterJobsResponse struct {
	Printer string              `json:"printer"`
	Jobs    []printing.PrintJob `json:"jobs"`
	Error   string              `json:"error,omitempty"`
}

// ListJobsResponse holds the queues of one or more printers
type ListJobsResponse struct {
	Printers []PrinterJobsResponse `json:"printers"`
	Total    int                   `json:"total"`
}

// GetJobRequest represents a request for a single spooler job
type GetJobRequest struct {
	Printer string `form:"printer"`
}

// CleanupResponse reports what a retention sweep removed
type CleanupResponse struct {
	FilesRemoved   int   `json:"filesRemoved"`
	RecordsRemoved int64 `json:"recordsRemoved"`
}

// =============================================================================
// Helper Functions
// =============================================================================

func toDocumentResponse(r *printing.DocumentRecord) *DocumentResponse {
	return &DocumentResponse{
		ID:             r.ID,
		OriginFilename: r.OriginalName,
		NewFilename:    r.UniqueName,
		SourceFilename: r.SourceName,
		Size:           printing.FormatSize(r.SizeBytes),
		SizeBytes:      r.SizeBytes,
		Pages:          r.Pages,
		Extension:      r.Extension,
		CreatedAt:      r.CreatedAt,
	}
}

func toPrintResponse(sub *printing.Submission) *PrintResponse {
	resp := &PrintResponse{
		JobID:    sub.JobID,
		State:    sub.State.String(),
		Document: basename(sub.SubmittedPath),
		Printer:  sub.Printer,
	}
	if !sub.IsDirect() {
		resp.Pages = sub.Sequence.Pages
		resp.Padded = sub.Sequence.Blank
	}
	return resp
}

func toSubmissionRecord(resp *PrintResponse) printing.SubmissionRecord {
	return printing.SubmissionRecord{
		JobID:    resp.JobID,
		State:    printing.SubmissionState(resp.State),
		Document: resp.Document,
		Printer:  resp.Printer,
	}
}

func fromSubmissionRecord(r *printing.SubmissionRecord) *PrintResponse {
	return &PrintResponse{
		JobID:    r.JobID,
		State:    r.State.String(),
		Document: r.Document,
		Printer:  r.Printer,
		Replayed: true,
	}
}
