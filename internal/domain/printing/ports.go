package printing

import (
	"context"
	"io"
	"time"
)

// SpoolerGateway is the OS print spooler as seen by the core. Failures to
// reach a printer are reported as PRINTER_UNAVAILABLE and unknown jobs as
// JOB_NOT_FOUND.
type SpoolerGateway interface {
	DefaultPrinter(ctx context.Context) (string, error)
	SetDefaultPrinter(ctx context.Context, name string) error
	Printers(ctx context.Context) ([]string, error)
	EnumJobs(ctx context.Context, printer string) ([]PrintJob, error)
	GetJob(ctx context.Context, printer string, jobID int) (*PrintJob, error)
}

// Renderer hands a document to the spooler by running an external program
// with the given arguments followed by the document path
type Renderer interface {
	Print(ctx context.Context, args []string, documentPath string) error
}

// OptionEncoder turns print options into renderer arguments
type OptionEncoder interface {
	Encode(opts *PrintOptions) []string
}

// SubsetWriter materializes a page subset of a PDF as a new document
type SubsetWriter interface {
	Materialize(ctx context.Context, src *PdfDocument, pages []int, appendBlank bool) (*Document, error)
}

// Converter turns any supported upload into a PDF document
type Converter interface {
	Convert(ctx context.Context, doc *Document) (*PdfDocument, error)
	Supports(extension string) bool
}

// DocumentStore persists uploaded files
type DocumentStore interface {
	Save(ctx context.Context, originalName string, r io.Reader) (*Document, error)
	Resolve(ctx context.Context, uniqueName string) (*Document, error)
	Delete(ctx context.Context, uniqueName string) error
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// DocumentRecord is the registry entry of an ingested document
type DocumentRecord struct {
	ID           string
	UniqueName   string
	OriginalName string
	SourceName   string
	Extension    string
	SizeBytes    int64
	Pages        int
	CreatedAt    time.Time
}

// DocumentRepository stores document metadata
type DocumentRepository interface {
	Save(ctx context.Context, record *DocumentRecord) error
	FindByName(ctx context.Context, uniqueName string) (*DocumentRecord, error)
	List(ctx context.Context, limit int) ([]DocumentRecord, error)
	DeleteByName(ctx context.Context, uniqueName string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// DocumentArchive keeps a copy of ingested documents outside the upload
// directory
type DocumentArchive interface {
	Archive(ctx context.Context, doc *Document) error
}

// SubmissionRecord is the replayable outcome of a print submission
type SubmissionRecord struct {
	JobID    *int            `json:"jobId"`
	State    SubmissionState `json:"state"`
	Document string          `json:"document"`
	Printer  string          `json:"printer"`
}

// SubmissionCache remembers submission outcomes by idempotency key so a
// retried request does not print twice
type SubmissionCache interface {
	Get(ctx context.Context, key string) (*SubmissionRecord, bool, error)
	Put(ctx context.Context, key string, record SubmissionRecord, ttl time.Duration) error
	Close() error
}
