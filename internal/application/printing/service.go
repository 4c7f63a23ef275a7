package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultEnumConcurrency = 4
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultDocumentLimit   = 20
)

// ServiceConfig holds the collaborators of a PrintService. Archive and Cache
// are optional.
type ServiceConfig struct {
	Store      printing.DocumentStore
	Converter  printing.Converter
	Repository printing.DocumentRepository
	Archive    printing.DocumentArchive
	Gateway    printing.SpoolerGateway
	Submitter  *PrintSubmitter
	Cache      printing.SubmissionCache

	IdempotencyTTL  time.Duration
	EnumConcurrency int

	Logger *zap.Logger
}

// PrintService handles document ingestion, print submission and spooler
// queries
type PrintService struct {
	store           printing.DocumentStore
	converter       printing.Converter
	repo            printing.DocumentRepository
	archive         printing.DocumentArchive
	gateway         printing.SpoolerGateway
	submitter       *PrintSubmitter
	cache           printing.SubmissionCache
	idempotencyTTL  time.Duration
	enumConcurrency int
	logger          *zap.Logger
}

// NewPrintService creates a new PrintService
func NewPrintService(config ServiceConfig) *PrintService {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = defaultIdempotencyTTL
	}
	if config.EnumConcurrency <= 0 {
		config.EnumConcurrency = defaultEnumConcurrency
	}
	return &PrintService{
		store:           config.Store,
		converter:       config.Converter,
		repo:            config.Repository,
		archive:         config.Archive,
		gateway:         config.Gateway,
		submitter:       config.Submitter,
		cache:           config.Cache,
		idempotencyTTL:  config.IdempotencyTTL,
		enumConcurrency: config.EnumConcurrency,
		logger:          config.Logger,
	}
}

// =============================================================================
// Document Operations
// =============================================================================

// Upload stores a file, converts it to PDF and registers the result
func (s *PrintService) Upload(ctx context.Context, filename string, r io.Reader) (*DocumentResponse, error) {
	doc, err := s.store.Save(ctx, filename, r)
	if err != nil {
		return nil, err
	}

	pdf, err := s.converter.Convert(ctx, doc)
	if err != nil {
		s.discard(ctx, doc.UniqueName)
		return nil, err
	}

	pages, err := pdf.PageCount()
	if err != nil {
		s.discard(ctx, doc.UniqueName, pdf.UniqueName)
		return nil, err
	}
	size, err := pdf.Size()
	if err != nil {
		s.discard(ctx, doc.UniqueName, pdf.UniqueName)
		return nil, fmt.Errorf("failed to read document size: %w", err)
	}

	record := &printing.DocumentRecord{
		UniqueName:   pdf.UniqueName,
		OriginalName: doc.OriginalName,
		SourceName:   doc.UniqueName,
		Extension:    doc.Extension,
		SizeBytes:    size,
		Pages:        pages,
	}
	if err := s.repo.Save(ctx, record); err != nil {
		s.discard(ctx, doc.UniqueName, pdf.UniqueName)
		return nil, fmt.Errorf("failed to register document: %w", err)
	}

	if s.archive != nil {
		if err := s.archive.Archive(ctx, pdf.Document); err != nil {
			s.logger.Warn("failed to archive document",
				zap.String("document", pdf.UniqueName),
				zap.Error(err))
		}
	}

	s.logger.Info("document uploaded",
		zap.String("original", doc.OriginalName),
		zap.String("document", pdf.UniqueName),
		zap.Int("pages", pages),
		zap.Int64("size", size))

	return toDocumentResponse(record), nil
}

// GetDocument returns the registry entry of an uploaded document
func (s *PrintService) GetDocument(ctx context.Context, name string) (*DocumentResponse, error) {
	record, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", "Document not found")
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return toDocumentResponse(record), nil
}

// ListDocuments returns the most recently uploaded documents
func (s *PrintService) ListDocuments(ctx context.Context, req ListDocumentsRequest) ([]DocumentResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = defaultDocumentLimit
	}
	records, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	result := make([]DocumentResponse, len(records))
	for i := range records {
		result[i] = *toDocumentResponse(&records[i])
	}
	return result, nil
}

// Cleanup removes stored files and registry entries older than retention
func (s *PrintService) Cleanup(ctx context.Context, retention time.Duration) (*CleanupResponse, error) {
	files, err := s.store.CleanupOlderThan(ctx, retention)
	if err != nil {
		return nil, fmt.Errorf("failed to clean up uploads: %w", err)
	}
	records, err := s.repo.DeleteOlderThan(ctx, time.Now().Add(-retention))
	if err != nil {
		return nil, fmt.Errorf("failed to clean up registry: %w", err)
	}
	if files > 0 || records > 0 {
		s.logger.Info("retention cleanup",
			zap.Int("files", files),
			zap.Int64("records", records),
			zap.Duration("retention", retention))
	}
	return &CleanupResponse{FilesRemoved: files, RecordsRemoved: records}, nil
}

// discard removes stored files of a failed ingestion
func (s *PrintService) discard(ctx context.Context, names ...string) {
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("failed to discard upload", zap.String("document", name), zap.Error(err))
		}
	}
}

// =============================================================================
// Print Operations
// =============================================================================

// Print submits an uploaded document. A non-empty idempotency key replays
// the recorded outcome of an earlier request with the same key instead of
// printing again.
func (s *PrintService) Print(ctx context.Context, req PrintRequest, idempotencyKey string) (*PrintResponse, error) {
	if idempotencyKey != "" && s.cache != nil {
		record, found, err := s.cache.Get(ctx, idempotencyKey)
		if err != nil {
			s.logger.Warn("idempotency lookup failed", zap.String("key", idempotencyKey), zap.Error(err))
		} else if found {
			s.logger.Info("print replayed", zap.String("key", idempotencyKey))
			return fromSubmissionRecord(record), nil
		}
	}

	opts := req.Options.ToDomain()
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	doc, err := s.store.Resolve(ctx, req.Filename)
	if err != nil {
		return nil, err
	}
	pdf, err := s.converter.Convert(ctx, doc)
	if err != nil {
		return nil, err
	}

	printer, err := s.resolvePrinter(ctx, opts.PrinterName())
	if err != nil {
		return nil, err
	}

	sub, err := s.submitter.Submit(ctx, pdf, opts, printer)
	if err != nil {
		return nil, err
	}
	resp := toPrintResponse(sub)

	if idempotencyKey != "" && s.cache != nil {
		if err := s.cache.Put(ctx, idempotencyKey, toSubmissionRecord(resp), s.idempotencyTTL); err != nil {
			s.logger.Warn("failed to record idempotency key", zap.String("key", idempotencyKey), zap.Error(err))
		}
	}
	return resp, nil
}

// resolvePrinter returns name, or the default printer when name is empty
func (s *PrintService) resolvePrinter(ctx context.Context, name string) (string, error) {
	if name != "" {
		return name, nil
	}
	return s.gateway.DefaultPrinter(ctx)
}

// =============================================================================
// Printer Operations
// =============================================================================

// ListPrinters returns the printers known to the spooler
func (s *PrintService) ListPrinters(ctx context.Context) (*PrintersResponse, error) {
	printers, err := s.gateway.Printers(ctx)
	if err != nil {
		return nil, err
	}
	resp := &PrintersResponse{Printers: printers}
	if def, err := s.gateway.DefaultPrinter(ctx); err == nil {
		resp.Default = def
	}
	return resp, nil
}

// GetDefaultPrinter returns the default printer
func (s *PrintService) GetDefaultPrinter(ctx context.Context) (*PrinterResponse, error) {
	name, err := s.gateway.DefaultPrinter(ctx)
	if err != nil {
		return nil, err
	}
	return &PrinterResponse{Printer: name}, nil
}

// SetDefaultPrinter changes the default printer
func (s *PrintService) SetDefaultPrinter(ctx context.Context, req SetDefaultPrinterRequest) (*PrinterResponse, error) {
	if err := s.gateway.SetDefaultPrinter(ctx, req.Printer); err != nil {
		return nil, err
	}
	s.logger.Info("default printer changed", zap.String("printer", req.Printer))
	return &PrinterResponse{Printer: req.Printer}, nil
}

// =============================================================================
// Job Operations
// =============================================================================

// GetJob returns one job of a printer's queue. Any lookup failure is
// reported as JOB_NOT_FOUND.
func (s *PrintService) GetJob(ctx context.Context, printer string, jobID int) (*printing.PrintJob, error) {
	printer, err := s.resolvePrinter(ctx, printer)
	if err != nil {
		return nil, err
	}
	job, err := s.gateway.GetJob(ctx, printer, jobID)
	if err != nil {
		if errors.Is(err, printing.ErrJobNotFound) {
			return nil, err
		}
		s.logger.Warn("job lookup failed",
			zap.String("printer", printer),
			zap.Int("job_id", jobID),
			zap.Error(err))
		return nil, shared.WrapDomainError(printing.CodeJobNotFound,
			fmt.Sprintf("job %d not found on printer %q", jobID, printer), err)
	}
	return job, nil
}

// ListJobs returns the queue of the requested printer, the default printer
// when none is named, or of every printer when req.All is set
func (s *PrintService) ListJobs(ctx context.Context, req ListJobsRequest) (*ListJobsResponse, error) {
	if req.All {
		return s.listAllJobs(ctx)
	}

	printer, err := s.resolvePrinter(ctx, req.Printer)
	if err != nil {
		return nil, err
	}
	jobs, err := s.gateway.EnumJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	return &ListJobsResponse{
		Printers: []PrinterJobsResponse{{Printer: printer, Jobs: nonNil(jobs)}},
		Total:    len(jobs),
	}, nil
}

// listAllJobs queries every printer concurrently. Printers that cannot be
// queried are reported with an error message instead of failing the
// listing.
func (s *PrintService) listAllJobs(ctx context.Context) (*ListJobsResponse, error) {
	printers, err := s.gateway.Printers(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]PrinterJobsResponse, len(printers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.enumConcurrency)
	for i, printer := range printers {
		g.Go(func() error {
			jobs, err := s.gateway.EnumJobs(gctx, printer)
			if err != nil {
				if !errors.Is(err, printing.ErrPrinterUnavailable) {
					return err
				}
				s.logger.Warn("printer unavailable", zap.String("printer", printer), zap.Error(err))
				results[i] = PrinterJobsResponse{Printer: printer, Jobs: []printing.PrintJob{}, Error: err.Error()}
				return nil
			}
			results[i] = PrinterJobsResponse{Printer: printer, Jobs: nonNil(jobs)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	total := 0
	for _, r := range results {
		total += len(r.Jobs)
	}
	return &ListJobsResponse{Printers: results, Total: total}, nil
}

func nonNil(jobs []printing.PrintJob) []printing.PrintJob {
	if jobs == nil {
		return []printing.PrintJob{}
	}
	return jobs
}
