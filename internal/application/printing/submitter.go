package printing

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const (
	defaultPollAttempts = 5
	defaultPollInterval = 500 * time.Millisecond
)

// SubmitterConfig holds the collaborators of a PrintSubmitter
type SubmitterConfig struct {
	Writer   printing.SubsetWriter
	Renderer printing.Renderer
	Gateway  printing.SpoolerGateway
	Encoder  printing.OptionEncoder

	// PollAttempts bounds the number of queue enumerations after the
	// renderer returns
	PollAttempts int
	PollInterval time.Duration

	// Metrics is optional
	Metrics *telemetry.SubmissionMetrics
	Logger  *zap.Logger
}

// PrintSubmitter drives a print request from the options record to a
// spooler job id
type PrintSubmitter struct {
	writer       printing.SubsetWriter
	renderer     printing.Renderer
	gateway      printing.SpoolerGateway
	encoder      printing.OptionEncoder
	pollAttempts int
	pollInterval time.Duration
	metrics      *telemetry.SubmissionMetrics
	logger       *zap.Logger
}

// NewPrintSubmitter creates a new PrintSubmitter
func NewPrintSubmitter(config SubmitterConfig) *PrintSubmitter {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}
	if config.PollAttempts <= 0 {
		config.PollAttempts = defaultPollAttempts
	}
	if config.PollInterval < 0 {
		config.PollInterval = defaultPollInterval
	}
	return &PrintSubmitter{
		writer:       config.Writer,
		renderer:     config.Renderer,
		gateway:      config.Gateway,
		encoder:      config.Encoder,
		pollAttempts: config.PollAttempts,
		pollInterval: config.PollInterval,
		metrics:      config.Metrics,
		logger:       config.Logger,
	}
}

// Submit prints doc on printer and correlates the resulting spooler job.
//
// Simplex requests are handed to the renderer against the source document
// with the page range passed through once it is checked against the page
// count. Every other request is rewritten
// first: the selected pages (all pages when no range is given) are
// materialized into a derived document, padded with a blank page when a
// double-sided job would otherwise end on half a sheet.
//
// An Unresolved submission is returned without error when no job shows up
// in the poll window.
func (s *PrintSubmitter) Submit(ctx context.Context, doc *printing.PdfDocument, opts *printing.PrintOptions, printer string) (*printing.Submission, error) {
	started := time.Now()
	sub, err := printing.NewSubmission(doc, opts, printer)
	if err != nil {
		return nil, err
	}

	args, err := s.prepare(ctx, sub)
	if err != nil {
		return nil, err
	}

	if err := s.renderer.Print(ctx, args, sub.SubmittedPath); err != nil {
		s.logger.Error("renderer failed",
			zap.String("document", doc.UniqueName),
			zap.String("printer", printer),
			zap.Error(err))
		if sub.State == printing.SubmissionSubsetted {
			s.removeDerived(sub.SubmittedPath)
		}
		return nil, err
	}
	if err := sub.TransitionTo(printing.SubmissionSubmitted); err != nil {
		return nil, err
	}

	s.correlate(ctx, sub)
	s.metrics.RecordSubmission(ctx, sub.Printer, submissionPath(sub), sub.JobID != nil, sub.Attempts, time.Since(started))

	fields := []zap.Field{
		zap.String("document", doc.UniqueName),
		zap.String("submitted", basename(sub.SubmittedPath)),
		zap.String("printer", printer),
		zap.String("state", sub.State.String()),
		zap.Int("attempts", sub.Attempts),
	}
	if sub.JobID != nil {
		fields = append(fields, zap.Int("job_id", *sub.JobID))
	}
	s.logger.Info("print submitted", fields...)

	return sub, nil
}

// prepare picks the path and returns the renderer arguments. On return
// sub.SubmittedPath is the file to hand to the renderer.
func (s *PrintSubmitter) prepare(ctx context.Context, sub *printing.Submission) ([]string, error) {
	opts := targeted(sub.Options, sub.Printer)

	if sub.IsDirect() {
		if sub.Options != nil && sub.Options.Pages != nil {
			pageCount, err := sub.Source.PageCount()
			if err != nil {
				return nil, err
			}
			if _, err := printing.SelectPages(sub.Options.PagesExpression(), pageCount); err != nil {
				return nil, err
			}
		}
		if err := sub.TransitionTo(printing.SubmissionDirect); err != nil {
			return nil, err
		}
		sub.SubmittedPath = sub.Source.Path
		return s.encoder.Encode(opts), nil
	}

	pageCount, err := sub.Source.PageCount()
	if err != nil {
		return nil, err
	}
	selection, err := printing.SelectPages(sub.Options.PagesExpression(), pageCount)
	if err != nil {
		return nil, err
	}
	seq := printing.BuildPageSequence(selection, sub.Options.EffectiveSide())

	derived, err := s.writer.Materialize(ctx, sub.Source, seq.Pages, seq.Blank)
	if err != nil {
		return nil, err
	}
	if err := sub.TransitionTo(printing.SubmissionSubsetted); err != nil {
		s.removeDerived(derived.Path)
		return nil, err
	}
	sub.Sequence = seq
	sub.SubmittedPath = derived.Path

	s.logger.Debug("page subset materialized",
		zap.String("source", sub.Source.UniqueName),
		zap.String("derived", derived.UniqueName),
		zap.Ints("pages", seq.Pages),
		zap.Bool("blank", seq.Blank))

	return s.encoder.Encode(opts.WithoutPages()), nil
}

// correlate polls the printer queue for a job created for the submitted
// file. Enumeration failures count as misses.
func (s *PrintSubmitter) correlate(ctx context.Context, sub *printing.Submission) {
	s.transition(sub, "correlating", sub.TransitionTo(printing.SubmissionCorrelating))
	name := basename(sub.SubmittedPath)

	for attempt := 1; attempt <= s.pollAttempts; attempt++ {
		sub.Attempts = attempt

		jobs, err := s.gateway.EnumJobs(ctx, sub.Printer)
		if err != nil {
			s.logger.Warn("job enumeration failed",
				zap.String("printer", sub.Printer),
				zap.Int("attempt", attempt),
				zap.Error(err))
		} else if job, ok := printing.FindJobByDocument(jobs, name); ok {
			s.transition(sub, "resolve", sub.Resolve(job.JobID))
			return
		}

		if attempt == s.pollAttempts {
			break
		}
		select {
		case <-ctx.Done():
			s.transition(sub, "unresolved", sub.MarkUnresolved())
			return
		case <-time.After(s.pollInterval):
		}
	}

	s.transition(sub, "unresolved", sub.MarkUnresolved())
}

// transition logs a state change the submission refused. Correlation
// outcomes are advisory, so the submission is still returned.
func (s *PrintSubmitter) transition(sub *printing.Submission, to string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("submission state transition rejected",
		zap.String("document", sub.Source.UniqueName),
		zap.String("printer", sub.Printer),
		zap.String("state", sub.State.String()),
		zap.String("transition", to),
		zap.Error(err))
}

// submissionPath labels how the document reached the renderer
func submissionPath(sub *printing.Submission) string {
	if len(sub.Sequence.Pages) > 0 {
		return "subset"
	}
	return "direct"
}

func (s *PrintSubmitter) removeDerived(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove derived document", zap.String("path", path), zap.Error(err))
	}
}

// targeted returns opts naming printer explicitly, so the renderer and the
// correlation poll look at the same queue
func targeted(opts *printing.PrintOptions, printer string) *printing.PrintOptions {
	if printer == "" {
		return opts
	}
	c := opts.Clone()
	if c == nil {
		c = &printing.PrintOptions{}
	}
	c.Printer = &printer
	return c
}

func basename(path string) string {
	return filepath.Base(path)
}
