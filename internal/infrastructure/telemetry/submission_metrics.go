package telemetry

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Attribute keys of the submission metrics
var (
	AttrOutcome = attribute.Key("outcome")
	AttrPath    = attribute.Key("path")
	AttrPrinter = attribute.Key("printer")
)

// Submission outcomes
const (
	OutcomeResolved   = "resolved"
	OutcomeUnresolved = "unresolved"
)

// CorrelationAttemptBuckets cover the spooler poll window
var CorrelationAttemptBuckets = []float64{1, 2, 3, 4, 5, 7, 10, 15, 20}

// SubmitDurationBuckets cover a submission from options to job id (seconds)
var SubmitDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// SubmissionMetrics records how print submissions end.
type SubmissionMetrics struct {
	submissions         *Counter
	correlationAttempts *Histogram
	submitDuration      *Histogram
}

// NewSubmissionMetrics creates the submission instruments on meter.
func NewSubmissionMetrics(meter metric.Meter) (*SubmissionMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	submissions, err := NewCounter(meter,
		"printdesk_print_submissions_total",
		"Print submissions handed to the spooler, by correlation outcome",
		"{submissions}",
	)
	if err != nil {
		return nil, err
	}

	attempts, err := NewHistogram(meter, HistogramOpts{
		Name:        "printdesk_print_correlation_attempts",
		Description: "Queue enumerations made before the job was found or the window closed",
		Unit:        "{attempts}",
		Boundaries:  CorrelationAttemptBuckets,
	})
	if err != nil {
		return nil, err
	}

	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "printdesk_print_submit_duration_seconds",
		Description: "Time from accepting print options to the end of correlation",
		Unit:        "s",
		Boundaries:  SubmitDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &SubmissionMetrics{
		submissions:         submissions,
		correlationAttempts: attempts,
		submitDuration:      duration,
	}, nil
}

// RecordSubmission records one submission that reached the spooler. path is
// "direct" or "subset".
func (m *SubmissionMetrics) RecordSubmission(ctx context.Context, printer, path string, resolved bool, attempts int, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeUnresolved
	if resolved {
		outcome = OutcomeResolved
	}

	m.submissions.Inc(ctx,
		AttrOutcome.String(outcome),
		AttrPath.String(path),
		AttrPrinter.String(printer),
	)
	m.correlationAttempts.Record(ctx, float64(attempts), AttrOutcome.String(outcome))
	m.submitDuration.RecordDuration(ctx, elapsed, AttrPath.String(path))
}
