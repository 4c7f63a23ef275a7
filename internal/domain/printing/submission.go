package printing

import (
	"fmt"
	"time"

	"github.com/printdesk/backend/internal/domain/shared"
)

// Submission tracks a single print request through submission and spooler
// correlation
type Submission struct {
	Source        *PdfDocument
	Options       *PrintOptions
	Printer       string
	SubmittedPath string
	Sequence      PageSequence
	State         SubmissionState
	JobID         *int
	ReceivedAt    time.Time
	SubmittedAt   time.Time
	Attempts      int
}

// NewSubmission creates a submission in the Received state
func NewSubmission(source *PdfDocument, opts *PrintOptions, printer string) (*Submission, error) {
	if source == nil || source.Document == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Document cannot be empty")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Submission{
		Source:     source,
		Options:    opts.Clone(),
		Printer:    printer,
		State:      SubmissionReceived,
		ReceivedAt: time.Now(),
	}, nil
}

// IsDirect reports whether the request can be printed without rewriting the
// source document
func (s *Submission) IsDirect() bool {
	return s.Options.EffectiveSide() == SideSimplex
}

// TransitionTo moves the submission to the target state
func (s *Submission) TransitionTo(target SubmissionState) error {
	if !s.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot transition submission from %s to %s", s.State, target))
	}
	s.State = target
	if target == SubmissionSubmitted {
		s.SubmittedAt = time.Now()
	}
	return nil
}

// Resolve records the spooler job id and finishes the submission
func (s *Submission) Resolve(jobID int) error {
	if err := s.TransitionTo(SubmissionResolved); err != nil {
		return err
	}
	s.JobID = &jobID
	return nil
}

// MarkUnresolved finishes the submission without a job id. This is a valid
// outcome: the job was handed to the renderer but did not show up in the
// printer's queue during the poll window.
func (s *Submission) MarkUnresolved() error {
	return s.TransitionTo(SubmissionUnresolved)
}
