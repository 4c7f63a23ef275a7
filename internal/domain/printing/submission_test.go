package printing

import (
	"errors"
	"testing"

	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     SubmissionState
		to       SubmissionState
		expected bool
	}{
		{SubmissionReceived, SubmissionDirect, true},
		{SubmissionReceived, SubmissionSubsetted, true},
		{SubmissionReceived, SubmissionSubmitted, false},
		{SubmissionDirect, SubmissionSubmitted, true},
		{SubmissionSubsetted, SubmissionSubmitted, true},
		{SubmissionSubsetted, SubmissionCorrelating, false},
		{SubmissionSubmitted, SubmissionCorrelating, true},
		{SubmissionSubmitted, SubmissionResolved, false},
		{SubmissionCorrelating, SubmissionResolved, true},
		{SubmissionCorrelating, SubmissionUnresolved, true},
		{SubmissionResolved, SubmissionUnresolved, false},
		{SubmissionUnresolved, SubmissionCorrelating, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSubmissionState_IsTerminal(t *testing.T) {
	assert.True(t, SubmissionResolved.IsTerminal())
	assert.True(t, SubmissionUnresolved.IsTerminal())
	assert.False(t, SubmissionCorrelating.IsTerminal())
	assert.False(t, SubmissionState("BOGUS").IsValid())
}

func newTestPdf(t *testing.T) *PdfDocument {
	t.Helper()
	doc, err := NewDocument("abcd1234_doc.pdf", "doc.pdf", "/tmp/abcd1234_doc.pdf")
	require.NoError(t, err)
	return NewPdfDocument(doc, &countingPageCounter{pages: 3})
}

func TestNewSubmission(t *testing.T) {
	t.Run("starts in received", func(t *testing.T) {
		sub, err := NewSubmission(newTestPdf(t), &PrintOptions{Copies: ptr(2)}, "Office")
		require.NoError(t, err)
		assert.Equal(t, SubmissionReceived, sub.State)
		assert.Equal(t, "Office", sub.Printer)
		assert.Nil(t, sub.JobID)
		assert.True(t, sub.IsDirect())
	})

	t.Run("duplex is not direct", func(t *testing.T) {
		sub, err := NewSubmission(newTestPdf(t), &PrintOptions{Side: ptr(SideDuplex)}, "Office")
		require.NoError(t, err)
		assert.False(t, sub.IsDirect())
	})

	t.Run("rejects missing document", func(t *testing.T) {
		_, err := NewSubmission(nil, nil, "Office")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects invalid options", func(t *testing.T) {
		_, err := NewSubmission(newTestPdf(t), &PrintOptions{Copies: ptr(-1)}, "Office")
		assert.True(t, errors.Is(err, ErrInvalidOptions))
	})
}

func TestSubmission_Lifecycle(t *testing.T) {
	sub, err := NewSubmission(newTestPdf(t), nil, "Office")
	require.NoError(t, err)

	require.NoError(t, sub.TransitionTo(SubmissionDirect))
	require.NoError(t, sub.TransitionTo(SubmissionSubmitted))
	assert.False(t, sub.SubmittedAt.IsZero())
	require.NoError(t, sub.TransitionTo(SubmissionCorrelating))
	require.NoError(t, sub.Resolve(42))

	require.NotNil(t, sub.JobID)
	assert.Equal(t, 42, *sub.JobID)
	assert.Equal(t, SubmissionResolved, sub.State)

	err = sub.MarkUnresolved()
	assert.True(t, errors.Is(err, shared.ErrInvalidState))
}

func TestFindJobByDocument(t *testing.T) {
	jobs := []PrintJob{
		{JobID: 1, Document: "other.pdf"},
		{JobID: 2, Document: `C:\uploads\abcd_doc-output-1234.pdf`},
		{JobID: 3, Document: "/srv/uploads/abcd_doc.pdf"},
		{JobID: 4, Document: "abcd_doc.pdf"},
	}

	job, ok := FindJobByDocument(jobs, "abcd_doc.pdf")
	require.True(t, ok)
	assert.Equal(t, 3, job.JobID, "first match wins")

	_, ok = FindJobByDocument(jobs, "missing.pdf")
	assert.False(t, ok)

	_, ok = FindJobByDocument(jobs, "")
	assert.False(t, ok)
}

func TestPrintJob_MatchesWindowsPath(t *testing.T) {
	job := PrintJob{JobID: 7, Document: `C:\uploads\abcd_doc-output-1234.pdf`}
	assert.True(t, job.MatchesDocument("abcd_doc-output-1234.pdf"))
	assert.False(t, job.MatchesDocument("abcd_doc.pdf"))
}

func TestJobTitle(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"short name keeps stem", "abcd_doc.pdf", "abcd_doc"},
		{"derived name keeps upload id and discriminator", "1f2e3d4c_quarterly-report-output-a1b2c3d4.pdf", "1f2e3d4c~a1b2c3d4"},
		{"windows path", `C:\uploads\1f2e3d4c_quarterly-report-output-a1b2c3d4.pdf`, "1f2e3d4c~a1b2c3d4"},
		{"title is idempotent", "1f2e3d4c~a1b2c3d4", "1f2e3d4c~a1b2c3d4"},
		{"no extension", "README", "README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JobTitle(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.LessOrEqual(t, len(got), MaxJobTitleLength)
		})
	}
}

func TestPrintJob_MatchesShortenedTitle(t *testing.T) {
	submitted := "1f2e3d4c_quarterly-report-output-a1b2c3d4.pdf"

	assert.True(t, PrintJob{Document: "1f2e3d4c~a1b2c3d4"}.MatchesDocument(submitted))
	assert.True(t, PrintJob{Document: "/srv/uploads/" + submitted}.MatchesDocument(submitted))

	// an earlier subset of the same upload has another discriminator
	assert.False(t, PrintJob{Document: "1f2e3d4c~0f0f0f0f"}.MatchesDocument(submitted))
	// the 31-column cut lpq applies to untitled jobs is not a match
	assert.False(t, PrintJob{Document: "1f2e3d4c_quarterly-report-outpu"}.MatchesDocument(submitted))
	assert.False(t, PrintJob{}.MatchesDocument(submitted))
}
