package printing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const derivedMarker = "-output"

// PDFCPUPageCounter reads page counts with pdfcpu
type PDFCPUPageCounter struct{}

// PageCount implements printing.PageCounter
func (PDFCPUPageCounter) PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, printing.NewConversionError("failed to read page count of "+filepath.Base(path), err)
	}
	return n, nil
}

// SubsetWriterConfig contains configuration for the subset writer
type SubsetWriterConfig struct {
	// OutputDir receives derived documents. Defaults to the source directory.
	OutputDir string
	// Logger for operations
	Logger *zap.Logger
}

// PDFCPUSubsetWriter materializes page subsets with pdfcpu
type PDFCPUSubsetWriter struct {
	config *SubsetWriterConfig
	logger *zap.Logger
	// discriminator returns the per-request token embedded in derived names
	discriminator func() string
}

// NewPDFCPUSubsetWriter creates a new subset writer
func NewPDFCPUSubsetWriter(config *SubsetWriterConfig) *PDFCPUSubsetWriter {
	if config == nil {
		config = &SubsetWriterConfig{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PDFCPUSubsetWriter{
		config:        config,
		logger:        logger,
		discriminator: func() string { return uuid.NewString()[:8] },
	}
}

// DerivedName returns the file name of a derived document:
// <stem>-output-<discriminator><ext>
func DerivedName(src *printing.Document, discriminator string) string {
	return src.Stem() + derivedMarker + "-" + discriminator + src.Extension
}

// Materialize writes pages (ascending) of src into a new PDF and optionally
// appends a blank page after the last one. The derived file is removed if
// any step fails.
func (w *PDFCPUSubsetWriter) Materialize(ctx context.Context, src *printing.PdfDocument, pages []int, appendBlank bool) (*printing.Document, error) {
	select {
	case <-ctx.Done():
		return nil, printing.NewPageWriteError("operation cancelled", ctx.Err())
	default:
	}

	if src == nil || src.Document == nil {
		return nil, printing.NewPageWriteError("source document is nil", nil)
	}
	if len(pages) == 0 {
		return nil, printing.NewPageWriteError("no pages selected", nil)
	}

	pageCount, err := src.PageCount()
	if err != nil {
		return nil, printing.NewPageWriteError("failed to read source page count", err)
	}

	selected := make([]string, 0, len(pages))
	prev := 0
	for _, p := range pages {
		if p < 1 || p > pageCount {
			return nil, printing.NewPageWriteError(
				fmt.Sprintf("page %d does not exist in %s (%d pages)", p, src.UniqueName, pageCount), nil)
		}
		if p <= prev {
			return nil, printing.NewPageWriteError("pages must be strictly ascending", nil)
		}
		prev = p
		selected = append(selected, strconv.Itoa(p))
	}

	outDir := w.config.OutputDir
	if outDir == "" {
		outDir = filepath.Dir(src.Path)
	}
	name := DerivedName(src.Document, w.discriminator())
	outPath := filepath.Join(outDir, name)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.CollectFile(src.Path, outPath, selected, conf); err != nil {
		os.Remove(outPath)
		return nil, printing.NewPageWriteError("failed to collect pages", err)
	}

	if appendBlank {
		// Insert one blank page after the last page; it inherits that page's geometry
		if err := api.InsertPagesFile(outPath, "", []string{"l"}, false, nil, conf); err != nil {
			os.Remove(outPath)
			return nil, printing.NewPageWriteError("failed to append blank page", err)
		}
	}

	doc, err := printing.NewDocument(name, src.OriginalName, outPath)
	if err != nil {
		os.Remove(outPath)
		return nil, printing.NewPageWriteError("failed to register derived document", err)
	}

	w.logger.Info("page subset materialized",
		zap.String("source", src.UniqueName),
		zap.String("output", name),
		zap.Int("pages", len(pages)),
		zap.Bool("blank", appendBlank))

	return doc, nil
}

// Ensure PDFCPUSubsetWriter implements SubsetWriter
var (
	_ printing.SubsetWriter = (*PDFCPUSubsetWriter)(nil)
	_ printing.PageCounter  = PDFCPUPageCounter{}
)
