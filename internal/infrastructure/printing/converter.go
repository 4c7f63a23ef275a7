package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const (
	defaultSofficeBinary     = "soffice"
	defaultConversionTimeout = 2 * time.Minute
)

var (
	imageExtensions  = []string{".jpg", ".jpeg", ".png", ".tif", ".tiff", ".webp"}
	officeExtensions = []string{".doc", ".docx", ".odt", ".rtf", ".xls", ".xlsx", ".ppt", ".pptx"}
	htmlExtensions   = []string{".html", ".htm"}
)

// HTMLFileConverter renders an HTML file into a PDF file
type HTMLFileConverter interface {
	ConvertFile(ctx context.Context, inPath, outPath string) error
}

// ConverterConfig contains configuration for document conversion
type ConverterConfig struct {
	// SofficePath is the LibreOffice binary used for office formats
	SofficePath string
	// Timeout bounds a single office conversion
	Timeout time.Duration
	// PageCounter validates converted output
	PageCounter printing.PageCounter
	// HTML converts HTML uploads; nil disables HTML support
	HTML HTMLFileConverter
	// Logger for operations
	Logger *zap.Logger
}

// DocumentConverter turns uploads into PDF documents. PDFs pass through,
// images are imported with pdfcpu, office documents go through LibreOffice
// and HTML through a headless browser.
type DocumentConverter struct {
	config *ConverterConfig
	logger *zap.Logger
}

// NewDocumentConverter creates a new converter
func NewDocumentConverter(config *ConverterConfig) *DocumentConverter {
	if config == nil {
		config = &ConverterConfig{}
	}
	if config.SofficePath == "" {
		config.SofficePath = defaultSofficeBinary
	}
	if config.Timeout == 0 {
		config.Timeout = defaultConversionTimeout
	}
	if config.PageCounter == nil {
		config.PageCounter = PDFCPUPageCounter{}
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentConverter{
		config: config,
		logger: logger,
	}
}

// Supports reports whether extension (with leading dot) can be converted
func (c *DocumentConverter) Supports(extension string) bool {
	switch {
	case extension == ".pdf":
		return true
	case slices.Contains(imageExtensions, extension), slices.Contains(officeExtensions, extension):
		return true
	case slices.Contains(htmlExtensions, extension):
		return c.config.HTML != nil
	}
	return false
}

// Convert returns doc as a PDF document, converting it when necessary. Any
// partial output is removed on failure.
func (c *DocumentConverter) Convert(ctx context.Context, doc *printing.Document) (*printing.PdfDocument, error) {
	if doc == nil {
		return nil, printing.NewConversionError("document is nil", nil)
	}
	if !c.Supports(doc.Extension) {
		return nil, printing.NewConversionError("unsupported file type "+doc.Extension, nil)
	}

	if doc.Extension == ".pdf" {
		pdf := printing.NewPdfDocument(doc, c.config.PageCounter)
		if _, err := pdf.PageCount(); err != nil {
			return nil, printing.NewConversionError("uploaded PDF is not readable", err)
		}
		return pdf, nil
	}

	startTime := time.Now()
	name := doc.Stem() + ".pdf"
	outPath := filepath.Join(filepath.Dir(doc.Path), name)

	var err error
	switch {
	case slices.Contains(imageExtensions, doc.Extension):
		err = c.convertImage(doc.Path, outPath)
	case slices.Contains(officeExtensions, doc.Extension):
		err = c.convertOffice(ctx, doc.Path, filepath.Dir(outPath))
	case slices.Contains(htmlExtensions, doc.Extension):
		err = c.config.HTML.ConvertFile(ctx, doc.Path, outPath)
	}
	if err != nil {
		os.Remove(outPath)
		return nil, printing.NewConversionError("failed to convert "+doc.UniqueName, err)
	}

	converted, err := printing.NewDocument(name, doc.OriginalName, outPath)
	if err != nil {
		os.Remove(outPath)
		return nil, printing.NewConversionError("failed to register converted document", err)
	}
	pdf := printing.NewPdfDocument(converted, c.config.PageCounter)
	if _, err := pdf.PageCount(); err != nil {
		os.Remove(outPath)
		return nil, printing.NewConversionError("converted PDF is not readable", err)
	}

	c.logger.Info("document converted",
		zap.String("source", doc.UniqueName),
		zap.String("output", name),
		zap.Duration("duration", time.Since(startTime)))
	return pdf, nil
}

func (c *DocumentConverter) convertImage(inPath, outPath string) error {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.ImportImagesFile([]string{inPath}, outPath, pdfcpu.DefaultImportConfig(), conf)
}

// convertOffice runs LibreOffice headless; it writes <stem>.pdf into outDir
func (c *DocumentConverter) convertOffice(ctx context.Context, inPath, outDir string) error {
	binary, err := resolveBinaryPath(c.config.SofficePath)
	if err != nil {
		return fmt.Errorf("office converter not found: %s: %w", c.config.SofficePath, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	args := []string{"--headless", "--convert-to", "pdf", "--outdir", outDir, inPath}
	c.logger.Debug("executing office converter",
		zap.String("binary", binary),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("office conversion timed out after %v: %w", c.config.Timeout, err)
		}
		c.logger.Error("office conversion failed",
			zap.Error(err),
			zap.String("stderr", truncate(stderr.String(), maxLoggedOutputLength)))
		return fmt.Errorf("office conversion failed: %w", err)
	}
	return nil
}

// Ensure DocumentConverter implements Converter
var (
	_ printing.Converter = (*DocumentConverter)(nil)
	_ HTMLFileConverter  = (*ChromedpHTMLConverter)(nil)
)
