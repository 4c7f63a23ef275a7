package printing

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	bytesPerKB = 1024
	bytesPerMB = 1024 * 1024
)

// Document is a stored file known to the system. Its unique name is assigned
// once at ingestion and never changes.
type Document struct {
	UniqueName   string
	OriginalName string
	Path         string
	Extension    string
	CreatedAt    time.Time

	sizeOnce sync.Once
	size     int64
	sizeErr  error
}

// NewDocument creates a document for a file at an absolute path
func NewDocument(uniqueName, originalName, path string) (*Document, error) {
	if strings.TrimSpace(uniqueName) == "" {
		return nil, NewInvalidOptionsError("document name cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve document path: %w", err)
	}
	return &Document{
		UniqueName:   uniqueName,
		OriginalName: originalName,
		Path:         abs,
		Extension:    strings.ToLower(filepath.Ext(uniqueName)),
		CreatedAt:    time.Now(),
	}, nil
}

// Basename returns the file name of the stored document
func (d *Document) Basename() string {
	return filepath.Base(d.Path)
}

// Stem returns the unique name without its extension
func (d *Document) Stem() string {
	return strings.TrimSuffix(d.UniqueName, filepath.Ext(d.UniqueName))
}

// Size returns the size of the stored file in bytes. The value is read once
// and cached.
func (d *Document) Size() (int64, error) {
	d.sizeOnce.Do(func() {
		info, err := os.Stat(d.Path)
		if err != nil {
			d.sizeErr = fmt.Errorf("failed to stat document: %w", err)
			return
		}
		d.size = info.Size()
	})
	return d.size, d.sizeErr
}

// SizeLabel renders the size as KB below one megabyte and MB otherwise,
// rounded to two decimals
func (d *Document) SizeLabel() (string, error) {
	size, err := d.Size()
	if err != nil {
		return "", err
	}
	return FormatSize(size), nil
}

// FormatSize renders a byte count the way upload responses report it
func FormatSize(size int64) string {
	if size < bytesPerMB {
		return formatUnit(float64(size)/bytesPerKB, "KB")
	}
	return formatUnit(float64(size)/bytesPerMB, "MB")
}

func formatUnit(v float64, unit string) string {
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s + unit
}

// PageCounter reads the page count of a PDF file
type PageCounter interface {
	PageCount(path string) (int, error)
}

// PdfDocument is a Document whose file is a paginated PDF
type PdfDocument struct {
	*Document

	counter   PageCounter
	mu        sync.Mutex
	pageCount int
	counted   bool
}

// NewPdfDocument wraps a document with a lazily computed page count
func NewPdfDocument(doc *Document, counter PageCounter) *PdfDocument {
	return &PdfDocument{
		Document: doc,
		counter:  counter,
	}
}

// PageCount returns the number of pages. The count is cached after the
// first successful read; failures are not cached.
func (p *PdfDocument) PageCount() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.counted {
		return p.pageCount, nil
	}
	if p.counter == nil {
		return 0, NewConversionError("no page counter configured for "+p.UniqueName, nil)
	}
	n, err := p.counter.PageCount(p.Path)
	if err != nil {
		return 0, err
	}
	p.pageCount = n
	p.counted = true
	return n, nil
}
