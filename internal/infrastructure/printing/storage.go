package printing

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	uniquePrefixLength = 8
	fallbackBaseName   = "document"
	maxBaseNameLength  = 120
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// FileSystemStorageConfig contains configuration for file system storage
type FileSystemStorageConfig struct {
	// BasePath is the upload directory
	// Default: ./uploads
	BasePath string
	// MaxFileSize rejects larger uploads (0 = unlimited)
	MaxFileSize int64
	// Logger for operations
	Logger *zap.Logger
}

// FileSystemStorage stores uploaded documents in a flat directory under
// collision-resistant unique names
type FileSystemStorage struct {
	config *FileSystemStorageConfig
	logger *zap.Logger
}

// NewFileSystemStorage creates a new file system document store
func NewFileSystemStorage(config *FileSystemStorageConfig) (*FileSystemStorage, error) {
	if config == nil {
		config = &FileSystemStorageConfig{}
	}

	if config.BasePath == "" {
		config.BasePath = "./uploads"
	}
	abs, err := filepath.Abs(config.BasePath)
	if err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to resolve upload directory", err)
	}
	config.BasePath = abs

	// Ensure base directory exists
	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed,
			fmt.Sprintf("failed to create storage directory: %s", config.BasePath), err)
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileSystemStorage{
		config: config,
		logger: logger,
	}, nil
}

// BasePath returns the absolute upload directory
func (s *FileSystemStorage) BasePath() string {
	return s.config.BasePath
}

// Save writes an upload under <8-char id>_<sanitized name>
func (s *FileSystemStorage) Save(ctx context.Context, originalName string, r io.Reader) (*printing.Document, error) {
	// Check context cancellation
	select {
	case <-ctx.Done():
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	if r == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "upload body is empty")
	}

	uniqueName := uuid.NewString()[:uniquePrefixLength] + "_" + SanitizeFilename(originalName)
	fullPath := filepath.Join(s.config.BasePath, uniqueName)

	f, err := os.OpenFile(fullPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to create upload file", err)
	}

	src := r
	if s.config.MaxFileSize > 0 {
		src = io.LimitReader(r, s.config.MaxFileSize+1)
	}
	written, err := io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(fullPath)
		return nil, NewRenderError(ErrCodeStorageFailed, "failed to write upload file", err)
	}
	if s.config.MaxFileSize > 0 && written > s.config.MaxFileSize {
		os.Remove(fullPath)
		return nil, shared.NewDomainError("INVALID_INPUT",
			fmt.Sprintf("upload exceeds the %d byte limit", s.config.MaxFileSize))
	}

	doc, err := printing.NewDocument(uniqueName, originalName, fullPath)
	if err != nil {
		os.Remove(fullPath)
		return nil, err
	}

	s.logger.Info("document stored",
		zap.String("name", uniqueName),
		zap.String("original", originalName),
		zap.Int64("size", written))

	return doc, nil
}

// Resolve returns the stored document with the given unique name
func (s *FileSystemStorage) Resolve(ctx context.Context, uniqueName string) (*printing.Document, error) {
	select {
	case <-ctx.Done():
		return nil, NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	fullPath, err := s.safePath(uniqueName)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil || info.IsDir() {
		return nil, shared.NewDomainError("NOT_FOUND", "document not found: "+uniqueName)
	}

	return printing.NewDocument(uniqueName, originalNameOf(uniqueName), fullPath)
}

// Delete removes a stored document
func (s *FileSystemStorage) Delete(ctx context.Context, uniqueName string) error {
	select {
	case <-ctx.Done():
		return NewRenderError(ErrCodeStorageFailed, "operation cancelled", ctx.Err())
	default:
	}

	fullPath, err := s.safePath(uniqueName)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted, not an error
		}
		return NewRenderError(ErrCodeStorageFailed, "failed to delete document", err)
	}

	s.logger.Info("document deleted", zap.String("name", uniqueName))
	return nil
}

// CleanupOlderThan removes files older than the specified duration
func (s *FileSystemStorage) CleanupOlderThan(ctx context.Context, age time.Duration) (int, error) {
	cutoff := time.Now().Add(-age)
	deletedCount := 0

	err := filepath.Walk(s.config.BasePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if info.IsDir() {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err == nil {
				deletedCount++
				s.logger.Debug("deleted old document", zap.String("path", path))
			}
		}

		return nil
	})

	if err != nil && err != context.Canceled && err != context.DeadlineExceeded {
		return deletedCount, NewRenderError(ErrCodeStorageFailed, "cleanup walk failed", err)
	}

	s.logger.Info("cleanup completed",
		zap.Int("deleted", deletedCount),
		zap.Duration("age", age))

	return deletedCount, nil
}

// safePath maps a unique name to a path inside the upload directory
func (s *FileSystemStorage) safePath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) || containsDotDot(name) || strings.ContainsAny(name, `/\`) {
		s.logger.Warn("blocked potentially malicious path", zap.String("name", name))
		return "", shared.NewDomainError("INVALID_INPUT", "invalid document name")
	}

	fullPath := filepath.Join(s.config.BasePath, name)
	if filepath.Dir(fullPath) != s.config.BasePath {
		s.logger.Warn("path escape attempt blocked",
			zap.String("name", name),
			zap.String("path", fullPath))
		return "", shared.NewDomainError("INVALID_INPUT", "invalid document name")
	}
	return fullPath, nil
}

// SanitizeFilename reduces an uploaded file name to a portable ASCII name.
// Accents are folded (é -> e), whitespace becomes underscores, and anything
// outside [A-Za-z0-9_.-] is dropped. The extension is kept.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}

	folded = strings.Join(strings.Fields(folded), "_")
	folded = unsafeFilenameChars.ReplaceAllString(folded, "")

	ext := filepath.Ext(folded)
	stem := strings.Trim(strings.TrimSuffix(folded, ext), "._")
	ext = strings.ToLower(ext)
	if ext == "." {
		ext = ""
	}
	if stem == "" {
		stem = fallbackBaseName
	}
	if len(stem) > maxBaseNameLength {
		stem = stem[:maxBaseNameLength]
	}
	return stem + ext
}

// originalNameOf strips the unique prefix from a stored name
func originalNameOf(uniqueName string) string {
	if len(uniqueName) > uniquePrefixLength+1 && uniqueName[uniquePrefixLength] == '_' {
		return uniqueName[uniquePrefixLength+1:]
	}
	return uniqueName
}

// containsDotDot checks if a path contains ".." components
func containsDotDot(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	return slices.Contains(parts, "..")
}

// Ensure FileSystemStorage implements DocumentStore
var _ printing.DocumentStore = (*FileSystemStorage)(nil)
