package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/printdesk/backend/internal/domain/shared"
	"go.uber.org/zap"
)

const (
	defaultRenderTimeout  = 60 * time.Second
	maxLoggedOutputLength = 2048
)

// Error codes for renderer and storage failures
const (
	ErrCodeRenderTimeout  = "RENDER_TIMEOUT"
	ErrCodeRenderFailed   = "RENDER_FAILED"
	ErrCodeBinaryNotFound = "BINARY_NOT_FOUND"
	ErrCodeStorageFailed  = "STORAGE_FAILED"
)

// NewRenderError creates a coded error for a renderer or storage failure
func NewRenderError(code, message string, cause error) *shared.DomainError {
	return shared.WrapDomainError(code, message, cause)
}

// checkDocument rejects relative or unreadable document paths before a
// renderer process is started
func checkDocument(documentPath string) error {
	if !filepath.IsAbs(documentPath) {
		return NewRenderError(ErrCodeRenderFailed, "document path must be absolute: "+documentPath, nil)
	}
	if _, err := os.Stat(documentPath); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "document not readable", err)
	}
	return nil
}

// runRenderer executes binary with args under timeout. A deadline or
// cancellation is RENDER_TIMEOUT and any other failure RENDER_FAILED.
func runRenderer(ctx context.Context, logger *zap.Logger, binary string, timeout time.Duration, args []string, documentPath string) error {
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Debug("executing renderer",
		zap.String("binary", binary),
		zap.Strings("args", args))

	cmd := exec.CommandContext(ctx, binary, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return NewRenderError(ErrCodeRenderTimeout,
				fmt.Sprintf("renderer timed out after %v", timeout), err)
		}
		if errors.Is(ctx.Err(), context.Canceled) {
			return NewRenderError(ErrCodeRenderTimeout, "renderer was cancelled", err)
		}

		logger.Error("renderer failed",
			zap.Error(err),
			zap.String("stderr", truncate(stderr.String(), maxLoggedOutputLength)),
			zap.String("stdout", truncate(stdout.String(), maxLoggedOutputLength)))

		return NewRenderError(ErrCodeRenderFailed,
			"renderer execution failed: "+truncate(stderr.String(), maxLoggedOutputLength), err)
	}

	logger.Info("document handed to spooler",
		zap.String("document", filepath.Base(documentPath)),
		zap.Duration("duration", time.Since(startTime)))

	return nil
}

// resolveBinaryPath finds the full path to the binary
func resolveBinaryPath(path string) (string, error) {
	// If it's an absolute path, check if it exists
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err != nil {
			return "", err
		}
		return path, nil
	}

	// Search in PATH
	return exec.LookPath(path)
}

// truncate shortens process output for log fields and error messages
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
