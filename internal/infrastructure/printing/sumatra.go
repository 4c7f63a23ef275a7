package printing

import (
	"context"
	"fmt"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const defaultSumatraBinary = "SumatraPDF.exe"

// SumatraConfig contains configuration for the SumatraPDF renderer
type SumatraConfig struct {
	// BinaryPath is the path to the renderer binary
	// If empty, will search in PATH
	BinaryPath string
	// Timeout bounds a single renderer invocation
	Timeout time.Duration
	// Logger for debug output
	Logger *zap.Logger
}

// SumatraRenderer submits documents to the spooler by running SumatraPDF in
// silent print mode. The process exits once the job is handed to the
// spooler; its output is not parsed.
type SumatraRenderer struct {
	config *SumatraConfig
	logger *zap.Logger
}

// NewSumatraRenderer creates a new process-based renderer
func NewSumatraRenderer(config *SumatraConfig) (*SumatraRenderer, error) {
	if config == nil {
		config = &SumatraConfig{}
	}

	if config.BinaryPath == "" {
		config.BinaryPath = defaultSumatraBinary
	}
	if config.Timeout == 0 {
		config.Timeout = defaultRenderTimeout
	}

	binaryPath, err := resolveBinaryPath(config.BinaryPath)
	if err != nil {
		return nil, NewRenderError(ErrCodeBinaryNotFound,
			fmt.Sprintf("renderer binary not found: %s", config.BinaryPath), err)
	}
	config.BinaryPath = binaryPath

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SumatraRenderer{
		config: config,
		logger: logger,
	}, nil
}

// Print runs the renderer with args followed by the absolute document path
func (r *SumatraRenderer) Print(ctx context.Context, args []string, documentPath string) error {
	if err := checkDocument(documentPath); err != nil {
		return err
	}

	fullArgs := make([]string, 0, len(args)+1)
	fullArgs = append(fullArgs, args...)
	fullArgs = append(fullArgs, documentPath)

	return runRenderer(ctx, r.logger, r.config.BinaryPath, r.config.Timeout, fullArgs, documentPath)
}

// Ensure SumatraRenderer implements Renderer
var _ printing.Renderer = (*SumatraRenderer)(nil)
