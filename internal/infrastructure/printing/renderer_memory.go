package printing

import (
	"context"
	"os"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// MemoryRenderer stands in for the renderer process when the memory spooler
// is configured. It reads the target printer from the encoded arguments and
// enqueues the document.
type MemoryRenderer struct {
	spooler *MemorySpooler
	counter printing.PageCounter
	logger  *zap.Logger
}

// NewMemoryRenderer creates a renderer that records into spooler
func NewMemoryRenderer(spooler *MemorySpooler, counter printing.PageCounter, logger *zap.Logger) *MemoryRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MemoryRenderer{
		spooler: spooler,
		counter: counter,
		logger:  logger,
	}
}

// Print implements printing.Renderer
func (r *MemoryRenderer) Print(ctx context.Context, args []string, documentPath string) error {
	select {
	case <-ctx.Done():
		return NewRenderError(ErrCodeRenderTimeout, "renderer was cancelled", ctx.Err())
	default:
	}

	if _, err := os.Stat(documentPath); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "document not readable", err)
	}

	pages := 0
	if r.counter != nil {
		if n, err := r.counter.PageCount(documentPath); err == nil {
			pages = n
		}
	}

	if _, err := r.spooler.Record(printerFromArgs(args), documentPath, pages); err != nil {
		return NewRenderError(ErrCodeRenderFailed, "failed to enqueue document", err)
	}
	return nil
}

// printerFromArgs returns the value of -print-to, or "" for the default
func printerFromArgs(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flagPrintTo {
			return args[i+1]
		}
	}
	return ""
}

// Ensure MemoryRenderer implements Renderer
var _ printing.Renderer = (*MemoryRenderer)(nil)
