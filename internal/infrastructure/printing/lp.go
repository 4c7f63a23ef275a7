package printing

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const defaultLPBinary = "lp"

// LPEncoder encodes print options as CUPS lp arguments
type LPEncoder struct{}

// Encode implements printing.OptionEncoder.
//
// The destination and copy count come first, followed by one -o option
// per setting in the order pages, monochrome, side, paper size. Without a
// printer lp submits to the default destination.
func (LPEncoder) Encode(opts *printing.PrintOptions) []string {
	if opts == nil {
		return []string{}
	}

	args := make([]string, 0, 8)
	if opts.Printer != nil {
		args = append(args, "-d", *opts.Printer)
	}
	if opts.Copies != nil {
		args = append(args, "-n", strconv.Itoa(*opts.Copies))
	}
	if opts.Pages != nil {
		args = append(args, "-o", "page-ranges="+strings.ReplaceAll(*opts.Pages, " ", ""))
	}
	if opts.Monochrome != nil && *opts.Monochrome {
		args = append(args, "-o", "print-color-mode=monochrome")
	}
	if opts.Side != nil {
		sides := "one-sided"
		if *opts.Side == printing.SideDuplex {
			sides = "two-sided-long-edge"
		}
		args = append(args, "-o", "sides="+sides)
	}
	if opts.PaperSize != nil {
		args = append(args, "-o", "media="+*opts.PaperSize)
	}
	return args
}

// LPConfig contains configuration for the CUPS lp renderer
type LPConfig struct {
	// BinaryPath is the lp client, searched in PATH when relative
	BinaryPath string
	Timeout    time.Duration
	Logger     *zap.Logger
}

// LPRenderer queues documents on a CUPS destination with lp. Every job is
// titled with printing.JobTitle of the document so CUPSSpooler can find it
// again in the lpq listing.
type LPRenderer struct {
	config *LPConfig
	logger *zap.Logger
}

// NewLPRenderer creates a new lp renderer
func NewLPRenderer(config *LPConfig) (*LPRenderer, error) {
	if config == nil {
		config = &LPConfig{}
	}
	if config.BinaryPath == "" {
		config.BinaryPath = defaultLPBinary
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
	return &LPRenderer{config: config, logger: logger}, nil
}

// Print runs lp with args, the job title and the document path
func (r *LPRenderer) Print(ctx context.Context, args []string, documentPath string) error {
	if err := checkDocument(documentPath); err != nil {
		return err
	}

	fullArgs := make([]string, 0, len(args)+4)
	fullArgs = append(fullArgs, args...)
	fullArgs = append(fullArgs, "-t", printing.JobTitle(documentPath), "--", documentPath)

	return runRenderer(ctx, r.logger, r.config.BinaryPath, r.config.Timeout, fullArgs, documentPath)
}

var (
	_ printing.OptionEncoder = LPEncoder{}
	_ printing.Renderer      = (*LPRenderer)(nil)
)
