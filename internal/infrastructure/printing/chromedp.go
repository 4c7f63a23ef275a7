package printing

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultChromeTimeout = 30 * time.Second
	a4WidthInches        = 8.27
	a4HeightInches       = 11.69
)

// ChromedpConfig contains configuration for the chromedp HTML converter
type ChromedpConfig struct {
	// DefaultTimeout for a single conversion
	DefaultTimeout time.Duration
	// RemoteURL is the URL of a remote Chrome/Chromium instance (optional)
	// If empty, chromedp will launch a new browser instance
	RemoteURL string
	// NoSandbox runs Chrome without sandbox (required for Docker/root)
	NoSandbox bool
	// Logger for debug output
	Logger *zap.Logger
}

// ChromedpHTMLConverter prints HTML uploads to PDF through the Chrome
// DevTools Protocol
type ChromedpHTMLConverter struct {
	config      *ChromedpConfig
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpHTMLConverter creates a new chromedp-based converter. The
// browser is started lazily on the first conversion.
func NewChromedpHTMLConverter(config *ChromedpConfig) *ChromedpHTMLConverter {
	if config == nil {
		config = &ChromedpConfig{}
	}
	if config.DefaultTimeout == 0 {
		config.DefaultTimeout = defaultChromeTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &ChromedpHTMLConverter{
		config: config,
		logger: logger,
	}
	c.initAllocator()
	return c
}

// initAllocator initializes the Chrome allocator
func (c *ChromedpHTMLConverter) initAllocator() {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if c.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}

	if c.config.RemoteURL != "" {
		c.allocCtx, c.allocCancel = chromedp.NewRemoteAllocator(context.Background(), c.config.RemoteURL)
	} else {
		c.allocCtx, c.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
}

// ConvertFile renders the HTML file at inPath into a PDF at outPath
func (c *ChromedpHTMLConverter) ConvertFile(ctx context.Context, inPath, outPath string) error {
	html, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("failed to read HTML file: %w", err)
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.config.DefaultTimeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(c.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			c.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// Tie the browser tab to the caller's deadline
	go func() {
		<-ctx.Done()
		browserCancel()
	}()

	var pdfData []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("HTML conversion timed out after %v: %w", c.config.DefaultTimeout, err)
		}
		c.logger.Error("chromedp conversion failed", zap.Error(err))
		return fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(pdfData) == 0 {
		return errors.New("generated PDF is empty")
	}

	if err := os.WriteFile(outPath, pdfData, 0644); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}

	c.logger.Info("HTML converted to PDF",
		zap.Int("bytes", len(pdfData)),
		zap.Duration("duration", time.Since(startTime)))
	return nil
}

// Close releases resources held by the converter
func (c *ChromedpHTMLConverter) Close() error {
	if c.allocCancel != nil {
		c.allocCancel()
	}
	return nil
}
