package printing

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const defaultPowerShell = "powershell.exe"

// Win32 spooler job status flags
const (
	win32JobPaused   = 0x1
	win32JobError    = 0x2
	win32JobPrinting = 0x10
)

// WindowsConfig contains configuration for the Windows spooler gateway
type WindowsConfig struct {
	// PowerShellPath is powershell.exe or pwsh
	PowerShellPath string
	CommandTimeout time.Duration
	Logger         *zap.Logger
}

// WindowsSpooler reads and controls the Windows print spooler through the
// PrintManagement and CIM cmdlets. It is the spooler SumatraRenderer
// submits to.
type WindowsSpooler struct {
	config *WindowsConfig
	logger *zap.Logger
	run    commandRunner
}

// NewWindowsSpooler creates a new Windows spooler gateway
func NewWindowsSpooler(config *WindowsConfig) *WindowsSpooler {
	if config == nil {
		config = &WindowsConfig{}
	}
	if config.PowerShellPath == "" {
		config.PowerShellPath = defaultPowerShell
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = defaultSpoolerCommandTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WindowsSpooler{
		config: config,
		logger: logger,
		run:    execRunner(config.CommandTimeout),
	}
}

// powershell runs script with errors turned into a non-zero exit
func (s *WindowsSpooler) powershell(ctx context.Context, script string) ([]byte, error) {
	return s.run(ctx, s.config.PowerShellPath,
		"-NoProfile", "-NonInteractive", "-Command",
		"$ErrorActionPreference = 'Stop'; "+script)
}

// DefaultPrinter returns the default printer of the service account
func (s *WindowsSpooler) DefaultPrinter(ctx context.Context) (string, error) {
	out, err := s.powershell(ctx, "(Get-CimInstance -ClassName Win32_Printer -Filter 'Default=TRUE').Name")
	if err != nil {
		return "", printing.NewPrinterUnavailableError("", err)
	}
	name := strings.TrimSpace(string(out))
	if name == "" {
		return "", printing.NewPrinterUnavailableError("", errors.New("no default printer"))
	}
	return name, nil
}

// SetDefaultPrinter changes the default printer
func (s *WindowsSpooler) SetDefaultPrinter(ctx context.Context, name string) error {
	script := fmt.Sprintf(
		"$p = Get-CimInstance -ClassName Win32_Printer | Where-Object { $_.Name -eq %s }; "+
			"if (-not $p) { throw 'printer not found' }; "+
			"Invoke-CimMethod -InputObject $p -MethodName SetDefaultPrinter | Out-Null",
		psQuote(name))
	if _, err := s.powershell(ctx, script); err != nil {
		return printing.NewPrinterUnavailableError(name, err)
	}
	s.logger.Info("default printer changed", zap.String("printer", name))
	return nil
}

// Printers lists installed printers
func (s *WindowsSpooler) Printers(ctx context.Context) ([]string, error) {
	out, err := s.powershell(ctx, "Get-Printer | Select-Object -ExpandProperty Name")
	if err != nil {
		return nil, printing.NewPrinterUnavailableError("", err)
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		if name := strings.TrimSpace(scanner.Text()); name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}

// EnumJobs lists the jobs queued on printer
func (s *WindowsSpooler) EnumJobs(ctx context.Context, printer string) ([]printing.PrintJob, error) {
	script := fmt.Sprintf(
		"ConvertTo-Json -Compress -InputObject @(Get-PrintJob -PrinterName %s | "+
			"Select-Object Id, DocumentName, @{n='JobStatus';e={[int]$_.JobStatus}}, "+
			"Priority, Position, TotalPages, PagesPrinted)",
		psQuote(printer))
	out, err := s.powershell(ctx, script)
	if err != nil {
		return nil, printing.NewPrinterUnavailableError(printer, err)
	}
	jobs, err := parsePrintJobJSON(printer, out)
	if err != nil {
		return nil, printing.NewPrinterUnavailableError(printer, err)
	}
	return jobs, nil
}

// GetJob returns one job of printer's queue
func (s *WindowsSpooler) GetJob(ctx context.Context, printer string, jobID int) (*printing.PrintJob, error) {
	jobs, err := s.EnumJobs(ctx, printer)
	if err != nil {
		return nil, err
	}
	for _, j := range jobs {
		if j.JobID == jobID {
			return &j, nil
		}
	}
	return nil, printing.NewJobNotFoundError(printer, jobID)
}

// win32Job is one element of the Get-PrintJob JSON listing
type win32Job struct {
	ID           int    `json:"Id"`
	DocumentName string `json:"DocumentName"`
	JobStatus    int    `json:"JobStatus"`
	Priority     int    `json:"Priority"`
	Position     int    `json:"Position"`
	TotalPages   int    `json:"TotalPages"`
	PagesPrinted int    `json:"PagesPrinted"`
}

// parsePrintJobJSON normalizes the Get-PrintJob listing
func parsePrintJobJSON(printer string, out []byte) ([]printing.PrintJob, error) {
	out = bytes.TrimSpace(out)
	if len(out) == 0 {
		return nil, nil
	}
	var raw []win32Job
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode job listing: %w", err)
	}

	jobs := make([]printing.PrintJob, 0, len(raw))
	for _, r := range raw {
		status, text := win32Status(r.JobStatus)
		jobs = append(jobs, printing.PrintJob{
			JobID:        r.ID,
			PrinterName:  printer,
			Document:     r.DocumentName,
			Status:       status,
			StatusText:   text,
			Priority:     r.Priority,
			Position:     r.Position,
			TotalPages:   r.TotalPages,
			PagesPrinted: r.PagesPrinted,
		})
	}
	return jobs, nil
}

// win32Status reduces the job status flags to the normalized status
func win32Status(flags int) (int, string) {
	switch {
	case flags&win32JobError != 0:
		return printing.JobStatusError, "error"
	case flags&win32JobPaused != 0:
		return printing.JobStatusPaused, "paused"
	case flags&win32JobPrinting != 0:
		return printing.JobStatusPrinting, "printing"
	default:
		return printing.JobStatusQueued, "queued"
	}
}

// psQuote renders s as a PowerShell single-quoted literal. PowerShell also
// treats typographic single quotes as delimiters, so those are doubled too.
func psQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'', '‘', '’', '‚', '‛':
			b.WriteRune(r)
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

// Ensure WindowsSpooler implements SpoolerGateway
var _ printing.SpoolerGateway = (*WindowsSpooler)(nil)
