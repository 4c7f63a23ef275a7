package printing

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

const defaultSpoolerCommandTimeout = 10 * time.Second

// lpq prefixes the title of a multi-copy job with its copy count
var lpqCopiesPrefix = regexp.MustCompile(`^\d+ copies of `)

// CUPSConfig contains configuration for the CUPS command-line gateway
type CUPSConfig struct {
	LpstatPath    string
	LpqPath       string
	LpoptionsPath string
	// CommandTimeout bounds each spooler command
	CommandTimeout time.Duration
	Logger         *zap.Logger
}

// commandRunner runs a spooler command and returns its standard output
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// CUPSSpooler talks to the CUPS scheduler through its command-line clients
type CUPSSpooler struct {
	config *CUPSConfig
	logger *zap.Logger
	run    commandRunner
}

// NewCUPSSpooler creates a new CUPS gateway
func NewCUPSSpooler(config *CUPSConfig) *CUPSSpooler {
	if config == nil {
		config = &CUPSConfig{}
	}
	if config.LpstatPath == "" {
		config.LpstatPath = "lpstat"
	}
	if config.LpqPath == "" {
		config.LpqPath = "lpq"
	}
	if config.LpoptionsPath == "" {
		config.LpoptionsPath = "lpoptions"
	}
	if config.CommandTimeout == 0 {
		config.CommandTimeout = defaultSpoolerCommandTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CUPSSpooler{
		config: config,
		logger: logger,
		run:    execRunner(config.CommandTimeout),
	}
}

// execRunner runs spooler commands with a per-command timeout
func execRunner(timeout time.Duration) commandRunner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, name, args...)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%s timed out after %v: %w", name, timeout, err)
			}
			return nil, fmt.Errorf("%s failed: %s: %w", name, strings.TrimSpace(stderr.String()), err)
		}
		return stdout.Bytes(), nil
	}
}

// DefaultPrinter returns the system default destination
func (s *CUPSSpooler) DefaultPrinter(ctx context.Context) (string, error) {
	out, err := s.run(ctx, s.config.LpstatPath, "-d")
	if err != nil {
		return "", printing.NewPrinterUnavailableError("", err)
	}
	line := strings.TrimSpace(string(out))
	_, name, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.HasPrefix(line, "no system default") {
		return "", printing.NewPrinterUnavailableError("", errors.New("no system default destination"))
	}
	return name, nil
}

// SetDefaultPrinter changes the default destination
func (s *CUPSSpooler) SetDefaultPrinter(ctx context.Context, name string) error {
	if _, err := s.run(ctx, s.config.LpoptionsPath, "-d", name); err != nil {
		return printing.NewPrinterUnavailableError(name, err)
	}
	s.logger.Info("default printer changed", zap.String("printer", name))
	return nil
}

// Printers lists destinations accepting requests
func (s *CUPSSpooler) Printers(ctx context.Context) ([]string, error) {
	out, err := s.run(ctx, s.config.LpstatPath, "-a")
	if err != nil {
		return nil, printing.NewPrinterUnavailableError("", err)
	}
	var names []string
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			names = append(names, fields[0])
		}
	}
	return names, nil
}

// EnumJobs lists the jobs queued on printer
func (s *CUPSSpooler) EnumJobs(ctx context.Context, printer string) ([]printing.PrintJob, error) {
	out, err := s.run(ctx, s.config.LpqPath, "-P", printer)
	if err != nil {
		return nil, printing.NewPrinterUnavailableError(printer, err)
	}
	return parseLpq(printer, out), nil
}

// GetJob returns one job of printer's queue
func (s *CUPSSpooler) GetJob(ctx context.Context, printer string, jobID int) (*printing.PrintJob, error) {
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

// parseLpq normalizes lpq output. Each row is printed with
// "%-7s %-7.7s %-7d %-31.31s %.0f bytes", so titles longer than 31
// characters are cut and multi-copy jobs read "N copies of <title>":
//
//	Office is ready and printing
//	Rank    Owner   Job     File(s)                         Total Size
//	active  alice   12      1f2e3d4c~a1b2c3d4               1024 bytes
//	1st     bob     13      2 copies of 5e6f7a8b_memo       2048 bytes
//
// Jobs submitted through LPRenderer carry a printing.JobTitle, which fits.
func parseLpq(printer string, out []byte) []printing.PrintJob {
	var jobs []printing.PrintJob
	inTable := false
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !inTable {
			inTable = fields[0] == "Rank"
			continue
		}
		// rank owner job file... size "bytes"
		if len(fields) < 6 {
			continue
		}
		id, err := strconv.Atoi(fields[2])
		if err != nil {
			continue
		}
		title := strings.Join(fields[3:len(fields)-2], " ")
		job := printing.PrintJob{
			JobID:       id,
			PrinterName: printer,
			Document:    lpqCopiesPrefix.ReplaceAllString(title, ""),
			Status:      printing.JobStatusQueued,
			StatusText:  "queued",
			Position:    len(jobs) + 1,
		}
		if fields[0] == "active" {
			job.Status = printing.JobStatusPrinting
			job.StatusText = "printing"
		}
		jobs = append(jobs, job)
	}
	return jobs
}

// Ensure CUPSSpooler implements SpoolerGateway
var _ printing.SpoolerGateway = (*CUPSSpooler)(nil)
