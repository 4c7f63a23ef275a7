package printing

import (
	"context"
	"path/filepath"
	"slices"
	"sync"

	"github.com/printdesk/backend/internal/domain/printing"
	"go.uber.org/zap"
)

// MemorySpooler is an in-process print queue. It backs the development
// configuration, where no OS spooler is available, and records whatever the
// memory renderer submits.
type MemorySpooler struct {
	mu             sync.RWMutex
	defaultPrinter string
	queues         map[string][]printing.PrintJob
	nextID         int
	logger         *zap.Logger
}

// NewMemorySpooler creates a spooler with the given printers. The first one
// becomes the default.
func NewMemorySpooler(logger *zap.Logger, printers ...string) *MemorySpooler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MemorySpooler{
		queues: make(map[string][]printing.PrintJob, len(printers)),
		nextID: 1,
		logger: logger,
	}
	for _, p := range printers {
		s.queues[p] = nil
	}
	if len(printers) > 0 {
		s.defaultPrinter = printers[0]
	}
	return s
}

// DefaultPrinter returns the default printer
func (s *MemorySpooler) DefaultPrinter(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.defaultPrinter == "" {
		return "", printing.NewPrinterUnavailableError("", nil)
	}
	return s.defaultPrinter, nil
}

// SetDefaultPrinter changes the default printer
func (s *MemorySpooler) SetDefaultPrinter(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[name]; !ok {
		return printing.NewPrinterUnavailableError(name, nil)
	}
	s.defaultPrinter = name
	return nil
}

// Printers returns the known printer names, sorted
func (s *MemorySpooler) Printers(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.queues))
	for name := range s.queues {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// EnumJobs returns a snapshot of a printer's queue
func (s *MemorySpooler) EnumJobs(ctx context.Context, printer string) ([]printing.PrintJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	queue, ok := s.queues[printer]
	if !ok {
		return nil, printing.NewPrinterUnavailableError(printer, nil)
	}
	return slices.Clone(queue), nil
}

// GetJob returns one job of a printer's queue
func (s *MemorySpooler) GetJob(ctx context.Context, printer string, jobID int) (*printing.PrintJob, error) {
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

// Record enqueues a job for documentPath. An empty printer means the
// default printer.
func (s *MemorySpooler) Record(printer, documentPath string, totalPages int) (printing.PrintJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if printer == "" {
		printer = s.defaultPrinter
	}
	queue, ok := s.queues[printer]
	if !ok {
		return printing.PrintJob{}, printing.NewPrinterUnavailableError(printer, nil)
	}

	job := printing.PrintJob{
		JobID:       s.nextID,
		PrinterName: printer,
		Document:    filepath.Base(documentPath),
		Status:      printing.JobStatusQueued,
		StatusText:  "queued",
		Priority:    1,
		Position:    len(queue) + 1,
		TotalPages:  totalPages,
	}
	s.nextID++
	s.queues[printer] = append(queue, job)

	s.logger.Debug("job recorded",
		zap.String("printer", printer),
		zap.Int("job_id", job.JobID),
		zap.String("document", job.Document))
	return job, nil
}

// Remove drops a job from a printer's queue, as a spooler does once the
// job has printed
func (s *MemorySpooler) Remove(printer string, jobID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := s.queues[printer]
	for i, j := range queue {
		if j.JobID == jobID {
			queue = slices.Delete(queue, i, i+1)
			for k := i; k < len(queue); k++ {
				queue[k].Position = k + 1
			}
			s.queues[printer] = queue
			return true
		}
	}
	return false
}

// Ensure MemorySpooler implements SpoolerGateway
var _ printing.SpoolerGateway = (*MemorySpooler)(nil)
