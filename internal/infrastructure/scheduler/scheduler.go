package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a task run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Task is the unit of periodic work, such as the upload retention sweep
type Task func(ctx context.Context) error

// Job records one run of the task
type Job struct {
	ID          uuid.UUID
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
}

// NewJob creates a new pending job
func NewJob(maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// Config holds scheduler configuration
type Config struct {
	Name          string
	Interval      time.Duration
	TaskTimeout   time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	// RunOnStart runs the task once right after Start
	RunOnStart bool
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		Name:          "task",
		Interval:      time.Hour,
		TaskTimeout:   5 * time.Minute,
		RetryAttempts: 2,
		RetryDelay:    30 * time.Second,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.TaskTimeout <= 0 {
		return fmt.Errorf("%w: task timeout must be positive", ErrInvalidConfig)
	}
	if c.RetryAttempts < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry settings cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// Scheduler runs a task every interval on a single worker. Runs never
// overlap; a trigger that arrives while a run is queued is dropped.
type Scheduler struct {
	config Config
	task   Task
	logger *zap.Logger

	trigger   chan struct{}
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	lastJob   *Job
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config Config, task Task, logger *zap.Logger) (*Scheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if task == nil {
		return nil, fmt.Errorf("%w: task is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		config:  config,
		task:    task,
		logger:  logger.With(zap.String("task", config.Name)),
		trigger: make(chan struct{}, 1),
	}, nil
}

// Start starts the ticker and the worker
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go s.runLoop(ctx)
	go s.worker(ctx)

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("task_timeout", s.config.TaskTimeout),
	)

	if s.config.RunOnStart {
		_ = s.RunNow()
	}
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running task
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	// Wait for workers to finish with timeout
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow queues an immediate run
func (s *Scheduler) RunNow() error {
	s.mu.Lock()
	running := s.isRunning
	s.mu.Unlock()
	if !running {
		return ErrSchedulerNotRunning
	}

	select {
	case s.trigger <- struct{}{}:
		return nil
	default:
		return ErrTaskAlreadyQueued
	}
}

// LastJob returns a copy of the most recent run, or nil before the first
func (s *Scheduler) LastJob() *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastJob == nil {
		return nil
	}
	job := *s.lastJob
	return &job
}

// runLoop triggers a run every interval
func (s *Scheduler) runLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case s.trigger <- struct{}{}:
			default:
				s.logger.Debug("Run already queued, skipping tick")
			}
		}
	}
}

// worker executes queued runs one at a time
func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.processJob(ctx, NewJob(s.config.RetryAttempts))
		}
	}
}

// processJob executes the task, retrying failures after RetryDelay
func (s *Scheduler) processJob(ctx context.Context, job *Job) {
	for {
		job.Start()
		s.record(job)

		jobCtx, cancel := context.WithTimeout(ctx, s.config.TaskTimeout)
		err := s.task(jobCtx)
		cancel()

		if err == nil {
			job.Complete()
			s.record(job)
			s.logger.Debug("Task completed",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", job.RetryCount),
			)
			return
		}

		job.Fail(err.Error())
		s.record(job)
		s.logger.Error("Task failed",
			zap.String("job_id", job.ID.String()),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)

		if !job.ShouldRetry() {
			return
		}
		job.RetryCount++

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.RetryDelay):
		}
	}
}

func (s *Scheduler) record(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := *job
	s.lastJob = &snapshot
}
