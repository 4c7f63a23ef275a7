package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when triggering a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrTaskAlreadyQueued is returned when a run is requested while one is pending
	ErrTaskAlreadyQueued = errors.New("task run already queued")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")
)
