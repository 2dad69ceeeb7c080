package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database.
	ErrJobNotFound = errors.New("job not found")

	// ErrEmptyQueue is returned by a dequeue against an empty pending list.
	ErrEmptyQueue = errors.New("no jobs in queue")

	// ErrJobNotInQueue is returned by a position lookup for a job id that is
	// not in the pending list (already dequeued or never queued).
	ErrJobNotInQueue = errors.New("job not in queue")

	// ErrNotProcessable is returned when a status transition to processing
	// is attempted on a job that is not in the queued status.
	ErrNotProcessable = errors.New("job is not in queued status")
)
