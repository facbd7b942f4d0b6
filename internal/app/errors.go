package service

import "errors"

// Service-level errors surfaced to the API layer.
var (
	// ErrInvalidSubmission rejects a create request before a record exists.
	ErrInvalidSubmission = errors.New("invalid submission request")

	// ErrQueueSaturated reports that the run queue refused the job.
	ErrQueueSaturated = errors.New("run queue saturated")

	// ErrRunActive reports that a run for the submission is already scheduled.
	ErrRunActive = errors.New("run already active")
)
