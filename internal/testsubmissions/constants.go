package testsubmissions

import "time"

// Shared constants for the load test.
const (
	StatusOK             = 200
	StatusAccepted       = 202
	PercentageMultiplier = 100.0

	defaultClipFrames = 8
	defaultClipSize   = 112

	settleDelay = 500 * time.Millisecond
)
