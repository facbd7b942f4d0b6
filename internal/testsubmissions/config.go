// Package testsubmissions drives a running service with synthetic
// echocardiogram clips: it creates submissions, records blind estimates for a
// share of them, polls for terminal states and verifies the outcomes.
package testsubmissions

import (
	"time"
)

// Config holds the load test configuration.
type Config struct {
	BaseURL        string
	NumSubmissions int
	Workers        int
	Timeout        time.Duration
	EstimateRatio  float64
	PollInterval   time.Duration
	PollTimeout    time.Duration
	ClipDir        string
	LogFile        string
	Verbose        bool
}

// Stats tracks test execution results.
type Stats struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	ClipsGenerated     int
	SubmissionsCreated int
	EstimatesRecorded  int
	Completed          int
	Rejected           int
	Failed             int
	PollTimeouts       int
}
