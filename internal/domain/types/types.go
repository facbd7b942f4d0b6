// Package types contains common types used across the application
package types

import "time"

// SubmissionView is the read shape exposed to external consumers per
// submission. Quantification result and delta are populated only once the
// submission is terminal, so a trainee can never peek at the reference value
// before their estimate is locked in.
type SubmissionView struct {
	SubmissionID    string   `json:"submission_id"`
	ClipRef         string   `json:"clip_ref"`
	Status          string   `json:"status"`
	Verdict         string   `json:"verdict"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	BlindEstimate   *float64 `json:"blind_estimate,omitempty"`
	Result          *float64 `json:"result,omitempty"`
	Delta           *float64 `json:"delta,omitempty"`
	ErrorKind       string   `json:"error_kind,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
