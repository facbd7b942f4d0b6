// Package model contains domain models passed between layers.
package model

import "time"

// Status is the pipeline state of a submission.
type Status string

// Pipeline states. Transitions are one-way; terminal states never change.
const (
	StatusCreated     Status = "created"
	StatusNormalizing Status = "normalizing"
	StatusTriaging    Status = "triaging"
	StatusQuantifying Status = "quantifying"
	StatusReconciling Status = "reconciling"
	StatusRejected    Status = "rejected"
	StatusCompleted   Status = "completed"
	StatusFailed      Status = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusRejected, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// transitions encodes the legal one-way edges of the state machine.
var transitions = map[Status][]Status{
	StatusCreated:     {StatusNormalizing, StatusFailed},
	StatusNormalizing: {StatusTriaging, StatusFailed},
	StatusTriaging:    {StatusRejected, StatusQuantifying, StatusFailed},
	StatusQuantifying: {StatusReconciling, StatusFailed},
	StatusReconciling: {StatusCompleted, StatusFailed},
}

// CanTransition reports whether moving from s to next is a legal edge.
func (s Status) CanTransition(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// EstimateOpen reports whether a blind estimate may still be recorded.
// The window closes the moment quantification becomes reachable.
func (s Status) EstimateOpen() bool {
	switch s {
	case StatusCreated, StatusNormalizing, StatusTriaging:
		return true
	default:
		return false
	}
}

// Cancelable reports whether an owner-initiated cancel takes effect
// immediately in this state. During quantifying a cancel is only recorded
// as a request and the in-flight call is allowed to finish.
func (s Status) Cancelable() bool {
	switch s {
	case StatusCreated, StatusNormalizing, StatusTriaging:
		return true
	default:
		return false
	}
}

// Verdict is the triage outcome for a clip's anatomical view.
type Verdict string

// Triage verdicts. Pending until the gate records exactly one of the others.
const (
	VerdictPending Verdict = "pending"
	VerdictValid   Verdict = "valid"
	VerdictInvalid Verdict = "invalid"
)

// Submission is one trainee's attempt on one clip. The repository holds the
// durable copy; values here are snapshots.
type Submission struct {
	ID      string // immutable, assigned at creation
	ClipRef string // opaque locator to the source video bytes
	Format  string // declared container format, empty means sniff

	Status  Status
	Verdict Verdict

	// RejectionReason carries the classifier's stated reason verbatim when
	// Verdict is invalid.
	RejectionReason string

	// BlindEstimate is the trainee's LVEF guess in [0,100], set at most once
	// and only before quantification starts.
	BlindEstimate *float64

	// Result is the quantified LVEF in [0,100], set at most once and only
	// when Verdict is valid.
	Result *float64

	// Delta is |BlindEstimate - Result|, set at most once when both exist.
	Delta *float64

	// ErrorKind names the failure taxonomy entry when Status is failed.
	ErrorKind string

	// Confidence reported by the classifier alongside the verdict.
	Confidence float64

	// CancelRequested is set when a cancel arrives too late to take effect
	// immediately; the run discards its result on the next transition.
	CancelRequested bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Unblinded reports whether the submission ran without a trainee estimate.
func (s *Submission) Unblinded() bool {
	return s.BlindEstimate == nil
}
