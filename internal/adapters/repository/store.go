// Package repository defines the durable submission store and its errors.
// The store is the single authority for state-machine transitions: every
// write is checked against the submission's current state, so ordering and
// immutability invariants hold no matter how callers race.
package repository

import (
	"context"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
)

// Store provides read/write access to submission records keyed by id.
type Store interface {
	// Create registers a new submission. Returns ErrAlreadyExists if the id
	// is taken.
	Create(ctx context.Context, sub *model.Submission) error

	// Get returns a snapshot of the submission.
	// Returns ErrNotFound if the id is unknown.
	Get(ctx context.Context, id string) (model.Submission, error)

	// Transition moves the submission from one status to another, applying
	// mutate (which may be nil) to the record under the same lock. The write
	// is rejected with ErrIllegalTransition if the current status is not
	// from or the edge is not legal, and with ErrTerminal if the record has
	// already terminated.
	Transition(ctx context.Context, id string, from, to model.Status, mutate func(*model.Submission)) error

	// SetEstimate records the blind estimate exactly once, only while the
	// blinding window is open. Fails with model.ErrEstimateAlreadySet on a
	// second write regardless of value, and model.ErrEstimateTooLate once
	// quantification is reachable.
	SetEstimate(ctx context.Context, id string, value float64) error

	// CommitResult writes the quantification result with first-writer-wins
	// semantics. Returns false when a result was already committed, in which
	// case the caller discards its value as a stale retry.
	CommitResult(ctx context.Context, id string, lvef float64) (bool, error)

	// CommitDelta stores the revealed delta exactly once. A repeat call with
	// a delta already present returns the stored value unchanged.
	CommitDelta(ctx context.Context, id string, delta float64) (float64, error)

	// RequestCancel asks for cancellation. The returned flag reports whether
	// the cancel takes effect immediately (pre-quantification states); during
	// quantifying it is only recorded on the record. Terminal records return
	// ErrTerminal.
	RequestCancel(ctx context.Context, id string) (bool, error)

	// Count returns the number of submissions tracked.
	Count(ctx context.Context) int

	// CountByStatus breaks the population down by pipeline state.
	CountByStatus(ctx context.Context) map[model.Status]int
}
