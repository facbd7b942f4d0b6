// Package reconcile records blind estimates and reveals the delta between a
// trainee's guess and the quantified reference value. The estimate path never
// reads the quantification result; that separation is the educational
// integrity requirement driving the pipeline's ordering.
package reconcile

import (
	"context"
	"fmt"
	"math"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Estimate bounds.
const (
	minEstimate = 0
	maxEstimate = 100
)

// Store is the slice of the submission store the reconciler needs. The
// set-once and blinding-window guards live in the store, evaluated against
// the record's state under its lock.
type Store interface {
	Get(ctx context.Context, id string) (model.Submission, error)
	SetEstimate(ctx context.Context, id string, value float64) error
	CommitDelta(ctx context.Context, id string, delta float64) (float64, error)
}

// Reconciler implements estimate recording and delta reveal.
type Reconciler struct {
	store Store
	log   logger.Logger
}

// Option applies a configuration option to the Reconciler.
type Option func(*Reconciler)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Reconciler) {
		if log != nil {
			r.log = log
		}
	}
}

// New creates a Reconciler backed by store.
func New(store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store: store,
		log:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordEstimate stores the trainee's LVEF guess exactly once, before
// quantification starts. Fails with model.ErrEstimateAlreadySet on a repeat
// write and model.ErrEstimateTooLate once the window has closed.
func (r *Reconciler) RecordEstimate(ctx context.Context, id string, value float64) error {
	if value < minEstimate || value > maxEstimate {
		return fmt.Errorf("%w: %.2f outside [%d,%d]", model.ErrEstimateOutOfRange, value, minEstimate, maxEstimate)
	}
	if err := r.store.SetEstimate(ctx, id, value); err != nil {
		return err
	}
	r.log.Info(ctx, "blind estimate recorded", logger.String("submissionID", id))
	return nil
}

// ComputeDelta reveals |estimate - result| once both exist. Idempotent: a
// second call returns the committed value without mutating the record.
func (r *Reconciler) ComputeDelta(ctx context.Context, id string) (float64, error) {
	sub, err := r.store.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	if sub.Delta != nil {
		return *sub.Delta, nil
	}
	if sub.BlindEstimate == nil || sub.Result == nil {
		return 0, fmt.Errorf("%w: submission %s", model.ErrMissingInputs, id)
	}

	delta, err := r.store.CommitDelta(ctx, id, Delta(*sub.BlindEstimate, *sub.Result))
	if err != nil {
		return 0, err
	}
	metrics.RecordDeltaComputed()
	r.log.Info(ctx, "delta revealed",
		logger.String("submissionID", id),
		logger.Float64("delta", delta),
	)
	return delta, nil
}

// Delta is the pure reveal function.
func Delta(estimate, result float64) float64 {
	return math.Abs(estimate - result)
}
