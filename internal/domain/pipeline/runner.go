// Package pipeline drives one submission through its stages: fetch the clip,
// normalize it, triage the view, quantify LVEF and reconcile against the
// blind estimate. The store enforces the state machine; the runner only asks
// for legal moves and stops quietly when a record was finalized under it.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/triage"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Store is the slice of the submission store the runner needs. Transition
// rejects moves from terminal records, which is how an external cancel
// reaches a running pipeline.
type Store interface {
	Get(ctx context.Context, id string) (model.Submission, error)
	Transition(ctx context.Context, id string, from, to model.Status, mutate func(*model.Submission)) error
	CommitResult(ctx context.Context, id string, lvef float64) (bool, error)
}

// Fetcher resolves a clip locator to a local scratch file.
type Fetcher interface {
	Fetch(ctx context.Context, clipRef string) (path string, cleanup func(), err error)
}

// Normalizer turns a clip file into the fixed-shape frame sequence.
type Normalizer interface {
	Normalize(ctx context.Context, clipPath, declaredFormat string) (*ingest.FrameSequence, error)
}

// Triager renders the view verdict for a frame sequence.
type Triager interface {
	Triage(ctx context.Context, submissionID string, seq *ingest.FrameSequence) (triage.Outcome, error)
}

// Quantifier produces the LVEF estimate for a frame sequence.
type Quantifier interface {
	Quantify(ctx context.Context, submissionID string, seq *ingest.FrameSequence) (float64, error)
}

// Reconciler reveals the estimate delta once result and estimate both exist.
type Reconciler interface {
	ComputeDelta(ctx context.Context, id string) (float64, error)
}

// Runner executes the pipeline for one submission at a time.
type Runner struct {
	store      Store
	fetcher    Fetcher
	normalizer Normalizer
	triager    Triager
	quantifier Quantifier
	reconciler Reconciler
	log        logger.Logger
}

// New creates a Runner over the given collaborators.
func New(store Store, fetcher Fetcher, normalizer Normalizer, triager Triager, quantifier Quantifier, reconciler Reconciler, opts ...Option) *Runner {
	r := &Runner{
		store:      store,
		fetcher:    fetcher,
		normalizer: normalizer,
		triager:    triager,
		quantifier: quantifier,
		reconciler: reconciler,
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run drives the submission from created to a terminal state. A nil return
// means the run ended cleanly, including the quiet stops: rejection, external
// cancel and stale-result discard are outcomes, not errors.
func (r *Runner) Run(ctx context.Context, id string) error {
	start := time.Now()
	defer func() {
		metrics.RecordStageLatency("run", float64(time.Since(start).Milliseconds()))
	}()

	sub, err := r.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if sub.Status.Terminal() {
		// Canceled or finalized before the run started.
		return nil
	}

	ok, err := r.advance(ctx, id, model.StatusCreated, model.StatusNormalizing, nil)
	if !ok {
		return err
	}

	clipPath, cleanup, err := r.fetcher.Fetch(ctx, sub.ClipRef)
	if err != nil {
		return r.fail(ctx, id, model.StatusNormalizing, fmt.Errorf("fetch clip: %w", err))
	}
	defer cleanup()

	seq, err := r.normalizer.Normalize(ctx, clipPath, sub.Format)
	if err != nil {
		return r.fail(ctx, id, model.StatusNormalizing, err)
	}
	defer seq.Release()

	ok, err = r.advance(ctx, id, model.StatusNormalizing, model.StatusTriaging, nil)
	if !ok {
		return err
	}

	outcome, err := r.triager.Triage(ctx, id, seq)
	if err != nil {
		return r.fail(ctx, id, model.StatusTriaging, err)
	}

	if !outcome.Valid {
		ok, err = r.advance(ctx, id, model.StatusTriaging, model.StatusRejected, func(s *model.Submission) {
			s.Verdict = model.VerdictInvalid
			s.RejectionReason = outcome.Reason
			s.Confidence = outcome.Confidence
		})
		if ok {
			metrics.RecordOutcome(string(model.StatusRejected), "")
			r.log.Info(ctx, "submission rejected at triage",
				logger.String("submissionID", id),
				logger.String("reason", outcome.Reason),
			)
		}
		return err
	}

	ok, err = r.advance(ctx, id, model.StatusTriaging, model.StatusQuantifying, func(s *model.Submission) {
		s.Verdict = model.VerdictValid
		s.Confidence = outcome.Confidence
	})
	if !ok {
		return err
	}

	lvef, err := r.quantifier.Quantify(ctx, id, seq)
	if err != nil {
		return r.fail(ctx, id, model.StatusQuantifying, err)
	}

	// A cancel that arrived during quantification could not stop the call,
	// so its result is discarded here instead of committed.
	if cur, getErr := r.store.Get(ctx, id); getErr == nil && cur.CancelRequested {
		ok, err = r.advance(ctx, id, model.StatusQuantifying, model.StatusFailed, func(s *model.Submission) {
			s.ErrorKind = model.KindCanceled
		})
		if ok {
			metrics.RecordOutcome(string(model.StatusFailed), model.KindCanceled)
			r.log.Info(ctx, "late cancel honored, result discarded", logger.String("submissionID", id))
		}
		return err
	}

	committed, err := r.store.CommitResult(ctx, id, lvef)
	if err != nil {
		return r.fail(ctx, id, model.StatusQuantifying, err)
	}
	if !committed {
		metrics.RecordStaleResultDiscarded()
		r.log.Warn(ctx, "stale quantification result discarded", logger.String("submissionID", id))
		return nil
	}

	ok, err = r.advance(ctx, id, model.StatusQuantifying, model.StatusReconciling, nil)
	if !ok {
		return err
	}

	if cur, getErr := r.store.Get(ctx, id); getErr == nil && cur.BlindEstimate != nil {
		if _, err := r.reconciler.ComputeDelta(ctx, id); err != nil {
			return r.fail(ctx, id, model.StatusReconciling, err)
		}
	}

	ok, err = r.advance(ctx, id, model.StatusReconciling, model.StatusCompleted, nil)
	if ok {
		metrics.RecordOutcome(string(model.StatusCompleted), "")
		r.log.Info(ctx, "submission completed", logger.String("submissionID", id))
	}
	return err
}

// advance asks the store for one state-machine edge. A false return with nil
// error means the record turned terminal under us and the run should stop
// without treating it as a failure.
func (r *Runner) advance(ctx context.Context, id string, from, to model.Status, mutate func(*model.Submission)) (bool, error) {
	err := r.store.Transition(ctx, id, from, to, mutate)
	if err == nil {
		return true, nil
	}
	if cur, getErr := r.store.Get(ctx, id); getErr == nil && cur.Status.Terminal() {
		r.log.Info(ctx, "submission finalized externally, stopping run",
			logger.String("submissionID", id),
			logger.String("status", string(cur.Status)),
		)
		return false, nil
	}
	return false, err
}

// fail finalizes the record with its taxonomy kind. Context cancellation is
// folded into the cancel kind so a shutdown mid-run reads as canceled, not as
// an internal fault.
func (r *Runner) fail(ctx context.Context, id string, from model.Status, cause error) error {
	if errors.Is(cause, context.Canceled) && !errors.Is(cause, model.ErrTransientExternal) {
		cause = fmt.Errorf("%w: %w", model.ErrCanceled, cause)
	}
	kind := model.ErrorKind(cause)

	ok, err := r.advance(ctx, id, from, model.StatusFailed, func(s *model.Submission) {
		s.ErrorKind = kind
	})
	if err != nil {
		return errors.Join(cause, err)
	}
	if ok {
		metrics.RecordOutcome(string(model.StatusFailed), kind)
		r.log.Error(ctx, "submission failed",
			logger.String("submissionID", id),
			logger.String("kind", kind),
			logger.Error(cause),
		)
	}
	return cause
}
