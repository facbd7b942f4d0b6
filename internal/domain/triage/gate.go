// Package triage decides whether a clip shows the required anatomical view
// before any quantification cost is spent.
package triage

import (
	"context"
	"errors"
	"fmt"
	"time"

	ingest "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// defaultInstructions is the prompt sent alongside sampled frames.
const defaultInstructions = "Determine whether these echocardiogram frames show an apical four-chamber view suitable for LVEF quantification."

// ClassifyRequest is the payload submitted to the view-classification
// capability.
type ClassifyRequest struct {
	SubmissionID string
	Frames       []ingest.Frame
	Width        int
	Height       int
	Instructions string
}

// ClassifyResponse is the capability's judgment of the clip view.
type ClassifyResponse struct {
	Verdict    bool
	Confidence float64
	Reason     string
}

// Classifier is the external view-classification capability. Implementations
// must wrap transient conditions with model.ErrTransientExternal so the gate
// can retry them.
type Classifier interface {
	Classify(ctx context.Context, req ClassifyRequest) (ClassifyResponse, error)
}

// Outcome is the gate's interpretation of the classifier response. A negative
// outcome is a first-class result, not an error.
type Outcome struct {
	Valid      bool
	Confidence float64
	Reason     string
}

// Gate samples frames and interprets the classifier verdict.
type Gate struct {
	classifier      Classifier
	sampleCount     int
	confidenceFloor float64
	instructions    string
	policy          retry.Policy
	log             logger.Logger
}

// New creates a Gate with the given options.
func New(classifier Classifier, opts ...Option) *Gate {
	g := &Gate{
		classifier:      classifier,
		sampleCount:     4,
		confidenceFloor: 0.5,
		instructions:    defaultInstructions,
		policy:          retry.DefaultPolicy(),
		log:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Triage submits a sampled subset of seq to the classifier and interprets
// the response. Transient failures are retried under the gate's policy;
// exhaustion surfaces model.ErrTriageUnavailable, which is distinct from a
// negative verdict.
func (g *Gate) Triage(ctx context.Context, submissionID string, seq *ingest.FrameSequence) (Outcome, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageLatency("triaging", float64(time.Since(start).Milliseconds()))
	}()

	req := ClassifyRequest{
		SubmissionID: submissionID,
		Frames:       seq.Sample(g.sampleCount),
		Width:        seq.Spec.Width,
		Height:       seq.Spec.Height,
		Instructions: g.instructions,
	}

	var resp ClassifyResponse
	err := retry.Do(ctx, g.policy,
		func(ctx context.Context) error {
			var callErr error
			resp, callErr = g.classifier.Classify(ctx, req)
			return callErr
		},
		func(err error) bool { return errors.Is(err, model.ErrTransientExternal) },
		func(attempt int, err error) {
			metrics.RecordStageRetry("triaging")
			g.log.Warn(ctx, "classifier call failed, retrying",
				logger.String("submissionID", submissionID),
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
		},
	)
	if err != nil {
		if errors.Is(err, model.ErrTransientExternal) {
			return Outcome{}, fmt.Errorf("%w: %w", model.ErrTriageUnavailable, err)
		}
		return Outcome{}, err
	}

	out := Outcome{
		Valid:      resp.Verdict,
		Confidence: resp.Confidence,
		Reason:     resp.Reason,
	}
	if out.Valid && resp.Confidence < g.confidenceFloor {
		out.Valid = false
		floorNote := fmt.Sprintf("view confidence %.2f below required %.2f", resp.Confidence, g.confidenceFloor)
		if resp.Reason != "" {
			out.Reason = resp.Reason + " (" + floorNote + ")"
		} else {
			out.Reason = floorNote
		}
	}

	if out.Valid {
		metrics.RecordTriageVerdict("valid")
	} else {
		metrics.RecordTriageVerdict("invalid")
	}
	g.log.Info(ctx, "triage verdict recorded",
		logger.String("submissionID", submissionID),
		logger.Bool("valid", out.Valid),
		logger.Float64("confidence", out.Confidence),
	)
	return out, nil
}
