// Package quant invokes the external LVEF quantification capability and
// applies its cold-start and retry policy.
package quant

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

// LVEF bounds accepted from the capability.
const (
	minLVEF = 0
	maxLVEF = 100
)

// QuantifyRequest is the payload submitted to the quantification capability.
type QuantifyRequest struct {
	SubmissionID string
	Frames       []ingest.Frame
	Width        int
	Height       int
	FPS          int
}

// QuantifyResponse carries the capability's scalar estimate.
type QuantifyResponse struct {
	LVEF float64
}

// Quantifier is the opaque scoring capability. Implementations wrap
// provisioning responses with ErrProvisioning and transient conditions with
// model.ErrTransientExternal.
type Quantifier interface {
	Quantify(ctx context.Context, req QuantifyRequest) (QuantifyResponse, error)
}

// Invoker manages cold starts and retries around the quantifier.
type Invoker struct {
	quantifier Quantifier
	policy     retry.Policy
	coldPolicy retry.Policy
	log        logger.Logger
}

// New creates an Invoker with the given options. The cold-start budget is
// deliberately larger and slower than the transient budget: a scaled-to-zero
// backend that is provisioning is making progress, not failing.
func New(quantifier Quantifier, opts ...Option) *Invoker {
	inv := &Invoker{
		quantifier: quantifier,
		policy:     retry.DefaultPolicy(),
		coldPolicy: retry.Policy{Attempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second},
		log:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	return inv
}

// Quantify submits the full frame sequence and returns the LVEF estimate in
// [0,100]. Out-of-range results fail with model.ErrInvalidModelOutput and are
// never clamped. The invoker does not commit the result anywhere; committing
// with first-writer-wins semantics belongs to the orchestrator's store.
func (inv *Invoker) Quantify(ctx context.Context, submissionID string, seq *ingest.FrameSequence) (float64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageLatency("quantifying", float64(time.Since(start).Milliseconds()))
	}()

	req := QuantifyRequest{
		SubmissionID: submissionID,
		Frames:       seq.Frames,
		Width:        seq.Spec.Width,
		Height:       seq.Spec.Height,
		FPS:          seq.Spec.FPS,
	}

	transientLeft := inv.policy.Attempts
	coldLeft := inv.coldPolicy.Attempts

	for {
		resp, err := inv.quantifier.Quantify(ctx, req)
		if err == nil {
			if resp.LVEF < minLVEF || resp.LVEF > maxLVEF {
				return 0, fmt.Errorf("%w: lvef %.2f outside [%d,%d]", model.ErrInvalidModelOutput, resp.LVEF, minLVEF, maxLVEF)
			}
			inv.log.Info(ctx, "quantification result obtained",
				logger.String("submissionID", submissionID),
				logger.Float64("lvef", resp.LVEF),
			)
			return resp.LVEF, nil
		}

		var delay time.Duration
		switch {
		case errors.Is(err, ErrProvisioning):
			coldLeft--
			metrics.RecordColdStart()
			if coldLeft <= 0 {
				return 0, fmt.Errorf("%w: cold-start budget exhausted: %w", model.ErrTransientExternal, err)
			}
			delay = inv.coldPolicy.Delay(inv.coldPolicy.Attempts - coldLeft)
			inv.log.Info(ctx, "quantifier provisioning, waiting",
				logger.String("submissionID", submissionID),
				logger.Int("attemptsLeft", coldLeft),
				logger.Duration("delay", delay),
			)
		case errors.Is(err, model.ErrTransientExternal):
			transientLeft--
			metrics.RecordStageRetry("quantifying")
			if transientLeft <= 0 {
				return 0, fmt.Errorf("quantification retries exhausted: %w", err)
			}
			delay = inv.policy.Delay(inv.policy.Attempts - transientLeft)
			inv.log.Warn(ctx, "quantifier call failed, retrying",
				logger.String("submissionID", submissionID),
				logger.Int("attemptsLeft", transientLeft),
				logger.Error(err),
			)
		default:
			return 0, err
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("%w: %w", ctx.Err(), err)
		case <-time.After(delay):
		}
	}
}
