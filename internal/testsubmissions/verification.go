package testsubmissions

import (
	"context"
	"fmt"
	"math"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// verifyOutcomes checks the pipeline's promises on every terminal record.
func verifyOutcomes(ctx context.Context, outcomes []submissionView, stats *Stats) error {
	logger.Get().Info(ctx, "verifying outcomes", logger.Int("count", len(outcomes)))

	violations := 0
	for _, view := range outcomes {
		if err := checkOutcome(view); err != nil {
			violations++
			logger.Get().Error(ctx, "outcome violation",
				logger.String("submissionID", view.SubmissionID),
				logger.Error(err),
			)
		}
	}

	if violations > 0 {
		return fmt.Errorf("%d of %d outcomes violated pipeline invariants", violations, len(outcomes))
	}
	logger.Get().Info(ctx, "all outcomes verified",
		logger.Int("completed", stats.Completed),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
	)
	return nil
}

// checkOutcome validates one terminal record.
func checkOutcome(view submissionView) error {
	switch view.Status {
	case "completed":
		if view.Result == nil {
			return fmt.Errorf("completed without a result")
		}
		if *view.Result < 0 || *view.Result > 100 {
			return fmt.Errorf("result %.2f out of range", *view.Result)
		}
		if view.BlindEstimate != nil {
			if view.Delta == nil {
				return fmt.Errorf("estimate present but no delta revealed")
			}
			want := math.Abs(*view.BlindEstimate - *view.Result)
			if math.Abs(*view.Delta-want) > 1e-9 {
				return fmt.Errorf("delta %.4f does not match |%.2f-%.2f|", *view.Delta, *view.BlindEstimate, *view.Result)
			}
		} else if view.Delta != nil {
			return fmt.Errorf("delta revealed without an estimate")
		}
	case "rejected":
		if view.RejectionReason == "" {
			return fmt.Errorf("rejected without a reason")
		}
		if view.Result != nil {
			return fmt.Errorf("rejected clip carries a result")
		}
	case "failed":
		if view.ErrorKind == "" {
			return fmt.Errorf("failed without an error kind")
		}
		if view.Result != nil && view.ErrorKind == "Canceled" {
			return fmt.Errorf("canceled submission carries a result")
		}
	default:
		return fmt.Errorf("non-terminal status %q", view.Status)
	}
	return nil
}
