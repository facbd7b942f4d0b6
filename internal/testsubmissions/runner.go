package testsubmissions

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// Run executes the complete submission load test.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	logger.Get().Info(ctx, "starting submission load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("submissions", config.NumSubmissions),
		logger.Int("workers", config.Workers),
		logger.Float64("estimateRatio", config.EstimateRatio),
	)

	client := newAPIClient(config.BaseURL, config.Timeout)
	if err := client.health(ctx); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	clips, err := generateClips(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("clip generation failed: %w", err)
	}

	ids, err := submitClips(ctx, config, client, clips, stats)
	if err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for runs to settle")
	time.Sleep(settleDelay)

	outcomes, err := pollOutcomes(ctx, config, client, ids, stats)
	if err != nil {
		return fmt.Errorf("outcome polling failed: %w", err)
	}

	if err := verifyOutcomes(ctx, outcomes, stats); err != nil {
		return fmt.Errorf("outcome verification failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "load test completed successfully")
	return nil
}

// submitClips creates a submission per clip and records blind estimates for
// the configured share, using a bounded worker pool.
func submitClips(ctx context.Context, config *Config, client *apiClient, clips []string, stats *Stats) ([]string, error) {
	ids := make([]string, len(clips))
	errs := make([]error, len(clips))

	var created, estimated int64
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInt(config.Workers, 1))

	rng := rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // load distribution only
	for i, clip := range clips {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, clip string) {
			defer wg.Done()
			defer func() { <-sem }()

			view, err := client.createSubmission(ctx, clip)
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = view.SubmissionID

			mu.Lock()
			created++
			withEstimate := rng.Float64() < config.EstimateRatio
			estimate := 5 + rng.Float64()*90
			mu.Unlock()

			if withEstimate {
				if err := client.recordEstimate(ctx, view.SubmissionID, estimate); err != nil {
					// The window may have closed already on a fast run.
					if config.Verbose {
						logger.Get().Warn(ctx, "estimate not recorded",
							logger.String("submissionID", view.SubmissionID),
							logger.Error(err),
						)
					}
					return
				}
				mu.Lock()
				estimated++
				mu.Unlock()
			}
		}(i, clip)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("submission %d: %w", i, err)
		}
	}

	stats.SubmissionsCreated = int(created)
	stats.EstimatesRecorded = int(estimated)
	logger.Get().Info(ctx, "submissions created",
		logger.Int("created", stats.SubmissionsCreated),
		logger.Int("estimates", stats.EstimatesRecorded),
	)
	return ids, nil
}

// pollOutcomes waits for every submission to reach a terminal state.
func pollOutcomes(ctx context.Context, config *Config, client *apiClient, ids []string, stats *Stats) ([]submissionView, error) {
	outcomes := make([]submissionView, 0, len(ids))

	for _, id := range ids {
		view, err := pollOne(ctx, config, client, id)
		if err != nil {
			stats.PollTimeouts++
			logger.Get().Warn(ctx, "submission did not terminate in time",
				logger.String("submissionID", id),
				logger.Error(err),
			)
			continue
		}

		switch view.Status {
		case "completed":
			stats.Completed++
		case "rejected":
			stats.Rejected++
		case "failed":
			stats.Failed++
		}
		outcomes = append(outcomes, view)
	}
	return outcomes, nil
}

func pollOne(ctx context.Context, config *Config, client *apiClient, id string) (submissionView, error) {
	deadline := time.Now().Add(config.PollTimeout)
	for {
		view, err := client.getSubmission(ctx, id)
		if err != nil {
			return submissionView{}, err
		}
		switch view.Status {
		case "completed", "rejected", "failed":
			return view, nil
		}

		if time.Now().After(deadline) {
			return submissionView{}, fmt.Errorf("still %s after %s", view.Status, config.PollTimeout)
		}
		select {
		case <-ctx.Done():
			return submissionView{}, ctx.Err()
		case <-time.After(config.PollInterval):
		}
	}
}

// displayFinalStats prints the final test statistics.
func displayFinalStats(stats *Stats) {
	var terminalRate float64
	terminal := stats.Completed + stats.Rejected + stats.Failed
	if stats.SubmissionsCreated > 0 {
		terminalRate = float64(terminal) / float64(stats.SubmissionsCreated) * PercentageMultiplier
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("clipsGenerated", stats.ClipsGenerated),
		logger.Int("submissionsCreated", stats.SubmissionsCreated),
		logger.Int("estimatesRecorded", stats.EstimatesRecorded),
		logger.Int("completed", stats.Completed),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("pollTimeouts", stats.PollTimeouts),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("terminalRate", terminalRate),
	)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
