// Package service assembles the submission pipeline and implements the
// operations the HTTP API depends on: create, estimate, query and cancel.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	clipsource "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/clipsource"
	modelsvc "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/modelsvc"
	runqueue "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/mq/queue"
	workerpool "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/mq/worker"
	repository "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/repository"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/dedupe"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/pipeline"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/quant"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/reconcile"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/triage"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/types"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Service wires the submission store, clip source, pipeline stages, queue and
// worker pool behind the operations the API exposes.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	guard      dedupe.Guard
	queue      runqueue.Queue
	reconciler *reconcile.Reconciler
	runner     *pipeline.Runner
	pool       *workerpool.Pool

	// Configuration
	workerCount       int
	queueSize         int
	spec              ingest.TargetSpec
	sampleFrames      int
	confidenceFloor   float64
	classifierURL     string
	quantifierURL     string
	capabilityTimeout time.Duration
	retryPolicy       retry.Policy
	coldStartPolicy   retry.Policy
	ffmpegPath        string
	scratchDir        string
	objectStore       *clipsource.S3Config

	// State
	started bool

	// Logging
	logger logger.Logger
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:       runtime.NumCPU() * 2,
		queueSize:         10_000,
		spec:              ingest.TargetSpec{Width: 112, Height: 112, FPS: 25, Frames: 32},
		sampleFrames:      4,
		confidenceFloor:   0.5,
		capabilityTimeout: 10 * time.Second,
		retryPolicy:       retry.DefaultPolicy(),
		coldStartPolicy:   retry.Policy{Attempts: 10, BaseDelay: 2 * time.Second, MaxDelay: 15 * time.Second},
		ffmpegPath:        "ffmpeg",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the pipeline components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting submission service...")

	s.store = repository.NewMemStore(ctx)
	s.guard = dedupe.NewInMemoryGuard()
	s.queue = runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.queueSize))
	s.reconciler = reconcile.New(s.store, reconcile.WithLogger(s.logger.Named("reconcile")))

	fetcher, err := s.buildFetcher()
	if err != nil {
		return err
	}

	normalizer := ingest.New(
		ingest.WithTargetSpec(s.spec),
		ingest.WithFfmpegPath(s.ffmpegPath),
		ingest.WithLogger(s.logger.Named("ingest")),
	)

	classifier, quantifier := s.buildCapabilities()
	gate := triage.New(classifier,
		triage.WithSampleCount(s.sampleFrames),
		triage.WithConfidenceFloor(s.confidenceFloor),
		triage.WithRetryPolicy(s.retryPolicy),
		triage.WithLogger(s.logger.Named("triage")),
	)
	invoker := quant.New(quantifier,
		quant.WithRetryPolicy(s.retryPolicy),
		quant.WithColdStartPolicy(s.coldStartPolicy),
		quant.WithLogger(s.logger.Named("quant")),
	)

	s.runner = pipeline.New(s.store, fetcher, normalizer, gate, invoker, s.reconciler,
		pipeline.WithLogger(s.logger.Named("pipeline")),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.runner, s.guard)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "submission service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Bool("simulatedCapabilities", s.classifierURL == ""),
	)
	return nil
}

// buildFetcher assembles the clip source, with the object-store backend only
// when configured.
func (s *Service) buildFetcher() (pipeline.Fetcher, error) {
	opts := []clipsource.Option{
		clipsource.WithScratchDir(s.scratchDir),
		clipsource.WithLogger(s.logger.Named("clipsource")),
	}
	if s.objectStore != nil {
		s3cfg := *s.objectStore
		s3cfg.ScratchDir = s.scratchDir
		s3, err := clipsource.NewS3Fetcher(s3cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, clipsource.WithObjectFetcher(s3))
	}
	return clipsource.NewMultiFetcher(opts...), nil
}

// buildCapabilities selects HTTP clients when endpoints are configured and
// the in-process simulated capabilities otherwise.
func (s *Service) buildCapabilities() (triage.Classifier, quant.Quantifier) {
	var classifier triage.Classifier
	var quantifier quant.Quantifier

	if s.classifierURL != "" {
		classifier = modelsvc.NewHTTPClassifier(s.classifierURL, modelsvc.WithCallTimeout(s.capabilityTimeout))
	} else {
		classifier = modelsvc.NewSimulatedClassifier()
	}
	if s.quantifierURL != "" {
		quantifier = modelsvc.NewHTTPQuantifier(s.quantifierURL, modelsvc.WithCallTimeout(s.capabilityTimeout))
	} else {
		quantifier = modelsvc.NewSimulatedQuantifier()
	}
	return classifier, quantifier
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping submission service...")

	if s.queue != nil {
		if q, ok := s.queue.(*runqueue.InMemoryQueue); ok {
			_ = q.Close()
		}
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "submission service stopped")
}

// CreateSubmission registers a clip for processing and schedules its run.
// A creation-supplied blind estimate is stored on the record before the run
// is enqueued, so it can never race its own pipeline.
func (s *Service) CreateSubmission(ctx context.Context, clipRef, declaredFormat string, blindEstimate *float64) (types.SubmissionView, error) {
	if clipRef == "" {
		return types.SubmissionView{}, fmt.Errorf("%w: clip_ref is required", ErrInvalidSubmission)
	}
	if declaredFormat != "" {
		if _, err := ingest.ParseFormat(declaredFormat); err != nil {
			return types.SubmissionView{}, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
		}
	}
	if blindEstimate != nil && (*blindEstimate < 0 || *blindEstimate > 100) {
		return types.SubmissionView{}, fmt.Errorf("%w: %.2f outside [0,100]", model.ErrEstimateOutOfRange, *blindEstimate)
	}

	sub := &model.Submission{
		ID:            uuid.NewString(),
		ClipRef:       clipRef,
		Format:        declaredFormat,
		BlindEstimate: blindEstimate,
	}
	if err := s.store.Create(ctx, sub); err != nil {
		return types.SubmissionView{}, err
	}
	metrics.RecordSubmissionCreated()

	if err := s.schedule(ctx, sub.ID); err != nil {
		return types.SubmissionView{}, err
	}

	created, err := s.store.Get(ctx, sub.ID)
	if err != nil {
		return types.SubmissionView{}, err
	}
	s.logger.Info(ctx, "submission created",
		logger.String("submissionID", sub.ID),
		logger.String("clipRef", clipRef),
	)
	return viewOf(&created), nil
}

// schedule claims the run guard and enqueues the job. A full queue finalizes
// the record so the caller is not left with a submission that will never run.
func (s *Service) schedule(ctx context.Context, id string) error {
	if !s.guard.Acquire(ctx, id) {
		return fmt.Errorf("%w: %s", ErrRunActive, id)
	}
	if s.queue.Enqueue(ctx, runqueue.Job{SubmissionID: id}) {
		return nil
	}

	s.guard.Release(ctx, id)
	_ = s.store.Transition(ctx, id, model.StatusCreated, model.StatusFailed, func(rec *model.Submission) {
		rec.ErrorKind = model.KindTransientExternal
	})
	metrics.RecordOutcome(string(model.StatusFailed), model.KindTransientExternal)
	s.logger.Warn(ctx, "run queue saturated, submission refused", logger.String("submissionID", id))
	return fmt.Errorf("%w: queue is full", ErrQueueSaturated)
}

// RecordEstimate stores the trainee's blind LVEF guess for the submission.
func (s *Service) RecordEstimate(ctx context.Context, id string, value float64) error {
	err := s.reconciler.RecordEstimate(ctx, id, value)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, model.ErrEstimateAlreadySet):
		metrics.RecordEstimateRejected("already_set")
	case errors.Is(err, model.ErrEstimateTooLate):
		metrics.RecordEstimateRejected("too_late")
	case errors.Is(err, model.ErrEstimateOutOfRange):
		metrics.RecordEstimateRejected("out_of_range")
	}
	return err
}

// GetSubmission returns the external view of the submission.
func (s *Service) GetSubmission(ctx context.Context, id string) (types.SubmissionView, error) {
	sub, err := s.store.Get(ctx, id)
	if err != nil {
		return types.SubmissionView{}, err
	}
	return viewOf(&sub), nil
}

// CancelSubmission requests cancellation. The returned flag reports whether
// the cancel took effect immediately; during quantification the in-flight
// result is discarded when the run reaches its next write.
func (s *Service) CancelSubmission(ctx context.Context, id string) (bool, error) {
	immediate, err := s.store.RequestCancel(ctx, id)
	if err != nil {
		return false, err
	}
	s.logger.Info(ctx, "cancel requested",
		logger.String("submissionID", id),
		logger.Bool("immediate", immediate),
	)
	return immediate, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
	}
	if !s.started {
		return stats
	}

	ctx := context.Background()
	byStatus := s.store.CountByStatus(ctx)
	statusCounts := make(map[string]int, len(byStatus))
	for status, n := range byStatus {
		statusCounts[string(status)] = n
	}

	stats["queueLength"] = s.queue.Len(ctx)
	stats["totalSubmissions"] = s.store.Count(ctx)
	stats["activeRuns"] = s.guard.Size()
	stats["byStatus"] = statusCounts
	return stats
}

// viewOf converts a record snapshot into the external shape. The blind
// estimate, result and delta stay hidden until the record is terminal.
func viewOf(sub *model.Submission) types.SubmissionView {
	v := types.SubmissionView{
		SubmissionID:    sub.ID,
		ClipRef:         sub.ClipRef,
		Status:          string(sub.Status),
		Verdict:         string(sub.Verdict),
		RejectionReason: sub.RejectionReason,
		ErrorKind:       sub.ErrorKind,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
	if sub.Status.Terminal() {
		v.BlindEstimate = sub.BlindEstimate
		v.Result = sub.Result
		v.Delta = sub.Delta
	}
	return v
}
