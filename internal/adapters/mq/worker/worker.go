// Package worker drains run jobs off the queue and executes the submission
// pipeline on a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/mq/queue"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Runner executes one submission's pipeline run.
type Runner interface {
	Run(ctx context.Context, submissionID string) error
}

// Releaser frees the run guard once a submission's run has finished.
type Releaser interface {
	Release(ctx context.Context, id string)
}

// Queue defines how workers receive run jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// InMemoryWorker processes run jobs until stopped.
type InMemoryWorker struct {
	queue  Queue
	runner Runner
	guard  Releaser
	name   string

	active *atomic.Int64

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(q Queue, runner Runner, guard Releaser, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		runner:   runner,
		guard:    guard,
		name:     "worker",
		active:   &atomic.Int64{},
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is canceled or the queue closes.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.processJob(ctx, job)
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processJob executes one run. The guard is released whatever the outcome so
// the submission can be requeued by an operator if the run failed transiently.
func (w *InMemoryWorker) processJob(ctx context.Context, job queue.Job) {
	metrics.UpdateActiveRuns(int(w.active.Add(1)))
	defer func() {
		metrics.UpdateActiveRuns(int(w.active.Add(-1)))
		if w.guard != nil {
			w.guard.Release(ctx, job.SubmissionID)
		}
	}()

	if err := w.runner.Run(ctx, job.SubmissionID); err != nil {
		w.logger.Error(ctx, "pipeline run ended with failure",
			logger.String("submissionID", job.SubmissionID),
			logger.Error(err),
		)
	}
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker

	shutdown chan struct{}

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count falls back to a
// CPU-proportional default.
func NewPool(workerCount int, q Queue, runner Runner, guard Releaser) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	active := &atomic.Int64{}
	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		shutdown: make(chan struct{}),
		logger:   logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			runner,
			guard,
			WithName("worker-"+strconv.Itoa(i)),
			withSharedCounter(active),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateActiveRuns(0)
	return pool
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals all workers and waits briefly for each to finish.
func (p *Pool) Stop() {
	close(p.shutdown)
	for _, w := range p.workers {
		close(w.shutdown)
	}
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and waits for workers to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if len(p.workers) > 0 {
		if closer, ok := p.workers[0].queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
