// Package queue moves pipeline run jobs from the submission API to the
// worker pool through an in-memory bounded channel. Enqueue never blocks;
// a full queue is backpressure the caller surfaces to the client.
package queue

import (
	"context"
	"sync"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// defaultCapacity bounds the queue when no option overrides it.
const defaultCapacity = 10000

// Job asks for one pipeline run.
type Job struct {
	SubmissionID string
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a run job. Returns false when the queue is full or
	// closed; the job was not accepted.
	Enqueue(ctx context.Context, job Job) bool

	// Dequeue returns a channel delivering jobs as they become available.
	// The channel closes when the queue closes.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close stops the queue. Jobs already queued still drain to consumers.
	Close() error

	// IsClosed reports whether the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	jobs   chan Job
	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates the queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	cfg := settings{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}

	q := &InMemoryQueue{jobs: make(chan Job, cfg.capacity)}
	metrics.UpdateQueueCapacity(cfg.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a run job without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, job Job) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed || ctx.Err() != nil {
		return false
	}

	select {
	case q.jobs <- job:
		metrics.UpdateQueueSize(len(q.jobs))
		return true
	default:
		return false
	}
}

// Dequeue returns the consumer channel.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for job := range q.jobs {
			select {
			case out <- job:
				metrics.UpdateQueueSize(len(q.jobs))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	return len(q.jobs)
}

// Close stops accepting jobs and lets consumers drain the remainder.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed reports whether the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
