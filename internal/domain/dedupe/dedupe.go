// Package dedupe guards against concurrent pipeline runs for the same
// submission. A submission id is acquired before its run job is enqueued and
// released when the run finishes, so requeue races and duplicate enqueues
// collapse to a single active run.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Guard tracks submission ids with an active or pending run.
type Guard interface {
	// Acquire atomically claims id. Returns false if a run for id is
	// already active, in which case the caller must not enqueue another.
	Acquire(ctx context.Context, id string) bool

	// Release frees id so a later run may be scheduled. Called when the run
	// finishes, or when enqueueing failed after a successful Acquire.
	Release(ctx context.Context, id string)

	// Size returns the number of ids currently held.
	Size() int64
}

type inMemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
	size   atomic.Int64
}

// NewInMemoryGuard creates an in-memory run guard.
func NewInMemoryGuard() Guard {
	return &inMemoryGuard{active: make(map[string]struct{})}
}

func (g *inMemoryGuard) Acquire(_ context.Context, id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[id]; held {
		return false
	}
	g.active[id] = struct{}{}
	g.size.Add(1)
	return true
}

func (g *inMemoryGuard) Release(_ context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[id]; held {
		delete(g.active, id)
		g.size.Add(-1)
	}
}

func (g *inMemoryGuard) Size() int64 {
	return g.size.Load()
}
