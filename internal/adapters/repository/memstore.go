package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
)

// Default store configuration constants.
const defaultShardCount = 8

// MemStore implements Store with sharded in-memory maps. Records are copied
// on the way in and out; callers never hold a reference into the store.
type MemStore struct {
	shards     []*shard
	shardCount int
	clock      func() time.Time
}

type shard struct {
	mu   sync.RWMutex
	subs map[string]*model.Submission
}

// NewMemStore creates an in-memory submission store.
func NewMemStore(_ context.Context, opts ...Option) *MemStore {
	s := &MemStore{
		shardCount: defaultShardCount,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{subs: make(map[string]*model.Submission)}
	}
	return s
}

func (s *MemStore) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[int(h.Sum32())%s.shardCount]
}

// Create registers a new submission record.
func (s *MemStore) Create(_ context.Context, sub *model.Submission) error {
	sh := s.shardFor(sub.ID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if _, exists := sh.subs[sub.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, sub.ID)
	}

	rec := cloneSubmission(sub)
	if rec.Status == "" {
		rec.Status = model.StatusCreated
	}
	if rec.Verdict == "" {
		rec.Verdict = model.VerdictPending
	}
	now := s.clock()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	sh.subs[rec.ID] = rec
	return nil
}

// Get returns a snapshot of the submission.
func (s *MemStore) Get(_ context.Context, id string) (model.Submission, error) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	rec, ok := sh.subs[id]
	if !ok {
		return model.Submission{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return *cloneSubmission(rec), nil
}

// Transition moves the submission along one legal edge of the state machine.
func (s *MemStore) Transition(_ context.Context, id string, from, to model.Status, mutate func(*model.Submission)) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.subs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status.Terminal() {
		return fmt.Errorf("%w: %s is %s", ErrTerminal, id, rec.Status)
	}
	if rec.Status != from {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrIllegalTransition, id, rec.Status, from)
	}
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}

	if mutate != nil {
		mutate(rec)
	}
	rec.Status = to
	rec.UpdatedAt = s.clock()
	return nil
}

// SetEstimate records the blind estimate, enforcing the set-once and blinding
// window guards against the record's current state, never wall clock.
func (s *MemStore) SetEstimate(_ context.Context, id string, value float64) error {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.subs[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.BlindEstimate != nil {
		return fmt.Errorf("%w: submission %s", model.ErrEstimateAlreadySet, id)
	}
	if !rec.Status.EstimateOpen() {
		return fmt.Errorf("%w: submission %s is %s", model.ErrEstimateTooLate, id, rec.Status)
	}

	v := value
	rec.BlindEstimate = &v
	rec.UpdatedAt = s.clock()
	return nil
}

// CommitResult writes the quantification result, first writer wins.
func (s *MemStore) CommitResult(_ context.Context, id string, lvef float64) (bool, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.subs[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Result != nil {
		// Stale retry; the committed value stands.
		return false, nil
	}
	if rec.Verdict != model.VerdictValid {
		return false, fmt.Errorf("%w: result requires a valid verdict, have %s", ErrIllegalTransition, rec.Verdict)
	}
	if rec.Status != model.StatusQuantifying {
		return false, fmt.Errorf("%w: result write in %s", ErrIllegalTransition, rec.Status)
	}

	v := lvef
	rec.Result = &v
	rec.UpdatedAt = s.clock()
	return true, nil
}

// CommitDelta stores the revealed delta once; repeats return the stored value.
func (s *MemStore) CommitDelta(_ context.Context, id string, delta float64) (float64, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.subs[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Delta != nil {
		return *rec.Delta, nil
	}
	if rec.BlindEstimate == nil || rec.Result == nil {
		return 0, fmt.Errorf("%w: submission %s", model.ErrMissingInputs, id)
	}

	v := delta
	rec.Delta = &v
	rec.UpdatedAt = s.clock()
	return v, nil
}

// RequestCancel records a cancellation request and applies it immediately
// when the state allows.
func (s *MemStore) RequestCancel(_ context.Context, id string) (bool, error) {
	sh := s.shardFor(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	rec, ok := sh.subs[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.Status.Terminal() {
		return false, fmt.Errorf("%w: %s is %s", ErrTerminal, id, rec.Status)
	}

	rec.CancelRequested = true
	if rec.Status.Cancelable() {
		rec.Status = model.StatusFailed
		rec.ErrorKind = model.KindCanceled
		rec.UpdatedAt = s.clock()
		return true, nil
	}
	rec.UpdatedAt = s.clock()
	return false, nil
}

// Count returns the number of submissions tracked.
func (s *MemStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.subs)
		sh.mu.RUnlock()
	}
	return total
}

// CountByStatus breaks the population down by pipeline state.
func (s *MemStore) CountByStatus(_ context.Context) map[model.Status]int {
	out := make(map[model.Status]int)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, rec := range sh.subs {
			out[rec.Status]++
		}
		sh.mu.RUnlock()
	}
	return out
}

// cloneSubmission deep-copies a record including its optional values.
func cloneSubmission(in *model.Submission) *model.Submission {
	out := *in
	if in.BlindEstimate != nil {
		v := *in.BlindEstimate
		out.BlindEstimate = &v
	}
	if in.Result != nil {
		v := *in.Result
		out.Result = &v
	}
	if in.Delta != nil {
		v := *in.Delta
		out.Delta = &v
	}
	return &out
}
