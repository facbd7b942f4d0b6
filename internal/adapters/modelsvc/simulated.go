package modelsvc

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/quant"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/triage"
)

// Simulated capability defaults.
const (
	defaultMinLatency   = 80 * time.Millisecond
	defaultMaxLatency   = 150 * time.Millisecond
	defaultIdleTimeout  = 5 * time.Minute
	defaultWarmupCalls  = 2
	defaultRandomSeed   = 42
	invalidViewModulus  = 5
	simulatedLVEFBase   = 35
	simulatedLVEFSpread = 40
)

// SimOption applies a configuration option to the simulated capabilities.
type SimOption func(*simCore)

// WithLatencyRange sets the simulated service latency bounds.
func WithLatencyRange(minLatency, maxLatency time.Duration) SimOption {
	return func(s *simCore) {
		if minLatency > 0 && maxLatency > minLatency {
			s.minLatency = minLatency
			s.maxLatency = maxLatency
		}
	}
}

// WithIdleTimeout sets how long the simulated quantifier stays warm.
func WithIdleTimeout(d time.Duration) SimOption {
	return func(s *simCore) {
		if d > 0 {
			s.idleTimeout = d
		}
	}
}

// WithWarmupCalls sets how many provisioning answers a cold start costs.
func WithWarmupCalls(n int) SimOption {
	return func(s *simCore) {
		if n >= 0 {
			s.warmupCalls = n
		}
	}
}

// simCore is shared state for the simulated capabilities.
type simCore struct {
	mu          sync.Mutex
	rng         *rand.Rand
	minLatency  time.Duration
	maxLatency  time.Duration
	idleTimeout time.Duration
	warmupCalls int
}

func newSimCore(opts ...SimOption) *simCore {
	s := &simCore{
		rng:         rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible simulation
		minLatency:  defaultMinLatency,
		maxLatency:  defaultMaxLatency,
		idleTimeout: defaultIdleTimeout,
		warmupCalls: defaultWarmupCalls,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// sleep simulates service latency, honoring ctx.
func (s *simCore) sleep(ctx context.Context) error {
	s.mu.Lock()
	latency := s.minLatency + time.Duration(s.rng.Int63n(int64(s.maxLatency-s.minLatency)))
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", model.ErrTransientExternal, ctx.Err())
	case <-time.After(latency):
		return nil
	}
}

func hashID(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32()
}

// SimulatedClassifier deterministically approves most clips and rejects a
// stable subset, keyed by submission id, so demo runs exercise both branches.
type SimulatedClassifier struct {
	core *simCore
}

// NewSimulatedClassifier creates the in-process classifier.
func NewSimulatedClassifier(opts ...SimOption) *SimulatedClassifier {
	return &SimulatedClassifier{core: newSimCore(opts...)}
}

// Classify renders a deterministic verdict for the submission.
func (c *SimulatedClassifier) Classify(ctx context.Context, req triage.ClassifyRequest) (triage.ClassifyResponse, error) {
	if err := c.core.sleep(ctx); err != nil {
		return triage.ClassifyResponse{}, err
	}

	h := hashID(req.SubmissionID)
	if h%invalidViewModulus == 0 {
		return triage.ClassifyResponse{
			Verdict:    false,
			Confidence: 0.80 + float64(h%20)/100,
			Reason:     "short-axis view detected; apical four-chamber view required",
		}, nil
	}
	return triage.ClassifyResponse{
		Verdict:    true,
		Confidence: 0.75 + float64(h%25)/100,
		Reason:     "apical four-chamber view",
	}, nil
}

// SimulatedQuantifier mimics a scaled-to-zero GPU backend: after sitting
// idle it answers with provisioning errors for a few calls before producing
// deterministic LVEF values.
type SimulatedQuantifier struct {
	core     *simCore
	mu       sync.Mutex
	lastCall time.Time
	warming  int
}

// NewSimulatedQuantifier creates the in-process quantifier.
func NewSimulatedQuantifier(opts ...SimOption) *SimulatedQuantifier {
	return &SimulatedQuantifier{core: newSimCore(opts...)}
}

// Quantify renders a deterministic LVEF for the submission.
func (q *SimulatedQuantifier) Quantify(ctx context.Context, req quant.QuantifyRequest) (quant.QuantifyResponse, error) {
	if err := q.coldStartGate(); err != nil {
		return quant.QuantifyResponse{}, err
	}
	if err := q.core.sleep(ctx); err != nil {
		return quant.QuantifyResponse{}, err
	}

	lvef := simulatedLVEFBase + float64(hashID(req.SubmissionID)%(simulatedLVEFSpread*10))/10
	return quant.QuantifyResponse{LVEF: lvef}, nil
}

// coldStartGate charges the warmup cost after an idle period.
func (q *SimulatedQuantifier) coldStartGate() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	if q.lastCall.IsZero() || now.Sub(q.lastCall) > q.core.idleTimeout {
		q.warming = q.core.warmupCalls
	}
	q.lastCall = now

	if q.warming > 0 {
		q.warming--
		return fmt.Errorf("%w: simulated backend warming", quant.ErrProvisioning)
	}
	return nil
}
