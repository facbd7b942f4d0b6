package triage

import (
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithSampleCount sets how many evenly spaced frames are submitted.
func WithSampleCount(n int) Option {
	return func(g *Gate) {
		if n > 0 {
			g.sampleCount = n
		}
	}
}

// WithConfidenceFloor rejects positive verdicts below this confidence.
func WithConfidenceFloor(floor float64) Option {
	return func(g *Gate) {
		if floor >= 0 && floor <= 1 {
			g.confidenceFloor = floor
		}
	}
}

// WithInstructions overrides the classification prompt.
func WithInstructions(s string) Option {
	return func(g *Gate) {
		if s != "" {
			g.instructions = s
		}
	}
}

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(g *Gate) {
		if p.Attempts > 0 {
			g.policy = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}
