package quant

import (
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// Option applies a configuration option to the Invoker.
type Option func(*Invoker)

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(inv *Invoker) {
		if p.Attempts > 0 {
			inv.policy = p
		}
	}
}

// WithColdStartPolicy sets the provisioning wait policy.
func WithColdStartPolicy(p retry.Policy) Option {
	return func(inv *Invoker) {
		if p.Attempts > 0 {
			inv.coldPolicy = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(inv *Invoker) {
		if log != nil {
			inv.log = log
		}
	}
}
