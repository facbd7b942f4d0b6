package worker

import (
	"sync/atomic"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// Option applies a configuration option to the worker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if log != nil {
			w.logger = log
		}
	}
}

// withSharedCounter lets a pool share one active-run counter across workers
// so the gauge reflects the whole pool.
func withSharedCounter(c *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		if c != nil {
			w.active = c
		}
	}
}
