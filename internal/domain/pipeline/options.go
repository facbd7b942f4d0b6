package pipeline

import "github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}
