package service

import (
	"time"

	clipsource "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/clipsource"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of pipeline workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize bounds the run queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithTargetSpec sets the frame shape the quantification model requires.
func WithTargetSpec(spec ingest.TargetSpec) Option {
	return func(s *Service) {
		if spec.Width > 0 && spec.Height > 0 && spec.FPS > 0 && spec.Frames > 0 {
			s.spec = spec
		}
	}
}

// WithTriageSampleFrames sets how many frames the gate submits.
func WithTriageSampleFrames(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sampleFrames = n
		}
	}
}

// WithTriageConfidenceFloor rejects positive verdicts below the floor.
func WithTriageConfidenceFloor(floor float64) Option {
	return func(s *Service) {
		if floor >= 0 && floor <= 1 {
			s.confidenceFloor = floor
		}
	}
}

// WithCapabilityEndpoints selects remote capabilities. Empty strings keep the
// built-in simulated implementations.
func WithCapabilityEndpoints(classifierURL, quantifierURL string) Option {
	return func(s *Service) {
		s.classifierURL = classifierURL
		s.quantifierURL = quantifierURL
	}
}

// WithCapabilityTimeout bounds a single capability call.
func WithCapabilityTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.capabilityTimeout = d
		}
	}
}

// WithRetryPolicy sets the transient-failure retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		if p.Attempts > 0 {
			s.retryPolicy = p
		}
	}
}

// WithColdStartPolicy sets the provisioning wait policy for the quantifier.
func WithColdStartPolicy(p retry.Policy) Option {
	return func(s *Service) {
		if p.Attempts > 0 {
			s.coldStartPolicy = p
		}
	}
}

// WithFfmpegPath locates the transcoding binary.
func WithFfmpegPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.ffmpegPath = path
		}
	}
}

// WithScratchDir sets where clip scratch files live.
func WithScratchDir(dir string) Option {
	return func(s *Service) {
		s.scratchDir = dir
	}
}

// WithObjectStore enables the s3:// clip source backend.
func WithObjectStore(cfg clipsource.S3Config) Option {
	return func(s *Service) {
		if cfg.Endpoint != "" {
			s.objectStore = &cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}
