package ingest

import "github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"

// Option applies a configuration option to the Normalizer.
type Option func(*Normalizer)

// WithTargetSpec sets the output frame spec.
func WithTargetSpec(spec TargetSpec) Option {
	return func(n *Normalizer) {
		if spec.Width > 0 && spec.Height > 0 && spec.FPS > 0 && spec.Frames > 0 {
			n.spec = spec
		}
	}
}

// WithFfmpegPath sets the transcoder binary path.
func WithFfmpegPath(path string) Option {
	return func(n *Normalizer) {
		if path != "" {
			n.dec = &ffmpegDecoder{binary: path}
		}
	}
}

// WithDecoder substitutes the decoder, primarily for tests.
func WithDecoder(dec Decoder) Option {
	return func(n *Normalizer) {
		if dec != nil {
			n.dec = dec
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(n *Normalizer) {
		if log != nil {
			n.log = log
		}
	}
}
