// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults; Load() layers file and env.
// - External errors must be wrapped via this package's error helpers.
package config

import "runtime"

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// RunQueueSize bounds the in-memory submission run queue.
	RunQueueSize int `koanf:"run_queue_size"`

	// WorkerCount sets the number of pipeline workers.
	WorkerCount int `koanf:"worker_count"`

	// Frame target spec required by the quantification model.
	FrameWidth  int `koanf:"frame_width"`
	FrameHeight int `koanf:"frame_height"`
	FrameRate   int `koanf:"frame_rate"`
	ClipFrames  int `koanf:"clip_frames"`

	// TriageSampleFrames is how many evenly spaced frames the gate submits
	// to the classifier.
	TriageSampleFrames int `koanf:"triage_sample_frames"`

	// TriageConfidenceFloor rejects positive verdicts reported below this
	// confidence.
	TriageConfidenceFloor float64 `koanf:"triage_confidence_floor"`

	// Capability endpoints. Empty endpoints select the built-in simulated
	// capabilities, which is the test and demo mode.
	ClassifierEndpoint string `koanf:"classifier_endpoint"`
	QuantifierEndpoint string `koanf:"quantifier_endpoint"`

	// Per-call deadline for external capabilities, milliseconds.
	CapabilityTimeoutMS int `koanf:"capability_timeout_ms"`

	// Retry policy for transient external failures.
	RetryAttempts       int `koanf:"retry_attempts"`
	RetryBaseDelayMS    int `koanf:"retry_base_delay_ms"`
	RetryMaxDelayMS     int `koanf:"retry_max_delay_ms"`
	ColdStartAttempts   int `koanf:"cold_start_attempts"`
	ColdStartBaseMS     int `koanf:"cold_start_base_ms"`

	// FfmpegPath locates the transcoding binary used by the normalizer.
	FfmpegPath string `koanf:"ffmpeg_path"`

	// ScratchDir holds downloaded clips and decode output for the lifetime
	// of a run. Empty means the OS temp dir.
	ScratchDir string `koanf:"scratch_dir"`

	// Object-storage clip source (s3:// locators). Optional.
	S3Endpoint  string `koanf:"s3_endpoint"`
	S3AccessKey string `koanf:"s3_access_key"`
	S3SecretKey string `koanf:"s3_secret_key"`
	S3UseSSL    bool   `koanf:"s3_use_ssl"`
}

// New creates a Config populated with defaults. The frame target spec matches
// the quantification model's input tensor.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":9080",
		RunQueueSize:          10_000,
		WorkerCount:           runtime.NumCPU() * 2,
		FrameWidth:            112,
		FrameHeight:           112,
		FrameRate:             25,
		ClipFrames:            32,
		TriageSampleFrames:    4,
		TriageConfidenceFloor: 0.5,
		CapabilityTimeoutMS:   10_000,
		RetryAttempts:         3,
		RetryBaseDelayMS:      200,
		RetryMaxDelayMS:       5_000,
		ColdStartAttempts:     10,
		ColdStartBaseMS:       2_000,
		FfmpegPath:            "ffmpeg",
	}
}
