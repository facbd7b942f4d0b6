package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if ECHONET_CONFIG is set
//  3. env (prefix ECHONET_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("ECHONET_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: ECHONET_ADDR, ECHONET_WORKER_COUNT, ...
	// Keys map to the koanf tags on the struct with underscores preserved.
	envProvider := env.Provider("ECHONET_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "echonet_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.FrameWidth <= 0 || c.FrameHeight <= 0:
		return fmt.Errorf("%w: frame dimensions must be positive", ErrInvalidConfig)
	case c.ClipFrames <= 0:
		return fmt.Errorf("%w: clip_frames must be positive", ErrInvalidConfig)
	case c.FrameRate <= 0:
		return fmt.Errorf("%w: frame_rate must be positive", ErrInvalidConfig)
	case c.TriageSampleFrames <= 0:
		return fmt.Errorf("%w: triage_sample_frames must be positive", ErrInvalidConfig)
	case c.TriageSampleFrames > c.ClipFrames:
		return fmt.Errorf("%w: triage_sample_frames exceeds clip_frames", ErrInvalidConfig)
	case c.RetryAttempts < 1:
		return fmt.Errorf("%w: retry_attempts must be at least 1", ErrInvalidConfig)
	case c.TriageConfidenceFloor < 0 || c.TriageConfidenceFloor > 1:
		return fmt.Errorf("%w: triage_confidence_floor must be in [0,1]", ErrInvalidConfig)
	}
	return nil
}
