package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/metrics"
)

// Decoder produces raw RGB24 frames from a clip file at the target spec.
// The production implementation shells out to ffmpeg; tests substitute a
// deterministic fake.
type Decoder interface {
	Decode(ctx context.Context, clipPath string, spec TargetSpec) ([][]byte, error)
}

// Normalizer turns an on-disk clip into a FrameSequence of exactly
// spec.Frames frames at spec.Width x spec.Height.
type Normalizer struct {
	spec TargetSpec
	dec  Decoder
	log  logger.Logger
}

// New creates a Normalizer with the given options.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		spec: TargetSpec{Width: 112, Height: 112, FPS: 25, Frames: 32},
		log:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.dec == nil {
		n.dec = &ffmpegDecoder{binary: "ffmpeg"}
	}
	return n
}

// Spec returns the configured target spec.
func (n *Normalizer) Spec() TargetSpec {
	return n.spec
}

// Normalize decodes clipPath into the fixed-shape frame sequence. The
// declared format, when non-empty, is validated; otherwise the container is
// sniffed from the leading bytes. Both checks happen before any decode work
// so unsupported input never reaches the transcoder.
func (n *Normalizer) Normalize(ctx context.Context, clipPath, declaredFormat string) (*FrameSequence, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStageLatency("normalizing", float64(time.Since(start).Milliseconds()))
	}()

	format, err := n.resolveFormat(clipPath, declaredFormat)
	if err != nil {
		return nil, err
	}

	raw, err := n.dec.Decode(ctx, clipPath, n.spec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: decoder produced no frames", model.ErrEmptyClip)
	}

	raw = fitToLength(raw, n.spec.Frames)

	frames := make([]Frame, len(raw))
	for i, pix := range raw {
		frames[i] = Frame{Index: i, Pix: pix}
	}
	metrics.RecordFramesDecoded(len(frames))
	n.log.Debug(ctx, "clip normalized",
		logger.String("format", string(format)),
		logger.Int("frames", len(frames)),
	)

	return &FrameSequence{Spec: n.spec, Frames: frames}, nil
}

// resolveFormat validates the declared format or sniffs the container.
func (n *Normalizer) resolveFormat(clipPath, declared string) (Format, error) {
	info, err := os.Stat(clipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("%w: zero-byte clip", model.ErrEmptyClip)
	}

	if declared != "" {
		return ParseFormat(declared)
	}

	f, err := os.Open(clipPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
	}
	defer f.Close()

	header := make([]byte, sniffLen)
	read, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
	}
	return DetectFormat(header[:read])
}

// fitToLength truncates or pads (repeating the final frame) to exactly want
// frames.
func fitToLength(raw [][]byte, want int) [][]byte {
	if len(raw) >= want {
		return raw[:want]
	}
	last := raw[len(raw)-1]
	for len(raw) < want {
		raw = append(raw, last)
	}
	return raw
}

// ffmpegDecoder invokes the ffmpeg binary to transcode any supported
// container into raw RGB24 frames on stdout.
type ffmpegDecoder struct {
	binary string
}

func (d *ffmpegDecoder) Decode(ctx context.Context, clipPath string, spec TargetSpec) ([][]byte, error) {
	filter := fmt.Sprintf("fps=%d,scale=%dx%d", spec.FPS, spec.Width, spec.Height)
	cmd := exec.CommandContext(ctx, d.binary,
		"-hide_banner",
		"-loglevel", "error",
		"-i", clipPath,
		"-vf", filter,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	frameBytes := spec.FrameBytes()
	var frames [][]byte
	for {
		buf := make([]byte, frameBytes)
		_, readErr := io.ReadFull(stdout, buf)
		if readErr != nil {
			// A trailing partial frame is dropped with the remainder of
			// the stream.
			break
		}
		frames = append(frames, buf)
	}

	if err := cmd.Wait(); err != nil {
		if len(frames) == 0 {
			return nil, fmt.Errorf("ffmpeg: %w: %s", err, stderr.String())
		}
		// Frames decoded before the error are still usable.
	}
	return frames, nil
}
