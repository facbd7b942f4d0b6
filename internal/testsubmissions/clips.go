package testsubmissions

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

// generateClips writes small animated GIFs that any standard transcoder can
// decode, one per planned submission.
func generateClips(ctx context.Context, config *Config, stats *Stats) ([]string, error) {
	logger.Get().Info(ctx, "generating synthetic clips",
		logger.Int("numSubmissions", config.NumSubmissions),
		logger.String("clipDir", config.ClipDir),
	)

	dir := config.ClipDir
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "synthetic-clips-*")
		if err != nil {
			return nil, fmt.Errorf("create clip dir: %w", err)
		}
		config.ClipDir = dir
	}

	rng := rand.New(rand.NewSource(int64(config.NumSubmissions))) //nolint:gosec // synthetic pixels only
	paths := make([]string, config.NumSubmissions)
	for i := range paths {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("clip generation canceled: %w", ctx.Err())
		}
		path := filepath.Join(dir, "clip_"+strconv.Itoa(i)+".gif")
		if err := writeClip(path, rng); err != nil {
			return nil, fmt.Errorf("write clip %d: %w", i, err)
		}
		paths[i] = path
	}

	stats.ClipsGenerated = len(paths)
	logger.Get().Info(ctx, "clips generated", logger.Int("count", len(paths)))
	return paths, nil
}

// writeClip encodes a short greyscale animation with moving noise so frames
// differ from each other.
func writeClip(path string, rng *rand.Rand) error {
	palette := make(color.Palette, 0, 256)
	for v := 0; v < 256; v++ {
		palette = append(palette, color.Gray{Y: uint8(v)})
	}

	anim := &gif.GIF{}
	for f := 0; f < defaultClipFrames; f++ {
		img := image.NewPaletted(image.Rect(0, 0, defaultClipSize, defaultClipSize), palette)
		for i := range img.Pix {
			img.Pix[i] = uint8(rng.Intn(256))
		}
		anim.Image = append(anim.Image, img)
		anim.Delay = append(anim.Delay, 4)
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return gif.EncodeAll(file, anim)
}
