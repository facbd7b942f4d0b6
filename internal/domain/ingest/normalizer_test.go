package ingest_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	ingest "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	model "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// fakeDecoder returns a scripted number of frames or an error.
type fakeDecoder struct {
	frames int
	err    error
}

func (d *fakeDecoder) Decode(_ context.Context, _ string, spec ingest.TargetSpec) ([][]byte, error) {
	if d.err != nil {
		return nil, d.err
	}
	out := make([][]byte, d.frames)
	for i := range out {
		buf := make([]byte, spec.FrameBytes())
		buf[0] = byte(i)
		out[i] = buf
	}
	return out, nil
}

func writeClip(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func gifHeader() []byte {
	return append([]byte("GIF89a"), make([]byte, 64)...)
}

func TestDetectFormat(t *testing.T) {
	convey.Convey("Given container sniffing", t, func() {
		convey.Convey("When the header is an MP4 ftyp box", func() {
			header := append([]byte{0, 0, 0, 0x18}, []byte("ftypisom")...)
			format, err := ingest.DetectFormat(header)
			convey.So(err, convey.ShouldBeNil)
			convey.So(format, convey.ShouldEqual, ingest.FormatMP4)
		})

		convey.Convey("When the header is an AVI RIFF chunk", func() {
			format, err := ingest.DetectFormat([]byte("RIFF\x00\x00\x00\x00AVI "))
			convey.So(err, convey.ShouldBeNil)
			convey.So(format, convey.ShouldEqual, ingest.FormatAVI)
		})

		convey.Convey("When the header is a GIF signature", func() {
			format, err := ingest.DetectFormat([]byte("GIF87a......"))
			convey.So(err, convey.ShouldBeNil)
			convey.So(format, convey.ShouldEqual, ingest.FormatGIF)
		})

		convey.Convey("When the header is unrecognized", func() {
			_, err := ingest.DetectFormat([]byte("MKV-OR-WHATEVER"))
			convey.So(errors.Is(err, model.ErrUnsupportedFormat), convey.ShouldBeTrue)
		})

		convey.Convey("When the header is too short", func() {
			_, err := ingest.DetectFormat([]byte{0x01})
			convey.So(errors.Is(err, model.ErrUnsupportedFormat), convey.ShouldBeTrue)
		})
	})
}

func TestParseFormat(t *testing.T) {
	convey.Convey("Given declared format parsing", t, func() {
		for _, s := range []string{"mp4", "MP4", " avi ", "gif"} {
			_, err := ingest.ParseFormat(s)
			convey.So(err, convey.ShouldBeNil)
		}

		_, err := ingest.ParseFormat("webm")
		convey.So(errors.Is(err, model.ErrUnsupportedFormat), convey.ShouldBeTrue)
	})
}

func TestNormalize(t *testing.T) {
	convey.Convey("Given a normalizer with a fake decoder", t, func() {
		ctx := context.Background()
		spec := ingest.TargetSpec{Width: 4, Height: 4, FPS: 25, Frames: 8}

		convey.Convey("When the clip decodes to more frames than the target", func() {
			n := ingest.New(
				ingest.WithTargetSpec(spec),
				ingest.WithDecoder(&fakeDecoder{frames: 20}),
			)
			seq, err := n.Normalize(ctx, writeClip(t, "clip.gif", gifHeader()), "")
			convey.So(err, convey.ShouldBeNil)
			defer seq.Release()

			convey.Convey("Then the sequence is truncated to the configured length", func() {
				convey.So(seq.Len(), convey.ShouldEqual, 8)
				for i, f := range seq.Frames {
					convey.So(f.Index, convey.ShouldEqual, i)
					convey.So(len(f.Pix), convey.ShouldEqual, spec.FrameBytes())
				}
			})
		})

		convey.Convey("When the clip decodes to fewer frames than the target", func() {
			n := ingest.New(
				ingest.WithTargetSpec(spec),
				ingest.WithDecoder(&fakeDecoder{frames: 3}),
			)
			seq, err := n.Normalize(ctx, writeClip(t, "short.gif", gifHeader()), "")
			convey.So(err, convey.ShouldBeNil)
			defer seq.Release()

			convey.Convey("Then the final frame is repeated as padding", func() {
				convey.So(seq.Len(), convey.ShouldEqual, 8)
				convey.So(seq.Frames[7].Pix[0], convey.ShouldEqual, seq.Frames[2].Pix[0])
			})
		})

		convey.Convey("When the declared format is unsupported", func() {
			n := ingest.New(ingest.WithTargetSpec(spec), ingest.WithDecoder(&fakeDecoder{frames: 5}))
			_, err := n.Normalize(ctx, writeClip(t, "clip.bin", gifHeader()), "webm")
			convey.So(errors.Is(err, model.ErrUnsupportedFormat), convey.ShouldBeTrue)
		})

		convey.Convey("When the clip is empty", func() {
			n := ingest.New(ingest.WithTargetSpec(spec), ingest.WithDecoder(&fakeDecoder{frames: 5}))
			_, err := n.Normalize(ctx, writeClip(t, "empty.gif", nil), "")
			convey.So(errors.Is(err, model.ErrEmptyClip), convey.ShouldBeTrue)
		})

		convey.Convey("When the decoder fails", func() {
			n := ingest.New(
				ingest.WithTargetSpec(spec),
				ingest.WithDecoder(&fakeDecoder{err: errors.New("broken stream")}),
			)
			_, err := n.Normalize(ctx, writeClip(t, "corrupt.gif", gifHeader()), "")
			convey.So(errors.Is(err, model.ErrDecodeFailure), convey.ShouldBeTrue)
		})

		convey.Convey("When the decoder yields zero frames", func() {
			n := ingest.New(
				ingest.WithTargetSpec(spec),
				ingest.WithDecoder(&fakeDecoder{frames: 0}),
			)
			_, err := n.Normalize(ctx, writeClip(t, "hollow.gif", gifHeader()), "")
			convey.So(errors.Is(err, model.ErrEmptyClip), convey.ShouldBeTrue)
		})
	})
}

func TestFrameSequence(t *testing.T) {
	convey.Convey("Given a frame sequence", t, func() {
		spec := ingest.TargetSpec{Width: 2, Height: 2, FPS: 25, Frames: 10}
		frames := make([]ingest.Frame, 10)
		for i := range frames {
			frames[i] = ingest.Frame{Index: i, Pix: make([]byte, spec.FrameBytes())}
		}
		seq := &ingest.FrameSequence{Spec: spec, Frames: frames}

		convey.Convey("When sampling evenly spaced frames", func() {
			sampled := seq.Sample(4)
			convey.So(len(sampled), convey.ShouldEqual, 4)
			convey.So(sampled[0].Index, convey.ShouldEqual, 0)
			convey.So(sampled[3].Index, convey.ShouldBeGreaterThan, sampled[0].Index)
		})

		convey.Convey("When sampling more than available", func() {
			convey.So(len(seq.Sample(32)), convey.ShouldEqual, 10)
		})

		convey.Convey("When releasing", func() {
			released := 0
			seq.OnRelease(func() { released++ })
			seq.Release()
			seq.Release()

			convey.Convey("Then buffers are dropped and cleanup runs exactly once", func() {
				convey.So(seq.Len(), convey.ShouldEqual, 0)
				convey.So(released, convey.ShouldEqual, 1)
			})
		})
	})
}
