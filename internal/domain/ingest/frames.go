// Package ingest normalizes arbitrary clip containers into the fixed frame
// sequence the quantification model expects. Decoding is delegated to an
// ffmpeg subprocess; this package never implements codecs.
package ingest

import "sync"

// TargetSpec fixes the output shape of normalization. Identical input bytes
// and identical spec yield identical frame sequences.
type TargetSpec struct {
	Width  int
	Height int
	FPS    int
	Frames int
}

// FrameBytes is the raw RGB24 payload size of one frame at this shape.
func (t TargetSpec) FrameBytes() int {
	return t.Width * t.Height * 3
}

// Frame is one decoded RGB24 frame.
type Frame struct {
	Index int
	Pix   []byte
}

// FrameSequence is the normalized artifact owned by a single pipeline run.
// It must be released at run end on every path; buffers are never shared or
// cached across submissions.
type FrameSequence struct {
	Spec   TargetSpec
	Frames []Frame

	once    sync.Once
	cleanup []func()
}

// Len returns the number of frames.
func (fs *FrameSequence) Len() int {
	return len(fs.Frames)
}

// Sample returns n evenly spaced frames from the sequence. n is clamped to
// the sequence length.
func (fs *FrameSequence) Sample(n int) []Frame {
	if n <= 0 || fs.Len() == 0 {
		return nil
	}
	if n >= fs.Len() {
		out := make([]Frame, fs.Len())
		copy(out, fs.Frames)
		return out
	}
	out := make([]Frame, 0, n)
	step := float64(fs.Len()) / float64(n)
	for i := 0; i < n; i++ {
		out = append(out, fs.Frames[int(float64(i)*step)])
	}
	return out
}

// OnRelease registers fn to run when the sequence is released. Used for
// scratch-file removal.
func (fs *FrameSequence) OnRelease(fn func()) {
	if fn != nil {
		fs.cleanup = append(fs.cleanup, fn)
	}
}

// Release frees frame buffers and runs registered cleanups. Safe to call
// more than once; only the first call has effect.
func (fs *FrameSequence) Release() {
	fs.once.Do(func() {
		for _, fn := range fs.cleanup {
			fn()
		}
		fs.cleanup = nil
		fs.Frames = nil
	})
}
