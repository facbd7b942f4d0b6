package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	repository "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/repository"
	ingest "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	model "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	pipeline "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/pipeline"
	reconcile "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/reconcile"
	triage "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/triage"
)

type fakeFetcher struct {
	err     error
	cleaned bool
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (string, func(), error) {
	if f.err != nil {
		return "", nil, f.err
	}
	return "/scratch/clip.bin", func() { f.cleaned = true }, nil
}

type fakeNormalizer struct {
	err   error
	calls int
}

func (n *fakeNormalizer) Normalize(_ context.Context, _, _ string) (*ingest.FrameSequence, error) {
	n.calls++
	if n.err != nil {
		return nil, n.err
	}
	spec := ingest.TargetSpec{Width: 112, Height: 112, FPS: 25, Frames: 2}
	return &ingest.FrameSequence{
		Spec: spec,
		Frames: []ingest.Frame{
			{Index: 0, Pix: make([]byte, spec.FrameBytes())},
			{Index: 1, Pix: make([]byte, spec.FrameBytes())},
		},
	}, nil
}

type fakeTriager struct {
	outcome triage.Outcome
	err     error
	calls   int
	hook    func()
}

func (t *fakeTriager) Triage(_ context.Context, _ string, _ *ingest.FrameSequence) (triage.Outcome, error) {
	t.calls++
	if t.hook != nil {
		t.hook()
	}
	return t.outcome, t.err
}

type fakeQuantifier struct {
	lvef  float64
	err   error
	calls int
	hook  func()
}

func (q *fakeQuantifier) Quantify(_ context.Context, _ string, _ *ingest.FrameSequence) (float64, error) {
	q.calls++
	if q.hook != nil {
		q.hook()
	}
	if q.err != nil {
		return 0, q.err
	}
	return q.lvef, nil
}

type fixture struct {
	store      *repository.MemStore
	fetcher    *fakeFetcher
	normalizer *fakeNormalizer
	triager    *fakeTriager
	quantifier *fakeQuantifier
	runner     *pipeline.Runner
}

func newFixture() *fixture {
	f := &fixture{
		store:      repository.NewMemStore(context.Background()),
		fetcher:    &fakeFetcher{},
		normalizer: &fakeNormalizer{},
		triager:    &fakeTriager{outcome: triage.Outcome{Valid: true, Confidence: 0.9, Reason: "apical four-chamber view"}},
		quantifier: &fakeQuantifier{lvef: 60},
	}
	f.runner = pipeline.New(
		f.store,
		f.fetcher,
		f.normalizer,
		f.triager,
		f.quantifier,
		reconcile.New(f.store),
	)
	return f
}

func (f *fixture) create(ctx context.Context, id string) {
	_ = f.store.Create(ctx, &model.Submission{ID: id, ClipRef: "clips/" + id + ".mp4"})
}

func TestRunCompletes(t *testing.T) {
	convey.Convey("Given a submission with a blind estimate of 55", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.create(ctx, "sub-1")
		convey.So(f.store.SetEstimate(ctx, "sub-1", 55), convey.ShouldBeNil)

		convey.Convey("When the pipeline runs and quantification yields 60", func() {
			err := f.runner.Run(ctx, "sub-1")
			convey.So(err, convey.ShouldBeNil)

			sub, getErr := f.store.Get(ctx, "sub-1")
			convey.So(getErr, convey.ShouldBeNil)

			convey.Convey("Then the record completes with delta 5", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusCompleted)
				convey.So(sub.Verdict, convey.ShouldEqual, model.VerdictValid)
				convey.So(*sub.Result, convey.ShouldEqual, 60)
				convey.So(*sub.Delta, convey.ShouldEqual, 5)
				convey.So(f.fetcher.cleaned, convey.ShouldBeTrue)
			})
		})
	})
}

func TestRunCompletesUnblinded(t *testing.T) {
	convey.Convey("Given a submission with no estimate supplied", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.create(ctx, "sub-1")

		convey.Convey("When the pipeline runs", func() {
			convey.So(f.runner.Run(ctx, "sub-1"), convey.ShouldBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then it completes with a result and no delta", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusCompleted)
				convey.So(*sub.Result, convey.ShouldEqual, 60)
				convey.So(sub.Delta, convey.ShouldBeNil)
			})
		})
	})
}

func TestRunRejectsInvalidView(t *testing.T) {
	convey.Convey("Given a clip showing the wrong anatomical view", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.triager.outcome = triage.Outcome{Valid: false, Confidence: 0.85, Reason: "short-axis view detected"}
		f.create(ctx, "sub-1")

		convey.Convey("When the pipeline runs", func() {
			convey.So(f.runner.Run(ctx, "sub-1"), convey.ShouldBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then the submission is rejected and quantification never starts", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusRejected)
				convey.So(sub.Verdict, convey.ShouldEqual, model.VerdictInvalid)
				convey.So(sub.RejectionReason, convey.ShouldEqual, "short-axis view detected")
				convey.So(sub.Result, convey.ShouldBeNil)
				convey.So(f.quantifier.calls, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRunFailsOnUnsupportedFormat(t *testing.T) {
	convey.Convey("Given a clip in an unsupported container", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.normalizer.err = fmt.Errorf("%w: mkv", model.ErrUnsupportedFormat)
		f.create(ctx, "sub-1")

		convey.Convey("When the pipeline runs", func() {
			err := f.runner.Run(ctx, "sub-1")
			convey.So(err, convey.ShouldNotBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then it fails before any external call", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(sub.ErrorKind, convey.ShouldEqual, model.KindUnsupportedFormat)
				convey.So(f.triager.calls, convey.ShouldEqual, 0)
				convey.So(f.quantifier.calls, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRunFailsOnExhaustedQuantifier(t *testing.T) {
	convey.Convey("Given a quantifier whose retries are exhausted", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.quantifier.err = fmt.Errorf("quantification retries exhausted: %w", model.ErrTransientExternal)
		f.create(ctx, "sub-1")

		convey.Convey("When the pipeline runs", func() {
			err := f.runner.Run(ctx, "sub-1")
			convey.So(err, convey.ShouldNotBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then it fails with the transient kind and no result", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(sub.ErrorKind, convey.ShouldEqual, model.KindTransientExternal)
				convey.So(sub.Result, convey.ShouldBeNil)
			})
		})
	})
}

func TestRunStopsOnEarlyCancel(t *testing.T) {
	convey.Convey("Given a cancel that lands during triage", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.create(ctx, "sub-1")
		f.triager.hook = func() {
			_, _ = f.store.RequestCancel(ctx, "sub-1")
		}

		convey.Convey("When the pipeline runs", func() {
			convey.So(f.runner.Run(ctx, "sub-1"), convey.ShouldBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then the run stops quietly and quantification never starts", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(sub.ErrorKind, convey.ShouldEqual, model.KindCanceled)
				convey.So(f.quantifier.calls, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRunDiscardsResultOnLateCancel(t *testing.T) {
	convey.Convey("Given a cancel that lands while quantifying", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.create(ctx, "sub-1")
		f.quantifier.hook = func() {
			immediate, err := f.store.RequestCancel(ctx, "sub-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(immediate, convey.ShouldBeFalse)
		}

		convey.Convey("When the pipeline runs", func() {
			convey.So(f.runner.Run(ctx, "sub-1"), convey.ShouldBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then the in-flight result is discarded", func() {
				convey.So(f.quantifier.calls, convey.ShouldEqual, 1)
				convey.So(sub.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(sub.ErrorKind, convey.ShouldEqual, model.KindCanceled)
				convey.So(sub.Result, convey.ShouldBeNil)
			})
		})
	})
}

func TestRunSkipsFinalizedSubmission(t *testing.T) {
	convey.Convey("Given a submission canceled before its run starts", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.create(ctx, "sub-1")
		immediate, err := f.store.RequestCancel(ctx, "sub-1")
		convey.So(err, convey.ShouldBeNil)
		convey.So(immediate, convey.ShouldBeTrue)

		convey.Convey("When the pipeline runs", func() {
			convey.So(f.runner.Run(ctx, "sub-1"), convey.ShouldBeNil)

			convey.Convey("Then nothing executes", func() {
				convey.So(f.normalizer.calls, convey.ShouldEqual, 0)
				convey.So(f.triager.calls, convey.ShouldEqual, 0)
				convey.So(f.quantifier.calls, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestRunFailsOnFetchError(t *testing.T) {
	convey.Convey("Given an unreachable clip source", t, func() {
		ctx := context.Background()
		f := newFixture()
		f.fetcher.err = fmt.Errorf("%w: connection refused", model.ErrTransientExternal)
		f.create(ctx, "sub-1")

		convey.Convey("When the pipeline runs", func() {
			err := f.runner.Run(ctx, "sub-1")
			convey.So(err, convey.ShouldNotBeNil)
			sub, _ := f.store.Get(ctx, "sub-1")

			convey.Convey("Then it fails with the transient kind", func() {
				convey.So(sub.Status, convey.ShouldEqual, model.StatusFailed)
				convey.So(sub.ErrorKind, convey.ShouldEqual, model.KindTransientExternal)
			})
		})
	})
}
