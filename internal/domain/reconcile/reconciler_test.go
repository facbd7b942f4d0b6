package reconcile_test

import (
	"context"
	"errors"
	"testing"

	repository "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/repository"
	model "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	reconcile "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/reconcile"
	"github.com/smartystreets/goconvey/convey"
)

func setup(ctx context.Context, t *testing.T) (*repository.MemStore, *reconcile.Reconciler) {
	t.Helper()
	store := repository.NewMemStore(ctx)
	if err := store.Create(ctx, &model.Submission{ID: "sub-1", ClipRef: "clip"}); err != nil {
		t.Fatal(err)
	}
	return store, reconcile.New(store)
}

// quantify walks sub-1 to quantifying with a valid verdict and commits lvef.
func quantify(ctx context.Context, t *testing.T, store *repository.MemStore, lvef float64) {
	t.Helper()
	steps := [][2]model.Status{
		{model.StatusCreated, model.StatusNormalizing},
		{model.StatusNormalizing, model.StatusTriaging},
		{model.StatusTriaging, model.StatusQuantifying},
	}
	for _, step := range steps {
		var mutate func(*model.Submission)
		if step[1] == model.StatusQuantifying {
			mutate = func(sub *model.Submission) { sub.Verdict = model.VerdictValid }
		}
		if err := store.Transition(ctx, "sub-1", step[0], step[1], mutate); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.CommitResult(ctx, "sub-1", lvef); err != nil {
		t.Fatal(err)
	}
}

func TestRecordEstimate(t *testing.T) {
	convey.Convey("Given a reconciler", t, func() {
		ctx := context.Background()
		store, r := setup(ctx, t)

		convey.Convey("When recording a first estimate", func() {
			convey.So(r.RecordEstimate(ctx, "sub-1", 55), convey.ShouldBeNil)

			convey.Convey("Then a second write fails regardless of value equality", func() {
				err := r.RecordEstimate(ctx, "sub-1", 55)
				convey.So(errors.Is(err, model.ErrEstimateAlreadySet), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the estimate is out of range", func() {
			convey.So(errors.Is(r.RecordEstimate(ctx, "sub-1", -3), model.ErrEstimateOutOfRange), convey.ShouldBeTrue)
			convey.So(errors.Is(r.RecordEstimate(ctx, "sub-1", 101), model.ErrEstimateOutOfRange), convey.ShouldBeTrue)
		})

		convey.Convey("When quantification has already started", func() {
			quantify(ctx, t, store, 60)

			err := r.RecordEstimate(ctx, "sub-1", 50)
			convey.So(errors.Is(err, model.ErrEstimateTooLate), convey.ShouldBeTrue)
		})
	})
}

func TestComputeDelta(t *testing.T) {
	convey.Convey("Given a reconciler", t, func() {
		ctx := context.Background()
		store, r := setup(ctx, t)

		convey.Convey("When both inputs exist", func() {
			convey.So(r.RecordEstimate(ctx, "sub-1", 55), convey.ShouldBeNil)
			quantify(ctx, t, store, 60)

			delta, err := r.ComputeDelta(ctx, "sub-1")
			convey.So(err, convey.ShouldBeNil)
			convey.So(delta, convey.ShouldEqual, 5.0)

			convey.Convey("Then a second call is a pure read of the same value", func() {
				before, _ := store.Get(ctx, "sub-1")

				again, err := r.ComputeDelta(ctx, "sub-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldEqual, 5.0)

				after, _ := store.Get(ctx, "sub-1")
				convey.So(after.UpdatedAt, convey.ShouldEqual, before.UpdatedAt)
			})
		})

		convey.Convey("When the estimate is missing", func() {
			quantify(ctx, t, store, 60)

			_, err := r.ComputeDelta(ctx, "sub-1")
			convey.So(errors.Is(err, model.ErrMissingInputs), convey.ShouldBeTrue)
		})

		convey.Convey("When the result is missing", func() {
			convey.So(r.RecordEstimate(ctx, "sub-1", 55), convey.ShouldBeNil)

			_, err := r.ComputeDelta(ctx, "sub-1")
			convey.So(errors.Is(err, model.ErrMissingInputs), convey.ShouldBeTrue)
		})
	})
}

func TestDelta(t *testing.T) {
	convey.Convey("Given the pure delta function", t, func() {
		convey.So(reconcile.Delta(55, 60), convey.ShouldEqual, 5.0)
		convey.So(reconcile.Delta(60, 55), convey.ShouldEqual, 5.0)
		convey.So(reconcile.Delta(50, 50), convey.ShouldEqual, 0.0)
	})
}
