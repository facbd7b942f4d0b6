package quant_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	ingest "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/ingest"
	model "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	quant "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/quant"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/retry"
	"github.com/smartystreets/goconvey/convey"
)

// scriptedQuantifier plays back queued errors then a final response.
type scriptedQuantifier struct {
	errs  []error
	final quant.QuantifyResponse
	calls int
}

func (q *scriptedQuantifier) Quantify(_ context.Context, _ quant.QuantifyRequest) (quant.QuantifyResponse, error) {
	idx := q.calls
	q.calls++
	if idx < len(q.errs) {
		return quant.QuantifyResponse{}, q.errs[idx]
	}
	return q.final, nil
}

func sequence(frames int) *ingest.FrameSequence {
	spec := ingest.TargetSpec{Width: 4, Height: 4, FPS: 25, Frames: frames}
	fs := make([]ingest.Frame, frames)
	for i := range fs {
		fs[i] = ingest.Frame{Index: i, Pix: make([]byte, spec.FrameBytes())}
	}
	return &ingest.FrameSequence{Spec: spec, Frames: fs}
}

func fastPolicy(attempts int) retry.Policy {
	return retry.Policy{Attempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestQuantifySuccess(t *testing.T) {
	convey.Convey("Given a quantification invoker", t, func() {
		ctx := context.Background()
		seq := sequence(32)

		convey.Convey("When the capability answers first try", func() {
			q := &scriptedQuantifier{final: quant.QuantifyResponse{LVEF: 60.0}}
			inv := quant.New(q)

			lvef, err := inv.Quantify(ctx, "sub-1", seq)
			convey.So(err, convey.ShouldBeNil)
			convey.So(lvef, convey.ShouldEqual, 60.0)
			convey.So(q.calls, convey.ShouldEqual, 1)
		})

		convey.Convey("When the result is out of range", func() {
			q := &scriptedQuantifier{final: quant.QuantifyResponse{LVEF: 132.4}}
			inv := quant.New(q)

			_, err := inv.Quantify(ctx, "sub-2", seq)

			convey.Convey("Then it fails as InvalidModelOutput instead of clamping", func() {
				convey.So(errors.Is(err, model.ErrInvalidModelOutput), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the result is negative", func() {
			q := &scriptedQuantifier{final: quant.QuantifyResponse{LVEF: -1}}
			inv := quant.New(q)

			_, err := inv.Quantify(ctx, "sub-3", seq)
			convey.So(errors.Is(err, model.ErrInvalidModelOutput), convey.ShouldBeTrue)
		})
	})
}

func TestQuantifyColdStart(t *testing.T) {
	convey.Convey("Given a scaled-to-zero quantifier", t, func() {
		ctx := context.Background()
		seq := sequence(32)
		provisioning := fmt.Errorf("%w: still warming", quant.ErrProvisioning)

		convey.Convey("When the backend warms up within budget", func() {
			q := &scriptedQuantifier{
				errs:  []error{provisioning, provisioning},
				final: quant.QuantifyResponse{LVEF: 55.0},
			}
			inv := quant.New(q, quant.WithColdStartPolicy(fastPolicy(5)))

			lvef, err := inv.Quantify(ctx, "sub-4", seq)
			convey.So(err, convey.ShouldBeNil)
			convey.So(lvef, convey.ShouldEqual, 55.0)
			convey.So(q.calls, convey.ShouldEqual, 3)
		})

		convey.Convey("When provisioning never finishes", func() {
			q := &scriptedQuantifier{
				errs: []error{provisioning, provisioning, provisioning, provisioning, provisioning},
			}
			inv := quant.New(q, quant.WithColdStartPolicy(fastPolicy(3)))

			_, err := inv.Quantify(ctx, "sub-5", seq)
			convey.So(errors.Is(err, model.ErrTransientExternal), convey.ShouldBeTrue)
			convey.So(q.calls, convey.ShouldEqual, 3)
		})
	})
}

func TestQuantifyRetries(t *testing.T) {
	convey.Convey("Given a flaky quantifier", t, func() {
		ctx := context.Background()
		seq := sequence(32)
		transient := fmt.Errorf("%w: deadline exceeded", model.ErrTransientExternal)

		convey.Convey("When transient failures precede success", func() {
			q := &scriptedQuantifier{
				errs:  []error{transient, transient},
				final: quant.QuantifyResponse{LVEF: 48.0},
			}
			inv := quant.New(q, quant.WithRetryPolicy(fastPolicy(3)))

			lvef, err := inv.Quantify(ctx, "sub-6", seq)
			convey.So(err, convey.ShouldBeNil)
			convey.So(lvef, convey.ShouldEqual, 48.0)
			convey.So(q.calls, convey.ShouldEqual, 3)
		})

		convey.Convey("When three consecutive attempts time out at limit 3", func() {
			q := &scriptedQuantifier{errs: []error{transient, transient, transient}}
			inv := quant.New(q, quant.WithRetryPolicy(fastPolicy(3)))

			_, err := inv.Quantify(ctx, "sub-7", seq)

			convey.Convey("Then the escalated kind is TransientExternalFailure", func() {
				convey.So(errors.Is(err, model.ErrTransientExternal), convey.ShouldBeTrue)
				convey.So(model.ErrorKind(err), convey.ShouldEqual, model.KindTransientExternal)
				convey.So(q.calls, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the failure is permanent", func() {
			q := &scriptedQuantifier{errs: []error{errors.New("model crashed")}}
			inv := quant.New(q, quant.WithRetryPolicy(fastPolicy(3)))

			_, err := inv.Quantify(ctx, "sub-8", seq)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(q.calls, convey.ShouldEqual, 1)
		})
	})
}
