package types_test

import (
	"encoding/json"
	"testing"

	types "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/types"
	"github.com/smartystreets/goconvey/convey"
)

func TestSubmissionView(t *testing.T) {
	convey.Convey("Given a SubmissionView", t, func() {
		convey.Convey("When the submission is still in flight", func() {
			view := types.SubmissionView{
				SubmissionID: "sub-123",
				ClipRef:      "https://clips.example/a4c.mp4",
				Status:       "triaging",
				Verdict:      "pending",
			}

			raw, err := json.Marshal(view)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then optional fields are omitted from the payload", func() {
				convey.So(string(raw), convey.ShouldNotContainSubstring, "result")
				convey.So(string(raw), convey.ShouldNotContainSubstring, "delta")
				convey.So(string(raw), convey.ShouldNotContainSubstring, "error_kind")
			})
		})

		convey.Convey("When the submission is completed", func() {
			result := 60.0
			delta := 5.0
			estimate := 55.0
			view := types.SubmissionView{
				SubmissionID:  "sub-123",
				Status:        "completed",
				Verdict:       "valid",
				BlindEstimate: &estimate,
				Result:        &result,
				Delta:         &delta,
			}

			raw, err := json.Marshal(view)
			convey.So(err, convey.ShouldBeNil)

			var round types.SubmissionView
			convey.So(json.Unmarshal(raw, &round), convey.ShouldBeNil)

			convey.Convey("Then result and delta survive the round trip", func() {
				convey.So(round.Result, convey.ShouldNotBeNil)
				convey.So(*round.Result, convey.ShouldEqual, 60.0)
				convey.So(round.Delta, convey.ShouldNotBeNil)
				convey.So(*round.Delta, convey.ShouldEqual, 5.0)
			})
		})
	})
}
