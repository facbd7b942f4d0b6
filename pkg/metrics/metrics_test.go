package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	convey.Convey("Given metrics manager creation", t, func() {
		convey.Convey("When creating with default options", func() {
			m := NewManager(WithRegistry(prometheus.NewRegistry()))
			convey.So(m, convey.ShouldNotBeNil)
			convey.So(m.Handler(), convey.ShouldNotBeNil)
		})

		convey.Convey("When creating with custom options", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("suite"),
				WithHistogramBuckets([]float64{1, 5, 10}),
				WithMetricsEnabled(true),
				WithRegistry(prometheus.NewRegistry()),
			)
			convey.So(m, convey.ShouldNotBeNil)
		})
	})
}

func TestRecordingHelpers(t *testing.T) {
	convey.Convey("Given the global recording helpers", t, func() {
		convey.Convey("Then lifecycle counters do not panic", func() {
			convey.So(func() {
				RecordSubmissionCreated()
				RecordOutcome("completed", "")
				RecordOutcome("failed", "TriageUnavailable")
				RecordTriageVerdict("valid")
				RecordTriageVerdict("invalid")
				RecordEstimateRejected("already_set")
				RecordDeltaComputed()
			}, convey.ShouldNotPanic)
		})

		convey.Convey("Then stage metrics do not panic", func() {
			convey.So(func() {
				RecordStageLatency("normalizing", 12.5)
				RecordStageRetry("quantifying")
				RecordColdStart()
				RecordStaleResultDiscarded()
				RecordClipBytes(1024)
				RecordFramesDecoded(32)
			}, convey.ShouldNotPanic)
		})

		convey.Convey("Then gauges and HTTP metrics do not panic", func() {
			convey.So(func() {
				UpdateQueueSize(3)
				UpdateQueueCapacity(100)
				UpdateWorkerCount(8)
				UpdateActiveRuns(2)
				RecordHTTPRequest("submissions", "POST", "202")
				RecordHTTPDuration("submissions", 4.2)
			}, convey.ShouldNotPanic)
		})
	})
}
