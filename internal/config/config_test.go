package config_test

import (
	"runtime"
	"testing"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.RunQueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU()*2)
			convey.So(cfg.RetryAttempts, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the frame target spec matches the model input", func() {
			convey.So(cfg.FrameWidth, convey.ShouldEqual, 112)
			convey.So(cfg.FrameHeight, convey.ShouldEqual, 112)
			convey.So(cfg.FrameRate, convey.ShouldEqual, 25)
			convey.So(cfg.ClipFrames, convey.ShouldEqual, 32)
			convey.So(cfg.TriageSampleFrames, convey.ShouldEqual, 4)
		})

		convey.Convey("Then capability endpoints default to the simulated mode", func() {
			convey.So(cfg.ClassifierEndpoint, convey.ShouldEqual, "")
			convey.So(cfg.QuantifierEndpoint, convey.ShouldEqual, "")
		})
	})
}
