package config_test

import (
	"context"
	"errors"
	"testing"

	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_Load(t *testing.T) {
	convey.Convey("Given the layered loader", t, func() {
		ctx := context.Background()

		convey.Convey("When no file or env overrides exist", func() {
			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.ClipFrames, convey.ShouldEqual, 32)
		})

		convey.Convey("When env vars override defaults", func() {
			t.Setenv("ECHONET_ADDR", ":7070")
			t.Setenv("ECHONET_WORKER_COUNT", "3")
			t.Setenv("ECHONET_CLASSIFIER_ENDPOINT", "http://classifier.local/v1/triage")

			cfg, err := config.Load(ctx)
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
			convey.So(cfg.ClassifierEndpoint, convey.ShouldEqual, "http://classifier.local/v1/triage")
		})

		convey.Convey("When the sample count exceeds the clip length", func() {
			t.Setenv("ECHONET_TRIAGE_SAMPLE_FRAMES", "64")

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
		})

		convey.Convey("When the config file does not exist", func() {
			t.Setenv("ECHONET_CONFIG", "/nonexistent/echonet.yaml")

			_, err := config.Load(ctx)
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
		})
	})
}
