package main

import (
	"context"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	app "github.com/webbjeremy-ops/echonet-modal-deployment/internal/app"
	"github.com/webbjeremy-ops/echonet-modal-deployment/internal/config"
	"github.com/webbjeremy-ops/echonet-modal-deployment/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestServiceOptions(t *testing.T) {
	convey.Convey("Given the default configuration", t, func() {
		cfg := config.New()

		convey.Convey("When translated into service options", func() {
			opts := serviceOptions(cfg, logger.Nop())

			convey.Convey("Then the service starts and stops cleanly", func() {
				svc := app.New(opts...)
				convey.So(svc.Start(context.Background()), convey.ShouldBeNil)
				svc.Stop()
			})
		})

		convey.Convey("When an object store is configured", func() {
			cfg.S3Endpoint = "localhost:9000"
			cfg.S3AccessKey = "access"
			cfg.S3SecretKey = "secret"

			withS3 := serviceOptions(cfg, logger.Nop())
			withoutS3 := serviceOptions(config.New(), logger.Nop())

			convey.Convey("Then the option set grows by the object-store backend", func() {
				convey.So(len(withS3), convey.ShouldEqual, len(withoutS3)+1)
			})
		})
	})
}
