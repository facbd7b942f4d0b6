package logger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

func TestFieldConstructors(t *testing.T) {
	convey.Convey("Given field constructors", t, func() {
		convey.So(String("k", "v"), convey.ShouldResemble, Field{Key: "k", Value: "v"})
		convey.So(Int("n", 3), convey.ShouldResemble, Field{Key: "n", Value: 3})
		convey.So(Float64("f", 1.5), convey.ShouldResemble, Field{Key: "f", Value: 1.5})
		convey.So(Bool("b", true), convey.ShouldResemble, Field{Key: "b", Value: true})
		convey.So(Duration("d", time.Second), convey.ShouldResemble, Field{Key: "d", Value: time.Second})

		err := errors.New("boom")
		convey.So(Error(err).Key, convey.ShouldEqual, "error")
		convey.So(Error(err).Value, convey.ShouldEqual, err)
	})
}

func TestGlobalLogger(t *testing.T) {
	convey.Convey("Given the global logger", t, func() {
		convey.So(Init(), convey.ShouldBeNil)

		convey.Convey("When logging through it", func() {
			ctx := context.Background()
			l := Named("test")
			convey.So(func() {
				l.Debug(ctx, "debug line")
				l.Info(ctx, "info line", String("k", "v"))
				l.Warn(ctx, "warn line")
				l.Error(ctx, "error line", Error(errors.New("boom")))
			}, convey.ShouldNotPanic)
		})

		convey.Convey("When setting levels by string", func() {
			convey.So(SetLevelString("debug"), convey.ShouldBeNil)
			convey.So(SetLevelString("WARN"), convey.ShouldBeNil)
			convey.So(SetLevelString(""), convey.ShouldBeNil)
			convey.So(SetLevelString("nope"), convey.ShouldNotBeNil)
			SetLevel(slog.LevelInfo)
		})
	})
}

func TestNopLogger(t *testing.T) {
	convey.Convey("Given the no-op logger", t, func() {
		l := Nop().Named("anything")
		convey.So(func() {
			l.Info(context.Background(), "discarded")
			l.Error(context.Background(), "also discarded")
		}, convey.ShouldNotPanic)
	})
}
