package clipsource_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	clipsource "github.com/webbjeremy-ops/echonet-modal-deployment/internal/adapters/clipsource"
	model "github.com/webbjeremy-ops/echonet-modal-deployment/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestHTTPFetch(t *testing.T) {
	convey.Convey("Given an HTTP clip source", t, func() {
		ctx := context.Background()
		payload := []byte("GIF89a-fake-clip-bytes")

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case "/clip.gif":
				_, _ = w.Write(payload)
			case "/flaky":
				w.WriteHeader(http.StatusServiceUnavailable)
			default:
				w.WriteHeader(http.StatusNotFound)
			}
		}))
		defer srv.Close()

		f := clipsource.NewMultiFetcher(clipsource.WithScratchDir(t.TempDir()))

		convey.Convey("When downloading an existing clip", func() {
			path, cleanup, err := f.Fetch(ctx, srv.URL+"/clip.gif")
			convey.So(err, convey.ShouldBeNil)

			got, err := os.ReadFile(path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldResemble, payload)

			convey.Convey("Then cleanup removes the scratch file", func() {
				cleanup()
				_, err := os.Stat(path)
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the source answers 503", func() {
			_, _, err := f.Fetch(ctx, srv.URL+"/flaky")
			convey.So(errors.Is(err, model.ErrTransientExternal), convey.ShouldBeTrue)
		})

		convey.Convey("When the clip does not exist", func() {
			_, _, err := f.Fetch(ctx, srv.URL+"/missing.mp4")
			convey.So(errors.Is(err, clipsource.ErrClipUnavailable), convey.ShouldBeTrue)
		})
	})
}

func TestLocatorRouting(t *testing.T) {
	convey.Convey("Given the routing fetcher", t, func() {
		ctx := context.Background()
		f := clipsource.NewMultiFetcher()

		convey.Convey("When the locator scheme is unknown", func() {
			_, _, err := f.Fetch(ctx, "ftp://host/clip.avi")
			convey.So(errors.Is(err, clipsource.ErrUnsupportedLocator), convey.ShouldBeTrue)
		})

		convey.Convey("When an s3 locator arrives with no backend", func() {
			_, _, err := f.Fetch(ctx, "s3://bucket/key.mp4")
			convey.So(errors.Is(err, clipsource.ErrUnsupportedLocator), convey.ShouldBeTrue)
		})

		convey.Convey("When the locator is a local file", func() {
			path := filepath.Join(t.TempDir(), "local.gif")
			convey.So(os.WriteFile(path, []byte("GIF89a"), 0o600), convey.ShouldBeNil)

			got, cleanup, err := f.Fetch(ctx, path)
			convey.So(err, convey.ShouldBeNil)
			convey.So(got, convey.ShouldEqual, path)

			convey.Convey("Then cleanup leaves the caller's file alone", func() {
				cleanup()
				_, err := os.Stat(path)
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the local file is missing", func() {
			_, _, err := f.Fetch(ctx, "/no/such/clip.mp4")
			convey.So(errors.Is(err, clipsource.ErrClipUnavailable), convey.ShouldBeTrue)
		})
	})
}
