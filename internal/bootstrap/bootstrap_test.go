package bootstrap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fakemeh/internal/config"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func detector() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"classification": "Likely Real",
			"deepfake_score": 0.8,
			"heatmap_data":   []any{},
		})
	}))
}

func TestNew(t *testing.T) {
	Convey("Given a config pointing at a fake detector and a temp sqlite file", t, func() {
		srv := detector()
		defer srv.Close()

		ctx := context.Background()
		cfg := config.New(ctx)
		cfg.BackendURL = srv.URL
		cfg.SQLitePath = filepath.Join(t.TempDir(), "progress.db")

		Convey("When the app is built, started and used", func() {
			app, err := New(ctx, cfg, logger.Get())
			So(err, ShouldBeNil)
			app.Session.Start(ctx)

			ticket, err := app.Session.Submit(ctx, model.Submission{URL: "https://example.com/x.jpg", Guess: model.GuessReal})
			So(err, ShouldBeNil)
			waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			res, err := ticket.Wait(waitCtx)
			So(err, ShouldBeNil)

			closeCtx, closeCancel := context.WithTimeout(ctx, time.Second)
			defer closeCancel()
			So(app.Close(closeCtx), ShouldBeNil)

			Convey("Then the verdict is scored and survives a restart", func() {
				So(res.Correct, ShouldBeTrue)
				So(res.Points, ShouldEqual, 125)

				again, err := New(ctx, cfg, logger.Get())
				So(err, ShouldBeNil)
				defer func() { _ = again.Close(closeCtx) }()
				So(again.Session.Snapshot().Progression.Points, ShouldEqual, 125)
				So(again.Session.Snapshot().Progression.ChecksCompleted, ShouldEqual, 1)
			})
		})

		Convey("When the store driver is unknown", func() {
			cfg.StoreDriver = "etcd"
			_, err := New(ctx, cfg, logger.Get())

			Convey("Then building fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
