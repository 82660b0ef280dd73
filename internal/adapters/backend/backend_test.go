package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func newServer(h http.HandlerFunc) (*httptest.Server, *Client) {
	srv := httptest.NewServer(h)
	return srv, NewClient(WithBaseURL(srv.URL))
}

func TestAnalyze(t *testing.T) {
	Convey("Given an analysis backend", t, func() {
		ctx := context.Background()

		Convey("When it returns a full verdict", func() {
			var gotPath, gotURL, gotName string
			var gotImage []byte
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				_ = r.ParseMultipartForm(1 << 20)
				gotURL = r.FormValue("url")
				f, hdr, err := r.FormFile("image")
				if err == nil {
					gotName = hdr.Filename
					gotImage, _ = io.ReadAll(f)
				}
				_, _ = io.WriteString(w, `{
					"classification": "Possibly Fake",
					"deepfake_score": 1.4,
					"heatmap_data": [{"x": 10, "y": 20, "anomaly_score": 0.8}, {"x": 5, "y": 6}],
					"factcheck_data": {"claims": [
						{"claimReviewed": "moon is cheese", "textualRating": "False"},
						{"text": "sky is blue", "claimReview": [{"textualRating": "True"}]}
					]}
				}`)
			})
			defer srv.Close()

			v, err := c.Analyze(ctx, model.Submission{
				ImageData: []byte("img-bytes"),
				ImageName: "photo.png",
				URL:       "https://example.com/a.png",
				Guess:     model.GuessFake,
			})

			Convey("Then the request carries both inputs and the verdict is parsed", func() {
				So(err, ShouldBeNil)
				So(gotPath, ShouldEqual, "/analyze")
				So(gotURL, ShouldEqual, "https://example.com/a.png")
				So(gotName, ShouldEqual, "photo.png")
				So(string(gotImage), ShouldEqual, "img-bytes")

				So(v.Classification, ShouldEqual, model.PossiblyFake)
				So(v.Score, ShouldEqual, 1.0)
				So(v.AnomalyPoints, ShouldResemble, []model.AnomalyPoint{
					{X: 10, Y: 20, Intensity: 0.8},
					{X: 5, Y: 6},
				})
				So(v.FactCheck, ShouldNotBeNil)
				So(v.FactCheck.Claims, ShouldResemble, []model.Claim{
					{Text: "moon is cheese", Rating: "False"},
					{Text: "sky is blue", Rating: "True"},
				})
			})
		})

		Convey("When only a URL is submitted", func() {
			var hadImage atomic.Bool
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				_ = r.ParseMultipartForm(1 << 20)
				_, _, err := r.FormFile("image")
				hadImage.Store(err == nil)
				_, _ = io.WriteString(w, `{"classification": "Likely Real", "deepfake_score": 0.1}`)
			})
			defer srv.Close()

			v, err := c.Analyze(ctx, model.Submission{URL: "https://example.com/x.jpg", Guess: model.GuessReal})
			So(err, ShouldBeNil)
			So(hadImage.Load(), ShouldBeFalse)
			So(v.Classification, ShouldEqual, model.LikelyReal)
			So(v.AnomalyPoints, ShouldBeEmpty)
			So(v.FactCheck, ShouldBeNil)
		})

		Convey("When it fails with an error body", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error": "No file uploaded"}`)
			})
			defer srv.Close()

			_, err := c.Analyze(ctx, model.Submission{Guess: model.GuessFake})
			So(errors.Is(err, ErrAnalysisTransport), ShouldBeTrue)
			var ae *AnalysisError
			So(errors.As(err, &ae), ShouldBeTrue)
			So(ae.Message, ShouldEqual, "No file uploaded")
			So(ae.StatusCode, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When it fails without an error body", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			})
			defer srv.Close()

			_, err := c.Analyze(ctx, model.Submission{Guess: model.GuessFake})
			So(err.Error(), ShouldEqual, DefaultAnalysisMessage)
		})

		Convey("When the classification is unknown", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"classification": "Unsure", "deepfake_score": 0.5}`)
			})
			defer srv.Close()

			_, err := c.Analyze(ctx, model.Submission{Guess: model.GuessFake})
			So(errors.Is(err, ErrAnalysisTransport), ShouldBeTrue)
			So(errors.Is(err, model.ErrUnknownClassification), ShouldBeTrue)
		})

		Convey("When the backend is unreachable", func() {
			srv, c := newServer(func(http.ResponseWriter, *http.Request) {})
			srv.Close()

			_, err := c.Analyze(ctx, model.Submission{Guess: model.GuessFake})
			So(errors.Is(err, ErrAnalysisTransport), ShouldBeTrue)
			So(err.Error(), ShouldEqual, DefaultAnalysisMessage)
		})
	})
}

func TestFactCheck(t *testing.T) {
	Convey("Given a fact-check backend", t, func() {
		ctx := context.Background()
		var calls atomic.Int32

		Convey("An empty claim never reaches the backend", func() {
			srv, c := newServer(func(http.ResponseWriter, *http.Request) { calls.Add(1) })
			defer srv.Close()

			_, err := c.FactCheck(ctx, "   ")
			So(err, ShouldEqual, ErrEmptyClaim)
			So(calls.Load(), ShouldEqual, 0)
		})

		Convey("A found claim is returned", func() {
			var req map[string]string
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewDecoder(r.Body).Decode(&req)
				_, _ = io.WriteString(w, `{"claim": "The earth is flat", "verdict": "False", "source": "Snopes"}`)
			})
			defer srv.Close()

			res, err := c.FactCheck(ctx, "the earth is flat")
			So(err, ShouldBeNil)
			So(req["claim"], ShouldEqual, "the earth is flat")
			So(res, ShouldResemble, model.FactCheckResult{Claim: "The earth is flat", Verdict: "False", Source: "Snopes"})
		})

		Convey("A not-found answer maps to ErrFactCheckNotFound", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"message": "No fact-check available for this claim."}`)
			})
			defer srv.Close()

			_, err := c.FactCheck(ctx, "unknown")
			So(errors.Is(err, ErrFactCheckNotFound), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "No fact-check available for this claim.")
		})

		Convey("A rejected request maps to ErrFactCheckTransport", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"error": "No claim provided"}`)
			})
			defer srv.Close()

			_, err := c.FactCheck(ctx, "x")
			So(errors.Is(err, ErrFactCheckTransport), ShouldBeTrue)
			So(errors.Is(err, ErrFactCheckNotFound), ShouldBeFalse)
			So(err.Error(), ShouldEqual, "No claim provided")
		})
	})
}

func TestLogin(t *testing.T) {
	Convey("Given an auth backend", t, func() {
		ctx := context.Background()

		Convey("Valid credentials succeed", func() {
			var path string
			var req loginRequest
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&req)
				_, _ = io.WriteString(w, `{"success": true, "message": "welcome"}`)
			})
			defer srv.Close()

			msg, err := c.Login(ctx, "a@b.c", "pw")
			So(err, ShouldBeNil)
			So(path, ShouldEqual, "/login")
			So(req, ShouldResemble, loginRequest{Email: "a@b.c", Password: "pw"})
			So(msg, ShouldEqual, "welcome")
		})

		Convey("A rejection carries the backend message", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, `{"success": false, "message": "Invalid password"}`)
			})
			defer srv.Close()

			_, err := c.Login(ctx, "a@b.c", "nope")
			So(errors.Is(err, ErrAuthentication), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "Invalid password")
		})

		Convey("A transport failure uses the generic message", func() {
			srv, c := newServer(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})
			defer srv.Close()

			_, err := c.Login(ctx, "a@b.c", "pw")
			So(errors.Is(err, ErrAuthentication), ShouldBeTrue)
			So(err.Error(), ShouldEqual, DefaultLoginMessage)
		})
	})
}

func TestClientOptions(t *testing.T) {
	Convey("Endpoint options override the base URL", t, func() {
		c := NewClient(WithBaseURL("http://api.local/"), WithFactCheckURL("http://facts.local/check"))
		So(c.analysisURL, ShouldEqual, "http://api.local/analyze")
		So(c.factCheckURL, ShouldEqual, "http://facts.local/check")
		So(c.authURL, ShouldEqual, "http://api.local/login")
	})
}
