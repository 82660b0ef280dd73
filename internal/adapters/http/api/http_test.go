package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/fakemeh/internal/adapters/backend"
	"github.com/okian/fakemeh/internal/adapters/http/api"
	"github.com/okian/fakemeh/internal/adapters/repository"
	service "github.com/okian/fakemeh/internal/app"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/internal/domain/progression"
	"github.com/okian/fakemeh/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeAnalyzer struct {
	mu      sync.Mutex
	gate    chan struct{}
	verdict model.Verdict
	err     error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ model.Submission) (model.Verdict, error) {
	f.mu.Lock()
	gate, v, err := f.gate, f.verdict, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return v, err
}

// backendStub answers /fact-check and /login like the detection backend.
func backendStub() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/fact-check", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Claim string `json:"claim"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		switch req.Claim {
		case "the moon is cheese":
			_, _ = w.Write([]byte(`{"claim":"the moon is cheese","verdict":"False","source":"NASA"}`))
		case "boom":
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"upstream exploded"}`))
		default:
			_, _ = w.Write([]byte(`{"message":"No fact-check available for this claim."}`))
		}
	})
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req.Password == "hunter2" {
			_, _ = w.Write([]byte(`{"success":true,"message":"Welcome back"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"message":"Invalid credentials"}`))
	})
	return httptest.NewServer(mux)
}

type fixture struct {
	analyzer *fakeAnalyzer
	session  *service.Session
	stub     *httptest.Server
	mux      *http.ServeMux
}

func newFixture(opts ...api.Option) *fixture {
	ctx := context.Background()
	tracker, err := progression.Load(ctx, repository.NewProgressStore(repository.NewMemoryKV(), nil))
	So(err, ShouldBeNil)

	a := &fakeAnalyzer{verdict: model.Verdict{
		Classification: model.HighlyLikelyFake,
		Score:          0.5,
		AnomalyPoints:  []model.AnomalyPoint{{X: 10, Y: 10, Intensity: 1}},
	}}
	s := service.New(a, tracker)
	s.Start(ctx)

	stub := backendStub()
	client := backend.NewClient(backend.WithBaseURL(stub.URL), backend.WithTimeout(2*time.Second))

	mux := http.NewServeMux()
	api.NewServer(s, client, client, opts...).Register(ctx, mux)
	return &fixture{analyzer: a, session: s, stub: stub, mux: mux}
}

func (f *fixture) close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = f.session.Stop(ctx)
	f.stub.Close()
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.mux.ServeHTTP(w, req)
	return w
}

func multipartRequest(path string, fields map[string]string, upload []byte) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if upload != nil {
		part, _ := mw.CreateFormFile("image", "photo.png")
		_, _ = part.Write(upload)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func formRequest(path string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func jsonRequest(path, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func pngBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	So(json.Unmarshal(w.Body.Bytes(), &out), ShouldBeNil)
	return out
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		f := newFixture()
		defer f.close()

		Convey("Then the health endpoint exposes metrics", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the session endpoint reports an idle session", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/session", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["phase"], ShouldEqual, "idle")
		})

		Convey("Then the progress endpoint reports zero progression", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/progress", nil))
			So(w.Code, ShouldEqual, http.StatusOK)
			body := decode(w)
			So(body["points"], ShouldEqual, 0)
			So(body["next_badge"], ShouldEqual, "Progress to Novice Detector: 0/5")
		})

		Convey("Then the overlay is not found before any analysis", func() {
			w := f.do(httptest.NewRequest(http.MethodGet, "/overlay.png", nil))
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then wrong methods are not found", func() {
			So(f.do(httptest.NewRequest(http.MethodGet, "/analyze", nil)).Code, ShouldEqual, http.StatusNotFound)
			So(f.do(httptest.NewRequest(http.MethodPost, "/session", nil)).Code, ShouldEqual, http.StatusNotFound)
			So(f.do(httptest.NewRequest(http.MethodGet, "/login", nil)).Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAnalyzeHandler(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.close()

		Convey("When analyzing an upload with a correct guess and a nickname", func() {
			w := f.do(multipartRequest("/analyze", map[string]string{"guess": "Fake", "nickname": "ada"}, pngBytes(40, 40)))

			Convey("Then the result carries points and a leaderboard entry", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["correct"], ShouldBeTrue)
				So(body["points"], ShouldEqual, 100)
				So(body["classification"], ShouldEqual, "Highly Likely Fake")

				lb := f.do(httptest.NewRequest(http.MethodGet, "/leaderboard", nil))
				var rows []map[string]any
				So(json.Unmarshal(lb.Body.Bytes(), &rows), ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0]["display_name"], ShouldEqual, "ada")
				So(rows[0]["rank"], ShouldEqual, 1)
			})

			Convey("Then the overlay image is served as PNG", func() {
				ov := f.do(httptest.NewRequest(http.MethodGet, "/overlay.png", nil))
				So(ov.Code, ShouldEqual, http.StatusOK)
				So(ov.Header().Get("Content-Type"), ShouldEqual, "image/png")
				img, err := png.Decode(ov.Body)
				So(err, ShouldBeNil)
				So(img.Bounds().Dx(), ShouldEqual, 40)
			})
		})

		Convey("When analyzing a URL without a guess", func() {
			w := f.do(formRequest("/analyze", url.Values{"url": {"https://example.com/a.jpg"}}))

			Convey("Then it is rejected as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode(w)["message"], ShouldEqual, service.ErrMissingGuess.Error())
			})
		})

		Convey("When the guess is not Fake or Real", func() {
			w := f.do(formRequest("/analyze", url.Values{"guess": {"maybe"}}))

			Convey("Then it is rejected as a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the backend fails", func() {
			f.analyzer.mu.Lock()
			f.analyzer.err = &backend.AnalysisError{Message: "Image too large", StatusCode: http.StatusRequestEntityTooLarge}
			f.analyzer.mu.Unlock()

			w := f.do(formRequest("/analyze", url.Values{"guess": {"Real"}}))

			Convey("Then the backend's message is relayed as a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decode(w)["message"], ShouldEqual, "Image too large")

				prog := f.do(httptest.NewRequest(http.MethodGet, "/progress", nil))
				So(decode(prog)["checks_completed"], ShouldEqual, 0)
			})
		})

		Convey("When a submission is already in flight", func() {
			gate := make(chan struct{})
			f.analyzer.mu.Lock()
			f.analyzer.gate = gate
			f.analyzer.mu.Unlock()

			ticket, err := f.session.Submit(context.Background(), model.Submission{Guess: model.GuessFake})
			So(err, ShouldBeNil)

			w := f.do(formRequest("/analyze", url.Values{"guess": {"Fake"}}))
			close(gate)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_, _ = ticket.Wait(ctx)

			Convey("Then the second one conflicts", func() {
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["code"], ShouldEqual, "in_flight")
			})
		})
	})
}

func TestAnalyzeHandler_WaitTimeout(t *testing.T) {
	Convey("Given an API that waits only briefly for verdicts", t, func() {
		f := newFixture(api.WithWaitTimeout(20 * time.Millisecond))
		gate := make(chan struct{})
		f.analyzer.mu.Lock()
		f.analyzer.gate = gate
		f.analyzer.mu.Unlock()
		defer f.close()
		defer close(gate)

		Convey("When the verdict is slower than the wait", func() {
			w := f.do(formRequest("/analyze", url.Values{"guess": {"Fake"}}))

			Convey("Then the request times out but the session keeps the submission", func() {
				So(w.Code, ShouldEqual, http.StatusGatewayTimeout)
				So(f.session.Snapshot().Phase.InFlight(), ShouldBeTrue)
			})
		})
	})
}

func TestDraftAndCheck(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.close()

		Convey("When a draft is composed and checked", func() {
			w := f.do(multipartRequest("/draft", map[string]string{"guess": "Fake", "nickname": "bo"}, pngBytes(8, 8)))
			So(w.Code, ShouldEqual, http.StatusOK)
			draft := decode(w)["draft"].(map[string]any)
			So(draft["has_image"], ShouldBeTrue)
			So(draft["guess"], ShouldEqual, "Fake")

			res := f.do(httptest.NewRequest(http.MethodPost, "/check", nil))

			Convey("Then the draft is submitted", func() {
				So(res.Code, ShouldEqual, http.StatusOK)
				So(decode(res)["correct"], ShouldBeTrue)
			})
		})

		Convey("When only a new URL is posted after a guess", func() {
			f.do(formRequest("/draft", url.Values{"guess": {"Real"}}))
			w := f.do(formRequest("/draft", url.Values{"url": {"https://example.com/b.png"}}))

			Convey("Then the guess is cleared and checking fails locally", func() {
				draft := decode(w)["draft"].(map[string]any)
				So(draft["url"], ShouldEqual, "https://example.com/b.png")
				So(draft["guess"], ShouldBeNil)

				res := f.do(httptest.NewRequest(http.MethodPost, "/check", nil))
				So(res.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestFactCheckHandler(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.close()

		Convey("When the claim has a fact-check", func() {
			w := f.do(jsonRequest("/fact-check", `{"claim":"the moon is cheese"}`))

			Convey("Then the verdict is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["verdict"], ShouldEqual, "False")
				So(body["source"], ShouldEqual, "NASA")
			})
		})

		Convey("When the claim is empty", func() {
			w := f.do(jsonRequest("/fact-check", `{"claim":"  "}`))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When no fact-check exists", func() {
			w := f.do(jsonRequest("/fact-check", `{"claim":"unknown"}`))

			Convey("Then it is not found with the backend message", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(decode(w)["message"], ShouldEqual, "No fact-check available for this claim.")
			})
		})

		Convey("When the backend errors", func() {
			w := f.do(jsonRequest("/fact-check", `{"claim":"boom"}`))

			Convey("Then it is a bad gateway", func() {
				So(w.Code, ShouldEqual, http.StatusBadGateway)
				So(decode(w)["message"], ShouldEqual, "upstream exploded")
			})
		})

		Convey("When the body is not JSON", func() {
			w := f.do(jsonRequest("/fact-check", `{`))

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})
	})
}

func TestAuthHandler(t *testing.T) {
	Convey("Given a running API", t, func() {
		f := newFixture()
		defer f.close()

		Convey("When logging in with good credentials", func() {
			w := f.do(jsonRequest("/login", `{"email":"a@b.c","password":"hunter2"}`))

			Convey("Then it succeeds", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				body := decode(w)
				So(body["success"], ShouldBeTrue)
				So(body["message"], ShouldEqual, "Welcome back")
			})
		})

		Convey("When logging in with bad credentials", func() {
			w := f.do(jsonRequest("/login", `{"email":"a@b.c","password":"nope"}`))

			Convey("Then it is unauthorized with the backend message", func() {
				So(w.Code, ShouldEqual, http.StatusUnauthorized)
				So(decode(w)["message"], ShouldEqual, "Invalid credentials")
			})
		})
	})
}
