package api

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/internal/adapters/backend"
	service "github.com/okian/fakemeh/internal/app"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

// Form fields accepted by the upload endpoints.
const (
	fieldImage    = "image"
	fieldURL      = "url"
	fieldGuess    = "guess"
	fieldNickname = "nickname"
)

// AnalyzeHandler handles submissions and draft edits.
type AnalyzeHandler struct {
	session        Session
	maxUploadBytes int64
	waitTimeout    time.Duration
	logger         logger.Logger
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(session Session, cfg config) *AnalyzeHandler {
	return &AnalyzeHandler{
		session:        session,
		maxUploadBytes: cfg.maxUploadBytes,
		waitTimeout:    cfg.waitTimeout,
		logger:         cfg.logger,
	}
}

// HandleAnalyze handles POST /analyze. The form carries an optional image
// file, an optional url, the guess and an optional nickname. The response is
// the completed Result.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	const op = "api.analyze"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	form, err := h.readForm(w, r)
	if err != nil {
		writeClassified(w, err, "")
		return
	}
	sub, err := form.submission()
	if err != nil {
		writeClassified(w, err, "")
		return
	}
	ticket, err := h.session.Submit(r.Context(), sub)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeClassified(w, err, "")
		return
	}
	h.respond(w, r, op, ticket)
}

// HandleCheck handles POST /check: it submits the current draft.
func (h *AnalyzeHandler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.check"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	ticket, err := h.session.Check(r.Context())
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeClassified(w, err, "")
		return
	}
	h.respond(w, r, op, ticket)
}

// HandleDraft handles POST /draft. Only the fields present in the form are
// applied; a new image or url clears the guess.
func (h *AnalyzeHandler) HandleDraft(w http.ResponseWriter, r *http.Request) {
	const op = "api.draft"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	form, err := h.readForm(w, r)
	if err != nil {
		writeClassified(w, err, "")
		return
	}
	if err := form.applyTo(r.Context(), h.session); err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeClassified(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// respond waits for ticket and writes the result. An analysis failure is
// reported with the result's user-facing message.
func (h *AnalyzeHandler) respond(w http.ResponseWriter, r *http.Request, op string, ticket *service.Ticket) {
	ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
	defer cancel()

	res, err := ticket.Wait(ctx)
	switch {
	case res == nil && errors.Is(err, context.DeadlineExceeded):
		writeClassified(w, eris.Wrapf(ErrTimeout, "submission %s", ticket.ID), "")
	case res == nil:
		// Client went away; the submission keeps running.
		h.logger.Debug(r.Context(), "client left before verdict",
			logger.String("submissionID", ticket.ID), logger.Error(err))
	case res.Failed():
		failure := res.Err
		if status, _ := classify(failure); status == http.StatusInternalServerError {
			failure = errors.Join(backend.ErrAnalysisTransport, failure)
		}
		logFailure(r.Context(), h.logger, op, failure)
		writeClassified(w, failure, res.ErrorMessage)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

func (h *AnalyzeHandler) readForm(w http.ResponseWriter, r *http.Request) (*submissionForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
			return nil, eris.Wrapf(ErrBadRequest, "parse form: %v", err)
		}
	} else if err := r.ParseForm(); err != nil {
		return nil, eris.Wrapf(ErrBadRequest, "parse form: %v", err)
	}

	form := &submissionForm{}
	for _, f := range []struct {
		name string
		dst  **string
	}{
		{fieldURL, &form.url},
		{fieldGuess, &form.guess},
		{fieldNickname, &form.nickname},
	} {
		if vs, ok := r.PostForm[f.name]; ok && len(vs) > 0 {
			v := strings.TrimSpace(vs[0])
			*f.dst = &v
		}
	}

	if r.MultipartForm != nil {
		if files := r.MultipartForm.File[fieldImage]; len(files) > 0 {
			fh := files[0]
			file, err := fh.Open()
			if err != nil {
				return nil, eris.Wrapf(ErrBadRequest, "open image: %v", err)
			}
			defer func() { _ = file.Close() }()
			data, err := io.ReadAll(file)
			if err != nil {
				return nil, eris.Wrapf(ErrBadRequest, "read image: %v", err)
			}
			form.hasImage = true
			form.imageName = fh.Filename
			form.imageData = data
		}
	}
	return form, nil
}

// submissionForm holds the fields a request actually carried.
type submissionForm struct {
	hasImage  bool
	imageName string
	imageData []byte

	url      *string
	guess    *string
	nickname *string
}

func (f *submissionForm) parsedGuess() (model.Guess, error) {
	if f.guess == nil {
		return model.GuessUnset, nil
	}
	g, err := model.ParseGuess(*f.guess)
	if err != nil {
		return model.GuessUnset, eris.Wrapf(err, "guess %q", *f.guess)
	}
	return g, nil
}

func (f *submissionForm) submission() (model.Submission, error) {
	g, err := f.parsedGuess()
	if err != nil {
		return model.Submission{}, err
	}
	sub := model.Submission{Guess: g, ImageName: f.imageName, ImageData: f.imageData}
	if f.url != nil {
		sub.URL = *f.url
	}
	if f.nickname != nil {
		sub.Nickname = *f.nickname
	}
	return sub, nil
}

func (f *submissionForm) applyTo(ctx context.Context, s Session) error {
	g, err := f.parsedGuess()
	if err != nil {
		return err
	}
	if f.hasImage {
		if err := s.SelectImage(ctx, f.imageName, f.imageData); err != nil {
			return err
		}
	}
	if f.url != nil {
		if err := s.SetURL(ctx, *f.url); err != nil {
			return err
		}
	}
	if f.guess != nil {
		if err := s.SetGuess(ctx, g); err != nil {
			return err
		}
	}
	if f.nickname != nil {
		if err := s.SetNickname(ctx, *f.nickname); err != nil {
			return err
		}
	}
	return nil
}
