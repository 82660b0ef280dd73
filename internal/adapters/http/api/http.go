// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/okian/fakemeh/internal/adapters/backend"
	service "github.com/okian/fakemeh/internal/app"
	"github.com/okian/fakemeh/internal/domain/model"
	"github.com/okian/fakemeh/pkg/logger"
)

// Session is the detection session the handlers drive.
type Session interface {
	Submit(ctx context.Context, sub model.Submission) (*service.Ticket, error)
	Check(ctx context.Context) (*service.Ticket, error)
	SelectImage(ctx context.Context, name string, data []byte) error
	SetURL(ctx context.Context, url string) error
	SetGuess(ctx context.Context, g model.Guess) error
	SetNickname(ctx context.Context, nickname string) error
	Snapshot() service.Snapshot
}

// FactChecker looks up a single claim.
type FactChecker interface {
	FactCheck(ctx context.Context, claim string) (model.FactCheckResult, error)
}

// Authenticator checks credentials against the auth backend.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	analyzeHandler   *AnalyzeHandler
	sessionHandler   *SessionHandler
	factCheckHandler *FactCheckHandler
	authHandler      *AuthHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(session Session, checker FactChecker, auth Authenticator, opts ...Option) *Server {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:    NewHealthHandler(),
		analyzeHandler:   NewAnalyzeHandler(session, cfg),
		sessionHandler:   NewSessionHandler(session),
		factCheckHandler: NewFactCheckHandler(checker, cfg.logger),
		authHandler:      NewAuthHandler(auth, cfg.logger),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("/draft", MetricsMiddleware(s.analyzeHandler.HandleDraft, "draft"))
	mux.HandleFunc("/check", MetricsMiddleware(s.analyzeHandler.HandleCheck, "check"))
	mux.HandleFunc("/session", MetricsMiddleware(s.sessionHandler.HandleSession, "session"))
	mux.HandleFunc("/progress", MetricsMiddleware(s.sessionHandler.HandleProgress, "progress"))
	mux.HandleFunc("/leaderboard", MetricsMiddleware(s.sessionHandler.HandleLeaderboard, "leaderboard"))
	mux.HandleFunc("/overlay.png", MetricsMiddleware(s.sessionHandler.HandleOverlay, "overlay"))
	mux.HandleFunc("/fact-check", MetricsMiddleware(s.factCheckHandler.HandleFactCheck, "fact_check"))
	mux.HandleFunc("/login", MetricsMiddleware(s.authHandler.HandleLogin, "login"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// classify maps session and backend errors onto a status and error code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrUnknownGuess),
		errors.Is(err, service.ErrMissingGuess), errors.Is(err, backend.ErrEmptyClaim):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNoOverlay), errors.Is(err, backend.ErrFactCheckNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrSubmissionInFlight):
		return http.StatusConflict, "in_flight"
	case errors.Is(err, service.ErrBusy):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, backend.ErrAuthentication):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, backend.ErrAnalysisTransport), errors.Is(err, backend.ErrFactCheckTransport):
		return http.StatusBadGateway, "upstream_error"
	case errors.Is(err, service.ErrStopped):
		return http.StatusServiceUnavailable, "stopped"
	case errors.Is(err, ErrTimeout):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// writeClassified writes err with the status classify picks. message, when
// set, replaces the error text.
func writeClassified(w http.ResponseWriter, err error, message string) {
	status, code := classify(err)
	if message == "" {
		message = userMessage(err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// userMessage prefers the user-facing text carried by backend errors.
func userMessage(err error) string {
	var (
		analysisErr  *backend.AnalysisError
		factCheckErr *backend.FactCheckError
		authErr      *backend.AuthError
	)
	switch {
	case errors.As(err, &analysisErr):
		return analysisErr.Message
	case errors.As(err, &factCheckErr):
		return factCheckErr.Message
	case errors.As(err, &authErr):
		return authErr.Message
	default:
		return err.Error()
	}
}

func logFailure(ctx context.Context, l logger.Logger, op string, err error) {
	if status, _ := classify(err); status >= http.StatusInternalServerError {
		l.Error(ctx, "request failed", logger.String("op", op), logger.Error(err))
	}
}
