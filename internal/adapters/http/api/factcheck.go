package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/pkg/logger"
)

const maxJSONBody = 64 << 10

// FactCheckHandler handles standalone claim lookups.
type FactCheckHandler struct {
	checker FactChecker
	logger  logger.Logger
}

// NewFactCheckHandler creates a new fact-check handler.
func NewFactCheckHandler(checker FactChecker, l logger.Logger) *FactCheckHandler {
	return &FactCheckHandler{checker: checker, logger: l}
}

type factCheckRequest struct {
	Claim string `json:"claim"`
}

// HandleFactCheck handles POST /fact-check.
func (h *FactCheckHandler) HandleFactCheck(w http.ResponseWriter, r *http.Request) {
	const op = "api.fact_check"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req factCheckRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeClassified(w, eris.Wrapf(ErrBadRequest, "decode: %v", err), "")
		return
	}
	res, err := h.checker.FactCheck(r.Context(), req.Claim)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeClassified(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
