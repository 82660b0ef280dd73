package api

import (
	"encoding/json"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/okian/fakemeh/pkg/logger"
)

// AuthHandler forwards credentials to the auth backend.
type AuthHandler struct {
	auth   Authenticator
	logger logger.Logger
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(auth Authenticator, l logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: l}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// HandleLogin handles POST /login. Nothing about the login is kept by the
// session.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "api.login"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		writeClassified(w, eris.Wrapf(ErrBadRequest, "decode: %v", err), "")
		return
	}
	msg, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		logFailure(r.Context(), h.logger, op, err)
		writeClassified(w, err, "")
		return
	}
	h.logger.Info(r.Context(), "login succeeded")
	writeJSON(w, http.StatusOK, loginResponse{Success: true, Message: msg})
}
