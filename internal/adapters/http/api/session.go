package api

import (
	"net/http"

	"github.com/okian/fakemeh/internal/domain/heatmap"
	"github.com/okian/fakemeh/internal/domain/model"
)

// SessionHandler serves read-only views of the session.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(session Session) *SessionHandler {
	return &SessionHandler{session: session}
}

type progressResponse struct {
	model.Progression
	NextBadge string `json:"next_badge"`
}

type leaderboardRow struct {
	Rank int `json:"rank"`
	model.LeaderboardEntry
	DisplayName string `json:"display_name"`
}

// HandleSession handles GET /session.
func (h *SessionHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

// HandleProgress handles GET /progress.
func (h *SessionHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	snap := h.session.Snapshot()
	writeJSON(w, http.StatusOK, progressResponse{
		Progression: snap.Progression,
		NextBadge:   snap.NextBadge,
	})
}

// HandleLeaderboard handles GET /leaderboard. Entries are already ordered.
func (h *SessionHandler) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries := h.session.Snapshot().Progression.Leaderboard
	rows := make([]leaderboardRow, 0, len(entries))
	for i, e := range entries {
		rows = append(rows, leaderboardRow{Rank: i + 1, LeaderboardEntry: e, DisplayName: e.DisplayName()})
	}
	writeJSON(w, http.StatusOK, rows)
}

// HandleOverlay handles GET /overlay.png: the last result's display frame.
func (h *SessionHandler) HandleOverlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	res := h.session.Snapshot().LastResult
	if res == nil || res.Display == nil {
		writeClassified(w, ErrNoOverlay, "")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := heatmap.EncodePNG(w, res.Display); err != nil {
		writeClassified(w, err, "")
	}
}
