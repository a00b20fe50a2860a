package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/engine"
)

// HistoryHandler serves the turn ledger for the caller's team.
// Routes:
// GET /v1/history?session_id={uuid}&scenario_id={uuid}
type HistoryHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewHistoryHandler(engine *engine.Engine, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *HistoryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only GET is supported.")
		return
	}

	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "A valid X-User-ID header is required.")
		return
	}

	sessionID, err := uuid.Parse(r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session_id.")
		return
	}
	scenarioID, err := uuid.Parse(r.URL.Query().Get("scenario_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid scenario_id.")
		return
	}

	resp, err := h.engine.History(r.Context(), sessionID, scenarioID, uid)
	if err != nil {
		engineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
