package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/storage"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
)

// JoinRequest joins the caller to a team by its short code.
type JoinRequest struct {
	SessionID uuid.UUID `json:"session_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name,omitempty"`
}

// TeamHandler lets participants join a team.
// Routes:
// POST /v1/teams/join
type TeamHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewTeamHandler(storage storage.Storage, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{
		storage: storage,
		logger:  logger,
	}
}

func (h *TeamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Only POST is supported.")
		return
	}

	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "A valid X-User-ID header is required.")
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with session_id and code.")
		return
	}
	if req.SessionID == uuid.Nil || req.Code == "" {
		writeError(w, h.logger, http.StatusBadRequest, "session_id and code are required.")
		return
	}

	s, err := h.storage.GetSession(r.Context(), req.SessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", req.SessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}
	if s.Status == session.StatusCompleted {
		writeError(w, h.logger, http.StatusConflict, "Session is already completed.")
		return
	}

	team, err := h.storage.GetTeamByCode(r.Context(), req.SessionID, req.Code)
	if err != nil {
		h.logger.Error("Failed to resolve team code", "session_id", req.SessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to resolve team code.")
		return
	}
	if team == nil {
		writeError(w, h.logger, http.StatusNotFound, "No team with that code.")
		return
	}

	if err := h.storage.AddTeamMember(r.Context(), team.ID, session.Member{UserID: uid, Name: req.Name}); err != nil {
		h.logger.Warn("Join rejected", "team_id", team.ID, "user_id", uid, "error", err)
		writeError(w, h.logger, http.StatusConflict, err.Error())
		return
	}

	joined, err := h.storage.GetTeam(r.Context(), team.ID)
	if err != nil || joined == nil {
		h.logger.Error("Failed to reload team after join", "team_id", team.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load team.")
		return
	}

	h.logger.Info("Member joined team", "session_id", req.SessionID, "team_id", team.ID, "user_id", uid)
	writeJSON(w, h.logger, http.StatusOK, joined)
}
