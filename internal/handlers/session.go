package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/storage"
	"github.com/harkida/Gemini-WebExersice/pkg/session"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// SessionHandler manages the session/team registry.
// Routes:
// POST  /v1/sessions             - Create session (admin)
// PATCH /v1/sessions/{id}        - Advance session status (admin)
// POST  /v1/sessions/{id}/teams  - Create a team in the session (admin)
// GET   /v1/sessions/{id}/info   - Play-state summary for the caller's team
type SessionHandler struct {
	storage  storage.Storage
	logger   *slog.Logger
	adminKey string
}

func NewSessionHandler(storage storage.Storage, adminKey string, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		storage:  storage,
		logger:   logger,
		adminKey: adminKey,
	}
}

// StatusRequest advances the session lifecycle by one step.
type StatusRequest struct {
	Status session.Status `json:"status"`
}

// ScenarioProgress is one scenario's play state for the caller's team.
type ScenarioProgress struct {
	ScenarioID     uuid.UUID `json:"scenario_id"`
	Title          string    `json:"title"`
	NPCName        string    `json:"npc_name"`
	CurrentTurn    int       `json:"current_turn"`
	TurnsRemaining int       `json:"turns_remaining"`
	Closed         bool      `json:"closed"`
}

// InfoResponse is the session summary used by play clients.
type InfoResponse struct {
	SessionID uuid.UUID          `json:"session_id"`
	Name      string             `json:"name"`
	Status    session.Status     `json:"status"`
	TeamID    uuid.UUID          `json:"team_id"`
	TeamCode  string             `json:"team_code"`
	Members   []session.Member   `json:"members"`
	MaxTurns  int                `json:"max_turns"`
	Scenarios []ScenarioProgress `json:"scenarios"`
	Error     string             `json:"error,omitempty"`
}

func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")

	if path == "" {
		if r.Method != http.MethodPost {
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	sessionID, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodPatch:
		h.handleStatus(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "teams" && r.Method == http.MethodPost:
		h.handleCreateTeam(w, r, sessionID)
	case len(parts) == 2 && parts[1] == "info" && r.Method == http.MethodGet:
		h.handleInfo(w, r, sessionID)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
	}
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	var s session.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.Status == "" {
		s.Status = session.StatusWaiting
	}
	s.CreatedAt = time.Now().UTC()
	if err := s.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.SaveSession(r.Context(), &s); err != nil {
		h.logger.Error("Failed to save session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	h.logger.Info("Session created", "session_id", s.ID, "name", s.Name)
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SessionHandler) handleStatus(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}

	s, err := h.storage.GetSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	if !s.Status.CanTransitionTo(req.Status) {
		writeError(w, h.logger, http.StatusConflict,
			"Invalid status transition from "+string(s.Status)+" to "+string(req.Status)+".")
		return
	}
	s.Status = req.Status

	if err := h.storage.SaveSession(r.Context(), s); err != nil {
		h.logger.Error("Failed to save session", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session.")
		return
	}

	h.logger.Info("Session status changed", "session_id", sessionID, "status", s.Status)
	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SessionHandler) handleCreateTeam(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	s, err := h.storage.GetSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	id := uuid.New()
	team := &session.Team{
		ID:        id,
		SessionID: sessionID,
		Code:      session.NewTeamCode(id),
		CreatedAt: time.Now().UTC(),
	}
	if err := h.storage.SaveTeam(r.Context(), team); err != nil {
		h.logger.Error("Failed to save team", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save team.")
		return
	}

	h.logger.Info("Team created", "session_id", sessionID, "team_id", team.ID, "code", team.Code)
	writeJSON(w, h.logger, http.StatusCreated, team)
}

func (h *SessionHandler) handleInfo(w http.ResponseWriter, r *http.Request, sessionID uuid.UUID) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, h.logger, http.StatusUnauthorized, "A valid X-User-ID header is required.")
		return
	}

	s, err := h.storage.GetSession(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session.")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found.")
		return
	}

	team, err := h.storage.GetMembership(r.Context(), sessionID, uid)
	if err != nil {
		h.logger.Error("Failed to look up membership", "session_id", sessionID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to look up membership.")
		return
	}
	if team == nil {
		writeError(w, h.logger, http.StatusForbidden, "You are not a member of this session.")
		return
	}

	info := InfoResponse{
		SessionID: s.ID,
		Name:      s.Name,
		Status:    s.Status,
		TeamID:    team.ID,
		TeamCode:  team.Code,
		Members:   team.Members,
		MaxTurns:  turn.MaxPlayerTurns,
		Scenarios: make([]ScenarioProgress, 0, len(s.ScenarioIDs)),
	}

	for _, scenarioID := range s.ScenarioIDs {
		sc, err := h.storage.GetScenario(r.Context(), scenarioID)
		if err != nil {
			h.logger.Error("Failed to load scenario", "scenario_id", scenarioID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenario.")
			return
		}
		if sc == nil {
			h.logger.Warn("Session references missing scenario", "session_id", sessionID, "scenario_id", scenarioID)
			continue
		}

		turns, err := h.storage.ListTurns(r.Context(), team.ID, scenarioID)
		if err != nil {
			h.logger.Error("Failed to load turn ledger", "scenario_id", scenarioID, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to load turn ledger.")
			return
		}

		current := turn.CountPlayerTurns(turns)
		info.Scenarios = append(info.Scenarios, ScenarioProgress{
			ScenarioID:     scenarioID,
			Title:          sc.Title,
			NPCName:        sc.NPC.Name,
			CurrentTurn:    current,
			TurnsRemaining: turn.MaxPlayerTurns - current,
			Closed:         turn.HasExit(turns) || current >= turn.MaxPlayerTurns,
		})
	}

	writeJSON(w, h.logger, http.StatusOK, info)
}
