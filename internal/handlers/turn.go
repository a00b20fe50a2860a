package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/engine"
	"github.com/harkida/Gemini-WebExersice/pkg/turn"
)

// maxAudioBytes caps an uploaded utterance recording.
const maxAudioBytes = 10 << 20

// TurnHandler accepts player turn submissions.
// Routes:
// POST /v1/turns        - typed utterance (JSON body)
// POST /v1/turns/audio  - spoken utterance (multipart form)
type TurnHandler struct {
	engine *engine.Engine
	logger *slog.Logger
}

func NewTurnHandler(engine *engine.Engine, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		engine: engine,
		logger: logger,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	if r.URL.Path == "/v1/turns/audio" {
		h.handleAudio(w, r, uid)
		return
	}
	h.handleText(w, r, uid)
}

func (h *TurnHandler) handleText(w http.ResponseWriter, r *http.Request, uid uuid.UUID) {
	var req turn.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid turn request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body. Expected JSON with session_id, scenario_id and utterance.")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.engine.SubmitText(r.Context(), req.SessionID, req.ScenarioID, uid, req.Utterance)
	if err != nil {
		engineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *TurnHandler) handleAudio(w http.ResponseWriter, r *http.Request, uid uuid.UUID) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		h.logger.Warn("Invalid multipart form", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid multipart form. Expected session_id, scenario_id, mime_type and audio_file.")
		return
	}

	sessionID, err := uuid.Parse(r.FormValue("session_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session_id.")
		return
	}
	scenarioID, err := uuid.Parse(r.FormValue("scenario_id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid scenario_id.")
		return
	}
	mimeType := r.FormValue("mime_type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}

	file, _, err := r.FormFile("audio_file")
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "audio_file is required.")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read audio upload", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Failed to read audio_file.")
		return
	}
	if len(audio) == 0 {
		writeError(w, h.logger, http.StatusBadRequest, "audio_file is empty.")
		return
	}

	resp, err := h.engine.SubmitAudio(r.Context(), sessionID, scenarioID, uid, audio, mimeType)
	if err != nil {
		engineError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, resp)
}
