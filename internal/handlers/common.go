package handlers

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/engine"
)

// ErrorResponse is the JSON body for all error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, msg string) {
	writeJSON(w, logger, status, ErrorResponse{Error: msg})
}

// userID extracts the caller's identity from the X-User-ID header.
func userID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.Header.Get("X-User-ID"))
}

// engineError maps the orchestrator's error taxonomy to an HTTP reply.
func engineError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, engine.ErrUnauthorized):
		writeError(w, logger, http.StatusForbidden, "You are not a member of this session.")
	case errors.Is(err, engine.ErrSessionNotActive):
		writeError(w, logger, http.StatusConflict, "Session is not active.")
	case errors.Is(err, engine.ErrTurnLimitReached):
		writeError(w, logger, http.StatusConflict, "The conversation has reached its turn limit.")
	case errors.Is(err, engine.ErrConversationClosed):
		writeError(w, logger, http.StatusConflict, "The conversation has ended.")
	case errors.Is(err, engine.ErrScenarioNotFound):
		writeError(w, logger, http.StatusNotFound, "Scenario not found.")
	case errors.Is(err, engine.ErrClassificationFailed), errors.Is(err, engine.ErrRenderFailed):
		logger.Error("Upstream AI failure", "error", err)
		writeError(w, logger, http.StatusBadGateway, "Failed to generate a response. Please try again.")
	default:
		logger.Error("Internal error", "error", err)
		writeError(w, logger, http.StatusInternalServerError, "Internal server error.")
	}
}

// isAdmin checks the Authorization bearer token against the configured
// admin key. An empty configured key disables the admin surface.
func isAdmin(r *http.Request, adminKey string) bool {
	if adminKey == "" {
		return false
	}
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(token), []byte(adminKey)) == 1
}
