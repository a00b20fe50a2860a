package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harkida/Gemini-WebExersice/internal/storage"
	"github.com/harkida/Gemini-WebExersice/pkg/scenario"
)

// ScenarioHandler manages scenarios and their canned-response catalog.
// Reads are open to play clients; writes require admin authorization.
// Routes:
// GET    /v1/scenarios                          - List scenarios
// POST   /v1/scenarios                          - Create scenario (admin)
// GET    /v1/scenarios/{id}                     - Read scenario
// PUT    /v1/scenarios/{id}                     - Update scenario (admin)
// DELETE /v1/scenarios/{id}                     - Delete scenario (admin)
// GET    /v1/scenarios/{id}/canned/{category}   - List canned variants
// POST   /v1/scenarios/{id}/canned/{category}   - Add canned variant (admin)
// DELETE /v1/scenarios/{id}/canned/{category}   - Delete canned variants (admin)
// The id segment "shared" addresses the scenario-independent catalog.
type ScenarioHandler struct {
	storage  storage.Storage
	logger   *slog.Logger
	adminKey string
}

func NewScenarioHandler(storage storage.Storage, adminKey string, logger *slog.Logger) *ScenarioHandler {
	return &ScenarioHandler{
		storage:  storage,
		logger:   logger,
		adminKey: adminKey,
	}
}

func (h *ScenarioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/scenarios"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleCreate(w, r)
		default:
			writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
		}
		return
	}

	parts := strings.Split(path, "/")

	var scenarioID uuid.UUID
	if parts[0] == "shared" {
		scenarioID = storage.SharedCatalog
	} else {
		var err error
		scenarioID, err = uuid.Parse(parts[0])
		if err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid scenario ID format.")
			return
		}
	}

	if len(parts) == 3 && parts[1] == "canned" {
		h.serveCanned(w, r, scenarioID, parts[2])
		return
	}

	if len(parts) != 1 || scenarioID == storage.SharedCatalog {
		writeError(w, h.logger, http.StatusNotFound, "Not found.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, scenarioID)
	case http.MethodPut:
		h.handleUpdate(w, r, scenarioID)
	case http.MethodDelete:
		h.handleDelete(w, r, scenarioID)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}

func (h *ScenarioHandler) handleList(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.storage.ListScenarios(r.Context())
	if err != nil {
		h.logger.Error("Failed to list scenarios", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to list scenarios.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, scenarios)
}

func (h *ScenarioHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sc, err := h.storage.GetScenario(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load scenario", "scenario_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenario.")
		return
	}
	if sc == nil {
		writeError(w, h.logger, http.StatusNotFound, "Scenario not found.")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, sc)
}

func (h *ScenarioHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if sc.ID == uuid.Nil {
		sc.ID = uuid.New()
	}
	sc.CreatedAt = time.Now().UTC()
	if err := sc.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.SaveScenario(r.Context(), &sc); err != nil {
		h.logger.Error("Failed to save scenario", "scenario_id", sc.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save scenario.")
		return
	}

	h.logger.Info("Scenario created", "scenario_id", sc.ID, "title", sc.Title)
	writeJSON(w, h.logger, http.StatusCreated, sc)
}

func (h *ScenarioHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	existing, err := h.storage.GetScenario(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load scenario", "scenario_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load scenario.")
		return
	}
	if existing == nil {
		writeError(w, h.logger, http.StatusNotFound, "Scenario not found.")
		return
	}

	var sc scenario.Scenario
	if err := json.NewDecoder(r.Body).Decode(&sc); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
		return
	}
	sc.ID = id
	sc.CreatedAt = existing.CreatedAt
	if err := sc.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.storage.SaveScenario(r.Context(), &sc); err != nil {
		h.logger.Error("Failed to save scenario", "scenario_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save scenario.")
		return
	}

	h.logger.Info("Scenario updated", "scenario_id", id)
	writeJSON(w, h.logger, http.StatusOK, sc)
}

func (h *ScenarioHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if !isAdmin(r, h.adminKey) {
		writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
		return
	}

	if err := h.storage.DeleteScenario(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete scenario", "scenario_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete scenario.")
		return
	}

	h.logger.Info("Scenario deleted", "scenario_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ScenarioHandler) serveCanned(w http.ResponseWriter, r *http.Request, scenarioID uuid.UUID, category string) {
	if category == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Canned category is required.")
		return
	}

	switch r.Method {
	case http.MethodGet:
		variants, err := h.storage.ListCannedVariants(r.Context(), scenarioID, category)
		if err != nil {
			h.logger.Error("Failed to list canned variants", "scenario_id", scenarioID, "category", category, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to list canned variants.")
			return
		}
		writeJSON(w, h.logger, http.StatusOK, variants)

	case http.MethodPost:
		if !isAdmin(r, h.adminKey) {
			writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
			return
		}
		var v scenario.CannedVariant
		if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
			writeError(w, h.logger, http.StatusBadRequest, "Invalid request body.")
			return
		}
		if v.Transcript == "" {
			writeError(w, h.logger, http.StatusBadRequest, "transcript is required.")
			return
		}
		if err := h.storage.AddCannedVariant(r.Context(), scenarioID, category, v); err != nil {
			h.logger.Error("Failed to add canned variant", "scenario_id", scenarioID, "category", category, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to add canned variant.")
			return
		}
		h.logger.Info("Canned variant added", "scenario_id", scenarioID, "category", category)
		writeJSON(w, h.logger, http.StatusCreated, v)

	case http.MethodDelete:
		if !isAdmin(r, h.adminKey) {
			writeError(w, h.logger, http.StatusUnauthorized, "Admin authorization required.")
			return
		}
		if err := h.storage.DeleteCannedVariants(r.Context(), scenarioID, category); err != nil {
			h.logger.Error("Failed to delete canned variants", "scenario_id", scenarioID, "category", category, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete canned variants.")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed.")
	}
}
