package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/services"
)

// ConfigHandler handles inference-backend configuration requests
type ConfigHandler struct {
	inference *services.InferenceService
	logger    *log.Logger
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(inference *services.InferenceService, logger *log.Logger) *ConfigHandler {
	return &ConfigHandler{
		inference: inference,
		logger:    logger,
	}
}

// SelectMode applies a new inference configuration
// @Summary Select inference mode
// @Description Validate and apply an inference backend configuration (cloud, local system, or microservice)
// @Tags config
// @Accept json
// @Produce json
// @Param config body models.InferenceConfig true "Inference configuration"
// @Success 200 {object} models.InferenceConfig
// @Failure 400 {object} ErrorResponse
// @Router /api/v1/config/mode [post]
func (h *ConfigHandler) SelectMode(w http.ResponseWriter, r *http.Request) {
	var config models.InferenceConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.inference.SelectMode(r.Context(), config); err != nil {
		h.logger.Printf("Mode selection rejected: %v", err)
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	applied, err := h.inference.CurrentConfig()
	if err != nil {
		sendError(h.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, applied)
}

// GetMode returns the active inference configuration
// @Summary Get inference mode
// @Description Return the currently selected inference backend configuration
// @Tags config
// @Produce json
// @Success 200 {object} models.InferenceConfig
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/config/mode [get]
func (h *ConfigHandler) GetMode(w http.ResponseWriter, r *http.Request) {
	config, err := h.inference.CurrentConfig()
	if err != nil {
		sendError(h.logger, w, http.StatusNotFound, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, config)
}
