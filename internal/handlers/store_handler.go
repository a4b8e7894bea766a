package handlers

import (
	"log"
	"net/http"

	"hybrid-rag/internal/services"
)

// StoreHandler exposes vector-store setup and readiness
type StoreHandler struct {
	store  *services.StoreManager
	logger *log.Logger
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(store *services.StoreManager, logger *log.Logger) *StoreHandler {
	return &StoreHandler{
		store:  store,
		logger: logger,
	}
}

// Setup starts vector-store initialization
// @Summary Set up the document store
// @Description Begin vector database initialization. Returns immediately; poll the status endpoint or wait for readiness.
// @Tags store
// @Produce json
// @Success 202 {object} models.DocumentStoreState
// @Router /api/v1/setup [post]
func (h *StoreHandler) Setup(w http.ResponseWriter, r *http.Request) {
	h.store.Setup(r.Context())

	sendJSON(h.logger, w, http.StatusAccepted, h.store.State(r.Context()))
}

// Status reports document-store readiness and document count
// @Summary Document store status
// @Description Return the vector database readiness state and the number of ingested documents
// @Tags store
// @Produce json
// @Success 200 {object} models.DocumentStoreState
// @Router /api/v1/store/status [get]
func (h *StoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	sendJSON(h.logger, w, http.StatusOK, h.store.State(r.Context()))
}
