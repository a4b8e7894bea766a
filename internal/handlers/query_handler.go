package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/services"
)

// QueryHandler handles chat queries against the selected inference backend
type QueryHandler struct {
	queries *services.QueryService
	logger  *log.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queries *services.QueryService, logger *log.Logger) *QueryHandler {
	return &QueryHandler{
		queries: queries,
		logger:  logger,
	}
}

// SubmitQuery runs one chat turn
// @Summary Submit a query
// @Description Run a chat turn for the session. When retrieval is enabled the response includes the retrieved context and per-query metrics.
// @Tags chat
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body models.QueryRequest true "Query request"
// @Success 200 {object} models.QueryResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/query [post]
func (h *QueryHandler) SubmitQuery(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	resp, err := h.queries.SubmitQuery(r.Context(), sessionID, &req)
	if err != nil {
		h.logger.Printf("Query failed for session %s: %v", sessionID, err)
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, resp)
}

// RetrievalPreviewResponse carries chunks from a standalone retrieval
type RetrievalPreviewResponse struct {
	Query   string                `json:"query"`
	Context []models.ContextChunk `json:"context"`
	Count   int                   `json:"count"`
}

// PreviewRetrieval runs a retrieval without a completion
// @Summary Preview retrieval
// @Description Return the context chunks a query would retrieve, without calling the inference backend
// @Tags chat
// @Produce json
// @Param id path string true "Session ID"
// @Param q query string true "Query text"
// @Param top_k query int false "Number of chunks" default(4)
// @Success 200 {object} RetrievalPreviewResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/retrieval [get]
func (h *QueryHandler) PreviewRetrieval(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	query := r.URL.Query().Get("q")
	topK := services.DefaultTopK
	if v := r.URL.Query().Get("top_k"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			topK = parsed
		}
	}

	chunks, err := h.queries.RetrieveOnly(r.Context(), sessionID, query, topK)
	if err != nil {
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, RetrievalPreviewResponse{
		Query:   query,
		Context: chunks,
		Count:   len(chunks),
	})
}
