package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"hybrid-rag/internal/services"
)

// SessionHandler handles chat-session lifecycle requests
type SessionHandler struct {
	sessions *services.SessionService
	logger   *log.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionService, logger *log.Logger) *SessionHandler {
	return &SessionHandler{
		sessions: sessions,
		logger:   logger,
	}
}

// RetrievalToggleRequest flips a session's vector-database usage
type RetrievalToggleRequest struct {
	Enabled bool `json:"enabled"`
}

// CreateSession starts a new chat session
// @Summary Create chat session
// @Description Start a new chat session with empty history and retrieval disabled
// @Tags sessions
// @Produce json
// @Success 201 {object} models.ChatSession
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/sessions [post]
func (h *SessionHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessions.CreateSession(r.Context())
	if err != nil {
		h.logger.Printf("Failed to create session: %v", err)
		sendError(h.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusCreated, session)
}

// GetSession returns a session with its history
// @Summary Get chat session
// @Description Fetch a chat session including its conversation history
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.ChatSession
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id} [get]
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	session, err := h.sessions.GetSession(r.Context(), sessionID)
	if err != nil {
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, session)
}

// ClearHistory empties a session's conversation history
// @Summary Clear chat history
// @Description Remove all exchanges from a session. Uploaded documents are unaffected.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/clear [post]
func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := h.sessions.ClearHistory(r.Context(), sessionID); err != nil {
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Chat history cleared",
	})
}

// SetRetrieval toggles vector-database usage for a session
// @Summary Toggle retrieval
// @Description Enable or disable document retrieval for a session. Enabling requires a ready store with documents.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body RetrievalToggleRequest true "Toggle request"
// @Success 200 {object} models.ChatSession
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/v1/sessions/{id}/retrieval [post]
func (h *SessionHandler) SetRetrieval(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req RetrievalToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	session, err := h.sessions.SetRetrieval(r.Context(), sessionID, req.Enabled)
	if err != nil {
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, session)
}
