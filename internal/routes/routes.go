package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"hybrid-rag/internal/handlers"
)

// Handlers bundles everything the router needs
type Handlers struct {
	Health   *handlers.HealthHandler
	Config   *handlers.ConfigHandler
	Store    *handlers.StoreHandler
	Session  *handlers.SessionHandler
	Query    *handlers.QueryHandler
	Document *handlers.DocumentHandler
}

// RegisterRoutes sets up all application routes. Handler groups left nil
// (for example when Redis or ChromaDB is unavailable at startup) are
// skipped, so the server still serves health and mode selection.
func RegisterRoutes(router *mux.Router, h *Handlers) {
	router.HandleFunc("/", handlers.Home).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Inference backend selection
	api.HandleFunc("/config/mode", h.Config.SelectMode).Methods(http.MethodPost)
	api.HandleFunc("/config/mode", h.Config.GetMode).Methods(http.MethodGet)

	// Vector store lifecycle
	if h.Store != nil {
		api.HandleFunc("/setup", h.Store.Setup).Methods(http.MethodPost)
		api.HandleFunc("/store/status", h.Store.Status).Methods(http.MethodGet)
	}

	// Chat sessions
	if h.Session != nil && h.Query != nil {
		api.HandleFunc("/sessions", h.Session.CreateSession).Methods(http.MethodPost)
		api.HandleFunc("/sessions/{id}", h.Session.GetSession).Methods(http.MethodGet)
		api.HandleFunc("/sessions/{id}/clear", h.Session.ClearHistory).Methods(http.MethodPost)
		api.HandleFunc("/sessions/{id}/retrieval", h.Session.SetRetrieval).Methods(http.MethodPost)
		api.HandleFunc("/sessions/{id}/retrieval", h.Query.PreviewRetrieval).Methods(http.MethodGet)
		api.HandleFunc("/sessions/{id}/query", h.Query.SubmitQuery).Methods(http.MethodPost)
	}

	// Document ingestion
	if h.Document != nil {
		api.HandleFunc("/documents/upload", h.Document.UploadDocuments).Methods(http.MethodPost)
		api.HandleFunc("/documents", h.Document.ListDocuments).Methods(http.MethodGet)
		api.HandleFunc("/documents/{id}", h.Document.DeleteDocument).Methods(http.MethodDelete)
		api.HandleFunc("/database/clear", h.Document.ClearDatabase).Methods(http.MethodPost)
		api.HandleFunc("/jobs/{id}", h.Document.JobStatus).Methods(http.MethodGet)
	}
}
