package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports server and dependency health
type HealthHandler struct {
	dependencies map[string]Pinger
	logger       *log.Logger
}

// NewHealthHandler creates a health handler over the given dependencies
func NewHealthHandler(dependencies map[string]Pinger, logger *log.Logger) *HealthHandler {
	return &HealthHandler{
		dependencies: dependencies,
		logger:       logger,
	}
}

// HealthResponse reports per-dependency reachability
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

// Health reports liveness and dependency status
// @Summary Health check
// @Description Report server liveness and whether Redis and the vector database are reachable
// @Tags general
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:       "healthy",
		Dependencies: make(map[string]string, len(h.dependencies)),
	}

	status := http.StatusOK
	for name, dep := range h.dependencies {
		if dep == nil {
			resp.Dependencies[name] = "unavailable"
			continue
		}
		if err := dep.Ping(ctx); err != nil {
			resp.Dependencies[name] = "unreachable: " + err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Dependencies[name] = "ok"
		}
	}

	sendJSON(h.logger, w, status, resp)
}

// Home returns a welcome message
// @Summary Home page
// @Description Returns a welcome message for the API server
// @Tags general
// @Produce text/plain
// @Success 200 {string} string "Hybrid RAG chat server"
// @Router / [get]
func Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	fmt.Fprintln(w, "Hybrid RAG chat server")
}
