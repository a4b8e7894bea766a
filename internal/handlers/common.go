package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"hybrid-rag/internal/models"
	"hybrid-rag/internal/repositories"
)

// ErrorResponse is the JSON body returned on handler failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// SuccessResponse is the JSON body for operations with no payload
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func sendJSON(logger *log.Logger, w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Printf("Failed to encode JSON: %v", err)
	}
}

func sendError(logger *log.Logger, w http.ResponseWriter, status int, message string) {
	sendJSON(logger, w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Status:  status,
	})
}

// statusForError maps domain errors onto HTTP status codes
func statusForError(err error) int {
	var configErr *models.ConfigError
	if errors.As(err, &configErr) {
		return http.StatusBadRequest
	}

	var queryErr *models.QueryError
	if errors.As(err, &queryErr) {
		switch queryErr.Kind {
		case models.QueryErrorBackendUnreachable:
			return http.StatusBadGateway
		case models.QueryErrorNotReady:
			return http.StatusConflict
		case models.QueryErrorInvalidRequest:
			return http.StatusBadRequest
		}
	}

	var ingestErr *models.IngestError
	if errors.As(err, &ingestErr) {
		switch ingestErr.Kind {
		case models.IngestErrorStoreNotReady:
			return http.StatusConflict
		default:
			return http.StatusBadRequest
		}
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}

	if repositories.IsSessionNotFound(err) || repositories.IsDocumentNotFound(err) {
		return http.StatusNotFound
	}

	return http.StatusInternalServerError
}
