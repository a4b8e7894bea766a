package handlers

import (
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"hybrid-rag/internal/services"
)

// DocumentHandler handles HTTP requests for document ingestion
type DocumentHandler struct {
	docService *services.DocumentService
	logger     *log.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(docService *services.DocumentService, logger *log.Logger) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		logger:     logger,
	}
}

// UploadDocuments ingests a batch of files into the vector store
// @Summary Upload documents
// @Description Upload up to five text or PDF documents for retrieval. Fails without side effects when the store is not ready.
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Document files (repeat the field for multiple files)"
// @Param async formData bool false "Process in the background" default(false)
// @Success 200 {object} services.UploadResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/documents/upload [post]
func (h *DocumentHandler) UploadDocuments(w http.ResponseWriter, r *http.Request) {
	h.logger.Printf("Upload request from %s", r.RemoteAddr)

	// max 100MB across the batch
	if err := r.ParseMultipartForm(100 << 20); err != nil {
		sendError(h.logger, w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		sendError(h.logger, w, http.StatusBadRequest, "No files uploaded")
		return
	}

	async := h.getBoolParam(r, "async", false)

	var files []services.UploadFile
	for _, header := range r.MultipartForm.File["files"] {
		f, err := header.Open()
		if err != nil {
			sendError(h.logger, w, http.StatusBadRequest, "Failed to open uploaded file: "+header.Filename)
			return
		}
		content, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			sendError(h.logger, w, http.StatusBadRequest, "Failed to read uploaded file: "+header.Filename)
			return
		}
		files = append(files, services.UploadFile{
			Filename: header.Filename,
			Content:  content,
		})
	}

	resp, err := h.docService.UploadDocuments(r.Context(), files, async)
	if err != nil {
		h.logger.Printf("Upload rejected: %v", err)
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, resp)
}

// DocumentListResponse represents a list of documents
type DocumentListResponse struct {
	Documents interface{} `json:"documents"`
	Count     int         `json:"count"`
}

// ListDocuments returns all registered documents
// @Summary List documents
// @Description Get all documents in the registry, newest first
// @Tags documents
// @Produce json
// @Success 200 {object} DocumentListResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/documents [get]
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docService.ListDocuments(r.Context())
	if err != nil {
		sendError(h.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, DocumentListResponse{
		Documents: docs,
		Count:     len(docs),
	})
}

// DeleteDocument removes one document and its chunks
// @Summary Delete a document
// @Description Remove a document's chunks from the vector store and its registry entry
// @Tags documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/documents/{id} [delete]
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	documentID := mux.Vars(r)["id"]

	if err := h.docService.DeleteDocument(r.Context(), documentID); err != nil {
		sendError(h.logger, w, statusForError(err), err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Document deleted",
	})
}

// ClearDatabase wipes all documents from the vector store
// @Summary Clear the vector database
// @Description Remove every document and chunk. Chat histories are kept; retrieval toggles turn off.
// @Tags documents
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/v1/database/clear [post]
func (h *DocumentHandler) ClearDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.docService.ClearDatabase(r.Context()); err != nil {
		h.logger.Printf("Database clear failed: %v", err)
		sendError(h.logger, w, http.StatusInternalServerError, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, SuccessResponse{
		Success: true,
		Message: "Vector database cleared",
	})
}

// JobStatus reports progress of a background ingest job
// @Summary Get ingest job status
// @Description Return the status and progress of a queued document-ingest job
// @Tags documents
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} repositories.Job
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/jobs/{id} [get]
func (h *DocumentHandler) JobStatus(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["id"]

	job, err := h.docService.JobStatus(r.Context(), jobID)
	if err != nil {
		sendError(h.logger, w, http.StatusNotFound, err.Error())
		return
	}

	sendJSON(h.logger, w, http.StatusOK, job)
}

func (h *DocumentHandler) getBoolParam(r *http.Request, key string, defaultValue bool) bool {
	value := r.FormValue(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}
